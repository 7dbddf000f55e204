// Package metrics provides Prometheus metrics for monitoring a replay run.
//
// Key metrics:
//   - replay_sends_total{result}: request frames sent, failed or skipped at shutdown
//   - replay_sends_in_flight: sends currently between pacing delay and completion
//   - replay_frames_total{result}: inbound frames routed, ignored or rejected
//   - replay_bucket_appends_total / replay_bucket_write_failures_total: sink outcomes
//   - replay_reconnects_total, replay_connection_state: connection manager health
//
// Collectors register with the default registry on package init; cmd/replayer exposes
// them with promhttp.
package metrics
