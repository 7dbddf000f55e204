package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Label values.
const (
	ResultSent    = "sent"
	ResultFailed  = "failed"
	ResultSkipped = "skipped"

	ResultRouted  = "routed"
	ResultIgnored = "ignored"
	ResultInvalid = "invalid"
)

var (
	Sends = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "replay_sends_total",
		Help: "Request frames by outcome",
	}, []string{"result"})

	SendsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "replay_sends_in_flight",
		Help: "Sends currently in progress",
	})

	Frames = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "replay_frames_total",
		Help: "Inbound frames by routing outcome",
	}, []string{"result"})

	BucketAppends = promauto.NewCounter(prometheus.CounterOpts{
		Name: "replay_bucket_appends_total",
		Help: "Response records appended to bucket files",
	})

	BucketWriteFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "replay_bucket_write_failures_total",
		Help: "Response records lost after exhausting write attempts",
	})

	Reconnects = promauto.NewCounter(prometheus.CounterOpts{
		Name: "replay_reconnects_total",
		Help: "Reconnect attempts after a failed dial or dropped connection",
	})

	ConnectionState = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "replay_connection_state",
		Help: "Connection manager state (0=disconnected 1=connecting 2=open 3=closing 4=reconnecting)",
	})
)
