package router

import (
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/rickgao/collection-replay/internal/connection"
	"github.com/rickgao/collection-replay/internal/metrics"
	"github.com/rickgao/collection-replay/internal/protocol"
)

// Router turns inbound response frames into bucket records.
// OnMessage runs on the connection's event goroutine and never blocks;
// records are handed off through an unbounded queue to the writer.
type Router struct {
	cfg      RouterConfig
	logger   *slog.Logger
	resolver Resolver

	queue *Queue[Record]

	received    atomic.Int64
	routed      atomic.Int64
	ignored     atomic.Int64
	parseErrors atomic.Int64
}

// NewRouter creates a new Response Router. A nil resolver buckets by raw id.
func NewRouter(cfg RouterConfig, resolver Resolver, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	if resolver == nil {
		resolver = IDResolver{}
	}

	return &Router{
		cfg:      cfg,
		logger:   logger,
		resolver: resolver,
		queue:    NewQueue[Record](cfg.QueueHint),
	}
}

// Queue returns the record queue for writers to consume.
func (r *Router) Queue() *Queue[Record] {
	return r.queue
}

// OnMessage routes one inbound message. Suitable as a connection hook.
func (r *Router) OnMessage(msg connection.TimestampedMessage) {
	r.route(msg.Data, msg.ReceivedAt)
}

// OnFrame routes one raw inbound frame.
func (r *Router) OnFrame(raw []byte) {
	r.route(raw, time.Now())
}

// Close stops routing. Frames arriving afterwards are dropped; queued records remain.
func (r *Router) Close() {
	r.queue.Close()
}

// Stats returns current statistics.
func (r *Router) Stats() RouterStats {
	return RouterStats{
		FramesReceived: r.received.Load(),
		FramesRouted:   r.routed.Load(),
		FramesIgnored:  r.ignored.Load(),
		ParseErrors:    r.parseErrors.Load(),
		Queue:          r.queue.Stats(),
	}
}

// route parses and queues a single frame.
func (r *Router) route(raw []byte, receivedAt time.Time) {
	r.received.Add(1)

	frame, err := protocol.ParseResponse(raw)
	switch {
	case errors.Is(err, protocol.ErrNotResponse), errors.Is(err, protocol.ErrNoBody):
		r.ignored.Add(1)
		metrics.Frames.WithLabelValues(metrics.ResultIgnored).Inc()
		return
	case err != nil:
		r.parseErrors.Add(1)
		metrics.Frames.WithLabelValues(metrics.ResultInvalid).Inc()
		r.logger.Warn("failed to parse response", "error", err, "frame", preview(raw))
		return
	}

	rec := Record{
		Bucket:        r.resolver.Bucket(frame.CorrelationID),
		CorrelationID: frame.CorrelationID,
		Body:          frame.Body,
		ReceivedAt:    receivedAt,
	}

	if !r.queue.Push(rec) {
		r.ignored.Add(1)
		metrics.Frames.WithLabelValues(metrics.ResultIgnored).Inc()
		r.logger.Debug("router closed, dropping late response", "correlation_id", frame.CorrelationID)
		return
	}

	r.routed.Add(1)
	metrics.Frames.WithLabelValues(metrics.ResultRouted).Inc()
}

// preview truncates a frame for logging.
func preview(raw []byte) string {
	const max = 120
	if len(raw) <= max {
		return string(raw)
	}
	return string(raw[:max]) + "..."
}
