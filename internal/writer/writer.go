package writer

import (
	"context"
	"errors"
	"hash/fnv"
	"log/slog"
	"sync"
	"time"

	"github.com/rickgao/collection-replay/internal/clock"
	"github.com/rickgao/collection-replay/internal/metrics"
	"github.com/rickgao/collection-replay/internal/router"
	"github.com/rickgao/collection-replay/internal/sink"
)

// WriterConfig configures the bucket writer.
type WriterConfig struct {
	Workers     int           // Concurrent bucket writers. Default: 4
	MaxAttempts int           // Append attempts per record. Default: 3
	RetryDelay  time.Duration // Delay before the second attempt, doubled after each failure. Default: 100ms
	ShardBuffer int           // Per-worker hand-off buffer. Default: 64
}

// DefaultWriterConfig returns default configuration.
func DefaultWriterConfig() WriterConfig {
	return WriterConfig{
		Workers:     4,
		MaxAttempts: 3,
		RetryDelay:  100 * time.Millisecond,
		ShardBuffer: 64,
	}
}

// WriterMetrics contains runtime statistics.
type WriterMetrics struct {
	Appended int64 // Records stored
	Retries  int64 // Failed attempts that were retried
	Failed   int64 // Records dropped after exhausting attempts
}

// Writer consumes router records and appends them to the sink.
type Writer struct {
	cfg    WriterConfig
	logger *slog.Logger
	clock  clock.Clock

	// Input from Response Router
	input *router.Queue[router.Record]

	sink sink.Sink

	shards []chan router.Record

	// Lifecycle
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	metrics WriterMetrics
}

// NewWriter creates a new Writer.
func NewWriter(
	cfg WriterConfig,
	input *router.Queue[router.Record],
	s sink.Sink,
	clk clock.Clock,
	logger *slog.Logger,
) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	if clk == nil {
		clk = clock.Real{}
	}
	def := DefaultWriterConfig()
	if cfg.Workers < 1 {
		cfg.Workers = def.Workers
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.ShardBuffer < 0 {
		cfg.ShardBuffer = 0
	}

	return &Writer{
		cfg:    cfg,
		logger: logger,
		clock:  clk,
		input:  input,
		sink:   s,
	}
}

// Start begins consuming records. Cancelling ctx does not abandon queued
// records; Stop drains them.
func (w *Writer) Start(ctx context.Context) error {
	w.ctx, w.cancel = context.WithCancel(context.WithoutCancel(ctx))

	w.shards = make([]chan router.Record, w.cfg.Workers)
	for i := range w.shards {
		w.shards[i] = make(chan router.Record, w.cfg.ShardBuffer)

		w.wg.Add(1)
		go w.writeLoop(w.shards[i])
	}

	w.wg.Add(1)
	go w.consumeLoop()

	w.logger.Info("bucket writer started",
		"workers", w.cfg.Workers,
		"max_attempts", w.cfg.MaxAttempts,
	)
	return nil
}

// Stop closes the input queue and waits until every queued record has been
// written. If ctx ends first, pending retries are abandoned and ctx.Err() is returned.
func (w *Writer) Stop(ctx context.Context) error {
	w.logger.Info("stopping bucket writer", "pending", w.input.Len())

	w.input.Close()
	if w.cancel == nil {
		return nil
	}

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		w.cancel()
		stats := w.Stats()
		w.logger.Info("bucket writer stopped",
			"appended", stats.Appended,
			"failed", stats.Failed,
		)
		return nil
	case <-ctx.Done():
		w.cancel()
		w.logger.Warn("bucket writer stop timed out", "pending", w.input.Len())
		return ctx.Err()
	}
}

// Stats returns current metrics.
func (w *Writer) Stats() WriterMetrics {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.metrics
}

// consumeLoop moves records from the router queue to their bucket's shard.
func (w *Writer) consumeLoop() {
	defer w.wg.Done()
	defer func() {
		for _, ch := range w.shards {
			close(ch)
		}
	}()

	for {
		rec, ok := w.input.Pop()
		if !ok {
			return
		}
		w.shards[shardFor(rec.Bucket, len(w.shards))] <- rec
	}
}

// writeLoop appends every record from one shard.
func (w *Writer) writeLoop(in <-chan router.Record) {
	defer w.wg.Done()

	for rec := range in {
		w.write(rec)
	}
}

// write appends one record, retrying with doubling delay.
func (w *Writer) write(rec router.Record) {
	delay := w.cfg.RetryDelay

	var err error
	for attempt := 1; attempt <= w.cfg.MaxAttempts; attempt++ {
		if err = w.sink.Append(rec.Bucket, rec.Body); err == nil {
			w.mu.Lock()
			w.metrics.Appended++
			w.mu.Unlock()
			metrics.BucketAppends.Inc()
			return
		}

		if attempt == w.cfg.MaxAttempts || permanent(err) {
			break
		}

		w.mu.Lock()
		w.metrics.Retries++
		w.mu.Unlock()
		w.logger.Warn("bucket append failed, retrying",
			"bucket", rec.Bucket,
			"attempt", attempt,
			"delay", delay,
			"error", err,
		)

		if w.clock.Sleep(w.ctx, delay) != nil {
			break
		}
		delay *= 2
	}

	w.mu.Lock()
	w.metrics.Failed++
	w.mu.Unlock()
	metrics.BucketWriteFailures.Inc()
	w.logger.Error("bucket append failed",
		"bucket", rec.Bucket,
		"correlation_id", rec.CorrelationID,
		"error", err,
	)
}

// permanent reports sink errors that no retry can fix.
func permanent(err error) bool {
	return errors.Is(err, sink.ErrEmptyBucket) || errors.Is(err, sink.ErrInvalidBody)
}

func shardFor(bucket string, n int) int {
	if n <= 1 {
		return 0
	}
	h := fnv.New32a()
	h.Write([]byte(bucket))
	return int(h.Sum32() % uint32(n))
}
