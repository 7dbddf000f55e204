// Package dispatch sends work items over the gateway connection.
//
// Two policies are supported. Sequential sends one item at a time in source
// order, waiting SendDelay before each send. Pooled runs up to Workers sends
// concurrently; each worker waits SendDelay before its own send. An optional
// MaxRate caps aggregate throughput in both modes.
//
// A failed send never aborts the run: it is logged, counted, handed to the
// RetryPolicy and otherwise dropped.
package dispatch

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/rickgao/collection-replay/internal/clock"
	"github.com/rickgao/collection-replay/internal/metrics"
	"github.com/rickgao/collection-replay/internal/model"
	"github.com/rickgao/collection-replay/internal/protocol"
)

// Policy selects how items are sent.
type Policy string

const (
	PolicySequential Policy = "sequential"
	PolicyPooled     Policy = "pooled"
)

// Config configures the dispatcher.
type Config struct {
	Policy    Policy
	Workers   int           // Pooled concurrency. Default: 20
	SendDelay time.Duration // Wait before each send. Default: 1s
	MaxRate   float64       // Aggregate sends per second, 0 = unlimited
	Retry     RetryPolicy   // Default: NoRetry
}

// DefaultConfig returns the pooled configuration of a normal run.
func DefaultConfig() Config {
	return Config{
		Policy:    PolicyPooled,
		Workers:   20,
		SendDelay: time.Second,
		Retry:     NoRetry{},
	}
}

// Sender writes one text frame. connection.Manager satisfies it.
type Sender interface {
	Send(text string) error
}

// Result summarizes a run.
type Result struct {
	Pulled   int64 // Items taken from the source
	Sent     int64 // Items whose frame was written
	Failed   int64 // Items dropped after send errors
	Skipped  int64 // Items pulled but abandoned by cancellation before sending
	Duration time.Duration
}

// Dispatcher pulls items from a source and sends their request frames.
type Dispatcher struct {
	cfg     Config
	sender  Sender
	encoder *protocol.Encoder
	clock   clock.Clock
	limiter *rate.Limiter
	logger  *slog.Logger

	pulled  atomic.Int64
	sent    atomic.Int64
	failed  atomic.Int64
	skipped atomic.Int64
}

// New creates a dispatcher.
func New(cfg Config, sender Sender, encoder *protocol.Encoder, clk clock.Clock, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	if clk == nil {
		clk = clock.Real{}
	}
	if encoder == nil {
		encoder = protocol.NewEncoder(protocol.DefaultEncoderConfig())
	}
	if cfg.Policy == "" {
		cfg.Policy = PolicyPooled
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.SendDelay < 0 {
		cfg.SendDelay = 0
	}
	if cfg.Retry == nil {
		cfg.Retry = NoRetry{}
	}

	d := &Dispatcher{
		cfg:     cfg,
		sender:  sender,
		encoder: encoder,
		clock:   clk,
		logger:  logger,
	}
	if cfg.MaxRate > 0 {
		burst := int(cfg.MaxRate)
		if burst < 1 {
			burst = 1
		}
		d.limiter = rate.NewLimiter(rate.Limit(cfg.MaxRate), burst)
	}
	return d
}

// Run sends every item from items and returns once each pulled item has been
// attempted. On cancellation it stops pulling, lets in-flight sends finish and
// returns ctx.Err(). A source error stops pulling the same way and is returned.
func (d *Dispatcher) Run(ctx context.Context, items iter.Seq2[model.WorkItem, error]) (Result, error) {
	start := d.clock.Now()

	d.logger.Info("dispatch started",
		"policy", d.cfg.Policy,
		"workers", d.cfg.Workers,
		"send_delay", d.cfg.SendDelay,
		"max_rate", d.cfg.MaxRate,
	)

	var err error
	switch d.cfg.Policy {
	case PolicySequential:
		err = d.runSequential(ctx, items)
	case PolicyPooled:
		err = d.runPooled(ctx, items)
	default:
		err = fmt.Errorf("unknown dispatch policy %q", d.cfg.Policy)
	}

	res := d.Result()
	res.Duration = d.clock.Now().Sub(start)

	d.logger.Info("dispatch finished",
		"pulled", res.Pulled,
		"sent", res.Sent,
		"failed", res.Failed,
		"skipped", res.Skipped,
		"duration", res.Duration,
	)
	return res, err
}

// Result returns counters so far. Duration is only set on the value Run returns.
func (d *Dispatcher) Result() Result {
	return Result{
		Pulled:  d.pulled.Load(),
		Sent:    d.sent.Load(),
		Failed:  d.failed.Load(),
		Skipped: d.skipped.Load(),
	}
}

func (d *Dispatcher) runSequential(ctx context.Context, items iter.Seq2[model.WorkItem, error]) error {
	for item, err := range items {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		d.pulled.Add(1)
		d.attempt(ctx, item)
	}
	return ctx.Err()
}

func (d *Dispatcher) runPooled(ctx context.Context, items iter.Seq2[model.WorkItem, error]) error {
	var g errgroup.Group
	g.SetLimit(d.cfg.Workers)

	var srcErr error
	for item, err := range items {
		if err != nil {
			srcErr = err
			break
		}
		if ctx.Err() != nil {
			break
		}
		d.pulled.Add(1)

		// Blocks while Workers sends are in flight.
		g.Go(func() error {
			d.attempt(ctx, item)
			return nil
		})
	}

	g.Wait()

	if srcErr != nil {
		return srcErr
	}
	return ctx.Err()
}

// attempt waits its turn, sends item and applies the retry policy.
func (d *Dispatcher) attempt(ctx context.Context, item model.WorkItem) {
	if err := d.clock.Sleep(ctx, d.cfg.SendDelay); err != nil {
		d.skip(item)
		return
	}
	if d.limiter != nil {
		if err := d.limiter.Wait(ctx); err != nil {
			d.skip(item)
			return
		}
	}

	text := d.encoder.Encode(item.Seq, item.ResourceID).Text()

	metrics.SendsInFlight.Inc()
	defer metrics.SendsInFlight.Dec()

	for n := 1; ; n++ {
		err := d.sender.Send(text)
		if err == nil {
			d.sent.Add(1)
			metrics.Sends.WithLabelValues(metrics.ResultSent).Inc()
			d.logger.Debug("request sent", "seq", item.Seq, "resource_id", item.ResourceID)
			return
		}

		delay, retry := d.cfg.Retry.Next(n, err)
		if !retry {
			d.failed.Add(1)
			metrics.Sends.WithLabelValues(metrics.ResultFailed).Inc()
			d.logger.Warn("send failed, dropping item",
				"seq", item.Seq,
				"resource_id", item.ResourceID,
				"attempts", n,
				"error", err,
			)
			return
		}

		d.logger.Debug("send failed, retrying", "seq", item.Seq, "attempt", n, "delay", delay, "error", err)
		if d.clock.Sleep(ctx, delay) != nil {
			d.skip(item)
			return
		}
	}
}

func (d *Dispatcher) skip(item model.WorkItem) {
	d.skipped.Add(1)
	metrics.Sends.WithLabelValues(metrics.ResultSkipped).Inc()
	d.logger.Debug("send skipped", "seq", item.Seq)
}
