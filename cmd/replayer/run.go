package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rickgao/collection-replay/internal/clock"
	"github.com/rickgao/collection-replay/internal/config"
	"github.com/rickgao/collection-replay/internal/connection"
	"github.com/rickgao/collection-replay/internal/database"
	"github.com/rickgao/collection-replay/internal/dispatch"
	"github.com/rickgao/collection-replay/internal/idstore"
	"github.com/rickgao/collection-replay/internal/protocol"
	"github.com/rickgao/collection-replay/internal/router"
	"github.com/rickgao/collection-replay/internal/sink"
	"github.com/rickgao/collection-replay/internal/source"
	"github.com/rickgao/collection-replay/internal/version"
	"github.com/rickgao/collection-replay/internal/writer"
)

const (
	defaultLinger   = 2 * time.Minute
	shutdownTimeout = 30 * time.Second
	pollInterval    = 100 * time.Millisecond
)

type runOptions struct {
	// Linger bounds how long to keep receiving after the last send. The wait
	// ends early once every sent request has a routed response. 0 means no bound.
	Linger time.Duration
}

// runReplay installs logging and signal handling, then runs one replay.
func runReplay(parent context.Context, cfg *config.Config, opts runOptions) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	runID := newRunID()
	logger := newLogger(os.Stderr, cfg.Log, runID)
	slog.SetDefault(logger)

	logger.Info("starting replayer", version.Attr(),
		"gateway", cfg.Gateway.URL,
		"policy", cfg.Dispatch.Policy,
		"workers", cfg.Dispatch.Workers,
		"source", cfg.Source.Kind,
		"output", cfg.Output.Dir,
	)

	return replay(ctx, cfg, opts, runID, logger)
}

func replay(ctx context.Context, cfg *config.Config, opts runOptions, runID string, logger *slog.Logger) error {
	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	var (
		index    *idstore.Index
		resolver router.Resolver = router.IDResolver{}
	)
	if cfg.Output.BucketBy == "name" {
		index = idstore.NewIndex()
		resolver = router.NameResolver{Index: index}
	}

	src := source.New(source.Config{
		FirstPage:  cfg.Source.FirstPage,
		LastPage:   cfg.Source.LastPage,
		BaseOffset: cfg.Dispatch.BaseOffset,
		Skip:       cfg.Dispatch.Skip,
	}, store, index, logger)
	if cfg.Source.LastPage > 0 {
		pages := int64(cfg.Source.LastPage - cfg.Source.FirstPage + 1)
		logger.Info("replay planned",
			"pages", pages,
			"expected_items", max(pages*int64(cfg.Source.PageSize)-cfg.Dispatch.Skip, 0),
		)
	}

	out, err := sink.NewFileSink(cfg.Output.Dir, logger)
	if err != nil {
		return err
	}

	rt := router.NewRouter(router.RouterConfig{QueueHint: cfg.Connection.BufferSize}, resolver, logger)

	wcfg := writer.DefaultWriterConfig()
	wcfg.Workers = cfg.Output.WriterWorkers
	wcfg.MaxAttempts = cfg.Output.WriteAttempts
	wcfg.RetryDelay = cfg.Output.WriteRetryDelay
	w := writer.NewWriter(wcfg, rt.Queue(), out, clock.Real{}, logger)
	if err := w.Start(ctx); err != nil {
		return fmt.Errorf("start writer: %w", err)
	}

	socketURL, err := cfg.Gateway.SocketURL()
	if err != nil {
		return err
	}
	dialer := connection.NewWSDialer(clientConfig(cfg), logger)
	mgr := connection.NewManager(managerConfig(cfg, socketURL), dialer, clock.Real{}, logger)

	encoder := protocol.NewEncoder(cfg.Gateway.EncoderConfig())
	disp := dispatch.New(dispatchConfig(cfg), mgr, encoder, clock.Real{}, logger)

	stopHealth := startHealthServer(cfg.Metrics, newHealthHandler(cfg.Metrics, runID, statusSource{
		manager:    mgr,
		dispatcher: disp,
		router:     rt,
		writer:     w,
	}), logger)
	defer stopHealth()

	// The dispatcher starts on the first open and runs once; sends made while
	// the manager is reconnecting fail and are handled by the retry policy.
	var (
		once       sync.Once
		started    = make(chan struct{})
		dispatched = make(chan struct{})
		result     dispatch.Result
		runErr     error
	)
	hooks := connection.Hooks{
		OnOpen: func() {
			once.Do(func() {
				close(started)
				go func() {
					defer close(dispatched)
					result, runErr = disp.Run(ctx, src.Produce(ctx))
				}()
			})
		},
		OnMessage: rt.OnMessage,
	}
	if err := mgr.Connect(ctx, hooks); err != nil {
		return fmt.Errorf("connect: %w", err)
	}

	select {
	case <-dispatched:
		logger.Info("dispatch finished",
			"sent", result.Sent,
			"failed", result.Failed,
			"duration", result.Duration,
		)
		awaitResponses(ctx, rt, result.Sent, opts.Linger, logger)
	case <-ctx.Done():
	}

	waitDispatch := func() {
		select {
		case <-started:
			<-dispatched
		default:
		}
	}

	logger.Info("shutting down...")
	waitDispatch()
	mgr.Close()
	// No hook runs after Close, so a dispatcher started during shutdown is visible here.
	waitDispatch()
	rt.Close()

	stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	stopErr := w.Stop(stopCtx)

	rs, ws := rt.Stats(), w.Stats()
	logger.Info("replay finished",
		"pulled", result.Pulled,
		"sent", result.Sent,
		"send_failed", result.Failed,
		"skipped", result.Skipped,
		"frames", rs.FramesReceived,
		"routed", rs.FramesRouted,
		"ignored", rs.FramesIgnored,
		"parse_errors", rs.ParseErrors,
		"appended", ws.Appended,
		"write_failed", ws.Failed,
	)

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return fmt.Errorf("dispatch: %w", runErr)
	}
	if stopErr != nil {
		return fmt.Errorf("stop writer: %w", stopErr)
	}
	if ws.Failed > 0 {
		return fmt.Errorf("%d responses could not be written", ws.Failed)
	}
	return nil
}

// awaitResponses keeps the connection up until every sent request has a
// routed response, linger elapses or ctx ends.
func awaitResponses(ctx context.Context, rt *router.Router, sent int64, linger time.Duration, logger *slog.Logger) {
	var deadline <-chan time.Time
	if linger > 0 {
		t := time.NewTimer(linger)
		defer t.Stop()
		deadline = t.C
	}

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		if routed := rt.Stats().FramesRouted; routed >= sent {
			logger.Info("all responses received", "routed", routed)
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-deadline:
			logger.Warn("stopped waiting for responses",
				"sent", sent,
				"routed", rt.Stats().FramesRouted,
				"linger", linger,
			)
			return
		case <-ticker.C:
		}
	}
}

// openStore opens the configured id store. The returned func releases it.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (idstore.Store, func(), error) {
	switch cfg.Source.Kind {
	case "postgres":
		logger.Info("connecting to database",
			"host", cfg.Database.Host,
			"port", cfg.Database.Port,
			"database", cfg.Database.Name,
		)
		pool, err := database.Connect(ctx, cfg.Database)
		if err != nil {
			return nil, nil, fmt.Errorf("connect database: %w", err)
		}
		return idstore.NewPGStore(pool, cfg.Source.Table), pool.Close, nil
	case "file":
		return idstore.NewFileStore(cfg.Source.Dir, cfg.Source.Pattern), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown source kind %q", cfg.Source.Kind)
	}
}

func clientConfig(cfg *config.Config) connection.ClientConfig {
	return connection.ClientConfig{
		Header:           cfg.Gateway.HandshakeHeader(),
		HandshakeTimeout: cfg.Connection.HandshakeTimeout,
		PingInterval:     cfg.Connection.PingInterval,
		PingTimeout:      cfg.Connection.PingTimeout,
		WriteTimeout:     cfg.Connection.WriteTimeout,
		HeartbeatText:    cfg.Connection.HeartbeatText,
		BufferSize:       cfg.Connection.BufferSize,
	}
}

func managerConfig(cfg *config.Config, url string) connection.ManagerConfig {
	mc := connection.DefaultManagerConfig()
	mc.URL = url
	mc.ReconnectBaseWait = cfg.Connection.ReconnectBaseDelay
	mc.ReconnectMaxWait = cfg.Connection.ReconnectMaxDelay
	return mc
}

func dispatchConfig(cfg *config.Config) dispatch.Config {
	dc := dispatch.Config{
		Policy:    dispatch.Policy(cfg.Dispatch.Policy),
		Workers:   cfg.Dispatch.Workers,
		SendDelay: cfg.Dispatch.SendDelay,
		MaxRate:   cfg.Dispatch.MaxRate,
		Retry:     dispatch.NoRetry{},
	}
	if cfg.Dispatch.Retries > 0 {
		dc.Retry = dispatch.Bounded{
			MaxAttempts: cfg.Dispatch.Retries + 1,
			Delay:       cfg.Dispatch.RetryDelay,
		}
	}
	return dc
}
