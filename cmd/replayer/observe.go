package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rickgao/collection-replay/internal/config"
	"github.com/rickgao/collection-replay/internal/connection"
	"github.com/rickgao/collection-replay/internal/dispatch"
	"github.com/rickgao/collection-replay/internal/router"
	"github.com/rickgao/collection-replay/internal/writer"
)

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// newLogger builds the process logger. Every line carries the run id.
func newLogger(w io.Writer, cfg config.LogConfig, runID string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}

	var h slog.Handler
	if cfg.Format == "json" {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	return slog.New(h).With("run_id", runID)
}

func newRunID() string {
	return ulid.Make().String()
}

// statusSource is what the health endpoint reports on.
type statusSource struct {
	manager    *connection.Manager
	dispatcher *dispatch.Dispatcher
	router     *router.Router
	writer     *writer.Writer
}

type healthReport struct {
	Status     string         `json:"status"`
	RunID      string         `json:"run_id"`
	Components map[string]any `json:"components"`
}

func (s statusSource) report(runID string) healthReport {
	health := healthReport{
		Status:     "healthy",
		RunID:      runID,
		Components: make(map[string]any),
	}

	if s.manager != nil {
		ms := s.manager.Stats()
		health.Components["connection"] = map[string]any{
			"state":    ms.State.String(),
			"attempts": ms.Attempts,
			"opens":    ms.Opens,
			"failures": ms.Failures,
		}
		if ms.State != connection.StateOpen {
			health.Status = "degraded"
		}
	}
	if s.dispatcher != nil {
		r := s.dispatcher.Result()
		health.Components["dispatch"] = map[string]any{
			"pulled":  r.Pulled,
			"sent":    r.Sent,
			"failed":  r.Failed,
			"skipped": r.Skipped,
		}
	}
	if s.router != nil {
		rs := s.router.Stats()
		health.Components["router"] = map[string]any{
			"received":     rs.FramesReceived,
			"routed":       rs.FramesRouted,
			"ignored":      rs.FramesIgnored,
			"parse_errors": rs.ParseErrors,
			"queued":       rs.Queue.Len,
		}
	}
	if s.writer != nil {
		ws := s.writer.Stats()
		health.Components["writer"] = map[string]any{
			"appended": ws.Appended,
			"retries":  ws.Retries,
			"failed":   ws.Failed,
		}
		if ws.Failed > 0 {
			health.Status = "unhealthy"
		}
	}
	return health
}

// newHealthHandler serves /health and the Prometheus registry.
func newHealthHandler(cfg config.MetricsConfig, runID string, src statusSource) http.Handler {
	mux := http.NewServeMux()
	mux.Handle(cfg.Path, promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		health := src.report(runID)

		w.Header().Set("Content-Type", "application/json")
		if health.Status == "unhealthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(health)
	})
	return mux
}

// startHealthServer starts the metrics server when a port is configured.
// The returned func shuts it down.
func startHealthServer(cfg config.MetricsConfig, handler http.Handler, logger *slog.Logger) func() {
	if cfg.Port == 0 {
		return func() {}
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("starting health server", "port", cfg.Port, "metrics_path", cfg.Path)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("health server error", "error", err)
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}
}
