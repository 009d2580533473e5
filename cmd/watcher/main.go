package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kmrl/docintel/internal/adapters/inbox"
	"github.com/kmrl/docintel/internal/bootstrap"
	"github.com/kmrl/docintel/internal/config"
	"github.com/kmrl/docintel/internal/observability/logging"
)

const serviceName = "watcher"

func main() {
	cfg := config.Load()
	slog.SetDefault(logging.NewJSONLogger(serviceName, cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, bootstrap.Options{Service: serviceName})
	if err != nil {
		slog.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	var metricsServer *http.Server
	if app.Metrics != nil {
		mux := http.NewServeMux()
		mux.Handle("/metrics", app.Metrics.Handler())
		metricsServer = &http.Server{
			Addr:              ":" + cfg.WorkerMetricsPort,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			slog.Info("watcher_metrics_listening", "addr", metricsServer.Addr)
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Warn("watcher_metrics_failed", "error", err)
			}
		}()
	}

	watcher := inbox.New(cfg.InboxPath, app.Ingest, app.Spool, inbox.Options{})
	if err := watcher.Run(ctx); err != nil {
		slog.Error("watcher_failed", "error", err)
	}

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}
}
