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

	"github.com/prometheus/client_golang/prometheus"

	httpadapter "github.com/kmrl/docintel/internal/adapters/http"
	"github.com/kmrl/docintel/internal/bootstrap"
	"github.com/kmrl/docintel/internal/config"
	"github.com/kmrl/docintel/internal/observability/logging"
	"github.com/kmrl/docintel/internal/observability/metrics"
)

const serviceName = "api"

func main() {
	cfg := config.Load()
	slog.SetDefault(logging.NewJSONLogger(serviceName, cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var httpMetrics *metrics.HTTPServerMetrics
	var registry *prometheus.Registry
	if cfg.MetricsEnabled {
		httpMetrics = metrics.NewHTTPServerMetrics(serviceName)
		registry = httpMetrics.Registry()
	}

	app, err := bootstrap.New(ctx, cfg, bootstrap.Options{Service: serviceName, Registry: registry})
	if err != nil {
		slog.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	router := httpadapter.NewRouter(cfg, httpadapter.Dependencies{
		Ingestor:  app.Ingest,
		Documents: app.Documents,
		Stats:     app.Stats,
		Spool:     app.Spool,
		Files:     app.Files,
		Metrics:   httpMetrics,
	}).Handler()
	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("api_listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("api_server_failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Warn("api_shutdown_failed", "error", err)
	}
}
