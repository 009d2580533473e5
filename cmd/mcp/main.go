package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/mark3labs/mcp-go/server"

	"github.com/kmrl/docintel/internal/bootstrap"
	"github.com/kmrl/docintel/internal/config"
	"github.com/kmrl/docintel/internal/infrastructure/classifier/rulebased"
	"github.com/kmrl/docintel/internal/observability/logging"
)

const serviceName = "mcp"

func main() {
	cfg := config.Load()
	cfg.MetricsEnabled = false
	// stdout carries the protocol.
	slog.SetDefault(logging.NewJSONLoggerTo(os.Stderr, serviceName, cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, bootstrap.Options{Service: serviceName})
	if err != nil {
		slog.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	tools := toolset{
		extractor: bootstrap.NewExtractor(cfg),
		rules:     rulebased.New(),
		documents: app.Documents,
		stats:     app.Stats,
	}
	if analyzer := bootstrap.NewAnalyzer(cfg); analyzer != nil {
		tools.analyzer = analyzer
	}

	slog.Info("mcp_serving_stdio", "ai_enabled", tools.analyzer != nil)
	if err := server.ServeStdio(newServer(tools)); err != nil {
		slog.Error("mcp_server_failed", "error", err)
	}
}
