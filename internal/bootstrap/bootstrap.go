package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kmrl/docintel/internal/config"
	"github.com/kmrl/docintel/internal/core/ports"
	"github.com/kmrl/docintel/internal/core/usecase"
	"github.com/kmrl/docintel/internal/infrastructure/classifier/rulebased"
	"github.com/kmrl/docintel/internal/infrastructure/extractor"
	"github.com/kmrl/docintel/internal/infrastructure/llm/ollama"
	"github.com/kmrl/docintel/internal/infrastructure/queue/nats"
	"github.com/kmrl/docintel/internal/infrastructure/repository/memory"
	"github.com/kmrl/docintel/internal/infrastructure/repository/postgres"
	"github.com/kmrl/docintel/internal/infrastructure/resilience"
	"github.com/kmrl/docintel/internal/infrastructure/storage/localfs"
	"github.com/kmrl/docintel/internal/observability/metrics"
)

type App struct {
	Config config.Config

	Repo      ports.DocumentRepository
	Files     *localfs.Storage
	Spool     *localfs.Spool
	Publisher *nats.Publisher
	Metrics   *metrics.PipelineMetrics

	Ingest    *usecase.IngestUseCase
	Documents *usecase.DocumentsUseCase
	Stats     *usecase.StatsUseCase

	closeFn func()
}

type Options struct {
	Service string
	// Registry receives the pipeline collectors. Nil gives them their own.
	Registry *prometheus.Registry
}

func New(ctx context.Context, cfg config.Config, opts Options) (*App, error) {
	var closers []func()
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	repo, closeRepo, err := openRepository(ctx, cfg)
	if err != nil {
		return nil, err
	}
	closers = append(closers, closeRepo)

	files, err := localfs.New(cfg.StoragePath)
	if err != nil {
		closeAll()
		return nil, fmt.Errorf("init file storage: %w", err)
	}
	spool, err := localfs.NewSpool(cfg.UploadTmpPath)
	if err != nil {
		closeAll()
		return nil, fmt.Errorf("init upload spool: %w", err)
	}

	ingestOpts := usecase.IngestOptions{
		ExcerptMaxChars: cfg.ExcerptMaxChars,
		Concurrency:     cfg.PipelineConcurrency,
	}
	if analyzer := NewAnalyzer(cfg); analyzer != nil {
		ingestOpts.Analyzer = analyzer
	}

	var publisher *nats.Publisher
	if cfg.NATSURL != "" {
		publisher, err = nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
			ResilienceExecutor: resilience.NewExecutor(resilience.DefaultConfig()),
		})
		if err != nil {
			closeAll()
			return nil, fmt.Errorf("init event publisher: %w", err)
		}
		closers = append(closers, publisher.Close)
		ingestOpts.Events = publisher
	}

	var pipelineMetrics *metrics.PipelineMetrics
	if cfg.MetricsEnabled {
		pipelineMetrics = metrics.NewPipelineMetrics(opts.Service, opts.Registry)
		ingestOpts.Metrics = pipelineMetrics
	}

	ingest := usecase.NewIngestUseCase(NewExtractor(cfg), rulebased.New(), repo, files, ingestOpts)

	slog.Info("bootstrap_complete",
		"store", storeName(cfg),
		"ai_enabled", cfg.AIEnabled,
		"events_enabled", publisher != nil,
		"metrics_enabled", pipelineMetrics != nil,
	)

	return &App{
		Config:    cfg,
		Repo:      repo,
		Files:     files,
		Spool:     spool,
		Publisher: publisher,
		Metrics:   pipelineMetrics,
		Ingest:    ingest,
		Documents: usecase.NewDocumentsUseCase(repo, files),
		Stats:     usecase.NewStatsUseCase(repo),
		closeFn:   closeAll,
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}

func openRepository(ctx context.Context, cfg config.Config) (ports.DocumentRepository, func(), error) {
	if cfg.PostgresDSN == "" {
		return memory.NewDocumentRepository(), func() {}, nil
	}
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("open postgres: %w", err)
	}
	repo := postgres.NewDocumentRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("ensure schema: %w", err)
	}
	return repo, func() { _ = db.Close() }, nil
}

// NewExtractor builds the MIME-dispatching extractor with tesseract OCR.
func NewExtractor(cfg config.Config) *extractor.Extractor {
	return extractor.New(extractor.NewOCR(extractor.OCRConfig{
		Binary:    cfg.OCRBinary,
		Languages: cfg.OCRLanguages,
		Timeout:   cfg.OCRTimeout,
		Observer:  extractor.LogProgress,
	}))
}

// NewAnalyzer returns the generative analysis adapter, or nil when AI analysis
// is disabled. Calls are never retried; the breaker only stops hammering a
// model that keeps failing.
func NewAnalyzer(cfg config.Config) *ollama.Analyzer {
	if !cfg.AIEnabled {
		return nil
	}
	var executor *resilience.Executor
	if cfg.AIBreakerEnabled {
		executor = resilience.NewExecutor(resilience.DefaultConfig().SingleAttempt())
	}
	client := ollama.New(cfg.OllamaURL, cfg.OllamaGenModel)
	return ollama.NewAnalyzer(ollama.NewGenerator(client), executor, ollama.AnalyzerConfig{
		Model:          client.Model(),
		Timeout:        cfg.AITimeout,
		PromptMaxChars: cfg.AIPromptMaxChars,
	})
}

func storeName(cfg config.Config) string {
	if cfg.PostgresDSN == "" {
		return "memory"
	}
	return "postgres"
}
