package bootstrap

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/kmrl/docintel/internal/config"
	"github.com/kmrl/docintel/internal/infrastructure/repository/memory"
)

func TestNewWiresInMemoryApp(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Config{
		StoragePath:    filepath.Join(dir, "storage"),
		UploadTmpPath:  filepath.Join(dir, "uploads"),
		AIEnabled:      false,
		MetricsEnabled: true,
	}

	app, err := New(context.Background(), cfg, Options{Service: "test"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer app.Close()

	if _, ok := app.Repo.(*memory.DocumentRepository); !ok {
		t.Fatalf("expected in-memory repository without a DSN, got %T", app.Repo)
	}
	if app.Publisher != nil {
		t.Fatalf("events must be disabled without NATS_URL")
	}
	if app.Metrics == nil || app.Ingest == nil || app.Documents == nil || app.Stats == nil {
		t.Fatalf("app is not fully wired: %#v", app)
	}
	if app.Spool.Dir() != cfg.UploadTmpPath {
		t.Fatalf("unexpected spool dir: %s", app.Spool.Dir())
	}
}

func TestNewAnalyzerHonoursAIEnabled(t *testing.T) {
	if NewAnalyzer(config.Config{AIEnabled: false}) != nil {
		t.Fatalf("expected no analyzer when AI is disabled")
	}
	if NewAnalyzer(config.Config{AIEnabled: true, AIBreakerEnabled: true, OllamaURL: "http://localhost:11434", OllamaGenModel: "llama3.1:8b"}) == nil {
		t.Fatalf("expected analyzer when AI is enabled")
	}
}
