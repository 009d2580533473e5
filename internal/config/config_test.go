package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"POSTGRES_DSN", "NATS_URL", "AI_ENABLED", "AI_TIMEOUT_SECONDS", "OCR_LANGUAGES", "MAX_UPLOAD_MB", "EXCERPT_MAX_CHARS"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	if cfg.PostgresDSN != "" || cfg.NATSURL != "" {
		t.Fatalf("external stores must be opt-in, got %q %q", cfg.PostgresDSN, cfg.NATSURL)
	}
	if !cfg.AIEnabled {
		t.Fatalf("expected AI enabled by default")
	}
	if cfg.AITimeout != 60*time.Second {
		t.Fatalf("expected 60s AI timeout, got %s", cfg.AITimeout)
	}
	if cfg.OCRLanguages != "eng+mal" {
		t.Fatalf("expected eng+mal OCR languages, got %q", cfg.OCRLanguages)
	}
	if cfg.ExcerptMaxChars != 10000 {
		t.Fatalf("expected 10000 excerpt chars, got %d", cfg.ExcerptMaxChars)
	}
	if cfg.MaxUploadBytes() != 25<<20 {
		t.Fatalf("expected 25MB upload limit, got %d", cfg.MaxUploadBytes())
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	t.Setenv("AI_ENABLED", "false")
	t.Setenv("AI_TIMEOUT_SECONDS", "5")
	t.Setenv("OCR_TIMEOUT_SECONDS", "0")
	t.Setenv("PIPELINE_CONCURRENCY", "8")
	t.Setenv("API_RATE_LIMIT_RPS", "not-a-number")

	cfg := Load()
	if cfg.AIEnabled {
		t.Fatalf("expected AI disabled")
	}
	if cfg.AITimeout != 5*time.Second {
		t.Fatalf("expected 5s, got %s", cfg.AITimeout)
	}
	if cfg.OCRTimeout != 0 {
		t.Fatalf("zero seconds must disable the OCR timeout, got %s", cfg.OCRTimeout)
	}
	if cfg.PipelineConcurrency != 8 {
		t.Fatalf("expected concurrency 8, got %d", cfg.PipelineConcurrency)
	}
	if cfg.APIRateLimitRPS != 0 {
		t.Fatalf("invalid ints fall back to the default, got %d", cfg.APIRateLimitRPS)
	}
}

func TestMaxUploadBytesDisabled(t *testing.T) {
	if got := (Config{MaxUploadMB: 0}).MaxUploadBytes(); got != 0 {
		t.Fatalf("expected no limit, got %d", got)
	}
}
