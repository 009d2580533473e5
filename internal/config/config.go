package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	APIPort  string
	LogLevel string

	// PostgresDSN selects the Postgres document store; empty keeps records in memory.
	PostgresDSN string

	// NATSURL enables processed-document events; empty disables them.
	NATSURL     string
	NATSSubject string

	AIEnabled        bool
	OllamaURL        string
	OllamaGenModel   string
	AITimeout        time.Duration
	AIPromptMaxChars int
	AIBreakerEnabled bool

	ExcerptMaxChars int

	StoragePath   string
	UploadTmpPath string
	InboxPath     string

	OCRBinary    string
	OCRLanguages string
	OCRTimeout   time.Duration

	MaxUploadMB         int
	MaxFilesPerUpload   int
	PipelineConcurrency int

	APIRateLimitRPS       int
	APIRateLimitBurst     int
	APIMaxInFlight        int
	APIBackpressureWaitMS int

	MetricsEnabled    bool
	WorkerMetricsPort string
}

func Load() Config {
	return Config{
		APIPort:  mustEnv("API_PORT", "8080"),
		LogLevel: mustEnv("LOG_LEVEL", "info"),

		PostgresDSN: mustEnv("POSTGRES_DSN", ""),

		NATSURL:     mustEnv("NATS_URL", ""),
		NATSSubject: mustEnv("NATS_SUBJECT", "documents.processed"),

		AIEnabled:        mustEnvBool("AI_ENABLED", true),
		OllamaURL:        mustEnv("OLLAMA_URL", "http://localhost:11434"),
		OllamaGenModel:   mustEnv("OLLAMA_GEN_MODEL", "llama3.1:8b"),
		AITimeout:        mustEnvDuration("AI_TIMEOUT_SECONDS", 60*time.Second),
		AIPromptMaxChars: mustEnvInt("AI_PROMPT_MAX_CHARS", 8000),
		AIBreakerEnabled: mustEnvBool("AI_BREAKER_ENABLED", true),

		ExcerptMaxChars: mustEnvInt("EXCERPT_MAX_CHARS", 10000),

		StoragePath:   mustEnv("STORAGE_PATH", "./data/storage"),
		UploadTmpPath: mustEnv("UPLOAD_TMP_PATH", "./data/uploads"),
		InboxPath:     mustEnv("INBOX_PATH", "./data/inbox"),

		OCRBinary:    mustEnv("OCR_BINARY", "tesseract"),
		OCRLanguages: mustEnv("OCR_LANGUAGES", "eng+mal"),
		OCRTimeout:   mustEnvDuration("OCR_TIMEOUT_SECONDS", 120*time.Second),

		MaxUploadMB:         mustEnvInt("MAX_UPLOAD_MB", 25),
		MaxFilesPerUpload:   mustEnvInt("MAX_FILES_PER_UPLOAD", 10),
		PipelineConcurrency: mustEnvInt("PIPELINE_CONCURRENCY", 4),

		APIRateLimitRPS:       mustEnvInt("API_RATE_LIMIT_RPS", 0),
		APIRateLimitBurst:     mustEnvInt("API_RATE_LIMIT_BURST", 20),
		APIMaxInFlight:        mustEnvInt("API_MAX_IN_FLIGHT", 64),
		APIBackpressureWaitMS: mustEnvInt("API_BACKPRESSURE_WAIT_MS", 250),

		MetricsEnabled:    mustEnvBool("METRICS_ENABLED", true),
		WorkerMetricsPort: mustEnv("WORKER_METRICS_PORT", "9090"),
	}
}

// MaxUploadBytes is the per-file size limit.
func (c Config) MaxUploadBytes() int64 {
	if c.MaxUploadMB <= 0 {
		return 0
	}
	return int64(c.MaxUploadMB) << 20
}

func mustEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func mustEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func mustEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}

// mustEnvDuration reads a whole number of seconds.
func mustEnvDuration(key string, fallback time.Duration) time.Duration {
	seconds := mustEnvInt(key, -1)
	if seconds < 0 {
		return fallback
	}
	return time.Duration(seconds) * time.Second
}
