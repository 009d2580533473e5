package ports

import (
	"context"
	"io"
	"time"

	"github.com/kmrl/docintel/internal/core/domain"
)

// DocumentRepository persists and reads processed document records.
type DocumentRepository interface {
	Insert(ctx context.Context, record *domain.DocumentRecord) (string, error)
	GetByID(ctx context.Context, id string) (*domain.DocumentRecord, error)
	Delete(ctx context.Context, id string) error
	Update(ctx context.Context, id string, patch domain.DocumentPatch) (*domain.DocumentRecord, error)
	Find(ctx context.Context, filter domain.DocumentFilter, sort domain.Sort, page domain.Page) ([]domain.DocumentRecord, int, error)
	Count(ctx context.Context, filter domain.DocumentFilter) (int, error)
	CountByGroup(ctx context.Context, field domain.GroupField, filter domain.DocumentFilter) ([]domain.GroupCount, error)
	AverageConfidence(ctx context.Context, filter domain.DocumentFilter) (float64, error)
}

// FileStore keeps the original uploads once a pipeline run succeeds.
type FileStore interface {
	// Adopt moves a temp upload into permanent storage and returns its new path.
	Adopt(ctx context.Context, tempPath, originalName string) (string, error)
	// Delete removes a stored or temp file. A missing file is not an error.
	Delete(ctx context.Context, path string) error
	Open(ctx context.Context, path string) (io.ReadCloser, error)
}

// TextExtractor turns an uploaded file into plain text.
type TextExtractor interface {
	Extract(ctx context.Context, path, mimeType, displayName string) (domain.ExtractedText, error)
}

// DocumentAnalyzer produces an analysis through the generative model.
type DocumentAnalyzer interface {
	Analyze(ctx context.Context, text, displayName string) (domain.AnalysisResult, error)
}

// RuleClassifier is the deterministic analysis path. It never fails.
type RuleClassifier interface {
	Classify(text, displayName string) domain.AnalysisResult
}

// TextGenerator is the raw generative model call.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// EventPublisher announces persisted documents to other services.
type EventPublisher interface {
	PublishDocumentProcessed(ctx context.Context, event domain.DocumentProcessed) error
}

// PipelineMetrics records per-file pipeline outcomes.
type PipelineMetrics interface {
	RecordFile(outcome string, processedWith domain.ProcessedWith, duration time.Duration)
	RecordExtraction(method string, duration time.Duration)
	RecordAIFallback(reason string)
}
