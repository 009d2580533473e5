package ports

import (
	"context"
	"io"

	"github.com/kmrl/docintel/internal/core/domain"
)

// DocumentIngestor runs uploaded files through the intake pipeline.
type DocumentIngestor interface {
	Process(ctx context.Context, file domain.UploadedFile) (*domain.DocumentRecord, error)
	ProcessBatch(ctx context.Context, files []domain.UploadedFile) domain.BatchResult
}

// DocumentService is the read/edit model over processed documents.
type DocumentService interface {
	List(ctx context.Context, query domain.ListQuery) (domain.DocumentPage, error)
	Get(ctx context.Context, id string) (*domain.DocumentRecord, error)
	Update(ctx context.Context, id string, patch domain.DocumentPatch) (*domain.DocumentRecord, error)
	Delete(ctx context.Context, id string) error
	Export(ctx context.Context, id string) (domain.TextExport, error)
	OpenOriginal(ctx context.Context, id string) (*domain.DocumentRecord, io.ReadCloser, error)
}

// StatsService serves dashboard aggregates.
type StatsService interface {
	Dashboard(ctx context.Context) (domain.DashboardStats, error)
	DepartmentDistribution(ctx context.Context) ([]domain.DepartmentShare, error)
	ProcessingEfficiency(ctx context.Context) (domain.ProcessingEfficiency, error)
}
