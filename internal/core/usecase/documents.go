package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"

	"github.com/kmrl/docintel/internal/core/domain"
	"github.com/kmrl/docintel/internal/core/ports"
)

const exportRule = "================================================================================"

type DocumentsUseCase struct {
	repo  ports.DocumentRepository
	files ports.FileStore
}

func NewDocumentsUseCase(repo ports.DocumentRepository, files ports.FileStore) *DocumentsUseCase {
	return &DocumentsUseCase{repo: repo, files: files}
}

func (uc *DocumentsUseCase) List(ctx context.Context, query domain.ListQuery) (domain.DocumentPage, error) {
	filter := normalizeFilter(query.Filter)
	page := query.Page.Normalize()

	records, total, err := uc.repo.Find(ctx, filter, query.Sort, page)
	if err != nil {
		return domain.DocumentPage{}, fmt.Errorf("find documents: %w", err)
	}

	items := make([]domain.DocumentListItem, 0, len(records))
	for _, record := range records {
		items = append(items, domain.DocumentListItem{DocumentRecord: record, Priority: record.Priority()})
	}
	return domain.DocumentPage{
		Documents:  items,
		Total:      total,
		Page:       page.Number,
		Limit:      page.Limit,
		TotalPages: (total + page.Limit - 1) / page.Limit,
	}, nil
}

func (uc *DocumentsUseCase) Get(ctx context.Context, id string) (*domain.DocumentRecord, error) {
	if strings.TrimSpace(id) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "get document", errors.New("id is required"))
	}
	return uc.repo.GetByID(ctx, id)
}

func (uc *DocumentsUseCase) Update(ctx context.Context, id string, patch domain.DocumentPatch) (*domain.DocumentRecord, error) {
	if patch.Empty() {
		return nil, domain.WrapError(domain.ErrInvalidInput, "update document", errors.New("nothing to update"))
	}
	if patch.Status != nil && !patch.Status.Valid() {
		return nil, domain.WrapError(domain.ErrInvalidInput, "update document", fmt.Errorf("unknown status %q", *patch.Status))
	}
	if patch.Tags != nil {
		patch.Tags = cleanTags(patch.Tags)
	}
	return uc.repo.Update(ctx, id, patch)
}

// Delete removes the stored original and then the record. A backing file that
// is already gone does not block the delete.
func (uc *DocumentsUseCase) Delete(ctx context.Context, id string) error {
	record, err := uc.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := uc.files.Delete(ctx, record.StoragePath); err != nil {
		slog.WarnContext(ctx, "stored_file_delete_failed", "document_id", id, "path", record.StoragePath, "error", err)
	}
	if err := uc.repo.Delete(ctx, id); err != nil {
		return err
	}
	slog.InfoContext(ctx, "document_deleted", "document_id", id)
	return nil
}

func (uc *DocumentsUseCase) Export(ctx context.Context, id string) (domain.TextExport, error) {
	record, err := uc.Get(ctx, id)
	if err != nil {
		return domain.TextExport{}, err
	}
	return domain.TextExport{
		Filename: exportFilename(record),
		Content:  renderExport(record),
	}, nil
}

func (uc *DocumentsUseCase) OpenOriginal(ctx context.Context, id string) (*domain.DocumentRecord, io.ReadCloser, error) {
	record, err := uc.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	body, err := uc.files.Open(ctx, record.StoragePath)
	if err != nil {
		return nil, nil, fmt.Errorf("open stored file: %w", err)
	}
	return record, body, nil
}

func normalizeFilter(filter domain.DocumentFilter) domain.DocumentFilter {
	out := filter
	out.Department = matchOrKeep(strings.TrimSpace(filter.Department), domain.Departments, "all")
	out.Type = matchOrKeep(strings.ReplaceAll(strings.TrimSpace(filter.Type), "-", " "), domain.DocumentTypes, "all", "all types")
	out.Search = strings.TrimSpace(filter.Search)
	return out
}

// matchOrKeep maps raw onto its canonical spelling in set, ignoring case.
// Wildcards become the empty filter; unknown values are kept so they match
// nothing.
func matchOrKeep(raw string, set []string, wildcards ...string) string {
	for _, wildcard := range wildcards {
		if strings.EqualFold(raw, wildcard) {
			return ""
		}
	}
	for _, candidate := range set {
		if strings.EqualFold(raw, candidate) {
			return candidate
		}
	}
	return raw
}

func cleanTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" || slices.Contains(out, tag) {
			continue
		}
		out = append(out, tag)
	}
	return out
}

func exportFilename(record *domain.DocumentRecord) string {
	title := record.Title
	if title == "" {
		title = "document"
	}
	title = strings.NewReplacer(" ", "_", "/", "_", "\\", "_", "\"", "_").Replace(title)
	return fmt.Sprintf("%s_%s.txt", title, domain.TruncateRunes(record.ID, 8))
}

func renderExport(record *domain.DocumentRecord) string {
	var b strings.Builder
	line := func(format string, args ...any) {
		fmt.Fprintf(&b, format, args...)
		b.WriteByte('\n')
	}

	line(exportRule)
	line("DOCUMENT: %s", record.Title)
	line(exportRule)
	line("")
	line("METADATA:")
	line("  Department: %s", record.Department)
	line("  Type: %s", record.Type)
	line("  Date: %s", record.Date)
	line("  Status: %s", record.Status)
	line("  Source: %s", record.Source)
	line("  Language: %s", record.Language)
	line("  ID: %s", record.ID)
	line("")
	if len(record.Tags) > 0 {
		line("Tags: %s", strings.Join(record.Tags, ", "))
		line("")
	}
	if record.Summary != "" {
		line("SUMMARY:")
		line("%s", record.Summary)
		line("")
	}
	if record.ExtractedTextExcerpt != "" {
		line("FULL CONTENT:")
		line("%s", strings.Repeat("-", len(exportRule)))
		line("%s", record.ExtractedTextExcerpt)
		line("")
	}
	line(exportRule)
	line("End of Document")
	b.WriteString(exportRule)
	return b.String()
}
