package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/kmrl/docintel/internal/core/domain"
	"github.com/kmrl/docintel/internal/core/ports"
)

const (
	outcomeSuccess = "success"
	outcomeFailure = "failure"
)

type IngestOptions struct {
	// Analyzer is the generative path. Nil means every file goes straight to
	// the rule-based classifier.
	Analyzer        ports.DocumentAnalyzer
	Events          ports.EventPublisher
	Metrics         ports.PipelineMetrics
	ExcerptMaxChars int
	// Concurrency caps parallel pipelines within one batch; zero is unbounded.
	Concurrency int
}

// IngestUseCase turns uploaded files into persisted, analysed document records.
type IngestUseCase struct {
	extractor       ports.TextExtractor
	analyzer        ports.DocumentAnalyzer
	rules           ports.RuleClassifier
	repo            ports.DocumentRepository
	files           ports.FileStore
	events          ports.EventPublisher
	metrics         ports.PipelineMetrics
	excerptMaxChars int
	concurrency     int
	now             func() time.Time
	newID           func() string
}

func NewIngestUseCase(
	extractor ports.TextExtractor,
	rules ports.RuleClassifier,
	repo ports.DocumentRepository,
	files ports.FileStore,
	opts IngestOptions,
) *IngestUseCase {
	return &IngestUseCase{
		extractor:       extractor,
		analyzer:        opts.Analyzer,
		rules:           rules,
		repo:            repo,
		files:           files,
		events:          opts.Events,
		metrics:         opts.Metrics,
		excerptMaxChars: opts.ExcerptMaxChars,
		concurrency:     opts.Concurrency,
		now:             func() time.Time { return time.Now().UTC() },
		newID:           uuid.NewString,
	}
}

// Process runs one file through validate, extract, analyze, derive status,
// persist. The temp file is either handed to the file store or deleted.
func (uc *IngestUseCase) Process(ctx context.Context, file domain.UploadedFile) (record *domain.DocumentRecord, err error) {
	start := time.Now()
	temp := &tempUpload{path: file.TempPath, files: uc.files}
	processedWith := domain.ProcessedWith("")

	defer func() {
		if recovered := recover(); recovered != nil {
			record = nil
			err = domain.WrapError(domain.ErrUnexpected, "process file", fmt.Errorf("panic: %v", recovered))
		}
		if err != nil {
			temp.discard(ctx)
			slog.WarnContext(ctx, "file_processing_failed",
				"filename", file.OriginalName,
				"mime_type", file.MimeType,
				"error_code", domain.ErrorCode(err),
				"error", err,
			)
			uc.recordFile(outcomeFailure, processedWith, time.Since(start))
			return
		}
		uc.recordFile(outcomeSuccess, processedWith, time.Since(start))
	}()

	slog.InfoContext(ctx, "file_processing_started",
		"filename", file.OriginalName,
		"mime_type", file.MimeType,
		"size_bytes", file.SizeBytes,
	)

	if !domain.IsSupportedMimeType(file.MimeType) {
		return nil, domain.WrapError(domain.ErrUnsupportedType, "validate upload", fmt.Errorf("mime type %q", file.MimeType))
	}

	extracted, err := uc.extract(ctx, file)
	if err != nil {
		return nil, err
	}

	analysis := uc.analyze(ctx, extracted.Text, file.OriginalName)
	processedWith = analysis.ProcessedWith
	status := domain.DeriveStatus(analysis)

	id := uc.newID()
	now := uc.now()

	storagePath, err := uc.files.Adopt(ctx, file.TempPath, file.OriginalName)
	if err != nil {
		return nil, domain.WrapError(domain.ErrPersistence, "store original file", err)
	}
	temp.handOff(storagePath)

	built := domain.BuildRecord(domain.RecordInput{
		ID:              id,
		File:            file,
		StoragePath:     storagePath,
		Text:            extracted.Text,
		Analysis:        analysis,
		Status:          status,
		ExcerptMaxChars: uc.excerptMaxChars,
		Now:             now,
	})

	insertedID, err := uc.repo.Insert(ctx, &built)
	if err != nil {
		return nil, domain.WrapError(domain.ErrPersistence, "insert document", err)
	}
	temp.commit()
	if insertedID != "" {
		built.ID = insertedID
	}

	slog.InfoContext(ctx, "document_persisted",
		"document_id", built.ID,
		"filename", file.OriginalName,
		"department", built.Department,
		"type", built.Type,
		"status", built.Status,
		"processed_with", built.Analysis.ProcessedWith,
	)

	uc.publish(ctx, &built)
	return &built, nil
}

func (uc *IngestUseCase) extract(ctx context.Context, file domain.UploadedFile) (domain.ExtractedText, error) {
	extracted, err := uc.extractor.Extract(ctx, file.TempPath, file.MimeType, file.OriginalName)
	if err != nil {
		if domain.IsKind(err, domain.ErrUnsupportedType) || domain.IsKind(err, domain.ErrExtractionFailed) {
			return domain.ExtractedText{}, err
		}
		return domain.ExtractedText{}, domain.WrapError(domain.ErrExtractionFailed, "extract text", err)
	}
	if strings.TrimSpace(extracted.Text) == "" {
		return domain.ExtractedText{}, domain.WrapError(domain.ErrEmptyExtraction, "extract text", errors.New(file.OriginalName))
	}
	if uc.metrics != nil {
		uc.metrics.RecordExtraction(extracted.Method, extracted.Duration)
	}
	slog.InfoContext(ctx, "text_extraction_complete",
		"filename", file.OriginalName,
		"method", extracted.Method,
		"length", extracted.Length,
		"duration_ms", extracted.Duration.Milliseconds(),
	)
	return extracted, nil
}

// analyze never fails: any generative model failure falls back to the rules.
func (uc *IngestUseCase) analyze(ctx context.Context, text, displayName string) domain.AnalysisResult {
	if uc.analyzer != nil {
		analysis, err := uc.analyzer.Analyze(ctx, text, displayName)
		if err == nil {
			return analysis
		}
		reason := fallbackReason(err)
		slog.WarnContext(ctx, "ai_analysis_fallback",
			"filename", displayName,
			"reason", reason,
			"error", err,
		)
		if uc.metrics != nil {
			uc.metrics.RecordAIFallback(reason)
		}
	}

	analysis := uc.rules.Classify(text, displayName)
	analysis.ProcessedWith = domain.ProcessedWithRuleBased
	if analysis.ProcessedAt.IsZero() {
		analysis.ProcessedAt = uc.now()
	}
	return analysis
}

// publish never fails the run: the record is already persisted.
func (uc *IngestUseCase) publish(ctx context.Context, record *domain.DocumentRecord) {
	if uc.events == nil {
		return
	}
	defer func() {
		if recovered := recover(); recovered != nil {
			slog.WarnContext(ctx, "document_event_publish_failed", "document_id", record.ID, "error", fmt.Sprintf("panic: %v", recovered))
		}
	}()
	event := domain.DocumentProcessed{
		DocumentID:    record.ID,
		Filename:      record.OriginalFilename,
		Department:    record.Department,
		Type:          record.Type,
		Status:        record.Status,
		ProcessedWith: record.Analysis.ProcessedWith,
		OccurredAt:    uc.now(),
	}
	if err := uc.events.PublishDocumentProcessed(ctx, event); err != nil {
		slog.WarnContext(ctx, "document_event_publish_failed", "document_id", record.ID, "error", err)
	}
}

func (uc *IngestUseCase) recordFile(outcome string, processedWith domain.ProcessedWith, duration time.Duration) {
	if uc.metrics != nil {
		uc.metrics.RecordFile(outcome, processedWith, duration)
	}
}

// ProcessBatch runs every file's pipeline concurrently and collects one result
// per file in input order. Caller cancellation does not stop started files.
func (uc *IngestUseCase) ProcessBatch(ctx context.Context, files []domain.UploadedFile) domain.BatchResult {
	start := time.Now()
	ctx = context.WithoutCancel(ctx)
	results := make([]domain.FileResult, len(files))

	var group errgroup.Group
	if uc.concurrency > 0 {
		group.SetLimit(uc.concurrency)
	}
	for i, file := range files {
		group.Go(func() error {
			results[i] = uc.processOne(ctx, file)
			return nil
		})
	}
	_ = group.Wait()

	batch := domain.BatchResult{Results: results}
	for _, result := range results {
		if result.Success {
			batch.Successful++
		} else {
			batch.Failed++
		}
	}

	slog.InfoContext(ctx, "batch_processing_complete",
		"files", len(files),
		"successful", batch.Successful,
		"failed", batch.Failed,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return batch
}

func (uc *IngestUseCase) processOne(ctx context.Context, file domain.UploadedFile) (result domain.FileResult) {
	result.Filename = file.OriginalName
	defer func() {
		if recovered := recover(); recovered != nil {
			err := domain.WrapError(domain.ErrUnexpected, "process file", fmt.Errorf("panic: %v", recovered))
			result = domain.FileResult{
				Filename:  file.OriginalName,
				Error:     err.Error(),
				ErrorCode: domain.ErrorCode(err),
			}
		}
	}()

	record, err := uc.Process(ctx, file)
	if err != nil {
		result.Error = err.Error()
		result.ErrorCode = domain.ErrorCode(err)
		return result
	}
	result.Success = true
	result.Document = record
	return result
}

func fallbackReason(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case domain.IsKind(err, domain.ErrTemporary):
		return "unavailable"
	default:
		return "invalid_response"
	}
}

// tempUpload tracks which copy of an upload a run still owns. Before the
// handoff a failure deletes the temp file; after it, a failure deletes the
// stored copy unless the record was committed. At most one delete happens.
type tempUpload struct {
	path      string
	files     ports.FileStore
	stored    string
	handedOff bool
	done      bool
}

func (t *tempUpload) discard(ctx context.Context) {
	if t.done {
		return
	}
	t.done = true
	target, event := t.path, "temp_file_cleanup_failed"
	if t.handedOff {
		target, event = t.stored, "stored_file_cleanup_failed"
	}
	if target == "" {
		return
	}
	if err := t.files.Delete(ctx, target); err != nil {
		slog.WarnContext(ctx, event, "path", target, "error", err)
	}
}

func (t *tempUpload) handOff(storedPath string) {
	t.handedOff = true
	t.stored = storedPath
}

// commit marks the stored copy as owned by a persisted record.
func (t *tempUpload) commit() {
	t.done = true
}
