package usecase

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kmrl/docintel/internal/core/domain"
	"github.com/kmrl/docintel/internal/core/ports"
	"github.com/kmrl/docintel/internal/infrastructure/classifier/rulebased"
	"github.com/kmrl/docintel/internal/infrastructure/extractor"
	"github.com/kmrl/docintel/internal/infrastructure/llm/ollama"
	"github.com/kmrl/docintel/internal/infrastructure/repository/memory"
	"github.com/kmrl/docintel/internal/infrastructure/storage/localfs"
)

type extractorFake struct {
	texts  map[string]string
	errs   map[string]error
	panics map[string]bool
}

func (f *extractorFake) Extract(_ context.Context, path, mimeType, _ string) (domain.ExtractedText, error) {
	if !domain.IsSupportedMimeType(mimeType) {
		return domain.ExtractedText{}, domain.WrapError(domain.ErrUnsupportedType, "extract", errors.New(mimeType))
	}
	if f.panics[path] {
		panic("extractor exploded")
	}
	if err := f.errs[path]; err != nil {
		return domain.ExtractedText{}, err
	}
	text := f.texts[path]
	return domain.ExtractedText{Text: text, Method: "fake", Length: len(text)}, nil
}

type analyzerFake struct {
	result domain.AnalysisResult
	err    error
	calls  int
	mu     sync.Mutex
}

func (f *analyzerFake) Analyze(context.Context, string, string) (domain.AnalysisResult, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return f.result, f.err
}

type fileStoreFake struct {
	mu        sync.Mutex
	deletes   map[string]int
	adopted   []string
	adoptErr  error
	deleteErr error
}

func newFileStoreFake() *fileStoreFake {
	return &fileStoreFake{deletes: map[string]int{}}
}

func (f *fileStoreFake) Adopt(_ context.Context, tempPath, _ string) (string, error) {
	if f.adoptErr != nil {
		return "", f.adoptErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	stored := "/stored/" + filepath.Base(tempPath)
	f.adopted = append(f.adopted, stored)
	return stored, nil
}

func (f *fileStoreFake) Delete(_ context.Context, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes[path]++
	return f.deleteErr
}

func (f *fileStoreFake) Open(context.Context, string) (io.ReadCloser, error) {
	return nil, errors.New("not implemented")
}

type failingInsertRepo struct {
	*memory.DocumentRepository
}

func (failingInsertRepo) Insert(context.Context, *domain.DocumentRecord) (string, error) {
	return "", errors.New("connection refused")
}

type panickingInsertRepo struct {
	*memory.DocumentRepository
}

func (panickingInsertRepo) Insert(context.Context, *domain.DocumentRecord) (string, error) {
	panic("driver bug")
}

type panickingEvents struct{}

func (panickingEvents) PublishDocumentProcessed(context.Context, domain.DocumentProcessed) error {
	panic("publisher bug")
}

type eventsFake struct {
	mu     sync.Mutex
	events []domain.DocumentProcessed
	err    error
}

func (f *eventsFake) PublishDocumentProcessed(_ context.Context, event domain.DocumentProcessed) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return f.err
}

type metricsFake struct {
	mu        sync.Mutex
	outcomes  []string
	fallbacks []string
}

func (f *metricsFake) RecordFile(outcome string, _ domain.ProcessedWith, _ time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.outcomes = append(f.outcomes, outcome)
}

func (f *metricsFake) RecordExtraction(string, time.Duration) {}

func (f *metricsFake) RecordAIFallback(reason string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fallbacks = append(f.fallbacks, reason)
}

var _ ports.FileStore = (*fileStoreFake)(nil)

func textFile(path string) domain.UploadedFile {
	return domain.UploadedFile{TempPath: path, OriginalName: filepath.Base(path), MimeType: domain.MimePlainText, SizeBytes: 10}
}

func TestProcessBatchIsolatesFailures(t *testing.T) {
	extract := &extractorFake{
		texts: map[string]string{
			"/tmp/a.txt": "Invoice for payment of vendor bill",
			"/tmp/c.txt": "Training schedule for station staff",
			"/tmp/e.txt": "Board meeting minutes",
		},
		errs: map[string]error{
			"/tmp/b.txt": domain.WrapError(domain.ErrExtractionFailed, "extract", errors.New("corrupt")),
		},
		panics: map[string]bool{"/tmp/d.txt": true},
	}
	repo := memory.NewDocumentRepository()
	files := newFileStoreFake()
	metrics := &metricsFake{}
	uc := NewIngestUseCase(extract, rulebased.New(), repo, files, IngestOptions{Metrics: metrics, Concurrency: 2})

	batch := uc.ProcessBatch(context.Background(), []domain.UploadedFile{
		textFile("/tmp/a.txt"),
		textFile("/tmp/b.txt"),
		textFile("/tmp/c.txt"),
		textFile("/tmp/d.txt"),
		textFile("/tmp/e.txt"),
	})

	if batch.Successful != 3 || batch.Failed != 2 {
		t.Fatalf("expected 3/2, got %d/%d", batch.Successful, batch.Failed)
	}
	if len(batch.Results) != 5 {
		t.Fatalf("expected one result per file, got %d", len(batch.Results))
	}
	if batch.Results[1].Success || batch.Results[1].ErrorCode != "extraction_failed" || batch.Results[1].Filename != "b.txt" {
		t.Fatalf("unexpected result for b.txt: %#v", batch.Results[1])
	}
	if batch.Results[3].Success || batch.Results[3].ErrorCode != "unexpected_error" {
		t.Fatalf("panic must become a per-file failure: %#v", batch.Results[3])
	}
	total, err := repo.Count(context.Background(), domain.DocumentFilter{})
	if err != nil || total != 3 {
		t.Fatalf("expected 3 persisted records, got %d (%v)", total, err)
	}
	if files.deletes["/tmp/b.txt"] != 1 || files.deletes["/tmp/d.txt"] != 1 {
		t.Fatalf("failed temp files must be deleted exactly once: %#v", files.deletes)
	}
	if files.deletes["/tmp/a.txt"] != 0 {
		t.Fatalf("adopted temp file must not be deleted: %#v", files.deletes)
	}
	if len(metrics.outcomes) != 5 {
		t.Fatalf("expected a metric per file, got %#v", metrics.outcomes)
	}
}

func TestProcessBatchUnsupportedMimeInTheMiddle(t *testing.T) {
	extract := &extractorFake{texts: map[string]string{
		"/tmp/1.txt": "Policy on station cleanliness",
		"/tmp/3.txt": "Maintenance report for rolling stock",
	}}
	files := newFileStoreFake()
	uc := NewIngestUseCase(extract, rulebased.New(), memory.NewDocumentRepository(), files, IngestOptions{})

	second := textFile("/tmp/2.pptx")
	second.MimeType = "application/vnd.ms-powerpoint"
	batch := uc.ProcessBatch(context.Background(), []domain.UploadedFile{textFile("/tmp/1.txt"), second, textFile("/tmp/3.txt")})

	if batch.Successful != 2 || batch.Failed != 1 {
		t.Fatalf("expected {2,1}, got {%d,%d}", batch.Successful, batch.Failed)
	}
	failed := batch.Results[1]
	if failed.Success || failed.ErrorCode != "unsupported_type" || failed.Filename != "2.pptx" {
		t.Fatalf("unexpected failure result: %#v", failed)
	}
	if files.deletes["/tmp/2.pptx"] != 1 {
		t.Fatalf("rejected upload must be deleted once: %#v", files.deletes)
	}
}

func TestProcessEmptyExtractionIsDistinctFailure(t *testing.T) {
	extract := &extractorFake{texts: map[string]string{"/tmp/blank.txt": " \n\t "}}
	analyzer := &analyzerFake{}
	files := newFileStoreFake()
	uc := NewIngestUseCase(extract, rulebased.New(), memory.NewDocumentRepository(), files, IngestOptions{Analyzer: analyzer})

	_, err := uc.Process(context.Background(), textFile("/tmp/blank.txt"))
	if !domain.IsKind(err, domain.ErrEmptyExtraction) {
		t.Fatalf("expected empty extraction, got %v", err)
	}
	if domain.IsKind(err, domain.ErrExtractionFailed) {
		t.Fatalf("empty extraction must not look like a parser failure: %v", err)
	}
	if analyzer.calls != 0 {
		t.Fatalf("analysis must not run after a failed extraction")
	}
	if files.deletes["/tmp/blank.txt"] != 1 {
		t.Fatalf("expected single delete, got %#v", files.deletes)
	}
}

func TestProcessUsesAIResultWhenAvailable(t *testing.T) {
	extract := &extractorFake{texts: map[string]string{"/tmp/policy.txt": "anything"}}
	analyzer := &analyzerFake{result: domain.AnalysisResult{
		Summary:       "New leave policy.",
		Department:    "Human Resources",
		DocumentType:  "Policy",
		UrgencyLevel:  domain.UrgencyMedium,
		Language:      domain.LanguageEnglish,
		Confidence:    0.88,
		ProcessedWith: domain.ProcessedWithAI,
		Model:         "llama3.1:8b",
	}}
	events := &eventsFake{err: errors.New("nats down")}
	uc := NewIngestUseCase(extract, rulebased.New(), memory.NewDocumentRepository(), newFileStoreFake(), IngestOptions{Analyzer: analyzer, Events: events})

	record, err := uc.Process(context.Background(), textFile("/tmp/policy.txt"))
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if record.Status != domain.StatusReview || record.Department != "Human Resources" {
		t.Fatalf("unexpected record: %s / %s", record.Status, record.Department)
	}
	if record.Source != "AI Analysis via llama3.1:8b" || record.StoragePath != "/stored/policy.txt" {
		t.Fatalf("unexpected provenance: %q %q", record.Source, record.StoragePath)
	}
	if len(events.events) != 1 || events.events[0].DocumentID != record.ID {
		t.Fatalf("expected one event for the record, got %#v", events.events)
	}
}

func TestProcessPersistenceFailureCleansUpStoredFile(t *testing.T) {
	extract := &extractorFake{texts: map[string]string{"/tmp/bill.txt": "Invoice amount ₹500"}}
	files := newFileStoreFake()
	uc := NewIngestUseCase(extract, rulebased.New(), failingInsertRepo{memory.NewDocumentRepository()}, files, IngestOptions{})

	_, err := uc.Process(context.Background(), textFile("/tmp/bill.txt"))
	if !domain.IsKind(err, domain.ErrPersistence) {
		t.Fatalf("expected persistence failure, got %v", err)
	}
	if files.deletes["/stored/bill.txt"] != 1 {
		t.Fatalf("adopted file must be removed once: %#v", files.deletes)
	}
	if files.deletes["/tmp/bill.txt"] != 0 {
		t.Fatalf("temp path was handed off and must not be deleted again: %#v", files.deletes)
	}
}

func TestProcessInsertPanicRemovesStoredFile(t *testing.T) {
	extract := &extractorFake{texts: map[string]string{"/tmp/bill.txt": "Invoice amount ₹500"}}
	files := newFileStoreFake()
	uc := NewIngestUseCase(extract, rulebased.New(), panickingInsertRepo{memory.NewDocumentRepository()}, files, IngestOptions{})

	_, err := uc.Process(context.Background(), textFile("/tmp/bill.txt"))
	if !domain.IsKind(err, domain.ErrUnexpected) {
		t.Fatalf("expected unexpected error, got %v", err)
	}
	if files.deletes["/stored/bill.txt"] != 1 || files.deletes["/tmp/bill.txt"] != 0 {
		t.Fatalf("stored copy must be removed once and temp left alone: %#v", files.deletes)
	}
}

func TestProcessPublishPanicKeepsPersistedRecord(t *testing.T) {
	extract := &extractorFake{texts: map[string]string{"/tmp/notice.txt": "Safety notice for platform staff"}}
	files := newFileStoreFake()
	repo := memory.NewDocumentRepository()
	metrics := &metricsFake{}
	uc := NewIngestUseCase(extract, rulebased.New(), repo, files, IngestOptions{Events: panickingEvents{}, Metrics: metrics})

	record, err := uc.Process(context.Background(), textFile("/tmp/notice.txt"))
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if _, err := repo.GetByID(context.Background(), record.ID); err != nil {
		t.Fatalf("record must stay persisted: %v", err)
	}
	if len(files.deletes) != 0 {
		t.Fatalf("no file may be deleted after a successful insert: %#v", files.deletes)
	}
	if !slices.Equal(metrics.outcomes, []string{"success"}) {
		t.Fatalf("unexpected outcomes: %#v", metrics.outcomes)
	}
}

func TestProcessAdoptFailureDeletesTempOnce(t *testing.T) {
	extract := &extractorFake{texts: map[string]string{"/tmp/x.txt": "some text"}}
	files := newFileStoreFake()
	files.adoptErr = errors.New("disk full")
	files.deleteErr = errors.New("already gone")
	uc := NewIngestUseCase(extract, rulebased.New(), memory.NewDocumentRepository(), files, IngestOptions{})

	_, err := uc.Process(context.Background(), textFile("/tmp/x.txt"))
	if !domain.IsKind(err, domain.ErrPersistence) {
		t.Fatalf("expected persistence failure, got %v", err)
	}
	if files.deletes["/tmp/x.txt"] != 1 {
		t.Fatalf("expected single delete, got %#v", files.deletes)
	}
}

func TestProcessUrgentSafetyNoticeWithoutAI(t *testing.T) {
	dir := t.TempDir()
	tempPath := filepath.Join(dir, "upload-1.txt")
	if err := os.WriteFile(tempPath, []byte("URGENT: immediate safety action required at Aluva station"), 0o644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	store, err := localfs.New(filepath.Join(dir, "stored"))
	if err != nil {
		t.Fatalf("localfs.New() error = %v", err)
	}
	repo := memory.NewDocumentRepository()
	uc := NewIngestUseCase(extractor.New(nil), rulebased.New(), repo, store, IngestOptions{})

	record, err := uc.Process(context.Background(), domain.UploadedFile{
		TempPath:     tempPath,
		OriginalName: "notice.txt",
		MimeType:     domain.MimePlainText,
		SizeBytes:    58,
	})
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if record.Department != "Safety & Operations" {
		t.Fatalf("unexpected department: %q", record.Department)
	}
	if record.Analysis.UrgencyLevel != domain.UrgencyHigh || record.Status != domain.StatusUrgent {
		t.Fatalf("expected high urgency and urgent status, got %s / %s", record.Analysis.UrgencyLevel, record.Status)
	}
	if !slices.Contains(record.Analysis.Entities.Locations, "aluva") {
		t.Fatalf("expected aluva location, got %#v", record.Analysis.Entities.Locations)
	}
	if _, err := os.Stat(tempPath); !os.IsNotExist(err) {
		t.Fatalf("temp file should have moved, stat err = %v", err)
	}
	if _, err := os.Stat(record.StoragePath); err != nil {
		t.Fatalf("stored file missing: %v", err)
	}
	if _, err := repo.GetByID(context.Background(), record.ID); err != nil {
		t.Fatalf("record not persisted: %v", err)
	}
}

type generatorFake struct {
	response string
}

func (f generatorFake) Generate(context.Context, string) (string, error) {
	return f.response, nil
}

func TestProcessFallsBackWhenModelReturnsProse(t *testing.T) {
	extract := &extractorFake{texts: map[string]string{"/tmp/memo.txt": "Engineering drawing revision for the viaduct"}}
	analyzer := ollama.NewAnalyzer(generatorFake{response: "Sure! Here is the analysis you asked for."}, nil, ollama.AnalyzerConfig{Model: "llama3.1:8b"})
	metrics := &metricsFake{}
	uc := NewIngestUseCase(extract, rulebased.New(), memory.NewDocumentRepository(), newFileStoreFake(), IngestOptions{Analyzer: analyzer, Metrics: metrics})

	record, err := uc.Process(context.Background(), textFile("/tmp/memo.txt"))
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if record.Analysis.ProcessedWith != domain.ProcessedWithRuleBased {
		t.Fatalf("expected rule-based fallback, got %q", record.Analysis.ProcessedWith)
	}
	if record.Source != "Rule-based analysis" {
		t.Fatalf("unexpected source: %q", record.Source)
	}
	if len(metrics.fallbacks) != 1 {
		t.Fatalf("expected one fallback metric, got %#v", metrics.fallbacks)
	}
}

func TestProcessBatchIgnoresCallerCancellation(t *testing.T) {
	extract := &extractorFake{texts: map[string]string{"/tmp/a.txt": "Invoice"}}
	uc := NewIngestUseCase(extract, rulebased.New(), memory.NewDocumentRepository(), newFileStoreFake(), IngestOptions{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	batch := uc.ProcessBatch(ctx, []domain.UploadedFile{textFile("/tmp/a.txt")})
	if batch.Successful != 1 {
		t.Fatalf("expected the started file to complete, got %#v", batch.Results)
	}
}

func TestFallbackReason(t *testing.T) {
	if got := fallbackReason(context.DeadlineExceeded); got != "timeout" {
		t.Fatalf("unexpected reason: %s", got)
	}
	if got := fallbackReason(domain.WrapError(domain.ErrTemporary, "generate", errors.New("503"))); got != "unavailable" {
		t.Fatalf("unexpected reason: %s", got)
	}
	if got := fallbackReason(errors.New("bad json")); !strings.Contains(got, "invalid") {
		t.Fatalf("unexpected reason: %s", got)
	}
}
