package ollama

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/kmrl/docintel/internal/core/domain"
	"github.com/kmrl/docintel/internal/infrastructure/resilience"
)

type fakeGenerator struct {
	response string
	err      error
	delay    time.Duration
	calls    int
	prompt   string
}

func (f *fakeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	f.calls++
	f.prompt = prompt
	if f.delay > 0 {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(f.delay):
		}
	}
	return f.response, f.err
}

func TestAnalyzeCoercesModelOutput(t *testing.T) {
	gen := &fakeGenerator{response: `{
		"summary": "  Safety circular for platform staff.  ",
		"keyTopics": ["a","b","c","d","e","f","g","h","i","j"],
		"department": "safety & operations",
		"documentType": "Memo",
		"urgencyLevel": "CRITICAL",
		"language": "Tamil",
		"entities": {"dates": ["12/03/2024", ""], "amounts": "₹500", "locations": [42]},
		"actionItems": ["1","2","3","4","5","6"],
		"tags": ["Safety", "safety", "metro"],
		"sentiment": "furious",
		"businessImpact": "High",
		"confidence": 4.2
	}`}
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	a := NewAnalyzer(gen, nil, AnalyzerConfig{Model: "llama3.1:8b"})
	a.now = func() time.Time { return now }

	got, err := a.Analyze(context.Background(), "text", "circular.pdf")
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if got.Summary != "Safety circular for platform staff." {
		t.Fatalf("unexpected summary: %q", got.Summary)
	}
	if got.Department != "Safety & Operations" || got.DocumentType != domain.DocumentTypeGeneral {
		t.Fatalf("unexpected classification: %s / %s", got.Department, got.DocumentType)
	}
	if got.UrgencyLevel != domain.UrgencyMedium || got.Language != domain.LanguageEnglish || got.Sentiment != domain.SentimentNeutral {
		t.Fatalf("enums not coerced: %#v", got)
	}
	if got.Confidence != 1 {
		t.Fatalf("confidence not clamped: %v", got.Confidence)
	}
	if len(got.KeyTopics) != domain.MaxKeyTopics || len(got.ActionItems) != domain.MaxActionItems {
		t.Fatalf("lists not capped: %d / %d", len(got.KeyTopics), len(got.ActionItems))
	}
	if len(got.Tags) != 2 {
		t.Fatalf("tags not deduplicated: %#v", got.Tags)
	}
	if len(got.Entities.Dates) != 1 || len(got.Entities.Amounts) != 1 || got.Entities.Locations[0] != "42" || got.Entities.Organizations == nil {
		t.Fatalf("unexpected entities: %#v", got.Entities)
	}
	if got.ProcessedWith != domain.ProcessedWithAI || !got.ProcessedAt.Equal(now) {
		t.Fatalf("unexpected stamp: %s %s", got.ProcessedWith, got.ProcessedAt)
	}
}

func TestAnalyzeMissingConfidenceDefaults(t *testing.T) {
	gen := &fakeGenerator{response: `{"summary":"ok"}`}
	got, err := NewAnalyzer(gen, nil, AnalyzerConfig{}).Analyze(context.Background(), "text", "a.txt")
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if got.Confidence != domain.DefaultConfidence || got.Department != domain.DepartmentGeneral {
		t.Fatalf("unexpected defaults: %#v", got)
	}
}

func TestAnalyzeInvalidJSON(t *testing.T) {
	gen := &fakeGenerator{response: "I think this document is about safety."}
	_, err := NewAnalyzer(gen, nil, AnalyzerConfig{}).Analyze(context.Background(), "text", "a.txt")
	if !domain.IsKind(err, domain.ErrAIAnalysis) || !errors.Is(err, ErrInvalidJSON) {
		t.Fatalf("expected invalid JSON analysis failure, got %v", err)
	}
	if !strings.Contains(err.Error(), "invalid JSON") {
		t.Fatalf("reason missing from message: %v", err)
	}
}

func TestAnalyzeMissingSummaryIsSchemaViolation(t *testing.T) {
	gen := &fakeGenerator{response: `{"department":"Finance"}`}
	_, err := NewAnalyzer(gen, nil, AnalyzerConfig{}).Analyze(context.Background(), "text", "a.txt")
	if !domain.IsKind(err, domain.ErrAIAnalysis) || !errors.Is(err, ErrSchemaViolation) {
		t.Fatalf("expected schema violation, got %v", err)
	}
}

func TestAnalyzeArrayIsInvalidShape(t *testing.T) {
	gen := &fakeGenerator{response: `["not", "an", "object"]`}
	_, err := NewAnalyzer(gen, nil, AnalyzerConfig{}).Analyze(context.Background(), "text", "a.txt")
	if !errors.Is(err, ErrInvalidJSON) {
		t.Fatalf("expected invalid JSON, got %v", err)
	}
}

func TestAnalyzeTransportFailureMakesSingleAttempt(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("connection refused")}
	exec := resilience.NewExecutor(resilience.Config{RetryMaxAttempts: 3, BreakerEnabled: true})
	_, err := NewAnalyzer(gen, exec, AnalyzerConfig{}).Analyze(context.Background(), "text", "a.txt")
	if !domain.IsKind(err, domain.ErrAIAnalysis) {
		t.Fatalf("expected analysis failure, got %v", err)
	}
	if gen.calls != 1 {
		t.Fatalf("expected exactly one model call, got %d", gen.calls)
	}
}

func TestAnalyzeTimeout(t *testing.T) {
	gen := &fakeGenerator{response: `{"summary":"late"}`, delay: time.Second}
	_, err := NewAnalyzer(gen, nil, AnalyzerConfig{Timeout: 10 * time.Millisecond}).Analyze(context.Background(), "text", "a.txt")
	if !domain.IsKind(err, domain.ErrAIAnalysis) || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected timeout analysis failure, got %v", err)
	}
}

func TestPromptTruncatesText(t *testing.T) {
	gen := &fakeGenerator{response: `{"summary":"ok"}`}
	text := strings.Repeat("a", 50) + strings.Repeat("z", 50)
	_, err := NewAnalyzer(gen, nil, AnalyzerConfig{PromptMaxChars: 50}).Analyze(context.Background(), text, "long.txt")
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if strings.Contains(gen.prompt, "zzzz") {
		t.Fatalf("prompt was not truncated")
	}
	if !strings.Contains(gen.prompt, "Document: long.txt") || !strings.Contains(gen.prompt, "Board Minutes") {
		t.Fatalf("prompt misses required parts: %s", gen.prompt)
	}
}

func TestAnalyzeOpenBreakerIsTemporary(t *testing.T) {
	gen := &fakeGenerator{err: &HTTPStatusError{Operation: "generate", StatusCode: 503, Status: "503 Service Unavailable"}}
	cfg := resilience.DefaultConfig().SingleAttempt()
	cfg.BreakerMinRequests = 1
	cfg.BreakerFailureRatio = 1
	analyzer := NewAnalyzer(gen, resilience.NewExecutor(cfg), AnalyzerConfig{Model: "test"})

	if _, err := analyzer.Analyze(context.Background(), "text", "a.txt"); !domain.IsKind(err, domain.ErrAIAnalysis) {
		t.Fatalf("expected ErrAIAnalysis on first failure, got %v", err)
	}

	_, err := analyzer.Analyze(context.Background(), "text", "a.txt")
	if !domain.IsKind(err, domain.ErrAIAnalysis) || !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected temporary analysis failure from open breaker, got %v", err)
	}
	if gen.calls != 1 {
		t.Fatalf("open breaker must not reach the model, calls = %d", gen.calls)
	}
}
