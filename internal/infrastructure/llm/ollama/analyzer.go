package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/kmrl/docintel/internal/core/domain"
	"github.com/kmrl/docintel/internal/core/ports"
	"github.com/kmrl/docintel/internal/infrastructure/resilience"
)

const DefaultAnalysisTimeout = 60 * time.Second

var (
	ErrInvalidJSON     = errors.New("invalid JSON")
	ErrSchemaViolation = errors.New("schema violation")
)

var codeFence = regexp.MustCompile("```json\\n?|```\\n?")

type AnalyzerConfig struct {
	Model          string
	Timeout        time.Duration
	PromptMaxChars int
}

// Analyzer turns a document into an AnalysisResult with one model call. Every
// failure is reported as domain.ErrAIAnalysis so the caller can fall back.
type Analyzer struct {
	generator ports.TextGenerator
	executor  *resilience.Executor
	cfg       AnalyzerConfig
	now       func() time.Time
}

// NewAnalyzer builds the AI analysis adapter. executor may be nil.
func NewAnalyzer(generator ports.TextGenerator, executor *resilience.Executor, cfg AnalyzerConfig) *Analyzer {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultAnalysisTimeout
	}
	if cfg.PromptMaxChars <= 0 {
		cfg.PromptMaxChars = DefaultPromptMaxChars
	}
	return &Analyzer{generator: generator, executor: executor, cfg: cfg, now: time.Now}
}

func (a *Analyzer) Analyze(ctx context.Context, text, displayName string) (domain.AnalysisResult, error) {
	started := time.Now()
	callCtx, cancel := context.WithTimeout(ctx, a.cfg.Timeout)
	defer cancel()

	slog.InfoContext(ctx, "ai_analysis_started", "filename", displayName, "text_length", len([]rune(text)))

	raw, err := resilience.Call(callCtx, a.executor, "ollama.analyze", func(ctx context.Context) (string, error) {
		return a.generator.Generate(ctx, buildAnalysisPrompt(text, displayName, a.cfg.PromptMaxChars))
	}, classifyGenerateError)
	if err != nil {
		err = markUnavailable("ollama analyze", err)
		return domain.AnalysisResult{}, domain.WrapError(domain.ErrAIAnalysis, "ai analysis", err)
	}

	cleaned := strings.TrimSpace(codeFence.ReplaceAllString(raw, ""))
	var fields map[string]any
	if err := json.Unmarshal([]byte(cleaned), &fields); err != nil {
		slog.WarnContext(ctx, "ai_response_parse_failed",
			"filename", displayName,
			"error", err,
			"raw_response", domain.TruncateRunes(cleaned, 500),
		)
		return domain.AnalysisResult{}, domain.WrapError(domain.ErrAIAnalysis, "ai analysis", fmt.Errorf("%w: %v", ErrInvalidJSON, err))
	}

	result, err := coerceAnalysis(fields)
	if err != nil {
		return domain.AnalysisResult{}, domain.WrapError(domain.ErrAIAnalysis, "ai analysis", err)
	}
	result.ProcessedWith = domain.ProcessedWithAI
	result.ProcessedAt = a.now()
	result.Model = a.cfg.Model

	slog.InfoContext(ctx, "ai_analysis_complete",
		"filename", displayName,
		"department", result.Department,
		"document_type", result.DocumentType,
		"confidence", result.Confidence,
		"duration_ms", time.Since(started).Milliseconds(),
	)
	return result, nil
}

// coerceAnalysis validates the untyped model output and maps every enumerated
// field onto its allowed set. Only a missing summary is fatal.
func coerceAnalysis(fields map[string]any) (domain.AnalysisResult, error) {
	summary := strings.TrimSpace(stringField(fields, "summary"))
	if summary == "" {
		return domain.AnalysisResult{}, fmt.Errorf("%w: summary is required", ErrSchemaViolation)
	}

	entities, _ := lookup(fields, "entities").(map[string]any)

	return domain.AnalysisResult{
		Summary:      summary,
		KeyTopics:    capList(stringList(lookup(fields, "keyTopics", "key_topics")), domain.MaxKeyTopics),
		Department:   domain.CanonicalDepartment(stringField(fields, "department")),
		DocumentType: domain.CanonicalDocumentType(stringField(fields, "documentType", "document_type")),
		UrgencyLevel: domain.ParseUrgencyLevel(stringField(fields, "urgencyLevel", "urgency_level"), domain.UrgencyMedium),
		Language:     domain.ParseLanguage(stringField(fields, "language"), domain.LanguageEnglish),
		Entities: domain.Entities{
			Dates:         stringList(lookup(entities, "dates")),
			Amounts:       stringList(lookup(entities, "amounts")),
			Locations:     stringList(lookup(entities, "locations")),
			Organizations: stringList(lookup(entities, "organizations")),
		},
		ActionItems:    capList(stringList(lookup(fields, "actionItems", "action_items")), domain.MaxActionItems),
		Tags:           dedupe(stringList(lookup(fields, "tags"))),
		Sentiment:      domain.ParseSentiment(stringField(fields, "sentiment"), domain.SentimentNeutral),
		BusinessImpact: strings.TrimSpace(stringField(fields, "businessImpact", "business_impact")),
		Confidence:     confidenceField(lookup(fields, "confidence")),
	}, nil
}

func lookup(fields map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := fields[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

func stringField(fields map[string]any, keys ...string) string {
	s, _ := lookup(fields, keys...).(string)
	return s
}

// stringList accepts a JSON array of scalars or a single string.
func stringList(v any) []string {
	out := []string{}
	switch t := v.(type) {
	case []any:
		for _, item := range t {
			var s string
			switch x := item.(type) {
			case string:
				s = x
			case float64:
				s = strconv.FormatFloat(x, 'f', -1, 64)
			case bool:
				s = strconv.FormatBool(x)
			}
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	case string:
		if s := strings.TrimSpace(t); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func confidenceField(v any) float64 {
	switch t := v.(type) {
	case float64:
		return domain.ClampConfidence(t)
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(t), 64); err == nil {
			return domain.ClampConfidence(f)
		}
	}
	return domain.DefaultConfidence
}

func capList(values []string, limit int) []string {
	if len(values) > limit {
		return values[:limit]
	}
	return values
}

func dedupe(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		key := strings.ToLower(v)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, v)
	}
	return out
}
