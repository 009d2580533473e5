package domain

import (
	"strings"
	"time"
)

const (
	DepartmentGeneral      = "General"
	DocumentTypeGeneral    = "General Document"
	DefaultConfidence      = 0.75
	MaxKeyTopics           = 8
	MaxActionItems         = 5
	DefaultExcerptMaxChars = 10000
)

var Departments = []string{
	"Safety & Operations",
	"Engineering",
	"Procurement",
	"Human Resources",
	"Environment",
	"Finance",
	"Operations",
	DepartmentGeneral,
}

var DocumentTypes = []string{
	"Safety Circular",
	"Invoice",
	"Policy",
	"Engineering Drawing",
	"Maintenance Report",
	"Impact Study",
	"Training Material",
	"Board Minutes",
	DocumentTypeGeneral,
}

type UrgencyLevel string

const (
	UrgencyHigh   UrgencyLevel = "high"
	UrgencyMedium UrgencyLevel = "medium"
	UrgencyLow    UrgencyLevel = "low"
)

type Language string

const (
	LanguageEnglish   Language = "English"
	LanguageMalayalam Language = "Malayalam"
	LanguageBilingual Language = "Bilingual"
)

type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
	SentimentNeutral  Sentiment = "neutral"
)

type ProcessedWith string

const (
	ProcessedWithAI        ProcessedWith = "ai"
	ProcessedWithRuleBased ProcessedWith = "rule-based"
)

type Entities struct {
	Dates         []string `json:"dates"`
	Amounts       []string `json:"amounts"`
	Locations     []string `json:"locations"`
	Organizations []string `json:"organizations"`
}

type AnalysisResult struct {
	Summary        string        `json:"summary"`
	KeyTopics      []string      `json:"key_topics"`
	Department     string        `json:"department"`
	DocumentType   string        `json:"document_type"`
	UrgencyLevel   UrgencyLevel  `json:"urgency_level"`
	Language       Language      `json:"language"`
	Entities       Entities      `json:"entities"`
	ActionItems    []string      `json:"action_items"`
	Tags           []string      `json:"tags"`
	Sentiment      Sentiment     `json:"sentiment"`
	BusinessImpact string        `json:"business_impact"`
	Confidence     float64       `json:"confidence"`
	ProcessedWith  ProcessedWith `json:"processed_with"`
	ProcessedAt    time.Time     `json:"processed_at"`
	// Model names the generative model for AI results.
	Model string `json:"model,omitempty"`
}

// CanonicalDepartment returns the enumerated department matching name
// case-insensitively, or General.
func CanonicalDepartment(name string) string {
	return canonical(name, Departments, DepartmentGeneral)
}

// CanonicalDocumentType returns the enumerated document type matching name
// case-insensitively, or General Document.
func CanonicalDocumentType(name string) string {
	return canonical(name, DocumentTypes, DocumentTypeGeneral)
}

func ParseUrgencyLevel(raw string, fallback UrgencyLevel) UrgencyLevel {
	switch UrgencyLevel(strings.ToLower(strings.TrimSpace(raw))) {
	case UrgencyHigh:
		return UrgencyHigh
	case UrgencyMedium:
		return UrgencyMedium
	case UrgencyLow:
		return UrgencyLow
	default:
		return fallback
	}
}

func ParseLanguage(raw string, fallback Language) Language {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "english":
		return LanguageEnglish
	case "malayalam":
		return LanguageMalayalam
	case "bilingual":
		return LanguageBilingual
	default:
		return fallback
	}
}

func ParseSentiment(raw string, fallback Sentiment) Sentiment {
	switch Sentiment(strings.ToLower(strings.TrimSpace(raw))) {
	case SentimentPositive:
		return SentimentPositive
	case SentimentNegative:
		return SentimentNegative
	case SentimentNeutral:
		return SentimentNeutral
	default:
		return fallback
	}
}

func ClampConfidence(v float64) float64 {
	switch {
	case v != v:
		return DefaultConfidence
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

func IsDepartment(name string) bool {
	return contains(Departments, name)
}

func IsDocumentType(name string) bool {
	return contains(DocumentTypes, name)
}

func canonical(name string, set []string, fallback string) string {
	trimmed := strings.TrimSpace(name)
	for _, candidate := range set {
		if strings.EqualFold(candidate, trimmed) {
			return candidate
		}
	}
	return fallback
}

func contains(set []string, name string) bool {
	for _, candidate := range set {
		if candidate == name {
			return true
		}
	}
	return false
}
