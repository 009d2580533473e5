package domain

import (
	"path/filepath"
	"strings"
	"time"
)

const (
	defaultLanguage = "Unknown"
	defaultTag      = "ai-processed"
)

// DeriveStatus maps an analysis to the workflow status of its record.
// Rules are checked in order and the first match wins.
func DeriveStatus(analysis AnalysisResult) DocumentStatus {
	switch {
	case analysis.UrgencyLevel == UrgencyHigh:
		return StatusUrgent
	case analysis.DocumentType == "Policy" || analysis.DocumentType == "Safety Circular":
		return StatusReview
	case analysis.DocumentType == "Board Minutes":
		return StatusApproved
	default:
		return StatusPending
	}
}

type RecordInput struct {
	ID              string
	File            UploadedFile
	StoragePath     string
	Text            string
	Analysis        AnalysisResult
	Status          DocumentStatus
	ExcerptMaxChars int
	Now             time.Time
}

// BuildRecord assembles the persisted shape of a processed upload. It performs
// no I/O.
func BuildRecord(in RecordInput) DocumentRecord {
	a := in.Analysis

	summary := strings.TrimSpace(a.Summary)
	if summary == "" {
		summary = "AI-processed document: " + in.File.OriginalName
	}
	tags := a.Tags
	if len(tags) == 0 {
		tags = []string{defaultTag}
	}
	language := string(a.Language)
	if language == "" {
		language = defaultLanguage
	}
	urgency := a.UrgencyLevel
	if urgency == "" {
		urgency = UrgencyMedium
	}
	sentiment := a.Sentiment
	if sentiment == "" {
		sentiment = SentimentNeutral
	}
	processedAt := a.ProcessedAt
	if processedAt.IsZero() {
		processedAt = in.Now
	}
	excerptMax := in.ExcerptMaxChars
	if excerptMax <= 0 {
		excerptMax = DefaultExcerptMaxChars
	}

	return DocumentRecord{
		ID:                   in.ID,
		Title:                titleFromFilename(in.File.OriginalName),
		OriginalFilename:     in.File.OriginalName,
		StoragePath:          in.StoragePath,
		FileSizeBytes:        in.File.SizeBytes,
		MimeType:             in.File.MimeType,
		Department:           CanonicalDepartment(a.Department),
		Type:                 CanonicalDocumentType(a.DocumentType),
		Status:               in.Status,
		Summary:              summary,
		Tags:                 tags,
		Language:             language,
		Source:               sourceLabel(a),
		ExtractedTextExcerpt: TruncateRunes(stripNUL(in.Text), excerptMax),
		Analysis: DocumentAnalysis{
			KeyTopics:      nonNil(a.KeyTopics),
			Entities:       normalizeEntities(a.Entities),
			ActionItems:    nonNil(a.ActionItems),
			Sentiment:      sentiment,
			UrgencyLevel:   urgency,
			BusinessImpact: a.BusinessImpact,
			Confidence:     ClampConfidence(a.Confidence),
			ProcessedWith:  a.ProcessedWith,
			ProcessedAt:    processedAt,
			AIModel:        modelLabel(a),
		},
		Processed: true,
		Date:      in.Now.Format("2006-01-02"),
		CreatedAt: in.Now,
		UpdatedAt: in.Now,
	}
}

// stripNUL drops NUL bytes, which text columns reject.
func stripNUL(s string) string {
	return strings.ReplaceAll(s, "\x00", "")
}

// TruncateRunes returns at most n runes of s.
func TruncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for idx := range s {
		if count == n {
			return s[:idx]
		}
		count++
	}
	return s
}

func titleFromFilename(name string) string {
	ext := filepath.Ext(name)
	if ext == "" || ext == name {
		return name
	}
	return strings.TrimSuffix(name, ext)
}

func sourceLabel(a AnalysisResult) string {
	if a.ProcessedWith == ProcessedWithAI {
		return "AI Analysis via " + modelLabel(a)
	}
	return "Rule-based analysis"
}

func modelLabel(a AnalysisResult) string {
	if a.ProcessedWith != ProcessedWithAI {
		return string(ProcessedWithRuleBased)
	}
	if a.Model == "" {
		return "generative-model"
	}
	return a.Model
}

func normalizeEntities(e Entities) Entities {
	return Entities{
		Dates:         nonNil(e.Dates),
		Amounts:       nonNil(e.Amounts),
		Locations:     nonNil(e.Locations),
		Organizations: nonNil(e.Organizations),
	}
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
