package domain

import "time"

type DocumentStatus string

const (
	StatusUrgent    DocumentStatus = "urgent"
	StatusPending   DocumentStatus = "pending"
	StatusReview    DocumentStatus = "review"
	StatusApproved  DocumentStatus = "approved"
	StatusPublished DocumentStatus = "published"
)

func (s DocumentStatus) Valid() bool {
	switch s {
	case StatusUrgent, StatusPending, StatusReview, StatusApproved, StatusPublished:
		return true
	default:
		return false
	}
}

// UploadedFile is a file received by an inbound adapter. The pipeline owns
// TempPath for the duration of one run.
type UploadedFile struct {
	TempPath     string `json:"-"`
	OriginalName string `json:"original_name"`
	MimeType     string `json:"mime_type"`
	SizeBytes    int64  `json:"size_bytes"`
}

type ExtractedText struct {
	Text     string        `json:"text"`
	Method   string        `json:"method"`
	Length   int           `json:"length"`
	Duration time.Duration `json:"duration"`
}

// DocumentAnalysis is the part of an AnalysisResult embedded in a persisted
// record; the fields promoted to the record itself are not repeated.
type DocumentAnalysis struct {
	KeyTopics      []string      `json:"key_topics"`
	Entities       Entities      `json:"entities"`
	ActionItems    []string      `json:"action_items"`
	Sentiment      Sentiment     `json:"sentiment"`
	UrgencyLevel   UrgencyLevel  `json:"urgency_level"`
	BusinessImpact string        `json:"business_impact"`
	Confidence     float64       `json:"confidence"`
	ProcessedWith  ProcessedWith `json:"processed_with"`
	ProcessedAt    time.Time     `json:"processed_at"`
	AIModel        string        `json:"ai_model"`
}

type DocumentRecord struct {
	ID                   string           `json:"id"`
	Title                string           `json:"title"`
	OriginalFilename     string           `json:"original_filename"`
	StoragePath          string           `json:"storage_path"`
	FileSizeBytes        int64            `json:"file_size_bytes"`
	MimeType             string           `json:"mime_type"`
	Department           string           `json:"department"`
	Type                 string           `json:"type"`
	Status               DocumentStatus   `json:"status"`
	Summary              string           `json:"summary"`
	Tags                 []string         `json:"tags"`
	Language             string           `json:"language"`
	Source               string           `json:"source"`
	ExtractedTextExcerpt string           `json:"extracted_text_excerpt"`
	Analysis             DocumentAnalysis `json:"analysis"`
	Processed            bool             `json:"processed"`
	Starred              bool             `json:"starred"`
	Date                 string           `json:"date"`
	CreatedAt            time.Time        `json:"created_at"`
	UpdatedAt            time.Time        `json:"updated_at"`
}

// Priority is the coarse label the dashboard shows next to a document.
func (d DocumentRecord) Priority() string {
	switch d.Status {
	case StatusUrgent:
		return "High"
	case StatusReview:
		return "Medium"
	default:
		return "Low"
	}
}

type FileResult struct {
	Success   bool            `json:"success"`
	Filename  string          `json:"filename"`
	Document  *DocumentRecord `json:"document,omitempty"`
	Error     string          `json:"error,omitempty"`
	ErrorCode string          `json:"error_code,omitempty"`
}

type BatchResult struct {
	Results    []FileResult `json:"results"`
	Successful int          `json:"successful"`
	Failed     int          `json:"failed"`
}

// DocumentProcessed is published after a record has been persisted.
type DocumentProcessed struct {
	DocumentID    string         `json:"document_id"`
	Filename      string         `json:"filename"`
	Department    string         `json:"department"`
	Type          string         `json:"type"`
	Status        DocumentStatus `json:"status"`
	ProcessedWith ProcessedWith  `json:"processed_with"`
	OccurredAt    time.Time      `json:"occurred_at"`
}
