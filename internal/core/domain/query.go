package domain

import "time"

// DocumentFilter narrows document lookups. Zero values match everything.
type DocumentFilter struct {
	Department    string
	Type          string
	Status        DocumentStatus
	Search        string
	ProcessedWith ProcessedWith
	ProcessedOnly bool
	CreatedFrom   time.Time
	CreatedTo     time.Time
}

type SortField string

const (
	SortByCreatedAt  SortField = "created_at"
	SortByTitle      SortField = "title"
	SortByDepartment SortField = "department"
	SortByStatus     SortField = "status"
	SortBySize       SortField = "file_size_bytes"
)

func ParseSortField(raw string) SortField {
	switch raw {
	case "title":
		return SortByTitle
	case "department":
		return SortByDepartment
	case "status":
		return SortByStatus
	case "fileSize", "file_size_bytes", "size":
		return SortBySize
	default:
		return SortByCreatedAt
	}
}

type Sort struct {
	Field      SortField
	Descending bool
}

type Page struct {
	Number int
	Limit  int
}

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

func (p Page) Normalize() Page {
	out := p
	if out.Number < 1 {
		out.Number = 1
	}
	if out.Limit <= 0 {
		out.Limit = DefaultPageLimit
	}
	if out.Limit > MaxPageLimit {
		out.Limit = MaxPageLimit
	}
	return out
}

func (p Page) Offset() int {
	n := p.Normalize()
	return (n.Number - 1) * n.Limit
}

type GroupField string

const (
	GroupByDepartment GroupField = "department"
	GroupByType       GroupField = "type"
	GroupByLanguage   GroupField = "language"
	GroupByStatus     GroupField = "status"
)

func (g GroupField) Valid() bool {
	switch g {
	case GroupByDepartment, GroupByType, GroupByLanguage, GroupByStatus:
		return true
	default:
		return false
	}
}

type GroupCount struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

// DocumentPatch carries the fields editable after ingestion. Nil fields are
// left untouched.
type DocumentPatch struct {
	Status  *DocumentStatus `json:"status,omitempty"`
	Tags    []string        `json:"tags,omitempty"`
	Starred *bool           `json:"starred,omitempty"`
}

func (p DocumentPatch) Empty() bool {
	return p.Status == nil && p.Tags == nil && p.Starred == nil
}

type ListQuery struct {
	Filter DocumentFilter
	Sort   Sort
	Page   Page
}

// DocumentListItem is a record as shown in listings.
type DocumentListItem struct {
	DocumentRecord
	Priority string `json:"priority"`
}

type DocumentPage struct {
	Documents  []DocumentListItem `json:"documents"`
	Total      int                `json:"total"`
	Page       int                `json:"page"`
	Limit      int                `json:"limit"`
	TotalPages int                `json:"total_pages"`
}

// TextExport is the plain-text download of a record.
type TextExport struct {
	Filename string
	Content  string
}
