package memory

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/kmrl/docintel/internal/core/domain"
)

// DocumentRepository keeps records in process memory. It serves local runs
// without Postgres and the operator CLI.
type DocumentRepository struct {
	mu   sync.RWMutex
	docs map[string]domain.DocumentRecord
	now  func() time.Time
}

func NewDocumentRepository() *DocumentRepository {
	return &DocumentRepository{docs: map[string]domain.DocumentRecord{}, now: time.Now}
}

func (r *DocumentRepository) Insert(_ context.Context, doc *domain.DocumentRecord) (string, error) {
	if doc == nil || doc.ID == "" {
		return "", domain.WrapError(domain.ErrInvalidInput, "insert document", fmt.Errorf("record id is required"))
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.docs[doc.ID]; exists {
		return "", fmt.Errorf("insert document: duplicate id %s", doc.ID)
	}
	r.docs[doc.ID] = cloneRecord(*doc)
	return doc.ID, nil
}

func (r *DocumentRepository) GetByID(_ context.Context, id string) (*domain.DocumentRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	doc, ok := r.docs[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrDocumentNotFound, "get document", fmt.Errorf("id=%s", id))
	}
	out := cloneRecord(doc)
	return &out, nil
}

func (r *DocumentRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.docs[id]; !ok {
		return domain.WrapError(domain.ErrDocumentNotFound, "delete document", fmt.Errorf("id=%s", id))
	}
	delete(r.docs, id)
	return nil
}

func (r *DocumentRepository) Update(_ context.Context, id string, patch domain.DocumentPatch) (*domain.DocumentRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrDocumentNotFound, "update document", fmt.Errorf("id=%s", id))
	}
	if patch.Status != nil {
		doc.Status = *patch.Status
	}
	if patch.Tags != nil {
		doc.Tags = slices.Clone(patch.Tags)
	}
	if patch.Starred != nil {
		doc.Starred = *patch.Starred
	}
	doc.UpdatedAt = r.now().UTC()
	r.docs[id] = doc
	out := cloneRecord(doc)
	return &out, nil
}

func (r *DocumentRepository) Find(_ context.Context, filter domain.DocumentFilter, order domain.Sort, page domain.Page) ([]domain.DocumentRecord, int, error) {
	matched := r.matching(filter)
	sort.SliceStable(matched, func(i, j int) bool {
		cmp := compareField(matched[i], matched[j], order.Field)
		if cmp == 0 {
			return matched[i].ID < matched[j].ID
		}
		if order.Descending {
			return cmp > 0
		}
		return cmp < 0
	})

	page = page.Normalize()
	total := len(matched)
	start := min(page.Offset(), total)
	end := min(start+page.Limit, total)

	out := make([]domain.DocumentRecord, 0, end-start)
	for _, doc := range matched[start:end] {
		out = append(out, cloneRecord(doc))
	}
	return out, total, nil
}

func (r *DocumentRepository) Count(_ context.Context, filter domain.DocumentFilter) (int, error) {
	return len(r.matching(filter)), nil
}

func (r *DocumentRepository) CountByGroup(_ context.Context, field domain.GroupField, filter domain.DocumentFilter) ([]domain.GroupCount, error) {
	if !field.Valid() {
		return nil, domain.WrapError(domain.ErrInvalidInput, "count by group", fmt.Errorf("field %q", field))
	}
	counts := map[string]int{}
	for _, doc := range r.matching(filter) {
		counts[groupKey(doc, field)]++
	}
	groups := make([]domain.GroupCount, 0, len(counts))
	for key, n := range counts {
		groups = append(groups, domain.GroupCount{Key: key, Count: n})
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].Count != groups[j].Count {
			return groups[i].Count > groups[j].Count
		}
		return groups[i].Key < groups[j].Key
	})
	return groups, nil
}

func (r *DocumentRepository) AverageConfidence(_ context.Context, filter domain.DocumentFilter) (float64, error) {
	docs := r.matching(filter)
	if len(docs) == 0 {
		return 0, nil
	}
	sum := 0.0
	for _, doc := range docs {
		sum += doc.Analysis.Confidence
	}
	return sum / float64(len(docs)), nil
}

func (r *DocumentRepository) matching(filter domain.DocumentFilter) []domain.DocumentRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()
	search := strings.ToLower(strings.TrimSpace(filter.Search))
	out := []domain.DocumentRecord{}
	for _, doc := range r.docs {
		if filter.Department != "" && doc.Department != filter.Department {
			continue
		}
		if filter.Type != "" && doc.Type != filter.Type {
			continue
		}
		if filter.Status != "" && doc.Status != filter.Status {
			continue
		}
		if filter.ProcessedWith != "" && doc.Analysis.ProcessedWith != filter.ProcessedWith {
			continue
		}
		if filter.ProcessedOnly && !doc.Processed {
			continue
		}
		if !filter.CreatedFrom.IsZero() && doc.CreatedAt.Before(filter.CreatedFrom) {
			continue
		}
		if !filter.CreatedTo.IsZero() && !doc.CreatedAt.Before(filter.CreatedTo) {
			continue
		}
		if search != "" && !matchesSearch(doc, search) {
			continue
		}
		out = append(out, doc)
	}
	return out
}

func matchesSearch(doc domain.DocumentRecord, lowerSearch string) bool {
	if strings.Contains(strings.ToLower(doc.Title), lowerSearch) ||
		strings.Contains(strings.ToLower(doc.Summary), lowerSearch) {
		return true
	}
	for _, values := range [][]string{doc.Tags, doc.Analysis.KeyTopics} {
		for _, v := range values {
			if strings.Contains(strings.ToLower(v), lowerSearch) {
				return true
			}
		}
	}
	return false
}

func compareField(a, b domain.DocumentRecord, field domain.SortField) int {
	switch field {
	case domain.SortByTitle:
		return strings.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title))
	case domain.SortByDepartment:
		return strings.Compare(a.Department, b.Department)
	case domain.SortByStatus:
		return strings.Compare(string(a.Status), string(b.Status))
	case domain.SortBySize:
		switch {
		case a.FileSizeBytes < b.FileSizeBytes:
			return -1
		case a.FileSizeBytes > b.FileSizeBytes:
			return 1
		}
		return 0
	default:
		return a.CreatedAt.Compare(b.CreatedAt)
	}
}

func groupKey(doc domain.DocumentRecord, field domain.GroupField) string {
	switch field {
	case domain.GroupByType:
		return doc.Type
	case domain.GroupByLanguage:
		return doc.Language
	case domain.GroupByStatus:
		return string(doc.Status)
	default:
		return doc.Department
	}
}

func cloneRecord(doc domain.DocumentRecord) domain.DocumentRecord {
	doc.Tags = slices.Clone(doc.Tags)
	doc.Analysis.KeyTopics = slices.Clone(doc.Analysis.KeyTopics)
	doc.Analysis.ActionItems = slices.Clone(doc.Analysis.ActionItems)
	return doc
}
