package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/kmrl/docintel/internal/core/domain"
)

const documentColumns = `id, title, original_filename, storage_path, file_size_bytes, mime_type,
	department, type, status, summary, tags, language, source, extracted_text_excerpt,
	analysis, processed, starred, upload_date, created_at, updated_at`

var sortColumns = map[domain.SortField]string{
	domain.SortByCreatedAt:  "created_at",
	domain.SortByTitle:      "title",
	domain.SortByDepartment: "department",
	domain.SortByStatus:     "status",
	domain.SortBySize:       "file_size_bytes",
}

var groupColumns = map[domain.GroupField]string{
	domain.GroupByDepartment: "department",
	domain.GroupByType:       "type",
	domain.GroupByLanguage:   "language",
	domain.GroupByStatus:     "status",
}

type DocumentRepository struct {
	db *sql.DB
}

func NewDocumentRepository(db *sql.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *DocumentRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/watcher startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2025091501)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS documents (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	original_filename TEXT NOT NULL,
	storage_path TEXT NOT NULL,
	file_size_bytes BIGINT NOT NULL DEFAULT 0,
	mime_type TEXT NOT NULL,
	department TEXT NOT NULL,
	type TEXT NOT NULL,
	status TEXT NOT NULL,
	summary TEXT NOT NULL DEFAULT '',
	tags JSONB NOT NULL DEFAULT '[]'::jsonb,
	language TEXT NOT NULL,
	source TEXT NOT NULL,
	extracted_text_excerpt TEXT NOT NULL DEFAULT '',
	analysis JSONB NOT NULL DEFAULT '{}'::jsonb,
	processed_with TEXT NOT NULL,
	confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
	processed BOOLEAN NOT NULL DEFAULT FALSE,
	starred BOOLEAN NOT NULL DEFAULT FALSE,
	upload_date TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_documents_department ON documents(department);
CREATE INDEX IF NOT EXISTS idx_documents_status ON documents(status);
CREATE INDEX IF NOT EXISTS idx_documents_created_at ON documents(created_at DESC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *DocumentRepository) Insert(ctx context.Context, doc *domain.DocumentRecord) (string, error) {
	tagsJSON, err := json.Marshal(nonNilTags(doc.Tags))
	if err != nil {
		return "", fmt.Errorf("marshal tags: %w", err)
	}
	analysisJSON, err := json.Marshal(doc.Analysis)
	if err != nil {
		return "", fmt.Errorf("marshal analysis: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO documents (
	id, title, original_filename, storage_path, file_size_bytes, mime_type,
	department, type, status, summary, tags, language, source, extracted_text_excerpt,
	analysis, processed_with, confidence, processed, starred, upload_date, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22)
`,
		doc.ID, doc.Title, doc.OriginalFilename, doc.StoragePath, doc.FileSizeBytes, doc.MimeType,
		doc.Department, doc.Type, string(doc.Status), doc.Summary, tagsJSON, doc.Language, doc.Source,
		doc.ExtractedTextExcerpt, analysisJSON, string(doc.Analysis.ProcessedWith), doc.Analysis.Confidence,
		doc.Processed, doc.Starred, doc.Date, doc.CreatedAt, doc.UpdatedAt,
	)
	if err != nil {
		return "", fmt.Errorf("insert document: %w", err)
	}
	return doc.ID, nil
}

func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*domain.DocumentRecord, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = $1`, id)
	doc, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrDocumentNotFound, "get document", fmt.Errorf("id=%s", id))
		}
		return nil, fmt.Errorf("scan document: %w", err)
	}
	return &doc, nil
}

func (r *DocumentRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return requireRow(result, "delete document", id)
}

func (r *DocumentRepository) Update(ctx context.Context, id string, patch domain.DocumentPatch) (*domain.DocumentRecord, error) {
	sets := []string{}
	args := []any{id}
	if patch.Status != nil {
		args = append(args, string(*patch.Status))
		sets = append(sets, fmt.Sprintf("status = $%d", len(args)))
	}
	if patch.Tags != nil {
		tagsJSON, err := json.Marshal(patch.Tags)
		if err != nil {
			return nil, fmt.Errorf("marshal tags: %w", err)
		}
		args = append(args, tagsJSON)
		sets = append(sets, fmt.Sprintf("tags = $%d", len(args)))
	}
	if patch.Starred != nil {
		args = append(args, *patch.Starred)
		sets = append(sets, fmt.Sprintf("starred = $%d", len(args)))
	}
	args = append(args, time.Now().UTC())
	sets = append(sets, fmt.Sprintf("updated_at = $%d", len(args)))

	result, err := r.db.ExecContext(ctx, `UPDATE documents SET `+strings.Join(sets, ", ")+` WHERE id = $1`, args...)
	if err != nil {
		return nil, fmt.Errorf("update document: %w", err)
	}
	if err := requireRow(result, "update document", id); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r *DocumentRepository) Find(ctx context.Context, filter domain.DocumentFilter, sort domain.Sort, page domain.Page) ([]domain.DocumentRecord, int, error) {
	total, err := r.Count(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	where, args := buildWhere(filter)
	column, ok := sortColumns[sort.Field]
	if !ok {
		column = "created_at"
	}
	direction := "ASC"
	if sort.Descending {
		direction = "DESC"
	}
	page = page.Normalize()
	args = append(args, page.Limit, page.Offset())

	query := fmt.Sprintf(`SELECT %s FROM documents%s ORDER BY %s %s, id ASC LIMIT $%d OFFSET $%d`,
		documentColumns, where, column, direction, len(args)-1, len(args))
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("find documents: %w", err)
	}
	defer rows.Close()

	docs := []domain.DocumentRecord{}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate documents: %w", err)
	}
	return docs, total, nil
}

func (r *DocumentRepository) Count(ctx context.Context, filter domain.DocumentFilter) (int, error) {
	where, args := buildWhere(filter)
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`+where, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("count documents: %w", err)
	}
	return total, nil
}

func (r *DocumentRepository) CountByGroup(ctx context.Context, field domain.GroupField, filter domain.DocumentFilter) ([]domain.GroupCount, error) {
	column, ok := groupColumns[field]
	if !ok {
		return nil, domain.WrapError(domain.ErrInvalidInput, "count by group", fmt.Errorf("field %q", field))
	}
	where, args := buildWhere(filter)
	query := fmt.Sprintf(`SELECT %[1]s, COUNT(*) FROM documents%[2]s GROUP BY %[1]s ORDER BY COUNT(*) DESC, %[1]s ASC`, column, where)
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("count documents by %s: %w", column, err)
	}
	defer rows.Close()

	groups := []domain.GroupCount{}
	for rows.Next() {
		var g domain.GroupCount
		if err := rows.Scan(&g.Key, &g.Count); err != nil {
			return nil, fmt.Errorf("scan group count: %w", err)
		}
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate group counts: %w", err)
	}
	return groups, nil
}

func (r *DocumentRepository) AverageConfidence(ctx context.Context, filter domain.DocumentFilter) (float64, error) {
	where, args := buildWhere(filter)
	var avg float64
	if err := r.db.QueryRowContext(ctx, `SELECT COALESCE(AVG(confidence), 0) FROM documents`+where, args...).Scan(&avg); err != nil {
		return 0, fmt.Errorf("average confidence: %w", err)
	}
	return avg, nil
}

// buildWhere renders filter as a WHERE clause with positional arguments.
func buildWhere(filter domain.DocumentFilter) (string, []any) {
	var clauses []string
	var args []any
	add := func(format string, value any) {
		args = append(args, value)
		clauses = append(clauses, fmt.Sprintf(format, len(args)))
	}

	if filter.Department != "" {
		add("department = $%d", filter.Department)
	}
	if filter.Type != "" {
		add("type = $%d", filter.Type)
	}
	if filter.Status != "" {
		add("status = $%d", string(filter.Status))
	}
	if filter.ProcessedWith != "" {
		add("processed_with = $%d", string(filter.ProcessedWith))
	}
	if filter.ProcessedOnly {
		clauses = append(clauses, "processed = TRUE")
	}
	if !filter.CreatedFrom.IsZero() {
		add("created_at >= $%d", filter.CreatedFrom)
	}
	if !filter.CreatedTo.IsZero() {
		add("created_at < $%d", filter.CreatedTo)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		args = append(args, "%"+escapeLike(search)+"%")
		n := len(args)
		clauses = append(clauses, fmt.Sprintf(
			"(title ILIKE $%[1]d OR summary ILIKE $%[1]d OR tags::text ILIKE $%[1]d OR (analysis->'key_topics')::text ILIKE $%[1]d)", n))
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func requireRow(result sql.Result, operation, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", operation, err)
	}
	if rows == 0 {
		return domain.WrapError(domain.ErrDocumentNotFound, operation, fmt.Errorf("id=%s", id))
	}
	return nil
}

type documentScanner interface {
	Scan(dest ...interface{}) error
}

func scanDocument(row documentScanner) (domain.DocumentRecord, error) {
	var doc domain.DocumentRecord
	var status string
	var tagsRaw, analysisRaw []byte
	err := row.Scan(
		&doc.ID, &doc.Title, &doc.OriginalFilename, &doc.StoragePath, &doc.FileSizeBytes, &doc.MimeType,
		&doc.Department, &doc.Type, &status, &doc.Summary, &tagsRaw, &doc.Language, &doc.Source,
		&doc.ExtractedTextExcerpt, &analysisRaw, &doc.Processed, &doc.Starred, &doc.Date,
		&doc.CreatedAt, &doc.UpdatedAt,
	)
	if err != nil {
		return domain.DocumentRecord{}, err
	}
	if err := json.Unmarshal(tagsRaw, &doc.Tags); err != nil {
		return domain.DocumentRecord{}, fmt.Errorf("unmarshal tags: %w", err)
	}
	if err := json.Unmarshal(analysisRaw, &doc.Analysis); err != nil {
		return domain.DocumentRecord{}, fmt.Errorf("unmarshal analysis: %w", err)
	}
	doc.Status = domain.DocumentStatus(status)
	return doc, nil
}

func nonNilTags(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
