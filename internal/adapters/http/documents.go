package httpadapter

import (
	"encoding/json"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/kmrl/docintel/internal/core/domain"
)

func (rt *Router) listDocuments(w http.ResponseWriter, r *http.Request) {
	page, err := rt.deps.Documents.List(r.Context(), parseListQuery(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func parseListQuery(r *http.Request) domain.ListQuery {
	q := r.URL.Query()
	return domain.ListQuery{
		Filter: domain.DocumentFilter{
			Department:    q.Get("department"),
			Type:          q.Get("type"),
			Status:        domain.DocumentStatus(strings.ToLower(strings.TrimSpace(q.Get("status")))),
			Search:        q.Get("search"),
			ProcessedWith: domain.ProcessedWith(strings.TrimSpace(q.Get("processedWith"))),
		},
		Sort: domain.Sort{
			Field:      domain.ParseSortField(q.Get("sortBy")),
			Descending: !strings.EqualFold(q.Get("sortOrder"), "asc"),
		},
		Page: domain.Page{
			Number: queryInt(q.Get("page")),
			Limit:  queryInt(q.Get("limit")),
		},
	}
}

func queryInt(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0
	}
	return n
}

func (rt *Router) getDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := rt.deps.Documents.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, domain.DocumentListItem{DocumentRecord: *doc, Priority: doc.Priority()})
}

func (rt *Router) getDocumentAnalysis(w http.ResponseWriter, r *http.Request) {
	doc, err := rt.deps.Documents.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":         doc.ID,
		"title":      doc.Title,
		"summary":    doc.Summary,
		"department": doc.Department,
		"type":       doc.Type,
		"status":     doc.Status,
		"language":   doc.Language,
		"tags":       doc.Tags,
		"analysis":   doc.Analysis,
	})
}

func (rt *Router) updateDocument(w http.ResponseWriter, r *http.Request) {
	var patch domain.DocumentPatch
	decoder := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&patch); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	doc, err := rt.deps.Documents.Update(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, domain.DocumentListItem{DocumentRecord: *doc, Priority: doc.Priority()})
}

func (rt *Router) deleteDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := rt.deps.Documents.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "id": id})
}

func (rt *Router) downloadDocument(w http.ResponseWriter, r *http.Request) {
	export, err := rt.deps.Documents.Export(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": export.Filename}))
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, export.Content)
}

func (rt *Router) originalFile(w http.ResponseWriter, r *http.Request) {
	doc, body, err := rt.deps.Documents.OpenOriginal(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", doc.MimeType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("inline", map[string]string{"filename": doc.OriginalFilename}))
	if doc.FileSizeBytes > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(doc.FileSizeBytes, 10))
	}
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, body); err != nil {
		slog.WarnContext(r.Context(), "original_file_stream_failed", "document_id", doc.ID, "error", err)
	}
}
