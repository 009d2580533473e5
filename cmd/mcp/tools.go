package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kmrl/docintel/internal/core/domain"
	"github.com/kmrl/docintel/internal/core/ports"
)

const serverVersion = "0.1.0"

// toolset exposes read-only pipeline operations to MCP clients. analyzer may
// be nil, in which case analysis uses keyword rules only.
type toolset struct {
	extractor ports.TextExtractor
	rules     ports.RuleClassifier
	analyzer  ports.DocumentAnalyzer
	documents ports.DocumentService
	stats     ports.StatsService
}

func newServer(t toolset) *server.MCPServer {
	s := server.NewMCPServer("kmrl-docintel", serverVersion,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)

	s.AddTool(mcp.NewTool("classify_text",
		mcp.WithDescription("Classify document text by department, type and urgency using keyword rules."),
		mcp.WithString("text", mcp.Required(), mcp.Description("Document text")),
		mcp.WithString("filename", mcp.Description("Original file name; its words also count as keywords")),
	), t.classifyText)

	s.AddTool(mcp.NewTool("analyze_file",
		mcp.WithDescription("Extract text from a local pdf, docx, xlsx, image or txt file and analyze it. Nothing is stored."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Absolute path of the file")),
	), t.analyzeFile)

	s.AddTool(mcp.NewTool("list_documents",
		mcp.WithDescription("List processed documents, newest first."),
		mcp.WithString("department", mcp.Description("Department name or 'all'")),
		mcp.WithString("type", mcp.Description("Document type or 'all'")),
		mcp.WithString("status", mcp.Description("urgent, pending, review, approved or published")),
		mcp.WithString("search", mcp.Description("Substring matched against title, summary and content")),
		mcp.WithNumber("page", mcp.Description("Page number starting at 1")),
		mcp.WithNumber("limit", mcp.Description("Page size, at most 100")),
	), t.listDocuments)

	s.AddTool(mcp.NewTool("get_document",
		mcp.WithDescription("Fetch one processed document with its full analysis."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Document id")),
	), t.getDocument)

	s.AddTool(mcp.NewTool("dashboard_stats",
		mcp.WithDescription("Dashboard counters: totals, today's uploads, urgent documents, department and language breakdown."),
	), t.dashboardStats)

	return s
}

func (t toolset) classifyText(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := req.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(t.rules.Classify(text, req.GetString("filename", "")))
}

func (t toolset) analyzeFile(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	name := filepath.Base(path)
	mimeType, ok := domain.MimeTypeForFilename(name)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("unsupported file type: %s", name)), nil
	}

	extracted, err := t.extractor.Extract(ctx, path, mimeType, name)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if strings.TrimSpace(extracted.Text) == "" {
		return mcp.NewToolResultError("no text could be extracted"), nil
	}

	var analysis domain.AnalysisResult
	if t.analyzer != nil {
		analysis, err = t.analyzer.Analyze(ctx, extracted.Text, name)
		if err != nil {
			slog.WarnContext(ctx, "ai_analysis_fallback", "filename", name, "error", err)
		}
	}
	if t.analyzer == nil || err != nil {
		analysis = t.rules.Classify(extracted.Text, name)
	}

	return jsonResult(map[string]any{
		"filename":          name,
		"mime_type":         mimeType,
		"extraction_method": extracted.Method,
		"text_length":       extracted.Length,
		"analysis":          analysis,
	})
}

func (t toolset) listDocuments(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	page, err := t.documents.List(ctx, domain.ListQuery{
		Filter: domain.DocumentFilter{
			Department: req.GetString("department", ""),
			Type:       req.GetString("type", ""),
			Status:     domain.DocumentStatus(req.GetString("status", "")),
			Search:     req.GetString("search", ""),
		},
		Sort: domain.Sort{Field: domain.SortByCreatedAt, Descending: true},
		Page: domain.Page{Number: req.GetInt("page", 1), Limit: req.GetInt("limit", domain.DefaultPageLimit)},
	})
	if err != nil {
		return toolError(err)
	}
	return jsonResult(page)
}

func (t toolset) getDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	record, err := t.documents.Get(ctx, id)
	if err != nil {
		return toolError(err)
	}
	return jsonResult(domain.DocumentListItem{DocumentRecord: *record, Priority: record.Priority()})
}

func (t toolset) dashboardStats(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stats, err := t.stats.Dashboard(ctx)
	if err != nil {
		return toolError(err)
	}
	return jsonResult(stats)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode tool result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}

// toolError reports caller mistakes as tool results and everything else as a
// protocol error.
func toolError(err error) (*mcp.CallToolResult, error) {
	if errors.Is(err, domain.ErrDocumentNotFound) || errors.Is(err, domain.ErrInvalidInput) {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return nil, err
}
