package extractor

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/kmrl/docintel/internal/core/domain"
)

type strategy struct {
	method string
	run    func(ctx context.Context, path string) (string, error)
}

// Extractor dispatches on the declared MIME type to a format-specific
// strategy. It never inspects file contents to guess a format.
type Extractor struct {
	strategies map[string]strategy
}

// New builds an extractor. A nil ocr uses the default tesseract settings.
func New(ocr *OCR) *Extractor {
	if ocr == nil {
		ocr = NewOCR(OCRConfig{})
	}
	word := strategy{method: "OOXML WordprocessingML", run: extractWord}
	excel := strategy{method: "Excelize", run: extractExcel}
	image := strategy{method: "Tesseract OCR", run: ocr.Recognize}

	return &Extractor{
		strategies: map[string]strategy{
			domain.MimePDF:       {method: "PDF text layer", run: extractPDF},
			domain.MimeDOC:       word,
			domain.MimeDOCX:      word,
			domain.MimeXLS:       excel,
			domain.MimeXLSX:      excel,
			domain.MimeJPEG:      image,
			domain.MimeJPG:       image,
			domain.MimePNG:       image,
			domain.MimePlainText: {method: "Plain text", run: extractPlain},
		},
	}
}

// Extract returns the text of the file at path. The returned text may be
// empty; callers decide whether that is acceptable.
func (e *Extractor) Extract(ctx context.Context, path, mimeType, displayName string) (domain.ExtractedText, error) {
	s, ok := e.strategies[mimeType]
	if !ok {
		return domain.ExtractedText{}, domain.WrapError(
			domain.ErrUnsupportedType, "extract",
			fmt.Errorf("%q (%s)", mimeType, displayName),
		)
	}

	slog.DebugContext(ctx, "text_extraction_started", "filename", displayName, "mime_type", mimeType, "method", s.method)
	started := time.Now()
	text, err := runGuarded(ctx, s, path)
	if err != nil {
		return domain.ExtractedText{}, domain.WrapError(
			domain.ErrExtractionFailed, "extract",
			fmt.Errorf("%s: %s: %w", displayName, s.method, err),
		)
	}

	return domain.ExtractedText{
		Text:     text,
		Method:   s.method,
		Length:   utf8.RuneCountInString(text),
		Duration: time.Since(started),
	}, nil
}

// runGuarded converts parser panics into ordinary errors so a corrupt file
// cannot take down the batch.
func runGuarded(ctx context.Context, s strategy, path string) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("parser panic: %v", r)
		}
	}()
	return s.run(ctx, path)
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
