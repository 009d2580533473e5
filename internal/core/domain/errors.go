package domain

import (
	"errors"
	"fmt"
)

var (
	ErrDocumentNotFound = errors.New("document not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrTemporary        = errors.New("temporary failure")

	ErrUnsupportedType  = errors.New("unsupported file type")
	ErrExtractionFailed = errors.New("text extraction failed")
	ErrEmptyExtraction  = errors.New("no text content found in document")
	ErrAIAnalysis       = errors.New("ai analysis failed")
	ErrPersistence      = errors.New("persistence failed")
	ErrUnexpected       = errors.New("unexpected error")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}

// ErrorCode returns a stable machine-readable code for per-file failures.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case IsKind(err, ErrUnsupportedType):
		return "unsupported_type"
	case IsKind(err, ErrEmptyExtraction):
		return "empty_extraction"
	case IsKind(err, ErrExtractionFailed):
		return "extraction_failed"
	case IsKind(err, ErrPersistence):
		return "persistence_failed"
	case IsKind(err, ErrInvalidInput):
		return "invalid_input"
	default:
		return "unexpected_error"
	}
}
