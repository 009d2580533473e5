package extractor

import (
	"context"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"
)

// extractPlain returns the bytes as UTF-8. Invalid sequences are replaced
// with U+FFFD.
func extractPlain(_ context.Context, path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read text file: %w", err)
	}
	if !utf8.Valid(raw) {
		return strings.ToValidUTF8(string(raw), "\ufffd"), nil
	}
	return string(raw), nil
}
