package extractor

import (
	"context"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// extractExcel emits a "Sheet: <name>" header per worksheet in workbook order,
// one comma-joined line per row with at least one non-blank cell, and a blank
// line after every sheet.
func extractExcel(ctx context.Context, path string) (string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return "", fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	var b strings.Builder
	for _, sheet := range f.GetSheetList() {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		rows, err := f.GetRows(sheet)
		if err != nil {
			return "", fmt.Errorf("get rows for sheet %q: %w", sheet, err)
		}
		b.WriteString("Sheet: ")
		b.WriteString(sheet)
		b.WriteByte('\n')
		for _, row := range rows {
			if !hasValue(row) {
				continue
			}
			b.WriteString(strings.Join(row, ","))
			b.WriteByte('\n')
		}
		b.WriteByte('\n')
	}
	return b.String(), nil
}

func hasValue(row []string) bool {
	for _, cell := range row {
		if !isBlank(cell) {
			return true
		}
	}
	return false
}
