package dataprocessing

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	apierrors "schoolpulse/internal/errors"
)

// ParseXLSX reads a spreadsheet payload and feeds the first sheet that
// carries a recognizable incident header through the row parser. The
// spreadsheet path exists for hand-maintained exports; the canonical
// source is CSV.
func (p *Parser) ParseXLSX(ctx context.Context, r io.Reader) (*ParseResult, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open spreadsheet payload: %w", err)
	}
	defer f.Close()

	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil || len(rows) == 0 {
			continue
		}
		if sheetHasIncidentHeader(rows[0]) {
			return p.ParseRows(ctx, rows)
		}
	}

	return nil, fmt.Errorf("%w: no sheet with incident columns", apierrors.ErrSchemaMismatch)
}

// sheetHasIncidentHeader checks for the identity columns that every
// usable sheet must carry.
func sheetHasIncidentHeader(header []string) bool {
	text := strings.ToLower(strings.Join(header, " "))
	return strings.Contains(text, "state") && strings.Contains(text, "school")
}
