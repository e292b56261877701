package dataprocessing

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	apierrors "schoolpulse/internal/errors"
	"schoolpulse/pkg/contracts/domain"
)

// columnAliases maps each logical field to the header spellings seen
// in the wild. Headers are matched case-insensitively, once per
// payload; an unrecognized schema is a fatal contract error rather
// than per-field guessing.
var columnAliases = map[string][]string{
	"date":      {"incident date", "date"},
	"city":      {"city"},
	"state":     {"state"},
	"school":    {"school name", "school"},
	"latitude":  {"latitude", "lat"},
	"longitude": {"longitude", "lng", "lon"},
	"killed":    {"number killed", "killed"},
	"wounded":   {"number wounded", "wounded"},
	"intent":    {"intent"},
	"narrative": {"narrative", "description"},
}

// requiredColumns must resolve for the payload to be accepted at all.
// The remaining columns default per field when absent.
var requiredColumns = []string{"date", "state", "school"}

// dateLayouts are tried in order for each date cell.
var dateLayouts = []string{
	"2006-01-02",
	"1/2/2006",
	"1/2/06",
	"January 2, 2006",
	"Jan 2, 2006",
	"2006/01/02",
	time.RFC3339,
}

// ParseResult is the parser's output: incidents in original row order,
// the soft per-row defects, and the count of rows rejected outright
// for missing identity fields.
type ParseResult struct {
	Incidents    []domain.Incident
	Defects      []domain.ParseDefect
	RejectedRows int
}

// Parser turns raw tabular payloads into typed incident records.
// Malformed cells fail soft: the row is retained with a null/zero and
// a defect annotation, so completeness scoring can measure it later.
type Parser struct {
	logger *slog.Logger
}

// NewParser creates a parser. A nil logger falls back to slog.Default.
func NewParser(logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{logger: logger.With(slog.String("component", "parser"))}
}

// ParseCSV reads a CSV payload and returns the parsed incidents.
// Returns ErrEmptyPayload when the reader yields no rows and
// ErrSchemaMismatch when a required column cannot be resolved.
func (p *Parser) ParseCSV(ctx context.Context, r io.Reader) (*ParseResult, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv payload: %w", err)
	}
	return p.ParseRows(ctx, rows)
}

// ParseRows parses an already-tabular payload: a header row followed
// by data rows.
func (p *Parser) ParseRows(ctx context.Context, rows [][]string) (*ParseResult, error) {
	if len(rows) == 0 {
		return nil, apierrors.ErrEmptyPayload
	}

	cols, err := resolveColumns(rows[0])
	if err != nil {
		return nil, err
	}

	p.logger.InfoContext(ctx, "parsing payload",
		slog.Int("data_rows", len(rows)-1),
		slog.Int("mapped_columns", len(cols)))

	result := &ParseResult{}
	for i, row := range rows[1:] {
		rowID := i + 1
		inc, defects, ok := parseRow(cols, row, rowID)
		if !ok {
			result.RejectedRows++
			continue
		}
		result.Incidents = append(result.Incidents, inc)
		result.Defects = append(result.Defects, defects...)
	}

	p.logger.InfoContext(ctx, "payload parsed",
		slog.Int("incidents", len(result.Incidents)),
		slog.Int("rejected_rows", result.RejectedRows),
		slog.Int("parse_defects", len(result.Defects)))

	return result, nil
}

// resolveColumns matches the header row against the alias table and
// returns field -> column index. Missing required columns abort with
// ErrSchemaMismatch; missing optional columns are absent from the map
// and default downstream.
func resolveColumns(header []string) (map[string]int, error) {
	cols := make(map[string]int)
	for idx, h := range header {
		name := strings.ToLower(strings.TrimSpace(h))
		for field, aliases := range columnAliases {
			if _, done := cols[field]; done {
				continue
			}
			for _, alias := range aliases {
				if name == alias {
					cols[field] = idx
					break
				}
			}
		}
	}

	var missing []string
	for _, field := range requiredColumns {
		if _, ok := cols[field]; !ok {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing columns %s",
			apierrors.ErrSchemaMismatch, strings.Join(missing, ", "))
	}
	return cols, nil
}

// parseRow converts one data row. Returns ok=false when the row lacks
// the minimum identity fields and must be rejected.
func parseRow(cols map[string]int, row []string, rowID int) (domain.Incident, []domain.ParseDefect, bool) {
	cell := func(field string) string {
		idx, ok := cols[field]
		if !ok || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	state := strings.ToUpper(cell("state"))
	school := cell("school")
	if !domain.ValidState(state) || school == "" {
		return domain.Incident{}, nil, false
	}

	inc := domain.Incident{
		State:       state,
		StateName:   domain.StateNames[state],
		City:        cell("city"),
		SchoolName:  school,
		Narrative:   cell("narrative"),
		SourceRowID: rowID,
	}

	var defects []domain.ParseDefect
	defect := func(field, reason string) {
		defects = append(defects, domain.ParseDefect{
			SourceRowID: rowID,
			Field:       field,
			Reason:      reason,
		})
	}

	if raw := cell("date"); raw == "" {
		defect("incident_date", "empty")
	} else if d, ok := parseDate(raw); ok {
		inc.IncidentDate = &d
	} else {
		defect("incident_date", "unparseable: "+raw)
	}

	inc.Latitude = parseCoord(cell("latitude"))
	inc.Longitude = parseCoord(cell("longitude"))

	inc.Killed = parseCount(cell("killed"), "killed", defect)
	inc.Wounded = parseCount(cell("wounded"), "wounded", defect)

	if intent := cell("intent"); intent != "" {
		inc.Intent = intent
	} else {
		inc.Intent = domain.IntentUnknown
	}

	return inc, defects, true
}

// parseCount coerces a casualty cell to a non-negative integer. Empty
// cells default silently; non-numeric or negative values coerce to 0
// and file a defect.
func parseCount(raw, field string, defect func(field, reason string)) int {
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(strings.ReplaceAll(raw, ",", ""))
	if err != nil {
		defect(field, "non-numeric: "+raw)
		return 0
	}
	if n < 0 {
		defect(field, "negative: "+raw)
		return 0
	}
	return n
}

func parseCoord(raw string) *float64 {
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil
	}
	return &v
}

func parseDate(raw string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if d, err := time.Parse(layout, raw); err == nil {
			return d, true
		}
	}
	return time.Time{}, false
}
