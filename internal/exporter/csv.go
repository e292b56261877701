// Package exporter renders the engineered dataset for external
// consumers: CSV for the report generator and spreadsheet users.
package exporter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"schoolpulse/pkg/contracts/domain"
)

// csvHeader is the column order of the engineered export. Derived
// fields follow the source fields.
var csvHeader = []string{
	"Incident Date", "State", "State Name", "City", "School Name",
	"Latitude", "Longitude", "Number Killed", "Number Wounded",
	"Intent", "Narrative", "Total Casualties", "Is Fatal",
	"Is Mass Casualty", "Severity", "Academic Year",
	"Days Since Previous In State",
}

// dateLayout is the export date format.
const dateLayout = "2006-01-02"

// WriteCSV streams the engineered incidents as CSV. A UTF-8 BOM is
// written first so Excel recognizes the encoding.
func WriteCSV(w io.Writer, incidents []domain.Incident) error {
	if _, err := w.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
		return fmt.Errorf("write BOM: %w", err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, inc := range incidents {
		if err := cw.Write(record(inc)); err != nil {
			return fmt.Errorf("write record %d: %w", i, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

func record(inc domain.Incident) []string {
	return []string{
		formatDate(inc.IncidentDate),
		inc.State,
		inc.StateName,
		inc.City,
		inc.SchoolName,
		formatFloat(inc.Latitude),
		formatFloat(inc.Longitude),
		strconv.Itoa(inc.Killed),
		strconv.Itoa(inc.Wounded),
		inc.Intent,
		inc.Narrative,
		strconv.Itoa(inc.TotalCasualties),
		strconv.FormatBool(inc.IsFatal),
		strconv.FormatBool(inc.IsMassCasualty),
		string(inc.Severity),
		formatStringPtr(inc.AcademicYear),
		formatIntPtr(inc.DaysSincePreviousInState),
	}
}

func formatDate(d *time.Time) string {
	if d == nil {
		return ""
	}
	return d.Format(dateLayout)
}

func formatFloat(f *float64) string {
	if f == nil {
		return ""
	}
	return strconv.FormatFloat(*f, 'f', -1, 64)
}

func formatStringPtr(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func formatIntPtr(n *int) string {
	if n == nil {
		return ""
	}
	return strconv.Itoa(*n)
}
