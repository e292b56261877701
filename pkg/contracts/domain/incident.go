package domain

import (
	"fmt"
	"time"
)

// Incident represents one recorded gunfire event on school grounds.
// Pointer fields are nullable: a nil IncidentDate means the source row
// carried an unparseable or missing date and the row was retained with
// a parse defect rather than dropped.
type Incident struct {
	IncidentDate *time.Time `json:"incident_date"`
	State        string     `json:"state" validate:"required,len=2"`
	StateName    string     `json:"state_name,omitempty"`
	City         string     `json:"city"`
	SchoolName   string     `json:"school_name" validate:"required"`
	Latitude     *float64   `json:"latitude"`
	Longitude    *float64   `json:"longitude"`
	Killed       int        `json:"killed" validate:"min=0"`
	Wounded      int        `json:"wounded" validate:"min=0"`
	Intent       string     `json:"intent"`
	Narrative    string     `json:"narrative"`

	// SourceRowID is the ordinal of the row in the raw payload. It is
	// the tie-breaker during deduplication and is never reassigned.
	SourceRowID int `json:"source_row_id"`

	// Derived fields, attached by the feature engine. Never present in
	// the raw input.
	TotalCasualties          int           `json:"total_casualties"`
	IsFatal                  bool          `json:"is_fatal"`
	IsMassCasualty           bool          `json:"is_mass_casualty"`
	Severity                 SeverityClass `json:"severity_class,omitempty"`
	AcademicYear             *string       `json:"academic_year"`
	DaysSincePreviousInState *int          `json:"days_since_previous_in_state"`
}

// Year returns the calendar year of the incident, or 0 for nil dates.
func (i Incident) Year() int {
	if i.IncidentDate == nil {
		return 0
	}
	return i.IncidentDate.Year()
}

// HasCoordinates reports whether both latitude and longitude are present.
func (i Incident) HasCoordinates() bool {
	return i.Latitude != nil && i.Longitude != nil
}

// DaysSince returns the number of whole days between the incident date
// and now. Recomputed at query time, never persisted. Returns -1 for
// incidents without a parseable date.
func (i Incident) DaysSince(now time.Time) int {
	if i.IncidentDate == nil {
		return -1
	}
	return int(now.Sub(*i.IncidentDate).Hours() / 24)
}

// IntentUnknown is the canonical intent assigned when the source field
// is empty or missing.
const IntentUnknown = "Unknown"

// SeverityClass is one of five mutually exclusive casualty-based
// incident categories.
type SeverityClass string

const (
	SeverityNoCasualties       SeverityClass = "No Casualties"
	SeverityInjuriesOnly       SeverityClass = "Injuries Only"
	SeveritySingleFatality     SeverityClass = "Single Fatality"
	SeverityMultipleCasualties SeverityClass = "Multiple Casualties"
	SeverityMassCasualty       SeverityClass = "Mass Casualty"
)

// severityOrder ranks classes from least to most severe for floor
// comparisons in filters.
var severityOrder = map[SeverityClass]int{
	SeverityNoCasualties:       0,
	SeverityInjuriesOnly:       1,
	SeveritySingleFatality:     2,
	SeverityMultipleCasualties: 3,
	SeverityMassCasualty:       4,
}

// AtLeast reports whether s is at least as severe as floor.
func (s SeverityClass) AtLeast(floor SeverityClass) bool {
	return severityOrder[s] >= severityOrder[floor]
}

// Valid reports whether s is one of the five defined classes.
func (s SeverityClass) Valid() bool {
	_, ok := severityOrder[s]
	return ok
}

// ClassifySeverity maps casualty counts to a severity class. The rules
// are evaluated top to bottom, first match wins, and together they
// partition every (killed, wounded) combination.
func ClassifySeverity(killed, wounded int) SeverityClass {
	total := killed + wounded
	switch {
	case killed == 0 && wounded == 0:
		return SeverityNoCasualties
	case killed == 0 && wounded > 0:
		return SeverityInjuriesOnly
	case killed == 1 && wounded == 0:
		return SeveritySingleFatality
	case total >= 2 && total <= 3:
		return SeverityMultipleCasualties
	default:
		return SeverityMassCasualty
	}
}

// MassCasualtyThreshold is the FBI definition: four or more total
// casualties (killed plus wounded).
const MassCasualtyThreshold = 4

// AcademicYear returns the Aug 1 - Jul 31 school year label for a
// date, e.g. 2024-07-31 -> "2023-2024" and 2024-08-01 -> "2024-2025".
func AcademicYear(d time.Time) string {
	y := d.Year()
	if int(d.Month()) < 8 {
		y--
	}
	return fmt.Sprintf("%d-%d", y, y+1)
}
