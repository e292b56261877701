package domain

// QualityReport summarizes the data-quality findings of one pipeline
// run. It is a read-only value object consumed by reporting; nothing
// in the pipeline mutates incidents based on it.
type QualityReport struct {
	TotalRows         int     `json:"total_rows"`
	RejectedRows      int     `json:"rejected_rows"`
	DuplicateCount    int     `json:"duplicate_count"`
	MissingDates      int     `json:"missing_dates"`
	MissingCoords     int     `json:"missing_coords"`
	MissingNarratives int     `json:"missing_narratives"`
	CompletenessPct   float64 `json:"completeness_pct"`

	// FreshnessDays is the age in days of the most recent incident
	// with a parseable date; nil when no row carries a date.
	FreshnessDays *int `json:"freshness_days"`

	// ParseDefects lists the soft per-row coercion failures. Rows with
	// defects are retained, so defect counts and missing-field counts
	// overlap deliberately.
	ParseDefects []ParseDefect `json:"parse_defects,omitempty"`
}

// ParseDefect records one soft, row-level parse failure. The row stays
// in the dataset with a null/zero in the affected field.
type ParseDefect struct {
	SourceRowID int    `json:"source_row_id"`
	Field       string `json:"field"`
	Reason      string `json:"reason"`
}
