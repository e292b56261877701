package domain

// StatisticsSnapshot bundles the aggregate measures computed over one
// (possibly filtered) incident sequence. Nullable metrics are nil when
// the input is too small to define them; callers must render
// "insufficient data" rather than a numeric zero.
type StatisticsSnapshot struct {
	TotalRows int `json:"total_rows"`

	// GiniCoefficient measures geographic concentration of incidents
	// across states: 0 = perfectly even, approaching 1 = maximally
	// concentrated. Nil when fewer than two states are present or all
	// counts are zero.
	GiniCoefficient *float64 `json:"gini_coefficient"`

	// YoYTrendPct is the average of year-over-year percentage changes
	// across consecutive complete calendar years. VolatilityPct is the
	// coefficient of variation of those changes, as a percentage. Both
	// nil with fewer than two complete years.
	YoYTrendPct   *float64 `json:"yoy_trend_pct"`
	VolatilityPct *float64 `json:"volatility_pct"`

	// FatalityRateByIntent maps each intent to the share of its
	// incidents that were fatal, in [0,1].
	FatalityRateByIntent map[string]float64 `json:"fatality_rate_by_intent,omitempty"`

	// IntentSeverity is the intent x severity-class contingency count.
	IntentSeverity map[string]map[SeverityClass]int `json:"intent_severity,omitempty"`

	TopStates          []StateCount      `json:"top_states,omitempty"`
	CumulativeByState  []CumulativePoint `json:"cumulative_by_state,omitempty"`
	YearlyBreakdown    []YearSummary     `json:"yearly_breakdown,omitempty"`
	IncidentsByMonth   map[string]int    `json:"incidents_by_month,omitempty"`
	IncidentsByWeekday map[string]int    `json:"incidents_by_weekday,omitempty"`
}

// StateCount is one state's incident count and its share of the rows
// the snapshot was computed over.
type StateCount struct {
	State    string  `json:"state"`
	Count    int     `json:"count"`
	SharePct float64 `json:"share_pct"`
}

// CumulativePoint is one point on the Pareto-style cumulative
// distribution curve: after the Rank highest-count states,
// CumulativePct of all incidents are covered.
type CumulativePoint struct {
	Rank          int     `json:"rank"`
	State         string  `json:"state"`
	CumulativePct float64 `json:"cumulative_pct"`
}

// YearSummary is one calendar year's line in the annual breakdown.
type YearSummary struct {
	Year            int      `json:"year"`
	Incidents       int      `json:"incidents"`
	TotalCasualties int      `json:"total_casualties"`
	Killed          int      `json:"killed"`
	Wounded         int      `json:"wounded"`
	FatalIncidents  int      `json:"fatal_incidents"`
	FatalityRatePct float64  `json:"fatality_rate_pct"`
	ChangePct       *float64 `json:"change_pct"`
	Partial         bool     `json:"partial"`
}
