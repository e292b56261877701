package dataprocessing

import (
	"context"
	"log/slog"
	"time"

	"schoolpulse/pkg/contracts/domain"
)

// criticalFieldCount is the number of fields the completeness score is
// measured over: date, coordinate pair, narrative.
const criticalFieldCount = 3

// QualityAssessor computes per-field missingness and the overall
// completeness score for a deduplicated incident sequence.
type QualityAssessor struct {
	logger *slog.Logger
	now    func() time.Time
}

// NewQualityAssessor creates an assessor. The clock is injectable for
// freshness tests; nil defaults to time.Now.
func NewQualityAssessor(logger *slog.Logger, now func() time.Time) *QualityAssessor {
	if logger == nil {
		logger = slog.Default()
	}
	if now == nil {
		now = time.Now
	}
	return &QualityAssessor{
		logger: logger.With(slog.String("component", "quality_assessor")),
		now:    now,
	}
}

// Assess builds the quality report for a deduplicated sequence.
// rejectedRows and duplicateCount are threaded in from the earlier
// stages; defects are attached verbatim. The report is read-only
// output, nothing here mutates incidents.
func (q *QualityAssessor) Assess(ctx context.Context, incidents []domain.Incident,
	rejectedRows, duplicateCount int, defects []domain.ParseDefect) domain.QualityReport {

	report := domain.QualityReport{
		TotalRows:      len(incidents),
		RejectedRows:   rejectedRows,
		DuplicateCount: duplicateCount,
		ParseDefects:   defects,
	}

	var latest *time.Time
	for _, inc := range incidents {
		if inc.IncidentDate == nil {
			report.MissingDates++
		} else if latest == nil || inc.IncidentDate.After(*latest) {
			d := *inc.IncidentDate
			latest = &d
		}
		if !inc.HasCoordinates() {
			report.MissingCoords++
		}
		if inc.Narrative == "" {
			report.MissingNarratives++
		}
	}

	report.CompletenessPct = completeness(report)

	if latest != nil {
		days := int(q.now().Sub(*latest).Hours() / 24)
		report.FreshnessDays = &days
	}

	q.logger.InfoContext(ctx, "quality assessed",
		slog.Int("total_rows", report.TotalRows),
		slog.Float64("completeness_pct", report.CompletenessPct),
		slog.Int("missing_dates", report.MissingDates),
		slog.Int("missing_coords", report.MissingCoords),
		slog.Int("missing_narratives", report.MissingNarratives))

	return report
}

// completeness is (1 - missing/(N*3)) * 100, clamped to [0,100]. An
// empty dataset scores 100: there is nothing to be missing.
func completeness(r domain.QualityReport) float64 {
	if r.TotalRows == 0 {
		return 100
	}
	missing := r.MissingDates + r.MissingCoords + r.MissingNarratives
	pct := (1 - float64(missing)/float64(r.TotalRows*criticalFieldCount)) * 100
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}
