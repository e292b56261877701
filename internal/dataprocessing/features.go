package dataprocessing

import (
	"context"
	"log/slog"
	"sort"

	"schoolpulse/pkg/contracts/domain"
)

// FeatureEngine attaches the derived fields to a deduplicated incident
// sequence. Every per-record field is a pure function of that record;
// the per-state recency gap is the single cross-record computation.
type FeatureEngine struct {
	logger *slog.Logger
}

// NewFeatureEngine creates a feature engine. A nil logger falls back
// to slog.Default.
func NewFeatureEngine(logger *slog.Logger) *FeatureEngine {
	if logger == nil {
		logger = slog.Default()
	}
	return &FeatureEngine{logger: logger.With(slog.String("component", "feature_engine"))}
}

// Engineer returns the same sequence with derived fields attached.
// No records are added or removed and the input slice is not mutated.
func (e *FeatureEngine) Engineer(ctx context.Context, incidents []domain.Incident) []domain.Incident {
	out := make([]domain.Incident, len(incidents))
	copy(out, incidents)

	for i := range out {
		inc := &out[i]
		inc.TotalCasualties = inc.Killed + inc.Wounded
		inc.IsFatal = inc.Killed > 0
		inc.IsMassCasualty = inc.TotalCasualties >= domain.MassCasualtyThreshold
		inc.Severity = domain.ClassifySeverity(inc.Killed, inc.Wounded)

		if inc.IncidentDate != nil {
			ay := domain.AcademicYear(*inc.IncidentDate)
			inc.AcademicYear = &ay
		}
	}

	attachStateGaps(out)

	e.logger.InfoContext(ctx, "features engineered",
		slog.Int("incidents", len(out)))

	return out
}

// attachStateGaps computes days_since_previous_in_state: for each
// state's chronologically ordered incidents, the whole-day gap to the
// immediately preceding incident in that state. The first incident per
// state and all records without a date stay nil.
func attachStateGaps(incidents []domain.Incident) {
	// Indices of dated incidents, ordered by (state, date); ties fall
	// back to source row order so the result is deterministic.
	idx := make([]int, 0, len(incidents))
	for i := range incidents {
		if incidents[i].IncidentDate != nil {
			idx = append(idx, i)
		}
	}
	sort.SliceStable(idx, func(a, b int) bool {
		ia, ib := incidents[idx[a]], incidents[idx[b]]
		if ia.State != ib.State {
			return ia.State < ib.State
		}
		if !ia.IncidentDate.Equal(*ib.IncidentDate) {
			return ia.IncidentDate.Before(*ib.IncidentDate)
		}
		return ia.SourceRowID < ib.SourceRowID
	})

	prevByState := make(map[string]int)
	for _, i := range idx {
		inc := &incidents[i]
		if j, ok := prevByState[inc.State]; ok {
			gap := int(inc.IncidentDate.Sub(*incidents[j].IncidentDate).Hours() / 24)
			inc.DaysSincePreviousInState = &gap
		}
		prevByState[inc.State] = i
	}
}
