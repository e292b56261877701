package filter

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"schoolpulse/pkg/contracts/domain"
)

// Engine applies a filter specification to an engineered incident
// sequence. Predicates are conjunctive; the output is a stable-order
// subsequence, and an empty result is valid (downstream statistics
// return nils, not errors).
type Engine struct {
	logger *slog.Logger
	now    func() time.Time
}

// NewEngine creates a filter engine. The clock feeds the
// LastYearComplete preset; nil defaults to time.Now.
func NewEngine(logger *slog.Logger, now func() time.Time) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if now == nil {
		now = time.Now
	}
	return &Engine{
		logger: logger.With(slog.String("component", "filter_engine")),
		now:    now,
	}
}

// Apply resolves any preset into canonical predicates, then keeps the
// incidents matching every set predicate.
func (e *Engine) Apply(ctx context.Context, incidents []domain.Incident, spec domain.FilterSpec) []domain.Incident {
	resolved := e.Resolve(spec)

	stateSet := toUpperSet(resolved.States)
	intentSet := toSet(resolved.Intents)

	out := make([]domain.Incident, 0, len(incidents))
	for _, inc := range incidents {
		if matches(inc, resolved, stateSet, intentSet) {
			out = append(out, inc)
		}
	}

	e.logger.DebugContext(ctx, "filter applied",
		slog.Int("input_rows", len(incidents)),
		slog.Int("output_rows", len(out)),
		slog.String("preset", string(spec.Preset)))

	return out
}

// Resolve expands a preset into the canonical predicate set. Presets
// and manual filters are mutually exclusive per invocation: a preset
// overrides the manual selections for every field it governs. The
// returned spec always has Preset cleared.
func (e *Engine) Resolve(spec domain.FilterSpec) domain.FilterSpec {
	switch spec.Preset {
	case domain.PresetFatalOnly:
		spec.FatalOnly = true
		spec.SeverityMin = ""
	case domain.PresetMassCasualtiesOnly:
		spec.SeverityMin = domain.SeverityMassCasualty
		spec.FatalOnly = false
	case domain.PresetLastYearComplete:
		year := e.now().Year() - 1
		from := time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC)
		to := time.Date(year, 12, 31, 0, 0, 0, 0, time.UTC)
		spec.DateFrom = &from
		spec.DateTo = &to
	}
	spec.Preset = domain.PresetNone
	return spec
}

func matches(inc domain.Incident, spec domain.FilterSpec, states, intents map[string]struct{}) bool {
	if spec.DateFrom != nil || spec.DateTo != nil {
		// Date-bounded filters can only match dated incidents.
		if inc.IncidentDate == nil {
			return false
		}
		if spec.DateFrom != nil && inc.IncidentDate.Before(*spec.DateFrom) {
			return false
		}
		if spec.DateTo != nil && inc.IncidentDate.After(*spec.DateTo) {
			return false
		}
	}

	if len(states) > 0 {
		if _, ok := states[inc.State]; !ok {
			return false
		}
	}

	if len(intents) > 0 {
		if _, ok := intents[inc.Intent]; !ok {
			return false
		}
	}

	if spec.SeverityMin != "" && !inc.Severity.AtLeast(spec.SeverityMin) {
		return false
	}

	if spec.FatalOnly && !inc.IsFatal {
		return false
	}

	return true
}

func toUpperSet(values []string) map[string]struct{} {
	if len(values) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[strings.ToUpper(strings.TrimSpace(v))] = struct{}{}
	}
	return set
}

func toSet(values []string) map[string]struct{} {
	if len(values) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}
