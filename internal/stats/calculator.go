package stats

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"time"

	"schoolpulse/pkg/contracts/domain"
)

// Calculator computes the aggregate statistical measures over an
// engineered incident sequence. Every metric is computed against the
// row count of the sequence passed in, so a filtered subset yields a
// correctly scaled snapshot. Metrics that are undefined for the input
// (too few states, too few complete years, zero rows) come back nil,
// never as a fabricated zero.
type Calculator struct {
	logger *slog.Logger
	now    func() time.Time
}

// NewCalculator creates a statistics calculator. The clock is
// injectable for partial-year tests; nil defaults to time.Now.
func NewCalculator(logger *slog.Logger, now func() time.Time) *Calculator {
	if logger == nil {
		logger = slog.Default()
	}
	if now == nil {
		now = time.Now
	}
	return &Calculator{
		logger: logger.With(slog.String("component", "stats_calculator")),
		now:    now,
	}
}

// Snapshot computes all aggregate measures for the given sequence.
func (c *Calculator) Snapshot(ctx context.Context, incidents []domain.Incident, opts Options) domain.StatisticsSnapshot {
	opts = opts.withDefaults(c.now)

	snap := domain.StatisticsSnapshot{TotalRows: len(incidents)}
	if len(incidents) == 0 {
		c.logger.DebugContext(ctx, "statistics over empty sequence")
		return snap
	}

	counts := countByState(incidents)
	snap.GiniCoefficient = Gini(counts)
	snap.TopStates, snap.CumulativeByState = concentration(counts, len(incidents), opts.TopK)
	snap.YearlyBreakdown = yearlyBreakdown(incidents, opts)
	snap.YoYTrendPct, snap.VolatilityPct = trend(snap.YearlyBreakdown)
	snap.FatalityRateByIntent, snap.IntentSeverity = intentOutcome(incidents)
	snap.IncidentsByMonth, snap.IncidentsByWeekday = temporalPatterns(incidents)

	c.logger.InfoContext(ctx, "statistics computed",
		slog.Int("rows", snap.TotalRows),
		slog.Int("states", len(counts)),
		slog.Bool("gini_defined", snap.GiniCoefficient != nil),
		slog.Bool("trend_defined", snap.YoYTrendPct != nil))

	return snap
}

func countByState(incidents []domain.Incident) map[string]int {
	counts := make(map[string]int)
	for _, inc := range incidents {
		counts[inc.State]++
	}
	return counts
}

// Gini computes the discrete Gini coefficient over per-state incident
// counts:
//
//	G = (2 * sum(i * x_i) / (n * sum(x_i))) - (n + 1) / n
//
// with x_i the i-th smallest count (1-indexed) and n the number of
// distinct states present. Undefined (nil) when n < 2 or all counts
// are zero.
func Gini(countsByState map[string]int) *float64 {
	n := len(countsByState)
	if n < 2 {
		return nil
	}

	counts := make([]float64, 0, n)
	total := 0.0
	for _, c := range countsByState {
		counts = append(counts, float64(c))
		total += float64(c)
	}
	if total == 0 {
		return nil
	}
	sort.Float64s(counts)

	weighted := 0.0
	for i, x := range counts {
		weighted += float64(i+1) * x
	}

	g := 2*weighted/(float64(n)*total) - float64(n+1)/float64(n)
	return &g
}

// concentration produces the top-K state table and the full
// cumulative distribution curve, both as shares of the input row
// count.
func concentration(countsByState map[string]int, totalRows, topK int) ([]domain.StateCount, []domain.CumulativePoint) {
	ranked := make([]domain.StateCount, 0, len(countsByState))
	for state, count := range countsByState {
		ranked = append(ranked, domain.StateCount{
			State:    state,
			Count:    count,
			SharePct: float64(count) / float64(totalRows) * 100,
		})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Count != ranked[j].Count {
			return ranked[i].Count > ranked[j].Count
		}
		return ranked[i].State < ranked[j].State
	})

	curve := make([]domain.CumulativePoint, len(ranked))
	cum := 0
	for i, sc := range ranked {
		cum += sc.Count
		curve[i] = domain.CumulativePoint{
			Rank:          i + 1,
			State:         sc.State,
			CumulativePct: float64(cum) / float64(totalRows) * 100,
		}
	}

	if topK < len(ranked) {
		ranked = ranked[:topK]
	}
	return ranked, curve
}

// yearlyBreakdown aggregates dated incidents by calendar year,
// ascending, marking years at or past the cutoff year as partial.
func yearlyBreakdown(incidents []domain.Incident, opts Options) []domain.YearSummary {
	byYear := make(map[int]*domain.YearSummary)
	for _, inc := range incidents {
		if inc.IncidentDate == nil {
			continue
		}
		y := inc.Year()
		s, ok := byYear[y]
		if !ok {
			s = &domain.YearSummary{Year: y, Partial: y >= opts.Cutoff.Year()}
			byYear[y] = s
		}
		s.Incidents++
		s.TotalCasualties += inc.Killed + inc.Wounded
		s.Killed += inc.Killed
		s.Wounded += inc.Wounded
		if inc.Killed > 0 {
			s.FatalIncidents++
		}
	}

	years := make([]domain.YearSummary, 0, len(byYear))
	for _, s := range byYear {
		if s.Incidents > 0 {
			s.FatalityRatePct = float64(s.FatalIncidents) / float64(s.Incidents) * 100
		}
		years = append(years, *s)
	}
	sort.Slice(years, func(i, j int) bool { return years[i].Year < years[j].Year })

	for i := 1; i < len(years); i++ {
		prev := years[i-1].Incidents
		if prev > 0 {
			change := float64(years[i].Incidents-prev) / float64(prev) * 100
			years[i].ChangePct = &change
		}
	}

	if opts.IncludePartialYear {
		for i := range years {
			years[i].Partial = false
		}
	}
	return years
}

// trend derives the year-over-year average change and its coefficient
// of variation from the complete-year series. Partial years are
// excluded; with fewer than two complete years both metrics are nil.
func trend(years []domain.YearSummary) (avgPct, volatilityPct *float64) {
	var changes []float64
	var prev *domain.YearSummary
	for i := range years {
		y := years[i]
		if y.Partial {
			continue
		}
		if prev != nil && prev.Incidents > 0 {
			changes = append(changes, float64(y.Incidents-prev.Incidents)/float64(prev.Incidents)*100)
		}
		prev = &years[i]
	}
	if len(changes) == 0 {
		return nil, nil
	}

	mean := 0.0
	for _, ch := range changes {
		mean += ch
	}
	mean /= float64(len(changes))
	avgPct = &mean

	if len(changes) < 2 || mean == 0 {
		return avgPct, nil
	}

	variance := 0.0
	for _, ch := range changes {
		variance += (ch - mean) * (ch - mean)
	}
	stddev := math.Sqrt(variance / float64(len(changes)-1))
	cv := stddev / math.Abs(mean) * 100
	volatilityPct = &cv

	return avgPct, volatilityPct
}

// intentOutcome builds the intent x severity contingency counts and
// the per-intent fatality rates.
func intentOutcome(incidents []domain.Incident) (map[string]float64, map[string]map[domain.SeverityClass]int) {
	totals := make(map[string]int)
	fatal := make(map[string]int)
	contingency := make(map[string]map[domain.SeverityClass]int)

	for _, inc := range incidents {
		totals[inc.Intent]++
		if inc.IsFatal {
			fatal[inc.Intent]++
		}
		if contingency[inc.Intent] == nil {
			contingency[inc.Intent] = make(map[domain.SeverityClass]int)
		}
		contingency[inc.Intent][inc.Severity]++
	}

	rates := make(map[string]float64, len(totals))
	for intent, n := range totals {
		rates[intent] = float64(fatal[intent]) / float64(n)
	}
	return rates, contingency
}

// temporalPatterns tallies dated incidents by month name and weekday.
func temporalPatterns(incidents []domain.Incident) (byMonth, byWeekday map[string]int) {
	byMonth = make(map[string]int)
	byWeekday = make(map[string]int)
	for _, inc := range incidents {
		if inc.IncidentDate == nil {
			continue
		}
		byMonth[inc.IncidentDate.Month().String()[:3]]++
		byWeekday[inc.IncidentDate.Weekday().String()[:3]]++
	}
	return byMonth, byWeekday
}
