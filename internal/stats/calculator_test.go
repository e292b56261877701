package stats

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"schoolpulse/pkg/contracts/domain"
)

func fixedNow() time.Time {
	return time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
}

func incident(state string, y, m, d int) domain.Incident {
	date := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	return domain.Incident{IncidentDate: &date, State: state, Intent: domain.IntentUnknown}
}

func TestGiniUndefined(t *testing.T) {
	assert.Nil(t, Gini(map[string]int{}), "no states")
	assert.Nil(t, Gini(map[string]int{"TX": 5}), "single state")
	assert.Nil(t, Gini(map[string]int{"TX": 0, "IL": 0}), "all zero")
}

func TestGiniUniformDistribution(t *testing.T) {
	counts := map[string]int{"TX": 4, "IL": 4, "CA": 4, "NY": 4}
	g := Gini(counts)
	require.NotNil(t, g)
	assert.InDelta(t, 0.0, *g, 1e-9)
}

func TestGiniConcentrated(t *testing.T) {
	// All incidents in one of n states: G = (n-1)/n, approaching 1 as
	// concentration increases.
	counts := map[string]int{"TX": 100, "IL": 0, "CA": 0, "NY": 0}
	g := Gini(counts)
	require.NotNil(t, g)
	assert.InDelta(t, 0.75, *g, 1e-9)
}

func TestGiniBounds(t *testing.T) {
	distributions := []map[string]int{
		{"TX": 10, "IL": 5, "CA": 1},
		{"TX": 7, "IL": 7, "CA": 2, "NY": 9},
		{"TX": 1, "IL": 99},
	}
	for _, counts := range distributions {
		g := Gini(counts)
		require.NotNil(t, g)
		assert.GreaterOrEqual(t, *g, 0.0)
		assert.LessOrEqual(t, *g, 1.0)
	}
}

func TestSnapshotEmptyInput(t *testing.T) {
	c := NewCalculator(nil, fixedNow)

	snap := c.Snapshot(context.Background(), nil, Options{})

	assert.Zero(t, snap.TotalRows)
	assert.Nil(t, snap.GiniCoefficient)
	assert.Nil(t, snap.YoYTrendPct)
	assert.Nil(t, snap.VolatilityPct)
	assert.Empty(t, snap.TopStates)
	assert.Empty(t, snap.YearlyBreakdown)
}

func TestSnapshotTrendExcludesPartialYear(t *testing.T) {
	c := NewCalculator(nil, fixedNow)

	// Complete years 2021-2023 (10, 12, 9 incidents) plus a partial
	// 2025 that must not enter the trend.
	var incidents []domain.Incident
	addYear := func(year, n int) {
		for i := 0; i < n; i++ {
			incidents = append(incidents, incident("TX", year, 3, 1+i%27))
		}
	}
	addYear(2021, 10)
	addYear(2022, 12)
	addYear(2023, 9)
	addYear(2025, 3)

	snap := c.Snapshot(context.Background(), incidents, Options{})

	require.NotNil(t, snap.YoYTrendPct)
	// Changes: +20%, -25% -> average -2.5%.
	assert.InDelta(t, -2.5, *snap.YoYTrendPct, 0.01)
	require.NotNil(t, snap.VolatilityPct)

	require.Len(t, snap.YearlyBreakdown, 4)
	assert.True(t, snap.YearlyBreakdown[3].Partial)
}

func TestSnapshotTrendUndefinedWithOneCompleteYear(t *testing.T) {
	c := NewCalculator(nil, fixedNow)

	incidents := []domain.Incident{
		incident("TX", 2023, 1, 1),
		incident("TX", 2025, 1, 1),
	}

	snap := c.Snapshot(context.Background(), incidents, Options{})
	assert.Nil(t, snap.YoYTrendPct)
	assert.Nil(t, snap.VolatilityPct)
}

func TestSnapshotIncludePartialYear(t *testing.T) {
	c := NewCalculator(nil, fixedNow)

	incidents := []domain.Incident{
		incident("TX", 2024, 1, 1),
		incident("TX", 2024, 2, 1),
		incident("TX", 2025, 1, 1),
	}

	snap := c.Snapshot(context.Background(), incidents, Options{IncludePartialYear: true})
	require.NotNil(t, snap.YoYTrendPct)
	assert.InDelta(t, -50.0, *snap.YoYTrendPct, 0.01)
}

func TestSnapshotFatalityRateByIntent(t *testing.T) {
	c := NewCalculator(nil, fixedNow)

	// 744 attack incidents, 209 fatal -> rate ~28.1%.
	incidents := make([]domain.Incident, 0, 744)
	for i := 0; i < 744; i++ {
		inc := incident("TX", 2020, 1, 1+i%28)
		inc.Intent = "Attack on others"
		if i < 209 {
			inc.Killed = 1
			inc.IsFatal = true
			inc.Severity = domain.SeveritySingleFatality
		} else {
			inc.Severity = domain.SeverityNoCasualties
		}
		incidents = append(incidents, inc)
	}

	snap := c.Snapshot(context.Background(), incidents, Options{})

	rate, ok := snap.FatalityRateByIntent["Attack on others"]
	require.True(t, ok)
	assert.InDelta(t, 28.1, rate*100, 0.05)

	assert.Equal(t, 209, snap.IntentSeverity["Attack on others"][domain.SeveritySingleFatality])
	assert.Equal(t, 535, snap.IntentSeverity["Attack on others"][domain.SeverityNoCasualties])
}

func TestSnapshotConcentration(t *testing.T) {
	c := NewCalculator(nil, fixedNow)

	var incidents []domain.Incident
	for i := 0; i < 6; i++ {
		incidents = append(incidents, incident("TX", 2020, 1, 1+i))
	}
	for i := 0; i < 3; i++ {
		incidents = append(incidents, incident("IL", 2020, 2, 1+i))
	}
	incidents = append(incidents, incident("NV", 2020, 3, 1))

	snap := c.Snapshot(context.Background(), incidents, Options{TopK: 2})

	require.Len(t, snap.TopStates, 2)
	assert.Equal(t, "TX", snap.TopStates[0].State)
	assert.InDelta(t, 60.0, snap.TopStates[0].SharePct, 0.01)
	assert.Equal(t, "IL", snap.TopStates[1].State)

	require.Len(t, snap.CumulativeByState, 3)
	assert.InDelta(t, 60.0, snap.CumulativeByState[0].CumulativePct, 0.01)
	assert.InDelta(t, 90.0, snap.CumulativeByState[1].CumulativePct, 0.01)
	assert.InDelta(t, 100.0, snap.CumulativeByState[2].CumulativePct, 0.01)
}

func TestSnapshotTemporalPatterns(t *testing.T) {
	c := NewCalculator(nil, fixedNow)

	incidents := []domain.Incident{
		incident("TX", 2024, 1, 1), // Monday
		incident("TX", 2024, 1, 8), // Monday
		incident("TX", 2024, 2, 6), // Tuesday
	}

	snap := c.Snapshot(context.Background(), incidents, Options{})

	assert.Equal(t, 2, snap.IncidentsByMonth["Jan"])
	assert.Equal(t, 1, snap.IncidentsByMonth["Feb"])
	assert.Equal(t, 2, snap.IncidentsByWeekday["Mon"])
	assert.Equal(t, 1, snap.IncidentsByWeekday["Tue"])
}
