package dataprocessing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"schoolpulse/pkg/contracts/domain"
)

func TestEngineerDerivedFields(t *testing.T) {
	fe := NewFeatureEngine(nil)

	incidents := []domain.Incident{
		{IncidentDate: dated(2024, 7, 31), State: "IL", Killed: 1, Wounded: 3},
		{IncidentDate: dated(2024, 8, 1), State: "IL", Killed: 0, Wounded: 0},
		{State: "NV", Killed: 2, Wounded: 0},
	}

	out := fe.Engineer(context.Background(), incidents)
	require.Len(t, out, 3)

	first := out[0]
	assert.Equal(t, 4, first.TotalCasualties)
	assert.True(t, first.IsFatal)
	assert.True(t, first.IsMassCasualty)
	assert.Equal(t, domain.SeverityMassCasualty, first.Severity)
	require.NotNil(t, first.AcademicYear)
	assert.Equal(t, "2023-2024", *first.AcademicYear)

	second := out[1]
	assert.Equal(t, domain.SeverityNoCasualties, second.Severity)
	require.NotNil(t, second.AcademicYear)
	assert.Equal(t, "2024-2025", *second.AcademicYear)

	// Nil date: academic year stays nil, other fields still derive.
	third := out[2]
	assert.Nil(t, third.AcademicYear)
	assert.Equal(t, domain.SeverityMultipleCasualties, third.Severity)

	// Input slice is untouched.
	assert.Zero(t, incidents[0].TotalCasualties)
}

func TestEngineerStateGaps(t *testing.T) {
	fe := NewFeatureEngine(nil)

	incidents := []domain.Incident{
		{IncidentDate: dated(2020, 1, 10), State: "IL", SourceRowID: 1},
		{IncidentDate: dated(2020, 1, 1), State: "TX", SourceRowID: 2},
		{IncidentDate: dated(2020, 1, 25), State: "IL", SourceRowID: 3},
		{State: "IL", SourceRowID: 4},
		{IncidentDate: dated(2020, 2, 1), State: "TX", SourceRowID: 5},
	}

	out := fe.Engineer(context.Background(), incidents)

	// First incident per state has no gap.
	assert.Nil(t, out[0].DaysSincePreviousInState)
	assert.Nil(t, out[1].DaysSincePreviousInState)

	require.NotNil(t, out[2].DaysSincePreviousInState)
	assert.Equal(t, 15, *out[2].DaysSincePreviousInState)

	// Undated records are excluded and stay nil.
	assert.Nil(t, out[3].DaysSincePreviousInState)

	require.NotNil(t, out[4].DaysSincePreviousInState)
	assert.Equal(t, 31, *out[4].DaysSincePreviousInState)
}

func TestEngineerPreservesOrderAndCount(t *testing.T) {
	fe := NewFeatureEngine(nil)

	incidents := []domain.Incident{
		{IncidentDate: dated(2021, 3, 1), State: "CA", SourceRowID: 7},
		{IncidentDate: dated(2021, 1, 1), State: "CA", SourceRowID: 8},
	}

	out := fe.Engineer(context.Background(), incidents)

	require.Len(t, out, 2)
	assert.Equal(t, 7, out[0].SourceRowID)
	assert.Equal(t, 8, out[1].SourceRowID)
}
