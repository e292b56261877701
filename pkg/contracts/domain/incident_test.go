package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClassifySeverity(t *testing.T) {
	tests := []struct {
		name    string
		killed  int
		wounded int
		want    SeverityClass
	}{
		{"no casualties", 0, 0, SeverityNoCasualties},
		{"injuries only", 0, 3, SeverityInjuriesOnly},
		{"single fatality", 1, 0, SeveritySingleFatality},
		{"one killed one wounded", 1, 1, SeverityMultipleCasualties},
		{"three total", 2, 1, SeverityMultipleCasualties},
		{"mass casualty boundary", 2, 2, SeverityMassCasualty},
		{"large mass casualty", 10, 20, SeverityMassCasualty},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifySeverity(tt.killed, tt.wounded))
		})
	}
}

// Every (killed, wounded) combination must map to exactly one valid
// class, and the class must agree with the casualty totals it encodes.
func TestClassifySeverityPartition(t *testing.T) {
	for killed := 0; killed <= 6; killed++ {
		for wounded := 0; wounded <= 6; wounded++ {
			got := ClassifySeverity(killed, wounded)
			assert.True(t, got.Valid(), "killed=%d wounded=%d", killed, wounded)

			total := killed + wounded
			switch got {
			case SeverityNoCasualties:
				assert.Zero(t, total)
			case SeverityInjuriesOnly:
				assert.Zero(t, killed)
				assert.Positive(t, wounded)
			case SeveritySingleFatality:
				assert.Equal(t, 1, killed)
				assert.Zero(t, wounded)
			case SeverityMultipleCasualties:
				assert.GreaterOrEqual(t, total, 2)
				assert.LessOrEqual(t, total, 3)
			case SeverityMassCasualty:
				assert.GreaterOrEqual(t, total, MassCasualtyThreshold)
			}
		}
	}
}

func TestAcademicYearBoundary(t *testing.T) {
	july := time.Date(2024, 7, 31, 0, 0, 0, 0, time.UTC)
	august := time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, "2023-2024", AcademicYear(july))
	assert.Equal(t, "2024-2025", AcademicYear(august))
}

func TestSeverityAtLeast(t *testing.T) {
	assert.True(t, SeverityMassCasualty.AtLeast(SeveritySingleFatality))
	assert.True(t, SeverityInjuriesOnly.AtLeast(SeverityInjuriesOnly))
	assert.False(t, SeverityNoCasualties.AtLeast(SeverityInjuriesOnly))
}

func TestIncidentDaysSince(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	d := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	inc := Incident{IncidentDate: &d}
	assert.Equal(t, 9, inc.DaysSince(now))

	assert.Equal(t, -1, Incident{}.DaysSince(now))
}

func TestFilterSpecIsZero(t *testing.T) {
	assert.True(t, FilterSpec{}.IsZero())

	now := time.Now()
	assert.False(t, FilterSpec{DateFrom: &now}.IsZero())
	assert.False(t, FilterSpec{Preset: PresetFatalOnly}.IsZero())
}
