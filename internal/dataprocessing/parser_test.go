package dataprocessing

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apierrors "schoolpulse/internal/errors"
	"schoolpulse/pkg/contracts/domain"
)

const sampleCSV = `Incident Date,City,State,School name,Latitude,Longitude,Number Killed,Number Wounded,Intent,Narrative
2020-01-01,Springfield,IL,Lincoln HS,39.78,-89.65,0,2,Attack on others,Shots fired after a game
2020-02-15,Austin,TX,Travis Elementary,30.26,-97.74,1,0,,A firearm discharged
bad-date,Denver,CO,East High,,,x,-3,Accidental,
2020-03-01,,ZZ,Nowhere School,,,0,0,Unknown,
2020-03-02,Reno,NV,,,,0,0,Unknown,missing school
`

func TestParserParseCSV(t *testing.T) {
	p := NewParser(nil)
	result, err := p.ParseCSV(context.Background(), strings.NewReader(sampleCSV))
	require.NoError(t, err)

	// Rows 4 and 5 lack valid identity fields and are rejected.
	assert.Equal(t, 2, result.RejectedRows)
	require.Len(t, result.Incidents, 3)

	first := result.Incidents[0]
	assert.Equal(t, "IL", first.State)
	assert.Equal(t, "Illinois", first.StateName)
	assert.Equal(t, "Lincoln HS", first.SchoolName)
	assert.Equal(t, 0, first.Killed)
	assert.Equal(t, 2, first.Wounded)
	assert.Equal(t, 1, first.SourceRowID)
	require.NotNil(t, first.IncidentDate)
	assert.Equal(t, 2020, first.IncidentDate.Year())
	require.NotNil(t, first.Latitude)
	assert.InDelta(t, 39.78, *first.Latitude, 0.001)

	// Empty intent defaults to Unknown.
	assert.Equal(t, domain.IntentUnknown, result.Incidents[1].Intent)

	// Third row is retained with nulls/zeros plus defects.
	third := result.Incidents[2]
	assert.Nil(t, third.IncidentDate)
	assert.Zero(t, third.Killed)
	assert.Zero(t, third.Wounded)
	assert.False(t, third.HasCoordinates())
}

func TestParserDefectAnnotations(t *testing.T) {
	p := NewParser(nil)
	result, err := p.ParseCSV(context.Background(), strings.NewReader(sampleCSV))
	require.NoError(t, err)

	fields := make(map[string]int)
	for _, d := range result.Defects {
		fields[d.Field]++
		assert.Equal(t, 3, d.SourceRowID, "all defects come from the malformed row")
	}
	assert.Equal(t, 1, fields["incident_date"])
	assert.Equal(t, 1, fields["killed"], "non-numeric killed coerces to 0 with a defect")
	assert.Equal(t, 1, fields["wounded"], "negative wounded coerces to 0 with a defect")
}

func TestParserSchemaMismatch(t *testing.T) {
	p := NewParser(nil)
	csv := "City,Latitude,Longitude\nSpringfield,1,2\n"

	_, err := p.ParseCSV(context.Background(), strings.NewReader(csv))
	require.Error(t, err)
	assert.ErrorIs(t, err, apierrors.ErrSchemaMismatch)
}

func TestParserEmptyPayload(t *testing.T) {
	p := NewParser(nil)
	_, err := p.ParseCSV(context.Background(), strings.NewReader(""))
	assert.ErrorIs(t, err, apierrors.ErrEmptyPayload)
}

func TestParserIgnoresUnknownColumns(t *testing.T) {
	p := NewParser(nil)
	csv := "Incident Date,State,School name,Source 2,URL 2\n2021-05-05,NY,PS 118,foo,bar\n"

	result, err := p.ParseCSV(context.Background(), strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, result.Incidents, 1)
	assert.Equal(t, "PS 118", result.Incidents[0].SchoolName)
}

func TestParserCaseInsensitiveHeaders(t *testing.T) {
	p := NewParser(nil)
	csv := "INCIDENT DATE,state,School Name\n2021-05-05,ca,Oak Elementary\n"

	result, err := p.ParseCSV(context.Background(), strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, result.Incidents, 1)
	assert.Equal(t, "CA", result.Incidents[0].State)
}

func TestParseDateLayouts(t *testing.T) {
	for _, raw := range []string{"2020-01-05", "1/5/2020", "January 5, 2020", "Jan 5, 2020"} {
		d, ok := parseDate(raw)
		require.True(t, ok, raw)
		assert.Equal(t, 2020, d.Year())
		assert.Equal(t, 5, d.Day())
	}

	_, ok := parseDate("not a date")
	assert.False(t, ok)
}
