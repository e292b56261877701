package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apierrors "schoolpulse/internal/errors"
	"schoolpulse/internal/pipeline"
	"schoolpulse/pkg/contracts/domain"
)

type stubDatasetService struct {
	result   *pipeline.ComputeResult
	err      error
	lastSpec domain.FilterSpec
	refreshs int
}

func (s *stubDatasetService) Compute(ctx context.Context, spec domain.FilterSpec) (*pipeline.ComputeResult, error) {
	s.lastSpec = spec
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func (s *stubDatasetService) Refresh(ctx context.Context) error {
	s.refreshs++
	return s.err
}

func (s *stubDatasetService) FetchedAt() time.Time {
	return time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
}

func testIncidents() []domain.Incident {
	date := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	return []domain.Incident{
		{
			IncidentDate: &date,
			State:        "IL",
			StateName:    "Illinois",
			City:         "Chicago",
			SchoolName:   "Lincoln Elementary",
			Wounded:      1,
			Intent:       "Attack on school",
			Severity:     domain.SeverityInjuriesOnly,
			SourceRowID:  1,
		},
	}
}

func newTestHandler(svc *stubDatasetService) *IncidentHandler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewIncidentHandler(svc, logger, apierrors.NewErrorHandler(logger))
}

func TestGetIncidents(t *testing.T) {
	svc := &stubDatasetService{result: &pipeline.ComputeResult{Dataset: testIncidents()}}
	handler := newTestHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/incidents?states=il,tx&fatal_only=true", nil)
	rec := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Status string            `json:"status"`
		Data   []domain.Incident `json:"data"`
		Count  int               `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "success", body.Status)
	assert.Equal(t, 1, body.Count)
	require.Len(t, body.Data, 1)
	assert.Equal(t, "Lincoln Elementary", body.Data[0].SchoolName)

	assert.Equal(t, []string{"IL", "TX"}, svc.lastSpec.States, "state codes uppercased")
	assert.True(t, svc.lastSpec.FatalOnly)
}

func TestGetIncidentsRejectsUnknownState(t *testing.T) {
	svc := &stubDatasetService{result: &pipeline.ComputeResult{}}
	handler := newTestHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/incidents?states=ZZ", nil)
	rec := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetIncidentsRejectsBadDateRange(t *testing.T) {
	svc := &stubDatasetService{result: &pipeline.ComputeResult{}}
	handler := newTestHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/incidents?date_from=2024-06-01&date_to=2024-01-01", nil)
	rec := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetIncidentsEmptyPayloadMapsTo400(t *testing.T) {
	svc := &stubDatasetService{err: apierrors.ErrEmptyPayload}
	handler := newTestHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/incidents", nil)
	rec := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetQualityIgnoresFilters(t *testing.T) {
	svc := &stubDatasetService{result: &pipeline.ComputeResult{
		Quality: domain.QualityReport{TotalRows: 10, CompletenessPct: 83.33},
	}}
	handler := newTestHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/quality?states=IL", nil)
	rec := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, svc.lastSpec.IsZero(), "quality always describes the full snapshot")

	var body struct {
		Data domain.QualityReport `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 10, body.Data.TotalRows)
}

func TestGetStats(t *testing.T) {
	svc := &stubDatasetService{result: &pipeline.ComputeResult{
		Statistics: domain.StatisticsSnapshot{TotalRows: 3},
	}}
	handler := newTestHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/stats?severity_min=Single+Fatality", nil)
	rec := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.SeveritySingleFatality, svc.lastSpec.SeverityMin)
}

func TestExportCSV(t *testing.T) {
	svc := &stubDatasetService{result: &pipeline.ComputeResult{Dataset: testIncidents()}}
	handler := newTestHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/export/csv", nil)
	rec := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "incidents.csv")
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte{0xEF, 0xBB, 0xBF}))
	assert.Contains(t, rec.Body.String(), "Lincoln Elementary")
}

func TestRefresh(t *testing.T) {
	svc := &stubDatasetService{result: &pipeline.ComputeResult{}}
	handler := newTestHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/refresh", nil)
	rec := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, svc.refreshs)
}

func TestHealthCheck(t *testing.T) {
	svc := &stubDatasetService{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := NewHealthHandler(svc, "1.0.0", logger)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	handler.HealthCheck(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "1.0.0", body["version"])
	assert.NotEmpty(t, body["dataset_fetched_at"])
}
