package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "schoolpulse/internal/errors"
	"schoolpulse/internal/exporter"
	"schoolpulse/internal/pipeline"
	"schoolpulse/pkg/contracts/domain"
)

// IncidentHandler serves the engineered dataset, its quality report,
// the statistics snapshot and the CSV export.
type IncidentHandler struct {
	service      DatasetServiceInterface
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewIncidentHandler creates an incident handler.
func NewIncidentHandler(service DatasetServiceInterface, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *IncidentHandler {
	return &IncidentHandler{
		service:      service,
		logger:       logger.With(slog.String("component", "incident_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the incident routes.
func (h *IncidentHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Group(func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.Get("/incidents", h.GetIncidents)
		r.Get("/quality", h.GetQuality)
		r.Get("/stats", h.GetStats)
		r.Post("/refresh", h.Refresh)
	})

	r.Get("/export/csv", h.ExportCSV)

	return r
}

// GetIncidents handles GET /api/incidents.
func (h *IncidentHandler) GetIncidents(w http.ResponseWriter, r *http.Request) {
	result, ok := h.compute(w, r)
	if !ok {
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   result.Dataset,
		"count":  len(result.Dataset),
	})
}

// GetQuality handles GET /api/quality. Quality describes the full
// snapshot, so filter parameters are ignored here.
func (h *IncidentHandler) GetQuality(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.Compute(r.Context(), domain.FilterSpec{})
	if err != nil {
		h.logger.ErrorContext(r.Context(), "quality computation failed",
			slog.String("error", err.Error()))
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   result.Quality,
	})
}

// GetStats handles GET /api/stats.
func (h *IncidentHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	result, ok := h.compute(w, r)
	if !ok {
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   result.Statistics,
	})
}

// ExportCSV handles GET /api/export/csv. The same filter parameters
// as /api/incidents apply.
func (h *IncidentHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	result, ok := h.compute(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="incidents.csv"`)

	if err := exporter.WriteCSV(w, result.Dataset); err != nil {
		// Headers are gone at this point, only log.
		h.logger.ErrorContext(r.Context(), "csv export failed",
			slog.String("error", err.Error()))
	}
}

// Refresh handles POST /api/refresh.
func (h *IncidentHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	h.logger.InfoContext(r.Context(), "refreshing dataset")

	if err := h.service.Refresh(r.Context()); err != nil {
		h.logger.ErrorContext(r.Context(), "refresh failed",
			slog.String("error", err.Error()))
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status":     "success",
		"fetched_at": h.service.FetchedAt(),
	})
}

// compute binds the filter from the query string and runs the
// pipeline, writing the error response itself on failure.
func (h *IncidentHandler) compute(w http.ResponseWriter, r *http.Request) (*pipeline.ComputeResult, bool) {
	spec, err := parseFilterSpec(r.URL.Query())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return nil, false
	}

	result, err := h.service.Compute(r.Context(), spec)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "dataset computation failed",
			slog.String("error", err.Error()),
			slog.String("path", r.URL.Path))
		h.errorHandler.HandleError(w, r, err)
		return nil, false
	}

	return result, true
}
