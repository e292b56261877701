package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/render"
)

// HealthHandler answers liveness and readiness probes.
type HealthHandler struct {
	service DatasetServiceInterface
	version string
	logger  *slog.Logger
	started time.Time
}

// NewHealthHandler creates a health handler.
func NewHealthHandler(service DatasetServiceInterface, version string, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{
		service: service,
		version: version,
		logger:  logger.With(slog.String("component", "health_handler")),
		started: time.Now(),
	}
}

// HealthCheck handles GET /healthz.
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	body := map[string]interface{}{
		"status":  "healthy",
		"version": h.version,
		"uptime":  time.Since(h.started).String(),
	}
	if fetchedAt := h.service.FetchedAt(); !fetchedAt.IsZero() {
		body["dataset_fetched_at"] = fetchedAt
	} else {
		body["dataset_fetched_at"] = nil
	}

	render.JSON(w, r, body)
}
