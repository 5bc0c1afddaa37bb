package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/spherical-ai/spherical/libs/campaign-insights/internal/observability"
)

// Pinger reports backend readiness.
type Pinger interface {
	Ready(ctx context.Context) error
}

// HealthHandler serves liveness and readiness probes.
type HealthHandler struct {
	logger  *observability.Logger
	pinger  Pinger
	service string
	timeout time.Duration
}

// NewHealthHandler creates a health handler.
func NewHealthHandler(logger *observability.Logger, pinger Pinger, service string) *HealthHandler {
	return &HealthHandler{
		logger:  logger.WithComponent("health"),
		pinger:  pinger,
		service: service,
		timeout: 2 * time.Second,
	}
}

// Health handles GET /health.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(h.logger, w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": h.service,
	})
}

// Ready handles GET /ready. It fails while the store does not answer.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if err := h.pinger.Ready(ctx); err != nil {
		h.logger.WithContext(ctx).Warn().Err(err).Msg("Store not ready")
		writeJSON(h.logger, w, http.StatusServiceUnavailable, ErrorResponseDTO{
			Error:  "not ready",
			Detail: err.Error(),
		})
		return
	}
	writeJSON(h.logger, w, http.StatusOK, map[string]string{"status": "ready"})
}
