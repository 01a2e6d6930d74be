package httpx

import (
	"log/slog"
	"net/http"

	apperrors "github.com/risinglions/jobtrack/internal/errors"
	"github.com/risinglions/jobtrack/internal/service"
)

// StatsHandlers serves the dashboard aggregate endpoints.
type StatsHandlers struct {
	Stats  *service.StatsService
	Logger *slog.Logger
}

// KPI handles GET /api/stats/kpi.
func (h *StatsHandlers) KPI(w http.ResponseWriter, r *http.Request) {
	metrics, err := h.Stats.KPIMetrics(r.Context())
	if err != nil {
		h.Logger.ErrorContext(r.Context(), "kpi metrics failed", "error", err)
		WriteError(w, ErrorParams{
			Code:    http.StatusInternalServerError,
			ErrCode: "internal",
			Err:     apperrors.Internal("Failed to compute KPI metrics"),
		})
		return
	}
	WriteJSON(w, http.StatusOK, metrics)
}

// Health handles GET /api/stats/health, the pipeline health summary.
func (h *StatsHandlers) Health(w http.ResponseWriter, r *http.Request) {
	health, err := h.Stats.SystemHealth(r.Context())
	if err != nil {
		h.Logger.ErrorContext(r.Context(), "system health failed", "error", err)
		WriteError(w, ErrorParams{
			Code:    http.StatusInternalServerError,
			ErrCode: "internal",
			Err:     apperrors.Internal("Failed to compute system health"),
		})
		return
	}
	WriteJSON(w, http.StatusOK, health)
}
