package httpx

import (
	"log/slog"
	"net/http"

	"github.com/risinglions/jobtrack/internal/domain/model"
	apperrors "github.com/risinglions/jobtrack/internal/errors"
	"github.com/risinglions/jobtrack/internal/service"
)

// ThresholdHandlers reads and updates the alert threshold settings.
type ThresholdHandlers struct {
	Thresholds *service.ThresholdService
	Logger     *slog.Logger
}

// Get handles GET /api/settings/thresholds.
func (h *ThresholdHandlers) Get(w http.ResponseWriter, r *http.Request) {
	thresholds, err := h.Thresholds.Get(r.Context())
	if err != nil {
		h.Logger.ErrorContext(r.Context(), "read thresholds failed", "error", err)
		WriteError(w, ErrorParams{
			Code:    http.StatusInternalServerError,
			ErrCode: "internal",
			Err:     apperrors.Internal("Failed to read thresholds"),
		})
		return
	}
	WriteJSON(w, http.StatusOK, thresholds)
}

// Update handles POST /api/settings/thresholds with a partial patch;
// omitted fields reset to their defaults.
func (h *ThresholdHandlers) Update(w http.ResponseWriter, r *http.Request) {
	var patch model.ThresholdsPatch
	if !DecodeJSON(w, r, &patch) {
		return
	}

	thresholds, err := h.Thresholds.Update(r.Context(), patch)
	if err != nil {
		h.Logger.ErrorContext(r.Context(), "update thresholds failed", "error", err)
		WriteError(w, ErrorParams{
			Code:    http.StatusInternalServerError,
			ErrCode: "internal",
			Err:     apperrors.Internal("Failed to update thresholds"),
		})
		return
	}
	WriteJSON(w, http.StatusOK, thresholds)
}
