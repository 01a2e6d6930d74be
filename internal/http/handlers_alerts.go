package httpx

import (
	"log/slog"
	"net/http"
	"strconv"

	apperrors "github.com/risinglions/jobtrack/internal/errors"
	"github.com/risinglions/jobtrack/internal/service"
)

const defaultAlertListLimit = 50

// AlertHandlers exposes the active alert feed.
type AlertHandlers struct {
	Alerts *service.AlertService
	Logger *slog.Logger
}

// List handles GET /api/alerts, undismissed alerts newest first.
func (h *AlertHandlers) List(w http.ResponseWriter, r *http.Request) {
	limit := defaultAlertListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			WriteError(w, ErrorParams{
				Code:    http.StatusBadRequest,
				ErrCode: "validation",
				Err:     apperrors.ValidationField("limit", "limit must be a positive integer"),
			})
			return
		}
		limit = parsed
	}

	alerts, err := h.Alerts.ListActive(r.Context(), limit)
	if err != nil {
		h.Logger.ErrorContext(r.Context(), "list alerts failed", "error", err)
		WriteError(w, ErrorParams{
			Code:    http.StatusInternalServerError,
			ErrCode: "internal",
			Err:     apperrors.Internal("Failed to list alerts"),
		})
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"alerts": alerts})
}

// Dismiss handles POST /api/alerts/{id}/dismiss.
func (h *AlertHandlers) Dismiss(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		WriteError(w, ErrorParams{
			Code:    http.StatusBadRequest,
			ErrCode: "validation",
			Err:     apperrors.ValidationField("id", "alert id is required"),
		})
		return
	}

	dismissed, err := h.Alerts.Dismiss(r.Context(), id)
	if err != nil {
		h.Logger.ErrorContext(r.Context(), "dismiss alert failed", "alert_id", id, "error", err)
		WriteError(w, ErrorParams{
			Code:    http.StatusInternalServerError,
			ErrCode: "internal",
			Err:     apperrors.Internal("Failed to dismiss alert"),
		})
		return
	}
	if !dismissed {
		WriteError(w, ErrorParams{
			Code:    http.StatusNotFound,
			ErrCode: "not_found",
			Err:     apperrors.NotFoundf("alert %s not found", id),
		})
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"ok": true})
}
