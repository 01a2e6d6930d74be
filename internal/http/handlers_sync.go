package httpx

import (
	"log/slog"
	"net/http"
	"strconv"

	apperrors "github.com/risinglions/jobtrack/internal/errors"
	"github.com/risinglions/jobtrack/internal/service"
)

const defaultSyncLogLimit = 20

// SyncHandlers exposes the on-demand tracker sweep and the sync audit log.
type SyncHandlers struct {
	Tracker  *service.TrackerService
	Recorder *service.SyncRecorder
	Logger   *slog.Logger
}

// Run handles GET /api/sync/clickup, the cron-triggered sweep endpoint.
func (h *SyncHandlers) Run(w http.ResponseWriter, r *http.Request) {
	summary, err := h.Tracker.SyncAll(r.Context())
	if err != nil {
		h.Logger.ErrorContext(r.Context(), "tracker sync failed", "error", err)
		WriteError(w, ErrorParams{
			Code:    http.StatusInternalServerError,
			ErrCode: "internal",
			Err:     apperrors.Internal("Sync failed"),
		})
		return
	}

	if summary.Skipped {
		WriteJSON(w, http.StatusOK, map[string]any{"ok": true, "skipped": true, "message": summary.Message})
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"ok":      true,
		"synced":  summary.Synced,
		"updated": summary.Updated,
		"errors":  summary.Errors,
	})
}

// Log handles GET /api/sync/log, newest runs first.
func (h *SyncHandlers) Log(w http.ResponseWriter, r *http.Request) {
	limit := defaultSyncLogLimit
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

	runs, err := h.Recorder.Runs(r.Context(), limit)
	if err != nil {
		h.Logger.ErrorContext(r.Context(), "list sync runs failed", "error", err)
		WriteError(w, ErrorParams{
			Code:    http.StatusInternalServerError,
			ErrCode: "internal",
			Err:     apperrors.Internal("Failed to list sync runs"),
		})
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"runs": runs})
}
