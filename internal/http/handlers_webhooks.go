package httpx

import (
	"encoding/json"
	"log/slog"
	"net/http"

	apperrors "github.com/risinglions/jobtrack/internal/errors"
	"github.com/risinglions/jobtrack/internal/service"
)

// WebhookHandlers receives the inbound automation and tracker webhooks.
type WebhookHandlers struct {
	Ingest  *service.IngestService
	Tracker *service.TrackerService
	Logger  *slog.Logger
}

// Automation handles POST /api/webhook/n8n. The payload shape is open-ended
// (flat or nested), so it is decoded into a map and normalized downstream.
func (h *WebhookHandlers) Automation(w http.ResponseWriter, r *http.Request) {
	var payload map[string]any
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_json", Err: err})
		return
	}

	job, err := h.Ingest.ProcessAutomationWebhook(r.Context(), payload)
	if err != nil {
		if apperrors.IsValidation(err) {
			WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "validation", Err: err})
			return
		}
		h.Logger.ErrorContext(r.Context(), "automation webhook failed", "error", err)
		WriteError(w, ErrorParams{
			Code:    http.StatusInternalServerError,
			ErrCode: "internal",
			Err:     apperrors.Internal("Failed to process webhook"),
		})
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"ok": true, "job_id": job.ID})
}

// TrackerEvent handles POST /api/webhook/clickup status-update events.
func (h *WebhookHandlers) TrackerEvent(w http.ResponseWriter, r *http.Request) {
	var payload map[string]any
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_json", Err: err})
		return
	}

	result, err := h.Tracker.ProcessEvent(r.Context(), payload)
	if err != nil {
		if apperrors.IsValidation(err) {
			WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "validation", Err: err})
			return
		}
		h.Logger.ErrorContext(r.Context(), "tracker webhook failed", "error", err)
		WriteError(w, ErrorParams{
			Code:    http.StatusInternalServerError,
			ErrCode: "internal",
			Err:     apperrors.Internal("Failed to process event"),
		})
		return
	}

	resp := map[string]any{"ok": true}
	if result.Skipped {
		resp["skipped"] = true
		if result.Reason != "" {
			resp["reason"] = result.Reason
		}
	}
	if result.Updated {
		resp["updated"] = true
	}
	if result.Message != "" {
		resp["message"] = result.Message
	}
	WriteJSON(w, http.StatusOK, resp)
}
