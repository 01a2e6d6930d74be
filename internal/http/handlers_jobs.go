package httpx

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/risinglions/jobtrack/internal/core"
	"github.com/risinglions/jobtrack/internal/data"
	"github.com/risinglions/jobtrack/internal/service"
)

// JobHandlers exposes per-job operations keyed by the external job id.
type JobHandlers struct {
	Ingest *service.IngestService
	Jobs   core.JobRepository
	Logger *slog.Logger
}

// Get handles GET /api/jobs/{job_id}.
func (h *JobHandlers) Get(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("job_id")

	job, err := h.Jobs.GetByJobID(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, data.ErrJobNotFound) {
			WriteError(w, ErrorParams{Code: http.StatusNotFound, ErrCode: "job_not_found", Err: err})
			return
		}
		h.Logger.ErrorContext(r.Context(), "get job failed", "job_id", jobID, "error", err)
		WriteError(w, ErrorParams{Code: http.StatusInternalServerError, ErrCode: "get_failed", Err: err})
		return
	}
	WriteJSON(w, http.StatusOK, job)
}

// MarkProposalSent handles POST /api/jobs/{job_id}/proposal-sent. The
// timestamp is stamped once; repeat calls return the unchanged record.
func (h *JobHandlers) MarkProposalSent(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("job_id")

	job, err := h.Ingest.MarkProposalSent(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, data.ErrJobNotFound) {
			WriteError(w, ErrorParams{Code: http.StatusNotFound, ErrCode: "job_not_found", Err: err})
			return
		}
		h.Logger.ErrorContext(r.Context(), "mark proposal sent failed", "job_id", jobID, "error", err)
		WriteError(w, ErrorParams{Code: http.StatusInternalServerError, ErrCode: "update_failed", Err: err})
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"ok": true, "job": job})
}
