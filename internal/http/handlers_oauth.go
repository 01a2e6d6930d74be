package httpx

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/risinglions/jobtrack/internal/adapters/clickup"
	apperrors "github.com/risinglions/jobtrack/internal/errors"
)

// OAuthHandlers drives the tracker OAuth connect flow.
type OAuthHandlers struct {
	Connector *clickup.OAuthConnector
	Logger    *slog.Logger
}

// Connect handles GET /api/auth/clickup: redirect to the tracker consent page.
func (h *OAuthHandlers) Connect(w http.ResponseWriter, r *http.Request) {
	state := r.URL.Query().Get("state")
	if state == "" {
		state = uuid.NewString()
	}
	http.Redirect(w, r, h.Connector.AuthURL(state), http.StatusFound)
}

// Callback handles GET /api/auth/clickup/callback: exchange the code, store
// the credential, and register the status-update webhook.
func (h *OAuthHandlers) Callback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		WriteError(w, ErrorParams{
			Code:    http.StatusBadRequest,
			ErrCode: "validation",
			Err:     apperrors.ValidationField("code", "missing authorization code"),
		})
		return
	}

	if err := h.Connector.Connect(r.Context(), code); err != nil {
		h.Logger.ErrorContext(r.Context(), "oauth connect failed", "error", err)
		WriteError(w, ErrorParams{
			Code:    http.StatusBadGateway,
			ErrCode: "internal",
			Err:     apperrors.Internal("Failed to complete tracker authorization"),
		})
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"ok": true, "connected": true})
}
