package httpx

import (
	"encoding/json"
	"net/http"
)

// DecodeJSON strictly decodes the request body into dst. Unknown fields
// are rejected so payload typos surface as 400s instead of silently
// dropped data. On failure the error response has already been written;
// the caller just returns.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_json", Err: err})
		return false
	}
	return true
}

// WriteJSON marshals v and writes it with the given status. Marshaling
// happens before any header goes out, so an encoding failure still
// produces a clean 500 instead of a half-written body.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	// A short write means the client went away; nothing to recover.
	_, _ = w.Write(payload)
}

// ErrorParams describes one error response: the HTTP status, the stable
// machine-readable code, and the error whose message becomes the body.
type ErrorParams struct {
	Code    int
	ErrCode string
	Err     error
}

// WriteError writes the error envelope shared by every handler:
// {"error": <code>, "message": <detail>}.
func WriteError(w http.ResponseWriter, p ErrorParams) {
	WriteJSON(w, p.Code, map[string]string{
		"error":   p.ErrCode,
		"message": p.Err.Error(),
	})
}
