package httpx

import (
	"net/http"

	"github.com/risinglions/jobtrack/internal/core"
)

// healthHandler answers liveness probes. With a cache wired in, an
// unreachable cache degrades the answer to 503 so orchestrators stop
// routing traffic at an instance that cannot serve thresholds or locks.
func healthHandler(cache core.CacheRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cache != nil {
			if err := cache.Health(r.Context()); err != nil {
				WriteJSON(w, http.StatusServiceUnavailable, map[string]string{
					"status": "degraded",
					"cache":  "unreachable",
				})
				return
			}
		}
		WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
