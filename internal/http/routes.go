package httpx

import (
	"log/slog"
	"net/http"

	"github.com/risinglions/jobtrack/internal/adapters/clickup"
	"github.com/risinglions/jobtrack/internal/core"
	"github.com/risinglions/jobtrack/internal/service"
)

// RouterServices holds all the services needed by the HTTP router.
type RouterServices struct {
	Ingest     *service.IngestService
	Tracker    *service.TrackerService
	Recorder   *service.SyncRecorder
	Alerts     *service.AlertService
	Thresholds *service.ThresholdService
	Stats      *service.StatsService
	Jobs       core.JobRepository
	// Cache backs the health endpoint's dependency check. Optional.
	Cache core.CacheRepository
	// Optional: OAuth connect flow. When nil the auth routes are not registered.
	OAuth *clickup.OAuthConnector
	// Webhook HMAC secrets and the cron bearer secret. Empty values disable
	// the corresponding gate.
	AutomationSecret string
	TrackerSecret    string
	CronSecret       string
	Logger           *slog.Logger
}

// NewRouter creates and configures the HTTP router.
func NewRouter(services RouterServices) http.Handler {
	logger := services.Logger
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()

	webhookHandlers := &WebhookHandlers{
		Ingest:  services.Ingest,
		Tracker: services.Tracker,
		Logger:  logger,
	}
	syncHandlers := &SyncHandlers{
		Tracker:  services.Tracker,
		Recorder: services.Recorder,
		Logger:   logger,
	}
	alertHandlers := &AlertHandlers{Alerts: services.Alerts, Logger: logger}
	thresholdHandlers := &ThresholdHandlers{Thresholds: services.Thresholds, Logger: logger}
	statsHandlers := &StatsHandlers{Stats: services.Stats, Logger: logger}
	jobHandlers := &JobHandlers{Ingest: services.Ingest, Jobs: services.Jobs, Logger: logger}

	mux.Handle("POST /api/webhook/n8n",
		VerifySignature("x-n8n-signature", services.AutomationSecret)(
			http.HandlerFunc(webhookHandlers.Automation)))
	mux.Handle("POST /api/webhook/clickup",
		VerifySignature("x-signature", services.TrackerSecret)(
			http.HandlerFunc(webhookHandlers.TrackerEvent)))

	mux.Handle("GET /api/sync/clickup",
		RequireBearer(services.CronSecret)(http.HandlerFunc(syncHandlers.Run)))
	mux.Handle("GET /api/sync/log", http.HandlerFunc(syncHandlers.Log))

	mux.Handle("GET /api/alerts", http.HandlerFunc(alertHandlers.List))
	mux.Handle("POST /api/alerts/{id}/dismiss", http.HandlerFunc(alertHandlers.Dismiss))

	mux.Handle("GET /api/settings/thresholds", http.HandlerFunc(thresholdHandlers.Get))
	mux.Handle("POST /api/settings/thresholds", http.HandlerFunc(thresholdHandlers.Update))

	mux.Handle("GET /api/stats/kpi", http.HandlerFunc(statsHandlers.KPI))
	mux.Handle("GET /api/stats/health", http.HandlerFunc(statsHandlers.Health))

	mux.Handle("GET /api/jobs/{job_id}", http.HandlerFunc(jobHandlers.Get))
	mux.Handle("POST /api/jobs/{job_id}/proposal-sent", http.HandlerFunc(jobHandlers.MarkProposalSent))

	if services.OAuth != nil {
		oauthHandlers := &OAuthHandlers{Connector: services.OAuth, Logger: logger}
		mux.Handle("GET /api/auth/clickup", http.HandlerFunc(oauthHandlers.Connect))
		mux.Handle("GET /api/auth/clickup/callback", http.HandlerFunc(oauthHandlers.Callback))
	}

	health := healthHandler(services.Cache)
	mux.Handle("GET /healthz", health)
	mux.Handle("HEAD /healthz", health)

	var handler http.Handler = mux
	handler = Logging(logger)(handler)
	handler = Recover(logger)(handler)
	return handler
}
