package config

// HTTPConfig contains HTTP server configuration.
type HTTPConfig struct {
	// Addr is the address to bind the HTTP server to.
	Addr string `env:"HTTP_ADDR" envDefault:":8080"`

	// BaseURL is the base URL of the application (e.g., "https://app.example.com").
	// Used for generating absolute URLs in OAuth redirects.
	BaseURL string `env:"APP_BASE_URL" envDefault:"http://localhost:8080"`
}

// Sanitize applies guardrails to HTTP configuration values.
func (h *HTTPConfig) Sanitize() {
	if h.Addr == "" {
		h.Addr = ":8080"
	}
}

// WebhookConfig contains shared secrets for inbound request verification.
// Empty secrets disable verification for the corresponding surface; that is
// accept-all mode, intended for local development only.
type WebhookConfig struct {
	// AutomationSecret signs automation webhook bodies (HMAC-SHA256 hex).
	AutomationSecret string `env:"AUTOMATION_WEBHOOK_SECRET"`

	// TrackerSecret signs task tracker webhook bodies (HMAC-SHA256 hex).
	TrackerSecret string `env:"TRACKER_WEBHOOK_SECRET"`

	// CronSecret is the bearer token expected on the polling sync endpoint.
	CronSecret string `env:"CRON_SECRET"`
}
