package config

import "time"

// TrackerConfig contains task tracker API configuration.
type TrackerConfig struct {
	// APIKey is the personal API token used for tracker requests.
	// Empty disables tracker sync (the polling endpoint reports a no-op).
	APIKey string `env:"CLICKUP_API_KEY"`

	// BaseURL is the tracker API root.
	BaseURL string `env:"CLICKUP_BASE_URL" envDefault:"https://api.clickup.com/api/v2"`

	// SpaceID restricts webhook processing to tasks in this space.
	SpaceID string `env:"CLICKUP_SPACE_ID" envDefault:"90189402960"`

	// OAuth app credentials for the authorization-code exchange.
	OAuthClientID     string `env:"CLICKUP_CLIENT_ID"`
	OAuthClientSecret string `env:"CLICKUP_CLIENT_SECRET"`

	// Timeout bounds individual tracker API calls.
	Timeout time.Duration `env:"CLICKUP_TIMEOUT" envDefault:"15s"`
}

// Sanitize applies guardrails to tracker configuration values.
func (t *TrackerConfig) Sanitize() {
	if t.BaseURL == "" {
		t.BaseURL = "https://api.clickup.com/api/v2"
	}
	if t.Timeout <= 0 {
		t.Timeout = 15 * time.Second
	}
}

// SlackConfig contains Slack webhook notification configuration.
type SlackConfig struct {
	// WebhookURL is the incoming webhook endpoint. Empty disables Slack
	// delivery; triggered alerts are still persisted and logged.
	WebhookURL string `env:"SLACK_WEBHOOK_URL"`

	// Channel overrides the webhook's default channel when set.
	Channel string `env:"SLACK_CHANNEL"`

	// Username is the display name for posted messages.
	Username string `env:"SLACK_USERNAME" envDefault:"jobtrack"`

	// RetryLimit is the number of delivery retries after the first attempt.
	RetryLimit int `env:"SLACK_RETRY_LIMIT" envDefault:"2"`

	// Timeout bounds a single webhook POST.
	Timeout time.Duration `env:"SLACK_TIMEOUT" envDefault:"5s"`
}

// Sanitize applies guardrails to Slack configuration values.
func (s *SlackConfig) Sanitize() {
	if s.RetryLimit < 0 {
		s.RetryLimit = 0
	}
	if s.Timeout <= 0 {
		s.Timeout = 5 * time.Second
	}
}
