package clickup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/risinglions/jobtrack/internal/core"
	"golang.org/x/oauth2"
)

// credentialTTL keeps stored OAuth material for about a year, mirroring
// the durable threshold entries.
const credentialTTL = 8760 * time.Hour

// OAuthConfig captures the ClickUp OAuth application settings.
type OAuthConfig struct {
	ClientID     string
	ClientSecret string
	BaseURL      string
	CallbackURL  string
	WebhookURL   string
	Client       *http.Client
	Logger       *slog.Logger
}

// OAuthConnector exchanges an authorization code for an access token,
// stores the credential in the cache, and registers the status-update
// webhook on the authorized team.
type OAuthConnector struct {
	conf       *oauth2.Config
	baseURL    string
	webhookURL string
	cache      core.CacheRepository
	client     *http.Client
	logger     *slog.Logger
}

// NewOAuthConnector builds an OAuthConnector.
func NewOAuthConnector(cfg OAuthConfig, cache core.CacheRepository) (*OAuthConnector, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, errors.New("oauth client id and secret are required")
	}
	if cache == nil {
		return nil, errors.New("cache repository is required")
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	hc := cfg.Client
	if hc == nil {
		hc = &http.Client{Timeout: 15 * time.Second}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &OAuthConnector{
		conf: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.CallbackURL,
			Endpoint: oauth2.Endpoint{
				AuthURL:  "https://app.clickup.com/api",
				TokenURL: baseURL + "/oauth/token",
			},
		},
		baseURL:    baseURL,
		webhookURL: strings.TrimSpace(cfg.WebhookURL),
		cache:      cache,
		client:     hc,
		logger:     logger,
	}, nil
}

// AuthURL returns the ClickUp authorization page URL for the connect flow.
func (o *OAuthConnector) AuthURL(state string) string {
	return o.conf.AuthCodeURL(state)
}

// Connect completes the OAuth flow for an authorization code: exchanges it
// for an access token, persists the token and the first authorized team id,
// and ensures the status-update webhook exists. Webhook registration is
// best-effort; a failure there leaves the connection usable.
func (o *OAuthConnector) Connect(ctx context.Context, code string) error {
	if code == "" {
		return errors.New("authorization code is required")
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, o.client)
	token, err := o.conf.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("exchange authorization code: %w", err)
	}

	if err := o.storeJSON(ctx, core.CacheKeyOAuthToken,
		map[string]string{"access_token": token.AccessToken}); err != nil {
		return fmt.Errorf("store access token: %w", err)
	}

	teamID, err := o.firstTeamID(ctx, token.AccessToken)
	if err != nil {
		return fmt.Errorf("fetch authorized teams: %w", err)
	}
	if teamID == "" {
		o.logger.WarnContext(ctx, "no authorized teams on connected account")
		return nil
	}

	if err := o.storeJSON(ctx, core.CacheKeyOAuthTeamID,
		map[string]string{"team_id": teamID}); err != nil {
		return fmt.Errorf("store team id: %w", err)
	}

	if o.webhookURL != "" {
		if err := o.ensureWebhook(ctx, token.AccessToken, teamID); err != nil {
			o.logger.WarnContext(ctx, "failed to register tracker webhook",
				"team_id", teamID,
				"error", err)
		}
	}

	return nil
}

func (o *OAuthConnector) storeJSON(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return o.cache.Set(ctx, key, raw, credentialTTL)
}

func (o *OAuthConnector) firstTeamID(ctx context.Context, accessToken string) (string, error) {
	var payload struct {
		Teams []struct {
			ID string `json:"id"`
		} `json:"teams"`
	}
	if err := o.getJSON(ctx, "/team", accessToken, &payload); err != nil {
		return "", err
	}
	if len(payload.Teams) == 0 {
		return "", nil
	}
	return payload.Teams[0].ID, nil
}

// ensureWebhook creates the taskStatusUpdated webhook unless one already
// points at our endpoint.
func (o *OAuthConnector) ensureWebhook(ctx context.Context, accessToken, teamID string) error {
	var existing struct {
		Webhooks []struct {
			Endpoint string `json:"endpoint"`
		} `json:"webhooks"`
	}
	if err := o.getJSON(ctx, "/team/"+teamID+"/webhook", accessToken, &existing); err != nil {
		return err
	}
	for _, hook := range existing.Webhooks {
		if hook.Endpoint == o.webhookURL {
			return nil
		}
	}

	body, err := json.Marshal(map[string]any{
		"endpoint": o.webhookURL,
		"events":   []string{"taskStatusUpdated"},
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		o.baseURL+"/team/"+teamID+"/webhook", strings.NewReader(string(body)))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return apiError(resp)
	}
	return nil
}

func (o *OAuthConnector) getJSON(ctx context.Context, path, accessToken string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", accessToken)

	resp, err := o.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return apiError(resp)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
