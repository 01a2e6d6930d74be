package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/risinglions/jobtrack/config"
	"github.com/risinglions/jobtrack/internal/adapters/clickup"
	"github.com/risinglions/jobtrack/internal/adapters/scheduler"
	"github.com/risinglions/jobtrack/internal/core"
	"github.com/risinglions/jobtrack/internal/data"
	"github.com/risinglions/jobtrack/internal/observability/notify"
	"github.com/risinglions/jobtrack/internal/observability/notify/slack"
	"github.com/risinglions/jobtrack/internal/service"
)

const shutdownWaitTimeout = 15 * time.Second

// ServiceContainer holds the wired application services and the
// repositories the HTTP layer consumes directly.
type ServiceContainer struct {
	JobRepo    core.JobRepository
	Cache      core.CacheRepository
	Recorder   *service.SyncRecorder
	Ingest     *service.IngestService
	Tracker    *service.TrackerService
	Thresholds *service.ThresholdService
	Alerts     *service.AlertService
	Stats      *service.StatsService
	Scheduler  *scheduler.Runner

	// OAuth is nil when no OAuth application is configured; the auth
	// routes are then not registered.
	OAuth *clickup.OAuthConnector
}

// ServiceDeps contains the shared dependencies for building services.
type ServiceDeps struct {
	Config      *config.AppConfig
	DB          *sql.DB
	RedisClient redis.UniversalClient
	Logger      *slog.Logger
}

// NewServices wires repositories, adapters, and services.
func NewServices(deps *ServiceDeps) (ServiceContainer, error) {
	if deps == nil || deps.Config == nil {
		return ServiceContainer{}, errors.New("service deps with config are required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg := deps.Config

	jobRepo := data.NewJobRepo(deps.DB)
	agentRepo := data.NewAgentRepo(deps.DB)
	profileRepo := data.NewProfileRepo(deps.DB)
	syncRunRepo := data.NewSyncRunRepo(deps.DB)
	alertRepo := data.NewAlertRepo(deps.DB)
	statsRepo := data.NewStatsRepo(deps.DB)
	cacheRepo := data.NewRedisCacheRepo(deps.RedisClient)

	trackerClient := clickup.NewClient(clickup.Config{
		APIKey:  cfg.Tracker.APIKey,
		BaseURL: cfg.Tracker.BaseURL,
		Timeout: cfg.Tracker.Timeout,
	})

	recorder, err := service.NewSyncRecorder(service.SyncRecorderOptions{
		Runs:   syncRunRepo,
		Logger: logger,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("build sync recorder: %w", err)
	}

	resolver, err := service.NewResolver(service.ResolverOptions{
		Agents:   agentRepo,
		Profiles: profileRepo,
		Logger:   logger,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("build resolver: %w", err)
	}

	ingest, err := service.NewIngestService(service.IngestServiceOptions{
		Jobs:     jobRepo,
		Resolver: resolver,
		Recorder: recorder,
		Tracker:  trackerClient,
		Logger:   logger,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("build ingest service: %w", err)
	}

	tracker, err := service.NewTrackerService(service.TrackerServiceOptions{
		Jobs:      jobRepo,
		Tracker:   trackerClient,
		Recorder:  recorder,
		Cache:     cacheRepo,
		SpaceID:   cfg.Tracker.SpaceID,
		BatchSize: cfg.Sync.BatchSize,
		ScanLimit: cfg.Sync.ScanLimit,
		Logger:    logger,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("build tracker service: %w", err)
	}

	thresholds, err := service.NewThresholdService(service.ThresholdServiceOptions{
		Cache:  cacheRepo,
		TTL:    cfg.Cache.ConfigTTL,
		Logger: logger,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("build threshold service: %w", err)
	}

	alerts, err := service.NewAlertService(service.AlertServiceOptions{
		Alerts:      alertRepo,
		Stats:       statsRepo,
		Thresholds:  thresholds,
		Sink:        buildAlertSink(cfg.Slack, logger),
		DedupWindow: cfg.Alerts.DedupWindow,
		FailureMax:  cfg.Alerts.AutomationFailureMaxPct,
		Logger:      logger,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("build alert service: %w", err)
	}

	stats, err := service.NewStatsService(service.StatsServiceOptions{
		Stats:  statsRepo,
		Cache:  cacheRepo,
		TTL:    cfg.Cache.StatsTTL,
		Logger: logger,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("build stats service: %w", err)
	}

	runner, err := scheduler.NewRunner(scheduler.RunnerOptions{
		Tracker:  tracker,
		Alerts:   alerts,
		Schedule: cfg.Sync.Schedule,
		Logger:   logger,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("build scheduler: %w", err)
	}

	oauth, err := buildOAuthConnector(cfg, cacheRepo, logger)
	if err != nil {
		return ServiceContainer{}, err
	}

	return ServiceContainer{
		JobRepo:    jobRepo,
		Cache:      cacheRepo,
		Recorder:   recorder,
		Ingest:     ingest,
		Tracker:    tracker,
		Thresholds: thresholds,
		Alerts:     alerts,
		Stats:      stats,
		Scheduler:  runner,
		OAuth:      oauth,
	}, nil
}

// buildAlertSink wires the Slack sink when a webhook URL is configured.
// Without one, alerts are persisted and logged only.
//
//nolint:ireturn // the sink port keeps delivery pluggable.
func buildAlertSink(cfg config.SlackConfig, logger *slog.Logger) notify.Sink {
	if strings.TrimSpace(cfg.WebhookURL) == "" {
		logger.Info("slack delivery disabled", "reason", "no webhook url configured")
		return nil
	}

	client, err := slack.NewClient(slack.Config{
		WebhookURL: cfg.WebhookURL,
		Channel:    cfg.Channel,
		Username:   cfg.Username,
		Timeout:    cfg.Timeout,
		RetryLimit: cfg.RetryLimit,
	})
	if err != nil {
		logger.Error("slack sink unavailable", "error", err)
		return nil
	}
	return client
}

func buildOAuthConnector(
	cfg *config.AppConfig,
	cache core.CacheRepository,
	logger *slog.Logger,
) (*clickup.OAuthConnector, error) {
	if cfg.Tracker.OAuthClientID == "" || cfg.Tracker.OAuthClientSecret == "" {
		return nil, nil
	}

	base := strings.TrimRight(cfg.HTTP.BaseURL, "/")
	connector, err := clickup.NewOAuthConnector(clickup.OAuthConfig{
		ClientID:     cfg.Tracker.OAuthClientID,
		ClientSecret: cfg.Tracker.OAuthClientSecret,
		BaseURL:      cfg.Tracker.BaseURL,
		CallbackURL:  base + "/api/auth/clickup/callback",
		WebhookURL:   base + "/api/webhook/clickup",
		Logger:       logger,
	}, cache)
	if err != nil {
		return nil, fmt.Errorf("build oauth connector: %w", err)
	}
	return connector, nil
}

// ServiceOrchestrationConfig contains dependencies for running services.
type ServiceOrchestrationConfig struct {
	Config   *config.AppConfig
	Services ServiceContainer
	Logger   *slog.Logger
}

// RunServicesWithShutdown starts all enabled services and manages their
// lifecycle. Blocks until a shutdown signal is received.
func RunServicesWithShutdown(cfg *ServiceOrchestrationConfig) error {
	if cfg == nil || cfg.Config == nil {
		return errors.New("service orchestration config is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if _, err := cfg.Config.GetEnabledServices(); err != nil {
		return fmt.Errorf("determine enabled services: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var httpServer *http.Server
	if cfg.Config.IsHTTPServerEnabled() {
		httpServer = StartHTTPServer(&HTTPServerConfig{
			Config:   cfg.Config,
			Services: cfg.Services,
			Logger:   logger,
		})
	}

	schedulerRunning := false
	if cfg.Config.IsSchedulerEnabled() {
		if err := cfg.Services.Scheduler.Start(ctx); err != nil {
			if httpServer != nil {
				_ = ShutdownHTTPServer(ShutdownConfig{Context: ctx, Server: httpServer, Logger: logger})
			}
			return fmt.Errorf("start scheduler: %w", err)
		}
		schedulerRunning = true
	}

	return waitForShutdown(shutdownDeps{
		cancel:           cancel,
		httpServer:       httpServer,
		scheduler:        cfg.Services.Scheduler,
		schedulerRunning: schedulerRunning,
		logger:           logger,
	})
}

type shutdownDeps struct {
	cancel           context.CancelFunc
	httpServer       *http.Server
	scheduler        *scheduler.Runner
	schedulerRunning bool
	logger           *slog.Logger
}

// waitForShutdown blocks on SIGINT/SIGTERM, then stops services in order:
// HTTP first (stop accepting work), then the scheduler (drain the cycle).
func waitForShutdown(deps shutdownDeps) error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	<-quit
	deps.logger.Info("shutting down services...")
	deps.cancel()

	var firstErr error
	if deps.httpServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownWaitTimeout)
		if err := ShutdownHTTPServer(ShutdownConfig{
			Context: shutdownCtx,
			Server:  deps.httpServer,
			Logger:  deps.logger,
		}); err != nil {
			firstErr = err
		}
		cancel()
	}

	if deps.schedulerRunning {
		deps.scheduler.Stop()
	}

	return firstErr
}
