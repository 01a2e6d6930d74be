package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/risinglions/jobtrack/internal/core"
	"github.com/risinglions/jobtrack/internal/domain/model"
	"github.com/risinglions/jobtrack/internal/observability/notify"
)

// AlertServiceOptions groups dependencies for AlertService.
//
// Alerts, Stats and Thresholds are required. Sink and Logger are optional;
// without a sink, persisted alerts are simply not forwarded.
type AlertServiceOptions struct {
	Alerts      core.AlertRepository
	Stats       core.StatsRepository
	Thresholds  *ThresholdService
	Sink        notify.Sink
	DedupWindow time.Duration
	FailureMax  float64
	Logger      *slog.Logger
	Now         func() time.Time
}

// AlertService evaluates the fixed threshold rule set against the current
// aggregate metrics, persists breaches, and forwards each persisted alert
// to the notification sink best-effort.
type AlertService struct {
	alerts      core.AlertRepository
	stats       core.StatsRepository
	thresholds  *ThresholdService
	sink        notify.Sink
	dedupWindow time.Duration
	failureMax  float64
	logger      *slog.Logger
	now         func() time.Time
}

// NewAlertService constructs a new AlertService.
func NewAlertService(opts AlertServiceOptions) (*AlertService, error) {
	if opts.Alerts == nil {
		return nil, errors.New("AlertRepository is required")
	}
	if opts.Stats == nil {
		return nil, errors.New("StatsRepository is required")
	}
	if opts.Thresholds == nil {
		return nil, errors.New("ThresholdService is required")
	}
	if opts.DedupWindow <= 0 {
		opts.DedupWindow = 24 * time.Hour
	}
	if opts.FailureMax <= 0 {
		opts.FailureMax = 20
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &AlertService{
		alerts:      opts.Alerts,
		stats:       opts.Stats,
		thresholds:  opts.Thresholds,
		sink:        opts.Sink,
		dedupWindow: opts.DedupWindow,
		failureMax:  opts.FailureMax,
		logger:      opts.Logger,
		now:         opts.Now,
	}, nil
}

// Evaluate runs all threshold rules and persists each breach that is not
// suppressed by the dedup window. Returns the alerts persisted this run.
func (s *AlertService) Evaluate(ctx context.Context) ([]*model.Alert, error) {
	thresholds, err := s.thresholds.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("load thresholds: %w", err)
	}

	kpi, err := s.stats.KPIMetrics(ctx)
	if err != nil {
		return nil, fmt.Errorf("load kpi metrics: %w", err)
	}
	health, err := s.stats.SystemHealth(ctx)
	if err != nil {
		return nil, fmt.Errorf("load system health: %w", err)
	}

	breaches := s.checkRules(thresholds, kpi, health)

	var persisted []*model.Alert
	for _, breach := range breaches {
		alert, err := s.persistDeduped(ctx, breach)
		if err != nil {
			return persisted, err
		}
		if alert == nil {
			continue
		}
		persisted = append(persisted, alert)
		s.dispatch(ctx, alert)
	}

	return persisted, nil
}

func (s *AlertService) checkRules(
	thresholds model.Thresholds,
	kpi *model.KPIMetrics,
	health *model.SystemHealth,
) []*model.CreateAlertRequest {
	var breaches []*model.CreateAlertRequest

	// A zero win rate means no decided jobs yet, not a breach.
	if kpi.WinRate > 0 && kpi.WinRate < thresholds.WinRateMin {
		breaches = append(breaches, &model.CreateAlertRequest{
			AlertType: model.AlertTypeWinRateLow,
			Message: fmt.Sprintf("Win rate is %g%%, below threshold of %g%%",
				kpi.WinRate, thresholds.WinRateMin),
			CurrentValue:   kpi.WinRate,
			ThresholdValue: thresholds.WinRateMin,
		})
	}

	if health.AutomationFailurePct > s.failureMax {
		breaches = append(breaches, &model.CreateAlertRequest{
			AlertType: model.AlertTypeAutomationFailure,
			Message: fmt.Sprintf("GPT failure rate is %g%%, above %g%% threshold",
				health.AutomationFailurePct, s.failureMax),
			CurrentValue:   health.AutomationFailurePct,
			ThresholdValue: s.failureMax,
		})
	}

	if thresholds.DailyJobsMin > 0 && health.JobsReceivedToday < thresholds.DailyJobsMin {
		breaches = append(breaches, &model.CreateAlertRequest{
			AlertType: model.AlertTypeDailyJobsLow,
			Message: fmt.Sprintf("Only %d jobs received today, below minimum of %d",
				health.JobsReceivedToday, thresholds.DailyJobsMin),
			CurrentValue:   float64(health.JobsReceivedToday),
			ThresholdValue: float64(thresholds.DailyJobsMin),
		})
	}

	return breaches
}

// persistDeduped persists a breach unless an alert of the same type was
// created within the dedup window. Suppression is silent.
func (s *AlertService) persistDeduped(
	ctx context.Context,
	breach *model.CreateAlertRequest,
) (*model.Alert, error) {
	cutoff := s.now().Add(-s.dedupWindow)
	exists, err := s.alerts.ExistsSince(ctx, breach.AlertType, cutoff)
	if err != nil {
		return nil, fmt.Errorf("check alert dedup: %w", err)
	}
	if exists {
		s.logger.DebugContext(ctx, "alert suppressed by dedup window",
			"alert_type", breach.AlertType)
		return nil, nil
	}

	alert, err := s.alerts.Create(ctx, breach)
	if err != nil {
		return nil, fmt.Errorf("persist alert: %w", err)
	}

	s.logger.InfoContext(ctx, "alert created",
		"alert_type", alert.AlertType,
		"current_value", alert.CurrentValue,
		"threshold_value", alert.ThresholdValue)
	return alert, nil
}

// dispatch forwards a persisted alert to the sink. Failures are logged,
// never propagated; persistence has already succeeded at this point.
func (s *AlertService) dispatch(ctx context.Context, alert *model.Alert) {
	if s.sink == nil {
		s.logger.InfoContext(ctx, "alert sink not configured; skipping dispatch",
			"alert_type", alert.AlertType,
			"message", alert.Message)
		return
	}

	defer func() {
		if r := recover(); r != nil {
			s.logger.ErrorContext(ctx, "alert dispatch panicked",
				"alert_type", alert.AlertType,
				"panic", r)
		}
	}()

	event := notify.AlertEvent{
		AlertType:      alert.AlertType.String(),
		Message:        alert.Message,
		CurrentValue:   alert.CurrentValue,
		ThresholdValue: alert.ThresholdValue,
		OccurredAt:     alert.CreatedAt,
	}
	if err := s.sink.SendAlert(context.WithoutCancel(ctx), event); err != nil {
		s.logger.ErrorContext(ctx, "failed to dispatch alert",
			"alert_type", alert.AlertType,
			"error", err)
	}
}

// ListActive returns undismissed alerts, newest first.
func (s *AlertService) ListActive(ctx context.Context, limit int) ([]*model.Alert, error) {
	return s.alerts.ListActive(ctx, limit)
}

// Dismiss marks an alert dismissed. Returns false when it does not exist.
func (s *AlertService) Dismiss(ctx context.Context, id string) (bool, error) {
	return s.alerts.Dismiss(ctx, id)
}
