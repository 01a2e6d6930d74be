// Package scheduler runs the periodic reconciliation loop: a cron-driven
// polling sweep against the task tracker followed by alert evaluation.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/risinglions/jobtrack/internal/service"
	"github.com/robfig/cron/v3"
)

// RunnerOptions holds the dependencies for creating a Runner.
type RunnerOptions struct {
	Tracker  *service.TrackerService
	Alerts   *service.AlertService
	Schedule string
	Logger   *slog.Logger
}

// Runner wraps robfig/cron and drives the sync-then-evaluate cycle.
type Runner struct {
	cron     *cron.Cron
	tracker  *service.TrackerService
	alerts   *service.AlertService
	schedule string
	logger   *slog.Logger
}

// NewRunner creates a new scheduler runner with the given options.
func NewRunner(opts RunnerOptions) (*Runner, error) {
	if opts.Tracker == nil {
		return nil, errors.New("TrackerService is required")
	}
	if opts.Alerts == nil {
		return nil, errors.New("AlertService is required")
	}
	if opts.Schedule == "" {
		opts.Schedule = "*/15 * * * *"
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Runner{
		cron:     cron.New(),
		tracker:  opts.Tracker,
		alerts:   opts.Alerts,
		schedule: opts.Schedule,
		logger:   opts.Logger,
	}, nil
}

// Start registers the cycle and starts the cron loop.
func (r *Runner) Start(ctx context.Context) error {
	_, err := r.cron.AddFunc(r.schedule, func() {
		r.runCycle(ctx)
	})
	if err != nil {
		return fmt.Errorf("register sync schedule %q: %w", r.schedule, err)
	}

	r.cron.Start()
	r.logger.InfoContext(ctx, "scheduler started", "schedule", r.schedule)
	return nil
}

// Stop shuts the cron loop down and waits for a running cycle to finish.
func (r *Runner) Stop() {
	stopCtx := r.cron.Stop()
	<-stopCtx.Done()
	r.logger.Info("scheduler stopped")
}

func (r *Runner) runCycle(ctx context.Context) {
	summary, err := r.tracker.SyncAll(ctx)
	if err != nil {
		r.logger.ErrorContext(ctx, "scheduled sync failed", "error", err)
	} else if !summary.Skipped {
		r.logger.InfoContext(ctx, "scheduled sync finished",
			"synced", summary.Synced,
			"updated", summary.Updated,
			"errors", len(summary.Errors))
	}

	alerts, err := r.alerts.Evaluate(ctx)
	if err != nil {
		r.logger.ErrorContext(ctx, "alert evaluation failed", "error", err)
		return
	}
	if len(alerts) > 0 {
		r.logger.InfoContext(ctx, "alerts raised", "count", len(alerts))
	}
}
