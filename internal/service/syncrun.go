package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/risinglions/jobtrack/internal/core"
	"github.com/risinglions/jobtrack/internal/domain/model"
)

// SyncRecorderOptions groups dependencies for SyncRecorder.
type SyncRecorderOptions struct {
	Runs   core.SyncRunRepository
	Logger *slog.Logger
}

// SyncRecorder wraps ingestion work in a sync-run audit record. Every run
// is started before any upsert activity and completed exactly once, on
// success, error and panic paths alike. A started run left running is a
// defect, not an accepted state.
type SyncRecorder struct {
	runs   core.SyncRunRepository
	logger *slog.Logger
}

// NewSyncRecorder constructs a new SyncRecorder.
func NewSyncRecorder(opts SyncRecorderOptions) (*SyncRecorder, error) {
	if opts.Runs == nil {
		return nil, errors.New("SyncRunRepository is required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &SyncRecorder{runs: opts.Runs, logger: opts.Logger}, nil
}

// Run starts a run for source, invokes fn, and completes the run with the
// result fn reports. When fn returns an error or panics, the run completes
// as failed with the reason attached. The completion write uses a
// cancellation-detached context so an aborted request still leaves a
// terminal audit row.
func (s *SyncRecorder) Run(
	ctx context.Context,
	source model.SyncSource,
	fn func(ctx context.Context) (model.SyncResult, error),
) (result model.SyncResult, err error) {
	run, startErr := s.runs.Start(ctx, source)
	if startErr != nil {
		return model.SyncResult{}, fmt.Errorf("start sync run: %w", startErr)
	}

	completed := false
	complete := func(r model.SyncResult) {
		if completed {
			return
		}
		completed = true
		if completeErr := s.runs.Complete(context.WithoutCancel(ctx), run.ID, r); completeErr != nil {
			s.logger.ErrorContext(ctx, "failed to complete sync run",
				"run_id", run.ID,
				"source", source,
				"error", completeErr)
		}
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sync run panicked: %v", r)
			result = model.SyncResult{
				Status: model.SyncStatusFailed,
				Errors: []string{fmt.Sprintf("panic: %v", r)},
			}
			complete(result)
			return
		}
		complete(result)
	}()

	result, err = fn(ctx)
	if err != nil {
		if result.Status == "" || result.Status == model.SyncStatusRunning {
			result.Status = model.SyncStatusFailed
		}
		result.Errors = append(result.Errors, err.Error())
		return result, err
	}

	if result.Status == "" || result.Status == model.SyncStatusRunning {
		result.Status = model.SyncStatusSuccess
	}
	return result, nil
}

// Runs lists the most recent sync runs, newest first.
func (s *SyncRecorder) Runs(ctx context.Context, limit int) ([]*model.SyncRun, error) {
	return s.runs.List(ctx, limit)
}

// Latest returns the most recent sync run, or nil when none exist.
func (s *SyncRecorder) Latest(ctx context.Context) (*model.SyncRun, error) {
	return s.runs.Latest(ctx)
}
