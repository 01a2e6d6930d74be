package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/risinglions/jobtrack/internal/core"
	"github.com/risinglions/jobtrack/internal/domain/model"
)

// IngestServiceOptions groups dependencies for IngestService.
//
// Jobs, Resolver and Recorder are required. Tracker and Logger are optional;
// without a tracker client the proposal-sent push is skipped.
type IngestServiceOptions struct {
	Jobs     core.JobRepository
	Resolver *Resolver
	Recorder *SyncRecorder
	Tracker  core.TrackerClient
	Logger   *slog.Logger
}

// IngestService runs the webhook ingestion path: normalize the payload,
// resolve entity references, and merge into the canonical record under a
// sync-run audit wrapper.
type IngestService struct {
	jobs     core.JobRepository
	resolver *Resolver
	recorder *SyncRecorder
	tracker  core.TrackerClient
	logger   *slog.Logger
}

// NewIngestService constructs a new IngestService.
func NewIngestService(opts IngestServiceOptions) (*IngestService, error) {
	if opts.Jobs == nil {
		return nil, errors.New("JobRepository is required")
	}
	if opts.Resolver == nil {
		return nil, errors.New("Resolver is required")
	}
	if opts.Recorder == nil {
		return nil, errors.New("SyncRecorder is required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &IngestService{
		jobs:     opts.Jobs,
		resolver: opts.Resolver,
		recorder: opts.Recorder,
		tracker:  opts.Tracker,
		logger:   opts.Logger,
	}, nil
}

// ProcessAutomationWebhook ingests one automation payload. The sync run is
// recorded regardless of outcome; normalization failures complete the run
// as failed with the missing-field reason.
func (s *IngestService) ProcessAutomationWebhook(
	ctx context.Context,
	payload map[string]any,
) (*model.Job, error) {
	var job *model.Job

	_, err := s.recorder.Run(ctx, model.SyncSourceAutomation,
		func(ctx context.Context) (model.SyncResult, error) {
			update, err := NormalizeUpdate(payload)
			if err != nil {
				return model.SyncResult{}, err
			}

			s.resolver.Resolve(ctx, update)

			job, err = s.jobs.Upsert(ctx, update)
			if err != nil {
				return model.SyncResult{}, fmt.Errorf("upsert job %s: %w", update.JobID, err)
			}

			s.logger.InfoContext(ctx, "job ingested",
				"job_id", job.JobID,
				"title", job.Title,
				"outcome", job.Outcome)

			return model.SyncResult{
				RecordsSynced:  1,
				RecordsUpdated: 1,
				Status:         model.SyncStatusSuccess,
			}, nil
		})
	if err != nil {
		return nil, err
	}

	return job, nil
}

// MarkProposalSent stamps the proposal-sent timestamp (first call wins) and
// pushes the sent status to the tracker best-effort. Tracker push failures
// are logged, never propagated.
func (s *IngestService) MarkProposalSent(ctx context.Context, jobID string) (*model.Job, error) {
	job, err := s.jobs.MarkProposalSent(ctx, jobID)
	if err != nil {
		return nil, err
	}

	if s.tracker != nil && s.tracker.Configured() && job.TrackerTaskID != nil {
		if pushErr := s.tracker.UpdateTaskStatus(ctx, *job.TrackerTaskID, "Proposal Sent"); pushErr != nil {
			s.logger.WarnContext(ctx, "failed to push proposal-sent status to tracker",
				"job_id", job.JobID,
				"task_id", *job.TrackerTaskID,
				"error", pushErr)
		}
	}

	return job, nil
}
