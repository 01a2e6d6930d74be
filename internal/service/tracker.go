package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	jmespath "github.com/jmespath-community/go-jmespath"
	"github.com/risinglions/jobtrack/internal/core"
	"github.com/risinglions/jobtrack/internal/domain/model"
	apperrors "github.com/risinglions/jobtrack/internal/errors"
	"golang.org/x/sync/errgroup"
)

// trackerEventStatusUpdated is the only tracker event the pipeline acts on.
const trackerEventStatusUpdated = "taskStatusUpdated"

// syncLockTTL bounds how long a crashed sweep can hold the lock.
const syncLockTTL = 5 * time.Minute

// TrackerServiceOptions groups dependencies for TrackerService.
type TrackerServiceOptions struct {
	Jobs     core.JobRepository
	Tracker  core.TrackerClient
	Recorder *SyncRecorder

	// Cache, when set, backs the cross-instance sweep lock. Without it
	// concurrent sweeps are not excluded.
	Cache core.CacheRepository

	SpaceID   string
	BatchSize int
	ScanLimit int
	Logger    *slog.Logger
}

// TrackerService reconciles canonical records against the external task
// tracker: a polling sweep over open tracker-linked jobs, and the push
// path for tracker status-change webhook events.
type TrackerService struct {
	jobs      core.JobRepository
	tracker   core.TrackerClient
	recorder  *SyncRecorder
	cache     core.CacheRepository
	spaceID   string
	batchSize int
	scanLimit int
	logger    *slog.Logger
}

// NewTrackerService constructs a new TrackerService.
func NewTrackerService(opts TrackerServiceOptions) (*TrackerService, error) {
	if opts.Jobs == nil {
		return nil, errors.New("JobRepository is required")
	}
	if opts.Tracker == nil {
		return nil, errors.New("TrackerClient is required")
	}
	if opts.Recorder == nil {
		return nil, errors.New("SyncRecorder is required")
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 10
	}
	if opts.ScanLimit <= 0 {
		opts.ScanLimit = 100
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &TrackerService{
		jobs:      opts.Jobs,
		tracker:   opts.Tracker,
		recorder:  opts.Recorder,
		cache:     opts.Cache,
		spaceID:   opts.SpaceID,
		batchSize: opts.BatchSize,
		scanLimit: opts.ScanLimit,
		logger:    opts.Logger,
	}, nil
}

// SyncSummary reports the outcome of one polling sweep.
type SyncSummary struct {
	Skipped bool     `json:"skipped,omitempty"`
	Message string   `json:"message,omitempty"`
	Synced  int      `json:"synced"`
	Updated int      `json:"updated"`
	Errors  []string `json:"errors"`
}

// SyncAll scans open tracker-linked jobs and reconciles each against the
// tracker's current status. Items are processed in fixed-size concurrent
// batches; a failing item is collected, never aborts its batch. Item
// failures are attached to the audit row but do not fail the run.
// A cache-backed lock keeps concurrent sweeps (cron and the manual
// endpoint) from overlapping.
func (s *TrackerService) SyncAll(ctx context.Context) (SyncSummary, error) {
	if !s.tracker.Configured() {
		s.logger.InfoContext(ctx, "tracker not configured; skipping sync")
		return SyncSummary{Skipped: true, Message: "tracker not configured — skipping sync"}, nil
	}

	if s.cache != nil {
		acquired, err := s.cache.SetIfNotExists(ctx, core.CacheKeySyncLock, []byte("1"), syncLockTTL)
		switch {
		case err != nil:
			// A cache outage must not stop reconciliation.
			s.logger.WarnContext(ctx, "sync lock unavailable; proceeding unlocked", "error", err)
		case !acquired:
			s.logger.InfoContext(ctx, "sync already in progress; skipping")
			return SyncSummary{Skipped: true, Message: "sync already in progress"}, nil
		default:
			defer func() {
				if _, delErr := s.cache.Delete(ctx, core.CacheKeySyncLock); delErr != nil {
					s.logger.WarnContext(ctx, "release sync lock failed", "error", delErr)
				}
			}()
		}
	}

	summary := SyncSummary{Errors: []string{}}
	_, err := s.recorder.Run(ctx, model.SyncSourceTracker,
		func(ctx context.Context) (model.SyncResult, error) {
			jobs, err := s.jobs.ListOpenTracked(ctx, s.scanLimit)
			if err != nil {
				return model.SyncResult{}, fmt.Errorf("list open tracked jobs: %w", err)
			}

			synced, updated, itemErrs := s.reconcileBatches(ctx, jobs)
			summary.Synced = synced
			summary.Updated = updated
			summary.Errors = itemErrs

			// Item-level failures are attached for visibility; the run
			// itself only fails when the sweep could not execute at all.
			return model.SyncResult{
				RecordsSynced:  synced,
				RecordsUpdated: updated,
				Errors:         itemErrs,
				Status:         model.SyncStatusSuccess,
			}, nil
		})
	if err != nil {
		return summary, err
	}
	return summary, nil
}

// reconcileBatches fires each batch's items concurrently and collects
// results independently. Batches run sequentially to respect the
// tracker's rate limits; there is no retry or backoff on item failure.
func (s *TrackerService) reconcileBatches(
	ctx context.Context,
	jobs []*model.Job,
) (synced, updated int, errs []string) {
	errs = []string{}
	var mu sync.Mutex

	for start := 0; start < len(jobs); start += s.batchSize {
		end := min(start+s.batchSize, len(jobs))

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(s.batchSize)
		for _, job := range jobs[start:end] {
			g.Go(func() error {
				changed, err := s.reconcileJob(gctx, job)
				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					errs = append(errs, err.Error())
					return nil
				}
				synced++
				if changed {
					updated++
				}
				return nil
			})
		}
		// Item errors are collected, not returned, so Wait cannot fail.
		_ = g.Wait()
	}

	return synced, updated, errs
}

// reconcileJob fetches the job's tracker task and applies the status when
// it differs from the stored label or would change the outcome.
func (s *TrackerService) reconcileJob(ctx context.Context, job *model.Job) (bool, error) {
	taskID := *job.TrackerTaskID
	task, err := s.tracker.GetTask(ctx, taskID)
	if err != nil {
		return false, fmt.Errorf("task %s: %w", taskID, err)
	}
	if task == nil {
		return false, nil
	}

	mapped, hasMapped := model.MapStatusOutcome(task.Status)
	statusChanged := job.TrackerStatus == nil || *job.TrackerStatus != task.Status
	outcomeChanged := hasMapped && (job.Outcome == nil || *job.Outcome != mapped)
	if !statusChanged && !outcomeChanged {
		return false, nil
	}

	if _, err := s.jobs.ApplyTrackerStatus(ctx, core.ApplyTrackerStatusParams{
		TaskID: taskID,
		Status: task.Status,
	}); err != nil {
		return false, fmt.Errorf("task %s: %w", taskID, err)
	}
	return true, nil
}

// EventResult reports how a tracker webhook event was handled.
type EventResult struct {
	Skipped bool   `json:"skipped,omitempty"`
	Reason  string `json:"reason,omitempty"`
	Updated bool   `json:"updated,omitempty"`
	Message string `json:"message,omitempty"`
}

// ProcessEvent handles one tracker webhook event. Only status-update
// events are acted on; events for tasks outside the configured workspace
// are skipped. The status change is applied through the same monotonic
// outcome path as ingestion.
func (s *TrackerService) ProcessEvent(ctx context.Context, payload map[string]any) (EventResult, error) {
	event, _ := payload["event"].(string)
	if event != trackerEventStatusUpdated {
		return EventResult{Skipped: true}, nil
	}

	taskID := extractString(payload, "task_id")
	if taskID == "" {
		taskID = searchString(payload, "history_items[0].parent_id")
	}
	if taskID == "" {
		return EventResult{}, apperrors.ValidationField("task_id", "No task ID found")
	}

	inSpace, err := s.taskInSpace(ctx, taskID)
	if err != nil {
		return EventResult{}, err
	}
	if !inSpace {
		return EventResult{Skipped: true, Reason: "task outside configured workspace"}, nil
	}

	result := EventResult{}
	_, err = s.recorder.Run(ctx, model.SyncSourceTracker,
		func(ctx context.Context) (model.SyncResult, error) {
			if _, err := s.jobs.GetByTrackerTaskID(ctx, taskID); err != nil {
				result.Message = "Task not tracked"
				return model.SyncResult{Status: model.SyncStatusSuccess}, nil
			}

			newStatus := searchString(payload, "history_items[0].after.status")
			if newStatus == "" {
				result.Message = "No status change found"
				return model.SyncResult{Status: model.SyncStatusSuccess}, nil
			}

			if _, err := s.jobs.ApplyTrackerStatus(ctx, core.ApplyTrackerStatusParams{
				TaskID: taskID,
				Status: newStatus,
			}); err != nil {
				return model.SyncResult{}, fmt.Errorf("apply status for task %s: %w", taskID, err)
			}

			result.Updated = true
			return model.SyncResult{
				RecordsSynced:  1,
				RecordsUpdated: 1,
				Status:         model.SyncStatusSuccess,
			}, nil
		})
	if err != nil {
		return EventResult{}, err
	}
	return result, nil
}

// taskInSpace checks workspace membership via the tracker API. With no
// space configured every task passes.
func (s *TrackerService) taskInSpace(ctx context.Context, taskID string) (bool, error) {
	if s.spaceID == "" || !s.tracker.Configured() {
		return true, nil
	}
	task, err := s.tracker.GetTask(ctx, taskID)
	if err != nil {
		return false, fmt.Errorf("fetch task %s: %w", taskID, err)
	}
	if task == nil {
		return false, nil
	}
	return task.SpaceID == s.spaceID, nil
}

func extractString(payload map[string]any, key string) string {
	s, _ := payload[key].(string)
	return s
}

// searchString evaluates a JMESPath expression against the payload and
// returns the string result, or empty on any miss.
func searchString(payload map[string]any, expr string) string {
	v, err := jmespath.Search(expr, payload)
	if err != nil {
		return ""
	}
	s, _ := v.(string)
	return s
}
