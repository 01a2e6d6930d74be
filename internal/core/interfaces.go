// Package core defines the service-layer ports of the ingestion pipeline.
// The data layer provides implementations; services depend only on these
// interfaces.
package core

import (
	"context"
	"time"

	"github.com/risinglions/jobtrack/internal/domain/model"
)

// JobRepository persists canonical job records.
type JobRepository interface {
	// Upsert inserts a new record when the external job id is unseen,
	// otherwise merges the update into the existing record under the
	// field policy of model.Job.ApplyUpdate. Returns the resulting record.
	Upsert(ctx context.Context, update *model.JobUpdate) (*model.Job, error)

	// GetByJobID retrieves a record by its external job identifier.
	GetByJobID(ctx context.Context, jobID string) (*model.Job, error)

	// GetByTrackerTaskID retrieves a record by its linked tracker task id.
	GetByTrackerTaskID(ctx context.Context, taskID string) (*model.Job, error)

	// ListOpenTracked returns tracker-linked jobs whose outcome is still
	// null or pending, capped at limit. These are the polling candidates.
	ListOpenTracked(ctx context.Context, limit int) ([]*model.Job, error)

	// ApplyTrackerStatus overwrites the status label and applies the
	// outcome lexicon monotonically for the job linked to taskID.
	// Returns the updated record, or ErrJobNotFound when the task is
	// not tracked.
	ApplyTrackerStatus(ctx context.Context, params ApplyTrackerStatusParams) (*model.Job, error)

	// MarkProposalSent stamps proposal_sent_at once; later calls are no-ops.
	MarkProposalSent(ctx context.Context, jobID string) (*model.Job, error)
}

// ApplyTrackerStatusParams groups parameters for ApplyTrackerStatus.
type ApplyTrackerStatusParams struct {
	TaskID string
	Status string
}

// AgentRepository reads the agent directory.
type AgentRepository interface {
	// GetByTrackerUserID resolves an agent by the tracker-issued user id.
	GetByTrackerUserID(ctx context.Context, trackerUserID string) (*model.Agent, error)

	// GetByName resolves an agent by case-insensitive exact name match.
	GetByName(ctx context.Context, name string) (*model.Agent, error)
}

// ProfileRepository reads the sourcing profile directory.
type ProfileRepository interface {
	// GetByFilterTag resolves a profile by its sourcing filter tag.
	GetByFilterTag(ctx context.Context, tag string) (*model.Profile, error)

	// GetByName resolves a profile by case-insensitive exact name match.
	GetByName(ctx context.Context, name string) (*model.Profile, error)
}

// SyncRunRepository records the audit trail of ingestion runs.
type SyncRunRepository interface {
	// Start creates a run with status running and returns it.
	Start(ctx context.Context, source model.SyncSource) (*model.SyncRun, error)

	// Complete finalizes a run exactly once with terminal counts.
	Complete(ctx context.Context, runID string, result model.SyncResult) error

	// List returns the most recent runs, newest first.
	List(ctx context.Context, limit int) ([]*model.SyncRun, error)

	// Latest returns the most recent run, or nil when none exist.
	Latest(ctx context.Context) (*model.SyncRun, error)
}

// AlertRepository persists threshold-breach alerts.
type AlertRepository interface {
	// Create persists a new alert.
	Create(ctx context.Context, req *model.CreateAlertRequest) (*model.Alert, error)

	// ExistsSince reports whether an alert of the given type was created
	// at or after the cutoff. Used for the dedup window.
	ExistsSince(ctx context.Context, alertType model.AlertType, cutoff time.Time) (bool, error)

	// ListActive returns undismissed alerts, newest first.
	ListActive(ctx context.Context, limit int) ([]*model.Alert, error)

	// Dismiss marks an alert dismissed. Returns false when it does not exist.
	Dismiss(ctx context.Context, id string) (bool, error)
}

// StatsRepository computes the aggregate metrics read by the alert evaluator.
type StatsRepository interface {
	KPIMetrics(ctx context.Context) (*model.KPIMetrics, error)
	SystemHealth(ctx context.Context) (*model.SystemHealth, error)
}

// TrackerTask is the subset of a tracker task the pipeline consumes.
type TrackerTask struct {
	ID      string
	Name    string
	Status  string
	SpaceID string
}

// TrackerClient talks to the external task tracker API.
type TrackerClient interface {
	// GetTask fetches a task. Returns nil, nil when the task does not exist.
	GetTask(ctx context.Context, taskID string) (*TrackerTask, error)

	// UpdateTaskStatus pushes a status label to the tracker.
	UpdateTaskStatus(ctx context.Context, taskID, status string) error

	// Configured reports whether the client has credentials to operate.
	Configured() bool
}
