package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/risinglions/jobtrack/internal/core"
	"github.com/risinglions/jobtrack/internal/domain/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTrackerService(
	t *testing.T,
	jobs *memJobRepo,
	tracker *fakeTracker,
	runs *fakeSyncRunRepo,
) *TrackerService {
	t.Helper()
	svc, err := NewTrackerService(TrackerServiceOptions{
		Jobs:      jobs,
		Tracker:   tracker,
		Recorder:  newTestRecorder(t, runs),
		SpaceID:   "space-1",
		BatchSize: 10,
		ScanLimit: 100,
	})
	require.NoError(t, err)
	return svc
}

func seedTrackedJob(t *testing.T, jobs *memJobRepo, jobID, taskID, status string) {
	t.Helper()
	_, err := jobs.Upsert(context.Background(), &model.JobUpdate{
		JobID:         jobID,
		Title:         "seeded",
		TrackerTaskID: &taskID,
		TrackerStatus: &status,
	})
	require.NoError(t, err)
}

func TestSyncAll_SkipsWhenUnconfigured(t *testing.T) {
	tracker := newFakeTracker(nil)
	tracker.configured = false
	runs := newFakeSyncRunRepo()
	svc := newTestTrackerService(t, newMemJobRepo(nil), tracker, runs)

	summary, err := svc.SyncAll(context.Background())
	require.NoError(t, err)
	assert.True(t, summary.Skipped)
	// No audit row when nothing was attempted.
	assert.Empty(t, runs.started)
}

func TestSyncAll_UpdatesChangedStatuses(t *testing.T) {
	jobs := newMemJobRepo(nil)
	seedTrackedJob(t, jobs, "J1", "t1", "New")
	seedTrackedJob(t, jobs, "J2", "t2", "Proposal Sent")

	tracker := newFakeTracker(map[string]*core.TrackerTask{
		"t1": {ID: "t1", Status: "Closed Won", SpaceID: "space-1"},
		"t2": {ID: "t2", Status: "Proposal Sent", SpaceID: "space-1"},
	})
	runs := newFakeSyncRunRepo()
	svc := newTestTrackerService(t, jobs, tracker, runs)

	summary, err := svc.SyncAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Synced)
	assert.Equal(t, 1, summary.Updated)
	assert.Empty(t, summary.Errors)

	job, err := jobs.GetByJobID(context.Background(), "J1")
	require.NoError(t, err)
	require.NotNil(t, job.Outcome)
	assert.Equal(t, model.OutcomeWon, *job.Outcome)

	stored, ok := runs.resultFor(runs.started[0].ID)
	require.True(t, ok)
	assert.Equal(t, model.SyncStatusSuccess, stored.Status)
}

func TestSyncAll_ItemFailureDoesNotAbortBatch(t *testing.T) {
	jobs := newMemJobRepo(nil)
	seedTrackedJob(t, jobs, "J1", "t1", "New")
	seedTrackedJob(t, jobs, "J2", "t2", "New")

	tracker := newFakeTracker(map[string]*core.TrackerTask{
		"t1": {ID: "t1", Status: "Closed Won", SpaceID: "space-1"},
		"t2": {ID: "t2", Status: "Closed Lost", SpaceID: "space-1"},
	})
	tracker.getErr = errors.New("rate limited")
	runs := newFakeSyncRunRepo()
	svc := newTestTrackerService(t, jobs, tracker, runs)

	summary, err := svc.SyncAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Synced)
	assert.Len(t, summary.Errors, 2)

	// Item errors are attached to the audit row without failing the run.
	stored, ok := runs.resultFor(runs.started[0].ID)
	require.True(t, ok)
	assert.Equal(t, model.SyncStatusSuccess, stored.Status)
	assert.Len(t, stored.Errors, 2)
}

func TestSyncAll_SkipsWhenSweepInProgress(t *testing.T) {
	jobs := newMemJobRepo(nil)
	seedTrackedJob(t, jobs, "J1", "t1", "New")
	tracker := newFakeTracker(map[string]*core.TrackerTask{
		"t1": {ID: "t1", Status: "Closed Won", SpaceID: "space-1"},
	})
	runs := newFakeSyncRunRepo()
	cache := newMemCache(nil)
	ctx := context.Background()

	// Another instance holds the sweep lock.
	held, err := cache.SetIfNotExists(ctx, core.CacheKeySyncLock, []byte("1"), time.Minute)
	require.NoError(t, err)
	require.True(t, held)

	svc, err := NewTrackerService(TrackerServiceOptions{
		Jobs:     jobs,
		Tracker:  tracker,
		Recorder: newTestRecorder(t, runs),
		Cache:    cache,
		SpaceID:  "space-1",
	})
	require.NoError(t, err)

	summary, err := svc.SyncAll(ctx)
	require.NoError(t, err)
	assert.True(t, summary.Skipped)
	assert.Empty(t, runs.started)

	job, err := jobs.GetByJobID(ctx, "J1")
	require.NoError(t, err)
	assert.Nil(t, job.Outcome)
}

func TestSyncAll_ReleasesSweepLock(t *testing.T) {
	jobs := newMemJobRepo(nil)
	seedTrackedJob(t, jobs, "J1", "t1", "New")
	tracker := newFakeTracker(map[string]*core.TrackerTask{
		"t1": {ID: "t1", Status: "Closed Won", SpaceID: "space-1"},
	})
	cache := newMemCache(nil)
	ctx := context.Background()

	svc, err := NewTrackerService(TrackerServiceOptions{
		Jobs:     jobs,
		Tracker:  tracker,
		Recorder: newTestRecorder(t, newFakeSyncRunRepo()),
		Cache:    cache,
		SpaceID:  "space-1",
	})
	require.NoError(t, err)

	summary, err := svc.SyncAll(ctx)
	require.NoError(t, err)
	assert.False(t, summary.Skipped)
	assert.Equal(t, 1, summary.Updated)

	locked, err := cache.Get(ctx, core.CacheKeySyncLock)
	require.NoError(t, err)
	assert.Nil(t, locked, "lock released after the sweep")

	// A follow-up sweep is not blocked by a stale lock.
	summary, err = svc.SyncAll(ctx)
	require.NoError(t, err)
	assert.False(t, summary.Skipped)
}

func TestProcessEvent_IgnoresOtherEvents(t *testing.T) {
	svc := newTestTrackerService(t, newMemJobRepo(nil), newFakeTracker(nil), newFakeSyncRunRepo())

	res, err := svc.ProcessEvent(context.Background(), map[string]any{"event": "taskCreated"})
	require.NoError(t, err)
	assert.True(t, res.Skipped)
}

func TestProcessEvent_MissingTaskID(t *testing.T) {
	svc := newTestTrackerService(t, newMemJobRepo(nil), newFakeTracker(nil), newFakeSyncRunRepo())

	_, err := svc.ProcessEvent(context.Background(), map[string]any{"event": "taskStatusUpdated"})
	require.Error(t, err)
}

func TestProcessEvent_TaskIDFromHistoryParent(t *testing.T) {
	jobs := newMemJobRepo(nil)
	seedTrackedJob(t, jobs, "J1", "t9", "New")
	tracker := newFakeTracker(map[string]*core.TrackerTask{
		"t9": {ID: "t9", Status: "New", SpaceID: "space-1"},
	})
	svc := newTestTrackerService(t, jobs, tracker, newFakeSyncRunRepo())

	res, err := svc.ProcessEvent(context.Background(), map[string]any{
		"event": "taskStatusUpdated",
		"history_items": []any{
			map[string]any{
				"parent_id": "t9",
				"after":     map[string]any{"status": "Closed Won"},
			},
		},
	})
	require.NoError(t, err)
	assert.True(t, res.Updated)

	job, err := jobs.GetByJobID(context.Background(), "J1")
	require.NoError(t, err)
	require.NotNil(t, job.Outcome)
	assert.Equal(t, model.OutcomeWon, *job.Outcome)
	assert.Equal(t, "Closed Won", *job.TrackerStatus)
}

func TestProcessEvent_OutsideWorkspaceSkipped(t *testing.T) {
	jobs := newMemJobRepo(nil)
	seedTrackedJob(t, jobs, "J1", "t1", "New")
	tracker := newFakeTracker(map[string]*core.TrackerTask{
		"t1": {ID: "t1", Status: "New", SpaceID: "other-space"},
	})
	runs := newFakeSyncRunRepo()
	svc := newTestTrackerService(t, jobs, tracker, runs)

	res, err := svc.ProcessEvent(context.Background(), map[string]any{
		"event":   "taskStatusUpdated",
		"task_id": "t1",
	})
	require.NoError(t, err)
	assert.True(t, res.Skipped)
	assert.Empty(t, runs.started)
}

func TestProcessEvent_UntrackedTaskCompletesRun(t *testing.T) {
	tracker := newFakeTracker(map[string]*core.TrackerTask{
		"t5": {ID: "t5", Status: "New", SpaceID: "space-1"},
	})
	runs := newFakeSyncRunRepo()
	svc := newTestTrackerService(t, newMemJobRepo(nil), tracker, runs)

	res, err := svc.ProcessEvent(context.Background(), map[string]any{
		"event":   "taskStatusUpdated",
		"task_id": "t5",
	})
	require.NoError(t, err)
	assert.False(t, res.Updated)
	assert.Equal(t, "Task not tracked", res.Message)

	require.Len(t, runs.started, 1)
	stored, ok := runs.resultFor(runs.started[0].ID)
	require.True(t, ok)
	assert.Equal(t, model.SyncStatusSuccess, stored.Status)
}

func TestProcessEvent_OutcomeMonotonicAcrossEvents(t *testing.T) {
	clock := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	jobs := newMemJobRepo(func() time.Time { return clock })
	seedTrackedJob(t, jobs, "J1", "t1", "New")
	tracker := newFakeTracker(map[string]*core.TrackerTask{
		"t1": {ID: "t1", Status: "New", SpaceID: "space-1"},
	})
	svc := newTestTrackerService(t, jobs, tracker, newFakeSyncRunRepo())
	ctx := context.Background()

	event := func(status string) map[string]any {
		return map[string]any{
			"event":   "taskStatusUpdated",
			"task_id": "t1",
			"history_items": []any{
				map[string]any{"after": map[string]any{"status": status}},
			},
		}
	}

	_, err := svc.ProcessEvent(ctx, event("Closed Won"))
	require.NoError(t, err)
	job, _ := jobs.GetByJobID(ctx, "J1")
	wonAt := *job.OutcomeAt

	clock = clock.Add(time.Hour)
	_, err = svc.ProcessEvent(ctx, event("Closed Lost"))
	require.NoError(t, err)

	job, _ = jobs.GetByJobID(ctx, "J1")
	assert.Equal(t, model.OutcomeWon, *job.Outcome)
	assert.Equal(t, wonAt, *job.OutcomeAt)
	assert.Equal(t, "Closed Lost", *job.TrackerStatus)
}
