package data

import (
	"context"
	"database/sql"
	"testing"

	"github.com/risinglions/jobtrack/internal/core"
	"github.com/risinglions/jobtrack/internal/domain/model"
	"github.com/risinglions/jobtrack/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestJobRepo_UpsertInsertThenMerge(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithTestDB(t, func(db *sql.DB) {
		repo := NewJobRepo(db)
		ctx := context.Background()

		created, err := repo.Upsert(ctx, &model.JobUpdate{
			JobID:     "upwork-101",
			Title:     "Initial title",
			JobURL:    strPtr("https://example.com/101"),
			BudgetMin: floatP(500),
			BudgetMax: floatP(1500),
			Skills:    []string{"go", "postgres"},
		})
		require.NoError(t, err)
		assert.NotEmpty(t, created.ID)
		assert.Equal(t, "upwork-101", created.JobID)
		assert.Equal(t, []string{"go", "postgres"}, created.Skills)

		// Merge: title overwrites, nil fields keep existing values.
		merged, err := repo.Upsert(ctx, &model.JobUpdate{
			JobID:         "upwork-101",
			Title:         "Replaced title",
			ClientCountry: strPtr("DE"),
		})
		require.NoError(t, err)
		assert.Equal(t, created.ID, merged.ID)
		assert.Equal(t, "Replaced title", merged.Title)
		require.NotNil(t, merged.JobURL)
		assert.Equal(t, "https://example.com/101", *merged.JobURL)
		require.NotNil(t, merged.BudgetMin)
		assert.Equal(t, float64(500), *merged.BudgetMin)
		require.NotNil(t, merged.ClientCountry)
		assert.Equal(t, "DE", *merged.ClientCountry)
		assert.Equal(t, created.ReceivedAt, merged.ReceivedAt)
	})
}

func TestJobRepo_UpsertWithoutSkills(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithTestDB(t, func(db *sql.DB) {
		repo := NewJobRepo(db)
		ctx := context.Background()

		// The minimal payload shape: id, title, tracker status, no skills.
		created, err := repo.Upsert(ctx, &model.JobUpdate{
			JobID:         "upwork-bare",
			Title:         "X",
			TrackerStatus: strPtr("New"),
		})
		require.NoError(t, err)
		require.NotNil(t, created.Skills)
		assert.Empty(t, created.Skills)
		require.NotNil(t, created.TrackerStatus)
		assert.Equal(t, "New", *created.TrackerStatus)
		assert.Nil(t, created.Outcome)

		// A later payload fills skills in; a still later one without
		// skills keeps them.
		_, err = repo.Upsert(ctx, &model.JobUpdate{
			JobID:  "upwork-bare",
			Title:  "X",
			Skills: []string{"go"},
		})
		require.NoError(t, err)

		merged, err := repo.Upsert(ctx, &model.JobUpdate{JobID: "upwork-bare", Title: "X"})
		require.NoError(t, err)
		assert.Equal(t, []string{"go"}, merged.Skills)
	})
}

func TestJobRepo_ApplyTrackerStatusMonotonicOutcome(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithTestDB(t, func(db *sql.DB) {
		repo := NewJobRepo(db)
		ctx := context.Background()

		_, err := repo.Upsert(ctx, &model.JobUpdate{
			JobID:         "upwork-102",
			Title:         "Tracked",
			TrackerTaskID: strPtr("task-102"),
		})
		require.NoError(t, err)

		won, err := repo.ApplyTrackerStatus(ctx, core.ApplyTrackerStatusParams{
			TaskID: "task-102",
			Status: "Closed Won",
		})
		require.NoError(t, err)
		require.NotNil(t, won.Outcome)
		assert.Equal(t, model.OutcomeWon, *won.Outcome)
		require.NotNil(t, won.OutcomeAt)
		require.NotNil(t, won.TrackerStatus)
		assert.Equal(t, "Closed Won", *won.TrackerStatus)

		// A later conflicting label updates the label, never the outcome.
		relabeled, err := repo.ApplyTrackerStatus(ctx, core.ApplyTrackerStatusParams{
			TaskID: "task-102",
			Status: "Closed Lost",
		})
		require.NoError(t, err)
		require.NotNil(t, relabeled.Outcome)
		assert.Equal(t, model.OutcomeWon, *relabeled.Outcome)
		assert.Equal(t, won.OutcomeAt.UTC(), relabeled.OutcomeAt.UTC())
		assert.Equal(t, "Closed Lost", *relabeled.TrackerStatus)

		_, err = repo.ApplyTrackerStatus(ctx, core.ApplyTrackerStatusParams{
			TaskID: "no-such-task",
			Status: "New",
		})
		assert.ErrorIs(t, err, ErrJobNotFound)
	})
}

func TestJobRepo_MarkProposalSentIsSetOnce(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithTestDB(t, func(db *sql.DB) {
		repo := NewJobRepo(db)
		ctx := context.Background()

		_, err := repo.Upsert(ctx, &model.JobUpdate{JobID: "upwork-103", Title: "X"})
		require.NoError(t, err)

		first, err := repo.MarkProposalSent(ctx, "upwork-103")
		require.NoError(t, err)
		require.NotNil(t, first.ProposalSentAt)

		second, err := repo.MarkProposalSent(ctx, "upwork-103")
		require.NoError(t, err)
		require.NotNil(t, second.ProposalSentAt)
		assert.Equal(t, first.ProposalSentAt.UTC(), second.ProposalSentAt.UTC())

		_, err = repo.MarkProposalSent(ctx, "ghost")
		assert.ErrorIs(t, err, ErrJobNotFound)
	})
}

func TestJobRepo_ListOpenTracked(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithTestDB(t, func(db *sql.DB) {
		repo := NewJobRepo(db)
		ctx := context.Background()

		// Open and tracked: listed.
		_, err := repo.Upsert(ctx, &model.JobUpdate{
			JobID:         "upwork-open",
			Title:         "Open",
			TrackerTaskID: strPtr("task-open"),
		})
		require.NoError(t, err)

		// Tracked but decided: not listed.
		_, err = repo.Upsert(ctx, &model.JobUpdate{
			JobID:         "upwork-won",
			Title:         "Won",
			TrackerTaskID: strPtr("task-won"),
			TrackerStatus: strPtr("Closed Won"),
		})
		require.NoError(t, err)

		// Open but untracked: not listed.
		_, err = repo.Upsert(ctx, &model.JobUpdate{JobID: "upwork-untracked", Title: "Untracked"})
		require.NoError(t, err)

		open, err := repo.ListOpenTracked(ctx, 10)
		require.NoError(t, err)
		require.Len(t, open, 1)
		assert.Equal(t, "upwork-open", open[0].JobID)
	})
}

func TestSyncRunRepo_Lifecycle(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithTestDB(t, func(db *sql.DB) {
		repo := NewSyncRunRepo(db)
		ctx := context.Background()

		run, err := repo.Start(ctx, model.SyncSourceTracker)
		require.NoError(t, err)
		assert.Equal(t, model.SyncStatusRunning, run.Status)

		err = repo.Complete(ctx, run.ID, model.SyncResult{
			RecordsSynced:  3,
			RecordsUpdated: 2,
			Errors:         []string{"task t9: rate limited"},
			Status:         model.SyncStatusSuccess,
		})
		require.NoError(t, err)

		// A run completes exactly once.
		err = repo.Complete(ctx, run.ID, model.SyncResult{Status: model.SyncStatusFailed})
		assert.ErrorIs(t, err, ErrSyncRunNotFound)

		latest, err := repo.Latest(ctx)
		require.NoError(t, err)
		require.NotNil(t, latest)
		assert.Equal(t, run.ID, latest.ID)
		assert.Equal(t, model.SyncStatusSuccess, latest.Status)
		assert.Equal(t, 3, latest.RecordsSynced)
		assert.Equal(t, []string{"task t9: rate limited"}, latest.Errors)
		require.NotNil(t, latest.CompletedAt)
	})
}

func TestSyncRunRepo_CompleteWithoutErrors(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithTestDB(t, func(db *sql.DB) {
		repo := NewSyncRunRepo(db)
		ctx := context.Background()

		run, err := repo.Start(ctx, model.SyncSourceAutomation)
		require.NoError(t, err)

		// The common case: a clean run with a nil error list.
		err = repo.Complete(ctx, run.ID, model.SyncResult{
			RecordsSynced: 1,
			Status:        model.SyncStatusSuccess,
		})
		require.NoError(t, err)

		latest, err := repo.Latest(ctx)
		require.NoError(t, err)
		require.NotNil(t, latest)
		assert.Equal(t, model.SyncStatusSuccess, latest.Status)
		assert.Empty(t, latest.Errors)
		require.NotNil(t, latest.CompletedAt)
	})
}

func TestStatsRepo_SystemHealthEmptyDatabase(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithTestDB(t, func(db *sql.DB) {
		repo := NewStatsRepo(db)

		health, err := repo.SystemHealth(context.Background())
		require.NoError(t, err)
		assert.Nil(t, health.LastSyncAt)
		assert.Nil(t, health.LastSyncStatus)
		assert.Zero(t, health.OpenJobsCount)
	})
}

func TestAlertRepo_CreateListDismiss(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithTestDB(t, func(db *sql.DB) {
		repo := NewAlertRepo(db)
		ctx := context.Background()

		alert, err := repo.Create(ctx, &model.CreateAlertRequest{
			AlertType:      model.AlertTypeWinRateLow,
			Message:        "Win rate is 12.5%, below threshold of 20%",
			CurrentValue:   12.5,
			ThresholdValue: 20,
		})
		require.NoError(t, err)

		exists, err := repo.ExistsSince(ctx, model.AlertTypeWinRateLow, alert.CreatedAt.Add(-1))
		require.NoError(t, err)
		assert.True(t, exists)

		active, err := repo.ListActive(ctx, 10)
		require.NoError(t, err)
		require.Len(t, active, 1)

		dismissed, err := repo.Dismiss(ctx, alert.ID)
		require.NoError(t, err)
		assert.True(t, dismissed)

		active, err = repo.ListActive(ctx, 10)
		require.NoError(t, err)
		assert.Empty(t, active)

		dismissed, err = repo.Dismiss(ctx, "00000000-0000-0000-0000-000000000000")
		require.NoError(t, err)
		assert.False(t, dismissed, "unknown alert reports no row")
	})
}

func floatP(f float64) *float64 { return &f }
