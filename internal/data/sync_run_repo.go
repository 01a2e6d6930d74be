package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/risinglions/jobtrack/internal/data/pgxutil"
	"github.com/risinglions/jobtrack/internal/domain/model"
	apperrors "github.com/risinglions/jobtrack/internal/errors"
)

// Audit rows keep at most this many error strings; the remainder is
// collapsed into a trailing count marker.
const maxSyncRunErrors = 20

// SyncRunRepo records the audit trail of ingestion runs.
type SyncRunRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

// NewSyncRunRepo creates a new SyncRunRepo instance with the given database connection.
func NewSyncRunRepo(db *sql.DB) *SyncRunRepo {
	return &SyncRunRepo{
		DB:           db,
		timeProvider: &RealTimeProvider{},
	}
}

const syncRunColumns = `id, source, records_synced, records_updated, errors, status, started_at, completed_at`

// Start creates a run with status running and returns it.
func (r *SyncRunRepo) Start(ctx context.Context, source model.SyncSource) (*model.SyncRun, error) {
	if !source.Valid() {
		return nil, apperrors.ValidationField("source", fmt.Sprintf("unknown sync source %q", source))
	}

	var run model.SyncRun
	err := pgxutil.WithPgxConn(ctx, r.DB, func(pgxConn *pgx.Conn) error {
		rows, err := pgxConn.Query(ctx, `
			INSERT INTO sync_log (source, status, started_at)
			VALUES ($1, $2, $3)
			RETURNING `+syncRunColumns,
			source, model.SyncStatusRunning, r.timeProvider.Now().UTC(),
		)
		if err != nil {
			return err
		}
		defer rows.Close()

		run, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.SyncRun])
		return err
	})
	if err != nil {
		return nil, apperrors.MapDBError(fmt.Errorf("start sync run: %w", err))
	}

	return &run, nil
}

// Complete finalizes a run with terminal counts. The status guard makes
// completion idempotent: a run already out of the running state is left
// untouched.
func (r *SyncRunRepo) Complete(ctx context.Context, runID string, result model.SyncResult) error {
	if runID == "" {
		return ErrRunIDRequired
	}
	if !result.Status.Valid() || result.Status == model.SyncStatusRunning {
		return apperrors.ValidationField("status", fmt.Sprintf("invalid terminal status %q", result.Status))
	}

	err := pgxutil.WithPgxConn(ctx, r.DB, func(pgxConn *pgx.Conn) error {
		tag, err := pgxConn.Exec(ctx, `
			UPDATE sync_log SET
				records_synced = $2,
				records_updated = $3,
				errors = $4,
				status = $5,
				completed_at = $6
			WHERE id = $1 AND status = $7`,
			runID, result.RecordsSynced, result.RecordsUpdated,
			result.Truncated(maxSyncRunErrors), result.Status,
			r.timeProvider.Now().UTC(), model.SyncStatusRunning,
		)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return pgx.ErrNoRows
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrSyncRunNotFound
		}
		return apperrors.MapDBError(fmt.Errorf("complete sync run: %w", err))
	}

	return nil
}

// List returns the most recent runs, newest first.
func (r *SyncRunRepo) List(ctx context.Context, limit int) ([]*model.SyncRun, error) {
	if limit <= 0 {
		limit = 20
	}

	var runs []*model.SyncRun
	err := pgxutil.WithPgxConn(ctx, r.DB, func(pgxConn *pgx.Conn) error {
		rows, err := pgxConn.Query(ctx, `
			SELECT `+syncRunColumns+`
			FROM sync_log
			ORDER BY started_at DESC
			LIMIT $1`, limit)
		if err != nil {
			return err
		}
		defer rows.Close()

		runs, err = pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[model.SyncRun])
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list sync runs: %w", err)
	}

	return runs, nil
}

// Latest returns the most recent run, or nil when none exist.
func (r *SyncRunRepo) Latest(ctx context.Context) (*model.SyncRun, error) {
	runs, err := r.List(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, nil
	}
	return runs[0], nil
}
