package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/risinglions/jobtrack/internal/data/pgxutil"
	"github.com/risinglions/jobtrack/internal/domain/model"
	apperrors "github.com/risinglions/jobtrack/internal/errors"
)

// AlertRepo persists threshold-breach alerts.
type AlertRepo struct {
	DB *sql.DB
}

// NewAlertRepo creates a new AlertRepo instance with the given database connection.
func NewAlertRepo(db *sql.DB) *AlertRepo {
	return &AlertRepo{DB: db}
}

const alertColumns = `id, alert_type, message, current_value, threshold_value, dismissed, created_at`

// Create persists a new alert.
func (r *AlertRepo) Create(ctx context.Context, req *model.CreateAlertRequest) (*model.Alert, error) {
	if !req.AlertType.Valid() {
		return nil, apperrors.ValidationField("alert_type", fmt.Sprintf("unknown alert type %q", req.AlertType))
	}

	var alert model.Alert
	err := pgxutil.WithPgxConn(ctx, r.DB, func(pgxConn *pgx.Conn) error {
		rows, err := pgxConn.Query(ctx, `
			INSERT INTO alerts (alert_type, message, current_value, threshold_value)
			VALUES ($1, $2, $3, $4)
			RETURNING `+alertColumns,
			req.AlertType, req.Message, req.CurrentValue, req.ThresholdValue,
		)
		if err != nil {
			return err
		}
		defer rows.Close()

		alert, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Alert])
		return err
	})
	if err != nil {
		return nil, apperrors.MapDBError(fmt.Errorf("create alert: %w", err))
	}

	return &alert, nil
}

// ExistsSince reports whether an alert of the given type was created at or
// after the cutoff. Dismissal does not reset the dedup window.
func (r *AlertRepo) ExistsSince(ctx context.Context, alertType model.AlertType, cutoff time.Time) (bool, error) {
	var exists bool
	err := pgxutil.WithPgxConn(ctx, r.DB, func(pgxConn *pgx.Conn) error {
		return pgxConn.QueryRow(ctx, `
			SELECT EXISTS (
				SELECT 1 FROM alerts
				WHERE alert_type = $1 AND created_at >= $2
			)`, alertType, cutoff).Scan(&exists)
	})
	if err != nil {
		return false, fmt.Errorf("check alert dedup: %w", err)
	}

	return exists, nil
}

// ListActive returns undismissed alerts, newest first.
func (r *AlertRepo) ListActive(ctx context.Context, limit int) ([]*model.Alert, error) {
	if limit <= 0 {
		limit = 50
	}

	var alerts []*model.Alert
	err := pgxutil.WithPgxConn(ctx, r.DB, func(pgxConn *pgx.Conn) error {
		rows, err := pgxConn.Query(ctx, `
			SELECT `+alertColumns+`
			FROM alerts
			WHERE NOT dismissed
			ORDER BY created_at DESC
			LIMIT $1`, limit)
		if err != nil {
			return err
		}
		defer rows.Close()

		alerts, err = pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[model.Alert])
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list active alerts: %w", err)
	}

	return alerts, nil
}

// Dismiss marks an alert dismissed. Returns false when it does not exist.
func (r *AlertRepo) Dismiss(ctx context.Context, id string) (bool, error) {
	if id == "" {
		return false, ErrAlertNotFound
	}

	var dismissed bool
	err := pgxutil.WithPgxConn(ctx, r.DB, func(pgxConn *pgx.Conn) error {
		tag, err := pgxConn.Exec(ctx,
			`UPDATE alerts SET dismissed = TRUE WHERE id = $1`, id)
		if err != nil {
			return err
		}
		dismissed = tag.RowsAffected() > 0
		return nil
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, apperrors.MapDBError(fmt.Errorf("dismiss alert: %w", err))
	}

	return dismissed, nil
}
