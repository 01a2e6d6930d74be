package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/risinglions/jobtrack/internal/core"
	"github.com/risinglions/jobtrack/internal/data/pgxutil"
	"github.com/risinglions/jobtrack/internal/domain/model"
	apperrors "github.com/risinglions/jobtrack/internal/errors"
)

// JobRepo provides database operations for canonical job records.
type JobRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

// NewJobRepo creates a new JobRepo instance with the given database connection.
func NewJobRepo(db *sql.DB) *JobRepo {
	return &JobRepo{
		DB:           db,
		timeProvider: &RealTimeProvider{},
	}
}

// jobColumns defines the column list for job SELECT queries to ensure consistent field mapping.
const jobColumns = `id, job_id, job_title, job_url, job_description, budget_type, budget_min, budget_max, ` +
	`hourly_min, hourly_max, skills, client_country, client_rating, client_total_spent, client_hires, ` +
	`profile_id, agent_id, clickup_task_id, clickup_task_url, clickup_status, proposal_text, gpt_model, ` +
	`gpt_tokens_used, outcome, won_value, posted_at, received_at, proposal_sent_at, outcome_at, updated_at, created_at`

// Upsert inserts a new record when the external job id is unseen, otherwise
// merges the update into the existing record. The row is locked for the
// duration of the merge so concurrent ingestion of the same identifier
// serializes on the upsert key.
func (r *JobRepo) Upsert(ctx context.Context, update *model.JobUpdate) (*model.Job, error) {
	if err := update.Validate(); err != nil {
		return nil, err
	}

	now := r.timeProvider.Now().UTC()

	var result model.Job
	err := pgxutil.WithPgxTx(ctx, r.DB, pgxutil.TxConfig{Fn: func(tx pgx.Tx) error {
		existing, err := lockJobByJobID(ctx, tx, update.JobID)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return err
		}

		if existing == nil {
			job := model.NewJob(update, now)
			result, err = insertJob(ctx, tx, job)
			return err
		}

		existing.ApplyUpdate(update, now)
		result, err = updateJob(ctx, tx, existing)
		return err
	}})
	if err != nil {
		return nil, apperrors.MapDBError(fmt.Errorf("upsert job: %w", err))
	}

	return &result, nil
}

func lockJobByJobID(ctx context.Context, tx pgx.Tx, jobID string) (*model.Job, error) {
	rows, err := tx.Query(ctx, `SELECT `+jobColumns+` FROM jobs WHERE job_id = $1 FOR UPDATE`, jobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	job, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Job])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &job, nil
}

func insertJob(ctx context.Context, tx pgx.Tx, j *model.Job) (model.Job, error) {
	rows, err := tx.Query(ctx, `
		INSERT INTO jobs (
			job_id, job_title, job_url, job_description, budget_type, budget_min, budget_max,
			hourly_min, hourly_max, skills, client_country, client_rating, client_total_spent,
			client_hires, profile_id, agent_id, clickup_task_id, clickup_task_url, clickup_status,
			proposal_text, gpt_model, gpt_tokens_used, outcome, won_value, posted_at,
			received_at, proposal_sent_at, outcome_at, updated_at, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
			$16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29, $30
		)
		RETURNING `+jobColumns,
		j.JobID, j.Title, j.JobURL, j.JobDescription, j.BudgetType, j.BudgetMin, j.BudgetMax,
		j.HourlyMin, j.HourlyMax, j.Skills, j.ClientCountry, j.ClientRating, j.ClientTotalSpent,
		j.ClientHires, j.ProfileID, j.AgentID, j.TrackerTaskID, j.TrackerTaskURL, j.TrackerStatus,
		j.ProposalText, j.GPTModel, j.GPTTokensUsed, j.Outcome, j.WonValue, j.PostedAt,
		j.ReceivedAt, j.ProposalSentAt, j.OutcomeAt, j.UpdatedAt, j.CreatedAt,
	)
	if err != nil {
		return model.Job{}, err
	}
	defer rows.Close()

	return pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Job])
}

func updateJob(ctx context.Context, tx pgx.Tx, j *model.Job) (model.Job, error) {
	rows, err := tx.Query(ctx, `
		UPDATE jobs SET
			job_title = $2, job_url = $3, job_description = $4, budget_type = $5,
			budget_min = $6, budget_max = $7, hourly_min = $8, hourly_max = $9,
			skills = $10, client_country = $11, client_rating = $12, client_total_spent = $13,
			client_hires = $14, profile_id = $15, agent_id = $16, clickup_task_id = $17,
			clickup_task_url = $18, clickup_status = $19, proposal_text = $20, gpt_model = $21,
			gpt_tokens_used = $22, outcome = $23, won_value = $24, posted_at = $25,
			proposal_sent_at = $26, outcome_at = $27, updated_at = $28
		WHERE job_id = $1
		RETURNING `+jobColumns,
		j.JobID, j.Title, j.JobURL, j.JobDescription, j.BudgetType,
		j.BudgetMin, j.BudgetMax, j.HourlyMin, j.HourlyMax,
		j.Skills, j.ClientCountry, j.ClientRating, j.ClientTotalSpent,
		j.ClientHires, j.ProfileID, j.AgentID, j.TrackerTaskID,
		j.TrackerTaskURL, j.TrackerStatus, j.ProposalText, j.GPTModel,
		j.GPTTokensUsed, j.Outcome, j.WonValue, j.PostedAt,
		j.ProposalSentAt, j.OutcomeAt, j.UpdatedAt,
	)
	if err != nil {
		return model.Job{}, err
	}
	defer rows.Close()

	return pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Job])
}

// GetByJobID retrieves a record by its external job identifier.
func (r *JobRepo) GetByJobID(ctx context.Context, jobID string) (*model.Job, error) {
	if jobID == "" {
		return nil, ErrJobIDRequired
	}
	return r.getOne(ctx, `SELECT `+jobColumns+` FROM jobs WHERE job_id = $1`, jobID)
}

// GetByTrackerTaskID retrieves a record by its linked tracker task id.
func (r *JobRepo) GetByTrackerTaskID(ctx context.Context, taskID string) (*model.Job, error) {
	if taskID == "" {
		return nil, ErrTaskIDRequired
	}
	return r.getOne(ctx, `SELECT `+jobColumns+` FROM jobs WHERE clickup_task_id = $1 LIMIT 1`, taskID)
}

func (r *JobRepo) getOne(ctx context.Context, query string, arg any) (*model.Job, error) {
	var job model.Job
	err := pgxutil.WithPgxConn(ctx, r.DB, func(pgxConn *pgx.Conn) error {
		rows, err := pgxConn.Query(ctx, query, arg)
		if err != nil {
			return err
		}
		defer rows.Close()

		job, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Job])
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrJobNotFound
		}
		return nil, fmt.Errorf("get job: %w", err)
	}

	return &job, nil
}

// ListOpenTracked returns tracker-linked jobs whose outcome is still null
// or pending, oldest first, capped at limit.
func (r *JobRepo) ListOpenTracked(ctx context.Context, limit int) ([]*model.Job, error) {
	if limit <= 0 {
		limit = 100
	}

	var jobs []*model.Job
	err := pgxutil.WithPgxConn(ctx, r.DB, func(pgxConn *pgx.Conn) error {
		rows, err := pgxConn.Query(ctx, `
			SELECT `+jobColumns+`
			FROM jobs
			WHERE clickup_task_id IS NOT NULL
			  AND (outcome IS NULL OR outcome = 'pending')
			ORDER BY received_at
			LIMIT $1`, limit)
		if err != nil {
			return err
		}
		defer rows.Close()

		jobs, err = pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[model.Job])
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list open tracked jobs: %w", err)
	}

	return jobs, nil
}

// ApplyTrackerStatus overwrites the status label for the job linked to the
// given task and applies the outcome lexicon. The outcome only moves from
// null to a mapped value; outcome_at is stamped together with it and never
// touched again.
func (r *JobRepo) ApplyTrackerStatus(
	ctx context.Context,
	params core.ApplyTrackerStatusParams,
) (*model.Job, error) {
	if params.TaskID == "" {
		return nil, ErrTaskIDRequired
	}

	var mapped *model.Outcome
	if o, ok := model.MapStatusOutcome(params.Status); ok {
		mapped = &o
	}
	now := r.timeProvider.Now().UTC()

	var job model.Job
	err := pgxutil.WithPgxConn(ctx, r.DB, func(pgxConn *pgx.Conn) error {
		rows, err := pgxConn.Query(ctx, `
			UPDATE jobs SET
				clickup_status = $2,
				outcome = COALESCE(outcome, $3),
				outcome_at = CASE
					WHEN $3::text IS NOT NULL AND outcome IS NULL THEN $4
					ELSE outcome_at
				END,
				updated_at = $4
			WHERE clickup_task_id = $1
			RETURNING `+jobColumns,
			params.TaskID, params.Status, mapped, now,
		)
		if err != nil {
			return err
		}
		defer rows.Close()

		job, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Job])
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrJobNotFound
		}
		return nil, fmt.Errorf("apply tracker status: %w", err)
	}

	return &job, nil
}

// MarkProposalSent stamps proposal_sent_at once. Subsequent calls leave the
// original timestamp in place.
func (r *JobRepo) MarkProposalSent(ctx context.Context, jobID string) (*model.Job, error) {
	if jobID == "" {
		return nil, ErrJobIDRequired
	}
	now := r.timeProvider.Now().UTC()

	var job model.Job
	err := pgxutil.WithPgxConn(ctx, r.DB, func(pgxConn *pgx.Conn) error {
		rows, err := pgxConn.Query(ctx, `
			UPDATE jobs SET
				proposal_sent_at = COALESCE(proposal_sent_at, $2),
				updated_at = $2
			WHERE job_id = $1
			RETURNING `+jobColumns,
			jobID, now,
		)
		if err != nil {
			return err
		}
		defer rows.Close()

		job, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Job])
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrJobNotFound
		}
		return nil, fmt.Errorf("mark proposal sent: %w", err)
	}

	return &job, nil
}
