package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/risinglions/jobtrack/internal/data/pgxutil"
	"github.com/risinglions/jobtrack/internal/domain/model"
)

// StatsRepo computes the aggregate metrics read by the alert evaluator and
// the dashboard endpoints.
type StatsRepo struct {
	DB *sql.DB
}

// NewStatsRepo creates a new StatsRepo instance with the given database connection.
func NewStatsRepo(db *sql.DB) *StatsRepo {
	return &StatsRepo{DB: db}
}

// KPIMetrics computes pipeline-wide funnel counts. Win rate considers only
// decided jobs; revenue sums won_value over won jobs.
func (r *StatsRepo) KPIMetrics(ctx context.Context) (*model.KPIMetrics, error) {
	var m model.KPIMetrics
	err := pgxutil.WithPgxConn(ctx, r.DB, func(pgxConn *pgx.Conn) error {
		return pgxConn.QueryRow(ctx, `
			SELECT
				COUNT(*)::int AS total_jobs,
				COUNT(*) FILTER (WHERE proposal_sent_at IS NOT NULL)::int AS proposals_sent,
				COUNT(*) FILTER (WHERE outcome = 'won')::int AS won,
				COUNT(*) FILTER (WHERE outcome = 'lost')::int AS lost,
				COALESCE(SUM(won_value) FILTER (WHERE outcome = 'won'), 0)::float8 AS total_revenue
			FROM jobs`).Scan(&m.TotalJobs, &m.ProposalsSent, &m.Won, &m.Lost, &m.TotalRevenue)
	})
	if err != nil {
		return nil, fmt.Errorf("kpi metrics: %w", err)
	}

	if decided := m.Won + m.Lost; decided > 0 {
		m.WinRate = math.Round(float64(m.Won)/float64(decided)*1000) / 10
	}

	return &m, nil
}

// SystemHealth summarizes pipeline operational state: last sync run,
// proposal-generation failure rate over the trailing week, open-job
// backlog, today's intake and the average intake-to-proposal latency.
func (r *StatsRepo) SystemHealth(ctx context.Context) (*model.SystemHealth, error) {
	var h model.SystemHealth

	err := pgxutil.WithPgxConn(ctx, r.DB, func(pgxConn *pgx.Conn) error {
		var lastSyncAt *time.Time
		var lastSyncStatus *string
		err := pgxConn.QueryRow(ctx, `
			SELECT started_at, status::text
			FROM sync_log
			ORDER BY started_at DESC
			LIMIT 1`).Scan(&lastSyncAt, &lastSyncStatus)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("last sync: %w", err)
		}
		if lastSyncAt != nil {
			s := lastSyncAt.UTC().Format(time.RFC3339)
			h.LastSyncAt = &s
		}
		h.LastSyncStatus = lastSyncStatus

		// A job older than an hour with no proposal text counts as a
		// generation failure; rate is computed over the trailing week.
		var failed, weekTotal int
		err = pgxConn.QueryRow(ctx, `
			SELECT
				COUNT(*) FILTER (
					WHERE proposal_text IS NULL
					  AND received_at < NOW() - INTERVAL '1 hour'
				)::int,
				COUNT(*)::int
			FROM jobs
			WHERE received_at >= NOW() - INTERVAL '7 days'`).Scan(&failed, &weekTotal)
		if err != nil {
			return fmt.Errorf("failure rate: %w", err)
		}
		if weekTotal > 0 {
			h.AutomationFailurePct = math.Round(float64(failed) / float64(weekTotal) * 100)
		}

		err = pgxConn.QueryRow(ctx, `
			SELECT
				COUNT(*) FILTER (
					WHERE outcome IS NULL
					  AND (clickup_status IS NULL OR clickup_status NOT IN ('Won', 'Lost'))
				)::int,
				COUNT(*) FILTER (WHERE received_at >= CURRENT_DATE)::int,
				COALESCE(AVG(
					EXTRACT(EPOCH FROM proposal_sent_at - received_at) / 3600.0
				) FILTER (WHERE proposal_sent_at IS NOT NULL), 0)::float8
			FROM jobs`).Scan(&h.OpenJobsCount, &h.JobsReceivedToday, &h.AvgResponseTimeHours)
		if err != nil {
			return fmt.Errorf("job counts: %w", err)
		}

		h.AvgResponseTimeHours = math.Round(h.AvgResponseTimeHours*10) / 10
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("system health: %w", err)
	}

	return &h, nil
}
