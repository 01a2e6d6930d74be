// Package devseed populates a development database with a small agent
// and profile directory plus demo jobs, so the ingestion pipeline and
// dashboard endpoints have data to work against out of the box.
package devseed

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/risinglions/jobtrack/internal/data"
	"github.com/risinglions/jobtrack/internal/domain/model"
)

type seedAgent struct {
	name          string
	trackerUserID string
}

type seedProfile struct {
	name      string
	filterTag string
	agentName string
}

var seedAgents = []seedAgent{
	{name: "Alice Weber", trackerUserID: "cu-1001"},
	{name: "Bogdan Petrov", trackerUserID: "cu-1002"},
}

var seedProfiles = []seedProfile{
	{name: "Backend Go", filterTag: "go-backend", agentName: "Alice Weber"},
	{name: "Data Engineering", filterTag: "data-eng", agentName: "Bogdan Petrov"},
}

// Run seeds the development directory and demo jobs. Existing rows are
// left untouched, so re-running against a seeded database is a no-op.
func Run(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	agentIDs, err := seedAgentRows(ctx, db)
	if err != nil {
		return err
	}
	if err := seedProfileRows(ctx, db, agentIDs); err != nil {
		return err
	}
	if err := seedDemoJobs(ctx, db, logger); err != nil {
		return err
	}

	logger.InfoContext(ctx, "development seed completed",
		"agents", len(seedAgents),
		"profiles", len(seedProfiles))
	return nil
}

func seedAgentRows(ctx context.Context, db *sql.DB) (map[string]string, error) {
	ids := make(map[string]string, len(seedAgents))
	for _, a := range seedAgents {
		var id string
		err := db.QueryRowContext(ctx, `
			INSERT INTO agents (name, clickup_user_id)
			VALUES ($1, $2)
			ON CONFLICT (LOWER(name)) DO UPDATE SET clickup_user_id = EXCLUDED.clickup_user_id
			RETURNING id`,
			a.name, a.trackerUserID,
		).Scan(&id)
		if err != nil {
			return nil, fmt.Errorf("seed agent %q: %w", a.name, err)
		}
		ids[a.name] = id
	}
	return ids, nil
}

func seedProfileRows(ctx context.Context, db *sql.DB, agentIDs map[string]string) error {
	for _, p := range seedProfiles {
		var agentID *string
		if id, ok := agentIDs[p.agentName]; ok {
			agentID = &id
		}
		_, err := db.ExecContext(ctx, `
			INSERT INTO profiles (name, vollna_filter_tag, agent_id)
			VALUES ($1, $2, $3)
			ON CONFLICT (LOWER(name)) DO UPDATE SET
				vollna_filter_tag = EXCLUDED.vollna_filter_tag,
				agent_id = EXCLUDED.agent_id`,
			p.name, p.filterTag, agentID,
		)
		if err != nil {
			return fmt.Errorf("seed profile %q: %w", p.name, err)
		}
	}
	return nil
}

// seedDemoJobs routes a handful of demo payloads through the real upsert
// path, so seeded records obey the same merge semantics as ingested ones.
func seedDemoJobs(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	repo := data.NewJobRepo(db)

	fixed := "fixed"
	hourly := "hourly"
	demo := []*model.JobUpdate{
		{
			JobID:      "demo-go-api",
			Title:      "Build a REST API in Go",
			JobURL:     ptr("https://www.upwork.com/jobs/demo-go-api"),
			BudgetType: &fixed,
			BudgetMin:  ptrF(1000),
			BudgetMax:  ptrF(3000),
			Skills:     []string{"go", "postgresql", "rest"},
		},
		{
			JobID:         "demo-etl",
			Title:         "Nightly ETL pipeline maintenance",
			BudgetType:    &hourly,
			HourlyMin:     ptrF(40),
			HourlyMax:     ptrF(65),
			Skills:        []string{"python", "airflow"},
			TrackerTaskID: ptr("demo-task-etl"),
			TrackerStatus: ptr("New"),
		},
		{
			JobID:         "demo-won",
			Title:         "Dashboard revamp",
			BudgetType:    &fixed,
			BudgetMin:     ptrF(5000),
			BudgetMax:     ptrF(5000),
			TrackerTaskID: ptr("demo-task-won"),
			TrackerStatus: ptr("Closed Won"),
		},
	}

	for _, update := range demo {
		if _, err := repo.Upsert(ctx, update); err != nil {
			return fmt.Errorf("seed job %q: %w", update.JobID, err)
		}
		logger.DebugContext(ctx, "seeded demo job", "job_id", update.JobID)
	}
	return nil
}

func ptr(s string) *string    { return &s }
func ptrF(f float64) *float64 { return &f }
