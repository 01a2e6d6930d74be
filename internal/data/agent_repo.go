package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/risinglions/jobtrack/internal/data/pgxutil"
	"github.com/risinglions/jobtrack/internal/domain/model"
)

// AgentRepo reads the agent directory.
type AgentRepo struct {
	DB *sql.DB
}

// NewAgentRepo creates a new AgentRepo instance with the given database connection.
func NewAgentRepo(db *sql.DB) *AgentRepo {
	return &AgentRepo{DB: db}
}

const agentColumns = `id, name, clickup_user_id, active, created_at`

// GetByTrackerUserID resolves an active agent by the tracker-issued user id.
func (r *AgentRepo) GetByTrackerUserID(ctx context.Context, trackerUserID string) (*model.Agent, error) {
	if trackerUserID == "" {
		return nil, ErrAgentNotFound
	}
	return r.getOne(ctx,
		`SELECT `+agentColumns+` FROM agents WHERE clickup_user_id = $1 AND active LIMIT 1`,
		trackerUserID)
}

// GetByName resolves an active agent by case-insensitive exact name match.
func (r *AgentRepo) GetByName(ctx context.Context, name string) (*model.Agent, error) {
	if name == "" {
		return nil, ErrAgentNotFound
	}
	return r.getOne(ctx,
		`SELECT `+agentColumns+` FROM agents WHERE LOWER(name) = LOWER($1) AND active LIMIT 1`,
		name)
}

func (r *AgentRepo) getOne(ctx context.Context, query string, arg any) (*model.Agent, error) {
	var agent model.Agent
	err := pgxutil.WithPgxConn(ctx, r.DB, func(pgxConn *pgx.Conn) error {
		rows, err := pgxConn.Query(ctx, query, arg)
		if err != nil {
			return err
		}
		defer rows.Close()

		agent, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Agent])
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAgentNotFound
		}
		return nil, fmt.Errorf("get agent: %w", err)
	}

	return &agent, nil
}
