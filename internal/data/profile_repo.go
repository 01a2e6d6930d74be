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

// ProfileRepo reads the sourcing profile directory.
type ProfileRepo struct {
	DB *sql.DB
}

// NewProfileRepo creates a new ProfileRepo instance with the given database connection.
func NewProfileRepo(db *sql.DB) *ProfileRepo {
	return &ProfileRepo{DB: db}
}

const profileColumns = `id, name, vollna_filter_tag, clickup_list_id, agent_id, active, created_at`

// GetByFilterTag resolves an active profile by its sourcing filter tag.
func (r *ProfileRepo) GetByFilterTag(ctx context.Context, tag string) (*model.Profile, error) {
	if tag == "" {
		return nil, ErrProfileNotFound
	}
	return r.getOne(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE vollna_filter_tag = $1 AND active LIMIT 1`,
		tag)
}

// GetByName resolves an active profile by case-insensitive exact name match.
func (r *ProfileRepo) GetByName(ctx context.Context, name string) (*model.Profile, error) {
	if name == "" {
		return nil, ErrProfileNotFound
	}
	return r.getOne(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE LOWER(name) = LOWER($1) AND active LIMIT 1`,
		name)
}

func (r *ProfileRepo) getOne(ctx context.Context, query string, arg any) (*model.Profile, error) {
	var profile model.Profile
	err := pgxutil.WithPgxConn(ctx, r.DB, func(pgxConn *pgx.Conn) error {
		rows, err := pgxConn.Query(ctx, query, arg)
		if err != nil {
			return err
		}
		defer rows.Close()

		profile, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Profile])
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("get profile: %w", err)
	}

	return &profile, nil
}
