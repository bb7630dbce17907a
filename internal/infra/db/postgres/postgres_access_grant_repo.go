package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"course-unit-access/internal/domain"
	"course-unit-access/internal/domain/model"
	"course-unit-access/internal/domain/ports/repository"
)

var _ repository.AccessGrantRepository = (*accessGrantRepo)(nil)

type accessGrantRepo struct {
	pool *pgxpool.Pool
}

func NewAccessGrantRepo(pool *pgxpool.Pool) repository.AccessGrantRepository {
	return &accessGrantRepo{pool: pool}
}

const accessGrantColumns = `id, user_id, course_id, unit_id, access_start_at, access_end_at, source, origin_code_id, created_at`

// Create inserts the grant. The unique index on origin_code_id makes a retry
// for the same claimed code a no-op instead of a duplicate grant.
func (r *accessGrantRepo) Create(ctx context.Context, tx repository.Tx, g *model.AccessGrant) error {
	const q = `
INSERT INTO access_grants (` + accessGrantColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (origin_code_id) DO NOTHING;
`
	_, err := execSQL(ctx, r.pool, tx, q,
		g.ID, g.UserID, g.CourseID, g.UnitID,
		g.AccessWindow.StartAt, g.AccessWindow.EndAt,
		string(g.Source), g.OriginCodeID, g.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert access grant: %w", err)
	}
	return nil
}

// FindCurrent picks the latest-expiring still-valid grant for the triple. Any
// currently-valid grant is sufficient; the latest end wins for display.
func (r *accessGrantRepo) FindCurrent(ctx context.Context, tx repository.Tx, userID, courseID, unitID string) (*model.AccessGrant, error) {
	const q = `
SELECT ` + accessGrantColumns + `
  FROM access_grants
 WHERE user_id = $1 AND course_id = $2 AND unit_id = $3 AND access_end_at > NOW()
 ORDER BY access_end_at DESC
 LIMIT 1;
`
	row, err := pickRow(ctx, r.pool, tx, q, userID, courseID, unitID)
	if err != nil {
		return nil, err
	}
	return scanAccessGrant(row)
}

func (r *accessGrantRepo) FindByOriginCode(ctx context.Context, tx repository.Tx, codeID string) (*model.AccessGrant, error) {
	const q = `
SELECT ` + accessGrantColumns + `
  FROM access_grants
 WHERE origin_code_id = $1;
`
	row, err := pickRow(ctx, r.pool, tx, q, codeID)
	if err != nil {
		return nil, err
	}
	return scanAccessGrant(row)
}

func scanAccessGrant(row pgx.Row) (*model.AccessGrant, error) {
	var g model.AccessGrant
	var source string
	err := row.Scan(
		&g.ID, &g.UserID, &g.CourseID, &g.UnitID,
		&g.AccessWindow.StartAt, &g.AccessWindow.EndAt,
		&source, &g.OriginCodeID, &g.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	g.Source = model.GrantSource(source)
	return &g, nil
}
