package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"course-unit-access/internal/domain"
	"course-unit-access/internal/domain/model"
	"course-unit-access/internal/domain/ports/repository"
)

// Ensure implementation satisfies the interface.
var _ repository.AccessCodeRepository = (*accessCodeRepo)(nil)

type accessCodeRepo struct {
	pool *pgxpool.Pool
}

func NewAccessCodeRepo(pool *pgxpool.Pool) repository.AccessCodeRepository {
	return &accessCodeRepo{pool: pool}
}

const accessCodeColumns = `id, code, course_id, unit_id, access_start_at, access_end_at, code_expires_at, is_used, used_by_user_id, used_at, created_by, created_at`

// Create persists a new unclaimed code. The unique index on code surfaces a
// value collision as domain.ErrAlreadyExists so issuance can regenerate.
func (r *accessCodeRepo) Create(ctx context.Context, tx repository.Tx, c *model.AccessCode) error {
	const q = `
INSERT INTO access_codes (` + accessCodeColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12);
`
	_, err := execSQL(ctx, r.pool, tx, q,
		c.ID, c.Code, c.CourseID, c.UnitID,
		c.AccessWindow.StartAt, c.AccessWindow.EndAt, c.CodeExpiresAt,
		c.IsUsed, c.UsedByUserID, c.UsedAt, c.CreatedBy, c.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("insert access code: %w", err)
	}
	return nil
}

func (r *accessCodeRepo) FindByCode(ctx context.Context, tx repository.Tx, code string) (*model.AccessCode, error) {
	const q = `
SELECT ` + accessCodeColumns + `
  FROM access_codes
 WHERE code = $1;
`
	row, err := pickRow(ctx, r.pool, tx, q, code)
	if err != nil {
		return nil, err
	}
	return scanAccessCode(row)
}

func (r *accessCodeRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.AccessCode, error) {
	const q = `
SELECT ` + accessCodeColumns + `
  FROM access_codes
 WHERE id = $1;
`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	return scanAccessCode(row)
}

// Claim is the single mutation primitive: mark used AND assert it was unused
// in one conditional write. When two redemptions race, exactly one UPDATE
// matches; the other sees zero rows affected and gets ErrCodeAlreadyUsed.
func (r *accessCodeRepo) Claim(ctx context.Context, tx repository.Tx, id, userID string, at time.Time) error {
	const q = `
UPDATE access_codes
   SET is_used = TRUE, used_by_user_id = $2, used_at = $3
 WHERE id = $1 AND is_used = FALSE;
`
	tag, err := execSQL(ctx, r.pool, tx, q, id, userID, at)
	if err != nil {
		return fmt.Errorf("claim access code: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrCodeAlreadyUsed
	}
	return nil
}

func (r *accessCodeRepo) List(ctx context.Context, tx repository.Tx, filter repository.CodeListFilter, offset, limit int) ([]*model.AccessCode, int, error) {
	where, args := buildCodeFilter(filter)

	countQ := `SELECT COUNT(*) FROM access_codes` + where
	row, err := pickRow(ctx, r.pool, tx, countQ, args...)
	if err != nil {
		return nil, 0, err
	}
	var total int
	if err := row.Scan(&total); err != nil {
		return nil, 0, domain.ErrReadDatabaseRow
	}

	listQ := fmt.Sprintf(`SELECT `+accessCodeColumns+` FROM access_codes%s ORDER BY created_at DESC OFFSET $%d LIMIT $%d`,
		where, len(args)+1, len(args)+2)
	rows, err := queryRows(ctx, r.pool, tx, listQ, append(args, offset, limit)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []*model.AccessCode
	for rows.Next() {
		c, err := scanAccessCode(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, domain.ErrReadDatabaseRow
	}
	return out, total, nil
}

// Delete refuses to remove a claimed code: the conditional DELETE matches
// nothing, and the follow-up read tells Conflict apart from NotFound.
func (r *accessCodeRepo) Delete(ctx context.Context, tx repository.Tx, id string) error {
	const q = `DELETE FROM access_codes WHERE id = $1 AND is_used = FALSE;`
	tag, err := execSQL(ctx, r.pool, tx, q, id)
	if err != nil {
		return fmt.Errorf("delete access code: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}
	if _, err := r.FindByID(ctx, tx, id); err != nil {
		return err // ErrNotFound
	}
	return domain.ErrConflict
}

func (r *accessCodeRepo) DeleteMany(ctx context.Context, tx repository.Tx, ids []string, filter repository.CodeListFilter, onlyUnused bool) (int, error) {
	q := `DELETE FROM access_codes WHERE id = ANY($1)`
	args := []interface{}{ids}
	if filter.CourseID != "" {
		args = append(args, filter.CourseID)
		q += fmt.Sprintf(" AND course_id = $%d", len(args))
	}
	if filter.UnitID != "" {
		args = append(args, filter.UnitID)
		q += fmt.Sprintf(" AND unit_id = $%d", len(args))
	}
	if onlyUnused {
		q += " AND is_used = FALSE"
	}
	tag, err := execSQL(ctx, r.pool, tx, q+";", args...)
	if err != nil {
		return 0, fmt.Errorf("bulk delete access codes: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func buildCodeFilter(filter repository.CodeListFilter) (string, []interface{}) {
	where := ""
	var args []interface{}
	add := func(clause string, arg interface{}) {
		args = append(args, arg)
		if where == "" {
			where = " WHERE "
		} else {
			where += " AND "
		}
		where += fmt.Sprintf(clause, len(args))
	}
	if filter.CourseID != "" {
		add("course_id = $%d", filter.CourseID)
	}
	if filter.UnitID != "" {
		add("unit_id = $%d", filter.UnitID)
	}
	if filter.Query != "" {
		add("code ILIKE $%d", "%"+filter.Query+"%")
	}
	if filter.Used != nil {
		add("is_used = $%d", *filter.Used)
	}
	return where, args
}

func scanAccessCode(row pgx.Row) (*model.AccessCode, error) {
	var c model.AccessCode
	err := row.Scan(
		&c.ID, &c.Code, &c.CourseID, &c.UnitID,
		&c.AccessWindow.StartAt, &c.AccessWindow.EndAt, &c.CodeExpiresAt,
		&c.IsUsed, &c.UsedByUserID, &c.UsedAt, &c.CreatedBy, &c.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return &c, nil
}
