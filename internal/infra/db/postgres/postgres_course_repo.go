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

var _ repository.CourseRepository = (*courseRepo)(nil)

type courseRepo struct {
	pool *pgxpool.Pool
}

func NewCourseRepo(pool *pgxpool.Pool) repository.CourseRepository {
	return &courseRepo{pool: pool}
}

// Save upserts the course and replaces its unit list. Used by seeding and
// tests; catalog management proper lives outside this service.
func (r *courseRepo) Save(ctx context.Context, tx repository.Tx, course *model.Course) error {
	const upsert = `
INSERT INTO courses (id, title, created_at)
VALUES ($1, $2, $3)
ON CONFLICT (id) DO UPDATE SET title = EXCLUDED.title;
`
	if _, err := execSQL(ctx, r.pool, tx, upsert, course.ID, course.Title, course.CreatedAt); err != nil {
		return fmt.Errorf("upsert course: %w", err)
	}
	if _, err := execSQL(ctx, r.pool, tx, `DELETE FROM course_units WHERE course_id = $1;`, course.ID); err != nil {
		return fmt.Errorf("clear course units: %w", err)
	}
	const insertUnit = `INSERT INTO course_units (id, course_id, title, position) VALUES ($1, $2, $3, $4);`
	for i, u := range course.Units {
		if _, err := execSQL(ctx, r.pool, tx, insertUnit, u.ID, course.ID, u.Title, i); err != nil {
			return fmt.Errorf("insert course unit: %w", err)
		}
	}
	return nil
}

func (r *courseRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Course, error) {
	const q = `SELECT id, title, created_at FROM courses WHERE id = $1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	var c model.Course
	if err := row.Scan(&c.ID, &c.Title, &c.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}

	const unitsQ = `SELECT id, title FROM course_units WHERE course_id = $1 ORDER BY position ASC;`
	rows, err := queryRows(ctx, r.pool, tx, unitsQ, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var u model.Unit
		if err := rows.Scan(&u.ID, &u.Title); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		c.Units = append(c.Units, u)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return &c, nil
}
