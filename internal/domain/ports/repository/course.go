package repository

import (
	"context"

	"course-unit-access/internal/domain/model"
)

// CourseRepository is the port to the course catalog collaborator. The core
// only reads it: unit membership is confirmed at issuance and re-confirmed at
// redemption because the catalog may change in between. Save exists for
// seeding and tests.
type CourseRepository interface {
	Save(ctx context.Context, tx Tx, course *model.Course) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Course, error)
}
