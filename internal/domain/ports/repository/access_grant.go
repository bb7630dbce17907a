package repository

import (
	"context"

	"course-unit-access/internal/domain/model"
)

// AccessGrantRepository is the port for realized unlocks. Grants are
// insert-only.
type AccessGrantRepository interface {
	// Create persists a grant. Creation is idempotent on the origin code: a
	// retry for the same origin code is a no-op rather than a second grant.
	Create(ctx context.Context, tx Tx, grant *model.AccessGrant) error
	// FindCurrent returns the grant for (user, course, unit) whose window
	// end is furthest in the future and still ahead of now, or
	// domain.ErrNotFound if no grant is currently valid.
	FindCurrent(ctx context.Context, tx Tx, userID, courseID, unitID string) (*model.AccessGrant, error)
	// FindByOriginCode returns the grant created from the given code, if any.
	FindByOriginCode(ctx context.Context, tx Tx, codeID string) (*model.AccessGrant, error)
}
