package repository

import (
	"context"
	"time"

	"course-unit-access/internal/domain/model"
)

// CodeListFilter narrows List results. Zero values mean "no constraint".
type CodeListFilter struct {
	CourseID string
	UnitID   string
	Query    string // case-insensitive match against the code value
	Used     *bool  // nil = both used and unused
}

// AccessCodeRepository is the port for issued access codes.
//
// Claim is the only mutation a code ever sees after creation and must be a
// single conditional write: "mark used AND assert it was unused" in one
// atomic operation against the store. A read-then-save pair is not an
// acceptable implementation.
type AccessCodeRepository interface {
	// Create persists a new, unclaimed code. Returns domain.ErrAlreadyExists
	// if the code value collides with an existing one.
	Create(ctx context.Context, tx Tx, code *model.AccessCode) error
	// FindByCode looks a code up by its value regardless of state.
	FindByCode(ctx context.Context, tx Tx, code string) (*model.AccessCode, error)
	// FindByID looks a code up by ID regardless of state.
	FindByID(ctx context.Context, tx Tx, id string) (*model.AccessCode, error)
	// Claim atomically transitions the code to used if and only if it is
	// still unused, recording who claimed it and when. Returns
	// domain.ErrCodeAlreadyUsed when the conditional write affects no row.
	Claim(ctx context.Context, tx Tx, id, userID string, at time.Time) error
	// List returns one page of codes matching the filter, newest first,
	// along with the total match count.
	List(ctx context.Context, tx Tx, filter CodeListFilter, offset, limit int) ([]*model.AccessCode, int, error)
	// Delete removes an unclaimed code. Returns domain.ErrConflict if the
	// code is claimed and domain.ErrNotFound if it does not exist.
	Delete(ctx context.Context, tx Tx, id string) error
	// DeleteMany removes the given codes, optionally restricted by filter
	// and to unused codes only. Claimed codes are silently excluded; the
	// number of rows actually deleted is returned.
	DeleteMany(ctx context.Context, tx Tx, ids []string, filter CodeListFilter, onlyUnused bool) (int, error)
}
