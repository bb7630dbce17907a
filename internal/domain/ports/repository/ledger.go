package repository

import (
	"context"

	"course-unit-access/internal/domain/model"
)

// LedgerRepository is the port to the user activity ledger collaborator.
// Appends are fire-and-forget from the caller's point of view: an error is
// logged, never propagated into the operation that produced the entry.
type LedgerRepository interface {
	Append(ctx context.Context, tx Tx, entry *model.LedgerEntry) error
}
