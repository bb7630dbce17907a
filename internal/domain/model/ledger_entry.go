package model

import "time"

// LedgerEntryKind labels entries in a user's activity ledger.
type LedgerEntryKind string

const (
	// LedgerEntryUnitAccessCode records a zero-amount entry appended after a
	// successful code redemption.
	LedgerEntryUnitAccessCode LedgerEntryKind = "unit_access_code"
)

// LedgerEntry is one row of a user's activity history. Entries are
// best-effort: a failed append never affects the operation that produced it.
type LedgerEntry struct {
	ID          string // ULID, time-sortable
	UserID      string
	Kind        LedgerEntryKind
	Amount      int64
	Description string
	CreatedAt   time.Time
}
