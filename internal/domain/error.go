package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrAlreadyExists      = errors.New("entity already exists")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrConflict           = errors.New("operation conflicts with current state")
	ErrOperationFailed    = errors.New("operation failed")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
	ErrInvalidExecContext = errors.New("invalid database execution context")

	// Redemption errors. Each validation failure has its own sentinel so
	// callers can tell "already used" from "expired" from "wrong unit".
	ErrCodeNotFound    = errors.New("access code not found")
	ErrCodeAlreadyUsed = errors.New("access code already used")
	ErrCodeExpired     = errors.New("access code expired")
	ErrWindowExpired   = errors.New("access window has already ended")
	ErrCodeMismatch    = errors.New("access code bound to a different course or unit")
)
