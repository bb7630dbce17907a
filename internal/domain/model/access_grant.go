package model

import (
	"time"

	"course-unit-access/internal/domain"
)

// GrantSource identifies how an access grant came to exist.
type GrantSource string

const (
	// GrantSourceCode is currently the only source: a redeemed access code.
	GrantSourceCode GrantSource = "code"
)

// AccessGrant records that one user holds access to one unit for one window.
// Grants are write-once; a user may accumulate several for the same unit and
// any currently-valid one is sufficient.
type AccessGrant struct {
	ID           string
	UserID       string
	CourseID     string
	UnitID       string
	AccessWindow AccessWindow
	Source       GrantSource
	OriginCodeID string
	CreatedAt    time.Time
}

// NewAccessGrant builds the grant for a freshly claimed code. The effective
// window start is clamped to the redemption instant so a late redemption does
// not extend backward; a future start (prepaid code) is kept as-is.
func NewAccessGrant(id, userID string, code *AccessCode, now time.Time) (*AccessGrant, error) {
	if id == "" || userID == "" || code == nil {
		return nil, domain.ErrInvalidArgument
	}
	start := code.AccessWindow.StartAt
	if now.After(start) {
		start = now
	}
	w := AccessWindow{StartAt: start, EndAt: code.AccessWindow.EndAt}
	if err := w.Validate(); err != nil {
		return nil, err
	}
	return &AccessGrant{
		ID:           id,
		UserID:       userID,
		CourseID:     code.CourseID,
		UnitID:       code.UnitID,
		AccessWindow: w,
		Source:       GrantSourceCode,
		OriginCodeID: code.ID,
		CreatedAt:    now,
	}, nil
}

// Valid reports whether the grant covers the given instant.
func (g *AccessGrant) Valid(now time.Time) bool {
	return now.Before(g.AccessWindow.EndAt)
}

// AccessDecision is the answer to "does this user currently have access".
type AccessDecision struct {
	Granted   bool
	ExpiresAt *time.Time
	Source    GrantSource
}
