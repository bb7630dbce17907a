package model

import (
	"time"

	"course-unit-access/internal/domain"
)

// DefaultCodeExpiryDays is applied when issuance does not pin an explicit
// code expiry: an unused code stops being redeemable 90 days after issuance.
const DefaultCodeExpiryDays = 90

// AccessWindow is the period during which a grant produced from a code is
// valid. EndAt must be strictly after StartAt.
type AccessWindow struct {
	StartAt time.Time
	EndAt   time.Time
}

// Validate enforces window ordering.
func (w AccessWindow) Validate() error {
	if w.StartAt.IsZero() || w.EndAt.IsZero() || !w.EndAt.After(w.StartAt) {
		return domain.ErrInvalidArgument
	}
	return nil
}

// Ended reports whether the window has fully elapsed at the given instant.
func (w AccessWindow) Ended(now time.Time) bool { return now.After(w.EndAt) }

// AccessCode is a single-use token that unlocks one unit of one course for
// a fixed access window. A code transitions Active -> Claimed exactly once
// and is never mutated otherwise.
type AccessCode struct {
	ID            string
	Code          string // human-readable, globally unique
	CourseID      string
	UnitID        string
	AccessWindow  AccessWindow
	CodeExpiresAt time.Time
	IsUsed        bool
	UsedByUserID  *string    // pointer to allow for NULL
	UsedAt        *time.Time // pointer to allow for NULL
	CreatedBy     string     // issuing administrator
	CreatedAt     time.Time
}

// NewAccessCode validates and constructs an unclaimed code. A zero
// codeExpiresAt selects the 90-day default relative to now.
func NewAccessCode(id, code, courseID, unitID string, window AccessWindow, codeExpiresAt time.Time, createdBy string) (*AccessCode, error) {
	if id == "" || code == "" || courseID == "" || unitID == "" || createdBy == "" {
		return nil, domain.ErrInvalidArgument
	}
	if err := window.Validate(); err != nil {
		return nil, err
	}
	now := time.Now()
	if codeExpiresAt.IsZero() {
		codeExpiresAt = now.Add(DefaultCodeExpiryDays * 24 * time.Hour)
	}
	return &AccessCode{
		ID:            id,
		Code:          code,
		CourseID:      courseID,
		UnitID:        unitID,
		AccessWindow:  window,
		CodeExpiresAt: codeExpiresAt,
		IsUsed:        false,
		CreatedBy:     createdBy,
		CreatedAt:     now,
	}, nil
}

// Expired reports whether the code itself can no longer be redeemed,
// independent of the access window it would grant.
func (c *AccessCode) Expired(now time.Time) bool {
	return now.After(c.CodeExpiresAt)
}

// Matches reports whether the code was issued for the given course/unit pair.
func (c *AccessCode) Matches(courseID, unitID string) bool {
	return c.CourseID == courseID && c.UnitID == unitID
}
