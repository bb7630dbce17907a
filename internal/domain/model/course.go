package model

import (
	"time"

	"course-unit-access/internal/domain"
)

// Unit is one content unit inside a course.
type Unit struct {
	ID    string
	Title string
}

// Course is the read model of the catalog collaborator: just enough to
// confirm unit membership at issuance and redemption time.
type Course struct {
	ID        string
	Title     string
	Units     []Unit
	CreatedAt time.Time
}

// NewCourse validates and constructs a course.
func NewCourse(id, title string, units []Unit) (*Course, error) {
	if id == "" || title == "" {
		return nil, domain.ErrInvalidArgument
	}
	return &Course{ID: id, Title: title, Units: units, CreatedAt: time.Now()}, nil
}

// Unit returns the unit with the given ID, or nil if the course does not
// contain it. Membership may change between issuance and redemption, so both
// paths call this against a fresh catalog read.
func (c *Course) Unit(unitID string) *Unit {
	for i := range c.Units {
		if c.Units[i].ID == unitID {
			return &c.Units[i]
		}
	}
	return nil
}
