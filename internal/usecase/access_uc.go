package usecase

import (
	"context"
	"errors"

	"course-unit-access/internal/domain"
	"course-unit-access/internal/domain/model"
	"course-unit-access/internal/domain/ports/repository"
)

// AccessEvaluator answers "does user U currently have access to unit X".
// Read-only; content-serving callers use it to gate playback.
type AccessEvaluator struct {
	grants repository.AccessGrantRepository
}

// NewAccessEvaluator constructs the evaluator.
func NewAccessEvaluator(grants repository.AccessGrantRepository) *AccessEvaluator {
	return &AccessEvaluator{grants: grants}
}

// HasAccess reports whether any grant for the triple is still valid. When
// several are, the latest-expiring one wins for display purposes.
func (e *AccessEvaluator) HasAccess(ctx context.Context, userID, courseID, unitID string) (model.AccessDecision, error) {
	if userID == "" || courseID == "" || unitID == "" {
		return model.AccessDecision{}, domain.ErrInvalidArgument
	}
	grant, err := e.grants.FindCurrent(ctx, repository.NoTX, userID, courseID, unitID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return model.AccessDecision{Granted: false}, nil
		}
		return model.AccessDecision{}, err
	}
	expires := grant.AccessWindow.EndAt
	return model.AccessDecision{Granted: true, ExpiresAt: &expires, Source: grant.Source}, nil
}
