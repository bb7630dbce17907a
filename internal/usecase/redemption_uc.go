package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"course-unit-access/internal/domain"
	"course-unit-access/internal/domain/model"
	"course-unit-access/internal/domain/ports/repository"
	"course-unit-access/internal/infra/logging"
	"course-unit-access/internal/infra/metrics"
)

// RedemptionEngine turns a valid, unclaimed code into an access grant.
//
// The state machine per code is Active --[redeem success]--> Claimed,
// terminal, with no other transitions. Validation reads a possibly-stale
// snapshot; the claim itself is a conditional write that re-asserts the code
// is still unclaimed, so two racing redemptions resolve to exactly one grant
// and one ErrCodeAlreadyUsed.
type RedemptionEngine struct {
	codes   repository.AccessCodeRepository
	grants  repository.AccessGrantRepository
	courses repository.CourseRepository
	ledger  repository.LedgerRepository
	txm     repository.TransactionManager
	log     *zerolog.Logger
}

// NewRedemptionEngine constructs the engine. ledger may be nil when no
// activity ledger is wired (tests, seed tooling).
func NewRedemptionEngine(
	codes repository.AccessCodeRepository,
	grants repository.AccessGrantRepository,
	courses repository.CourseRepository,
	ledger repository.LedgerRepository,
	txm repository.TransactionManager,
	logger *zerolog.Logger,
) *RedemptionEngine {
	return &RedemptionEngine{codes: codes, grants: grants, courses: courses, ledger: ledger, txm: txm, log: logger}
}

// Redeem validates the code against the request, claims it, and persists the
// resulting grant. All validation failures are detected before any mutation.
// Claim and grant insert run in one transaction; the grant insert is
// additionally idempotent on the origin code so a retry after a partial
// failure cannot produce a second grant.
func (e *RedemptionEngine) Redeem(ctx context.Context, rawCode, courseID, unitID, userID string) (*model.AccessGrant, error) {
	defer logging.TraceDuration(e.log, "RedemptionEngine.Redeem")()

	if rawCode == "" || courseID == "" || unitID == "" || userID == "" {
		return nil, domain.ErrInvalidArgument
	}

	code, err := e.codes.FindByCode(ctx, repository.NoTX, rawCode)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			metrics.IncRedemption("not_found")
			return nil, domain.ErrCodeNotFound
		}
		return nil, err
	}

	now := time.Now()
	if code.IsUsed {
		// A second attempt on a claimed code is always an error, even by the
		// user who claimed it.
		metrics.IncRedemption("already_used")
		return nil, domain.ErrCodeAlreadyUsed
	}
	if code.Expired(now) {
		metrics.IncRedemption("code_expired")
		return nil, domain.ErrCodeExpired
	}
	if !code.Matches(courseID, unitID) {
		metrics.IncRedemption("mismatch")
		return nil, domain.ErrCodeMismatch
	}

	// Catalog membership may have changed since issuance.
	course, err := e.courses.FindByID(ctx, repository.NoTX, code.CourseID)
	if err != nil {
		return nil, fmt.Errorf("course %s: %w", code.CourseID, err)
	}
	unit := course.Unit(code.UnitID)
	if unit == nil {
		metrics.IncRedemption("unit_missing")
		return nil, fmt.Errorf("unit %s no longer in course %s: %w", code.UnitID, code.CourseID, domain.ErrNotFound)
	}

	if code.AccessWindow.Ended(now) {
		metrics.IncRedemption("window_expired")
		return nil, domain.ErrWindowExpired
	}

	grant, err := model.NewAccessGrant(ulid.Make().String(), userID, code, now)
	if err != nil {
		return nil, err
	}

	err = e.txm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if err := e.codes.Claim(ctx, tx, code.ID, userID, now); err != nil {
			return err
		}
		return e.grants.Create(ctx, tx, grant)
	})
	if err != nil {
		if errors.Is(err, domain.ErrCodeAlreadyUsed) {
			// Lost the race at the conditional write. Same error as the
			// sequential already-used case.
			metrics.IncRedemption("already_used")
			return nil, domain.ErrCodeAlreadyUsed
		}
		metrics.IncRedemption("store_error")
		return nil, fmt.Errorf("claim code %s: %w", code.ID, err)
	}

	metrics.IncRedemption("granted")
	e.appendLedgerEntry(ctx, userID, unit.Title)

	e.log.Info().
		Str("code_id", code.ID).
		Str("user_id", userID).
		Str("course_id", code.CourseID).
		Str("unit_id", code.UnitID).
		Time("access_end_at", grant.AccessWindow.EndAt).
		Msg("unit access granted via code")
	return grant, nil
}

// appendLedgerEntry records the redemption in the user's activity history.
// Best-effort: the grant is already durable, so a ledger failure is only
// logged.
func (e *RedemptionEngine) appendLedgerEntry(ctx context.Context, userID, unitTitle string) {
	if e.ledger == nil {
		return
	}
	entry := &model.LedgerEntry{
		ID:          ulid.Make().String(),
		UserID:      userID,
		Kind:        model.LedgerEntryUnitAccessCode,
		Amount:      0,
		Description: fmt.Sprintf("Unit access granted via code for %s", unitTitle),
		CreatedAt:   time.Now(),
	}
	if err := e.ledger.Append(ctx, repository.NoTX, entry); err != nil {
		e.log.Error().Err(err).Str("user_id", userID).Msg("ledger append failed")
	}
}
