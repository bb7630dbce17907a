package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"course-unit-access/internal/domain"
	"course-unit-access/internal/domain/model"
	"course-unit-access/internal/domain/ports/repository"
	"course-unit-access/internal/infra/metrics"
)

const (
	// MaxBatchQuantity bounds a single issuance request.
	MaxBatchQuantity = 200
	// maxGenerateRetries caps collision retries per code. Collisions are
	// astronomically unlikely at 10 characters over a 32-symbol alphabet, so
	// exhausting the cap indicates a generator defect and is surfaced as an
	// internal failure.
	maxGenerateRetries = 20
)

// IssueParams describes one issuance request.
type IssueParams struct {
	CourseID      string
	UnitID        string
	Window        model.AccessWindow
	Quantity      int
	CodeExpiresAt time.Time // zero = 90-day default
	IssuedBy      string
}

// AdminCodeService orchestrates code issuance and lifecycle management for
// codes that have not been claimed yet.
type AdminCodeService struct {
	codes   repository.AccessCodeRepository
	courses repository.CourseRepository
	log     *zerolog.Logger
}

// NewAdminCodeService constructs the service.
func NewAdminCodeService(codes repository.AccessCodeRepository, courses repository.CourseRepository, logger *zerolog.Logger) *AdminCodeService {
	return &AdminCodeService{codes: codes, courses: courses, log: logger}
}

// Issue generates and persists a batch of codes bound to one (course, unit,
// window). Each code is one durable write: if persistence fails at item k,
// the first k-1 codes are already valid and claimable, so the slice created
// so far is returned alongside the error.
func (s *AdminCodeService) Issue(ctx context.Context, p IssueParams) ([]*model.AccessCode, error) {
	if p.Quantity < 1 || p.Quantity > MaxBatchQuantity {
		return nil, fmt.Errorf("quantity must be between 1 and %d: %w", MaxBatchQuantity, domain.ErrInvalidArgument)
	}
	if err := p.Window.Validate(); err != nil {
		return nil, fmt.Errorf("access window end must be after start: %w", err)
	}
	if p.IssuedBy == "" {
		return nil, fmt.Errorf("issuing admin identity is required: %w", domain.ErrInvalidArgument)
	}

	course, err := s.courses.FindByID(ctx, repository.NoTX, p.CourseID)
	if err != nil {
		return nil, fmt.Errorf("course %s: %w", p.CourseID, err)
	}
	if course.Unit(p.UnitID) == nil {
		return nil, fmt.Errorf("unit %s not found in course %s: %w", p.UnitID, p.CourseID, domain.ErrNotFound)
	}

	issued := make([]*model.AccessCode, 0, p.Quantity)
	for i := 0; i < p.Quantity; i++ {
		code, err := s.issueOne(ctx, p)
		if err != nil {
			// Partial batch: the codes issued so far stay valid.
			s.log.Error().Err(err).Int("issued", len(issued)).Int("requested", p.Quantity).Msg("issuance stopped mid-batch")
			return issued, fmt.Errorf("issued %d of %d codes: %w", len(issued), p.Quantity, err)
		}
		issued = append(issued, code)
	}

	metrics.AddCodesIssued(len(issued))
	s.log.Info().Str("course_id", p.CourseID).Str("unit_id", p.UnitID).Int("quantity", len(issued)).Msg("access codes issued")
	return issued, nil
}

func (s *AdminCodeService) issueOne(ctx context.Context, p IssueParams) (*model.AccessCode, error) {
	for attempt := 0; attempt < maxGenerateRetries; attempt++ {
		value, err := generateAccessCode()
		if err != nil {
			return nil, fmt.Errorf("generate code: %w", err)
		}
		code, err := model.NewAccessCode(uuid.NewString(), value, p.CourseID, p.UnitID, p.Window, p.CodeExpiresAt, p.IssuedBy)
		if err != nil {
			return nil, err
		}
		err = s.codes.Create(ctx, repository.NoTX, code)
		if err == nil {
			return code, nil
		}
		if errors.Is(err, domain.ErrAlreadyExists) {
			s.log.Warn().Int("attempt", attempt+1).Msg("access code collision, regenerating")
			continue
		}
		return nil, err
	}
	return nil, fmt.Errorf("code generation retries exhausted: %w", domain.ErrOperationFailed)
}

// List returns one page of codes plus the total match count. page is
// 1-based; pageSize falls back to 20.
func (s *AdminCodeService) List(ctx context.Context, filter repository.CodeListFilter, page, pageSize int) ([]*model.AccessCode, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	return s.codes.List(ctx, repository.NoTX, filter, (page-1)*pageSize, pageSize)
}

// Delete removes a single unclaimed code. Deleting a claimed code is refused
// with ErrConflict, never silently skipped.
func (s *AdminCodeService) Delete(ctx context.Context, codeID string) error {
	if codeID == "" {
		return domain.ErrInvalidArgument
	}
	if err := s.codes.Delete(ctx, repository.NoTX, codeID); err != nil {
		return err
	}
	s.log.Info().Str("code_id", codeID).Msg("access code deleted")
	return nil
}

// BulkDelete removes the targeted codes. With onlyUnused, claimed codes are
// silently excluded from the deletion set; the returned count lets the
// caller detect partial completion.
func (s *AdminCodeService) BulkDelete(ctx context.Context, ids []string, filter repository.CodeListFilter, onlyUnused bool) (int, error) {
	if len(ids) == 0 {
		return 0, fmt.Errorf("ids are required: %w", domain.ErrInvalidArgument)
	}
	deleted, err := s.codes.DeleteMany(ctx, repository.NoTX, ids, filter, onlyUnused)
	if err != nil {
		return 0, err
	}
	s.log.Info().Int("requested", len(ids)).Int("deleted", deleted).Msg("access codes bulk-deleted")
	return deleted, nil
}
