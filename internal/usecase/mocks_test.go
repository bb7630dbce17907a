//go:build !integration

package usecase

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"

	"course-unit-access/internal/domain"
	"course-unit-access/internal/domain/model"
	"course-unit-access/internal/domain/ports/repository"
)

// memCodeRepo is a small in-memory implementation used by unit tests. Claim
// holds the same mutex as every other method, so it is atomic the way the
// real conditional UPDATE is.
type memCodeRepo struct {
	mu        sync.Mutex
	byID      map[string]*model.AccessCode
	createErr error // used by tests to simulate store failures
	claimErr  error
}

func newMemCodeRepo() *memCodeRepo {
	return &memCodeRepo{byID: make(map[string]*model.AccessCode)}
}

func (m *memCodeRepo) Create(ctx context.Context, tx repository.Tx, code *model.AccessCode) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.byID {
		if c.Code == code.Code {
			return domain.ErrAlreadyExists
		}
	}
	cp := *code
	m.byID[code.ID] = &cp
	return nil
}

func (m *memCodeRepo) FindByCode(ctx context.Context, tx repository.Tx, code string) (*model.AccessCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.byID {
		if c.Code == code {
			cp := *c
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memCodeRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.AccessCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *memCodeRepo) Claim(ctx context.Context, tx repository.Tx, id, userID string, at time.Time) error {
	if m.claimErr != nil {
		return m.claimErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.byID[id]
	if !ok || c.IsUsed {
		return domain.ErrCodeAlreadyUsed
	}
	c.IsUsed = true
	c.UsedByUserID = &userID
	t := at
	c.UsedAt = &t
	return nil
}

func (m *memCodeRepo) List(ctx context.Context, tx repository.Tx, filter repository.CodeListFilter, offset, limit int) ([]*model.AccessCode, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var matched []*model.AccessCode
	for _, c := range m.byID {
		if filter.CourseID != "" && c.CourseID != filter.CourseID {
			continue
		}
		if filter.UnitID != "" && c.UnitID != filter.UnitID {
			continue
		}
		if filter.Query != "" && !strings.Contains(strings.ToLower(c.Code), strings.ToLower(filter.Query)) {
			continue
		}
		if filter.Used != nil && c.IsUsed != *filter.Used {
			continue
		}
		cp := *c
		matched = append(matched, &cp)
	}
	total := len(matched)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return matched[offset:end], total, nil
}

func (m *memCodeRepo) Delete(ctx context.Context, tx repository.Tx, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	if c.IsUsed {
		return domain.ErrConflict
	}
	delete(m.byID, id)
	return nil
}

func (m *memCodeRepo) DeleteMany(ctx context.Context, tx repository.Tx, ids []string, filter repository.CodeListFilter, onlyUnused bool) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	deleted := 0
	for _, id := range ids {
		c, ok := m.byID[id]
		if !ok {
			continue
		}
		if filter.CourseID != "" && c.CourseID != filter.CourseID {
			continue
		}
		if filter.UnitID != "" && c.UnitID != filter.UnitID {
			continue
		}
		if onlyUnused && c.IsUsed {
			continue
		}
		delete(m.byID, id)
		deleted++
	}
	return deleted, nil
}

// memGrantRepo stores grants keyed by origin code, mirroring the unique
// index that makes grant creation idempotent.
type memGrantRepo struct {
	mu        sync.Mutex
	byOrigin  map[string]*model.AccessGrant
	createErr error
}

func newMemGrantRepo() *memGrantRepo {
	return &memGrantRepo{byOrigin: make(map[string]*model.AccessGrant)}
}

func (m *memGrantRepo) Create(ctx context.Context, tx repository.Tx, grant *model.AccessGrant) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byOrigin[grant.OriginCodeID]; ok {
		return nil // ON CONFLICT DO NOTHING
	}
	cp := *grant
	m.byOrigin[grant.OriginCodeID] = &cp
	return nil
}

func (m *memGrantRepo) FindCurrent(ctx context.Context, tx repository.Tx, userID, courseID, unitID string) (*model.AccessGrant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	var best *model.AccessGrant
	for _, g := range m.byOrigin {
		if g.UserID != userID || g.CourseID != courseID || g.UnitID != unitID {
			continue
		}
		if !g.AccessWindow.EndAt.After(now) {
			continue
		}
		if best == nil || g.AccessWindow.EndAt.After(best.AccessWindow.EndAt) {
			best = g
		}
	}
	if best == nil {
		return nil, domain.ErrNotFound
	}
	cp := *best
	return &cp, nil
}

func (m *memGrantRepo) FindByOriginCode(ctx context.Context, tx repository.Tx, codeID string) (*model.AccessGrant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.byOrigin[codeID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *g
	return &cp, nil
}

func (m *memGrantRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byOrigin)
}

// memCourseRepo is a fixed in-memory catalog.
type memCourseRepo struct {
	mu    sync.RWMutex
	byID  map[string]*model.Course
}

func newMemCourseRepo() *memCourseRepo {
	return &memCourseRepo{byID: make(map[string]*model.Course)}
}

func (m *memCourseRepo) Save(ctx context.Context, tx repository.Tx, course *model.Course) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *course
	m.byID[course.ID] = &cp
	return nil
}

func (m *memCourseRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Course, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

// memLedger records appends; appendErr simulates a broken ledger collaborator.
type memLedger struct {
	mu        sync.Mutex
	entries   []*model.LedgerEntry
	appendErr error
}

func (m *memLedger) Append(ctx context.Context, tx repository.Tx, entry *model.LedgerEntry) error {
	if m.appendErr != nil {
		return m.appendErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *entry
	m.entries = append(m.entries, &cp)
	return nil
}

// mockTxManager runs the callback without a real transaction; the in-memory
// repos are individually atomic.
type mockTxManager struct{}

func (m *mockTxManager) WithTx(ctx context.Context, _ pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	return fn(ctx, nil)
}
