package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"course-unit-access/internal/domain/model"
	"course-unit-access/internal/domain/ports/repository"
)

var _ repository.LedgerRepository = (*ledgerRepo)(nil)

type ledgerRepo struct {
	pool *pgxpool.Pool
}

func NewLedgerRepo(pool *pgxpool.Pool) repository.LedgerRepository {
	return &ledgerRepo{pool: pool}
}

func (r *ledgerRepo) Append(ctx context.Context, tx repository.Tx, e *model.LedgerEntry) error {
	const q = `
INSERT INTO ledger_entries (id, user_id, kind, amount, description, created_at)
VALUES ($1, $2, $3, $4, $5, $6);
`
	_, err := execSQL(ctx, r.pool, tx, q, e.ID, e.UserID, string(e.Kind), e.Amount, e.Description, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("append ledger entry: %w", err)
	}
	return nil
}
