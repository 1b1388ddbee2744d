package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ratepulse/backend/internal/models"
)

// WalletEntryRepo stores the append-only audit trail of wallet mutations.
type WalletEntryRepo struct {
	pool *pgxpool.Pool
}

func NewWalletEntryRepo(pool *pgxpool.Pool) *WalletEntryRepo {
	return &WalletEntryRepo{pool: pool}
}

// CreateTx inserts an entry inside the given transaction.
func (r *WalletEntryRepo) CreateTx(ctx context.Context, tx pgx.Tx, e *models.WalletEntry) error {
	return tx.QueryRow(ctx, `
		INSERT INTO wallet_entries (id, account_id, submission_id, entry_type, amount, balance_after, on_hold_after)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`, e.ID, e.AccountID, e.SubmissionID, e.EntryType, e.Amount, e.BalanceAfter, e.OnHoldAfter).Scan(&e.CreatedAt)
}

func (r *WalletEntryRepo) ListByAccountID(ctx context.Context, accountID uuid.UUID) ([]*models.WalletEntry, error) {
	return r.list(ctx, `WHERE account_id = $1`, accountID)
}

func (r *WalletEntryRepo) ListBySubmissionID(ctx context.Context, submissionID uuid.UUID) ([]*models.WalletEntry, error) {
	return r.list(ctx, `WHERE submission_id = $1`, submissionID)
}

func (r *WalletEntryRepo) list(ctx context.Context, where string, arg uuid.UUID) ([]*models.WalletEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, account_id, submission_id, entry_type, amount, balance_after, on_hold_after, created_at
		FROM wallet_entries `+where+` ORDER BY created_at DESC, id
	`, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []*models.WalletEntry{}
	for rows.Next() {
		var e models.WalletEntry
		if err := rows.Scan(&e.ID, &e.AccountID, &e.SubmissionID, &e.EntryType, &e.Amount, &e.BalanceAfter, &e.OnHoldAfter, &e.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, &e)
	}
	return list, rows.Err()
}
