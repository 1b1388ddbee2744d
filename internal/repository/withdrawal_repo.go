package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ratepulse/backend/internal/models"
)

type WithdrawalRepo struct {
	pool *pgxpool.Pool
}

func NewWithdrawalRepo(pool *pgxpool.Pool) *WithdrawalRepo {
	return &WithdrawalRepo{pool: pool}
}

const withdrawalColumns = `id, account_id, amount, status, created_at, updated_at`

func scanWithdrawal(row pgx.Row) (*models.Withdrawal, error) {
	var w models.Withdrawal
	if err := row.Scan(&w.ID, &w.AccountID, &w.Amount, &w.Status, &w.CreatedAt, &w.UpdatedAt); err != nil {
		return nil, mapErr(err)
	}
	return &w, nil
}

func (r *WithdrawalRepo) Create(ctx context.Context, tx pgx.Tx, w *models.Withdrawal) error {
	return tx.QueryRow(ctx, `
		INSERT INTO withdrawals (id, account_id, amount, status)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at
	`, w.ID, w.AccountID, w.Amount, w.Status).Scan(&w.CreatedAt, &w.UpdatedAt)
}

// CountBetween counts withdrawal requests created in [start, end), whatever their status.
func (r *WithdrawalRepo) CountBetween(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, start, end time.Time) (int, error) {
	var n int
	err := on(r.pool, tx).QueryRow(ctx, `
		SELECT count(*) FROM withdrawals
		WHERE account_id = $1 AND created_at >= $2 AND created_at < $3
	`, accountID, start, end).Scan(&n)
	return n, err
}

// GetByIDForUpdate locks the withdrawal row. Call within a transaction.
func (r *WithdrawalRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Withdrawal, error) {
	return scanWithdrawal(tx.QueryRow(ctx, `SELECT `+withdrawalColumns+` FROM withdrawals WHERE id = $1 FOR UPDATE`, id))
}

func (r *WithdrawalRepo) UpdateStatus(ctx context.Context, tx pgx.Tx, w *models.Withdrawal) error {
	return tx.QueryRow(ctx, `
		UPDATE withdrawals SET status = $2, updated_at = now() WHERE id = $1 RETURNING updated_at
	`, w.ID, w.Status).Scan(&w.UpdatedAt)
}

func (r *WithdrawalRepo) ListByAccountID(ctx context.Context, accountID uuid.UUID) ([]*models.Withdrawal, error) {
	return r.list(ctx, `WHERE account_id = $1 ORDER BY created_at DESC`, accountID)
}

func (r *WithdrawalRepo) List(ctx context.Context) ([]*models.Withdrawal, error) {
	return r.list(ctx, `ORDER BY created_at DESC`)
}

func (r *WithdrawalRepo) list(ctx context.Context, tail string, args ...any) ([]*models.Withdrawal, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+withdrawalColumns+` FROM withdrawals `+tail, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []*models.Withdrawal{}
	for rows.Next() {
		w, err := scanWithdrawal(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, w)
	}
	return list, rows.Err()
}
