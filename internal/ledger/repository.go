package ledger

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/ratepulse/backend/internal/models"
)

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const walletColumns = `id, account_id, balance, on_hold, commission, salary, pack_id, created_at, updated_at`

func scanWallet(row pgx.Row) (*models.Wallet, error) {
	var w models.Wallet
	if err := row.Scan(&w.ID, &w.AccountID, &w.Balance, &w.OnHold, &w.Commission, &w.Salary, &w.PackID, &w.CreatedAt, &w.UpdatedAt); err != nil {
		return nil, err
	}
	return &w, nil
}

// Create inserts the wallet for a new account with an opening balance.
func (r *Repository) Create(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, balance decimal.Decimal) (*models.Wallet, error) {
	return scanWallet(tx.QueryRow(ctx, `
		INSERT INTO wallets (account_id, balance)
		VALUES ($1, $2)
		RETURNING `+walletColumns, accountID, balance))
}

// GetForUpdate creates the wallet lazily and locks the row. Call within a transaction.
func (r *Repository) GetForUpdate(ctx context.Context, tx pgx.Tx, accountID uuid.UUID) (*models.Wallet, error) {
	if _, err := tx.Exec(ctx, `
		INSERT INTO wallets (account_id) VALUES ($1)
		ON CONFLICT (account_id) DO NOTHING
	`, accountID); err != nil {
		return nil, err
	}
	return scanWallet(tx.QueryRow(ctx, `
		SELECT `+walletColumns+`
		FROM wallets WHERE account_id = $1 FOR UPDATE
	`, accountID))
}

// Get reads the wallet without locking. Returns pgx.ErrNoRows if it does not exist yet.
func (r *Repository) Get(ctx context.Context, accountID uuid.UUID) (*models.Wallet, error) {
	return scanWallet(r.pool.QueryRow(ctx, `
		SELECT `+walletColumns+` FROM wallets WHERE account_id = $1
	`, accountID))
}

func (r *Repository) Update(ctx context.Context, tx pgx.Tx, w *models.Wallet) error {
	return tx.QueryRow(ctx, `
		UPDATE wallets
		SET balance = $2, on_hold = $3, commission = $4, salary = $5, pack_id = $6, updated_at = now()
		WHERE id = $1
		RETURNING updated_at
	`, w.ID, w.Balance, w.OnHold, w.Commission, w.Salary, w.PackID).Scan(&w.UpdatedAt)
}
