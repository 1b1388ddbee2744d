package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ratepulse/backend/internal/models"
)

type PaymentMethodRepo struct {
	pool *pgxpool.Pool
}

func NewPaymentMethodRepo(pool *pgxpool.Pool) *PaymentMethodRepo {
	return &PaymentMethodRepo{pool: pool}
}

func (r *PaymentMethodRepo) Get(ctx context.Context, accountID uuid.UUID) (*models.PaymentMethod, error) {
	var m models.PaymentMethod
	err := r.pool.QueryRow(ctx, `
		SELECT account_id, name, phone_number, email_address, wallet, exchange, created_at, updated_at
		FROM payment_methods WHERE account_id = $1
	`, accountID).Scan(&m.AccountID, &m.Name, &m.PhoneNumber, &m.EmailAddress, &m.Wallet, &m.Exchange, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return &m, nil
}

// Upsert writes the account's single payment method. It reports whether the
// row was inserted rather than updated.
func (r *PaymentMethodRepo) Upsert(ctx context.Context, m *models.PaymentMethod) (bool, error) {
	var created bool
	err := r.pool.QueryRow(ctx, `
		INSERT INTO payment_methods (account_id, name, phone_number, email_address, wallet, exchange)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (account_id) DO UPDATE SET
			name = EXCLUDED.name, phone_number = EXCLUDED.phone_number, email_address = EXCLUDED.email_address,
			wallet = EXCLUDED.wallet, exchange = EXCLUDED.exchange, updated_at = now()
		RETURNING created_at, updated_at, (xmax = 0)
	`, m.AccountID, m.Name, m.PhoneNumber, m.EmailAddress, m.Wallet, m.Exchange).Scan(&m.CreatedAt, &m.UpdatedAt, &created)
	return created, mapErr(err)
}
