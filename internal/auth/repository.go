package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/ratepulse/backend/internal/ledger"
	"github.com/ratepulse/backend/internal/models"
	"github.com/ratepulse/backend/internal/repository"
)

// Repository writes a new account and its opening wallet in one transaction.
type Repository struct {
	pool     *pgxpool.Pool
	accounts *repository.AccountRepo
	wallets  *ledger.Repository
}

func NewRepository(pool *pgxpool.Pool, accounts *repository.AccountRepo, wallets *ledger.Repository) *Repository {
	return &Repository{pool: pool, accounts: accounts, wallets: wallets}
}

// CreateAccount resolves referralCode (empty means none), inserts a and
// opens its wallet with bonus as the starting balance.
func (r *Repository) CreateAccount(ctx context.Context, a *models.Account, referralCode string, bonus decimal.Decimal) (*models.Wallet, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if referralCode != "" {
		ref, err := r.accounts.GetByReferralCode(ctx, tx, referralCode)
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidReferral
		}
		if err != nil {
			return nil, fmt.Errorf("resolve referral: %w", err)
		}
		a.ReferredBy = &ref.ID
	}
	a.SignupBonusApplied = bonus.IsPositive()
	if err := r.accounts.Create(ctx, tx, a); err != nil {
		return nil, err
	}
	w, err := r.wallets.Create(ctx, tx, a.ID, bonus)
	if err != nil {
		return nil, fmt.Errorf("create wallet: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return w, nil
}

func (r *Repository) GetByLogin(ctx context.Context, login string) (*models.Account, error) {
	return r.accounts.GetByLogin(ctx, login)
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	return r.accounts.GetByID(ctx, nil, id)
}

func (r *Repository) UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	return r.accounts.UpdatePasswordHash(ctx, id, hash)
}
