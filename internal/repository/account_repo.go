package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ratepulse/backend/internal/models"
)

type AccountRepo struct {
	pool *pgxpool.Pool
}

func NewAccountRepo(pool *pgxpool.Pool) *AccountRepo {
	return &AccountRepo{pool: pool}
}

const accountColumns = `id, username, email, password_hash, transactional_secret_hash, referral_code, referred_by,
	referral_bonus_paid, minimum_balance_waived, signup_bonus_applied, is_staff, created_at, updated_at`

func scanAccount(row pgx.Row) (*models.Account, error) {
	var a models.Account
	err := row.Scan(&a.ID, &a.Username, &a.Email, &a.PasswordHash, &a.TransactionalSecretHash, &a.ReferralCode, &a.ReferredBy,
		&a.ReferralBonusPaid, &a.MinimumBalanceWaived, &a.SignupBonusApplied, &a.IsStaff, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return &a, nil
}

// Create inserts the account. Unique violations on username, email or
// referral code surface as ErrDuplicate.
func (r *AccountRepo) Create(ctx context.Context, tx pgx.Tx, a *models.Account) error {
	err := on(r.pool, tx).QueryRow(ctx, `
		INSERT INTO accounts (id, username, email, password_hash, transactional_secret_hash, referral_code, referred_by, signup_bonus_applied, is_staff)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at
	`, a.ID, a.Username, a.Email, a.PasswordHash, a.TransactionalSecretHash, a.ReferralCode, a.ReferredBy, a.SignupBonusApplied, a.IsStaff).Scan(&a.CreatedAt, &a.UpdatedAt)
	return mapErr(err)
}

func (r *AccountRepo) GetByID(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Account, error) {
	return scanAccount(on(r.pool, tx).QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id))
}

// GetByLogin looks an account up by username or email.
func (r *AccountRepo) GetByLogin(ctx context.Context, login string) (*models.Account, error) {
	return scanAccount(r.pool.QueryRow(ctx, `
		SELECT `+accountColumns+` FROM accounts WHERE username = $1 OR lower(email) = lower($1)
	`, login))
}

func (r *AccountRepo) GetByReferralCode(ctx context.Context, tx pgx.Tx, code string) (*models.Account, error) {
	return scanAccount(on(r.pool, tx).QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE referral_code = $1`, code))
}

func (r *AccountRepo) List(ctx context.Context) ([]*models.Account, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+accountColumns+` FROM accounts ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []*models.Account{}
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, a)
	}
	return list, rows.Err()
}

// ListStaffIDs returns the accounts that receive admin notifications.
func (r *AccountRepo) ListStaffIDs(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `SELECT id FROM accounts WHERE is_staff = TRUE`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
}

func (r *AccountRepo) SetMinimumBalanceWaived(ctx context.Context, id uuid.UUID, waived bool) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE accounts SET minimum_balance_waived = $2, updated_at = now() WHERE id = $1
	`, id, waived)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *AccountRepo) UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE accounts SET password_hash = $2, updated_at = now() WHERE id = $1
	`, id, hash)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkReferralBonusPaid flips referral_bonus_paid once. It reports false if
// the flag was already set.
func (r *AccountRepo) MarkReferralBonusPaid(ctx context.Context, tx pgx.Tx, id uuid.UUID) (bool, error) {
	tag, err := tx.Exec(ctx, `
		UPDATE accounts SET referral_bonus_paid = TRUE, updated_at = now()
		WHERE id = $1 AND referral_bonus_paid = FALSE
	`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
