package deposits

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ratepulse/backend/internal/models"
	"github.com/ratepulse/backend/internal/repository"
)

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

const depositColumns = `id, account_id, amount, status, created_at, updated_at`

func scanDeposit(row pgx.Row) (*models.Deposit, error) {
	var d models.Deposit
	if err := row.Scan(&d.ID, &d.AccountID, &d.Amount, &d.Status, &d.CreatedAt, &d.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &d, nil
}

func (r *Repository) Create(ctx context.Context, d *models.Deposit) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO deposits (id, account_id, amount, status)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at
	`, d.ID, d.AccountID, d.Amount, d.Status).Scan(&d.CreatedAt, &d.UpdatedAt)
}

func (r *Repository) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Deposit, error) {
	return scanDeposit(tx.QueryRow(ctx, `SELECT `+depositColumns+` FROM deposits WHERE id = $1 FOR UPDATE`, id))
}

func (r *Repository) UpdateStatus(ctx context.Context, tx pgx.Tx, d *models.Deposit) error {
	return tx.QueryRow(ctx, `
		UPDATE deposits SET status = $2, updated_at = now() WHERE id = $1
		RETURNING updated_at
	`, d.ID, d.Status).Scan(&d.UpdatedAt)
}

func (r *Repository) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]*models.Deposit, error) {
	return r.list(ctx, `WHERE account_id = $1 ORDER BY created_at DESC`, accountID)
}

func (r *Repository) List(ctx context.Context) ([]*models.Deposit, error) {
	return r.list(ctx, `ORDER BY created_at DESC`)
}

func (r *Repository) list(ctx context.Context, tail string, args ...any) ([]*models.Deposit, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+depositColumns+` FROM deposits `+tail, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []*models.Deposit{}
	for rows.Next() {
		d, err := scanDeposit(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, d)
	}
	return list, rows.Err()
}
