package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ratepulse/backend/internal/models"
)

type PackRepo struct {
	pool *pgxpool.Pool
}

func NewPackRepo(pool *pgxpool.Pool) *PackRepo {
	return &PackRepo{pool: pool}
}

const packColumns = `id, name, usd_value, daily_missions, daily_withdrawals, profit_percentage, payment_bonus,
	payment_limit_to_trigger_bonus, short_description, description, is_active, created_at, updated_at`

func scanPack(row pgx.Row) (*models.Pack, error) {
	var p models.Pack
	err := row.Scan(&p.ID, &p.Name, &p.UsdValue, &p.DailyMissions, &p.DailyWithdrawals, &p.ProfitPercentage, &p.PaymentBonus,
		&p.PaymentLimitToTriggerBonus, &p.ShortDescription, &p.Description, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return &p, nil
}

func (r *PackRepo) Create(ctx context.Context, p *models.Pack) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO packs (id, name, usd_value, daily_missions, daily_withdrawals, profit_percentage, payment_bonus,
			payment_limit_to_trigger_bonus, short_description, description, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at, updated_at
	`, p.ID, p.Name, p.UsdValue, p.DailyMissions, p.DailyWithdrawals, p.ProfitPercentage, p.PaymentBonus,
		p.PaymentLimitToTriggerBonus, p.ShortDescription, p.Description, p.IsActive).Scan(&p.CreatedAt, &p.UpdatedAt)
	return mapErr(err)
}

func (r *PackRepo) Update(ctx context.Context, p *models.Pack) error {
	err := r.pool.QueryRow(ctx, `
		UPDATE packs SET name = $2, usd_value = $3, daily_missions = $4, daily_withdrawals = $5, profit_percentage = $6,
			payment_bonus = $7, payment_limit_to_trigger_bonus = $8, short_description = $9, description = $10,
			is_active = $11, updated_at = now()
		WHERE id = $1
		RETURNING created_at, updated_at
	`, p.ID, p.Name, p.UsdValue, p.DailyMissions, p.DailyWithdrawals, p.ProfitPercentage, p.PaymentBonus,
		p.PaymentLimitToTriggerBonus, p.ShortDescription, p.Description, p.IsActive).Scan(&p.CreatedAt, &p.UpdatedAt)
	return mapErr(err)
}

// GetByID returns the pack; tx may be nil to read through the pool.
func (r *PackRepo) GetByID(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Pack, error) {
	return scanPack(on(r.pool, tx).QueryRow(ctx, `SELECT `+packColumns+` FROM packs WHERE id = $1`, id))
}

// ListActive returns active packs ordered by threshold.
func (r *PackRepo) ListActive(ctx context.Context, tx pgx.Tx) ([]models.Pack, error) {
	return r.list(ctx, tx, `WHERE is_active = TRUE ORDER BY usd_value`)
}

// List returns every pack, active or not.
func (r *PackRepo) List(ctx context.Context) ([]models.Pack, error) {
	return r.list(ctx, nil, `ORDER BY usd_value`)
}

func (r *PackRepo) list(ctx context.Context, tx pgx.Tx, tail string) ([]models.Pack, error) {
	rows, err := on(r.pool, tx).Query(ctx, `SELECT `+packColumns+` FROM packs `+tail)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []models.Pack{}
	for rows.Next() {
		p, err := scanPack(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *p)
	}
	return list, rows.Err()
}
