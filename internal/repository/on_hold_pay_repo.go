package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ratepulse/backend/internal/models"
)

type OnHoldPayRepo struct {
	pool *pgxpool.Pool
}

func NewOnHoldPayRepo(pool *pgxpool.Pool) *OnHoldPayRepo {
	return &OnHoldPayRepo{pool: pool}
}

func (r *OnHoldPayRepo) Create(ctx context.Context, p *models.OnHoldPay) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO on_hold_pays (id, min_amount, max_amount, is_active)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`, p.ID, p.MinAmount, p.MaxAmount, p.IsActive).Scan(&p.CreatedAt)
}

func (r *OnHoldPayRepo) GetByID(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.OnHoldPay, error) {
	var p models.OnHoldPay
	err := on(r.pool, tx).QueryRow(ctx, `
		SELECT id, min_amount, max_amount, is_active, created_at FROM on_hold_pays WHERE id = $1
	`, id).Scan(&p.ID, &p.MinAmount, &p.MaxAmount, &p.IsActive, &p.CreatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return &p, nil
}

func (r *OnHoldPayRepo) List(ctx context.Context) ([]models.OnHoldPay, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, min_amount, max_amount, is_active, created_at FROM on_hold_pays ORDER BY min_amount
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []models.OnHoldPay{}
	for rows.Next() {
		var p models.OnHoldPay
		if err := rows.Scan(&p.ID, &p.MinAmount, &p.MaxAmount, &p.IsActive, &p.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

func (r *OnHoldPayRepo) Update(ctx context.Context, p *models.OnHoldPay) error {
	err := r.pool.QueryRow(ctx, `
		UPDATE on_hold_pays SET min_amount = $2, max_amount = $3, is_active = $4
		WHERE id = $1
		RETURNING created_at
	`, p.ID, p.MinAmount, p.MaxAmount, p.IsActive).Scan(&p.CreatedAt)
	return mapErr(err)
}
