package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ratepulse/backend/internal/models"
)

type ProductRepo struct {
	pool *pgxpool.Pool
}

func NewProductRepo(pool *pgxpool.Pool) *ProductRepo {
	return &ProductRepo{pool: pool}
}

const (
	productColumns  = `id, name, price, description, rating_no, created_at`
	productColumnsP = `p.id, p.name, p.price, p.description, p.rating_no, p.created_at`
)

func collectProducts(rows pgx.Rows) ([]models.Product, error) {
	defer rows.Close()
	list := []models.Product{}
	for rows.Next() {
		var p models.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Price, &p.Description, &p.RatingNo, &p.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

// Create inserts p. A name or rating_no collision surfaces as ErrDuplicate.
func (r *ProductRepo) Create(ctx context.Context, p *models.Product) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO products (id, name, price, description, rating_no)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`, p.ID, p.Name, p.Price, p.Description, p.RatingNo).Scan(&p.CreatedAt)
	return mapErr(err)
}

func (r *ProductRepo) List(ctx context.Context, tx pgx.Tx) ([]models.Product, error) {
	rows, err := on(r.pool, tx).Query(ctx, `SELECT `+productColumns+` FROM products ORDER BY name`)
	if err != nil {
		return nil, err
	}
	return collectProducts(rows)
}

// ListUnusedBetween returns products not attached to any submission the
// account created in [start, end).
func (r *ProductRepo) ListUnusedBetween(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, start, end time.Time) ([]models.Product, error) {
	rows, err := on(r.pool, tx).Query(ctx, `
		SELECT `+productColumnsP+`
		FROM products p
		WHERE NOT EXISTS (
			SELECT 1 FROM submission_products sp
			JOIN submissions s ON s.id = sp.submission_id
			WHERE sp.product_id = p.id AND s.account_id = $1
			  AND s.created_at >= $2 AND s.created_at < $3
		)
		ORDER BY p.name
	`, accountID, start, end)
	if err != nil {
		return nil, err
	}
	return collectProducts(rows)
}
