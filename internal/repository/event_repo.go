package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ratepulse/backend/internal/models"
)

type EventRepo struct {
	pool *pgxpool.Pool
}

func NewEventRepo(pool *pgxpool.Pool) *EventRepo {
	return &EventRepo{pool: pool}
}

const eventColumns = `id, name, description, is_active, created_at, updated_at`

func scanEvent(row pgx.Row) (*models.Event, error) {
	var e models.Event
	if err := row.Scan(&e.ID, &e.Name, &e.Description, &e.IsActive, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return nil, mapErr(err)
	}
	return &e, nil
}

func (r *EventRepo) Create(ctx context.Context, e *models.Event) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO events (id, name, description, is_active)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at
	`, e.ID, e.Name, e.Description, e.IsActive).Scan(&e.CreatedAt, &e.UpdatedAt)
	return mapErr(err)
}

func (r *EventRepo) Update(ctx context.Context, e *models.Event) error {
	err := r.pool.QueryRow(ctx, `
		UPDATE events SET name = $2, description = $3, is_active = $4, updated_at = now()
		WHERE id = $1
		RETURNING created_at, updated_at
	`, e.ID, e.Name, e.Description, e.IsActive).Scan(&e.CreatedAt, &e.UpdatedAt)
	return mapErr(err)
}

// List returns every event, newest first.
func (r *EventRepo) List(ctx context.Context) ([]models.Event, error) {
	return r.list(ctx, `ORDER BY created_at DESC`)
}

// ListActive returns the events users may see, newest first.
func (r *EventRepo) ListActive(ctx context.Context) ([]models.Event, error) {
	return r.list(ctx, `WHERE is_active ORDER BY created_at DESC`)
}

func (r *EventRepo) list(ctx context.Context, tail string) ([]models.Event, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+eventColumns+` FROM events `+tail)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []models.Event{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *e)
	}
	return list, rows.Err()
}
