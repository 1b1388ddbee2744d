package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ratepulse/backend/internal/models"
)

type NotificationRepo struct {
	pool *pgxpool.Pool
}

func NewNotificationRepo(pool *pgxpool.Pool) *NotificationRepo {
	return &NotificationRepo{pool: pool}
}

// Create inserts n. A repeated id surfaces as ErrDuplicate.
func (r *NotificationRepo) Create(ctx context.Context, n *models.Notification) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO notifications (id, account_id, title, message, type)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING is_read, created_at
	`, n.ID, n.AccountID, n.Title, n.Message, n.Type).Scan(&n.IsRead, &n.CreatedAt)
	return mapErr(err)
}

func (r *NotificationRepo) ListByAccountID(ctx context.Context, accountID uuid.UUID) ([]*models.Notification, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, account_id, title, message, type, is_read, created_at
		FROM notifications WHERE account_id = $1 ORDER BY created_at DESC
	`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []*models.Notification{}
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(&n.ID, &n.AccountID, &n.Title, &n.Message, &n.Type, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, &n)
	}
	return list, rows.Err()
}

// MarkAllRead returns the number of notifications flipped to read.
func (r *NotificationRepo) MarkAllRead(ctx context.Context, accountID uuid.UUID) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE notifications SET is_read = TRUE WHERE account_id = $1 AND is_read = FALSE
	`, accountID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
