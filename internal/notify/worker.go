package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/riverqueue/river"

	"github.com/ratepulse/backend/internal/metrics"
	"github.com/ratepulse/backend/internal/models"
	"github.com/ratepulse/backend/internal/repository"
)

// NotifyArgs carries one notification. ID is fixed at enqueue time so a
// retried job does not insert twice.
type NotifyArgs struct {
	ID        uuid.UUID `json:"id"`
	AccountID uuid.UUID `json:"account_id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Type      string    `json:"type"`
}

func (NotifyArgs) Kind() string { return "notify" }

func (NotifyArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{MaxAttempts: 5}
}

type Store interface {
	Create(ctx context.Context, n *models.Notification) error
}

type Worker struct {
	river.WorkerDefaults[NotifyArgs]
	store Store
}

func NewWorker(store Store) *Worker {
	return &Worker{store: store}
}

func (w *Worker) Work(ctx context.Context, job *river.Job[NotifyArgs]) error {
	args := job.Args
	n := &models.Notification{
		ID:        args.ID,
		AccountID: args.AccountID,
		Title:     args.Title,
		Message:   args.Message,
		Type:      args.Type,
	}
	if n.Type == "" {
		n.Type = models.NotificationUser
	}
	err := w.store.Create(ctx, n)
	if errors.Is(err, repository.ErrDuplicate) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("store notification: %w", err)
	}
	metrics.RecordNotification(n.Type)
	return nil
}
