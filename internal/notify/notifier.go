package notify

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"

	"github.com/ratepulse/backend/internal/models"
)

// Inserter is satisfied by *river.Client[pgx.Tx].
type Inserter interface {
	Insert(ctx context.Context, args river.JobArgs, opts *river.InsertOpts) (*rivertype.JobInsertResult, error)
}

type StaffLister interface {
	ListStaffIDs(ctx context.Context) ([]uuid.UUID, error)
}

// Notifier enqueues notifications after the caller's transaction has
// committed. Enqueue failures are logged and dropped.
type Notifier struct {
	jobs   Inserter
	staff  StaffLister
	logger *slog.Logger
}

func NewNotifier(jobs Inserter, staff StaffLister, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{jobs: jobs, staff: staff, logger: logger}
}

func (n *Notifier) Notify(ctx context.Context, accountID uuid.UUID, title, message string) {
	n.enqueue(ctx, accountID, title, message, models.NotificationUser)
}

// NotifyStaff sends an admin notification to every staff account.
func (n *Notifier) NotifyStaff(ctx context.Context, title, message string) {
	ids, err := n.staff.ListStaffIDs(ctx)
	if err != nil {
		n.logger.Error("list staff for notification", "title", title, "error", err)
		return
	}
	for _, id := range ids {
		n.enqueue(ctx, id, title, message, models.NotificationAdmin)
	}
}

func (n *Notifier) enqueue(ctx context.Context, accountID uuid.UUID, title, message, kind string) {
	args := NotifyArgs{ID: uuid.New(), AccountID: accountID, Title: title, Message: message, Type: kind}
	if _, err := n.jobs.Insert(ctx, args, nil); err != nil {
		n.logger.Error("enqueue notification", "account_id", accountID, "title", title, "error", err)
	}
}
