package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ratepulse/backend/internal/ledger"
	"github.com/ratepulse/backend/internal/models"
)

// Manual wallet operations available to staff.
const (
	AdjustCredit        = "credit"
	AdjustDebit         = "debit"
	AdjustSalary        = "salary"
	AdjustOnHoldAdd     = "on_hold_add"
	AdjustOnHoldRelease = "on_hold_release"
)

// WalletAdjuster applies staff wallet corrections under the same wallet lock
// as settlement.
type WalletAdjuster struct {
	DB       TxBeginner
	Ledger   *ledger.Service
	Notifier Notifier
	Logger   *slog.Logger
}

func (a *WalletAdjuster) Adjust(ctx context.Context, accountID uuid.UUID, op string, amount decimal.Decimal) (*models.Wallet, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be positive", ErrValidation)
	}
	tx, err := a.DB.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	w, err := a.Ledger.Open(ctx, tx, accountID)
	if err != nil {
		return nil, err
	}
	var title string
	switch op {
	case AdjustCredit:
		err, title = a.Ledger.Credit(ctx, tx, w, amount, nil), "Wallet credited"
	case AdjustDebit:
		err, title = a.Ledger.Debit(ctx, tx, w, amount, nil), "Wallet debited"
	case AdjustSalary:
		err, title = a.Ledger.AddSalary(ctx, tx, w, amount), "Salary received"
	case AdjustOnHoldAdd:
		err, title = a.Ledger.AddOnHold(ctx, tx, w, amount), "Funds placed on hold"
	case AdjustOnHoldRelease:
		err, title = a.Ledger.ReleaseOnHold(ctx, tx, w, amount), "Funds released"
	default:
		return nil, fmt.Errorf("%w: unknown operation %q", ErrValidation, op)
	}
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	if a.Logger != nil {
		a.Logger.Info("wallet adjusted", "account_id", accountID, "operation", op, "amount", amount.StringFixed(2))
	}
	a.Notifier.Notify(ctx, accountID, title, fmt.Sprintf("%s USD. Balance is now %s USD.", amount.StringFixed(2), w.Balance.StringFixed(2)))
	return w, nil
}
