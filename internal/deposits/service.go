package deposits

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/ratepulse/backend/internal/ledger"
	"github.com/ratepulse/backend/internal/models"
)

var (
	ErrInvalidAmount = errors.New("amount must be positive")
	ErrInvalidStatus = errors.New("invalid deposit status")
	// ErrInvalidSecret is returned when the reviewing staff member's
	// transactional secret does not match.
	ErrInvalidSecret = errors.New("invalid transactional password")
)

type Store interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Create(ctx context.Context, d *models.Deposit) error
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Deposit, error)
	UpdateStatus(ctx context.Context, tx pgx.Tx, d *models.Deposit) error
	ListByAccount(ctx context.Context, accountID uuid.UUID) ([]*models.Deposit, error)
	List(ctx context.Context) ([]*models.Deposit, error)
}

type AccountStore interface {
	GetByID(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Account, error)
	MarkReferralBonusPaid(ctx context.Context, tx pgx.Tx, id uuid.UUID) (bool, error)
}

type Notifier interface {
	Notify(ctx context.Context, accountID uuid.UUID, title, message string)
	NotifyStaff(ctx context.Context, title, message string)
}

type Service struct {
	store    Store
	ledger   *ledger.Service
	accounts AccountStore
	notifier Notifier
	log      *slog.Logger
}

func NewService(store Store, l *ledger.Service, accounts AccountStore, notifier Notifier, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{store: store, ledger: l, accounts: accounts, notifier: notifier, log: log}
}

// CreateDeposit records a Pending deposit. The wallet is untouched until
// staff confirm it.
func (s *Service) CreateDeposit(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal) (*models.Deposit, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	d := &models.Deposit{ID: uuid.New(), AccountID: accountID, Amount: amount.Round(2), Status: models.DepositPending}
	if err := s.store.Create(ctx, d); err != nil {
		return nil, fmt.Errorf("create deposit: %w", err)
	}
	s.notifier.NotifyStaff(ctx, "New deposit", fmt.Sprintf("A deposit of %s USD is awaiting confirmation.", d.Amount.StringFixed(2)))
	return d, nil
}

func (s *Service) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]*models.Deposit, error) {
	return s.store.ListByAccount(ctx, accountID)
}

func (s *Service) List(ctx context.Context) ([]*models.Deposit, error) {
	return s.store.List(ctx)
}

// SetStatus moves a deposit to status on behalf of staff. Entering Confirmed
// credits the wallet and pays the referrer's one-time bonus; leaving
// Confirmed debits the amount back. Setting the current status is a no-op.
func (s *Service) SetStatus(ctx context.Context, staff *models.Account, secret string, id uuid.UUID, status string, settings models.Settings) (*models.Deposit, error) {
	switch status {
	case models.DepositPending, models.DepositConfirmed, models.DepositRejected:
	default:
		return nil, ErrInvalidStatus
	}
	if bcrypt.CompareHashAndPassword([]byte(staff.TransactionalSecretHash), []byte(secret)) != nil {
		return nil, ErrInvalidSecret
	}

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	d, err := s.store.GetByIDForUpdate(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	old := d.Status
	if old == status {
		return d, nil
	}

	var referrer *uuid.UUID
	var bonus decimal.Decimal
	if status == models.DepositConfirmed {
		referrer, bonus, err = s.claimReferralBonus(ctx, tx, d, settings)
		if err != nil {
			return nil, err
		}
	}
	ids := []uuid.UUID{d.AccountID}
	if referrer != nil {
		ids = append(ids, *referrer)
	}
	wallets, err := s.openWallets(ctx, tx, ids...)
	if err != nil {
		return nil, err
	}
	w := wallets[d.AccountID]
	switch {
	case status == models.DepositConfirmed:
		if err := s.ledger.Credit(ctx, tx, w, d.Amount, nil); err != nil {
			return nil, err
		}
		if referrer != nil {
			if err := s.ledger.Credit(ctx, tx, wallets[*referrer], bonus, nil); err != nil {
				return nil, err
			}
		}
	case old == models.DepositConfirmed:
		if err := s.ledger.Debit(ctx, tx, w, d.Amount, nil); err != nil {
			return nil, err
		}
	}

	d.Status = status
	if err := s.store.UpdateStatus(ctx, tx, d); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	s.log.Info("deposit status changed", "deposit_id", d.ID, "from", old, "to", status, "staff_id", staff.ID)

	s.notifier.Notify(ctx, d.AccountID, "Deposit "+status, fmt.Sprintf("Your deposit of %s USD is now %s.", d.Amount.StringFixed(2), status))
	if referrer != nil {
		s.notifier.Notify(ctx, *referrer, "Referral bonus", fmt.Sprintf("You received a referral bonus of %s USD.", bonus.StringFixed(2)))
	}
	return d, nil
}

// claimReferralBonus marks the depositor's one-time referral bonus as paid
// and returns the referrer with percentage_of_sponsors percent of the
// deposit. A nil referrer means no bonus is due.
func (s *Service) claimReferralBonus(ctx context.Context, tx pgx.Tx, d *models.Deposit, settings models.Settings) (*uuid.UUID, decimal.Decimal, error) {
	if settings.PercentageOfSponsors <= 0 {
		return nil, decimal.Zero, nil
	}
	acc, err := s.accounts.GetByID(ctx, tx, d.AccountID)
	if err != nil {
		return nil, decimal.Zero, fmt.Errorf("load depositor: %w", err)
	}
	if acc.ReferredBy == nil {
		return nil, decimal.Zero, nil
	}
	paid, err := s.accounts.MarkReferralBonusPaid(ctx, tx, acc.ID)
	if err != nil {
		return nil, decimal.Zero, err
	}
	if !paid {
		return nil, decimal.Zero, nil
	}
	bonus := d.Amount.Mul(decimal.NewFromInt(int64(settings.PercentageOfSponsors))).Div(decimal.NewFromInt(100)).Round(2)
	return acc.ReferredBy, bonus, nil
}

// openWallets locks the wallets of ids in ascending UUID order, the order
// Postgres sorts uuid columns in. Every transaction holding more than one
// wallet lock takes them in this order.
func (s *Service) openWallets(ctx context.Context, tx pgx.Tx, ids ...uuid.UUID) (map[uuid.UUID]*models.Wallet, error) {
	sorted := slices.Clone(ids)
	slices.SortFunc(sorted, func(a, b uuid.UUID) int { return bytes.Compare(a[:], b[:]) })
	sorted = slices.Compact(sorted)
	out := make(map[uuid.UUID]*models.Wallet, len(sorted))
	for _, id := range sorted {
		w, err := s.ledger.Open(ctx, tx, id)
		if err != nil {
			return nil, err
		}
		out[id] = w
	}
	return out, nil
}
