package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/ratepulse/backend/internal/clock"
	"github.com/ratepulse/backend/internal/ledger"
	"github.com/ratepulse/backend/internal/metrics"
	"github.com/ratepulse/backend/internal/models"
	"github.com/ratepulse/backend/internal/repository"
)

const (
	MsgWithdrawSubmissions = "You must complete %d submissions today before withdrawing."
	MsgWithdrawQuota       = "You have reached the maximum number of withdrawals for today."
	MsgWithdrawSecret      = "Invalid transactional password."
	MsgWithdrawRequested   = "Withdrawal request submitted."
)

// ErrWithdrawalReviewed is returned when a non-pending withdrawal is reviewed again.
var ErrWithdrawalReviewed = errors.New("withdrawal already reviewed")

type WithdrawalStore interface {
	CountBetween(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, start, end time.Time) (int, error)
	Create(ctx context.Context, tx pgx.Tx, w *models.Withdrawal) error
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Withdrawal, error)
	UpdateStatus(ctx context.Context, tx pgx.Tx, w *models.Withdrawal) error
}

type PlayCounter interface {
	CountPlayedBetween(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, start, end time.Time) (int, error)
}

// WithdrawalResult mirrors PlayResult for withdrawal requests.
type WithdrawalResult struct {
	OK         bool               `json:"success"`
	Message    string             `json:"message"`
	Withdrawal *models.Withdrawal `json:"withdrawal,omitempty"`
}

type WithdrawalService struct {
	DB          TxBeginner
	Ledger      *ledger.Service
	Accounts    AccountStore
	Packs       PackStore
	Submissions PlayCounter
	Withdrawals WithdrawalStore
	Clock       clock.Clock
	Notifier    Notifier
	Settings    models.Settings
	Logger      *slog.Logger
}

func (s *WithdrawalService) WithSettings(st models.Settings) *WithdrawalService {
	cp := *s
	cp.Settings = st
	return &cp
}

// CanWithdraw runs the eligibility checks in order and stops at the first
// failure: balance, today's plays against the pack quota, today's
// withdrawals against the pack limit, then the transactional secret.
func (s *WithdrawalService) CanWithdraw(ctx context.Context, tx pgx.Tx, acc *models.Account, w *models.Wallet, pack *models.Pack, amount decimal.Decimal, secret string) (ok bool, msg, reason string, err error) {
	if w.Balance.LessThan(amount) {
		return false, fmt.Sprintf(MsgInsufficient, w.Balance.StringFixed(2)), "balance", nil
	}
	if pack == nil {
		return false, MsgNoPack, "no_pack", nil
	}
	start, end := s.Settings.DayBounds(s.Clock.Now())
	played, err := s.Submissions.CountPlayedBetween(ctx, tx, acc.ID, start, end)
	if err != nil {
		return false, "", "", err
	}
	if played < pack.DailyMissions {
		return false, fmt.Sprintf(MsgWithdrawSubmissions, pack.DailyMissions), "submissions", nil
	}
	withdrawn, err := s.Withdrawals.CountBetween(ctx, tx, acc.ID, start, end)
	if err != nil {
		return false, "", "", err
	}
	if withdrawn >= pack.DailyWithdrawals {
		return false, MsgWithdrawQuota, "quota", nil
	}
	if bcrypt.CompareHashAndPassword([]byte(acc.TransactionalSecretHash), []byte(secret)) != nil {
		return false, MsgWithdrawSecret, "secret", nil
	}
	return true, "", "", nil
}

// RequestWithdrawal checks eligibility, debits the wallet and records a
// Pending withdrawal for admin review.
func (s *WithdrawalService) RequestWithdrawal(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal, secret string) (*WithdrawalResult, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be positive", ErrValidation)
	}
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	acc, err := s.Accounts.GetByID(ctx, tx, accountID)
	if err != nil {
		return nil, fmt.Errorf("load account: %w", err)
	}
	w, err := s.Ledger.Open(ctx, tx, accountID)
	if err != nil {
		return nil, err
	}
	var pack *models.Pack
	if w.PackID != nil {
		pack, err = s.Packs.GetByID(ctx, tx, *w.PackID)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
	}

	ok, msg, reason, err := s.CanWithdraw(ctx, tx, acc, w, pack, amount, secret)
	if err != nil {
		return nil, err
	}
	if !ok {
		metrics.RecordWithdrawalDenied(reason)
		return &WithdrawalResult{Message: msg}, nil
	}

	wd := &models.Withdrawal{ID: uuid.New(), AccountID: accountID, Amount: amount, Status: models.WithdrawalPending}
	if err := s.Withdrawals.Create(ctx, tx, wd); err != nil {
		return nil, fmt.Errorf("create withdrawal: %w", err)
	}
	if err := s.Ledger.Debit(ctx, tx, w, amount, nil); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	s.Notifier.Notify(ctx, accountID, "Withdrawal requested", fmt.Sprintf("Your withdrawal of %s USD is awaiting review.", amount.StringFixed(2)))
	return &WithdrawalResult{OK: true, Message: MsgWithdrawRequested, Withdrawal: wd}, nil
}

// ReviewWithdrawal approves or rejects a pending withdrawal. Rejection
// credits the amount back to the wallet.
func (s *WithdrawalService) ReviewWithdrawal(ctx context.Context, id uuid.UUID, approve bool) (*models.Withdrawal, error) {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	wd, err := s.Withdrawals.GetByIDForUpdate(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if wd.Status != models.WithdrawalPending {
		return nil, ErrWithdrawalReviewed
	}
	if approve {
		wd.Status = models.WithdrawalApproved
	} else {
		wd.Status = models.WithdrawalRejected
		w, err := s.Ledger.Open(ctx, tx, wd.AccountID)
		if err != nil {
			return nil, err
		}
		if err := s.Ledger.Credit(ctx, tx, w, wd.Amount, nil); err != nil {
			return nil, err
		}
	}
	if err := s.Withdrawals.UpdateStatus(ctx, tx, wd); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	s.Notifier.Notify(ctx, wd.AccountID, "Withdrawal "+wd.Status, fmt.Sprintf("Your withdrawal of %s USD was %s.", wd.Amount.StringFixed(2), wd.Status))
	return wd, nil
}
