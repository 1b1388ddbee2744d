package ledger

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/ratepulse/backend/internal/models"
	"github.com/ratepulse/backend/internal/packs"
)

// WalletStore persists wallets. GetForUpdate creates the row on first access
// and locks it for the rest of tx.
type WalletStore interface {
	GetForUpdate(ctx context.Context, tx pgx.Tx, accountID uuid.UUID) (*models.Wallet, error)
	Update(ctx context.Context, tx pgx.Tx, w *models.Wallet) error
}

type EntryStore interface {
	CreateTx(ctx context.Context, tx pgx.Tx, e *models.WalletEntry) error
}

type PackLister interface {
	ListActive(ctx context.Context, tx pgx.Tx) ([]models.Pack, error)
}

// PendingChecker reports whether the account has an unplayed pending submission.
type PendingChecker interface {
	HasPending(ctx context.Context, tx pgx.Tx, accountID uuid.UUID) (bool, error)
}

// Service applies wallet mutations and persists each one immediately, running
// OnBalanceChanged and recording a wallet entry. Call within a transaction.
type Service struct {
	Wallets WalletStore
	Entries EntryStore
	Packs   PackLister
	Pending PendingChecker
}

func NewService(wallets WalletStore, entries EntryStore, packs PackLister, pending PendingChecker) *Service {
	return &Service{Wallets: wallets, Entries: entries, Packs: packs, Pending: pending}
}

// Open locks the account's wallet, creating it if needed, and assigns a pack
// to wallets that have none yet.
func (s *Service) Open(ctx context.Context, tx pgx.Tx, accountID uuid.UUID) (*models.Wallet, error) {
	w, err := s.Wallets.GetForUpdate(ctx, tx, accountID)
	if err != nil {
		return nil, fmt.Errorf("open wallet: %w", err)
	}
	if w.PackID == nil {
		if err := s.OnBalanceChanged(ctx, tx, w); err != nil {
			return nil, err
		}
		if err := s.Wallets.Update(ctx, tx, w); err != nil {
			return nil, fmt.Errorf("open wallet: %w", err)
		}
	}
	return w, nil
}

// OnBalanceChanged reassigns the wallet's pack from its balance. It is skipped
// while the account has a pending submission so the prior pack and its quota
// stay in force until the shortfall is resolved.
func (s *Service) OnBalanceChanged(ctx context.Context, tx pgx.Tx, w *models.Wallet) error {
	pending, err := s.Pending.HasPending(ctx, tx, w.AccountID)
	if err != nil {
		return fmt.Errorf("check pending: %w", err)
	}
	if pending {
		return nil
	}
	catalog, err := s.Packs.ListActive(ctx, tx)
	if err != nil {
		return fmt.Errorf("list packs: %w", err)
	}
	if p := packs.BestFit(catalog, w.Balance); p != nil {
		id := p.ID
		w.PackID = &id
	} else {
		w.PackID = nil
	}
	return nil
}

func (s *Service) Credit(ctx context.Context, tx pgx.Tx, w *models.Wallet, amount decimal.Decimal, ref *uuid.UUID) error {
	return s.apply(ctx, tx, w, models.EntryCredit, amount, ref, Credit)
}

func (s *Service) Debit(ctx context.Context, tx pgx.Tx, w *models.Wallet, amount decimal.Decimal, ref *uuid.UUID) error {
	return s.apply(ctx, tx, w, models.EntryDebit, amount, ref, Debit)
}

func (s *Service) CreditCommission(ctx context.Context, tx pgx.Tx, w *models.Wallet, amount decimal.Decimal, ref *uuid.UUID) error {
	return s.apply(ctx, tx, w, models.EntryCommissionCredit, amount, ref, CreditCommission)
}

func (s *Service) DebitCommission(ctx context.Context, tx pgx.Tx, w *models.Wallet, amount decimal.Decimal, ref *uuid.UUID) error {
	return s.apply(ctx, tx, w, models.EntryCommissionDebit, amount, ref, DebitCommission)
}

func (s *Service) AddOnHold(ctx context.Context, tx pgx.Tx, w *models.Wallet, amount decimal.Decimal) error {
	return s.apply(ctx, tx, w, models.EntryOnHoldAdd, amount, nil, AddOnHold)
}

func (s *Service) ReleaseOnHold(ctx context.Context, tx pgx.Tx, w *models.Wallet, amount decimal.Decimal) error {
	return s.apply(ctx, tx, w, models.EntryOnHoldRelease, amount, nil, ReleaseOnHold)
}

func (s *Service) AddSalary(ctx context.Context, tx pgx.Tx, w *models.Wallet, amount decimal.Decimal) error {
	return s.apply(ctx, tx, w, models.EntrySalary, amount, nil, AddSalary)
}

func (s *Service) apply(ctx context.Context, tx pgx.Tx, w *models.Wallet, entryType string, amount decimal.Decimal, ref *uuid.UUID, fn func(*models.Wallet, decimal.Decimal) error) error {
	if err := fn(w, amount); err != nil {
		return err
	}
	if err := s.OnBalanceChanged(ctx, tx, w); err != nil {
		return err
	}
	if err := s.Wallets.Update(ctx, tx, w); err != nil {
		return fmt.Errorf("%s: update wallet: %w", entryType, err)
	}
	return s.Entries.CreateTx(ctx, tx, &models.WalletEntry{
		ID:           uuid.New(),
		AccountID:    w.AccountID,
		SubmissionID: ref,
		EntryType:    entryType,
		Amount:       amount,
		BalanceAfter: w.Balance,
		OnHoldAfter:  w.OnHold,
	})
}
