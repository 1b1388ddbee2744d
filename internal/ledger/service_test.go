package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/ratepulse/backend/internal/models"
)

// ---------------------------------------------------------------------------
// In-memory mocks
// ---------------------------------------------------------------------------

type memWallets struct {
	wallets map[uuid.UUID]*models.Wallet
	updates int
}

func (m *memWallets) GetForUpdate(_ context.Context, _ pgx.Tx, accountID uuid.UUID) (*models.Wallet, error) {
	w, ok := m.wallets[accountID]
	if !ok {
		w = &models.Wallet{ID: uuid.New(), AccountID: accountID}
		m.wallets[accountID] = w
	}
	cp := *w
	return &cp, nil
}

func (m *memWallets) Update(_ context.Context, _ pgx.Tx, w *models.Wallet) error {
	m.updates++
	cp := *w
	m.wallets[w.AccountID] = &cp
	return nil
}

type memEntries struct{ entries []*models.WalletEntry }

func (m *memEntries) CreateTx(_ context.Context, _ pgx.Tx, e *models.WalletEntry) error {
	m.entries = append(m.entries, e)
	return nil
}

type staticPacks []models.Pack

func (s staticPacks) ListActive(context.Context, pgx.Tx) ([]models.Pack, error) { return s, nil }

type pendingFlag bool

func (p pendingFlag) HasPending(context.Context, pgx.Tx, uuid.UUID) (bool, error) {
	return bool(p), nil
}

func newTestService(pending bool, catalog ...models.Pack) (*Service, *memWallets, *memEntries) {
	wallets := &memWallets{wallets: map[uuid.UUID]*models.Wallet{}}
	entries := &memEntries{}
	return NewService(wallets, entries, staticPacks(catalog), pendingFlag(pending)), wallets, entries
}

var (
	starter = models.Pack{ID: uuid.New(), Name: "starter", UsdValue: decimal.Zero, DailyMissions: 1, IsActive: true}
	silver  = models.Pack{ID: uuid.New(), Name: "silver", UsdValue: decimal.NewFromInt(100), DailyMissions: 3, IsActive: true}
)

// ---------------------------------------------------------------------------

func TestOpen_AssignsPackToNewWallet(t *testing.T) {
	svc, wallets, _ := newTestService(false, starter, silver)
	acc := uuid.New()

	w, err := svc.Open(context.Background(), nil, acc)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if w.PackID == nil || *w.PackID != starter.ID {
		t.Fatalf("new wallet pack: got %v, want starter", w.PackID)
	}
	if wallets.updates != 1 {
		t.Errorf("expected wallet persisted once, got %d", wallets.updates)
	}
}

func TestCredit_ReassignsPackAndRecordsEntry(t *testing.T) {
	svc, wallets, entries := newTestService(false, starter, silver)
	ctx := context.Background()
	acc := uuid.New()
	w, _ := svc.Open(ctx, nil, acc)

	ref := uuid.New()
	if err := svc.Credit(ctx, nil, w, decimal.NewFromInt(150), &ref); err != nil {
		t.Fatalf("Credit: %v", err)
	}
	if w.PackID == nil || *w.PackID != silver.ID {
		t.Errorf("pack after credit: got %v, want silver", w.PackID)
	}
	stored := wallets.wallets[acc]
	if !stored.Balance.Equal(decimal.NewFromInt(150)) {
		t.Errorf("stored balance: got %s, want 150", stored.Balance)
	}
	if len(entries.entries) != 1 {
		t.Fatalf("entries: got %d, want 1", len(entries.entries))
	}
	e := entries.entries[0]
	if e.EntryType != models.EntryCredit || !e.BalanceAfter.Equal(decimal.NewFromInt(150)) || e.SubmissionID == nil || *e.SubmissionID != ref {
		t.Errorf("unexpected entry: %+v", e)
	}
}

func TestOnBalanceChanged_SkippedWhilePending(t *testing.T) {
	svc, _, _ := newTestService(true, starter, silver)
	ctx := context.Background()
	starterID := starter.ID
	w := &models.Wallet{ID: uuid.New(), AccountID: uuid.New(), PackID: &starterID}

	if err := svc.Credit(ctx, nil, w, decimal.NewFromInt(500), nil); err != nil {
		t.Fatalf("Credit: %v", err)
	}
	if *w.PackID != starter.ID {
		t.Errorf("pack must not change while a submission is pending, got %v", *w.PackID)
	}
}

func TestService_NegativeAmountPersistsNothing(t *testing.T) {
	svc, wallets, entries := newTestService(false, starter)
	w := &models.Wallet{ID: uuid.New(), AccountID: uuid.New(), Balance: decimal.NewFromInt(10)}

	err := svc.Debit(context.Background(), nil, w, decimal.NewFromInt(-5), nil)
	if !errors.Is(err, ErrNegativeAmount) {
		t.Fatalf("expected ErrNegativeAmount, got %v", err)
	}
	if wallets.updates != 0 || len(entries.entries) != 0 {
		t.Errorf("nothing should be persisted: updates=%d entries=%d", wallets.updates, len(entries.entries))
	}
}

// Every mutator is independently durable: one update and one entry per call.
func TestService_EveryMutationPersists(t *testing.T) {
	svc, wallets, entries := newTestService(false, starter)
	ctx := context.Background()
	w := &models.Wallet{ID: uuid.New(), AccountID: uuid.New(), Balance: decimal.NewFromInt(100)}
	amt := decimal.NewFromInt(5)

	steps := []func() error{
		func() error { return svc.Debit(ctx, nil, w, amt, nil) },
		func() error { return svc.Credit(ctx, nil, w, amt, nil) },
		func() error { return svc.CreditCommission(ctx, nil, w, amt, nil) },
		func() error { return svc.DebitCommission(ctx, nil, w, amt, nil) },
		func() error { return svc.AddOnHold(ctx, nil, w, amt) },
		func() error { return svc.ReleaseOnHold(ctx, nil, w, amt) },
		func() error { return svc.AddSalary(ctx, nil, w, amt) },
	}
	for i, step := range steps {
		if err := step(); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}
	if wallets.updates != len(steps) || len(entries.entries) != len(steps) {
		t.Errorf("updates=%d entries=%d, want %d each", wallets.updates, len(entries.entries), len(steps))
	}
	if !w.Balance.Equal(decimal.NewFromInt(105)) || !w.Salary.Equal(amt) {
		t.Errorf("final wallet: balance=%s salary=%s", w.Balance, w.Salary)
	}
}
