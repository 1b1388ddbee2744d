package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/ratepulse/backend/internal/models"
)

func newWithdrawalFixture(t *testing.T, balance string) (*fixture, *WithdrawalService) {
	t.Helper()
	f := newFixture(t, balance, false)
	hash, err := bcrypt.GenerateFromPassword([]byte("1234"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	f.account.TransactionalSecretHash = string(hash)
	f.db.addAccount(f.account)
	svc := &WithdrawalService{
		DB:          f.db,
		Ledger:      newLedger(f.db),
		Accounts:    memAccounts{f.db},
		Packs:       memPacks{f.db},
		Submissions: memSubs{f.db},
		Withdrawals: memWithdrawals{f.db},
		Clock:       fixedClock{testNow},
		Notifier:    f.notifier,
		Settings:    f.svc.Settings,
	}
	return f, svc
}

func (f *fixture) playToday(n int) {
	at := testNow.Add(-time.Hour)
	for i := 0; i < n; i++ {
		f.seedSubmission("1", "0", func(s *models.Submission) { s.Played = true; s.PlayedAt = &at })
	}
}

func TestCanWithdraw_FirstFailureWins(t *testing.T) {
	f, svc := newWithdrawalFixture(t, "150")
	ctx := context.Background()
	w := f.db.wallet(f.account.ID)

	// Everything fails: balance is reported first.
	ok, msg, _, err := svc.CanWithdraw(ctx, nil, &f.account, &w, &silverPack, dec("500"), "0000")
	if err != nil || ok || msg != "Insufficient balance. Your current balance is 150.00 USD." {
		t.Fatalf("balance check: ok=%v msg=%q err=%v", ok, msg, err)
	}

	ok, msg, _, _ = svc.CanWithdraw(ctx, nil, &f.account, &w, &silverPack, dec("50"), "0000")
	if ok || msg != fmt.Sprintf(MsgWithdrawSubmissions, silverPack.DailyMissions) {
		t.Fatalf("submission check: ok=%v msg=%q", ok, msg)
	}

	f.playToday(silverPack.DailyMissions)
	ok, msg, _, _ = svc.CanWithdraw(ctx, nil, &f.account, &w, &silverPack, dec("50"), "0000")
	if ok || msg != MsgWithdrawSecret {
		t.Fatalf("secret check: ok=%v msg=%q", ok, msg)
	}

	ok, msg, _, _ = svc.CanWithdraw(ctx, nil, &f.account, &w, &silverPack, dec("50"), "1234")
	if !ok || msg != "" {
		t.Fatalf("eligible: ok=%v msg=%q", ok, msg)
	}
}

func TestCanWithdraw_DailyWithdrawalLimit(t *testing.T) {
	f, svc := newWithdrawalFixture(t, "300")
	ctx := context.Background()
	f.playToday(silverPack.DailyMissions)
	for i := 0; i < silverPack.DailyWithdrawals; i++ {
		_ = memWithdrawals{f.db}.Create(ctx, nil, &models.Withdrawal{ID: uuid.New(), AccountID: f.account.ID, Amount: dec("1"), Status: models.WithdrawalPending})
	}
	w := f.db.wallet(f.account.ID)
	// Quota is checked before the secret, so a wrong secret is not reported.
	ok, msg, _, _ := svc.CanWithdraw(ctx, nil, &f.account, &w, &silverPack, dec("10"), "wrong")
	if ok || msg != MsgWithdrawQuota {
		t.Errorf("got ok=%v msg=%q, want quota message", ok, msg)
	}
}

func TestRequestWithdrawal_DebitsAndRecordsPending(t *testing.T) {
	f, svc := newWithdrawalFixture(t, "150")
	f.playToday(silverPack.DailyMissions)

	res, err := svc.RequestWithdrawal(context.Background(), f.account.ID, dec("40"), "1234")
	if err != nil {
		t.Fatalf("RequestWithdrawal: %v", err)
	}
	if !res.OK || res.Withdrawal == nil || res.Withdrawal.Status != models.WithdrawalPending {
		t.Fatalf("unexpected result %+v", res)
	}
	assertDec(t, "balance", f.db.wallet(f.account.ID).Balance, "110")
}

func TestRequestWithdrawal_DeniedLeavesWalletUntouched(t *testing.T) {
	f, svc := newWithdrawalFixture(t, "150")

	res, err := svc.RequestWithdrawal(context.Background(), f.account.ID, dec("40"), "1234")
	if err != nil {
		t.Fatalf("RequestWithdrawal: %v", err)
	}
	if res.OK {
		t.Fatal("expected denial before the daily quota is met")
	}
	assertDec(t, "balance", f.db.wallet(f.account.ID).Balance, "150")
	if f.db.entryCount() != 0 {
		t.Error("no wallet entries expected on denial")
	}
}

func TestRequestWithdrawal_RejectsNonPositive(t *testing.T) {
	f, svc := newWithdrawalFixture(t, "150")
	_, err := svc.RequestWithdrawal(context.Background(), f.account.ID, decimal.Zero, "1234")
	if !errors.Is(err, ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
}

func TestReviewWithdrawal_RejectRecredits(t *testing.T) {
	f, svc := newWithdrawalFixture(t, "150")
	f.playToday(silverPack.DailyMissions)
	ctx := context.Background()
	res, err := svc.RequestWithdrawal(ctx, f.account.ID, dec("40"), "1234")
	if err != nil || !res.OK {
		t.Fatalf("RequestWithdrawal: %+v %v", res, err)
	}

	wd, err := svc.ReviewWithdrawal(ctx, res.Withdrawal.ID, false)
	if err != nil {
		t.Fatalf("ReviewWithdrawal: %v", err)
	}
	if wd.Status != models.WithdrawalRejected {
		t.Errorf("status: got %s", wd.Status)
	}
	assertDec(t, "balance", f.db.wallet(f.account.ID).Balance, "150")

	if _, err := svc.ReviewWithdrawal(ctx, res.Withdrawal.ID, true); !errors.Is(err, ErrWithdrawalReviewed) {
		t.Errorf("second review: expected ErrWithdrawalReviewed, got %v", err)
	}
}
