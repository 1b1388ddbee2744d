package ledger

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/ratepulse/backend/internal/models"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func wallet(balance, onHold string) *models.Wallet {
	return &models.Wallet{Balance: d(balance), OnHold: d(onHold)}
}

func assertWallet(t *testing.T, w *models.Wallet, balance, onHold string) {
	t.Helper()
	if !w.Balance.Equal(d(balance)) {
		t.Errorf("balance: got %s, want %s", w.Balance, balance)
	}
	if !w.OnHold.Equal(d(onHold)) {
		t.Errorf("on_hold: got %s, want %s", w.OnHold, onHold)
	}
}

func TestDebit_Sufficient(t *testing.T) {
	w := wallet("100", "0")
	if err := Debit(w, d("80")); err != nil {
		t.Fatalf("Debit: %v", err)
	}
	assertWallet(t, w, "20", "0")
}

// A debit above the balance never fails; the shortfall moves on hold.
func TestDebit_ShortfallMovesOnHold(t *testing.T) {
	w := wallet("50", "0")
	if err := Debit(w, d("80")); err != nil {
		t.Fatalf("Debit: %v", err)
	}
	assertWallet(t, w, "0", "-30")
}

func TestCredit_AbsorbsOnHold(t *testing.T) {
	w := wallet("0", "-30")
	if err := Credit(w, d("88")); err != nil {
		t.Fatalf("Credit: %v", err)
	}
	assertWallet(t, w, "58", "0")
}

func TestCredit_PartialAbsorption(t *testing.T) {
	w := wallet("0", "-30")
	if err := Credit(w, d("10")); err != nil {
		t.Fatalf("Credit: %v", err)
	}
	assertWallet(t, w, "0", "-20")
}

func TestCredit_PositiveHoldIsReleased(t *testing.T) {
	w := wallet("10", "5")
	if err := Credit(w, d("20")); err != nil {
		t.Fatalf("Credit: %v", err)
	}
	assertWallet(t, w, "35", "0")
}

// Debit then credit of at least the shortfall leaves balance == x - |shortfall|.
func TestDebitThenCredit_Property(t *testing.T) {
	cases := []struct{ balance, debit, credit string }{
		{"0", "1", "1"},
		{"50", "80", "30"},
		{"50", "80", "88"},
		{"12.34", "99.99", "500"},
		{"0.01", "0.02", "0.01"},
	}
	for _, tc := range cases {
		w := wallet(tc.balance, "0")
		before := w.Balance
		if err := Debit(w, d(tc.debit)); err != nil {
			t.Fatal(err)
		}
		wantHold := before.Sub(d(tc.debit))
		if !w.Balance.IsZero() || !w.OnHold.Equal(wantHold) {
			t.Fatalf("%+v: after debit got balance=%s on_hold=%s, want 0 / %s", tc, w.Balance, w.OnHold, wantHold)
		}
		if err := Credit(w, d(tc.credit)); err != nil {
			t.Fatal(err)
		}
		want := d(tc.credit).Sub(wantHold.Abs())
		if !w.OnHold.IsZero() || !w.Balance.Equal(want) {
			t.Fatalf("%+v: after credit got balance=%s on_hold=%s, want %s / 0", tc, w.Balance, w.OnHold, want)
		}
	}
}

func TestMutators_RejectNegative(t *testing.T) {
	neg := d("-1")
	muts := map[string]func(*models.Wallet, decimal.Decimal) error{
		"credit":            Credit,
		"debit":             Debit,
		"credit_commission": CreditCommission,
		"debit_commission":  DebitCommission,
		"add_on_hold":       AddOnHold,
		"release_on_hold":   ReleaseOnHold,
		"salary":            AddSalary,
	}
	for name, fn := range muts {
		w := wallet("100", "10")
		if err := fn(w, neg); !errors.Is(err, ErrNegativeAmount) {
			t.Errorf("%s: expected ErrNegativeAmount, got %v", name, err)
		}
		assertWallet(t, w, "100", "10")
	}
}

func TestCommission(t *testing.T) {
	w := wallet("0", "0")
	_ = CreditCommission(w, d("8"))
	_ = CreditCommission(w, d("2.5"))
	_ = DebitCommission(w, d("0.5"))
	if !w.Commission.Equal(d("10")) {
		t.Errorf("commission: got %s, want 10", w.Commission)
	}
}

func TestReleaseOnHold(t *testing.T) {
	w := wallet("10", "25")
	if err := ReleaseOnHold(w, d("25")); err != nil {
		t.Fatalf("ReleaseOnHold: %v", err)
	}
	assertWallet(t, w, "35", "0")

	for _, amt := range []string{"0", "1"} {
		if err := ReleaseOnHold(w, d(amt)); !errors.Is(err, ErrInvalidRelease) {
			t.Errorf("release %s from 0: expected ErrInvalidRelease, got %v", amt, err)
		}
	}
}

func TestAddOnHold(t *testing.T) {
	w := wallet("10", "0")
	if err := AddOnHold(w, d("4")); err != nil {
		t.Fatal(err)
	}
	assertWallet(t, w, "10", "4")
}
