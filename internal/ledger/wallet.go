package ledger

import (
	"errors"

	"github.com/shopspring/decimal"

	"github.com/ratepulse/backend/internal/models"
)

// ErrNegativeAmount is returned by every mutator given an amount below zero.
var ErrNegativeAmount = errors.New("amount must not be negative")

// ErrInvalidRelease is returned when releasing more than is on hold.
var ErrInvalidRelease = errors.New("invalid release amount")

func checkAmount(amount decimal.Decimal) error {
	if amount.IsNegative() {
		return ErrNegativeAmount
	}
	return nil
}

// Credit adds amount to the balance. A non-zero OnHold is absorbed first: the
// credit and the hold are summed and the hold cleared; if the credit does not
// cover a shortfall the remainder stays on hold and the balance is untouched.
func Credit(w *models.Wallet, amount decimal.Decimal) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	if !w.OnHold.IsZero() {
		total := amount.Add(w.OnHold)
		if total.IsNegative() {
			w.OnHold = total
			return nil
		}
		amount = total
		w.OnHold = decimal.Zero
	}
	w.Balance = w.Balance.Add(amount)
	return nil
}

// Debit subtracts amount from the balance. It never fails for insufficient
// funds: the shortfall is pushed into OnHold as a negative value and the
// balance drops to zero.
func Debit(w *models.Wallet, amount decimal.Decimal) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	if w.Balance.GreaterThanOrEqual(amount) {
		w.Balance = w.Balance.Sub(amount)
		return nil
	}
	w.OnHold = w.OnHold.Add(w.Balance.Sub(amount))
	w.Balance = decimal.Zero
	return nil
}

func CreditCommission(w *models.Wallet, amount decimal.Decimal) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	w.Commission = w.Commission.Add(amount)
	return nil
}

func DebitCommission(w *models.Wallet, amount decimal.Decimal) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	w.Commission = w.Commission.Sub(amount)
	return nil
}

func AddOnHold(w *models.Wallet, amount decimal.Decimal) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	w.OnHold = w.OnHold.Add(amount)
	return nil
}

// ReleaseOnHold moves amount from OnHold into the balance; 0 < amount <= OnHold.
func ReleaseOnHold(w *models.Wallet, amount decimal.Decimal) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	if !amount.IsPositive() || w.OnHold.LessThan(amount) {
		return ErrInvalidRelease
	}
	w.OnHold = w.OnHold.Sub(amount)
	w.Balance = w.Balance.Add(amount)
	return nil
}

func AddSalary(w *models.Wallet, amount decimal.Decimal) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	w.Salary = w.Salary.Add(amount)
	return nil
}
