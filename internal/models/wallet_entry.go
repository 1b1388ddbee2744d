package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Wallet entry types, one per ledger mutator.
const (
	EntryCredit           = "credit"
	EntryDebit            = "debit"
	EntryCommissionCredit = "commission_credit"
	EntryCommissionDebit  = "commission_debit"
	EntryOnHoldAdd        = "on_hold_add"
	EntryOnHoldRelease    = "on_hold_release"
	EntrySalary           = "salary"
)

type WalletEntry struct {
	ID           uuid.UUID       `json:"id"`
	AccountID    uuid.UUID       `json:"account_id"`
	SubmissionID *uuid.UUID      `json:"submission_id,omitempty"`
	EntryType    string          `json:"entry_type"`
	Amount       decimal.Decimal `json:"amount"`
	BalanceAfter decimal.Decimal `json:"balance_after"`
	OnHoldAfter  decimal.Decimal `json:"on_hold_after"`
	CreatedAt    time.Time       `json:"created_at"`
}
