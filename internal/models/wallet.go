package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Wallet is the monetary state of one account. OnHold is negative while the
// account owes a shortfall from a submission it could not afford.
type Wallet struct {
	ID         uuid.UUID       `json:"id"`
	AccountID  uuid.UUID       `json:"account_id"`
	Balance    decimal.Decimal `json:"balance"`
	OnHold     decimal.Decimal `json:"on_hold"`
	Commission decimal.Decimal `json:"commission"`
	Salary     decimal.Decimal `json:"salary"`
	PackID     *uuid.UUID      `json:"pack_id,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}
