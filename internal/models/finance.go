package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Deposit and withdrawal statuses.
const (
	DepositPending   = "Pending"
	DepositConfirmed = "Confirmed"
	DepositRejected  = "Rejected"

	WithdrawalPending  = "Pending"
	WithdrawalApproved = "Approved"
	WithdrawalRejected = "Rejected"
)

type Deposit struct {
	ID        uuid.UUID       `json:"id"`
	AccountID uuid.UUID       `json:"account_id"`
	Amount    decimal.Decimal `json:"amount"`
	Status    string          `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

type Withdrawal struct {
	ID        uuid.UUID       `json:"id"`
	AccountID uuid.UUID       `json:"account_id"`
	Amount    decimal.Decimal `json:"amount"`
	Status    string          `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Notification types.
const (
	NotificationUser  = "user"
	NotificationAdmin = "admin"
)

type Notification struct {
	ID        uuid.UUID `json:"id"`
	AccountID uuid.UUID `json:"account_id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Type      string    `json:"type"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

// PaymentMethod holds where an account wants withdrawals paid. Each account
// has at most one.
type PaymentMethod struct {
	AccountID    uuid.UUID `json:"account_id"`
	Name         string    `json:"name"`
	PhoneNumber  string    `json:"phone_number"`
	EmailAddress string    `json:"email_address"`
	Wallet       string    `json:"wallet"`
	Exchange     string    `json:"exchange"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
