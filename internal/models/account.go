package models

import (
	"time"

	"github.com/google/uuid"
)

type Account struct {
	ID                      uuid.UUID  `json:"id"`
	Username                string     `json:"username"`
	Email                   string     `json:"email"`
	PasswordHash            string     `json:"-"`
	TransactionalSecretHash string     `json:"-"`
	ReferralCode            string     `json:"referral_code"`
	ReferredBy              *uuid.UUID `json:"referred_by,omitempty"`
	ReferralBonusPaid       bool       `json:"referral_bonus_paid"`
	MinimumBalanceWaived    bool       `json:"minimum_balance_waived"`
	SignupBonusApplied      bool       `json:"signup_bonus_applied"`
	IsStaff                 bool       `json:"is_staff"`
	CreatedAt               time.Time  `json:"created_at"`
	UpdatedAt               time.Time  `json:"updated_at"`
}
