package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Pack is a subscription tier. UsdValue is the balance threshold at which
// the pack is assigned.
type Pack struct {
	ID                         uuid.UUID       `json:"id"`
	Name                       string          `json:"name"`
	UsdValue                   decimal.Decimal `json:"usd_value"`
	DailyMissions              int             `json:"daily_missions"`
	DailyWithdrawals           int             `json:"daily_withdrawals"`
	ProfitPercentage           decimal.Decimal `json:"profit_percentage"`
	PaymentBonus               decimal.Decimal `json:"payment_bonus"`
	PaymentLimitToTriggerBonus decimal.Decimal `json:"payment_limit_to_trigger_bonus"`
	ShortDescription           string          `json:"short_description"`
	Description                string          `json:"description"`
	IsActive                   bool            `json:"is_active"`
	CreatedAt                  time.Time       `json:"created_at"`
	UpdatedAt                  time.Time       `json:"updated_at"`
}
