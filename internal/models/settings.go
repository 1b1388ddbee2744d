package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultMinimumBalanceForSubmissions is the seeded minimum_balance_for_submissions.
var DefaultMinimumBalanceForSubmissions = decimal.NewFromInt(100)

// Settings is the admin-editable singleton, passed by value into services.
type Settings struct {
	PercentageOfSponsors         int             `json:"percentage_of_sponsors"`
	SignupBonus                  decimal.Decimal `json:"signup_bonus"`
	MinimumBalanceForSubmissions decimal.Decimal `json:"minimum_balance_for_submissions"`
	Timezone                     string          `json:"timezone"`
	ServiceAvailabilityStartTime string          `json:"service_availability_start_time"`
	ServiceAvailabilityEndTime   string          `json:"service_availability_end_time"`
	WhatsappContact              string          `json:"whatsapp_contact"`
	TelegramContact              string          `json:"telegram_contact"`
	TelegramUsername             string          `json:"telegram_username"`
	OnlineChatURL                string          `json:"online_chat_url"`
	ErcAddress                   string          `json:"erc_address"`
	TrcAddress                   string          `json:"trc_address"`
	UpdatedAt                    time.Time       `json:"updated_at"`
}

// DefaultSettings mirrors the row seeded by the initial migration. It stands
// in wherever the settings row is missing.
func DefaultSettings() Settings {
	return Settings{
		SignupBonus:                  decimal.Zero,
		MinimumBalanceForSubmissions: DefaultMinimumBalanceForSubmissions,
		Timezone:                     "UTC",
		ServiceAvailabilityStartTime: "00:00",
		ServiceAvailabilityEndTime:   "23:59",
	}
}

// Location resolves the configured timezone, falling back to UTC.
func (s Settings) Location() *time.Location {
	if s.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// DayBounds returns [local midnight, next local midnight) around now.
func (s Settings) DayBounds(now time.Time) (time.Time, time.Time) {
	local := now.In(s.Location())
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, local.Location())
	return start, start.AddDate(0, 0, 1)
}
