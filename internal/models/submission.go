package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MaxSubmissionProducts caps the products attached to one submission.
const MaxSubmissionProducts = 3

// Submission is one rating task. A row is unplayed until MarkGameAsPlayed
// succeeds; Pending is set while the account could not afford it.
type Submission struct {
	ID             uuid.UUID       `json:"id"`
	AccountID      uuid.UUID       `json:"account_id"`
	Products       []Product       `json:"products"`
	Amount         decimal.Decimal `json:"amount"`
	Commission     decimal.Decimal `json:"commission"`
	Played         bool            `json:"played"`
	Pending        bool            `json:"pending"`
	SpecialProduct bool            `json:"special_product"`
	GameNumber     *int            `json:"game_number,omitempty"`
	IsActive       bool            `json:"is_active"`
	RatingNo       string          `json:"rating_no"`
	OnHoldPayID    *uuid.UUID      `json:"on_hold_pay_id,omitempty"`
	RatingScore    *int            `json:"rating_score,omitempty"`
	Comment        *string         `json:"comment,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	PlayedAt       *time.Time      `json:"played_at,omitempty"`
}
