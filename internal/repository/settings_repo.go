package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ratepulse/backend/internal/models"
)

// SettingsRepo reads and writes the single settings row (id = 1).
type SettingsRepo struct {
	pool *pgxpool.Pool
}

func NewSettingsRepo(pool *pgxpool.Pool) *SettingsRepo {
	return &SettingsRepo{pool: pool}
}

// Get returns ErrNotFound when the row has not been seeded.
func (r *SettingsRepo) Get(ctx context.Context) (models.Settings, error) {
	var s models.Settings
	err := r.pool.QueryRow(ctx, `
		SELECT percentage_of_sponsors, signup_bonus, minimum_balance_for_submissions, timezone,
			service_availability_start_time, service_availability_end_time, whatsapp_contact,
			telegram_contact, telegram_username, online_chat_url, erc_address, trc_address, updated_at
		FROM settings WHERE id = 1
	`).Scan(&s.PercentageOfSponsors, &s.SignupBonus, &s.MinimumBalanceForSubmissions, &s.Timezone,
		&s.ServiceAvailabilityStartTime, &s.ServiceAvailabilityEndTime, &s.WhatsappContact,
		&s.TelegramContact, &s.TelegramUsername, &s.OnlineChatURL, &s.ErcAddress, &s.TrcAddress, &s.UpdatedAt)
	if err != nil {
		return models.Settings{}, mapErr(err)
	}
	return s, nil
}

// Upsert writes s as the settings row.
func (r *SettingsRepo) Upsert(ctx context.Context, s *models.Settings) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO settings (id, percentage_of_sponsors, signup_bonus, minimum_balance_for_submissions, timezone,
			service_availability_start_time, service_availability_end_time, whatsapp_contact,
			telegram_contact, telegram_username, online_chat_url, erc_address, trc_address)
		VALUES (1, $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			percentage_of_sponsors = EXCLUDED.percentage_of_sponsors,
			signup_bonus = EXCLUDED.signup_bonus,
			minimum_balance_for_submissions = EXCLUDED.minimum_balance_for_submissions,
			timezone = EXCLUDED.timezone,
			service_availability_start_time = EXCLUDED.service_availability_start_time,
			service_availability_end_time = EXCLUDED.service_availability_end_time,
			whatsapp_contact = EXCLUDED.whatsapp_contact,
			telegram_contact = EXCLUDED.telegram_contact,
			telegram_username = EXCLUDED.telegram_username,
			online_chat_url = EXCLUDED.online_chat_url,
			erc_address = EXCLUDED.erc_address,
			trc_address = EXCLUDED.trc_address,
			updated_at = now()
		RETURNING updated_at
	`, s.PercentageOfSponsors, s.SignupBonus, s.MinimumBalanceForSubmissions, s.Timezone,
		s.ServiceAvailabilityStartTime, s.ServiceAvailabilityEndTime, s.WhatsappContact,
		s.TelegramContact, s.TelegramUsername, s.OnlineChatURL, s.ErcAddress, s.TrcAddress).Scan(&s.UpdatedAt)
}
