package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/ratepulse/backend/internal/clock"
	"github.com/ratepulse/backend/internal/middleware"
	"github.com/ratepulse/backend/internal/models"
	"github.com/ratepulse/backend/internal/repository"
)

type WalletReader interface {
	Get(ctx context.Context, accountID uuid.UUID) (*models.Wallet, error)
}

type PackReader interface {
	GetByID(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Pack, error)
}

type PlayCounter interface {
	CountPlayedBetween(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, start, end time.Time) (int, error)
}

type EntryLister interface {
	ListByAccountID(ctx context.Context, accountID uuid.UUID) ([]*models.WalletEntry, error)
}

type NotificationStore interface {
	ListByAccountID(ctx context.Context, accountID uuid.UUID) ([]*models.Notification, error)
	MarkAllRead(ctx context.Context, accountID uuid.UUID) (int64, error)
}

type SettingsSource interface {
	Get(ctx context.Context) (models.Settings, error)
}

type Handler struct {
	wallets       WalletReader
	packs         PackReader
	plays         PlayCounter
	entries       EntryLister
	notifications NotificationStore
	settings      SettingsSource
	clk           clock.Clock
	log           *slog.Logger
}

func NewHandler(
	wallets WalletReader,
	packs PackReader,
	plays PlayCounter,
	entries EntryLister,
	notifications NotificationStore,
	settings SettingsSource,
	clk clock.Clock,
	log *slog.Logger,
) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{
		wallets:       wallets,
		packs:         packs,
		plays:         plays,
		entries:       entries,
		notifications: notifications,
		settings:      settings,
		clk:           clk,
		log:           log,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type meResponse struct {
	Account        *models.Account `json:"account"`
	Wallet         *models.Wallet  `json:"wallet"`
	Pack           *models.Pack    `json:"pack"`
	PlayedToday    int             `json:"played_today"`
	RemainingToday int             `json:"remaining_today"`
}

// GET /api/v1/account/me
func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	acc := middleware.AccountFromCtx(r.Context())
	if acc == nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	st, err := h.settings.Get(r.Context())
	if errors.Is(err, repository.ErrNotFound) {
		st, err = models.DefaultSettings(), nil
	}
	if err != nil {
		h.log.Error("load settings failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	wallet, err := h.wallets.Get(r.Context(), acc.ID)
	if errors.Is(err, pgx.ErrNoRows) {
		// Created lazily on first settlement.
		wallet, err = &models.Wallet{AccountID: acc.ID, Balance: decimal.Zero}, nil
	}
	if err != nil {
		h.log.Error("get wallet failed", "account_id", acc.ID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	var pack *models.Pack
	if wallet.PackID != nil {
		pack, err = h.packs.GetByID(r.Context(), nil, *wallet.PackID)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			h.log.Error("get pack failed", "pack_id", *wallet.PackID, "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
	}
	start, end := st.DayBounds(h.clk.Now())
	played, err := h.plays.CountPlayedBetween(r.Context(), nil, acc.ID, start, end)
	if err != nil {
		h.log.Error("count plays failed", "account_id", acc.ID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	resp := meResponse{Account: acc, Wallet: wallet, Pack: pack, PlayedToday: played}
	if pack != nil && pack.DailyMissions > played {
		resp.RemainingToday = pack.DailyMissions - played
	}
	writeJSON(w, http.StatusOK, resp)
}

// GET /api/v1/wallet/entries
func (h *Handler) ListWalletEntries(w http.ResponseWriter, r *http.Request) {
	acc := middleware.AccountFromCtx(r.Context())
	if acc == nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	list, err := h.entries.ListByAccountID(r.Context(), acc.ID)
	if err != nil {
		h.log.Error("list wallet entries failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// GET /api/v1/notifications
func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	acc := middleware.AccountFromCtx(r.Context())
	if acc == nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	list, err := h.notifications.ListByAccountID(r.Context(), acc.ID)
	if err != nil {
		h.log.Error("list notifications failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	unread := 0
	for _, n := range list {
		if !n.IsRead {
			unread++
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"unread": unread, "notifications": list})
}

// POST /api/v1/notifications/read
func (h *Handler) MarkNotificationsRead(w http.ResponseWriter, r *http.Request) {
	acc := middleware.AccountFromCtx(r.Context())
	if acc == nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	n, err := h.notifications.MarkAllRead(r.Context(), acc.ID)
	if err != nil {
		h.log.Error("mark notifications read failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"marked": n})
}

// GET /api/v1/settings
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	st, err := h.settings.Get(r.Context())
	if errors.Is(err, repository.ErrNotFound) {
		http.Error(w, "settings not configured", http.StatusNotFound)
		return
	}
	if err != nil {
		h.log.Error("load settings failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, st)
}
