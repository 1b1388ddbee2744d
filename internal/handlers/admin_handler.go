package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ratepulse/backend/internal/ledger"
	"github.com/ratepulse/backend/internal/models"
	"github.com/ratepulse/backend/internal/repository"
	"github.com/ratepulse/backend/internal/services"
)

type SettingsStore interface {
	SettingsSource
	Upsert(ctx context.Context, s *models.Settings) error
}

type InjectionManager interface {
	Inject(ctx context.Context, req services.InjectRequest) (*models.Submission, error)
	UpdateInjected(ctx context.Context, id uuid.UUID, req services.InjectRequest) (*models.Submission, error)
	DeleteInjected(ctx context.Context, id uuid.UUID) error
}

type WithdrawalReviewer interface {
	ReviewWithdrawal(ctx context.Context, id uuid.UUID, approve bool) (*models.Withdrawal, error)
}

type AllWithdrawals interface {
	List(ctx context.Context) ([]*models.Withdrawal, error)
}

type WalletAdjuster interface {
	Adjust(ctx context.Context, accountID uuid.UUID, op string, amount decimal.Decimal) (*models.Wallet, error)
}

type AccountAdmin interface {
	List(ctx context.Context) ([]*models.Account, error)
	SetMinimumBalanceWaived(ctx context.Context, id uuid.UUID, waived bool) error
}

// AdminHandler serves /admin endpoints. Routes must be wrapped in
// middleware.RequireStaff.
type AdminHandler struct {
	Settings    SettingsStore
	Injections  InjectionManager
	Reviewer    WithdrawalReviewer
	Withdrawals AllWithdrawals
	Wallets     WalletAdjuster
	Accounts    AccountAdmin
	Logger      *slog.Logger
}

// --- settings ---

func (h *AdminHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	st, ok := loadSettings(w, r, h.Settings, h.Logger)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// UpdateSettings merges the body into the stored settings; absent fields keep
// their current value. A missing row is recreated from models.DefaultSettings.
func (h *AdminHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	st, err := h.Settings.Get(r.Context())
	if errors.Is(err, repository.ErrNotFound) {
		st, err = models.DefaultSettings(), nil
	}
	if err != nil {
		h.fail(w, "load settings", err)
		return
	}
	if err := json.NewDecoder(r.Body).Decode(&st); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	if _, err := time.LoadLocation(st.Timezone); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown timezone " + st.Timezone})
		return
	}
	if err := h.Settings.Upsert(r.Context(), &st); err != nil {
		h.fail(w, "update settings", err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// --- injections ---

type injectRequest struct {
	OnHoldPayID  uuid.UUID `json:"on_hold_pay_id"`
	GameNumber   int       `json:"game_number"`
	ProductCount int       `json:"product_count"`
}

// Inject handles POST /admin/accounts/{id}/injections.
func (h *AdminHandler) Inject(w http.ResponseWriter, r *http.Request) {
	accountID, ok := pathID(w, r)
	if !ok {
		return
	}
	var req injectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	sub, err := h.Injections.Inject(r.Context(), services.InjectRequest{
		AccountID: accountID, OnHoldPayID: req.OnHoldPayID, GameNumber: req.GameNumber, ProductCount: req.ProductCount,
	})
	if err != nil {
		h.fail(w, "inject submission", err)
		return
	}
	writeJSON(w, http.StatusCreated, sub)
}

// UpdateInjection handles PUT /admin/injections/{id}.
func (h *AdminHandler) UpdateInjection(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req injectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	sub, err := h.Injections.UpdateInjected(r.Context(), id, services.InjectRequest{
		OnHoldPayID: req.OnHoldPayID, GameNumber: req.GameNumber, ProductCount: req.ProductCount,
	})
	if err != nil {
		h.fail(w, "update injection", err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

// DeleteInjection handles DELETE /admin/injections/{id}.
func (h *AdminHandler) DeleteInjection(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.Injections.DeleteInjected(r.Context(), id); err != nil {
		h.fail(w, "delete injection", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- withdrawals ---

func (h *AdminHandler) ListWithdrawals(w http.ResponseWriter, r *http.Request) {
	list, err := h.Withdrawals.List(r.Context())
	if err != nil {
		h.fail(w, "list withdrawals", err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// ReviewWithdrawal handles PATCH /admin/withdrawals/{id} with an Approved or
// Rejected status.
func (h *AdminHandler) ReviewWithdrawal(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	if req.Status != models.WithdrawalApproved && req.Status != models.WithdrawalRejected {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "status must be Approved or Rejected"})
		return
	}
	wd, err := h.Reviewer.ReviewWithdrawal(r.Context(), id, req.Status == models.WithdrawalApproved)
	if err != nil {
		h.fail(w, "review withdrawal", err)
		return
	}
	writeJSON(w, http.StatusOK, wd)
}

// --- accounts ---

func (h *AdminHandler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	list, err := h.Accounts.List(r.Context())
	if err != nil {
		h.fail(w, "list accounts", err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// AdjustWallet handles POST /admin/accounts/{id}/wallet.
func (h *AdminHandler) AdjustWallet(w http.ResponseWriter, r *http.Request) {
	accountID, ok := pathID(w, r)
	if !ok {
		return
	}
	var req struct {
		Operation string          `json:"operation"`
		Amount    decimal.Decimal `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	wallet, err := h.Wallets.Adjust(r.Context(), accountID, req.Operation, req.Amount)
	if err != nil {
		h.fail(w, "adjust wallet", err)
		return
	}
	writeJSON(w, http.StatusOK, wallet)
}

// WaiveMinimumBalance handles PUT /admin/accounts/{id}/minimum-balance-waiver.
// DELETE on the same path restores the requirement.
func (h *AdminHandler) WaiveMinimumBalance(w http.ResponseWriter, r *http.Request) {
	accountID, ok := pathID(w, r)
	if !ok {
		return
	}
	waived := r.Method != http.MethodDelete
	if err := h.Accounts.SetMinimumBalanceWaived(r.Context(), accountID, waived); err != nil {
		h.fail(w, "set minimum balance waiver", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"account_id": accountID, "minimum_balance_waived": waived})
}

// --- helpers ---

func (h *AdminHandler) fail(w http.ResponseWriter, msg string, err error) {
	switch {
	case errors.Is(err, services.ErrValidation),
		errors.Is(err, ledger.ErrNegativeAmount),
		errors.Is(err, ledger.ErrInvalidRelease):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, repository.ErrNotFound), errors.Is(err, services.ErrNotInjected):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	case errors.Is(err, services.ErrWithdrawalReviewed):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	default:
		h.Logger.Error(msg, "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
	}
}

func pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, `{"error":"invalid id"}`, http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}
