package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ratepulse/backend/internal/middleware"
	"github.com/ratepulse/backend/internal/models"
	"github.com/ratepulse/backend/internal/repository"
	"github.com/ratepulse/backend/internal/services"
)

type WithdrawalRequester interface {
	RequestWithdrawal(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal, secret string) (*services.WithdrawalResult, error)
}

type WithdrawalLister interface {
	ListByAccountID(ctx context.Context, accountID uuid.UUID) ([]*models.Withdrawal, error)
}

type PaymentMethodStore interface {
	Get(ctx context.Context, accountID uuid.UUID) (*models.PaymentMethod, error)
	Upsert(ctx context.Context, m *models.PaymentMethod) (created bool, err error)
}

// WalletHandler serves the caller's withdrawal and payout endpoints.
type WalletHandler struct {
	Withdrawals    func(models.Settings) WithdrawalRequester
	History        WithdrawalLister
	PaymentMethods PaymentMethodStore
	Settings       SettingsSource
	Logger         *slog.Logger
}

type withdrawRequest struct {
	Amount              decimal.Decimal `json:"amount"`
	TransactionalSecret string          `json:"transactional_secret"`
}

// --- POST /wallet/withdrawals ---

func (h *WalletHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	acc := middleware.AccountFromCtx(r.Context())
	if acc == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	var req withdrawRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	st, ok := loadSettings(w, r, h.Settings, h.Logger)
	if !ok {
		return
	}

	res, err := h.Withdrawals(st).RequestWithdrawal(r.Context(), acc.ID, req.Amount, req.TransactionalSecret)
	switch {
	case errors.Is(err, services.ErrValidation):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case err != nil:
		h.Logger.Error("request withdrawal", "account_id", acc.ID, "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
	case !res.OK:
		writeJSON(w, http.StatusBadRequest, res)
	default:
		writeJSON(w, http.StatusCreated, res)
	}
}

// --- GET /wallet/withdrawals ---

func (h *WalletHandler) ListWithdrawals(w http.ResponseWriter, r *http.Request) {
	acc := middleware.AccountFromCtx(r.Context())
	if acc == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	list, err := h.History.ListByAccountID(r.Context(), acc.ID)
	if err != nil {
		h.Logger.Error("list withdrawals", "account_id", acc.ID, "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// paymentMethodRequest is a partial update; absent fields keep their value.
type paymentMethodRequest struct {
	Name         *string `json:"name"`
	PhoneNumber  *string `json:"phone_number"`
	EmailAddress *string `json:"email_address"`
	Wallet       *string `json:"wallet"`
	Exchange     *string `json:"exchange"`
}

func (p paymentMethodRequest) apply(m *models.PaymentMethod) {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	set(&m.Name, p.Name)
	set(&m.PhoneNumber, p.PhoneNumber)
	set(&m.EmailAddress, p.EmailAddress)
	set(&m.Wallet, p.Wallet)
	set(&m.Exchange, p.Exchange)
}

// paymentMethod returns the stored method, or one prefilled from acc when
// none has been saved yet.
func (h *WalletHandler) paymentMethod(r *http.Request, acc *models.Account) (*models.PaymentMethod, error) {
	m, err := h.PaymentMethods.Get(r.Context(), acc.ID)
	if errors.Is(err, repository.ErrNotFound) {
		return &models.PaymentMethod{AccountID: acc.ID, Name: acc.Username, EmailAddress: acc.Email}, nil
	}
	return m, err
}

// --- GET /wallet/payment-method ---

func (h *WalletHandler) GetPaymentMethod(w http.ResponseWriter, r *http.Request) {
	acc := middleware.AccountFromCtx(r.Context())
	if acc == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	m, err := h.paymentMethod(r, acc)
	if err != nil {
		h.Logger.Error("get payment method", "account_id", acc.ID, "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// --- PUT /wallet/payment-method ---

func (h *WalletHandler) UpsertPaymentMethod(w http.ResponseWriter, r *http.Request) {
	acc := middleware.AccountFromCtx(r.Context())
	if acc == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	var req paymentMethodRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	m, err := h.paymentMethod(r, acc)
	if err != nil {
		h.Logger.Error("load payment method", "account_id", acc.ID, "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	req.apply(m)
	created, err := h.PaymentMethods.Upsert(r.Context(), m)
	if err != nil {
		h.Logger.Error("save payment method", "account_id", acc.ID, "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, m)
}
