package deposits

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
)

type CreateDepositRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

type SetStatusRequest struct {
	Status              string `json:"status"`
	TransactionalSecret string `json:"transactional_secret"`
}

type SettingsSource interface {
	Get(ctx context.Context) (models.Settings, error)
}

type Handler struct {
	svc      *Service
	settings SettingsSource
	log      *slog.Logger
}

func NewHandler(svc *Service, settings SettingsSource, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{svc: svc, settings: settings, log: log}
}

// Create handles POST /api/v1/deposits.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	acc := middleware.AccountFromCtx(r.Context())
	if acc == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}
	var req CreateDepositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	d, err := h.svc.CreateDeposit(r.Context(), acc.ID, req.Amount)
	if errors.Is(err, ErrInvalidAmount) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if err != nil {
		h.log.Error("create deposit failed", "account_id", acc.ID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

// ListMine handles GET /api/v1/deposits.
func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	acc := middleware.AccountFromCtx(r.Context())
	if acc == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}
	list, err := h.svc.ListByAccount(r.Context(), acc.ID)
	if err != nil {
		h.log.Error("list deposits failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// ListAll handles GET /api/v1/admin/deposits.
func (h *Handler) ListAll(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.List(r.Context())
	if err != nil {
		h.log.Error("list deposits failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// SetStatus handles PATCH /api/v1/admin/deposits/{id}.
func (h *Handler) SetStatus(w http.ResponseWriter, r *http.Request) {
	staff := middleware.AccountFromCtx(r.Context())
	if staff == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid deposit id"})
		return
	}
	var req SetStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	settings, err := h.settings.Get(r.Context())
	if err != nil {
		h.log.Error("load settings failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	d, err := h.svc.SetStatus(r.Context(), staff, req.TransactionalSecret, id, req.Status, settings)
	switch {
	case errors.Is(err, ErrInvalidStatus), errors.Is(err, ErrInvalidSecret):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, repository.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "deposit not found"})
	case err != nil:
		h.log.Error("set deposit status failed", "deposit_id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	default:
		writeJSON(w, http.StatusOK, d)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
