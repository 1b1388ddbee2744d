package catalog

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ratepulse/backend/internal/models"
	"github.com/ratepulse/backend/internal/repository"
)

// Request structs match the catalog JSON schemas (snake_case JSON).

type PackRequest struct {
	Name                       string          `json:"name"`
	UsdValue                   decimal.Decimal `json:"usd_value"`
	DailyMissions              int             `json:"daily_missions"`
	DailyWithdrawals           int             `json:"daily_withdrawals"`
	ProfitPercentage           decimal.Decimal `json:"profit_percentage"`
	PaymentBonus               decimal.Decimal `json:"payment_bonus"`
	PaymentLimitToTriggerBonus decimal.Decimal `json:"payment_limit_to_trigger_bonus"`
	ShortDescription           string          `json:"short_description"`
	Description                string          `json:"description"`
	IsActive                   *bool           `json:"is_active"`
}

func (r PackRequest) pack() *models.Pack {
	active := true
	if r.IsActive != nil {
		active = *r.IsActive
	}
	return &models.Pack{
		Name:                       r.Name,
		UsdValue:                   r.UsdValue,
		DailyMissions:              r.DailyMissions,
		DailyWithdrawals:           r.DailyWithdrawals,
		ProfitPercentage:           r.ProfitPercentage,
		PaymentBonus:               r.PaymentBonus,
		PaymentLimitToTriggerBonus: r.PaymentLimitToTriggerBonus,
		ShortDescription:           r.ShortDescription,
		Description:                r.Description,
		IsActive:                   active,
	}
}

type ProductRequest struct {
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	Description string          `json:"description"`
}

type OnHoldPayRequest struct {
	MinAmount decimal.Decimal `json:"min_amount"`
	MaxAmount decimal.Decimal `json:"max_amount"`
	IsActive  *bool           `json:"is_active"`
}

type EventRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	IsActive    *bool  `json:"is_active"`
}

func (r EventRequest) event() *models.Event {
	active := true
	if r.IsActive != nil {
		active = *r.IsActive
	}
	return &models.Event{Name: r.Name, Description: r.Description, IsActive: active}
}

type Handler struct {
	svc *Service
	log *slog.Logger
}

func NewHandler(svc *Service, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{svc: svc, log: log}
}

// CreatePack handles POST /admin/packs.
func (h *Handler) CreatePack(w http.ResponseWriter, r *http.Request) {
	var req PackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	p := req.pack()
	if err := h.svc.CreatePack(r.Context(), p); err != nil {
		h.fail(w, "create pack failed", err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// UpdatePack handles PUT /admin/packs/{id}.
func (h *Handler) UpdatePack(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid pack id")
		return
	}
	var req PackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	p := req.pack()
	if err := h.svc.UpdatePack(r.Context(), id, p); err != nil {
		h.fail(w, "update pack failed", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// ListPacks handles GET /admin/packs and includes inactive packs.
func (h *Handler) ListPacks(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.ListPacks(r.Context())
	if err != nil {
		h.fail(w, "list packs failed", err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// ListActivePacks handles GET /packs.
func (h *Handler) ListActivePacks(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.ListActivePacks(r.Context())
	if err != nil {
		h.fail(w, "list active packs failed", err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req ProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	p, err := h.svc.CreateProduct(r.Context(), req.Name, req.Price, req.Description)
	if err != nil {
		h.fail(w, "create product failed", err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.ListProducts(r.Context())
	if err != nil {
		h.fail(w, "list products failed", err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) CreateOnHoldPay(w http.ResponseWriter, r *http.Request) {
	var req OnHoldPayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	p := req.onHoldPay()
	if err := h.svc.CreateOnHoldPay(r.Context(), p); err != nil {
		h.fail(w, "create on-hold pay failed", err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *Handler) UpdateOnHoldPay(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid on-hold pay id")
		return
	}
	var req OnHoldPayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	p := req.onHoldPay()
	if err := h.svc.UpdateOnHoldPay(r.Context(), id, p); err != nil {
		h.fail(w, "update on-hold pay failed", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) ListOnHoldPays(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.ListOnHoldPays(r.Context())
	if err != nil {
		h.fail(w, "list on-hold pays failed", err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// CreateEvent handles POST /admin/events.
func (h *Handler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req EventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	e := req.event()
	if err := h.svc.CreateEvent(r.Context(), e); err != nil {
		h.fail(w, "create event failed", err)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

// UpdateEvent handles PUT /admin/events/{id}.
func (h *Handler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid event id")
		return
	}
	var req EventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	e := req.event()
	if err := h.svc.UpdateEvent(r.Context(), id, e); err != nil {
		h.fail(w, "update event failed", err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// ListEvents handles GET /admin/events and includes inactive events.
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.ListEvents(r.Context())
	if err != nil {
		h.fail(w, "list events failed", err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// ListActiveEvents handles GET /events.
func (h *Handler) ListActiveEvents(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.ListActiveEvents(r.Context())
	if err != nil {
		h.fail(w, "list active events failed", err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (r OnHoldPayRequest) onHoldPay() *models.OnHoldPay {
	active := true
	if r.IsActive != nil {
		active = *r.IsActive
	}
	return &models.OnHoldPay{MinAmount: r.MinAmount, MaxAmount: r.MaxAmount, IsActive: active}
}

func (h *Handler) fail(w http.ResponseWriter, msg string, err error) {
	switch {
	case errors.Is(err, ErrInvalidPack), errors.Is(err, ErrInvalidPrice), errors.Is(err, ErrInvalidRange),
		errors.Is(err, ErrInvalidEvent):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrDuplicateName):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	default:
		h.log.Error(msg, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
