package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/ratepulse/backend/internal/middleware"
	"github.com/ratepulse/backend/internal/models"
	"github.com/ratepulse/backend/internal/repository"
	"github.com/ratepulse/backend/internal/services"
)

// SettingsSource loads the platform settings row.
type SettingsSource interface {
	Get(ctx context.Context) (models.Settings, error)
}

// GameService is the settlement engine bound to one settings snapshot.
type GameService interface {
	GetActiveGame(ctx context.Context, accountID uuid.UUID) (*models.Submission, string, error)
	PlayGame(ctx context.Context, accountID uuid.UUID, score *int, comment *string) (*services.PlayResult, error)
	PlayPendingGame(ctx context.Context, accountID uuid.UUID, score *int, comment *string) (*services.PlayResult, error)
	GameRecord(ctx context.Context, accountID uuid.UUID) ([]*models.Submission, error)
}

// GameHandler serves /game endpoints. Games binds the engine to the settings
// loaded for each request.
type GameHandler struct {
	Games    func(models.Settings) GameService
	Settings SettingsSource
	Logger   *slog.Logger
}

type activeGameResponse struct {
	Submission *models.Submission `json:"submission"`
	Message    string             `json:"message,omitempty"`
}

type playRequest struct {
	RatingScore *int    `json:"rating_score"`
	Comment     *string `json:"comment"`
}

// --- GET /game/active ---

func (h *GameHandler) Active(w http.ResponseWriter, r *http.Request) {
	acc, games, ok := h.begin(w, r)
	if !ok {
		return
	}
	sub, msg, err := games.GetActiveGame(r.Context(), acc.ID)
	if err != nil {
		h.Logger.Error("get active game", "account_id", acc.ID, "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, activeGameResponse{Submission: sub, Message: msg})
}

// --- POST /game/play ---

// Play settles the active submission. A policy refusal or a submission left
// pending is a 400 carrying the user-facing message.
func (h *GameHandler) Play(w http.ResponseWriter, r *http.Request) {
	h.play(w, r, false)
}

// --- POST /game/play-pending ---

func (h *GameHandler) PlayPending(w http.ResponseWriter, r *http.Request) {
	h.play(w, r, true)
}

func (h *GameHandler) play(w http.ResponseWriter, r *http.Request, pendingOnly bool) {
	acc, games, ok := h.begin(w, r)
	if !ok {
		return
	}
	var req playRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}

	var (
		res *services.PlayResult
		err error
	)
	if pendingOnly {
		res, err = games.PlayPendingGame(r.Context(), acc.ID, req.RatingScore, req.Comment)
	} else {
		res, err = games.PlayGame(r.Context(), acc.ID, req.RatingScore, req.Comment)
	}
	if err != nil {
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	status := http.StatusOK
	if !res.OK {
		status = http.StatusBadRequest
	}
	writeJSON(w, status, res)
}

// --- GET /game/record ---

func (h *GameHandler) Record(w http.ResponseWriter, r *http.Request) {
	acc, games, ok := h.begin(w, r)
	if !ok {
		return
	}
	list, err := games.GameRecord(r.Context(), acc.ID)
	if err != nil {
		h.Logger.Error("game record", "account_id", acc.ID, "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// begin resolves the caller and binds the engine to current settings.
func (h *GameHandler) begin(w http.ResponseWriter, r *http.Request) (*models.Account, GameService, bool) {
	acc := middleware.AccountFromCtx(r.Context())
	if acc == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return nil, nil, false
	}
	st, ok := loadSettings(w, r, h.Settings, h.Logger)
	if !ok {
		return nil, nil, false
	}
	return acc, h.Games(st), true
}

// loadSettings writes 404 when the settings row is missing.
func loadSettings(w http.ResponseWriter, r *http.Request, src SettingsSource, log *slog.Logger) (models.Settings, bool) {
	st, err := src.Get(r.Context())
	if errors.Is(err, repository.ErrNotFound) {
		http.Error(w, `{"error":"settings not configured"}`, http.StatusNotFound)
		return st, false
	}
	if err != nil {
		log.Error("load settings", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return st, false
	}
	return st, true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
