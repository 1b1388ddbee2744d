package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/ratepulse/backend/internal/middleware"
	"github.com/ratepulse/backend/internal/models"
	"github.com/ratepulse/backend/internal/repository"
)

type stubWallets struct{ w *models.Wallet }

func (s stubWallets) Get(context.Context, uuid.UUID) (*models.Wallet, error) {
	if s.w == nil {
		return nil, pgx.ErrNoRows
	}
	return s.w, nil
}

type stubPacks map[uuid.UUID]*models.Pack

func (s stubPacks) GetByID(_ context.Context, _ pgx.Tx, id uuid.UUID) (*models.Pack, error) {
	if p, ok := s[id]; ok {
		return p, nil
	}
	return nil, repository.ErrNotFound
}

type stubPlays struct {
	n          int
	start, end time.Time
}

func (s *stubPlays) CountPlayedBetween(_ context.Context, _ pgx.Tx, _ uuid.UUID, start, end time.Time) (int, error) {
	s.start, s.end = start, end
	return s.n, nil
}

type stubEntries struct{}

func (stubEntries) ListByAccountID(context.Context, uuid.UUID) ([]*models.WalletEntry, error) {
	return []*models.WalletEntry{}, nil
}

type stubNotifications struct{ list []*models.Notification }

func (s *stubNotifications) ListByAccountID(context.Context, uuid.UUID) ([]*models.Notification, error) {
	return s.list, nil
}

func (s *stubNotifications) MarkAllRead(context.Context, uuid.UUID) (int64, error) {
	var n int64
	for _, x := range s.list {
		if !x.IsRead {
			x.IsRead = true
			n++
		}
	}
	return n, nil
}

type stubSettings struct {
	st  models.Settings
	err error
}

func (s stubSettings) Get(context.Context) (models.Settings, error) { return s.st, s.err }

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

var now = time.Date(2024, 3, 14, 23, 30, 0, 0, time.UTC)

func authed(method, path string, acc *models.Account) *http.Request {
	req := httptest.NewRequest(method, path, nil)
	return req.WithContext(middleware.WithAccount(req.Context(), acc))
}

func TestGetMe(t *testing.T) {
	acc := &models.Account{ID: uuid.New(), Username: "rater"}
	pack := &models.Pack{ID: uuid.New(), Name: "Silver", DailyMissions: 30}
	wallet := &models.Wallet{AccountID: acc.ID, Balance: decimal.NewFromInt(250), PackID: &pack.ID}
	plays := &stubPlays{n: 12}
	settings := stubSettings{st: models.Settings{Timezone: "Asia/Tokyo"}}

	h := NewHandler(stubWallets{wallet}, stubPacks{pack.ID: pack}, plays, stubEntries{}, &stubNotifications{}, settings, fixedClock{now}, nil)
	rec := httptest.NewRecorder()
	h.GetMe(rec, authed(http.MethodGet, "/api/v1/account/me", acc))
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d %s", rec.Code, rec.Body.String())
	}

	var body struct {
		Pack           *models.Pack `json:"pack"`
		PlayedToday    int          `json:"played_today"`
		RemainingToday int          `json:"remaining_today"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Pack == nil || body.Pack.Name != "Silver" || body.PlayedToday != 12 || body.RemainingToday != 18 {
		t.Errorf("body = %+v", body)
	}
	// 23:30 UTC is already the 15th in Tokyo.
	if want := time.Date(2024, 3, 15, 0, 0, 0, 0, settings.st.Location()); !plays.start.Equal(want) {
		t.Errorf("day start = %s, want %s", plays.start, want)
	}
}

func TestGetMe_NoWalletYet(t *testing.T) {
	acc := &models.Account{ID: uuid.New()}
	h := NewHandler(stubWallets{}, stubPacks{}, &stubPlays{}, stubEntries{}, &stubNotifications{}, stubSettings{err: repository.ErrNotFound}, fixedClock{now}, nil)

	rec := httptest.NewRecorder()
	h.GetMe(rec, authed(http.MethodGet, "/api/v1/account/me", acc))
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
}

func TestGetMe_Unauthenticated(t *testing.T) {
	h := NewHandler(stubWallets{}, stubPacks{}, &stubPlays{}, stubEntries{}, &stubNotifications{}, stubSettings{}, fixedClock{now}, nil)
	rec := httptest.NewRecorder()
	h.GetMe(rec, httptest.NewRequest(http.MethodGet, "/api/v1/account/me", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status %d", rec.Code)
	}
}

func TestNotifications_ListAndMarkRead(t *testing.T) {
	acc := &models.Account{ID: uuid.New()}
	notes := &stubNotifications{list: []*models.Notification{{ID: uuid.New()}, {ID: uuid.New(), IsRead: true}, {ID: uuid.New()}}}
	h := NewHandler(stubWallets{}, stubPacks{}, &stubPlays{}, stubEntries{}, notes, stubSettings{}, fixedClock{now}, nil)

	rec := httptest.NewRecorder()
	h.ListNotifications(rec, authed(http.MethodGet, "/api/v1/notifications", acc))
	var list struct {
		Unread int `json:"unread"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil || list.Unread != 2 {
		t.Fatalf("unread = %d (%v)", list.Unread, err)
	}

	rec = httptest.NewRecorder()
	h.MarkNotificationsRead(rec, authed(http.MethodPost, "/api/v1/notifications/read", acc))
	var marked struct {
		Marked int64 `json:"marked"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &marked); err != nil || marked.Marked != 2 {
		t.Fatalf("marked = %d (%v)", marked.Marked, err)
	}
}

func TestGetSettings(t *testing.T) {
	for _, tc := range []struct {
		err  error
		want int
	}{
		{nil, http.StatusOK},
		{repository.ErrNotFound, http.StatusNotFound},
		{errors.New("db down"), http.StatusInternalServerError},
	} {
		h := NewHandler(stubWallets{}, stubPacks{}, &stubPlays{}, stubEntries{}, &stubNotifications{}, stubSettings{err: tc.err}, fixedClock{now}, nil)
		rec := httptest.NewRecorder()
		h.GetSettings(rec, httptest.NewRequest(http.MethodGet, "/api/v1/settings", nil))
		if rec.Code != tc.want {
			t.Errorf("err=%v: status %d, want %d", tc.err, rec.Code, tc.want)
		}
	}
}
