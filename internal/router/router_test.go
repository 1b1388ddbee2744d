package router

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/ratepulse/backend/internal/middleware"
	"github.com/ratepulse/backend/internal/models"
)

// rejectAll fails every body so requests stop before any handler runs.
type rejectAll struct{ calls int }

func (v *rejectAll) Validate(string, []byte) error {
	v.calls++
	return errors.New("validation failed")
}

var (
	userID  = uuid.New()
	staffID = uuid.New()
)

// headerAuth authenticates X-Test-Role: user|staff.
func headerAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		role := r.Header.Get("X-Test-Role")
		if role == "" {
			http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
			return
		}
		acc := &models.Account{ID: userID}
		if role == "staff" {
			acc = &models.Account{ID: staffID, IsStaff: true}
		}
		next.ServeHTTP(w, r.WithContext(middleware.WithAccount(r.Context(), acc)))
	})
}

func newTestRouter(v *rejectAll) http.Handler {
	return New(Deps{
		Validator:    v,
		Authenticate: headerAuth,
		PlayLimiter:  middleware.NewRateLimiter(0.001, 1),
	})
}

func do(h http.Handler, method, path, role, body string) int {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if role != "" {
		req.Header.Set("X-Test-Role", role)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec.Code
}

func TestRouter_AuthGates(t *testing.T) {
	h := newTestRouter(&rejectAll{})

	cases := []struct {
		method, path, role string
		want               int
	}{
		{http.MethodGet, base + "/account/me", "", http.StatusUnauthorized},
		{http.MethodPost, base + "/game/play", "", http.StatusUnauthorized},
		{http.MethodGet, base + "/admin/settings", "", http.StatusUnauthorized},
		{http.MethodGet, base + "/admin/settings", "user", http.StatusForbidden},
		{http.MethodDelete, base + "/admin/injections/" + uuid.NewString(), "user", http.StatusForbidden},
		{http.MethodPatch, base + "/admin/deposits/" + uuid.NewString(), "user", http.StatusForbidden},
		{http.MethodPost, base + "/auth/password", "", http.StatusUnauthorized},
		{http.MethodGet, base + "/events", "", http.StatusUnauthorized},
		{http.MethodPut, base + "/wallet/payment-method", "", http.StatusUnauthorized},
		{http.MethodPost, base + "/admin/events", "user", http.StatusForbidden},
		{http.MethodPut, base + "/admin/events/" + uuid.NewString(), "user", http.StatusForbidden},
	}
	for _, tc := range cases {
		if got := do(h, tc.method, tc.path, tc.role, "{}"); got != tc.want {
			t.Errorf("%s %s as %q: %d, want %d", tc.method, tc.path, tc.role, got, tc.want)
		}
	}
}

func TestRouter_ValidatesBodies(t *testing.T) {
	v := &rejectAll{}
	h := newTestRouter(v)

	if got := do(h, http.MethodPost, base+"/auth/register", "", `{}`); got != http.StatusBadRequest {
		t.Errorf("register: %d", got)
	}
	if got := do(h, http.MethodPut, base+"/admin/settings", "staff", `{}`); got != http.StatusBadRequest {
		t.Errorf("settings: %d", got)
	}
	if got := do(h, http.MethodPost, base+"/auth/password", "user", `{}`); got != http.StatusBadRequest {
		t.Errorf("password: %d", got)
	}
	if got := do(h, http.MethodPut, base+"/wallet/payment-method", "user", `{}`); got != http.StatusBadRequest {
		t.Errorf("payment method: %d", got)
	}
	if got := do(h, http.MethodPost, base+"/admin/events", "staff", `{}`); got != http.StatusBadRequest {
		t.Errorf("event: %d", got)
	}
	if v.calls != 5 {
		t.Errorf("validator calls = %d, want 5", v.calls)
	}
}

func TestRouter_PlayIsRateLimited(t *testing.T) {
	h := newTestRouter(&rejectAll{})

	if got := do(h, http.MethodPost, base+"/game/play", "user", `{}`); got != http.StatusBadRequest {
		t.Fatalf("first play: %d", got)
	}
	if got := do(h, http.MethodPost, base+"/game/play-pending", "user", `{}`); got != http.StatusTooManyRequests {
		t.Fatalf("second play: %d, want 429", got)
	}
	// Other accounts keep their own budget.
	if got := do(h, http.MethodPost, base+"/game/play", "staff", `{}`); got != http.StatusBadRequest {
		t.Fatalf("other account: %d", got)
	}
	// Reads are not throttled.
	if got := do(h, http.MethodGet, base+"/game/active", "", ""); got != http.StatusUnauthorized {
		t.Fatalf("active: %d", got)
	}
}

func TestRouter_MethodAndPath(t *testing.T) {
	h := newTestRouter(&rejectAll{})

	if got := do(h, http.MethodDelete, base+"/auth/login", "", ""); got != http.StatusMethodNotAllowed {
		t.Errorf("wrong method: %d", got)
	}
	if got := do(h, http.MethodGet, base+"/nope", "", ""); got != http.StatusNotFound {
		t.Errorf("unknown path: %d", got)
	}
}
