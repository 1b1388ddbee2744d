package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/ratepulse/backend/internal/models"
)

func TestRateLimiter_PerAccountBurst(t *testing.T) {
	rl := NewRateLimiter(0.001, 2)
	h := rl.Handler(okHandler)
	alice := &models.Account{ID: uuid.New()}
	bob := &models.Account{ID: uuid.New()}

	do := func(acc *models.Account) int {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req = req.WithContext(WithAccount(req.Context(), acc))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	for i := 0; i < 2; i++ {
		if code := do(alice); code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, code)
		}
	}
	if code := do(alice); code != http.StatusTooManyRequests {
		t.Errorf("third request: expected 429, got %d", code)
	}
	if code := do(bob); code != http.StatusOK {
		t.Errorf("other account: expected 200, got %d", code)
	}
}

func TestRateLimiter_AnonymousKeyedByRemoteAddr(t *testing.T) {
	rl := NewRateLimiter(0.001, 1)
	h := rl.Handler(okHandler)

	do := func(addr string) int {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	if do("10.0.0.1:1") != http.StatusOK || do("10.0.0.1:1") != http.StatusTooManyRequests {
		t.Error("same address should be limited after burst")
	}
	if do("10.0.0.2:1") != http.StatusOK {
		t.Error("different address should have its own bucket")
	}
}
