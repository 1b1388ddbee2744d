package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ratepulse/backend/internal/models"
)

type contextKey string

const ctxAccountKey contextKey = "account"

// TokenValidator is satisfied by auth.Service.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (uuid.UUID, bool, error)
}

type AccountLookup interface {
	GetByID(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Account, error)
}

// BearerAuth validates the JWT bearer token and loads the account into the
// request context. The staff flag is taken from the stored account, not the
// token, so revoking staff takes effect immediately.
func BearerAuth(tokens TokenValidator, accounts AccountLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := extractBearer(r)
			if raw == "" {
				http.Error(w, `{"error":"missing or malformed Authorization header"}`, http.StatusUnauthorized)
				return
			}
			id, _, err := tokens.ValidateToken(r.Context(), raw)
			if err != nil {
				http.Error(w, `{"error":"invalid token"}`, http.StatusUnauthorized)
				return
			}
			acc, err := accounts.GetByID(r.Context(), nil, id)
			if err != nil {
				http.Error(w, `{"error":"unknown account"}`, http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithAccount(r.Context(), acc)))
		})
	}
}

// RequireStaff rejects authenticated non-staff accounts. Chain after BearerAuth.
func RequireStaff(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		acc := AccountFromCtx(r.Context())
		if acc == nil {
			http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
			return
		}
		if !acc.IsStaff {
			http.Error(w, `{"error":"staff only"}`, http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// AccountFromCtx returns the authenticated account or nil.
func AccountFromCtx(ctx context.Context) *models.Account {
	acc, _ := ctx.Value(ctxAccountKey).(*models.Account)
	return acc
}

// WithAccount returns a context carrying the given account.
func WithAccount(ctx context.Context, acc *models.Account) context.Context {
	return context.WithValue(ctx, ctxAccountKey, acc)
}

func extractBearer(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}
