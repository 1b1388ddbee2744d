package auth

import (
	"context"
	"errors"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/ratepulse/backend/internal/clock"
	"github.com/ratepulse/backend/internal/models"
	"github.com/ratepulse/backend/internal/repository"
)

var (
	// ErrDuplicateAccount is returned when the username or email is taken.
	ErrDuplicateAccount   = errors.New("username or email already registered")
	ErrInvalidReferral    = errors.New("invalid referral code")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	// ErrWrongPassword is returned by ChangePassword when the current
	// password does not match.
	ErrWrongPassword = errors.New("current password is incorrect")
)

const (
	referralCodeLen        = 6
	referralCodeAttempts   = 5
	referralCodeConstraint = "accounts_referral_code_key"
	tokenTTL               = 24 * time.Hour
)

type Store interface {
	CreateAccount(ctx context.Context, a *models.Account, referralCode string, bonus decimal.Decimal) (*models.Wallet, error)
	GetByLogin(ctx context.Context, login string) (*models.Account, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error)
	UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error
}

type SettingsSource interface {
	Get(ctx context.Context) (models.Settings, error)
}

type RegisterInput struct {
	Username            string
	Email               string
	Password            string
	TransactionalSecret string
	ReferralCode        string
}

type Service interface {
	Register(ctx context.Context, in RegisterInput) (*models.Account, *models.Wallet, error)
	Login(ctx context.Context, login, password string) (string, error)
	ValidateToken(ctx context.Context, token string) (uuid.UUID, bool, error)
	ChangePassword(ctx context.Context, accountID uuid.UUID, current, next string) error
}

type service struct {
	store    Store
	settings SettingsSource
	secret   []byte
	clock    clock.Clock
}

func NewService(store Store, settings SettingsSource, secret []byte, clk clock.Clock) *service {
	return &service{store: store, settings: settings, secret: secret, clock: clk}
}

// Ensure service implements Service at compile time.
var _ Service = (*service)(nil)

type claims struct {
	jwt.RegisteredClaims
	Staff bool `json:"staff"`
}

// Register hashes both secrets, credits the configured signup bonus and links
// the referrer when a code is given.
func (s *service) Register(ctx context.Context, in RegisterInput) (*models.Account, *models.Wallet, error) {
	pw, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, nil, err
	}
	sec, err := bcrypt.GenerateFromPassword([]byte(in.TransactionalSecret), bcrypt.DefaultCost)
	if err != nil {
		return nil, nil, err
	}
	bonus := decimal.Zero
	st, err := s.settings.Get(ctx)
	switch {
	case err == nil:
		bonus = st.SignupBonus
	case !errors.Is(err, repository.ErrNotFound):
		return nil, nil, err
	}

	for attempt := 0; attempt < referralCodeAttempts; attempt++ {
		acc := &models.Account{
			ID:                      uuid.New(),
			Username:                in.Username,
			Email:                   strings.ToLower(in.Email),
			PasswordHash:            string(pw),
			TransactionalSecretHash: string(sec),
			ReferralCode:            newReferralCode(),
		}
		w, err := s.store.CreateAccount(ctx, acc, in.ReferralCode, bonus)
		if err == nil {
			return acc, w, nil
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.ConstraintName == referralCodeConstraint {
			continue
		}
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, nil, ErrDuplicateAccount
		}
		return nil, nil, err
	}
	return nil, nil, errors.New("no unique referral code available")
}

func newReferralCode() string {
	b := make([]byte, referralCodeLen)
	for i := range b {
		b[i] = byte('A' + rand.IntN(26))
	}
	return string(b)
}

func (s *service) Login(ctx context.Context, login, password string) (string, error) {
	acc, err := s.store.GetByLogin(ctx, login)
	if errors.Is(err, repository.ErrNotFound) {
		return "", ErrInvalidCredentials
	}
	if err != nil {
		return "", err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(acc.PasswordHash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}
	return s.issueToken(acc.ID, acc.IsStaff)
}

// ChangePassword replaces the login password after checking the current one.
// Issued tokens stay valid until they expire.
func (s *service) ChangePassword(ctx context.Context, accountID uuid.UUID, current, next string) error {
	acc, err := s.store.GetByID(ctx, accountID)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(acc.PasswordHash), []byte(current)); err != nil {
		return ErrWrongPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.store.UpdatePasswordHash(ctx, accountID, string(hash))
}

func (s *service) issueToken(accountID uuid.UUID, staff bool) (string, error) {
	now := s.clock.Now()
	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		Staff: staff,
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	return tok.SignedString(s.secret)
}

// ValidateToken returns the account id and staff claim of a valid token.
func (s *service) ValidateToken(ctx context.Context, token string) (uuid.UUID, bool, error) {
	tok, err := jwt.ParseWithClaims(token, &claims{}, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.clock.Now))
	if err != nil {
		return uuid.Nil, false, errors.Join(ErrInvalidToken, err)
	}
	c, ok := tok.Claims.(*claims)
	if !ok || !tok.Valid {
		return uuid.Nil, false, ErrInvalidToken
	}
	id, err := uuid.Parse(c.Subject)
	if err != nil {
		return uuid.Nil, false, errors.Join(ErrInvalidToken, err)
	}
	return id, c.Staff, nil
}
