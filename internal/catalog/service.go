package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/ratepulse/backend/internal/models"
	"github.com/ratepulse/backend/internal/repository"
)

var (
	ErrInvalidPrice = errors.New("price must be positive")
	ErrInvalidRange = errors.New("min_amount must not exceed max_amount")
	ErrInvalidPack  = errors.New("invalid pack")
	ErrInvalidEvent = errors.New("event name is required")
	// ErrDuplicateName is returned when a product or pack name is taken.
	ErrDuplicateName = errors.New("name already exists")
)

const (
	ratingNoDigits     = 11
	ratingNoAttempts   = 5
	ratingNoConstraint = "products_rating_no_key"
)

type PackStore interface {
	Create(ctx context.Context, p *models.Pack) error
	Update(ctx context.Context, p *models.Pack) error
	GetByID(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Pack, error)
	ListActive(ctx context.Context, tx pgx.Tx) ([]models.Pack, error)
	List(ctx context.Context) ([]models.Pack, error)
}

type ProductStore interface {
	Create(ctx context.Context, p *models.Product) error
	List(ctx context.Context, tx pgx.Tx) ([]models.Product, error)
}

type OnHoldPayStore interface {
	Create(ctx context.Context, p *models.OnHoldPay) error
	Update(ctx context.Context, p *models.OnHoldPay) error
	List(ctx context.Context) ([]models.OnHoldPay, error)
}

type EventStore interface {
	Create(ctx context.Context, e *models.Event) error
	Update(ctx context.Context, e *models.Event) error
	List(ctx context.Context) ([]models.Event, error)
	ListActive(ctx context.Context) ([]models.Event, error)
}

// DigitSource draws rating numbers; services.Picker satisfies it.
type DigitSource interface {
	Digits(n int) string
}

type Service struct {
	packs    PackStore
	products ProductStore
	pays     OnHoldPayStore
	events   EventStore
	digits   DigitSource
}

func NewService(packs PackStore, products ProductStore, pays OnHoldPayStore, events EventStore, digits DigitSource) *Service {
	return &Service{packs: packs, products: products, pays: pays, events: events, digits: digits}
}

func validatePack(p *models.Pack) error {
	switch {
	case strings.TrimSpace(p.Name) == "":
		return fmt.Errorf("%w: name is required", ErrInvalidPack)
	case p.UsdValue.IsNegative():
		return fmt.Errorf("%w: usd_value must not be negative", ErrInvalidPack)
	case p.DailyMissions < 0 || p.DailyWithdrawals < 0:
		return fmt.Errorf("%w: quotas must not be negative", ErrInvalidPack)
	case p.ProfitPercentage.IsNegative() || p.ProfitPercentage.GreaterThan(decimal.NewFromInt(100)):
		return fmt.Errorf("%w: profit_percentage must be within 0..100", ErrInvalidPack)
	}
	return nil
}

func (s *Service) CreatePack(ctx context.Context, p *models.Pack) error {
	if err := validatePack(p); err != nil {
		return err
	}
	p.ID = uuid.New()
	return dupName(s.packs.Create(ctx, p))
}

// UpdatePack replaces every editable field of the pack with id.
func (s *Service) UpdatePack(ctx context.Context, id uuid.UUID, p *models.Pack) error {
	if err := validatePack(p); err != nil {
		return err
	}
	p.ID = id
	return dupName(s.packs.Update(ctx, p))
}

func (s *Service) ListPacks(ctx context.Context) ([]models.Pack, error) {
	return s.packs.List(ctx)
}

func (s *Service) ListActivePacks(ctx context.Context) ([]models.Pack, error) {
	return s.packs.ListActive(ctx, nil)
}

func (s *Service) GetPack(ctx context.Context, id uuid.UUID) (*models.Pack, error) {
	return s.packs.GetByID(ctx, nil, id)
}

// CreateProduct assigns a fresh rating number, drawing again on collision.
// A name collision is reported without retrying.
func (s *Service) CreateProduct(ctx context.Context, name string, price decimal.Decimal, description string) (*models.Product, error) {
	if !price.IsPositive() {
		return nil, ErrInvalidPrice
	}
	p := &models.Product{ID: uuid.New(), Name: strings.TrimSpace(name), Price: price.Round(2), Description: description}
	for attempt := 0; attempt < ratingNoAttempts; attempt++ {
		p.RatingNo = s.digits.Digits(ratingNoDigits)
		err := s.products.Create(ctx, p)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, repository.ErrDuplicate) {
			return nil, err
		}
		var pgErr *pgconn.PgError
		if !errors.As(err, &pgErr) || pgErr.ConstraintName != ratingNoConstraint {
			return nil, ErrDuplicateName
		}
	}
	return nil, fmt.Errorf("create product: no unique rating number after %d attempts", ratingNoAttempts)
}

func (s *Service) ListProducts(ctx context.Context) ([]models.Product, error) {
	return s.products.List(ctx, nil)
}

func (s *Service) CreateOnHoldPay(ctx context.Context, p *models.OnHoldPay) error {
	if p.MinAmount.IsNegative() || p.MinAmount.GreaterThan(p.MaxAmount) {
		return ErrInvalidRange
	}
	p.ID = uuid.New()
	return s.pays.Create(ctx, p)
}

func (s *Service) UpdateOnHoldPay(ctx context.Context, id uuid.UUID, p *models.OnHoldPay) error {
	if p.MinAmount.IsNegative() || p.MinAmount.GreaterThan(p.MaxAmount) {
		return ErrInvalidRange
	}
	p.ID = id
	return s.pays.Update(ctx, p)
}

func (s *Service) ListOnHoldPays(ctx context.Context) ([]models.OnHoldPay, error) {
	return s.pays.List(ctx)
}

func (s *Service) CreateEvent(ctx context.Context, e *models.Event) error {
	e.Name = strings.TrimSpace(e.Name)
	if e.Name == "" {
		return ErrInvalidEvent
	}
	e.ID = uuid.New()
	return s.events.Create(ctx, e)
}

// UpdateEvent replaces the name, description and active flag of event id.
func (s *Service) UpdateEvent(ctx context.Context, id uuid.UUID, e *models.Event) error {
	e.Name = strings.TrimSpace(e.Name)
	if e.Name == "" {
		return ErrInvalidEvent
	}
	e.ID = id
	return s.events.Update(ctx, e)
}

func (s *Service) ListEvents(ctx context.Context) ([]models.Event, error) {
	return s.events.List(ctx)
}

func (s *Service) ListActiveEvents(ctx context.Context) ([]models.Event, error) {
	return s.events.ListActive(ctx)
}

func dupName(err error) error {
	if errors.Is(err, repository.ErrDuplicate) {
		return ErrDuplicateName
	}
	return err
}
