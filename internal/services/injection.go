package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ratepulse/backend/internal/ledger"
	"github.com/ratepulse/backend/internal/metrics"
	"github.com/ratepulse/backend/internal/models"
	"github.com/ratepulse/backend/internal/packs"
	"github.com/ratepulse/backend/internal/repository"
)

// ErrNotInjected is returned when an update or delete targets a submission
// that is not an unplayed special submission.
var ErrNotInjected = errors.New("submission is not an unplayed special submission")

type InjectionStore interface {
	GetByID(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Submission, error)
	Create(ctx context.Context, tx pgx.Tx, s *models.Submission) error
	AttachProducts(ctx context.Context, tx pgx.Tx, submissionID uuid.UUID, productIDs []uuid.UUID) error
	ReplaceProducts(ctx context.Context, tx pgx.Tx, submissionID uuid.UUID, productIDs []uuid.UUID) error
	Update(ctx context.Context, tx pgx.Tx, s *models.Submission) error
	DeleteUnplayedSpecial(ctx context.Context, tx pgx.Tx, id uuid.UUID) error
}

type CatalogStore interface {
	List(ctx context.Context, tx pgx.Tx) ([]models.Product, error)
}

type OnHoldPayStore interface {
	GetByID(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.OnHoldPay, error)
}

// InjectRequest describes a special submission slotted at GameNumber in the
// account's daily sequence.
type InjectRequest struct {
	AccountID    uuid.UUID `json:"account_id"`
	OnHoldPayID  uuid.UUID `json:"on_hold_pay_id"`
	GameNumber   int       `json:"game_number"`
	ProductCount int       `json:"product_count"`
}

func (r InjectRequest) validate() error {
	if r.ProductCount < 0 || r.ProductCount > models.MaxSubmissionProducts {
		return fmt.Errorf("%w: product_count must be between 0 and %d", ErrValidation, models.MaxSubmissionProducts)
	}
	if r.GameNumber < 1 {
		return fmt.Errorf("%w: game_number must be at least 1", ErrValidation)
	}
	return nil
}

// InjectionService lets staff place high-commission submissions into a
// user's rotation. It takes the same wallet lock as the engine.
type InjectionService struct {
	DB          TxBeginner
	Ledger      *ledger.Service
	Submissions InjectionStore
	Products    CatalogStore
	Packs       PackStore
	OnHoldPays  OnHoldPayStore
	Picker      Picker
	Logger      *slog.Logger
}

func (s *InjectionService) Inject(ctx context.Context, req InjectRequest) (*models.Submission, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	w, err := s.Ledger.Open(ctx, tx, req.AccountID)
	if err != nil {
		return nil, err
	}
	sub := &models.Submission{
		ID:             uuid.New(),
		AccountID:      req.AccountID,
		SpecialProduct: true,
		IsActive:       true,
	}
	products, err := s.randomise(ctx, tx, w, sub, req)
	if err != nil {
		return nil, err
	}
	if err := createWithRatingNo(ctx, tx, s.Submissions, s.Picker, sub); err != nil {
		return nil, err
	}
	if err := s.Submissions.AttachProducts(ctx, tx, sub.ID, productIDs(products)); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	sub.Products = products
	metrics.RecordAssigned("injection")
	if s.Logger != nil {
		s.Logger.Info("special submission injected", "account_id", req.AccountID, "submission_id", sub.ID, "game_number", req.GameNumber)
	}
	return sub, nil
}

// UpdateInjected re-draws the amount and products of an unplayed special
// submission. req.AccountID is ignored; the submission keeps its owner.
func (s *InjectionService) UpdateInjected(ctx context.Context, id uuid.UUID, req InjectRequest) (*models.Submission, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	sub, err := s.lockInjected(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	w, err := s.Ledger.Open(ctx, tx, sub.AccountID)
	if err != nil {
		return nil, err
	}
	products, err := s.randomise(ctx, tx, w, sub, req)
	if err != nil {
		return nil, err
	}
	if err := s.Submissions.Update(ctx, tx, sub); err != nil {
		return nil, err
	}
	if err := s.Submissions.ReplaceProducts(ctx, tx, sub.ID, productIDs(products)); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	sub.Products = products
	return sub, nil
}

func (s *InjectionService) DeleteInjected(ctx context.Context, id uuid.UUID) error {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	sub, err := s.lockInjected(ctx, tx, id)
	if err != nil {
		return err
	}
	if _, err := s.Ledger.Open(ctx, tx, sub.AccountID); err != nil {
		return err
	}
	if err := s.Submissions.DeleteUnplayedSpecial(ctx, tx, id); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *InjectionService) lockInjected(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Submission, error) {
	sub, err := s.Submissions.GetByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if !sub.SpecialProduct || sub.Played {
		return nil, ErrNotInjected
	}
	return sub, nil
}

// randomise sets amount, commission, game number and payout range on sub and
// returns the sampled products.
func (s *InjectionService) randomise(ctx context.Context, tx pgx.Tx, w *models.Wallet, sub *models.Submission, req InjectRequest) ([]models.Product, error) {
	pay, err := s.OnHoldPays.GetByID(ctx, tx, req.OnHoldPayID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%w: unknown payout range", ErrValidation)
	}
	if err != nil {
		return nil, err
	}
	if !pay.IsActive {
		return nil, fmt.Errorf("%w: payout range is inactive", ErrValidation)
	}
	var pack *models.Pack
	if w.PackID != nil {
		pack, err = s.Packs.GetByID(ctx, tx, *w.PackID)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
	}
	catalog, err := s.Products.List(ctx, tx)
	if err != nil {
		return nil, err
	}

	amount := s.Picker.AmountBetween(pay.MinAmount, pay.MaxAmount)
	gn := req.GameNumber
	payID := pay.ID
	sub.Amount = amount
	sub.Commission = packs.SpecialCommissionFor(pack, amount)
	sub.GameNumber = &gn
	sub.OnHoldPayID = &payID
	return s.Picker.PickN(catalog, req.ProductCount), nil
}

func productIDs(products []models.Product) []uuid.UUID {
	ids := make([]uuid.UUID, len(products))
	for i, p := range products {
		ids[i] = p.ID
	}
	return ids
}
