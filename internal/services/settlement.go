package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/ratepulse/backend/internal/clock"
	"github.com/ratepulse/backend/internal/ledger"
	"github.com/ratepulse/backend/internal/metrics"
	"github.com/ratepulse/backend/internal/models"
	"github.com/ratepulse/backend/internal/packs"
	"github.com/ratepulse/backend/internal/repository"
)

// User-facing outcomes of the settlement engine.
const (
	MsgPendingTransaction = "You have a pending transaction, please clear it to proceed."
	MsgMinimumBalance     = "You need a minimum of %s USD balance to play a submission."
	MsgDailyQuota         = "You have reached the maximum number of submissions you can play for today."
	MsgNoPack             = "No active pack is available for your account."
	MsgInsufficient       = "Insufficient balance. Your current balance is %s USD."
	MsgNoSubmissions      = "No new submissions available for you."
	MsgPlayed             = "Submission played successfully!"
	MsgNoPending          = "You have no pending submission."
)

const (
	ratingNoDigits   = 11
	ratingNoAttempts = 5
)

// TxBeginner is satisfied by *pgxpool.Pool.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

type SubmissionStore interface {
	FindPending(ctx context.Context, tx pgx.Tx, accountID uuid.UUID) (*models.Submission, error)
	FindSpecialForSlot(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, slot int) (*models.Submission, error)
	FindUnplayedOrdinary(ctx context.Context, tx pgx.Tx, accountID uuid.UUID) (*models.Submission, error)
	CountPlayedBetween(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, start, end time.Time) (int, error)
	Create(ctx context.Context, tx pgx.Tx, s *models.Submission) error
	AttachProducts(ctx context.Context, tx pgx.Tx, submissionID uuid.UUID, productIDs []uuid.UUID) error
	Update(ctx context.Context, tx pgx.Tx, s *models.Submission) error
	ListRecord(ctx context.Context, accountID uuid.UUID) ([]*models.Submission, error)
}

type ProductStore interface {
	ListUnusedBetween(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, start, end time.Time) ([]models.Product, error)
}

type PackStore interface {
	GetByID(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Pack, error)
}

type AccountStore interface {
	GetByID(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Account, error)
}

// Notifier delivers user-facing events. Delivery failures never affect settlement.
type Notifier interface {
	Notify(ctx context.Context, accountID uuid.UUID, title, message string)
}

// PlayResult is the outcome of PlayGame and PlayPendingGame. Next is the
// submission the caller should show after the attempt, nil if none.
type PlayResult struct {
	OK      bool               `json:"success"`
	Message string             `json:"message"`
	Next    *models.Submission `json:"submission"`
}

// PlayService settles submissions for one account at a time. Every entry
// point runs in a single transaction that first locks the account's wallet
// row, so concurrent plays for the same account serialise.
type PlayService struct {
	DB          TxBeginner
	Ledger      *ledger.Service
	Submissions SubmissionStore
	Products    ProductStore
	Packs       PackStore
	Accounts    AccountStore
	Picker      Picker
	Clock       clock.Clock
	Notifier    Notifier
	Settings    models.Settings
	Logger      *slog.Logger
}

// WithSettings returns a copy of s bound to the given settings value.
func (s *PlayService) WithSettings(st models.Settings) *PlayService {
	cp := *s
	cp.Settings = st
	return &cp
}

// session is the locked per-account state for one transaction.
type session struct {
	tx      pgx.Tx
	account *models.Account
	wallet  *models.Wallet
	pack    *models.Pack
	notes   []note
	// committed runs after a successful commit.
	committed []func()
}

type note struct{ title, message string }

func (s *PlayService) open(ctx context.Context, tx pgx.Tx, accountID uuid.UUID) (*session, error) {
	acc, err := s.Accounts.GetByID(ctx, tx, accountID)
	if err != nil {
		return nil, fmt.Errorf("load account: %w", err)
	}
	w, err := s.Ledger.Open(ctx, tx, accountID)
	if err != nil {
		return nil, err
	}
	sess := &session{tx: tx, account: acc, wallet: w}
	if err := s.refreshPack(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

func (s *PlayService) refreshPack(ctx context.Context, sess *session) error {
	sess.pack = nil
	if sess.wallet.PackID == nil {
		return nil
	}
	p, err := s.Packs.GetByID(ctx, sess.tx, *sess.wallet.PackID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load pack: %w", err)
	}
	sess.pack = p
	return nil
}

// withSession runs fn inside a transaction holding the account's wallet lock.
// The transaction commits only when fn asks for it; queued metrics and
// notifications are emitted after commit.
func (s *PlayService) withSession(ctx context.Context, accountID uuid.UUID, fn func(*session) (commit bool, err error)) error {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	sess, err := s.open(ctx, tx, accountID)
	if err != nil {
		return err
	}
	commit, err := fn(sess)
	if err != nil || !commit {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}
	for _, f := range sess.committed {
		f()
	}
	for _, n := range sess.notes {
		s.Notifier.Notify(ctx, accountID, n.title, n.message)
	}
	return nil
}

// CountGamesPlayedToday counts active submissions played since local midnight
// in the settings timezone.
func (s *PlayService) CountGamesPlayedToday(ctx context.Context, tx pgx.Tx, accountID uuid.UUID) (int, error) {
	start, end := s.Settings.DayBounds(s.Clock.Now())
	return s.Submissions.CountPlayedBetween(ctx, tx, accountID, start, end)
}

// GetActiveGame returns the account's current submission, assigning a new one
// when nothing is queued. A nil submission comes with MsgNoSubmissions.
func (s *PlayService) GetActiveGame(ctx context.Context, accountID uuid.UUID) (*models.Submission, string, error) {
	var (
		sub *models.Submission
		msg string
	)
	err := s.withSession(ctx, accountID, func(sess *session) (bool, error) {
		var err error
		sub, msg, err = s.activeGame(ctx, sess)
		return err == nil, err
	})
	if err != nil {
		return nil, "", err
	}
	return sub, msg, nil
}

func (s *PlayService) activeGame(ctx context.Context, sess *session) (*models.Submission, string, error) {
	id := sess.account.ID
	sub, err := s.Submissions.FindPending(ctx, sess.tx, id)
	if err != nil || sub != nil {
		return sub, "", err
	}
	played, err := s.CountGamesPlayedToday(ctx, sess.tx, id)
	if err != nil {
		return nil, "", err
	}
	sub, err = s.Submissions.FindSpecialForSlot(ctx, sess.tx, id, played+1)
	if err != nil || sub != nil {
		return sub, "", err
	}
	sub, err = s.Submissions.FindUnplayedOrdinary(ctx, sess.tx, id)
	if err != nil || sub != nil {
		return sub, "", err
	}
	return s.assignNextGame(ctx, sess)
}

// AssignNextGame creates a submission for the account from products it has
// not been given today.
func (s *PlayService) AssignNextGame(ctx context.Context, accountID uuid.UUID) (*models.Submission, string, error) {
	var (
		sub *models.Submission
		msg string
	)
	err := s.withSession(ctx, accountID, func(sess *session) (bool, error) {
		var err error
		sub, msg, err = s.assignNextGame(ctx, sess)
		return err == nil, err
	})
	return sub, msg, err
}

func (s *PlayService) assignNextGame(ctx context.Context, sess *session) (*models.Submission, string, error) {
	start, end := s.Settings.DayBounds(s.Clock.Now())
	available, err := s.Products.ListUnusedBetween(ctx, sess.tx, sess.account.ID, start, end)
	if err != nil {
		return nil, "", fmt.Errorf("list products: %w", err)
	}
	if len(available) == 0 {
		return nil, MsgNoSubmissions, nil
	}
	picked := s.Picker.PickN(available, s.Picker.Intn(2)+1)

	amount := decimal.Zero
	ids := make([]uuid.UUID, len(picked))
	for i, p := range picked {
		amount = amount.Add(p.Price)
		ids[i] = p.ID
	}
	sub := &models.Submission{
		ID:         uuid.New(),
		AccountID:  sess.account.ID,
		Amount:     amount,
		Commission: packs.CommissionFor(sess.pack, amount),
		IsActive:   true,
	}
	if err := createWithRatingNo(ctx, sess.tx, s.Submissions, s.Picker, sub); err != nil {
		return nil, "", err
	}
	if err := s.Submissions.AttachProducts(ctx, sess.tx, sub.ID, ids); err != nil {
		return nil, "", err
	}
	sub.Products = picked
	sess.committed = append(sess.committed, func() { metrics.RecordAssigned("engine") })
	return sub, "", nil
}

type submissionCreator interface {
	Create(ctx context.Context, tx pgx.Tx, s *models.Submission) error
}

// createWithRatingNo inserts sub, drawing a fresh rating number on collision.
func createWithRatingNo(ctx context.Context, tx pgx.Tx, store submissionCreator, picker Picker, sub *models.Submission) error {
	for attempt := 0; attempt < ratingNoAttempts; attempt++ {
		sub.RatingNo = picker.Digits(ratingNoDigits)
		err := store.Create(ctx, tx, sub)
		if err == nil {
			return nil
		}
		if !errors.Is(err, repository.ErrDuplicate) {
			return fmt.Errorf("create submission: %w", err)
		}
	}
	return fmt.Errorf("create submission: no unique rating number after %d attempts", ratingNoAttempts)
}

// CheckCanUserPlay gates a fresh submission. The returned reason labels the
// failure for metrics.
func (s *PlayService) CheckCanUserPlay(acc *models.Account, w *models.Wallet, pack *models.Pack, playedToday int) (ok bool, msg, reason string) {
	if !w.OnHold.IsZero() {
		return false, MsgPendingTransaction, "on_hold"
	}
	min := s.Settings.MinimumBalanceForSubmissions
	if !acc.MinimumBalanceWaived && w.Balance.LessThan(min) {
		return false, fmt.Sprintf(MsgMinimumBalance, min.StringFixed(2)), "minimum_balance"
	}
	return checkQuota(pack, playedToday)
}

// CheckCanUserPlayPendingGame gates resuming a pending submission. Only the
// daily quota applies: the resume itself is what clears on_hold.
func (s *PlayService) CheckCanUserPlayPendingGame(pack *models.Pack, playedToday int) (ok bool, msg, reason string) {
	return checkQuota(pack, playedToday)
}

func checkQuota(pack *models.Pack, playedToday int) (bool, string, string) {
	if pack == nil {
		return false, MsgNoPack, "no_pack"
	}
	if playedToday >= pack.DailyMissions {
		return false, MsgDailyQuota, "quota"
	}
	return true, "", ""
}

// MarkGameAsPlayed moves funds for sub. A fresh submission the wallet cannot
// cover is flipped to pending and its shortfall quarantined in on_hold; that
// outcome is reported as ok=false and must still be committed.
func (s *PlayService) MarkGameAsPlayed(ctx context.Context, tx pgx.Tx, w *models.Wallet, sub *models.Submission, score *int, comment *string) (bool, string, error) {
	sub.RatingScore = score
	sub.Comment = comment
	gross := sub.Amount.Add(sub.Commission)

	if sub.Pending {
		s.markPlayed(sub)
		if err := s.Submissions.Update(ctx, tx, sub); err != nil {
			return false, "", fmt.Errorf("update submission: %w", err)
		}
		if err := s.Ledger.Credit(ctx, tx, w, gross, &sub.ID); err != nil {
			return false, "", err
		}
		if err := s.Ledger.CreditCommission(ctx, tx, w, sub.Commission, &sub.ID); err != nil {
			return false, "", err
		}
		return true, MsgPlayed, nil
	}

	if w.Balance.LessThan(sub.Amount) {
		balance := w.Balance
		sub.Pending = true
		if err := s.Submissions.Update(ctx, tx, sub); err != nil {
			return false, "", fmt.Errorf("update submission: %w", err)
		}
		if err := s.Ledger.Debit(ctx, tx, w, sub.Amount, &sub.ID); err != nil {
			return false, "", err
		}
		return false, fmt.Sprintf(MsgInsufficient, balance.StringFixed(2)), nil
	}

	if err := s.Ledger.Debit(ctx, tx, w, sub.Amount, &sub.ID); err != nil {
		return false, "", err
	}
	if err := s.Ledger.Credit(ctx, tx, w, gross, &sub.ID); err != nil {
		return false, "", err
	}
	if err := s.Ledger.CreditCommission(ctx, tx, w, sub.Commission, &sub.ID); err != nil {
		return false, "", err
	}
	s.markPlayed(sub)
	if err := s.Submissions.Update(ctx, tx, sub); err != nil {
		return false, "", fmt.Errorf("update submission: %w", err)
	}
	return true, MsgPlayed, nil
}

func (s *PlayService) markPlayed(sub *models.Submission) {
	now := s.Clock.Now()
	sub.Played = true
	sub.Pending = false
	sub.PlayedAt = &now
}

// PlayGame settles the account's active submission and returns the next one.
func (s *PlayService) PlayGame(ctx context.Context, accountID uuid.UUID, score *int, comment *string) (*PlayResult, error) {
	return s.play(ctx, accountID, score, comment, false)
}

// PlayPendingGame is PlayGame restricted to a pending submission.
func (s *PlayService) PlayPendingGame(ctx context.Context, accountID uuid.UUID, score *int, comment *string) (*PlayResult, error) {
	return s.play(ctx, accountID, score, comment, true)
}

func (s *PlayService) play(ctx context.Context, accountID uuid.UUID, score *int, comment *string, pendingOnly bool) (*PlayResult, error) {
	res := &PlayResult{}
	err := s.withSession(ctx, accountID, func(sess *session) (bool, error) {
		sub, msg, err := s.activeGame(ctx, sess)
		if err != nil {
			return false, err
		}
		if sub == nil {
			res.Message = msg
			return false, nil
		}
		if pendingOnly && !sub.Pending {
			res.Message = MsgNoPending
			return false, nil
		}

		played, err := s.CountGamesPlayedToday(ctx, sess.tx, accountID)
		if err != nil {
			return false, err
		}
		var ok bool
		var reason string
		if sub.Pending {
			ok, msg, reason = s.CheckCanUserPlayPendingGame(sess.pack, played)
		} else {
			ok, msg, reason = s.CheckCanUserPlay(sess.account, sess.wallet, sess.pack, played)
		}
		if !ok {
			// Roll back so a submission assigned while resolving is discarded.
			metrics.RecordPlayDenied(reason)
			res.Message = msg
			return false, nil
		}

		resumed := sub.Pending
		res.OK, res.Message, err = s.MarkGameAsPlayed(ctx, sess.tx, sess.wallet, sub, score, comment)
		if err != nil {
			return false, err
		}
		if res.OK {
			sess.committed = append(sess.committed, func() { metrics.RecordPlayed(resumed) })
			sess.notes = append(sess.notes, note{"Submission played", fmt.Sprintf("You earned %s USD commission.", sub.Commission.StringFixed(2))})
		} else {
			sess.committed = append(sess.committed, metrics.RecordPending)
			sess.notes = append(sess.notes, note{"Pending submission", res.Message})
		}
		if err := s.refreshPack(ctx, sess); err != nil {
			return false, err
		}
		res.Next, _, err = s.activeGame(ctx, sess)
		return err == nil, err
	})
	if err != nil {
		if s.Logger != nil {
			s.Logger.Error("play submission", "account_id", accountID, "error", err)
		}
		return nil, err
	}
	return res, nil
}

// GameRecord lists played and pending submissions, newest first.
func (s *PlayService) GameRecord(ctx context.Context, accountID uuid.UUID) ([]*models.Submission, error) {
	return s.Submissions.ListRecord(ctx, accountID)
}
