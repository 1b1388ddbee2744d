package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ratepulse/backend/internal/models"
)

type SubmissionRepo struct {
	pool *pgxpool.Pool
}

func NewSubmissionRepo(pool *pgxpool.Pool) *SubmissionRepo {
	return &SubmissionRepo{pool: pool}
}

const submissionColumns = `id, account_id, amount, commission, played, pending, special_product, game_number, is_active,
	rating_no, on_hold_pay_id, rating_score, comment, created_at, updated_at, played_at`

func scanSubmission(row pgx.Row) (*models.Submission, error) {
	var s models.Submission
	err := row.Scan(&s.ID, &s.AccountID, &s.Amount, &s.Commission, &s.Played, &s.Pending, &s.SpecialProduct, &s.GameNumber, &s.IsActive,
		&s.RatingNo, &s.OnHoldPayID, &s.RatingScore, &s.Comment, &s.CreatedAt, &s.UpdatedAt, &s.PlayedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// findOne returns the first matching submission with its products, or nil.
func (r *SubmissionRepo) findOne(ctx context.Context, tx pgx.Tx, where string, args ...any) (*models.Submission, error) {
	q := on(r.pool, tx)
	s, err := scanSubmission(q.QueryRow(ctx, `SELECT `+submissionColumns+` FROM submissions `+where+` LIMIT 1`, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := loadProducts(ctx, q, []*models.Submission{s}); err != nil {
		return nil, err
	}
	return s, nil
}

// FindPending returns the account's unplayed pending submission, or nil.
func (r *SubmissionRepo) FindPending(ctx context.Context, tx pgx.Tx, accountID uuid.UUID) (*models.Submission, error) {
	return r.findOne(ctx, tx, `
		WHERE account_id = $1 AND pending = TRUE AND played = FALSE AND is_active = TRUE
		ORDER BY created_at`, accountID)
}

// FindSpecialForSlot returns the unplayed special submission whose
// game_number equals slot, or nil.
func (r *SubmissionRepo) FindSpecialForSlot(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, slot int) (*models.Submission, error) {
	return r.findOne(ctx, tx, `
		WHERE account_id = $1 AND special_product = TRUE AND played = FALSE AND is_active = TRUE AND game_number = $2
		ORDER BY created_at`, accountID, slot)
}

// FindUnplayedOrdinary returns the oldest unplayed, non-special submission, or nil.
func (r *SubmissionRepo) FindUnplayedOrdinary(ctx context.Context, tx pgx.Tx, accountID uuid.UUID) (*models.Submission, error) {
	return r.findOne(ctx, tx, `
		WHERE account_id = $1 AND special_product = FALSE AND played = FALSE AND is_active = TRUE
		ORDER BY created_at`, accountID)
}

func (r *SubmissionRepo) GetByID(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Submission, error) {
	s, err := r.findOne(ctx, tx, `WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, ErrNotFound
	}
	return s, nil
}

// HasPending reports whether the account has an unplayed pending submission.
func (r *SubmissionRepo) HasPending(ctx context.Context, tx pgx.Tx, accountID uuid.UUID) (bool, error) {
	var ok bool
	err := on(r.pool, tx).QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM submissions
			WHERE account_id = $1 AND pending = TRUE AND played = FALSE AND is_active = TRUE
		)`, accountID).Scan(&ok)
	return ok, err
}

// CountPlayedBetween counts active submissions played in [start, end).
func (r *SubmissionRepo) CountPlayedBetween(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, start, end time.Time) (int, error) {
	var n int
	err := on(r.pool, tx).QueryRow(ctx, `
		SELECT count(*) FROM submissions
		WHERE account_id = $1 AND played = TRUE AND is_active = TRUE
		  AND played_at >= $2 AND played_at < $3
	`, accountID, start, end).Scan(&n)
	return n, err
}

// Create inserts s without products; use AttachProducts afterwards. A
// rating_no collision surfaces as ErrDuplicate.
func (r *SubmissionRepo) Create(ctx context.Context, tx pgx.Tx, s *models.Submission) error {
	err := tx.QueryRow(ctx, `
		INSERT INTO submissions (id, account_id, amount, commission, played, pending, special_product, game_number, is_active, rating_no, on_hold_pay_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at, updated_at
	`, s.ID, s.AccountID, s.Amount, s.Commission, s.Played, s.Pending, s.SpecialProduct, s.GameNumber, s.IsActive, s.RatingNo, s.OnHoldPayID).Scan(&s.CreatedAt, &s.UpdatedAt)
	return mapErr(err)
}

// AttachProducts links products to the submission. Attaching past
// models.MaxSubmissionProducts fails with ErrTooManyProducts and leaves the
// existing links untouched.
func (r *SubmissionRepo) AttachProducts(ctx context.Context, tx pgx.Tx, submissionID uuid.UUID, productIDs []uuid.UUID) error {
	var existing int
	if err := tx.QueryRow(ctx, `
		SELECT count(*) FROM submission_products WHERE submission_id = $1
	`, submissionID).Scan(&existing); err != nil {
		return err
	}
	if existing+len(productIDs) > models.MaxSubmissionProducts {
		return fmt.Errorf("attach %d to %d: %w", len(productIDs), existing, ErrTooManyProducts)
	}
	for _, pid := range productIDs {
		if _, err := tx.Exec(ctx, `
			INSERT INTO submission_products (submission_id, product_id) VALUES ($1, $2)
		`, submissionID, pid); err != nil {
			return mapErr(err)
		}
	}
	return nil
}

// ReplaceProducts drops every link and attaches productIDs.
func (r *SubmissionRepo) ReplaceProducts(ctx context.Context, tx pgx.Tx, submissionID uuid.UUID, productIDs []uuid.UUID) error {
	if _, err := tx.Exec(ctx, `DELETE FROM submission_products WHERE submission_id = $1`, submissionID); err != nil {
		return err
	}
	return r.AttachProducts(ctx, tx, submissionID, productIDs)
}

func (r *SubmissionRepo) Update(ctx context.Context, tx pgx.Tx, s *models.Submission) error {
	err := tx.QueryRow(ctx, `
		UPDATE submissions SET amount = $2, commission = $3, played = $4, pending = $5, game_number = $6, is_active = $7,
			on_hold_pay_id = $8, rating_score = $9, comment = $10, played_at = $11, updated_at = now()
		WHERE id = $1
		RETURNING updated_at
	`, s.ID, s.Amount, s.Commission, s.Played, s.Pending, s.GameNumber, s.IsActive, s.OnHoldPayID, s.RatingScore, s.Comment, s.PlayedAt).Scan(&s.UpdatedAt)
	return mapErr(err)
}

// DeleteUnplayedSpecial removes an injected submission that has not been played.
func (r *SubmissionRepo) DeleteUnplayedSpecial(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	tag, err := tx.Exec(ctx, `
		DELETE FROM submissions WHERE id = $1 AND special_product = TRUE AND played = FALSE
	`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListRecord returns the account's played or pending active submissions, newest first.
func (r *SubmissionRepo) ListRecord(ctx context.Context, accountID uuid.UUID) ([]*models.Submission, error) {
	return r.list(ctx, `
		WHERE account_id = $1 AND is_active = TRUE AND (played = TRUE OR pending = TRUE)
		ORDER BY created_at DESC`, accountID)
}

// ListSpecialByAccount returns every injected submission for the account.
func (r *SubmissionRepo) ListSpecialByAccount(ctx context.Context, accountID uuid.UUID) ([]*models.Submission, error) {
	return r.list(ctx, `
		WHERE account_id = $1 AND special_product = TRUE
		ORDER BY game_number NULLS LAST, created_at`, accountID)
}

func (r *SubmissionRepo) list(ctx context.Context, where string, args ...any) ([]*models.Submission, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+submissionColumns+` FROM submissions `+where, args...)
	if err != nil {
		return nil, err
	}
	list := []*models.Submission{}
	for rows.Next() {
		s, err := scanSubmission(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		list = append(list, s)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := loadProducts(ctx, r.pool, list); err != nil {
		return nil, err
	}
	return list, nil
}

// loadProducts fills Products for each submission in one query.
func loadProducts(ctx context.Context, q querier, subs []*models.Submission) error {
	if len(subs) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, len(subs))
	byID := make(map[uuid.UUID]*models.Submission, len(subs))
	for i, s := range subs {
		ids[i] = s.ID
		byID[s.ID] = s
		s.Products = []models.Product{}
	}
	rows, err := q.Query(ctx, `
		SELECT sp.submission_id, `+productColumnsP+`
		FROM submission_products sp
		JOIN products p ON p.id = sp.product_id
		WHERE sp.submission_id = ANY($1)
		ORDER BY p.name
	`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var sid uuid.UUID
		var p models.Product
		if err := rows.Scan(&sid, &p.ID, &p.Name, &p.Price, &p.Description, &p.RatingNo, &p.CreatedAt); err != nil {
			return err
		}
		byID[sid].Products = append(byID[sid].Products, p)
	}
	return rows.Err()
}
