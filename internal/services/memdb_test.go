package services

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/ratepulse/backend/internal/ledger"
	"github.com/ratepulse/backend/internal/models"
	"github.com/ratepulse/backend/internal/repository"
)

// ---------------------------------------------------------------------------
// In-memory database shared by the engine, injection and withdrawal tests.
// A transaction holds db.txLock until it ends, standing in for the Postgres
// wallet row lock across all accounts. Rollback restores a snapshot.
// ---------------------------------------------------------------------------

type memState struct {
	accounts    map[uuid.UUID]models.Account
	wallets     map[uuid.UUID]models.Wallet
	subs        map[uuid.UUID]models.Submission
	order       []uuid.UUID
	links       map[uuid.UUID][]uuid.UUID
	entries     []models.WalletEntry
	withdrawals []models.Withdrawal
}

func (s *memState) clone() *memState {
	cp := &memState{
		accounts:    make(map[uuid.UUID]models.Account, len(s.accounts)),
		wallets:     make(map[uuid.UUID]models.Wallet, len(s.wallets)),
		subs:        make(map[uuid.UUID]models.Submission, len(s.subs)),
		order:       append([]uuid.UUID(nil), s.order...),
		links:       make(map[uuid.UUID][]uuid.UUID, len(s.links)),
		entries:     append([]models.WalletEntry(nil), s.entries...),
		withdrawals: append([]models.Withdrawal(nil), s.withdrawals...),
	}
	for k, v := range s.accounts {
		cp.accounts[k] = v
	}
	for k, v := range s.wallets {
		cp.wallets[k] = v
	}
	for k, v := range s.subs {
		cp.subs[k] = v
	}
	for k, v := range s.links {
		cp.links[k] = append([]uuid.UUID(nil), v...)
	}
	return cp
}

type memDB struct {
	txLock sync.Mutex
	mu     sync.Mutex
	state  *memState

	now      time.Time
	products []models.Product
	packs    []models.Pack
	pays     []models.OnHoldPay
	begins   int
	commits  int
	// commitErr makes Commit discard the transaction and fail.
	commitErr error
}

func newMemDB(now time.Time) *memDB {
	return &memDB{
		now: now,
		state: &memState{
			accounts: map[uuid.UUID]models.Account{},
			wallets:  map[uuid.UUID]models.Wallet{},
			subs:     map[uuid.UUID]models.Submission{},
			links:    map[uuid.UUID][]uuid.UUID{},
		},
	}
}

func (db *memDB) Begin(context.Context) (pgx.Tx, error) {
	db.txLock.Lock()
	db.mu.Lock()
	defer db.mu.Unlock()
	db.begins++
	return &memTx{db: db, snapshot: db.state.clone()}, nil
}

// --- memTx satisfies pgx.Tx; only Commit/Rollback carry behaviour. ---

type memTx struct {
	db       *memDB
	snapshot *memState
	done     bool
}

func (t *memTx) Commit(context.Context) error {
	if t.done {
		return pgx.ErrTxClosed
	}
	t.done = true
	t.db.mu.Lock()
	err := t.db.commitErr
	if err != nil {
		t.db.state = t.snapshot
	} else {
		t.db.commits++
	}
	t.db.mu.Unlock()
	t.db.txLock.Unlock()
	return err
}

func (t *memTx) Rollback(context.Context) error {
	if t.done {
		return pgx.ErrTxClosed
	}
	t.done = true
	t.db.mu.Lock()
	t.db.state = t.snapshot
	t.db.mu.Unlock()
	t.db.txLock.Unlock()
	return nil
}

func (t *memTx) Begin(context.Context) (pgx.Tx, error) {
	return nil, fmt.Errorf("nested tx not supported")
}
func (t *memTx) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag(""), nil
}
func (t *memTx) Query(context.Context, string, ...any) (pgx.Rows, error) { return nil, nil }
func (t *memTx) QueryRow(context.Context, string, ...any) pgx.Row        { return nil }
func (t *memTx) CopyFrom(context.Context, pgx.Identifier, []string, pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (t *memTx) SendBatch(context.Context, *pgx.Batch) pgx.BatchResults { return nil }
func (t *memTx) LargeObjects() pgx.LargeObjects                         { return pgx.LargeObjects{} }
func (t *memTx) Prepare(context.Context, string, string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (t *memTx) Conn() *pgx.Conn { return nil }

// ---------------------------------------------------------------------------
// Seeding and inspection helpers
// ---------------------------------------------------------------------------

func (db *memDB) addAccount(a models.Account) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.state.accounts[a.ID] = a
}

func (db *memDB) setWallet(w models.Wallet) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.state.wallets[w.AccountID] = w
}

func (db *memDB) wallet(accountID uuid.UUID) models.Wallet {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.state.wallets[accountID]
}

func (db *memDB) addSubmission(s models.Submission, productIDs ...uuid.UUID) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = db.now
	}
	s.Products = nil
	db.state.subs[s.ID] = s
	db.state.order = append(db.state.order, s.ID)
	db.state.links[s.ID] = productIDs
}

func (db *memDB) submission(id uuid.UUID) (models.Submission, bool) {
	db.mu.Lock()
	defer db.mu.Unlock()
	s, ok := db.state.subs[id]
	return s, ok
}

func (db *memDB) submissionCount() int {
	db.mu.Lock()
	defer db.mu.Unlock()
	return len(db.state.subs)
}

func (db *memDB) entryCount() int {
	db.mu.Lock()
	defer db.mu.Unlock()
	return len(db.state.entries)
}

func (db *memDB) linked(id uuid.UUID) []uuid.UUID {
	db.mu.Lock()
	defer db.mu.Unlock()
	return append([]uuid.UUID(nil), db.state.links[id]...)
}

// withProducts returns a copy of s with Products filled. Caller holds db.mu.
func (db *memDB) withProducts(s models.Submission) *models.Submission {
	s.Products = []models.Product{}
	for _, pid := range db.state.links[s.ID] {
		for _, p := range db.products {
			if p.ID == pid {
				s.Products = append(s.Products, p)
			}
		}
	}
	return &s
}

// ---------------------------------------------------------------------------
// Store adapters
// ---------------------------------------------------------------------------

type memAccounts struct{ db *memDB }

func (m memAccounts) GetByID(_ context.Context, _ pgx.Tx, id uuid.UUID) (*models.Account, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	a, ok := m.db.state.accounts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &a, nil
}

type memWallets struct{ db *memDB }

func (m memWallets) GetForUpdate(_ context.Context, _ pgx.Tx, accountID uuid.UUID) (*models.Wallet, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	w, ok := m.db.state.wallets[accountID]
	if !ok {
		w = models.Wallet{ID: uuid.New(), AccountID: accountID}
		m.db.state.wallets[accountID] = w
	}
	return &w, nil
}

func (m memWallets) Update(_ context.Context, _ pgx.Tx, w *models.Wallet) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	m.db.state.wallets[w.AccountID] = *w
	return nil
}

type memEntries struct{ db *memDB }

func (m memEntries) CreateTx(_ context.Context, _ pgx.Tx, e *models.WalletEntry) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	e.CreatedAt = m.db.now
	m.db.state.entries = append(m.db.state.entries, *e)
	return nil
}

type memPacks struct{ db *memDB }

func (m memPacks) ListActive(context.Context, pgx.Tx) ([]models.Pack, error) {
	var out []models.Pack
	for _, p := range m.db.packs {
		if p.IsActive {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m memPacks) GetByID(_ context.Context, _ pgx.Tx, id uuid.UUID) (*models.Pack, error) {
	for _, p := range m.db.packs {
		if p.ID == id {
			cp := p
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

type memProducts struct{ db *memDB }

func (m memProducts) ListUnusedBetween(_ context.Context, _ pgx.Tx, accountID uuid.UUID, start, end time.Time) ([]models.Product, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	used := map[uuid.UUID]bool{}
	for id, s := range m.db.state.subs {
		if s.AccountID != accountID || s.CreatedAt.Before(start) || !s.CreatedAt.Before(end) {
			continue
		}
		for _, pid := range m.db.state.links[id] {
			used[pid] = true
		}
	}
	out := []models.Product{}
	for _, p := range m.db.products {
		if !used[p.ID] {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m memProducts) List(context.Context, pgx.Tx) ([]models.Product, error) {
	return append([]models.Product(nil), m.db.products...), nil
}

type memOnHoldPays struct{ db *memDB }

func (m memOnHoldPays) GetByID(_ context.Context, _ pgx.Tx, id uuid.UUID) (*models.OnHoldPay, error) {
	for _, p := range m.db.pays {
		if p.ID == id {
			cp := p
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

type memSubs struct{ db *memDB }

func (m memSubs) first(match func(models.Submission) bool) *models.Submission {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	for _, id := range m.db.state.order {
		s, ok := m.db.state.subs[id]
		if ok && match(s) {
			return m.db.withProducts(s)
		}
	}
	return nil
}

func (m memSubs) FindPending(_ context.Context, _ pgx.Tx, accountID uuid.UUID) (*models.Submission, error) {
	return m.first(func(s models.Submission) bool {
		return s.AccountID == accountID && s.Pending && !s.Played && s.IsActive
	}), nil
}

func (m memSubs) FindSpecialForSlot(_ context.Context, _ pgx.Tx, accountID uuid.UUID, slot int) (*models.Submission, error) {
	return m.first(func(s models.Submission) bool {
		return s.AccountID == accountID && s.SpecialProduct && !s.Played && s.IsActive && s.GameNumber != nil && *s.GameNumber == slot
	}), nil
}

func (m memSubs) FindUnplayedOrdinary(_ context.Context, _ pgx.Tx, accountID uuid.UUID) (*models.Submission, error) {
	return m.first(func(s models.Submission) bool {
		return s.AccountID == accountID && !s.SpecialProduct && !s.Played && s.IsActive
	}), nil
}

func (m memSubs) GetByID(_ context.Context, _ pgx.Tx, id uuid.UUID) (*models.Submission, error) {
	s := m.first(func(s models.Submission) bool { return s.ID == id })
	if s == nil {
		return nil, repository.ErrNotFound
	}
	return s, nil
}

func (m memSubs) CountPlayedBetween(_ context.Context, _ pgx.Tx, accountID uuid.UUID, start, end time.Time) (int, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	n := 0
	for _, s := range m.db.state.subs {
		if s.AccountID == accountID && s.Played && s.IsActive && s.PlayedAt != nil &&
			!s.PlayedAt.Before(start) && s.PlayedAt.Before(end) {
			n++
		}
	}
	return n, nil
}

func (m memSubs) Create(_ context.Context, _ pgx.Tx, s *models.Submission) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	for _, other := range m.db.state.subs {
		if other.RatingNo == s.RatingNo {
			return repository.ErrDuplicate
		}
	}
	s.CreatedAt = m.db.now
	s.UpdatedAt = m.db.now
	cp := *s
	cp.Products = nil
	m.db.state.subs[s.ID] = cp
	m.db.state.order = append(m.db.state.order, s.ID)
	return nil
}

func (m memSubs) AttachProducts(_ context.Context, _ pgx.Tx, id uuid.UUID, productIDs []uuid.UUID) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if len(m.db.state.links[id])+len(productIDs) > models.MaxSubmissionProducts {
		return repository.ErrTooManyProducts
	}
	m.db.state.links[id] = append(m.db.state.links[id], productIDs...)
	return nil
}

func (m memSubs) ReplaceProducts(ctx context.Context, tx pgx.Tx, id uuid.UUID, productIDs []uuid.UUID) error {
	m.db.mu.Lock()
	delete(m.db.state.links, id)
	m.db.mu.Unlock()
	return m.AttachProducts(ctx, tx, id, productIDs)
}

func (m memSubs) Update(_ context.Context, _ pgx.Tx, s *models.Submission) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if _, ok := m.db.state.subs[s.ID]; !ok {
		return repository.ErrNotFound
	}
	cp := *s
	cp.Products = nil
	m.db.state.subs[s.ID] = cp
	return nil
}

func (m memSubs) DeleteUnplayedSpecial(_ context.Context, _ pgx.Tx, id uuid.UUID) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	s, ok := m.db.state.subs[id]
	if !ok || !s.SpecialProduct || s.Played {
		return repository.ErrNotFound
	}
	delete(m.db.state.subs, id)
	delete(m.db.state.links, id)
	return nil
}

func (m memSubs) HasPending(ctx context.Context, tx pgx.Tx, accountID uuid.UUID) (bool, error) {
	s, err := m.FindPending(ctx, tx, accountID)
	return s != nil, err
}

func (m memSubs) ListRecord(_ context.Context, accountID uuid.UUID) ([]*models.Submission, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	out := []*models.Submission{}
	for i := len(m.db.state.order) - 1; i >= 0; i-- {
		s, ok := m.db.state.subs[m.db.state.order[i]]
		if ok && s.AccountID == accountID && s.IsActive && (s.Played || s.Pending) {
			out = append(out, m.db.withProducts(s))
		}
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Deterministic collaborators
// ---------------------------------------------------------------------------

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

// seqPicker always takes the first candidates and issues sequential rating
// numbers. collide makes the first Digits call repeat an existing value.
type seqPicker struct {
	mu      sync.Mutex
	intn    int
	next    int
	collide string
}

func (p *seqPicker) Intn(n int) int {
	if p.intn >= n {
		return n - 1
	}
	return p.intn
}

func (p *seqPicker) PickN(candidates []models.Product, n int) []models.Product {
	if n > len(candidates) {
		n = len(candidates)
	}
	return append([]models.Product(nil), candidates[:n]...)
}

func (p *seqPicker) AmountBetween(min, _ decimal.Decimal) decimal.Decimal { return min }

func (p *seqPicker) Digits(n int) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.collide != "" {
		c := p.collide
		p.collide = ""
		return c
	}
	p.next++
	s := strconv.Itoa(p.next)
	for len(s) < n {
		s = "0" + s
	}
	return s
}

type recNotifier struct {
	mu    sync.Mutex
	notes []string
}

func (n *recNotifier) Notify(_ context.Context, _ uuid.UUID, title, _ string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notes = append(n.notes, title)
}

func (n *recNotifier) titles() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := append([]string(nil), n.notes...)
	sort.Strings(out)
	return out
}

func newLedger(db *memDB) *ledger.Service {
	return ledger.NewService(memWallets{db}, memEntries{db}, memPacks{db}, memSubs{db})
}

type memWithdrawals struct{ db *memDB }

func (m memWithdrawals) CountBetween(_ context.Context, _ pgx.Tx, accountID uuid.UUID, start, end time.Time) (int, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	n := 0
	for _, w := range m.db.state.withdrawals {
		if w.AccountID == accountID && !w.CreatedAt.Before(start) && w.CreatedAt.Before(end) {
			n++
		}
	}
	return n, nil
}

func (m memWithdrawals) Create(_ context.Context, _ pgx.Tx, w *models.Withdrawal) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	w.CreatedAt = m.db.now
	w.UpdatedAt = m.db.now
	m.db.state.withdrawals = append(m.db.state.withdrawals, *w)
	return nil
}

func (m memWithdrawals) GetByIDForUpdate(_ context.Context, _ pgx.Tx, id uuid.UUID) (*models.Withdrawal, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	for _, w := range m.db.state.withdrawals {
		if w.ID == id {
			return &w, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m memWithdrawals) UpdateStatus(_ context.Context, _ pgx.Tx, w *models.Withdrawal) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	for i := range m.db.state.withdrawals {
		if m.db.state.withdrawals[i].ID == w.ID {
			m.db.state.withdrawals[i].Status = w.Status
			return nil
		}
	}
	return repository.ErrNotFound
}
