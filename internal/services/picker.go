package services

import (
	"math/rand/v2"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/ratepulse/backend/internal/models"
)

// Picker is the random source for submission assignment and injection.
// Tests swap in a deterministic implementation.
type Picker interface {
	// Intn returns a value in [0, n).
	Intn(n int) int
	// PickN returns n distinct products sampled without replacement.
	PickN(candidates []models.Product, n int) []models.Product
	// AmountBetween returns a cent-precision amount uniform in [min, max].
	AmountBetween(min, max decimal.Decimal) decimal.Decimal
	// Digits returns a string of n random decimal digits.
	Digits(n int) string
}

// RandPicker is a seedable Picker safe for concurrent use.
type RandPicker struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewRandPicker(seed uint64) *RandPicker {
	return &RandPicker{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (p *RandPicker) Intn(n int) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rng.IntN(n)
}

func (p *RandPicker) PickN(candidates []models.Product, n int) []models.Product {
	if n > len(candidates) {
		n = len(candidates)
	}
	if n <= 0 {
		return []models.Product{}
	}
	pool := make([]models.Product, len(candidates))
	copy(pool, candidates)
	p.mu.Lock()
	p.rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	p.mu.Unlock()
	return pool[:n]
}

func (p *RandPicker) AmountBetween(min, max decimal.Decimal) decimal.Decimal {
	lo := min.Shift(2).Ceil().IntPart()
	hi := max.Shift(2).Floor().IntPart()
	if hi <= lo {
		return decimal.New(lo, -2)
	}
	p.mu.Lock()
	c := lo + p.rng.Int64N(hi-lo+1)
	p.mu.Unlock()
	return decimal.New(c, -2)
}

func (p *RandPicker) Digits(n int) string {
	var b strings.Builder
	b.Grow(n)
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := 0; i < n; i++ {
		b.WriteByte(byte('0' + p.rng.IntN(10)))
	}
	return b.String()
}
