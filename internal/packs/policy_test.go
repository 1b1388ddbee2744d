package packs

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ratepulse/backend/internal/models"
)

func pack(threshold int64, missions int, active bool) models.Pack {
	return models.Pack{
		ID:            uuid.New(),
		UsdValue:      decimal.NewFromInt(threshold),
		DailyMissions: missions,
		IsActive:      active,
	}
}

func TestBestFit_HigherThresholdWins(t *testing.T) {
	low := pack(0, 1, true)
	high := pack(100, 3, true)
	catalog := []models.Pack{low, high}

	got := BestFit(catalog, decimal.NewFromInt(150))
	if got == nil || got.ID != high.ID {
		t.Fatalf("balance 150: got %+v, want threshold=100 pack", got)
	}
	if got.DailyMissions != 3 {
		t.Errorf("quota: got %d, want 3", got.DailyMissions)
	}
}

func TestBestFit_ExactThresholdQualifies(t *testing.T) {
	a := pack(50, 1, true)
	b := pack(100, 2, true)
	got := BestFit([]models.Pack{b, a}, decimal.NewFromInt(100))
	if got == nil || got.ID != b.ID {
		t.Fatalf("balance 100: got %+v, want threshold=100 pack", got)
	}
}

func TestBestFit_FallsBackToLowestActive(t *testing.T) {
	a := pack(200, 5, true)
	b := pack(50, 1, true)
	c := pack(10, 9, false)
	got := BestFit([]models.Pack{a, b, c}, decimal.NewFromInt(5))
	if got == nil || got.ID != b.ID {
		t.Fatalf("balance 5: got %+v, want lowest active (50)", got)
	}
}

func TestBestFit_SkipsInactive(t *testing.T) {
	a := pack(0, 1, true)
	b := pack(100, 3, false)
	got := BestFit([]models.Pack{a, b}, decimal.NewFromInt(500))
	if got == nil || got.ID != a.ID {
		t.Fatalf("inactive pack must not be assigned, got %+v", got)
	}
}

func TestBestFit_EmptyCatalog(t *testing.T) {
	if got := BestFit(nil, decimal.NewFromInt(10)); got != nil {
		t.Fatalf("expected nil, got %+v", got)
	}
}

// For any two balances the assigned pack never has a threshold above the balance
// unless it is the fallback lowest pack.
func TestBestFit_Monotonic(t *testing.T) {
	catalog := []models.Pack{pack(0, 1, true), pack(100, 3, true), pack(500, 5, true), pack(1000, 8, true)}
	prev := decimal.NewFromInt(-1)
	for b := int64(0); b <= 1500; b += 25 {
		bal := decimal.NewFromInt(b)
		got := BestFit(catalog, bal)
		if got.UsdValue.GreaterThan(bal) {
			t.Fatalf("balance %d assigned pack above balance: %s", b, got.UsdValue)
		}
		if got.UsdValue.LessThan(prev) {
			t.Fatalf("balance %d assigned lower pack %s than previous %s", b, got.UsdValue, prev)
		}
		for _, p := range catalog {
			if p.UsdValue.LessThanOrEqual(bal) && p.UsdValue.GreaterThan(got.UsdValue) {
				t.Fatalf("balance %d: pack %s qualifies but %s was chosen", b, p.UsdValue, got.UsdValue)
			}
		}
		prev = got.UsdValue
	}
}

func TestCommissionFor(t *testing.T) {
	p := &models.Pack{ProfitPercentage: decimal.NewFromFloat(12.5)}
	if got := CommissionFor(p, decimal.NewFromInt(80)); !got.Equal(decimal.NewFromInt(10)) {
		t.Errorf("12.5%% of 80: got %s, want 10", got)
	}
	if got := CommissionFor(nil, decimal.NewFromInt(80)); !got.Equal(decimal.NewFromInt(8)) {
		t.Errorf("default 10%% of 80: got %s, want 8", got)
	}
	if got := CommissionFor(p, decimal.RequireFromString("33.33")); !got.Equal(decimal.RequireFromString("4.17")) {
		t.Errorf("rounding: got %s, want 4.17", got)
	}
}

// Injected submissions scale before rounding, so the result is not 5x the
// rounded ordinary commission.
func TestSpecialCommissionFor(t *testing.T) {
	p := &models.Pack{ProfitPercentage: decimal.NewFromFloat(12.5)}
	if got := SpecialCommissionFor(p, decimal.RequireFromString("33.33")); !got.Equal(decimal.RequireFromString("20.83")) {
		t.Errorf("got %s, want 20.83", got)
	}
	if got := SpecialCommissionFor(nil, decimal.NewFromInt(200)); !got.Equal(decimal.NewFromInt(100)) {
		t.Errorf("default pack: got %s, want 100", got)
	}
}
