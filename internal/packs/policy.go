// Package packs holds the subscription tier catalog and the policy that maps
// a wallet balance onto a tier.
package packs

import (
	"github.com/shopspring/decimal"

	"github.com/ratepulse/backend/internal/models"
)

// DefaultProfitPercentage is used for commission when an account has no pack.
var DefaultProfitPercentage = decimal.NewFromInt(10)

// BestFit returns the active pack with the greatest UsdValue <= balance. When
// no active pack qualifies it falls back to the lowest-threshold active pack,
// and returns nil only when there are no active packs at all.
func BestFit(catalog []models.Pack, balance decimal.Decimal) *models.Pack {
	var best, lowest *models.Pack
	for i := range catalog {
		p := &catalog[i]
		if !p.IsActive {
			continue
		}
		if lowest == nil || p.UsdValue.LessThan(lowest.UsdValue) {
			lowest = p
		}
		if p.UsdValue.GreaterThan(balance) {
			continue
		}
		if best == nil || p.UsdValue.GreaterThan(best.UsdValue) {
			best = p
		}
	}
	if best != nil {
		return best
	}
	return lowest
}

// SpecialCommissionMultiplier inflates the commission of injected submissions.
const SpecialCommissionMultiplier = 5

// CommissionFor computes amount * pct / 100 rounded to cents, using
// DefaultProfitPercentage when pack is nil.
func CommissionFor(pack *models.Pack, amount decimal.Decimal) decimal.Decimal {
	return commission(pack, amount, 1)
}

// SpecialCommissionFor is CommissionFor scaled by SpecialCommissionMultiplier
// before rounding.
func SpecialCommissionFor(pack *models.Pack, amount decimal.Decimal) decimal.Decimal {
	return commission(pack, amount, SpecialCommissionMultiplier)
}

func commission(pack *models.Pack, amount decimal.Decimal, mult int64) decimal.Decimal {
	pct := DefaultProfitPercentage
	if pack != nil {
		pct = pack.ProfitPercentage
	}
	return amount.Mul(pct).Mul(decimal.NewFromInt(mult)).Div(decimal.NewFromInt(100)).Round(2)
}
