// Package odds holds the pure pricing helpers frozen onto a bet at
// placement time: the popularity-derived dynamic multiplier and the
// contrarian classification.
package odds

import (
	"fmt"

	"github.com/shopspring/decimal"

	"reelmarket/internal/models"
)

var (
	one  = decimal.NewFromInt(1)
	half = decimal.RequireFromString("0.5")

	// m = 1 - k*(p - 0.5). With k = 0.3 the reachable range over
	// p in [0,1] is [0.85, 1.15]; the clamp bounds below are kept as
	// documented product limits even though the formula never hits them.
	coefficient   = decimal.RequireFromString("0.3")
	minMultiplier = decimal.RequireFromString("0.7")
	maxMultiplier = decimal.RequireFromString("1.3")

	contrarianThreshold = decimal.RequireFromString("0.35")
)

// RatioPlaces is the fixed precision for popularity ratios and
// multipliers; currency amounts round to 2 places elsewhere.
const RatioPlaces = 4

// Multiplier maps an outcome's popularity ratio p in [0,1] to the
// payout multiplier applied to a winning bet. Neutral at p = 0.5,
// decreasing as the position gets more popular.
func Multiplier(p decimal.Decimal) (decimal.Decimal, error) {
	if p.IsNegative() || p.GreaterThan(one) {
		return decimal.Zero, fmt.Errorf("popularity ratio %s outside [0,1]: %w", p.String(), models.ErrInvalidInput)
	}
	m := one.Sub(coefficient.Mul(p.Sub(half))).Round(RatioPlaces)
	if m.LessThan(minMultiplier) {
		return minMultiplier, nil
	}
	if m.GreaterThan(maxMultiplier) {
		return maxMultiplier, nil
	}
	return m, nil
}

// IsContrarian reports whether a position held strictly less than 35%
// of the market's staked value at the moment of the bet. The result is
// frozen onto the bet and never recomputed.
func IsContrarian(p decimal.Decimal) bool {
	return p.LessThan(contrarianThreshold)
}
