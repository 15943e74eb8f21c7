// Package fees implements the Opinion taker fee curve and the fee-aware
// sizing and cost arithmetic used by the detector and both executors.
// Opinion charges zero fees on maker fills.
package fees

import (
	"math"

	"github.com/crossvenue/opinion-arb/pkg/types"
)

const (
	feeCurveCoeff = 0.06
	feeCurveBase  = 0.0025

	// NotionalFloor is the minimum order value Opinion accepts.
	NotionalFloor = 1.3
)

// Calculator performs Opinion fee arithmetic. MinFee is the absolute fee
// floor in quote units.
type Calculator struct {
	MinFee float64
}

// NewCalculator returns a calculator with the given absolute fee floor.
func NewCalculator(minFee float64) *Calculator {
	return &Calculator{MinFee: minFee}
}

// FeeRate returns the Opinion taker fee rate at price p:
// 0.06*p*(1-p) + 0.0025.
func FeeRate(p float64) float64 {
	return feeCurveCoeff*p*(1-p) + feeCurveBase
}

// AdjustedOrderSize returns the gross quantity to place at price so that the
// net quantity delivered after fees equals target. The percentage path is
// tried first; when the implied percentage fee falls at or under the fee
// floor, the floor dominates and the size is padded by minFee/price instead.
func (c *Calculator) AdjustedOrderSize(price, target float64) float64 {
	rate := FeeRate(price)

	provisional := target / (1 - rate)
	provisionalFee := price * provisional * rate

	if provisionalFee > c.MinFee {
		return provisional
	}
	return target + c.MinFee/price
}

// EffectiveSize returns the net quantity delivered by a gross order of
// orderSize at price, after deducting the larger of the percentage fee and
// the fee floor.
func (c *Calculator) EffectiveSize(price, orderSize float64) float64 {
	rate := FeeRate(price)
	fee := math.Max(price*orderSize*rate, c.MinFee)
	return orderSize - fee/price
}

// CostPerTokenOpinion returns the per-token cost, fees included, of
// acquiring sizeTokens net tokens at price on Opinion. Returns false when
// the price is unusable.
func (c *Calculator) CostPerTokenOpinion(price, sizeTokens float64) (float64, bool) {
	p := types.RoundPrice(price)
	if p <= 0 {
		return 0, false
	}

	sizeTokens = math.Max(sizeTokens, 1e-6)
	rate := FeeRate(p)
	if rate >= 0.999 {
		return 0, false
	}

	orderSize := sizeTokens / (1 - rate)
	percentageFee := p * orderSize * rate

	var effective float64
	if percentageFee >= c.MinFee {
		effective = p / (1 - rate)
	} else {
		effective = p + c.MinFee/sizeTokens
	}

	return types.RoundPrice(effective), true
}

// CostPerTokenPolymarket returns the per-token cost on Polymarket, which
// carries no taker fee on the markets this engine trades.
func CostPerTokenPolymarket(price float64) (float64, bool) {
	p := types.RoundPrice(price)
	if p <= 0 {
		return 0, false
	}
	return p, true
}

// MeetsNotionalFloor reports whether an Opinion order passes the venue's
// minimum order value.
func MeetsNotionalFloor(price, size float64) bool {
	return size*price >= NotionalFloor
}
