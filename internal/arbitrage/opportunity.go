// Package arbitrage evaluates matched market pairs for cross-venue price
// discrepancies. Both books are reduced to top-of-book levels and scored
// with fee-inclusive per-token costs; candidates above the configured
// thresholds are emitted for the taker executor or the maker provider.
package arbitrage

import (
	"fmt"
	"time"

	"github.com/crossvenue/opinion-arb/pkg/types"
)

// Strategy identifies one of the four leg combinations the detector
// evaluates for every match.
type Strategy string

const (
	// Taker strategies cross both visible asks at once.
	StrategyTakerOpinionYesPolyNo Strategy = "opinion_yes_ask_poly_no_ask"
	StrategyTakerOpinionNoPolyYes Strategy = "opinion_no_ask_poly_yes_ask"

	// Maker strategies rest a bid on Opinion and hedge against the
	// Polymarket ask on fill.
	StrategyMakerOpinionYesPolyNo Strategy = "opinion_yes_poly_no"
	StrategyMakerOpinionNoPolyYes Strategy = "opinion_no_poly_yes"
)

// LegSpec describes one side of an opportunity.
type LegSpec struct {
	Venue types.Venue
	Token string
	Side  types.Side
	Price float64
	Size  float64
}

// Opportunity is an immediately executable taker candidate: both legs are
// crossable asks whose combined fee-inclusive cost is below 1.
type Opportunity struct {
	ID        string
	Match     *types.MarketMatch
	Strategy  Strategy
	FirstLeg  LegSpec
	SecondLeg LegSpec

	Cost       float64
	ProfitRate float64 // percent
	Annualized *float64
	MinSize    float64

	DetectedAt time.Time
}

// MakerCandidate is a maker-side quote the provider may want resting: buy
// opinionToken at the current best bid, hedged by the Polymarket ask.
type MakerCandidate struct {
	Key       string
	Match     *types.MarketMatch
	Direction Strategy

	OpinionToken string
	OpinionPrice float64

	PolymarketToken string
	HedgePrice      float64
	HedgeAvailable  float64

	TargetSize float64
	Cost       float64
	ProfitRate float64
	Annualized float64
}

// ProfitMetrics carries the scored economics of one leg pairing.
type ProfitMetrics struct {
	Cost        float64
	ProfitRate  float64  // percent
	Annualized  *float64 // percent, nil without a usable cutoff
	AssumedSize float64
}

// MakerKey builds the unique resting-order key for a match and direction.
func MakerKey(match *types.MarketMatch, opinionToken string, direction Strategy) string {
	return fmt.Sprintf("%d:%s:%s:%s", match.MarketIDA, opinionToken, direction, match.SlugB)
}
