package arbitrage

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/crossvenue/opinion-arb/internal/books"
	"github.com/crossvenue/opinion-arb/internal/fees"
	"github.com/crossvenue/opinion-arb/pkg/types"
)

// Detector scores matched market pairs. It is stateless apart from
// configuration; callers pass the cycle's books in.
type Detector struct {
	fees   *fees.Calculator
	config Config
	logger *zap.Logger

	now func() time.Time
}

// Config holds detector thresholds.
type Config struct {
	ROIReferenceSize float64
	SecondsPerYear   float64

	// Taker thresholds.
	ThresholdCost float64
	ThresholdSize float64

	// Maker thresholds.
	LiquidityMinSize       float64
	LiquidityTargetSize    float64
	LiquidityMinAnnualized float64

	Logger *zap.Logger
}

// NewDetector creates a detector over the given fee calculator.
func NewDetector(calc *fees.Calculator, cfg Config) *Detector {
	return &Detector{
		fees:   calc,
		config: cfg,
		logger: cfg.Logger,
		now:    time.Now,
	}
}

// ProfitMetrics scores a two-leg pairing at the given top-of-book prices.
// The assumed size for fee arithmetic is the larger of the ROI reference
// size and the visible size, so thin books do not overstate the fee floor.
func (d *Detector) ProfitMetrics(match *types.MarketMatch, firstVenue types.Venue, firstPrice float64, secondVenue types.Venue, secondPrice float64, minSize float64) (*ProfitMetrics, bool) {
	assumed := d.config.ROIReferenceSize
	if minSize > assumed {
		assumed = minSize
	}

	effFirst, ok := d.effectivePrice(firstVenue, firstPrice, assumed)
	if !ok {
		return nil, false
	}
	effSecond, ok := d.effectivePrice(secondVenue, secondPrice, assumed)
	if !ok {
		return nil, false
	}

	cost := types.RoundPrice(effFirst + effSecond)
	if cost <= 0 {
		return nil, false
	}

	profitRate := (1 - cost) / cost * 100

	metrics := &ProfitMetrics{
		Cost:        cost,
		ProfitRate:  profitRate,
		AssumedSize: assumed,
	}

	if remaining, ok := match.SecondsToCutoff(d.now()); ok {
		annualized := profitRate * (d.config.SecondsPerYear / remaining)
		metrics.Annualized = &annualized
	}

	return metrics, true
}

func (d *Detector) effectivePrice(v types.Venue, price, assumedSize float64) (float64, bool) {
	if v == types.VenueOpinion {
		return d.fees.CostPerTokenOpinion(price, assumedSize)
	}
	return fees.CostPerTokenPolymarket(price)
}

// TakerOpportunities evaluates both taker strategies for one match given
// the two YES books. NO books are derived in place.
func (d *Detector) TakerOpportunities(match *types.MarketMatch, opinionYes, polyYes *types.OrderBookSnapshot) []*Opportunity {
	if opinionYes == nil || polyYes == nil {
		return nil
	}

	opinionNo := books.DeriveNoBook(opinionYes, match.NoTokenA)
	polyNo := books.DeriveNoBook(polyYes, match.NoTokenB)

	var out []*Opportunity
	if opp := d.takerPair(match, StrategyTakerOpinionYesPolyNo, opinionYes, match.YesTokenA, polyNo, match.NoTokenB); opp != nil {
		out = append(out, opp)
	}
	if opp := d.takerPair(match, StrategyTakerOpinionNoPolyYes, opinionNo, match.NoTokenA, polyYes, match.YesTokenB); opp != nil {
		out = append(out, opp)
	}
	return out
}

// takerPair evaluates buying the Opinion ask and the Polymarket ask
// together. Both tops must be present, the combined cost must be under the
// cost threshold, and the thinner top must exceed the size threshold.
func (d *Detector) takerPair(match *types.MarketMatch, strategy Strategy, opinionBook *types.OrderBookSnapshot, opinionToken string, polyBook *types.OrderBookSnapshot, polyToken string) *Opportunity {
	opinionAsk, ok := opinionBook.BestAsk()
	if !ok {
		return nil
	}
	polyAsk, ok := polyBook.BestAsk()
	if !ok {
		return nil
	}

	minSize := opinionAsk.Size
	if polyAsk.Size < minSize {
		minSize = polyAsk.Size
	}

	metrics, ok := d.ProfitMetrics(match, types.VenueOpinion, opinionAsk.Price, types.VenuePolymarket, polyAsk.Price, minSize)
	if !ok {
		OpportunitiesRejectedTotal.WithLabelValues("unpriceable").Inc()
		return nil
	}
	if metrics.Cost >= d.config.ThresholdCost {
		OpportunitiesRejectedTotal.WithLabelValues("cost").Inc()
		return nil
	}
	if minSize <= d.config.ThresholdSize {
		OpportunitiesRejectedTotal.WithLabelValues("size").Inc()
		return nil
	}

	opp := &Opportunity{
		ID:       uuid.New().String(),
		Match:    match,
		Strategy: strategy,
		FirstLeg: LegSpec{
			Venue: types.VenueOpinion,
			Token: opinionToken,
			Side:  types.SideBuy,
			Price: types.RoundPrice(opinionAsk.Price),
			Size:  opinionAsk.Size,
		},
		SecondLeg: LegSpec{
			Venue: types.VenuePolymarket,
			Token: polyToken,
			Side:  types.SideBuy,
			Price: types.RoundPrice(polyAsk.Price),
			Size:  polyAsk.Size,
		},
		Cost:       metrics.Cost,
		ProfitRate: metrics.ProfitRate,
		Annualized: metrics.Annualized,
		MinSize:    minSize,
		DetectedAt: d.now(),
	}

	OpportunitiesDetectedTotal.WithLabelValues(string(strategy)).Inc()
	OpportunityCost.Observe(metrics.Cost)

	fields := []zap.Field{
		zap.String("question", match.Question),
		zap.String("strategy", string(strategy)),
		zap.Float64("cost", metrics.Cost),
		zap.Float64("profit-rate-pct", metrics.ProfitRate),
		zap.Float64("min-size", minSize),
	}
	if metrics.Annualized != nil {
		fields = append(fields, zap.Float64("annualized-pct", *metrics.Annualized))
	}
	d.logger.Info("taker-opportunity-detected", fields...)

	return opp
}

// MakerCandidates evaluates both maker directions for one match: rest at
// the Opinion best bid, hedged against the derived Polymarket ask.
func (d *Detector) MakerCandidates(match *types.MarketMatch, opinionYes, polyYes *types.OrderBookSnapshot) []*MakerCandidate {
	if opinionYes == nil || polyYes == nil {
		return nil
	}

	opinionNo := books.DeriveNoBook(opinionYes, match.NoTokenA)
	polyNo := books.DeriveNoBook(polyYes, match.NoTokenB)

	var out []*MakerCandidate
	if c := d.makerPair(match, StrategyMakerOpinionYesPolyNo, opinionYes, match.YesTokenA, polyNo, match.NoTokenB); c != nil {
		out = append(out, c)
	}
	if c := d.makerPair(match, StrategyMakerOpinionNoPolyYes, opinionNo, match.NoTokenA, polyYes, match.YesTokenB); c != nil {
		out = append(out, c)
	}
	return out
}

func (d *Detector) makerPair(match *types.MarketMatch, direction Strategy, opinionBook *types.OrderBookSnapshot, opinionToken string, polyBook *types.OrderBookSnapshot, polyToken string) *MakerCandidate {
	if opinionToken == "" || polyToken == "" {
		return nil
	}

	bid, ok := opinionBook.BestBid()
	if !ok {
		return nil
	}
	hedge, ok := polyBook.BestAsk()
	if !ok {
		return nil
	}

	if hedge.Size < d.config.LiquidityMinSize {
		OpportunitiesRejectedTotal.WithLabelValues("hedge-depth").Inc()
		return nil
	}

	metrics, ok := d.ProfitMetrics(match, types.VenueOpinion, bid.Price, types.VenuePolymarket, hedge.Price, hedge.Size)
	if !ok {
		OpportunitiesRejectedTotal.WithLabelValues("unpriceable").Inc()
		return nil
	}
	if metrics.Annualized == nil || *metrics.Annualized < d.config.LiquidityMinAnnualized {
		OpportunitiesRejectedTotal.WithLabelValues("annualized").Inc()
		return nil
	}

	target := d.config.LiquidityTargetSize
	if hedge.Size < target {
		target = hedge.Size
	}
	if target < d.config.LiquidityMinSize {
		OpportunitiesRejectedTotal.WithLabelValues("target-size").Inc()
		return nil
	}

	OpportunitiesDetectedTotal.WithLabelValues(string(direction)).Inc()

	return &MakerCandidate{
		Key:             MakerKey(match, opinionToken, direction),
		Match:           match,
		Direction:       direction,
		OpinionToken:    opinionToken,
		OpinionPrice:    types.RoundPrice(bid.Price),
		PolymarketToken: polyToken,
		HedgePrice:      types.RoundPrice(hedge.Price),
		HedgeAvailable:  hedge.Size,
		TargetSize:      target,
		Cost:            metrics.Cost,
		ProfitRate:      metrics.ProfitRate,
		Annualized:      *metrics.Annualized,
	}
}
