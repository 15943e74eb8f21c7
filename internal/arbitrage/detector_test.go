package arbitrage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/crossvenue/opinion-arb/internal/fees"
	"github.com/crossvenue/opinion-arb/pkg/types"
)

const secondsPerYear = 31536000.0

func newTestDetector() *Detector {
	return NewDetector(fees.NewCalculator(0.5), Config{
		ROIReferenceSize:       200,
		SecondsPerYear:         secondsPerYear,
		ThresholdCost:          0.97,
		ThresholdSize:          200,
		LiquidityMinSize:       100,
		LiquidityTargetSize:    250,
		LiquidityMinAnnualized: 20,
		Logger:                 zap.NewNop(),
	})
}

func matchWithCutoff(fraction float64) *types.MarketMatch {
	m := &types.MarketMatch{
		Question:     "will it rain",
		MarketIDA:    101,
		YesTokenA:    "op-yes",
		NoTokenA:     "op-no",
		ConditionIDB: "0xcond",
		YesTokenB:    "pm-yes",
		NoTokenB:     "pm-no",
		SlugB:        "will-it-rain",
	}
	if fraction > 0 {
		m.CutoffAt = time.Now().Add(time.Duration(secondsPerYear / fraction * float64(time.Second))).Unix()
	}
	return m
}

func book(v types.Venue, tokenID string, bids, asks []types.OrderBookLevel) *types.OrderBookSnapshot {
	return &types.OrderBookSnapshot{
		Source:    v,
		TokenID:   tokenID,
		Bids:      bids,
		Asks:      asks,
		FetchedAt: time.Now(),
	}
}

func TestTakerOpportunityDetected(t *testing.T) {
	d := newTestDetector()
	m := matchWithCutoff(8) // one eighth of a year to cutoff

	opinionYes := book(types.VenueOpinion, m.YesTokenA,
		[]types.OrderBookLevel{{Price: 0.44, Size: 300}},
		[]types.OrderBookLevel{{Price: 0.45, Size: 400}})
	// Polymarket YES bid 0.500 derives a NO ask at 0.500.
	polyYes := book(types.VenuePolymarket, m.YesTokenB,
		[]types.OrderBookLevel{{Price: 0.50, Size: 400}},
		[]types.OrderBookLevel{{Price: 0.52, Size: 100}})

	opps := d.TakerOpportunities(m, opinionYes, polyYes)
	require.Len(t, opps, 1)

	opp := opps[0]
	assert.Equal(t, StrategyTakerOpinionYesPolyNo, opp.Strategy)
	assert.NotEmpty(t, opp.ID)

	// Opinion effective price: 0.450/(1-0.01735) rounded to 0.458.
	assert.InDelta(t, 0.958, opp.Cost, 1e-9)
	assert.InDelta(t, 4.384, opp.ProfitRate, 0.01)
	require.NotNil(t, opp.Annualized)
	assert.InDelta(t, 35.07, *opp.Annualized, 0.5)

	assert.Equal(t, types.VenueOpinion, opp.FirstLeg.Venue)
	assert.Equal(t, m.YesTokenA, opp.FirstLeg.Token)
	assert.Equal(t, types.SideBuy, opp.FirstLeg.Side)
	assert.Equal(t, 0.45, opp.FirstLeg.Price)

	assert.Equal(t, types.VenuePolymarket, opp.SecondLeg.Venue)
	assert.Equal(t, m.NoTokenB, opp.SecondLeg.Token)
	assert.Equal(t, 0.5, opp.SecondLeg.Price)

	assert.Equal(t, 400.0, opp.MinSize)
}

func TestTakerMirrorStrategy(t *testing.T) {
	d := newTestDetector()
	m := matchWithCutoff(8)

	// Opinion YES bid 0.55 derives a NO ask at 0.450; Polymarket YES ask
	// at 0.500 pairs with it.
	opinionYes := book(types.VenueOpinion, m.YesTokenA,
		[]types.OrderBookLevel{{Price: 0.55, Size: 400}},
		nil)
	polyYes := book(types.VenuePolymarket, m.YesTokenB,
		nil,
		[]types.OrderBookLevel{{Price: 0.50, Size: 400}})

	opps := d.TakerOpportunities(m, opinionYes, polyYes)
	require.Len(t, opps, 1)
	assert.Equal(t, StrategyTakerOpinionNoPolyYes, opps[0].Strategy)
	assert.Equal(t, m.NoTokenA, opps[0].FirstLeg.Token)
	assert.Equal(t, m.YesTokenB, opps[0].SecondLeg.Token)
}

func TestTakerRequiresBothTops(t *testing.T) {
	d := newTestDetector()
	m := matchWithCutoff(8)

	opinionYes := book(types.VenueOpinion, m.YesTokenA,
		nil,
		[]types.OrderBookLevel{{Price: 0.45, Size: 400}})
	// Empty Polymarket book: no derived NO ask, no YES ask.
	polyYes := book(types.VenuePolymarket, m.YesTokenB, nil, nil)

	assert.Empty(t, d.TakerOpportunities(m, opinionYes, polyYes))
}

func TestTakerSizeThresholdIsStrict(t *testing.T) {
	d := newTestDetector()
	m := matchWithCutoff(8)

	opinionYes := book(types.VenueOpinion, m.YesTokenA,
		nil,
		[]types.OrderBookLevel{{Price: 0.45, Size: 200}})
	polyYes := book(types.VenuePolymarket, m.YesTokenB,
		[]types.OrderBookLevel{{Price: 0.50, Size: 400}},
		nil)

	// min size equals the threshold; a candidate needs strictly more.
	assert.Empty(t, d.TakerOpportunities(m, opinionYes, polyYes))
}

func TestTakerCostThreshold(t *testing.T) {
	d := newTestDetector()
	m := matchWithCutoff(8)

	opinionYes := book(types.VenueOpinion, m.YesTokenA,
		nil,
		[]types.OrderBookLevel{{Price: 0.49, Size: 400}})
	polyYes := book(types.VenuePolymarket, m.YesTokenB,
		[]types.OrderBookLevel{{Price: 0.50, Size: 400}},
		nil)

	// 0.49 plus fees lands around 0.499; combined 0.999 is over 0.97.
	assert.Empty(t, d.TakerOpportunities(m, opinionYes, polyYes))
}

func TestProfitMetricsWithoutCutoff(t *testing.T) {
	d := newTestDetector()
	m := matchWithCutoff(0)

	metrics, ok := d.ProfitMetrics(m, types.VenueOpinion, 0.45, types.VenuePolymarket, 0.50, 400)
	require.True(t, ok)
	assert.Nil(t, metrics.Annualized)
	assert.InDelta(t, 0.958, metrics.Cost, 1e-9)
	assert.Equal(t, 400.0, metrics.AssumedSize)
}

func TestProfitMetricsAssumedSizeFloor(t *testing.T) {
	d := newTestDetector()
	m := matchWithCutoff(0)

	metrics, ok := d.ProfitMetrics(m, types.VenueOpinion, 0.45, types.VenuePolymarket, 0.50, 50)
	require.True(t, ok)
	assert.Equal(t, 200.0, metrics.AssumedSize)
}

func TestMakerCandidateDetected(t *testing.T) {
	d := newTestDetector()
	m := matchWithCutoff(8)

	opinionYes := book(types.VenueOpinion, m.YesTokenA,
		[]types.OrderBookLevel{{Price: 0.43, Size: 120}},
		[]types.OrderBookLevel{{Price: 0.46, Size: 80}})
	polyYes := book(types.VenuePolymarket, m.YesTokenB,
		[]types.OrderBookLevel{{Price: 0.50, Size: 300}},
		nil)

	cands := d.MakerCandidates(m, opinionYes, polyYes)
	require.Len(t, cands, 1)

	c := cands[0]
	assert.Equal(t, StrategyMakerOpinionYesPolyNo, c.Direction)
	assert.Equal(t, "101:op-yes:opinion_yes_poly_no:will-it-rain", c.Key)
	assert.Equal(t, 0.43, c.OpinionPrice)
	assert.Equal(t, m.NoTokenB, c.PolymarketToken)
	assert.Equal(t, 0.5, c.HedgePrice)
	assert.Equal(t, 300.0, c.HedgeAvailable)
	assert.Equal(t, 250.0, c.TargetSize, "target capped at configured size")
	assert.Greater(t, c.Annualized, 20.0)
}

func TestMakerCandidateTargetCappedByHedgeDepth(t *testing.T) {
	d := newTestDetector()
	m := matchWithCutoff(8)

	opinionYes := book(types.VenueOpinion, m.YesTokenA,
		[]types.OrderBookLevel{{Price: 0.43, Size: 120}},
		nil)
	polyYes := book(types.VenuePolymarket, m.YesTokenB,
		[]types.OrderBookLevel{{Price: 0.50, Size: 150}},
		nil)

	cands := d.MakerCandidates(m, opinionYes, polyYes)
	require.Len(t, cands, 1)
	assert.Equal(t, 150.0, cands[0].TargetSize)
}

func TestMakerCandidateRejectsThinHedge(t *testing.T) {
	d := newTestDetector()
	m := matchWithCutoff(8)

	opinionYes := book(types.VenueOpinion, m.YesTokenA,
		[]types.OrderBookLevel{{Price: 0.43, Size: 120}},
		nil)
	polyYes := book(types.VenuePolymarket, m.YesTokenB,
		[]types.OrderBookLevel{{Price: 0.50, Size: 50}},
		nil)

	assert.Empty(t, d.MakerCandidates(m, opinionYes, polyYes))
}

func TestMakerCandidateRequiresAnnualized(t *testing.T) {
	d := newTestDetector()
	m := matchWithCutoff(0) // no cutoff, annualized undefined

	opinionYes := book(types.VenueOpinion, m.YesTokenA,
		[]types.OrderBookLevel{{Price: 0.43, Size: 120}},
		nil)
	polyYes := book(types.VenuePolymarket, m.YesTokenB,
		[]types.OrderBookLevel{{Price: 0.50, Size: 300}},
		nil)

	assert.Empty(t, d.MakerCandidates(m, opinionYes, polyYes))
}
