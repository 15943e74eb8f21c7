package execution

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/crossvenue/opinion-arb/internal/arbitrage"
	"github.com/crossvenue/opinion-arb/internal/fees"
	"github.com/crossvenue/opinion-arb/internal/testutil"
	"github.com/crossvenue/opinion-arb/internal/venue"
	"github.com/crossvenue/opinion-arb/pkg/types"
)

func testConfig(onFatal func(error)) Config {
	return Config{
		Enabled:          true,
		MinAnnualized:    5,
		MaxAnnualized:    200,
		DefaultOrderSize: 200,
		MaxOrderSize:     1000,
		Cooldown:         5 * time.Second,
		MaxRetries:       3,
		RetryDelay:       time.Millisecond,
		OnFatal:          onFatal,
		Logger:           zap.NewNop(),
	}
}

func testOpportunity(annualized float64) *arbitrage.Opportunity {
	ann := annualized
	return &arbitrage.Opportunity{
		ID:       "opp-1",
		Match:    &types.MarketMatch{MarketIDA: 101, Question: "will it rain", NegRiskB: true, FeeRateBpsB: 0},
		Strategy: arbitrage.StrategyTakerOpinionYesPolyNo,
		FirstLeg: arbitrage.LegSpec{
			Venue: types.VenueOpinion, Token: "op-yes", Side: types.SideBuy, Price: 0.45, Size: 400,
		},
		SecondLeg: arbitrage.LegSpec{
			Venue: types.VenuePolymarket, Token: "pm-no", Side: types.SideBuy, Price: 0.50, Size: 400,
		},
		Cost:       0.958,
		ProfitRate: 4.38,
		Annualized: &ann,
		MinSize:    400,
		DetectedAt: time.Now(),
	}
}

func TestCooldownWindow(t *testing.T) {
	c := NewCooldown(5 * time.Second)
	base := time.Now()
	c.now = func() time.Time { return base }

	assert.True(t, c.Allow("101||opinion_yes_ask_poly_no_ask"))
	assert.False(t, c.Allow("101||opinion_yes_ask_poly_no_ask"))
	assert.True(t, c.Allow("101||opinion_no_ask_poly_yes_ask"), "different strategy has its own key")

	c.now = func() time.Time { return base.Add(6 * time.Second) }
	assert.True(t, c.Allow("101||opinion_yes_ask_poly_no_ask"))
}

func TestCooldownReapsStaleEntries(t *testing.T) {
	c := NewCooldown(5 * time.Second)
	base := time.Now()
	c.now = func() time.Time { return base }

	c.Allow("a")
	c.Allow("b")

	c.now = func() time.Time { return base.Add(90 * time.Second) }
	c.Allow("c")
	assert.Len(t, c.entries, 1)
}

func TestExecutorFiresBothLegs(t *testing.T) {
	opinion := testutil.NewMockAdapter(types.VenueOpinion)
	poly := testutil.NewMockAdapter(types.VenuePolymarket)
	e := NewExecutor(opinion, poly, fees.NewCalculator(0.5), testConfig(nil))

	dispatched := e.Execute(context.Background(), testOpportunity(35))
	require.True(t, dispatched)
	e.Wait()

	require.Len(t, opinion.PlacedOrders, 1)
	require.Len(t, poly.PlacedOrders, 1)

	// Net size is min(max(200, 0.9*400), 1000) = 360; the Opinion leg is
	// grossed up for the taker fee.
	opReq := opinion.PlacedOrders[0]
	assert.Equal(t, int64(101), opReq.MarketID)
	assert.Equal(t, types.SideBuy, opReq.Side)
	assert.Equal(t, 0.45, opReq.Price)
	assert.InDelta(t, 360/(1-fees.FeeRate(0.45)), opReq.Size, 1e-9)

	pmReq := poly.PlacedOrders[0]
	assert.Equal(t, "pm-no", pmReq.TokenID)
	assert.Equal(t, 0.5, pmReq.Price)
	assert.Equal(t, 360.0, pmReq.Size)
	assert.Equal(t, 0.01, pmReq.TickSize)
	assert.True(t, pmReq.NegRisk)
}

func TestExecutorDeduplicates(t *testing.T) {
	opinion := testutil.NewMockAdapter(types.VenueOpinion)
	poly := testutil.NewMockAdapter(types.VenuePolymarket)
	e := NewExecutor(opinion, poly, fees.NewCalculator(0.5), testConfig(nil))

	require.True(t, e.Execute(context.Background(), testOpportunity(35)))
	e.Wait()
	require.False(t, e.Execute(context.Background(), testOpportunity(35)))
	e.Wait()

	assert.Equal(t, 1, opinion.PlacedCount())
	assert.Equal(t, 1, poly.PlacedCount())
}

func TestExecutorAnnualizedWindow(t *testing.T) {
	opinion := testutil.NewMockAdapter(types.VenueOpinion)
	poly := testutil.NewMockAdapter(types.VenuePolymarket)
	e := NewExecutor(opinion, poly, fees.NewCalculator(0.5), testConfig(nil))

	assert.False(t, e.Execute(context.Background(), testOpportunity(300)), "above max")
	assert.False(t, e.Execute(context.Background(), testOpportunity(1)), "below min")

	noAnn := testOpportunity(35)
	noAnn.Annualized = nil
	assert.False(t, e.Execute(context.Background(), noAnn), "no annualized rate")

	e.Wait()
	assert.Zero(t, opinion.PlacedCount())
}

func TestExecutorRetriesTransientFailures(t *testing.T) {
	opinion := testutil.NewMockAdapter(types.VenueOpinion)
	poly := testutil.NewMockAdapter(types.VenuePolymarket)

	var attempts int
	var mu sync.Mutex
	opinion.PlaceHook = func(req *venue.OrderRequest) (*venue.OrderAck, error) {
		mu.Lock()
		defer mu.Unlock()
		attempts++
		if attempts < 3 {
			return nil, &types.VenueError{
				Venue:   types.VenueOpinion,
				Kind:    types.ErrKindRetryable,
				Message: "rate limited",
			}
		}
		return &venue.OrderAck{OrderID: "op-1"}, nil
	}

	e := NewExecutor(opinion, poly, fees.NewCalculator(0.5), testConfig(nil))
	require.True(t, e.Execute(context.Background(), testOpportunity(35)))
	e.Wait()

	assert.Equal(t, 3, attempts)
	assert.Equal(t, 1, opinion.PlacedCount())
}

func TestExecutorBalanceFailStop(t *testing.T) {
	opinion := testutil.NewMockAdapter(types.VenueOpinion)
	poly := testutil.NewMockAdapter(types.VenuePolymarket)

	var attempts int
	var mu sync.Mutex
	opinion.PlaceHook = func(req *venue.OrderRequest) (*venue.OrderAck, error) {
		mu.Lock()
		defer mu.Unlock()
		attempts++
		return nil, &types.VenueError{
			Venue:   types.VenueOpinion,
			Kind:    types.ErrKindBalanceExhausted,
			Message: "insufficient balance",
		}
	}

	var fatal error
	e := NewExecutor(opinion, poly, fees.NewCalculator(0.5), testConfig(func(err error) { fatal = err }))
	require.True(t, e.Execute(context.Background(), testOpportunity(35)))
	e.Wait()

	require.Error(t, fatal)
	assert.True(t, types.IsBalanceExhausted(fatal))
	assert.Equal(t, 1, attempts, "balance exhaustion is never retried")
}
