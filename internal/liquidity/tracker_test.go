package liquidity

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/crossvenue/opinion-arb/internal/testutil"
	"github.com/crossvenue/opinion-arb/internal/venue"
	"github.com/crossvenue/opinion-arb/pkg/types"
)

func newTestTracker(opinion, poly *testutil.MockAdapter, table *Table) (*Tracker, *Stats) {
	stats := NewStats()
	hedger := NewHedger(poly, table, nil, stats, testHedgerConfig())
	tracker := NewTracker(opinion, table, hedger, stats, TrackerConfig{
		StatusPollInterval: 10 * time.Millisecond,
		TradePollInterval:  0, // trades polled on every sweep
		TradeLimit:         40,
		Logger:             zap.NewNop(),
	})
	return tracker, stats
}

func TestStatusPollForwardsFillDelta(t *testing.T) {
	opinion := testutil.NewMockAdapter(types.VenueOpinion)
	poly := testutil.NewMockAdapter(types.VenuePolymarket)
	table := NewTable(5 * time.Minute)
	table.Register(testState("k1", "order-1"))

	opinion.SetOrder("order-1", &venue.OrderInfo{Status: types.StatusPartial, Filled: 100, Total: 250})
	poly.SetBook("pm-no", testutil.Snapshot(types.VenuePolymarket, "pm-no", 0.45, 500, 0.50, 500))

	tracker, stats := newTestTracker(opinion, poly, table)
	tracker.PollOnce(context.Background())

	require.Len(t, poly.PlacedOrders, 1)
	assert.Equal(t, 100.0, poly.PlacedOrders[0].Size)
	assert.Equal(t, int64(1), stats.Snapshot().Fills)

	state, ok := table.Get("k1")
	require.True(t, ok)
	assert.Equal(t, 100.0, state.Filled)
	assert.Equal(t, 100.0, state.Hedged)

	// The same poll result again produces no second hedge.
	tracker.PollOnce(context.Background())
	assert.Len(t, poly.PlacedOrders, 1)
}

func TestStatusPollFilledTerminalRemovesOrder(t *testing.T) {
	opinion := testutil.NewMockAdapter(types.VenueOpinion)
	poly := testutil.NewMockAdapter(types.VenuePolymarket)
	table := NewTable(5 * time.Minute)
	table.Register(testState("k1", "order-1"))

	// Venue reports the terminal before the share count catches up.
	opinion.SetOrder("order-1", &venue.OrderInfo{Status: types.StatusFilled, Filled: 0, Total: 250})
	poly.SetBook("pm-no", testutil.Snapshot(types.VenuePolymarket, "pm-no", 0.45, 500, 0.50, 500))

	tracker, _ := newTestTracker(opinion, poly, table)
	tracker.PollOnce(context.Background())

	require.Len(t, poly.PlacedOrders, 1)
	assert.Equal(t, 250.0, poly.PlacedOrders[0].Size, "terminal implies full size")
	assert.Zero(t, table.TrackedCount())
}

func TestStatusPollCancelledStopsTracking(t *testing.T) {
	opinion := testutil.NewMockAdapter(types.VenueOpinion)
	poly := testutil.NewMockAdapter(types.VenuePolymarket)
	table := NewTable(5 * time.Minute)
	table.Register(testState("k1", "order-1"))

	opinion.SetOrder("order-1", &venue.OrderInfo{Status: types.StatusCancelled, Filled: 0, Total: 250})

	tracker, _ := newTestTracker(opinion, poly, table)
	tracker.PollOnce(context.Background())

	assert.Zero(t, table.TrackedCount())
	assert.Zero(t, poly.PlacedCount())
}

func TestTradePollAggregatesAndDeduplicates(t *testing.T) {
	opinion := testutil.NewMockAdapter(types.VenueOpinion)
	poly := testutil.NewMockAdapter(types.VenuePolymarket)
	table := NewTable(5 * time.Minute)
	table.Register(testState("k1", "order-1"))

	// Keep the status poll quiet so only the tape drives fills.
	opinion.SetOrder("order-1", &venue.OrderInfo{Status: types.StatusPending, Filled: 0, Total: 250})
	poly.SetBook("pm-no", testutil.Snapshot(types.VenuePolymarket, "pm-no", 0.45, 500, 0.50, 500))

	opinion.Trades = []types.Trade{
		{TradeID: "t1", OrderID: "order-1", Price: 0.43, Shares: 60, Status: types.StatusFilled},
		{TradeID: "t2", OrderID: "order-1", Price: 0.43, Shares: 40, Status: types.StatusFilled},
		{TradeID: "t3", OrderID: "order-1", Price: 0.43, Shares: 30, Status: types.StatusPending},
	}

	tracker, stats := newTestTracker(opinion, poly, table)
	tracker.PollOnce(context.Background())

	// Two filled trades aggregate into one hedge of 100; the pending
	// trade is ignored.
	require.Len(t, poly.PlacedOrders, 1)
	assert.Equal(t, 100.0, poly.PlacedOrders[0].Size)
	assert.Equal(t, int64(1), stats.Snapshot().Fills)

	// Re-polling the same tape is a no-op.
	tracker.PollOnce(context.Background())
	assert.Len(t, poly.PlacedOrders, 1)
}

func TestTradePollSharesFallbackFromUSDAmount(t *testing.T) {
	opinion := testutil.NewMockAdapter(types.VenueOpinion)
	poly := testutil.NewMockAdapter(types.VenuePolymarket)
	table := NewTable(5 * time.Minute)
	table.Register(testState("k1", "order-1"))

	opinion.SetOrder("order-1", &venue.OrderInfo{Status: types.StatusPending, Filled: 0, Total: 250})
	poly.SetBook("pm-no", testutil.Snapshot(types.VenuePolymarket, "pm-no", 0.45, 500, 0.50, 500))

	// 50 quote units at 0.50 is 100 shares; amount is wei-scaled.
	opinion.Trades = []types.Trade{
		{TradeID: "t1", OrderID: "order-1", Price: 0.5, USDAmount: 5e19, Status: types.StatusFilled},
	}

	tracker, _ := newTestTracker(opinion, poly, table)
	tracker.PollOnce(context.Background())

	require.Len(t, poly.PlacedOrders, 1)
	assert.InDelta(t, 100.0, poly.PlacedOrders[0].Size, 1e-9)
}

func TestTradePollUntrackedOrderNotHedged(t *testing.T) {
	opinion := testutil.NewMockAdapter(types.VenueOpinion)
	poly := testutil.NewMockAdapter(types.VenuePolymarket)
	table := NewTable(5 * time.Minute)
	table.Register(testState("k1", "order-1"))

	opinion.SetOrder("order-1", &venue.OrderInfo{Status: types.StatusPending, Filled: 0, Total: 250})
	opinion.Trades = []types.Trade{
		{TradeID: "t9", OrderID: "someone-else", Price: 0.5, Shares: 10, Status: types.StatusFilled},
	}

	tracker, _ := newTestTracker(opinion, poly, table)
	tracker.PollOnce(context.Background())

	assert.Zero(t, poly.PlacedCount())
}

func TestTrackerFullFillViaTapeRemovesOrder(t *testing.T) {
	opinion := testutil.NewMockAdapter(types.VenueOpinion)
	poly := testutil.NewMockAdapter(types.VenuePolymarket)
	table := NewTable(5 * time.Minute)
	table.Register(testState("k1", "order-1"))

	opinion.SetOrder("order-1", &venue.OrderInfo{Status: types.StatusPending, Filled: 0, Total: 250})
	poly.SetBook("pm-no", testutil.Snapshot(types.VenuePolymarket, "pm-no", 0.45, 500, 0.50, 500))
	opinion.Trades = []types.Trade{
		{TradeID: "t1", OrderID: "order-1", Price: 0.43, Shares: 250, Status: types.StatusFilled},
	}

	tracker, _ := newTestTracker(opinion, poly, table)
	tracker.PollOnce(context.Background())

	assert.Zero(t, table.TrackedCount())
	require.Len(t, poly.PlacedOrders, 1)
	assert.Equal(t, 250.0, poly.PlacedOrders[0].Size)
}
