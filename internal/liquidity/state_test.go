package liquidity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crossvenue/opinion-arb/pkg/types"
)

func testState(key, orderID string) *OrderState {
	return &OrderState{
		Key:           key,
		OrderID:       orderID,
		Match:         &types.MarketMatch{MarketIDA: 101, NegRiskB: true},
		OpinionToken:  "op-yes",
		OpinionPrice:  0.43,
		OpinionSide:   types.SideBuy,
		OrderSize:     255,
		EffectiveSize: 250,
		HedgeToken:    "pm-no",
		HedgeSide:     types.SideBuy,
		HedgePrice:    0.5,
		Status:        types.StatusPending,
	}
}

func TestTableRegisterReplacesOldOrder(t *testing.T) {
	table := NewTable(5 * time.Minute)
	table.Register(testState("k1", "order-1"))
	table.Register(testState("k1", "order-2"))

	assert.Equal(t, 1, table.ActiveCount())
	assert.Equal(t, 1, table.TrackedCount(), "old order id reference dropped")

	state, ok := table.Get("k1")
	require.True(t, ok)
	assert.Equal(t, "order-2", state.OrderID)
}

func TestTableSoftRemoveKeepsMonitoring(t *testing.T) {
	table := NewTable(5 * time.Minute)
	table.Register(testState("k1", "order-1"))

	require.True(t, table.SoftRemove("k1"))
	assert.Equal(t, 0, table.ActiveCount())
	assert.Equal(t, 1, table.TrackedCount())

	// Late fill on a soft-removed order is still attributable.
	delta, ref, ok := table.ApplyStatus("order-1", types.StatusFilled, 100)
	require.True(t, ok)
	assert.Equal(t, 100.0, delta)
	assert.Equal(t, "pm-no", ref.HedgeToken)
	assert.True(t, ref.NegRisk)
}

func TestTableForceRemove(t *testing.T) {
	table := NewTable(5 * time.Minute)
	table.Register(testState("k1", "order-1"))

	require.True(t, table.ForceRemove("order-1"))
	assert.Equal(t, 0, table.ActiveCount())
	assert.Equal(t, 0, table.TrackedCount())
	assert.False(t, table.ForceRemove("order-1"))
}

func TestTableReapMarked(t *testing.T) {
	table := NewTable(5 * time.Minute)
	base := time.Now()
	table.now = func() time.Time { return base }

	table.Register(testState("k1", "order-1"))
	table.Register(testState("k2", "order-2"))
	table.SoftRemove("k1")

	table.now = func() time.Time { return base.Add(6 * time.Minute) }
	reaped := table.ReapMarked()
	assert.Equal(t, []string{"order-1"}, reaped)
	assert.Equal(t, 1, table.TrackedCount(), "active order untouched")
}

func TestTableApplyStatusDelta(t *testing.T) {
	table := NewTable(5 * time.Minute)
	table.Register(testState("k1", "order-1"))

	delta, _, ok := table.ApplyStatus("order-1", types.StatusPartial, 80)
	require.True(t, ok)
	assert.Equal(t, 80.0, delta)

	// Same observation again yields no delta.
	delta, _, ok = table.ApplyStatus("order-1", types.StatusPartial, 80)
	require.True(t, ok)
	assert.Zero(t, delta)

	delta, _, ok = table.ApplyStatus("order-1", types.StatusFilled, 250)
	require.True(t, ok)
	assert.Equal(t, 170.0, delta)

	// Unknown status does not clobber the last known one.
	_, _, _ = table.ApplyStatus("order-1", types.StatusUnknown, 250)
	state, _ := table.Get("k1")
	assert.Equal(t, types.StatusFilled, state.Status)
}

func TestTableApplyTradeFill(t *testing.T) {
	table := NewTable(5 * time.Minute)
	table.Register(testState("k1", "order-1"))

	_, full, ok := table.ApplyTradeFill("order-1", 100)
	require.True(t, ok)
	assert.False(t, full)

	_, full, ok = table.ApplyTradeFill("order-1", 150)
	require.True(t, ok)
	assert.True(t, full, "filled reached effective size")

	_, _, ok = table.ApplyTradeFill("missing", 10)
	assert.False(t, ok)
}

func TestTradeDedupBounded(t *testing.T) {
	d := newTradeDedup(3)
	assert.True(t, d.Remember("t1"))
	assert.False(t, d.Remember("t1"))
	assert.True(t, d.Remember("t2"))
	assert.True(t, d.Remember("t3"))
	assert.True(t, d.Remember("t4"), "t1 evicted")
	assert.True(t, d.Remember("t1"), "evicted id is forgotten")
	assert.False(t, d.Remember("t4"))
}
