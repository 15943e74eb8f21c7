// Package liquidity implements the maker side of the engine: resting bids
// on Opinion reconciled against detector candidates, a background tracker
// that attributes fills from status and trade-tape polling, and a hedger
// that takes the Polymarket counter-leg for every fill delta.
package liquidity

import (
	"sync"
	"time"

	"github.com/crossvenue/opinion-arb/pkg/types"
)

// OrderState tracks one resting Opinion order and its hedge progress.
type OrderState struct {
	Key     string
	OrderID string
	Match   *types.MarketMatch

	OpinionToken  string
	OpinionPrice  float64
	OpinionSide   types.Side
	OrderSize     float64 // gross quantity placed
	EffectiveSize float64 // net quantity after maker fees

	HedgeToken string
	HedgeSide  types.Side
	HedgePrice float64

	Status types.OrderStatus
	Filled float64
	Hedged float64

	LastProfitRate float64
	LastAnnualized float64

	CreatedAt time.Time
	UpdatedAt time.Time

	MarkedForRemoval bool
	MarkedAt         time.Time

	LastStatusLog time.Time
}

// HedgeRef is the immutable slice of an order state the hedger needs.
type HedgeRef struct {
	OrderID    string
	HedgeToken string
	HedgeSide  types.Side
	NegRisk    bool
	FeeRateBps int
}

func (s *OrderState) hedgeRef() HedgeRef {
	return HedgeRef{
		OrderID:    s.OrderID,
		HedgeToken: s.HedgeToken,
		HedgeSide:  s.HedgeSide,
		NegRisk:    s.Match.NegRiskB,
		FeeRateBps: s.Match.FeeRateBpsB,
	}
}

// Table holds the two indices over resting orders. Presence only in the
// by-id index means the order was soft-removed: no longer part of the
// active maker set, but still monitored so a late fill is hedged.
type Table struct {
	mu    sync.Mutex
	byKey map[string]*OrderState
	byID  map[string]*OrderState

	markedTimeout time.Duration
	now           func() time.Time
}

// NewTable creates an order table. markedTimeout bounds how long a
// soft-removed order stays monitored.
func NewTable(markedTimeout time.Duration) *Table {
	return &Table{
		byKey:         make(map[string]*OrderState),
		byID:          make(map[string]*OrderState),
		markedTimeout: markedTimeout,
		now:           time.Now,
	}
}

// Register adds a new order state, replacing any previous order at the
// same key and dropping the stale by-id reference.
func (t *Table) Register(state *OrderState) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if old, ok := t.byKey[state.Key]; ok && old.OrderID != state.OrderID {
		delete(t.byID, old.OrderID)
	}
	t.byKey[state.Key] = state
	t.byID[state.OrderID] = state
	ActiveOrders.Set(float64(len(t.byKey)))
}

// Get returns a copy of the state at key.
func (t *Table) Get(key string) (OrderState, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	state, ok := t.byKey[key]
	if !ok {
		return OrderState{}, false
	}
	return *state, true
}

// ActiveCount returns the size of the active maker set.
func (t *Table) ActiveCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.byKey)
}

// TrackedCount returns the number of monitored orders, soft-removed ones
// included.
func (t *Table) TrackedCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.byID)
}

// ActiveKeys returns the keys of the active maker set.
func (t *Table) ActiveKeys() map[string]struct{} {
	t.mu.Lock()
	defer t.mu.Unlock()
	keys := make(map[string]struct{}, len(t.byKey))
	for k := range t.byKey {
		keys[k] = struct{}{}
	}
	return keys
}

// Active returns copies of the active order states.
func (t *Table) Active() []OrderState {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]OrderState, 0, len(t.byKey))
	for _, state := range t.byKey {
		out = append(out, *state)
	}
	return out
}

// Tracked returns copies of all monitored order states.
func (t *Table) Tracked() []OrderState {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]OrderState, 0, len(t.byID))
	for _, state := range t.byID {
		out = append(out, *state)
	}
	return out
}

// SoftRemove drops the order at key from the active set but keeps it
// monitored by id, stamped for later reaping.
func (t *Table) SoftRemove(key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	state, ok := t.byKey[key]
	if !ok {
		return false
	}
	delete(t.byKey, key)
	state.MarkedForRemoval = true
	state.MarkedAt = t.now()
	ActiveOrders.Set(float64(len(t.byKey)))
	SoftRemovesTotal.Inc()
	return true
}

// ForceRemove drops the order from both indices.
func (t *Table) ForceRemove(orderID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	state, ok := t.byID[orderID]
	if !ok {
		return false
	}
	delete(t.byID, orderID)
	if active, ok := t.byKey[state.Key]; ok && active.OrderID == orderID {
		delete(t.byKey, state.Key)
	}
	ActiveOrders.Set(float64(len(t.byKey)))
	return true
}

// ReapMarked force-removes soft-removed orders whose mark is older than
// the timeout and returns their ids.
func (t *Table) ReapMarked() []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	var reaped []string
	for id, state := range t.byID {
		if state.MarkedForRemoval && now.Sub(state.MarkedAt) > t.markedTimeout {
			delete(t.byID, id)
			reaped = append(reaped, id)
			ForceRemovesTotal.Inc()
		}
	}
	return reaped
}

// UpdateHedgeRef refreshes the hedge reference of a kept order after a
// reconciliation pass decided not to requote.
func (t *Table) UpdateHedgeRef(key string, hedgePrice, profitRate, annualized float64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	state, ok := t.byKey[key]
	if !ok {
		return false
	}
	state.HedgePrice = hedgePrice
	state.LastProfitRate = profitRate
	state.LastAnnualized = annualized
	state.UpdatedAt = t.now()
	return true
}

// ApplyStatus records a status-poll observation. It returns the fill delta
// since the last observation (zero when none) together with the hedge ref.
func (t *Table) ApplyStatus(orderID string, status types.OrderStatus, filled float64) (float64, HedgeRef, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	state, ok := t.byID[orderID]
	if !ok {
		return 0, HedgeRef{}, false
	}

	if status != types.StatusUnknown {
		state.Status = status
	}

	var delta float64
	if filled > state.Filled+fillEpsilon {
		delta = filled - state.Filled
		state.Filled = filled
	}
	state.UpdatedAt = t.now()
	return delta, state.hedgeRef(), true
}

// ApplyTradeFill adds shares observed on the trade tape to the order's
// fill and returns the hedge ref plus whether the order is now fully
// filled against its effective size.
func (t *Table) ApplyTradeFill(orderID string, shares float64) (HedgeRef, bool, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	state, ok := t.byID[orderID]
	if !ok {
		return HedgeRef{}, false, false
	}

	state.Filled += shares
	state.UpdatedAt = t.now()
	full := state.Filled >= state.EffectiveSize-fillEpsilon
	return state.hedgeRef(), full, true
}

// AddHedged advances the hedged quantity of a monitored order.
func (t *Table) AddHedged(orderID string, qty float64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if state, ok := t.byID[orderID]; ok {
		state.Hedged += qty
		state.UpdatedAt = t.now()
	}
}
