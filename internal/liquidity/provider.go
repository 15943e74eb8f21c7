package liquidity

import (
	"context"
	"math"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/crossvenue/opinion-arb/internal/arbitrage"
	"github.com/crossvenue/opinion-arb/internal/books"
	"github.com/crossvenue/opinion-arb/internal/fees"
	"github.com/crossvenue/opinion-arb/internal/venue"
	"github.com/crossvenue/opinion-arb/pkg/types"
)

// BookSource supplies one cycle's books for a set of matches.
type BookSource interface {
	FetchCycle(ctx context.Context, matches []types.MarketMatch) books.CycleBooks
}

// Provider reconciles the active maker set against detector candidates
// every cycle: place missing quotes, requote drifted ones, cancel the rest.
type Provider struct {
	opinion  venue.Adapter
	detector *arbitrage.Detector
	source   BookSource
	table    *Table
	hedger   *Hedger
	fees     *fees.Calculator
	stats    *Stats
	config   ProviderConfig
	logger   *zap.Logger

	matches []types.MarketMatch
}

// ProviderConfig holds maker reconciliation policy.
type ProviderConfig struct {
	MaxOrders        int
	TargetSize       float64
	MinSize          float64
	PriceTolerance   float64
	RequoteIncrement float64
	CancelDwell      time.Duration
	MaxRetries       int
	RetryDelay       time.Duration

	// OnFatal is invoked on balance exhaustion.
	OnFatal func(error)

	Logger *zap.Logger
}

// NewProvider creates a maker provider over the Opinion adapter.
func NewProvider(opinion venue.Adapter, detector *arbitrage.Detector, source BookSource, table *Table, hedger *Hedger, calc *fees.Calculator, stats *Stats, matches []types.MarketMatch, cfg ProviderConfig) *Provider {
	if cfg.CancelDwell <= 0 {
		cfg.CancelDwell = 500 * time.Millisecond
	}
	return &Provider{
		opinion:  opinion,
		detector: detector,
		source:   source,
		table:    table,
		hedger:   hedger,
		fees:     calc,
		stats:    stats,
		config:   cfg,
		logger:   cfg.Logger,
		matches:  matches,
	}
}

// RunCycle scans all matches, reconciles the active maker set against the
// winning candidates, and cancels orders whose keys fell out of the set.
func (p *Provider) RunCycle(ctx context.Context) {
	cycle := p.source.FetchCycle(ctx, p.matches)

	// Best candidate per key; ties broken by annualized rate.
	byKey := make(map[string]*arbitrage.MakerCandidate)
	for i := range p.matches {
		m := &p.matches[i]
		for _, c := range p.detector.MakerCandidates(m, cycle[m.YesTokenA], cycle[m.YesTokenB]) {
			if prev, ok := byKey[c.Key]; !ok || c.Annualized > prev.Annualized {
				byKey[c.Key] = c
			}
		}
	}

	candidates := make([]*arbitrage.MakerCandidate, 0, len(byKey))
	for _, c := range byKey {
		candidates = append(candidates, c)
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].Annualized > candidates[j].Annualized
	})

	desired := make(map[string]struct{}, p.config.MaxOrders)
	for _, c := range candidates {
		if len(desired) >= p.config.MaxOrders {
			break
		}
		if ctx.Err() != nil {
			return
		}
		if p.ensureOrder(ctx, c) {
			desired[c.Key] = struct{}{}
		}
	}

	p.cancelObsolete(ctx, desired)
}

// ensureOrder keeps, requotes, or places the order for one candidate.
// Returns whether the key should count toward the desired set.
func (p *Provider) ensureOrder(ctx context.Context, c *arbitrage.MakerCandidate) bool {
	existing, ok := p.table.Get(c.Key)
	if ok {
		increment := math.Max(p.config.RequoteIncrement, 0)
		requote := false
		switch {
		case c.OpinionPrice > existing.OpinionPrice+increment+fillEpsilon:
			// The best bid moved above us; requote to stay at the top.
			p.logger.Info("maker-requote-bid-improved",
				zap.String("key", c.Key),
				zap.Float64("resting-price", existing.OpinionPrice),
				zap.Float64("new-price", c.OpinionPrice))
			requote = true
		case math.Abs(c.OpinionPrice-existing.OpinionPrice) > p.config.PriceTolerance:
			p.logger.Info("maker-requote-price-drift",
				zap.String("key", c.Key),
				zap.Float64("resting-price", existing.OpinionPrice),
				zap.Float64("new-price", c.OpinionPrice))
			requote = true
		}

		if !requote {
			p.table.UpdateHedgeRef(c.Key, c.HedgePrice, c.ProfitRate, c.Annualized)
			return true
		}
		if !p.cancelOrder(ctx, existing, "repricing") {
			// Still live; keep the key desired so the obsolete sweep does
			// not cancel it again this cycle.
			return true
		}
	}

	if p.table.ActiveCount() >= p.config.MaxOrders {
		p.logger.Warn("maker-set-full", zap.String("key", c.Key))
		return false
	}
	return p.placeOrder(ctx, c)
}

// placeOrder sizes and places one maker quote and registers its state.
func (p *Provider) placeOrder(ctx context.Context, c *arbitrage.MakerCandidate) bool {
	target := math.Min(c.TargetSize, c.HedgeAvailable)
	if target < p.config.MinSize {
		return false
	}

	price := types.RoundPrice(c.OpinionPrice)
	gross := p.fees.AdjustedOrderSize(price, target)
	if !fees.MeetsNotionalFloor(price, gross) {
		p.logger.Debug("maker-order-below-notional-floor",
			zap.String("key", c.Key),
			zap.Float64("price", price),
			zap.Float64("size", gross))
		return false
	}

	req := &venue.OrderRequest{
		MarketID:    c.Match.MarketIDA,
		TokenID:     c.OpinionToken,
		Side:        types.SideBuy,
		Price:       price,
		Size:        gross,
		TimeInForce: "GTC",
	}

	ack, err := p.placeWithRetry(ctx, req)
	if err != nil {
		p.logger.Error("maker-order-place-failed",
			zap.String("key", c.Key),
			zap.Error(err))
		return false
	}

	now := time.Now()
	p.table.Register(&OrderState{
		Key:            c.Key,
		OrderID:        ack.OrderID,
		Match:          c.Match,
		OpinionToken:   c.OpinionToken,
		OpinionPrice:   price,
		OpinionSide:    types.SideBuy,
		OrderSize:      gross,
		EffectiveSize:  target,
		HedgeToken:     c.PolymarketToken,
		HedgeSide:      types.SideBuy,
		HedgePrice:     c.HedgePrice,
		Status:         types.StatusPending,
		LastProfitRate: c.ProfitRate,
		LastAnnualized: c.Annualized,
		CreatedAt:      now,
		UpdatedAt:      now,
	})
	OrdersPlacedTotal.Inc()

	p.logger.Info("maker-order-placed",
		zap.String("key", c.Key),
		zap.String("order-id", ack.OrderID),
		zap.Float64("price", price),
		zap.Float64("gross-size", gross),
		zap.Float64("net-size", target),
		zap.Float64("annualized-pct", c.Annualized))
	return true
}

// cancelOrder runs the cancel protocol: request, dwell, verify. A verify
// that shows a fill hedges the delta before removal; a verify that still
// shows the order live leaves it tracked for the next cycle.
func (p *Provider) cancelOrder(ctx context.Context, state OrderState, reason string) bool {
	if err := p.opinion.CancelOrder(ctx, state.OrderID); err != nil {
		CancelFailuresTotal.Inc()
		p.logger.Warn("maker-cancel-request-failed",
			zap.String("order-id", state.OrderID),
			zap.Error(err))
		return false
	}

	select {
	case <-time.After(p.config.CancelDwell):
	case <-ctx.Done():
		return false
	}

	info, err := p.opinion.GetOrder(ctx, state.OrderID)
	if err != nil {
		CancelFailuresTotal.Inc()
		p.logger.Warn("maker-cancel-verify-failed",
			zap.String("order-id", state.OrderID),
			zap.Error(err))
		return false
	}

	// Any fill observed during the cancel is hedged before removal.
	if info.Filled > state.Filled+fillEpsilon {
		delta, ref, ok := p.table.ApplyStatus(state.OrderID, info.Status, info.Filled)
		if ok && delta > fillEpsilon {
			FillsTotal.Inc()
			FillVolume.Add(delta)
			p.stats.RecordFill(delta)
			p.logger.Info("cancel-raced-fill",
				zap.String("order-id", state.OrderID),
				zap.Float64("delta", delta))
			p.hedger.Hedge(ctx, ref, delta)
		}
	}

	switch {
	case info.Status == types.StatusFilled:
		p.table.ForceRemove(state.OrderID)
		OrdersCancelledTotal.WithLabelValues("filled-during-cancel").Inc()
		return true
	case info.Status.Cancellish():
		p.table.SoftRemove(state.Key)
		OrdersCancelledTotal.WithLabelValues(reason).Inc()
		p.logger.Info("maker-order-cancel-confirmed",
			zap.String("order-id", state.OrderID),
			zap.String("reason", reason))
		return true
	default:
		CancelFailuresTotal.Inc()
		p.logger.Warn("maker-cancel-not-confirmed",
			zap.String("order-id", state.OrderID),
			zap.String("status", string(info.Status)))
		return false
	}
}

// cancelObsolete cancels active orders whose keys are no longer desired.
func (p *Provider) cancelObsolete(ctx context.Context, desired map[string]struct{}) {
	for _, state := range p.table.Active() {
		if _, ok := desired[state.Key]; ok {
			continue
		}
		if ctx.Err() != nil {
			return
		}
		p.cancelOrder(ctx, state, "opportunity-gone")
	}
}

// CancelAll cancels every active maker order. Called on shutdown before
// waiting for the table to drain.
func (p *Provider) CancelAll(ctx context.Context) {
	for _, state := range p.table.Active() {
		if ctx.Err() != nil {
			return
		}
		p.cancelOrder(ctx, state, "shutdown")
	}
}

// WaitForOrders blocks until all monitored orders drain or the timeout
// elapses. Used on shutdown.
func (p *Provider) WaitForOrders(ctx context.Context, timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for p.table.TrackedCount() > 0 {
		if timeout > 0 && time.Now().After(deadline) {
			p.logger.Warn("maker-orders-still-tracked-at-shutdown",
				zap.Int("tracked", p.table.TrackedCount()))
			return
		}
		select {
		case <-time.After(time.Second):
		case <-ctx.Done():
			return
		}
	}
}

func (p *Provider) placeWithRetry(ctx context.Context, req *venue.OrderRequest) (*venue.OrderAck, error) {
	retries := p.config.MaxRetries
	if retries <= 0 {
		retries = 1
	}

	var lastErr error
	for attempt := 1; attempt <= retries; attempt++ {
		ack, err := p.opinion.PlaceOrder(ctx, req)
		if err == nil {
			return ack, nil
		}
		lastErr = err

		if types.IsBalanceExhausted(err) {
			if p.config.OnFatal != nil {
				p.config.OnFatal(err)
			}
			return nil, err
		}
		if !types.IsRetryable(err) {
			return nil, err
		}

		p.logger.Warn("maker-order-attempt-failed",
			zap.Int("attempt", attempt),
			zap.Error(err))

		if attempt < retries {
			select {
			case <-time.After(p.config.RetryDelay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}
	return nil, lastErr
}
