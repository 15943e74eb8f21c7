package liquidity

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/crossvenue/opinion-arb/internal/venue"
	"github.com/crossvenue/opinion-arb/pkg/types"
)

// fillEpsilon is the tolerance below which fill and hedge quantities are
// treated as zero.
const fillEpsilon = 1e-6

// TickSource resolves the Polymarket tick size for an order price.
type TickSource interface {
	TickSize(ctx context.Context, tokenID string, price float64) float64
}

// tickByPrecision infers the tick from the price alone; used when no
// metadata source is wired.
type tickByPrecision struct{}

func (tickByPrecision) TickSize(_ context.Context, _ string, price float64) float64 {
	p := types.RoundPrice(price)
	cents := p * 100
	if cents != float64(int64(cents)) {
		return 0.001
	}
	return 0.01
}

// Hedger drains fill deltas by taking the Polymarket best ask, loop-filling
// across price levels when the top is thinner than the remaining quantity.
type Hedger struct {
	polymarket venue.Adapter
	table      *Table
	ticks      TickSource
	config     HedgerConfig
	logger     *zap.Logger
	stats      *Stats
}

// HedgerConfig holds hedger retry policy and pacing.
type HedgerConfig struct {
	MaxRetries int
	RetryDelay time.Duration
	StepSleep  time.Duration

	// OnFatal is invoked on balance exhaustion.
	OnFatal func(error)

	Logger *zap.Logger
}

// NewHedger creates a hedger over the Polymarket adapter. ticks may be nil;
// the price-precision inference is used then.
func NewHedger(polymarket venue.Adapter, table *Table, ticks TickSource, stats *Stats, cfg HedgerConfig) *Hedger {
	if ticks == nil {
		ticks = tickByPrecision{}
	}
	if cfg.StepSleep <= 0 {
		cfg.StepSleep = 200 * time.Millisecond
	}
	return &Hedger{
		polymarket: polymarket,
		table:      table,
		ticks:      ticks,
		config:     cfg,
		logger:     cfg.Logger,
		stats:      stats,
	}
}

// Hedge buys delta tokens of the hedge leg from the book's best ask,
// reassessing the top after each step. Returns the quantity left unhedged.
func (h *Hedger) Hedge(ctx context.Context, ref HedgeRef, delta float64) float64 {
	remaining := delta
	if remaining <= fillEpsilon {
		return 0
	}

	h.logger.Info("hedge-start",
		zap.String("order-id", ref.OrderID),
		zap.String("hedge-token", ref.HedgeToken),
		zap.Float64("delta", delta))

	for remaining > fillEpsilon {
		book, err := h.polymarket.FetchBook(ctx, ref.HedgeToken)
		if err != nil {
			HedgeFailuresTotal.WithLabelValues("book-fetch").Inc()
			h.logger.Error("hedge-book-fetch-failed",
				zap.String("order-id", ref.OrderID),
				zap.Error(err))
			break
		}
		ask, ok := book.BestAsk()
		if !ok {
			HedgeFailuresTotal.WithLabelValues("no-liquidity").Inc()
			h.logger.Error("hedge-no-liquidity",
				zap.String("hedge-token", ref.HedgeToken),
				zap.Float64("remaining", remaining))
			break
		}

		tradable := remaining
		if ask.Size < tradable {
			tradable = ask.Size
		}
		if tradable <= fillEpsilon {
			HedgeFailuresTotal.WithLabelValues("thin-top").Inc()
			h.logger.Warn("hedge-top-ask-too-thin",
				zap.String("hedge-token", ref.HedgeToken),
				zap.Float64("remaining", remaining))
			break
		}

		req := &venue.OrderRequest{
			TokenID:     ref.HedgeToken,
			Side:        ref.HedgeSide,
			Price:       ask.Price,
			Size:        tradable,
			TimeInForce: "GTC",
			TickSize:    h.ticks.TickSize(ctx, ref.HedgeToken, ask.Price),
			NegRisk:     ref.NegRisk,
			FeeRateBps:  ref.FeeRateBps,
		}
		if err := h.placeWithRetry(ctx, req); err != nil {
			HedgeFailuresTotal.WithLabelValues("order").Inc()
			h.logger.Error("hedge-order-failed",
				zap.String("order-id", ref.OrderID),
				zap.Float64("remaining", remaining),
				zap.Error(err))
			break
		}

		remaining -= tradable
		h.table.AddHedged(ref.OrderID, tradable)
		HedgesTotal.Inc()
		HedgeVolume.Add(tradable)
		h.stats.RecordHedge(tradable)

		h.logger.Info("hedge-step-filled",
			zap.String("order-id", ref.OrderID),
			zap.Float64("price", ask.Price),
			zap.Float64("size", tradable),
			zap.Float64("remaining", remaining))

		if remaining > fillEpsilon {
			select {
			case <-time.After(h.config.StepSleep):
			case <-ctx.Done():
				return remaining
			}
		}
	}

	if remaining > fillEpsilon {
		h.stats.RecordHedgeFailure()
		h.logger.Warn("hedge-incomplete",
			zap.String("order-id", ref.OrderID),
			zap.Float64("remaining", remaining))
	}
	return remaining
}

func (h *Hedger) placeWithRetry(ctx context.Context, req *venue.OrderRequest) error {
	retries := h.config.MaxRetries
	if retries <= 0 {
		retries = 1
	}

	var lastErr error
	for attempt := 1; attempt <= retries; attempt++ {
		_, err := h.polymarket.PlaceOrder(ctx, req)
		if err == nil {
			return nil
		}
		lastErr = err

		if types.IsBalanceExhausted(err) {
			if h.config.OnFatal != nil {
				h.config.OnFatal(err)
			}
			return err
		}
		if !types.IsRetryable(err) {
			return err
		}

		h.logger.Warn("hedge-order-attempt-failed",
			zap.Int("attempt", attempt),
			zap.Error(err))

		if attempt < retries {
			select {
			case <-time.After(h.config.RetryDelay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return lastErr
}
