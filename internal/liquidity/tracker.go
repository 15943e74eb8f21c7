package liquidity

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/crossvenue/opinion-arb/internal/venue"
	"github.com/crossvenue/opinion-arb/pkg/types"
)

// tradeDedupCapacity bounds the remembered trade ids.
const tradeDedupCapacity = 500

// tradeDedup is a bounded FIFO set of trade ids already handled.
type tradeDedup struct {
	mu    sync.Mutex
	limit int
	order []string
	seen  map[string]struct{}
}

func newTradeDedup(limit int) *tradeDedup {
	return &tradeDedup{
		limit: limit,
		seen:  make(map[string]struct{}, limit),
	}
}

// Remember records a trade id, evicting the oldest beyond capacity.
// Returns false when the id was already known.
func (d *tradeDedup) Remember(id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[id]; ok {
		return false
	}
	d.seen[id] = struct{}{}
	d.order = append(d.order, id)
	if len(d.order) > d.limit {
		oldest := d.order[0]
		d.order = d.order[1:]
		delete(d.seen, oldest)
	}
	return true
}

// Tracker is the single background worker that attributes fills to
// tracked maker orders, from order-status polling and from the Opinion
// trade tape. The hedger is invoked synchronously so fills and hedges for
// one order observe a total order.
type Tracker struct {
	opinion venue.Adapter
	table   *Table
	hedger  *Hedger
	stats   *Stats
	config  TrackerConfig
	logger  *zap.Logger

	dedup         *tradeDedup
	lastTradePoll time.Time

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// TrackerConfig holds polling cadence.
type TrackerConfig struct {
	StatusPollInterval time.Duration
	TradePollInterval  time.Duration
	TradeLimit         int
	Logger             *zap.Logger
}

// NewTracker creates the polling worker; Start must be called.
func NewTracker(opinion venue.Adapter, table *Table, hedger *Hedger, stats *Stats, cfg TrackerConfig) *Tracker {
	return &Tracker{
		opinion: opinion,
		table:   table,
		hedger:  hedger,
		stats:   stats,
		config:  cfg,
		logger:  cfg.Logger,
		dedup:   newTradeDedup(tradeDedupCapacity),
		stop:    make(chan struct{}),
	}
}

// Start runs the polling loop until Close or ctx cancellation.
func (t *Tracker) Start(ctx context.Context) {
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		for {
			select {
			case <-t.stop:
				return
			case <-ctx.Done():
				return
			case <-time.After(t.config.StatusPollInterval):
			}
			t.PollOnce(ctx)
		}
	}()
}

// Close stops the worker and waits for it to exit.
func (t *Tracker) Close() error {
	t.stopOnce.Do(func() { close(t.stop) })
	t.wg.Wait()
	return nil
}

// PollOnce runs one status sweep, the trade-tape poll when due, and the
// marked-order reaper.
func (t *Tracker) PollOnce(ctx context.Context) {
	if t.table.TrackedCount() > 0 {
		t.pollStatuses(ctx)

		if time.Since(t.lastTradePoll) >= t.config.TradePollInterval {
			t.lastTradePoll = time.Now()
			t.pollTrades(ctx)
		}
	}

	for _, id := range t.table.ReapMarked() {
		t.logger.Info("marked-order-reaped", zap.String("order-id", id))
	}
}

func (t *Tracker) pollStatuses(ctx context.Context) {
	for _, state := range t.table.Tracked() {
		info, err := t.opinion.GetOrder(ctx, state.OrderID)
		if err != nil {
			t.logger.Warn("order-status-poll-failed",
				zap.String("order-id", state.OrderID),
				zap.Error(err))
			continue
		}

		filled := info.Filled
		// A filled terminal with a short fill count means the venue
		// reports shares lazily; trust the terminal.
		if info.Status == types.StatusFilled && info.Total > 0 && filled < info.Total-fillEpsilon {
			filled = info.Total
		}

		delta, ref, ok := t.table.ApplyStatus(state.OrderID, info.Status, filled)
		if !ok {
			continue
		}

		if delta > fillEpsilon {
			FillsTotal.Inc()
			FillVolume.Add(delta)
			t.stats.RecordFill(delta)
			t.logger.Info("maker-fill-observed",
				zap.String("order-id", state.OrderID),
				zap.String("source", "status-poll"),
				zap.Float64("delta", delta),
				zap.Float64("filled", filled))
			t.hedger.Hedge(ctx, ref, delta)
		}

		if info.Status.Cancellish() {
			t.logger.Info("maker-order-cancelled",
				zap.String("order-id", state.OrderID),
				zap.String("status", string(info.Status)))
			t.table.ForceRemove(state.OrderID)
			continue
		}
		if info.Status == types.StatusFilled {
			t.logger.Info("maker-order-completed",
				zap.String("order-id", state.OrderID))
			t.table.ForceRemove(state.OrderID)
		}
	}
}

// pollTrades pulls the recent trade tape, drops trades already seen or not
// filled, aggregates new trades per order, and hedges each tracked order's
// aggregate once.
func (t *Tracker) pollTrades(ctx context.Context) {
	trades, err := t.opinion.RecentTrades(ctx, t.config.TradeLimit)
	if err != nil {
		t.logger.Warn("trade-poll-failed", zap.Error(err))
		return
	}

	byOrder := make(map[string]float64)
	for _, trade := range trades {
		if trade.TradeID == "" || trade.OrderID == "" {
			continue
		}
		if trade.Status != types.StatusFilled {
			continue
		}

		shares := trade.Shares
		if shares <= fillEpsilon {
			// Wei-scaled quote amount fallback.
			if trade.USDAmount > fillEpsilon && trade.Price > fillEpsilon {
				shares = trade.USDAmount / 1e18 / trade.Price
			} else {
				continue
			}
		}

		if !t.dedup.Remember(trade.TradeID) {
			continue
		}
		byOrder[trade.OrderID] += shares
	}

	for orderID, shares := range byOrder {
		ref, full, ok := t.table.ApplyTradeFill(orderID, shares)
		if !ok {
			UntrackedTradesTotal.Inc()
			t.logger.Info("untracked-trade-observed",
				zap.String("order-id", orderID),
				zap.Float64("shares", shares))
			continue
		}

		FillsTotal.Inc()
		FillVolume.Add(shares)
		t.stats.RecordFill(shares)
		t.logger.Info("maker-fill-observed",
			zap.String("order-id", orderID),
			zap.String("source", "trade-tape"),
			zap.Float64("delta", shares))

		t.hedger.Hedge(ctx, ref, shares)

		if full {
			t.logger.Info("maker-order-completed",
				zap.String("order-id", orderID))
			t.table.ForceRemove(orderID)
		}
	}
}
