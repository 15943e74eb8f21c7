// Package execution fires taker leg pairs for immediate opportunities. The
// executor does not wait for fills: both legs cross visible asks, so they
// are expected to fill or be rejected by the venue.
package execution

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/crossvenue/opinion-arb/internal/arbitrage"
	"github.com/crossvenue/opinion-arb/internal/fees"
	"github.com/crossvenue/opinion-arb/internal/venue"
	"github.com/crossvenue/opinion-arb/internal/venue/polymarket"
	"github.com/crossvenue/opinion-arb/pkg/types"
)

// Executor dispatches one fire-and-report task per accepted opportunity.
type Executor struct {
	opinion    venue.Adapter
	polymarket venue.Adapter
	fees       *fees.Calculator
	cooldown   *Cooldown
	config     Config
	logger     *zap.Logger

	fatalOnce sync.Once
	wg        sync.WaitGroup
}

// Config holds executor thresholds and retry policy.
type Config struct {
	Enabled          bool
	MinAnnualized    float64
	MaxAnnualized    float64
	DefaultOrderSize float64
	MaxOrderSize     float64
	Cooldown         time.Duration
	MaxRetries       int
	RetryDelay       time.Duration

	// OnFatal is invoked once on balance exhaustion; the app uses it to
	// stop the process.
	OnFatal func(error)

	// OnExecuted is invoked with the net leg size after both legs have
	// been submitted. The app feeds it to the balance breaker.
	OnExecuted func(netSize float64)

	Logger *zap.Logger
}

// NewExecutor creates an executor over the two venue adapters.
func NewExecutor(opinion, polymarket venue.Adapter, calc *fees.Calculator, cfg Config) *Executor {
	return &Executor{
		opinion:    opinion,
		polymarket: polymarket,
		fees:       calc,
		cooldown:   NewCooldown(cfg.Cooldown),
		config:     cfg,
		logger:     cfg.Logger,
	}
}

// Execute dispatches an opportunity when it passes the annualized window
// and the cooldown gate. Returns whether a task was spawned.
func (e *Executor) Execute(ctx context.Context, opp *arbitrage.Opportunity) bool {
	if !e.config.Enabled {
		return false
	}

	if opp.Annualized == nil {
		ExecutionsSkippedTotal.WithLabelValues("no-annualized").Inc()
		return false
	}
	annualized := *opp.Annualized
	if annualized < e.config.MinAnnualized || annualized > e.config.MaxAnnualized {
		ExecutionsSkippedTotal.WithLabelValues("window").Inc()
		e.logger.Debug("execution-outside-annualized-window",
			zap.String("question", opp.Match.Question),
			zap.Float64("annualized-pct", annualized))
		return false
	}

	key := fmt.Sprintf("%d||%s", opp.Match.MarketIDA, opp.Strategy)
	if !e.cooldown.Allow(key) {
		ExecutionsDedupedTotal.Inc()
		e.logger.Info("execution-deduplicated",
			zap.String("key", key))
		return false
	}

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.runOpportunity(ctx, opp)
	}()
	return true
}

// Wait blocks until all in-flight execution tasks finish. The taker loop
// calls this before starting the next scan cycle.
func (e *Executor) Wait() {
	e.wg.Wait()
}

// runOpportunity sizes both legs and submits them in parallel.
func (e *Executor) runOpportunity(ctx context.Context, opp *arbitrage.Opportunity) {
	start := time.Now()
	defer func() {
		ExecutionDurationSeconds.Observe(time.Since(start).Seconds())
	}()

	orderSize := math.Min(math.Max(e.config.DefaultOrderSize, 0.9*opp.MinSize), e.config.MaxOrderSize)
	if orderSize <= 0 {
		orderSize = e.config.DefaultOrderSize
	}

	// The Opinion leg is grossed up so its post-fee fill matches the
	// Polymarket leg one for one.
	opinionSize := e.fees.AdjustedOrderSize(opp.FirstLeg.Price, orderSize)

	e.logger.Info("executing-opportunity",
		zap.String("opportunity-id", opp.ID),
		zap.String("strategy", string(opp.Strategy)),
		zap.Float64("cost", opp.Cost),
		zap.Float64("net-size", orderSize),
		zap.Float64("opinion-gross-size", opinionSize))

	ExecutionsTotal.WithLabelValues(string(opp.Strategy)).Inc()

	opinionReq := &venue.OrderRequest{
		MarketID:    opp.Match.MarketIDA,
		TokenID:     opp.FirstLeg.Token,
		Side:        opp.FirstLeg.Side,
		Price:       opp.FirstLeg.Price,
		Size:        opinionSize,
		TimeInForce: "GTC",
	}
	polyReq := &venue.OrderRequest{
		TokenID:     opp.SecondLeg.Token,
		Side:        opp.SecondLeg.Side,
		Price:       opp.SecondLeg.Price,
		Size:        orderSize,
		TimeInForce: "GTC",
		TickSize:    polymarket.TickForPrice(opp.SecondLeg.Price),
		NegRisk:     opp.Match.NegRiskB,
		FeeRateBps:  opp.Match.FeeRateBpsB,
	}

	var legs sync.WaitGroup
	legs.Add(2)
	go func() {
		defer legs.Done()
		e.placeWithRetry(ctx, e.opinion, opinionReq, "taker-first-leg")
	}()
	go func() {
		defer legs.Done()
		e.placeWithRetry(ctx, e.polymarket, polyReq, "taker-hedge-leg")
	}()
	legs.Wait()

	if e.config.OnExecuted != nil {
		e.config.OnExecuted(orderSize)
	}
}

// placeWithRetry submits one order with bounded retries. Balance
// exhaustion short-circuits into the fail-stop callback.
func (e *Executor) placeWithRetry(ctx context.Context, adapter venue.Adapter, req *venue.OrderRequest, tag string) {
	retries := e.config.MaxRetries
	if retries <= 0 {
		retries = 1
	}

	var lastErr error
	for attempt := 1; attempt <= retries; attempt++ {
		ack, err := adapter.PlaceOrder(ctx, req)
		if err == nil {
			OrdersPlacedTotal.WithLabelValues(string(adapter.Name())).Inc()
			e.logger.Info("taker-order-placed",
				zap.String("tag", tag),
				zap.String("venue", string(adapter.Name())),
				zap.String("order-id", ack.OrderID),
				zap.Float64("price", req.Price),
				zap.Float64("size", req.Size))
			return
		}
		lastErr = err

		if types.IsBalanceExhausted(err) {
			e.failStop(err)
			return
		}
		if !types.IsRetryable(err) {
			break
		}

		e.logger.Warn("taker-order-attempt-failed",
			zap.String("tag", tag),
			zap.String("venue", string(adapter.Name())),
			zap.Int("attempt", attempt),
			zap.Error(err))

		if attempt < retries {
			select {
			case <-time.After(e.config.RetryDelay):
			case <-ctx.Done():
				return
			}
		}
	}

	OrderFailuresTotal.WithLabelValues(string(adapter.Name())).Inc()
	e.logger.Error("taker-order-failed",
		zap.String("tag", tag),
		zap.String("venue", string(adapter.Name())),
		zap.Error(lastErr))
}

func (e *Executor) failStop(err error) {
	e.fatalOnce.Do(func() {
		e.logger.Error("balance-exhausted-fail-stop", zap.Error(err))
		if e.config.OnFatal != nil {
			e.config.OnFatal(err)
		}
	})
}
