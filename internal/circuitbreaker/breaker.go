// Package circuitbreaker halts order placement when the funding wallet
// runs low. Thresholds follow recent trade sizes with hysteresis so a
// balance hovering near the floor does not flap the engine on and off.
package circuitbreaker

import (
	"context"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/crossvenue/opinion-arb/pkg/wallet"
)

const tradeWindow = 20

// Breaker gates order placement on the wallet USDC balance.
type Breaker struct {
	enabled atomic.Bool

	checkInterval   time.Duration
	fetcher         wallet.Fetcher
	address         common.Address
	logger          *zap.Logger
	tradeMultiplier float64
	minAbsolute     float64
	hysteresisRatio float64

	mu               sync.RWMutex
	lastBalance      float64
	lastCheck        time.Time
	recentTrades     []float64
	disableThreshold float64
	enableThreshold  float64
}

// Config holds circuit breaker configuration.
type Config struct {
	CheckInterval   time.Duration
	TradeMultiplier float64
	MinAbsolute     float64
	HysteresisRatio float64
	Fetcher         wallet.Fetcher
	Address         common.Address
	Logger          *zap.Logger
}

// Status is a point-in-time view for the ops endpoints.
type Status struct {
	Enabled          bool      `json:"enabled"`
	LastBalance      float64   `json:"last_balance"`
	LastCheck        time.Time `json:"last_check"`
	DisableThreshold float64   `json:"disable_threshold"`
	EnableThreshold  float64   `json:"enable_threshold"`
	AvgTradeSize     float64   `json:"avg_trade_size"`
	RecentTradeCount int       `json:"recent_trade_count"`
}

// New creates a circuit breaker. It starts enabled.
func New(cfg *Config) (*Breaker, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.Fetcher == nil {
		return nil, fmt.Errorf("fetcher cannot be nil")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	if cfg.CheckInterval <= 0 {
		return nil, fmt.Errorf("check interval must be positive")
	}
	if cfg.TradeMultiplier <= 0 {
		return nil, fmt.Errorf("trade multiplier must be positive")
	}
	if cfg.MinAbsolute <= 0 {
		return nil, fmt.Errorf("min absolute must be positive")
	}
	if cfg.HysteresisRatio < 1.0 {
		return nil, fmt.Errorf("hysteresis ratio must be >= 1.0")
	}

	b := &Breaker{
		checkInterval:    cfg.CheckInterval,
		fetcher:          cfg.Fetcher,
		address:          cfg.Address,
		logger:           cfg.Logger,
		tradeMultiplier:  cfg.TradeMultiplier,
		minAbsolute:      cfg.MinAbsolute,
		hysteresisRatio:  cfg.HysteresisRatio,
		recentTrades:     make([]float64, 0, tradeWindow),
		disableThreshold: cfg.MinAbsolute,
		enableThreshold:  cfg.MinAbsolute * cfg.HysteresisRatio,
	}
	b.enabled.Store(true)

	BreakerEnabled.Set(1)
	BreakerDisableThreshold.Set(b.disableThreshold)
	BreakerEnableThreshold.Set(b.enableThreshold)
	BreakerAvgTradeSize.Set(0)

	return b, nil
}

// IsEnabled reports whether orders may be placed. Lock-free, safe on
// hot paths.
func (b *Breaker) IsEnabled() bool {
	return b.enabled.Load()
}

// RecordTrade adds a filled trade size to the rolling window and
// recalculates the balance thresholds.
func (b *Breaker) RecordTrade(tradeSize float64) {
	if tradeSize <= 0 {
		b.logger.Warn("invalid-trade-size", zap.Float64("size", tradeSize))
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.recentTrades = append(b.recentTrades, tradeSize)
	if len(b.recentTrades) > tradeWindow {
		b.recentTrades = b.recentTrades[1:]
	}

	sum := 0.0
	for _, size := range b.recentTrades {
		sum += size
	}
	avg := sum / float64(len(b.recentTrades))

	b.disableThreshold = math.Max(avg*b.tradeMultiplier, b.minAbsolute)
	b.enableThreshold = b.disableThreshold * b.hysteresisRatio

	BreakerAvgTradeSize.Set(avg)
	BreakerDisableThreshold.Set(b.disableThreshold)
	BreakerEnableThreshold.Set(b.enableThreshold)

	b.logger.Debug("breaker-thresholds-updated",
		zap.Float64("avg-trade-size", avg),
		zap.Int("trade-count", len(b.recentTrades)),
		zap.Float64("disable-threshold", b.disableThreshold),
		zap.Float64("enable-threshold", b.enableThreshold))
}

// CheckBalance fetches the wallet balance and applies the hysteresis
// transition.
func (b *Breaker) CheckBalance(ctx context.Context) error {
	start := time.Now()
	defer func() {
		BreakerCheckDuration.Observe(time.Since(start).Seconds())
	}()

	balances, err := b.fetcher.GetBalances(ctx, b.address)
	if err != nil {
		b.logger.Error("balance-check-failed",
			zap.Error(err),
			zap.String("address", b.address.Hex()))
		return fmt.Errorf("get balances: %w", err)
	}
	balance := balances.USDCFloat()

	b.mu.Lock()
	b.lastBalance = balance
	b.lastCheck = time.Now()
	disableThreshold := b.disableThreshold
	enableThreshold := b.enableThreshold
	b.mu.Unlock()

	BreakerBalance.Set(balance)

	currentlyEnabled := b.enabled.Load()
	switch {
	case currentlyEnabled && balance < disableThreshold:
		b.enabled.Store(false)
		BreakerEnabled.Set(0)
		BreakerStateChanges.Inc()
		b.logger.Warn("breaker-tripped",
			zap.Float64("balance", balance),
			zap.Float64("disable-threshold", disableThreshold),
			zap.Float64("enable-threshold", enableThreshold))
	case !currentlyEnabled && balance >= enableThreshold:
		b.enabled.Store(true)
		BreakerEnabled.Set(1)
		BreakerStateChanges.Inc()
		b.logger.Info("breaker-reset",
			zap.Float64("balance", balance),
			zap.Float64("disable-threshold", disableThreshold),
			zap.Float64("enable-threshold", enableThreshold))
	default:
		b.logger.Debug("balance-checked",
			zap.Float64("balance", balance),
			zap.Bool("enabled", currentlyEnabled))
	}

	return nil
}

// Start checks the balance once and launches the background monitor.
func (b *Breaker) Start(ctx context.Context) {
	b.logger.Info("breaker-started",
		zap.Duration("check-interval", b.checkInterval),
		zap.Float64("trade-multiplier", b.tradeMultiplier),
		zap.Float64("min-absolute", b.minAbsolute),
		zap.Float64("hysteresis-ratio", b.hysteresisRatio))

	if err := b.CheckBalance(ctx); err != nil {
		b.logger.Error("initial-balance-check-failed", zap.Error(err))
	}

	go b.monitorLoop(ctx)
}

func (b *Breaker) monitorLoop(ctx context.Context) {
	ticker := time.NewTicker(b.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			b.logger.Info("breaker-stopped")
			return
		case <-ticker.C:
			if err := b.CheckBalance(ctx); err != nil {
				b.logger.Error("balance-check-error", zap.Error(err))
			}
		}
	}
}

// GetStatus returns the current breaker state for the ops endpoints.
func (b *Breaker) GetStatus() Status {
	b.mu.RLock()
	defer b.mu.RUnlock()

	avg := 0.0
	if len(b.recentTrades) > 0 {
		sum := 0.0
		for _, size := range b.recentTrades {
			sum += size
		}
		avg = sum / float64(len(b.recentTrades))
	}

	return Status{
		Enabled:          b.enabled.Load(),
		LastBalance:      b.lastBalance,
		LastCheck:        b.lastCheck,
		DisableThreshold: b.disableThreshold,
		EnableThreshold:  b.enableThreshold,
		AvgTradeSize:     avg,
		RecentTradeCount: len(b.recentTrades),
	}
}
