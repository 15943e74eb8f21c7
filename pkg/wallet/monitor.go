package wallet

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// Fetcher fetches on-chain balances. Client implements it; tests mock it.
type Fetcher interface {
	GetBalances(ctx context.Context, address common.Address) (*Balances, error)
}

// Monitor periodically polls wallet balances and publishes them as metrics.
type Monitor struct {
	fetcher      Fetcher
	address      common.Address
	pollInterval time.Duration
	logger       *zap.Logger
}

// MonitorConfig holds monitor configuration.
type MonitorConfig struct {
	Fetcher      Fetcher
	Address      common.Address
	PollInterval time.Duration
	Logger       *zap.Logger
}

// NewMonitor creates a wallet balance monitor.
func NewMonitor(cfg *MonitorConfig) (*Monitor, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}
	if cfg.Fetcher == nil {
		return nil, errors.New("fetcher cannot be nil")
	}
	if cfg.Logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if cfg.PollInterval <= 0 {
		return nil, errors.New("poll interval must be positive")
	}

	return &Monitor{
		fetcher:      cfg.Fetcher,
		address:      cfg.Address,
		pollInterval: cfg.PollInterval,
		logger:       cfg.Logger,
	}, nil
}

// Run starts the polling loop and blocks until the context is cancelled.
func (m *Monitor) Run(ctx context.Context) error {
	m.logger.Info("wallet-monitor-starting",
		zap.Duration("poll-interval", m.pollInterval),
		zap.String("address", m.address.Hex()))

	ticker := time.NewTicker(m.pollInterval)
	defer ticker.Stop()

	if err := m.Poll(ctx); err != nil {
		m.logger.Error("initial-poll-failed", zap.Error(err))
		UpdateErrorsTotal.Inc()
	}

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("wallet-monitor-stopping")
			return ctx.Err()
		case <-ticker.C:
			if err := m.Poll(ctx); err != nil {
				m.logger.Error("poll-failed", zap.Error(err))
				UpdateErrorsTotal.Inc()
			}
		}
	}
}

// Poll performs one balance fetch and updates the gauges.
func (m *Monitor) Poll(ctx context.Context) error {
	start := time.Now()
	defer func() {
		UpdateDuration.Observe(time.Since(start).Seconds())
	}()

	fetchCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	balances, err := m.fetcher.GetBalances(fetchCtx, m.address)
	if err != nil {
		return fmt.Errorf("get balances: %w", err)
	}

	MATICBalance.Set(weiToFloat(balances.MATIC))
	USDCBalance.Set(balances.USDCFloat())
	allowance, _ := new(big.Float).Quo(
		new(big.Float).SetInt(balances.USDCAllowance), big.NewFloat(1e6)).Float64()
	USDCAllowance.Set(allowance)
	LastUpdateTimestamp.Set(float64(time.Now().Unix()))

	m.logger.Debug("wallet-poll-complete",
		zap.Float64("usdc", balances.USDCFloat()),
		zap.Duration("duration", time.Since(start)))

	return nil
}

func weiToFloat(wei *big.Int) float64 {
	v, _ := new(big.Float).Quo(new(big.Float).SetInt(wei), big.NewFloat(1e18)).Float64()
	return v
}
