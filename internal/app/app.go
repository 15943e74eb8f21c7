// Package app wires the engine together and drives the scan loops.
package app

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/crossvenue/opinion-arb/internal/arbitrage"
	"github.com/crossvenue/opinion-arb/internal/books"
	"github.com/crossvenue/opinion-arb/internal/circuitbreaker"
	"github.com/crossvenue/opinion-arb/internal/execution"
	"github.com/crossvenue/opinion-arb/internal/liquidity"
	"github.com/crossvenue/opinion-arb/internal/storage"
	"github.com/crossvenue/opinion-arb/internal/venue"
	"github.com/crossvenue/opinion-arb/pkg/config"
	"github.com/crossvenue/opinion-arb/pkg/healthprobe"
	"github.com/crossvenue/opinion-arb/pkg/httpserver"
	"github.com/crossvenue/opinion-arb/pkg/types"
	"github.com/crossvenue/opinion-arb/pkg/wallet"
)

// Mode selects which loop the app drives.
type Mode string

const (
	// ModePro runs the taker scan loop.
	ModePro Mode = "pro"
	// ModeLiquidity runs the maker provision loop.
	ModeLiquidity Mode = "liquidity"
)

// Options holds per-invocation options from the CLI.
type Options struct {
	Mode        Mode
	MatchesFile string // comma-separated list of match files
	Once        bool   // run a single cycle and exit
}

// App is the application orchestrator.
type App struct {
	cfg    *config.Config
	logger *zap.Logger
	opts   *Options

	matches []types.MarketMatch

	opinion    venue.Adapter
	polymarket venue.Adapter
	fetcher    *books.Fetcher
	realtime   *books.RealtimeCache
	detector   *arbitrage.Detector

	executor *execution.Executor

	table    *liquidity.Table
	stats    *liquidity.Stats
	hedger   *liquidity.Hedger
	tracker  *liquidity.Tracker
	provider *liquidity.Provider

	breaker       *circuitbreaker.Breaker
	walletMonitor *wallet.Monitor
	store         storage.Storage

	healthChecker *healthprobe.HealthChecker
	httpServer    *httpserver.Server

	fatal  chan error
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}
