package app

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/crossvenue/opinion-arb/internal/arbitrage"
	"github.com/crossvenue/opinion-arb/internal/books"
	"github.com/crossvenue/opinion-arb/internal/circuitbreaker"
	"github.com/crossvenue/opinion-arb/internal/execution"
	"github.com/crossvenue/opinion-arb/internal/fees"
	"github.com/crossvenue/opinion-arb/internal/liquidity"
	"github.com/crossvenue/opinion-arb/internal/storage"
	"github.com/crossvenue/opinion-arb/internal/venue/opinion"
	"github.com/crossvenue/opinion-arb/internal/venue/polymarket"
	"github.com/crossvenue/opinion-arb/pkg/cache"
	"github.com/crossvenue/opinion-arb/pkg/config"
	"github.com/crossvenue/opinion-arb/pkg/healthprobe"
	"github.com/crossvenue/opinion-arb/pkg/httpserver"
	"github.com/crossvenue/opinion-arb/pkg/wallet"
)

// New creates an application instance for the given mode.
func New(cfg *config.Config, logger *zap.Logger, opts *Options) (*App, error) {
	if opts == nil {
		return nil, fmt.Errorf("options cannot be nil")
	}

	matches, err := LoadMatches(opts.MatchesFile, logger)
	if err != nil {
		return nil, fmt.Errorf("load matches: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	a := &App{
		cfg:           cfg,
		logger:        logger,
		opts:          opts,
		matches:       matches,
		healthChecker: healthprobe.New(),
		fatal:         make(chan error, 1),
		ctx:           ctx,
		cancel:        cancel,
	}

	if err := a.setupVenues(); err != nil {
		cancel()
		return nil, err
	}

	a.setupBooks()
	a.setupDetector()

	if err := a.setupStorage(); err != nil {
		cancel()
		return nil, err
	}
	if err := a.setupAccountMonitoring(); err != nil {
		cancel()
		return nil, err
	}

	switch opts.Mode {
	case ModePro:
		a.setupExecutor()
	case ModeLiquidity:
		a.setupLiquidity()
	default:
		cancel()
		return nil, fmt.Errorf("unknown mode %q", opts.Mode)
	}

	a.httpServer = httpserver.New(&httpserver.Config{
		Port:          cfg.HTTPPort,
		Logger:        logger,
		HealthChecker: a.healthChecker,
		OrderTable:    a.table,
		Stats:         a.stats,
		Breaker:       a.breaker,
	})

	return a, nil
}

// onFatal records the first fatal error; Run picks it up and stops the
// process with a non-zero exit.
func (a *App) onFatal(err error) {
	select {
	case a.fatal <- err:
	default:
	}
	a.cancel()
}

func (a *App) setupVenues() error {
	a.opinion = opinion.NewClient(&opinion.Config{
		BaseURL: a.cfg.OpinionBaseURL,
		APIKey:  a.cfg.OpinionAPIKey,
		MaxRPS:  a.cfg.OpinionMaxRPS,
		Logger:  a.logger,
	})

	metaCache, err := cache.NewRistrettoCache(&cache.RistrettoConfig{
		MaxItems: 1000,
		Logger:   a.logger,
	})
	if err != nil {
		return fmt.Errorf("setup metadata cache: %w", err)
	}

	var signer *polymarket.Signer
	if a.cfg.PolymarketPrivateKey != "" {
		signer, err = polymarket.NewSigner(&polymarket.SignerConfig{
			BaseURL:       a.cfg.PolymarketCLOBURL,
			APIKey:        a.cfg.PolymarketAPIKey,
			Secret:        a.cfg.PolymarketSecret,
			Passphrase:    a.cfg.PolymarketPassphrase,
			PrivateKey:    a.cfg.PolymarketPrivateKey,
			ProxyAddress:  a.cfg.PolymarketProxyAddr,
			SignatureType: a.cfg.PolymarketSigType,
			Logger:        a.logger,
		})
		if err != nil {
			return fmt.Errorf("setup polymarket signer: %w", err)
		}
	} else {
		a.logger.Warn("polymarket-signer-disabled",
			zap.String("reason", "no private key configured, scan-only"))
	}

	a.polymarket = polymarket.NewClient(&polymarket.Config{
		BaseURL:    a.cfg.PolymarketCLOBURL,
		BooksChunk: a.cfg.PolymarketBooksChunk,
		Signer:     signer,
		Metadata:   polymarket.NewMetadataCache(a.cfg.PolymarketCLOBURL, metaCache),
		Logger:     a.logger,
	})

	return nil
}

func (a *App) setupBooks() {
	if a.cfg.RealtimeBooks {
		tokens := make([]string, 0, len(a.matches))
		for _, m := range a.matches {
			tokens = append(tokens, m.YesTokenA)
		}
		a.realtime = books.NewRealtimeCache(&books.RealtimeConfig{
			URL:          a.cfg.OpinionWSURL,
			Tokens:       tokens,
			RESTFallback: a.opinion,
			Logger:       a.logger,
		})
	}

	a.fetcher = books.NewFetcher(a.opinion, a.polymarket, a.realtime, books.Config{
		BatchSize:      a.cfg.OrderbookBatchSize,
		OpinionWorkers: a.cfg.OpinionOrderbookWorkers,
		MaxSkew:        a.cfg.MaxOrderbookSkew,
		FetchTimeout:   a.cfg.BookFetchTimeout,
		Logger:         a.logger,
	})
}

func (a *App) setupDetector() {
	a.detector = arbitrage.NewDetector(fees.NewCalculator(a.cfg.OpinionMinFee), arbitrage.Config{
		ROIReferenceSize:       a.cfg.ROIReferenceSize,
		SecondsPerYear:         a.cfg.SecondsPerYear,
		ThresholdCost:          a.cfg.ArbThresholdCost,
		ThresholdSize:          a.cfg.ArbThresholdSize,
		LiquidityMinSize:       a.cfg.LiquidityMinSize,
		LiquidityTargetSize:    a.cfg.LiquidityTargetSize,
		LiquidityMinAnnualized: a.cfg.LiquidityMinAnnualized,
		Logger:                 a.logger,
	})
}

func (a *App) setupStorage() error {
	if a.cfg.StorageMode == "postgres" {
		store, err := storage.NewPostgresStorage(&storage.PostgresConfig{
			Host:     a.cfg.PostgresHost,
			Port:     a.cfg.PostgresPort,
			User:     a.cfg.PostgresUser,
			Password: a.cfg.PostgresPass,
			Database: a.cfg.PostgresDB,
			SSLMode:  a.cfg.PostgresSSL,
			Logger:   a.logger,
		})
		if err != nil {
			return fmt.Errorf("create postgres storage: %w", err)
		}
		a.store = store
		return nil
	}

	a.store = storage.NewConsoleStorage(a.logger)
	return nil
}

// setupAccountMonitoring wires the wallet monitor and the balance
// breaker. Both are optional: without a wallet address the engine runs
// without a balance floor.
func (a *App) setupAccountMonitoring() error {
	if a.cfg.WalletAddress == "" {
		a.logger.Warn("account-monitoring-disabled",
			zap.String("reason", "WALLET_ADDRESS not set"))
		return nil
	}

	walletClient, err := wallet.NewClient(a.cfg.WalletRPCURL, a.logger)
	if err != nil {
		return fmt.Errorf("create wallet client: %w", err)
	}
	address := common.HexToAddress(a.cfg.WalletAddress)

	a.walletMonitor, err = wallet.NewMonitor(&wallet.MonitorConfig{
		Fetcher:      walletClient,
		Address:      address,
		PollInterval: a.cfg.AccountMonitorInterval,
		Logger:       a.logger,
	})
	if err != nil {
		return fmt.Errorf("create wallet monitor: %w", err)
	}

	a.breaker, err = circuitbreaker.New(&circuitbreaker.Config{
		CheckInterval:   a.cfg.BreakerCheckInterval,
		TradeMultiplier: a.cfg.BreakerTradeMultiplier,
		MinAbsolute:     a.cfg.BreakerMinBalance,
		HysteresisRatio: a.cfg.BreakerHysteresisRatio,
		Fetcher:         walletClient,
		Address:         address,
		Logger:          a.logger,
	})
	if err != nil {
		return fmt.Errorf("create circuit breaker: %w", err)
	}

	return nil
}

func (a *App) setupExecutor() {
	var onExecuted func(float64)
	if a.breaker != nil {
		onExecuted = a.breaker.RecordTrade
	}

	a.executor = execution.NewExecutor(a.opinion, a.polymarket, fees.NewCalculator(a.cfg.OpinionMinFee),
		execution.Config{
			Enabled:          a.cfg.ImmediateExecEnabled,
			MinAnnualized:    a.cfg.ImmediateMinPercent,
			MaxAnnualized:    a.cfg.ImmediateMaxPercent,
			DefaultOrderSize: a.cfg.ImmediateOrderSize,
			MaxOrderSize:     a.cfg.ImmediateMaxSize,
			Cooldown:         a.cfg.ExecutionCooldown,
			MaxRetries:       a.cfg.OrderMaxRetries,
			RetryDelay:       a.cfg.OrderRetryDelay,
			OnFatal:          a.onFatal,
			OnExecuted:       onExecuted,
			Logger:           a.logger,
		})
}

func (a *App) setupLiquidity() {
	calc := fees.NewCalculator(a.cfg.OpinionMinFee)

	a.table = liquidity.NewTable(a.cfg.LiquidityMarkedTimeout)
	a.stats = liquidity.NewStats()

	a.hedger = liquidity.NewHedger(a.polymarket, a.table, a.tickSource(), a.stats,
		liquidity.HedgerConfig{
			MaxRetries: a.cfg.OrderMaxRetries,
			RetryDelay: a.cfg.OrderRetryDelay,
			OnFatal:    a.onFatal,
			Logger:     a.logger,
		})

	a.tracker = liquidity.NewTracker(a.opinion, a.table, a.hedger, a.stats,
		liquidity.TrackerConfig{
			StatusPollInterval: a.cfg.LiquidityStatusPollInterval,
			TradePollInterval:  a.cfg.LiquidityTradePollInterval,
			TradeLimit:         a.cfg.LiquidityTradeLimit,
			Logger:             a.logger,
		})

	a.provider = liquidity.NewProvider(a.opinion, a.detector, a.fetcher, a.table, a.hedger,
		calc, a.stats, a.matches,
		liquidity.ProviderConfig{
			MaxOrders:        a.cfg.MaxLiquidityOrders,
			TargetSize:       a.cfg.LiquidityTargetSize,
			MinSize:          a.cfg.LiquidityMinSize,
			PriceTolerance:   a.cfg.LiquidityPriceTolerance,
			RequoteIncrement: a.cfg.LiquidityRequoteIncrement,
			MaxRetries:       a.cfg.OrderMaxRetries,
			RetryDelay:       a.cfg.OrderRetryDelay,
			OnFatal:          a.onFatal,
			Logger:           a.logger,
		})
}

func (a *App) tickSource() liquidity.TickSource {
	if client, ok := a.polymarket.(*polymarket.Client); ok {
		if meta := client.Metadata(); meta != nil {
			return meta
		}
	}
	return nil
}
