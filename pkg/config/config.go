package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	// Application
	LogLevel string
	HTTPPort string

	// Opinion API
	OpinionBaseURL         string
	OpinionWSURL           string
	OpinionAPIKey          string
	OpinionMaxRPS          float64
	OpinionOrderbookWorkers int
	OpinionMinFee          float64

	// Polymarket API
	PolymarketCLOBURL    string
	PolymarketWSURL      string
	PolymarketAPIKey     string
	PolymarketSecret     string
	PolymarketPassphrase string
	PolymarketPrivateKey string
	PolymarketProxyAddr  string
	PolymarketSigType    int
	PolymarketBooksChunk int

	// Book fetching
	OrderbookBatchSize int
	MaxOrderbookSkew   time.Duration
	BookFetchTimeout   time.Duration
	RealtimeBooks      bool

	// Order placement
	OrderMaxRetries int
	OrderRetryDelay time.Duration

	// Profitability
	ROIReferenceSize     float64
	SecondsPerYear       float64
	MinAnnualizedPercent float64
	ArbThresholdCost     float64
	ArbThresholdSize     float64

	// Immediate (taker) execution
	ImmediateExecEnabled bool
	ImmediateMinPercent  float64
	ImmediateMaxPercent  float64
	ImmediateOrderSize   float64
	ImmediateMaxSize     float64
	ExecutionCooldown    time.Duration

	// Liquidity (maker) provision
	LiquidityMinAnnualized      float64
	LiquidityMinSize            float64
	LiquidityTargetSize         float64
	MaxLiquidityOrders          int
	LiquidityPriceTolerance     float64
	LiquidityRequoteIncrement   float64
	LiquidityStatusPollInterval time.Duration
	LiquidityTradePollInterval  time.Duration
	LiquidityTradeLimit         int
	LiquidityLoopInterval       time.Duration
	LiquidityWaitTimeout        time.Duration
	LiquidityMarkedTimeout      time.Duration
	LiquidityDebug              bool

	// Loop drivers
	ProLoopInterval     time.Duration
	PendingExecTimeout  time.Duration
	PendingPollInterval time.Duration

	// Account monitoring
	AccountMonitorInterval   time.Duration
	OrderStatusFallbackAfter time.Duration
	WalletRPCURL             string
	WalletAddress            string
	BreakerMinBalance        float64
	BreakerCheckInterval     time.Duration
	BreakerTradeMultiplier   float64
	BreakerHysteresisRatio   float64

	// Storage
	StorageMode  string // "postgres" or "console"
	PostgresHost string
	PostgresPort string
	PostgresUser string
	PostgresPass string
	PostgresDB   string
	PostgresSSL  string
}

// LoadFromEnv loads configuration from environment variables with defaults.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		// Application defaults
		LogLevel: getEnvOrDefault("LOG_LEVEL", "info"),
		HTTPPort: getEnvOrDefault("HTTP_PORT", "8080"),

		// Opinion API defaults
		OpinionBaseURL:          getEnvOrDefault("OPINION_BASE_URL", "https://api.opinion.trade"),
		OpinionWSURL:            getEnvOrDefault("OPINION_WS_URL", "wss://api.opinion.trade/ws"),
		OpinionAPIKey:           os.Getenv("OPINION_API_KEY"),
		OpinionMaxRPS:           getFloat64OrDefault("OPINION_MAX_RPS", 15),
		OpinionOrderbookWorkers: getIntOrDefault("OPINION_ORDERBOOK_WORKERS", 5),
		OpinionMinFee:           getFloat64OrDefault("OPINION_MIN_FEE", 0.5),

		// Polymarket API defaults
		PolymarketCLOBURL:    getEnvOrDefault("POLYMARKET_CLOB_URL", "https://clob.polymarket.com"),
		PolymarketWSURL:      getEnvOrDefault("POLYMARKET_WS_URL", "wss://ws-subscriptions-clob.polymarket.com/ws/market"),
		PolymarketAPIKey:     os.Getenv("POLYMARKET_API_KEY"),
		PolymarketSecret:     os.Getenv("POLYMARKET_SECRET"),
		PolymarketPassphrase: os.Getenv("POLYMARKET_PASSPHRASE"),
		PolymarketPrivateKey: os.Getenv("POLYMARKET_PRIVATE_KEY"),
		PolymarketProxyAddr:  os.Getenv("POLYMARKET_PROXY_ADDRESS"),
		PolymarketSigType:    getIntOrDefault("POLYMARKET_SIGNATURE_TYPE", 0),
		PolymarketBooksChunk: getIntOrDefault("POLYMARKET_BOOKS_CHUNK", 25),

		// Book fetching defaults
		OrderbookBatchSize: getIntOrDefault("ORDERBOOK_BATCH_SIZE", 20),
		MaxOrderbookSkew:   getDurationOrDefault("MAX_ORDERBOOK_SKEW", 3*time.Second),
		BookFetchTimeout:   getDurationOrDefault("BOOK_FETCH_TIMEOUT", 10*time.Second),
		RealtimeBooks:      getBoolOrDefault("REALTIME_BOOKS", false),

		// Order placement defaults
		OrderMaxRetries: getIntOrDefault("ORDER_MAX_RETRIES", 3),
		OrderRetryDelay: getDurationOrDefault("ORDER_RETRY_DELAY", 1*time.Second),

		// Profitability defaults
		ROIReferenceSize:     getFloat64OrDefault("ROI_REFERENCE_SIZE", 200),
		SecondsPerYear:       getFloat64OrDefault("SECONDS_PER_YEAR", 365*24*3600),
		MinAnnualizedPercent: getFloat64OrDefault("MIN_ANNUALIZED_PERCENT", 18),
		ArbThresholdCost:     getFloat64OrDefault("ARB_THRESHOLD_COST", 0.97),
		ArbThresholdSize:     getFloat64OrDefault("ARB_THRESHOLD_SIZE", 200),

		// Immediate execution defaults
		ImmediateExecEnabled: getBoolOrDefault("IMMEDIATE_EXEC_ENABLED", true),
		ImmediateMinPercent:  getFloat64OrDefault("IMMEDIATE_MIN_PERCENT", 2.0),
		ImmediateMaxPercent:  getFloat64OrDefault("IMMEDIATE_MAX_PERCENT", 50.0),
		ImmediateOrderSize:   getFloat64OrDefault("IMMEDIATE_ORDER_SIZE", 200),
		ImmediateMaxSize:     getFloat64OrDefault("IMMEDIATE_MAX_SIZE", 1000),
		ExecutionCooldown:    getDurationOrDefault("EXECUTION_COOLDOWN", 5*time.Second),

		// Liquidity defaults
		LiquidityMinAnnualized:      getFloat64OrDefault("LIQUIDITY_MIN_ANNUALIZED", 20.0),
		LiquidityMinSize:            getFloat64OrDefault("LIQUIDITY_MIN_SIZE", 100),
		LiquidityTargetSize:         getFloat64OrDefault("LIQUIDITY_TARGET_SIZE", 250),
		MaxLiquidityOrders:          getIntOrDefault("MAX_LIQUIDITY_ORDERS", 20),
		LiquidityPriceTolerance:     getFloat64OrDefault("LIQUIDITY_PRICE_TOLERANCE", 0.003),
		LiquidityRequoteIncrement:   getFloat64OrDefault("LIQUIDITY_REQUOTE_INCREMENT", 0.0),
		LiquidityStatusPollInterval: getDurationOrDefault("LIQUIDITY_STATUS_POLL_INTERVAL", 1500*time.Millisecond),
		LiquidityTradePollInterval:  getDurationOrDefault("LIQUIDITY_TRADE_POLL_INTERVAL", 2*time.Second),
		LiquidityTradeLimit:         getIntOrDefault("LIQUIDITY_TRADE_LIMIT", 40),
		LiquidityLoopInterval:       getDurationOrDefault("LIQUIDITY_LOOP_INTERVAL", 12*time.Second),
		LiquidityWaitTimeout:        getDurationOrDefault("LIQUIDITY_WAIT_TIMEOUT", 60*time.Second),
		LiquidityMarkedTimeout:      getDurationOrDefault("LIQUIDITY_MARKED_REMOVAL_TIMEOUT", 5*time.Minute),
		LiquidityDebug:              getBoolOrDefault("LIQUIDITY_DEBUG", false),

		// Loop driver defaults
		ProLoopInterval:     getDurationOrDefault("PRO_LOOP_INTERVAL", 90*time.Second),
		PendingExecTimeout:  getDurationOrDefault("PENDING_EXEC_TIMEOUT", 300*time.Second),
		PendingPollInterval: getDurationOrDefault("PENDING_POLL_INTERVAL", 5*time.Second),

		// Account monitoring defaults
		AccountMonitorInterval:   getDurationOrDefault("ACCOUNT_MONITOR_INTERVAL", 3*time.Second),
		OrderStatusFallbackAfter: getDurationOrDefault("ORDER_STATUS_FALLBACK_AFTER", 10*time.Second),
		WalletRPCURL:             getEnvOrDefault("WALLET_RPC_URL", "https://polygon-rpc.com"),
		WalletAddress:            os.Getenv("WALLET_ADDRESS"),
		BreakerMinBalance:        getFloat64OrDefault("BREAKER_MIN_BALANCE", 50.0),
		BreakerCheckInterval:     getDurationOrDefault("BREAKER_CHECK_INTERVAL", 30*time.Second),
		BreakerTradeMultiplier:   getFloat64OrDefault("BREAKER_TRADE_MULTIPLIER", 2.0),
		BreakerHysteresisRatio:   getFloat64OrDefault("BREAKER_HYSTERESIS_RATIO", 1.5),

		// Storage defaults
		StorageMode:  getEnvOrDefault("STORAGE_MODE", "console"),
		PostgresHost: getEnvOrDefault("POSTGRES_HOST", "localhost"),
		PostgresPort: getEnvOrDefault("POSTGRES_PORT", "5432"),
		PostgresUser: getEnvOrDefault("POSTGRES_USER", "opinion"),
		PostgresPass: getEnvOrDefault("POSTGRES_PASSWORD", "opinion123"),
		PostgresDB:   getEnvOrDefault("POSTGRES_DB", "opinion_arb"),
		PostgresSSL:  getEnvOrDefault("POSTGRES_SSLMODE", "disable"),
	}

	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// Validate checks that configuration values are valid.
func (c *Config) Validate() error {
	if c.HTTPPort == "" {
		return fmt.Errorf("HTTP_PORT cannot be empty")
	}

	if c.OpinionBaseURL == "" {
		return fmt.Errorf("OPINION_BASE_URL cannot be empty")
	}

	if c.PolymarketCLOBURL == "" {
		return fmt.Errorf("POLYMARKET_CLOB_URL cannot be empty")
	}

	if c.OpinionMaxRPS <= 0 {
		return fmt.Errorf("OPINION_MAX_RPS must be positive, got %f", c.OpinionMaxRPS)
	}

	if c.OpinionOrderbookWorkers <= 0 {
		return fmt.Errorf("OPINION_ORDERBOOK_WORKERS must be positive, got %d", c.OpinionOrderbookWorkers)
	}

	if c.PolymarketBooksChunk <= 0 {
		return fmt.Errorf("POLYMARKET_BOOKS_CHUNK must be positive, got %d", c.PolymarketBooksChunk)
	}

	if c.ImmediateMinPercent > c.ImmediateMaxPercent {
		return fmt.Errorf("IMMEDIATE_MIN_PERCENT %f exceeds IMMEDIATE_MAX_PERCENT %f",
			c.ImmediateMinPercent, c.ImmediateMaxPercent)
	}

	if c.MaxLiquidityOrders <= 0 {
		return fmt.Errorf("MAX_LIQUIDITY_ORDERS must be positive, got %d", c.MaxLiquidityOrders)
	}

	if c.StorageMode != "postgres" && c.StorageMode != "console" {
		return fmt.Errorf("STORAGE_MODE must be 'postgres' or 'console', got %q", c.StorageMode)
	}

	return nil
}

func getEnvOrDefault(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	intVal, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return intVal
}

func getFloat64OrDefault(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	floatVal, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}

	return floatVal
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	duration, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}

	return duration
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	boolVal, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}

	return boolVal
}
