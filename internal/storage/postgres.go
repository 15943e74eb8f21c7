package storage

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/crossvenue/opinion-arb/internal/arbitrage"
)

// PostgresStorage implements Storage using PostgreSQL.
type PostgresStorage struct {
	db     *sql.DB
	logger *zap.Logger
}

// PostgresConfig holds PostgreSQL connection settings.
type PostgresConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	SSLMode  string
	Logger   *zap.Logger
}

// NewPostgresStorage opens and pings the database.
func NewPostgresStorage(cfg *PostgresConfig) (*PostgresStorage, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	cfg.Logger.Info("postgres-storage-connected",
		zap.String("host", cfg.Host),
		zap.String("database", cfg.Database))

	return &PostgresStorage{db: db, logger: cfg.Logger}, nil
}

// StoreOpportunity inserts one detected opportunity row.
func (p *PostgresStorage) StoreOpportunity(ctx context.Context, opp *arbitrage.Opportunity) error {
	query := `
		INSERT INTO opportunities (
			id, question, opinion_market_id, polymarket_slug, strategy,
			first_token, first_price, first_size,
			second_token, second_price, second_size,
			cost, profit_rate_pct, annualized_pct, min_size, detected_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16
		)
	`

	var annualized sql.NullFloat64
	if opp.Annualized != nil {
		annualized = sql.NullFloat64{Float64: *opp.Annualized, Valid: true}
	}

	_, err := p.db.ExecContext(ctx, query,
		opp.ID,
		opp.Match.Question,
		opp.Match.MarketIDA,
		opp.Match.SlugB,
		string(opp.Strategy),
		opp.FirstLeg.Token,
		opp.FirstLeg.Price,
		opp.FirstLeg.Size,
		opp.SecondLeg.Token,
		opp.SecondLeg.Price,
		opp.SecondLeg.Size,
		opp.Cost,
		opp.ProfitRate,
		annualized,
		opp.MinSize,
		opp.DetectedAt,
	)
	if err != nil {
		return fmt.Errorf("insert opportunity: %w", err)
	}

	p.logger.Debug("opportunity-stored",
		zap.String("opportunity-id", opp.ID),
		zap.String("strategy", string(opp.Strategy)))
	return nil
}

// StoreFill inserts one maker fill row.
func (p *PostgresStorage) StoreFill(ctx context.Context, fill *Fill) error {
	query := `
		INSERT INTO fills (
			order_id, order_key, token, price, delta, hedged, source, question
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8
		)
	`

	_, err := p.db.ExecContext(ctx, query,
		fill.OrderID,
		fill.Key,
		fill.Token,
		fill.Price,
		fill.Delta,
		fill.Hedged,
		fill.Source,
		fill.Question,
	)
	if err != nil {
		return fmt.Errorf("insert fill: %w", err)
	}

	p.logger.Debug("fill-stored",
		zap.String("order-id", fill.OrderID),
		zap.Float64("delta", fill.Delta))
	return nil
}

// Close closes the database connection.
func (p *PostgresStorage) Close() error {
	p.logger.Info("closing-postgres-storage")
	return p.db.Close()
}
