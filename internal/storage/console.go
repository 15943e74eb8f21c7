package storage

import (
	"context"

	"go.uber.org/zap"

	"github.com/crossvenue/opinion-arb/internal/arbitrage"
)

// ConsoleStorage implements Storage by logging events.
type ConsoleStorage struct {
	logger *zap.Logger
}

// NewConsoleStorage creates a console storage.
func NewConsoleStorage(logger *zap.Logger) *ConsoleStorage {
	logger.Info("console-storage-initialized")
	return &ConsoleStorage{logger: logger}
}

// StoreOpportunity logs a detected opportunity.
func (c *ConsoleStorage) StoreOpportunity(_ context.Context, opp *arbitrage.Opportunity) error {
	fields := []zap.Field{
		zap.String("opportunity-id", opp.ID),
		zap.String("question", opp.Match.Question),
		zap.String("strategy", string(opp.Strategy)),
		zap.Float64("cost", opp.Cost),
		zap.Float64("profit-rate-pct", opp.ProfitRate),
		zap.Float64("min-size", opp.MinSize),
		zap.Time("detected-at", opp.DetectedAt),
	}
	if opp.Annualized != nil {
		fields = append(fields, zap.Float64("annualized-pct", *opp.Annualized))
	}
	c.logger.Info("opportunity-recorded", fields...)
	return nil
}

// StoreFill logs an observed maker fill.
func (c *ConsoleStorage) StoreFill(_ context.Context, fill *Fill) error {
	c.logger.Info("fill-recorded",
		zap.String("order-id", fill.OrderID),
		zap.String("key", fill.Key),
		zap.Float64("price", fill.Price),
		zap.Float64("delta", fill.Delta),
		zap.Float64("hedged", fill.Hedged),
		zap.String("source", fill.Source))
	return nil
}

// Close is a no-op for console storage.
func (c *ConsoleStorage) Close() error {
	c.logger.Info("closing-console-storage")
	return nil
}
