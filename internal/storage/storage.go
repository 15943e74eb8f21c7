// Package storage persists detected opportunities and observed maker
// fills for later analysis.
package storage

import (
	"context"

	"github.com/crossvenue/opinion-arb/internal/arbitrage"
)

// Fill is one recorded maker fill delta and its hedge outcome.
type Fill struct {
	OrderID  string
	Key      string
	Token    string
	Price    float64
	Delta    float64
	Hedged   float64
	Source   string // status-poll or trade-tape
	Question string
}

// Storage is the interface for persisting engine events.
type Storage interface {
	// StoreOpportunity records a detected taker opportunity.
	StoreOpportunity(ctx context.Context, opp *arbitrage.Opportunity) error

	// StoreFill records an observed maker fill delta.
	StoreFill(ctx context.Context, fill *Fill) error

	// Close closes the storage connection.
	Close() error
}
