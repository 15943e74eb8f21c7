// Package venue defines the narrow capability surface the engine requires
// from each trading venue, plus the request throttle shared by adapters.
package venue

import (
	"context"

	"github.com/crossvenue/opinion-arb/pkg/types"
)

// OrderRequest describes an order to place on either venue.
type OrderRequest struct {
	MarketID    int64 // Opinion market id; unused on Polymarket
	TokenID     string
	Side        types.Side
	Price       float64
	Size        float64
	TimeInForce string  // "GTC" unless stated otherwise
	TickSize    float64 // Polymarket only
	NegRisk     bool    // Polymarket only
	FeeRateBps  int     // Polymarket only
}

// OrderAck is the acknowledgement of a successful placement.
type OrderAck struct {
	OrderID string
}

// OrderInfo is the normalized view of a venue order.
type OrderInfo struct {
	Status types.OrderStatus
	Filled float64
	Total  float64
}

// Adapter is the capability surface each venue exposes to the core.
// Implementations classify failures via *types.VenueError.
type Adapter interface {
	Name() types.Venue

	// FetchBook returns the top levels for one token.
	FetchBook(ctx context.Context, tokenID string) (*types.OrderBookSnapshot, error)

	// FetchBooksBulk returns books for many tokens at once. Venues without
	// bulk support return ErrBulkUnsupported; callers fall back to FetchBook.
	FetchBooksBulk(ctx context.Context, tokenIDs []string) (map[string]*types.OrderBookSnapshot, error)

	PlaceOrder(ctx context.Context, req *OrderRequest) (*OrderAck, error)
	CancelOrder(ctx context.Context, orderID string) error
	GetOrder(ctx context.Context, orderID string) (*OrderInfo, error)

	// RecentTrades returns the latest fills for the account, newest first.
	// Venues without a trade tape return an empty slice.
	RecentTrades(ctx context.Context, limit int) ([]types.Trade, error)
}

// ErrBulkUnsupported is returned by adapters without a bulk book endpoint.
var ErrBulkUnsupported = &types.VenueError{
	Kind:    types.ErrKindPermanent,
	Message: "bulk book fetch not supported",
}
