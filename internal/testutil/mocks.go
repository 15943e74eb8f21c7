// Package testutil provides scripted venue adapters for tests.
package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/crossvenue/opinion-arb/internal/venue"
	"github.com/crossvenue/opinion-arb/pkg/types"
)

// MockAdapter is a scripted venue.Adapter that records calls.
type MockAdapter struct {
	VenueName types.Venue

	mu sync.Mutex

	// Scripted state
	Books      map[string]*types.OrderBookSnapshot
	BookErrs   map[string]error
	Orders     map[string]*venue.OrderInfo
	Trades     []types.Trade
	PlaceErr   error
	CancelErr  error
	BulkErr    error
	NoBulk     bool
	nextID     int
	PlaceHook  func(req *venue.OrderRequest) (*venue.OrderAck, error)
	CancelHook func(orderID string) error

	// Recorded calls
	PlacedOrders  []*venue.OrderRequest
	CancelledIDs  []string
	BulkRequests  [][]string
	SingleFetches []string
}

// NewMockAdapter creates an empty scripted adapter.
func NewMockAdapter(name types.Venue) *MockAdapter {
	return &MockAdapter{
		VenueName: name,
		Books:     make(map[string]*types.OrderBookSnapshot),
		BookErrs:  make(map[string]error),
		Orders:    make(map[string]*venue.OrderInfo),
	}
}

// Name implements venue.Adapter.
func (m *MockAdapter) Name() types.Venue {
	return m.VenueName
}

// SetBook scripts a book for a token.
func (m *MockAdapter) SetBook(tokenID string, snap *types.OrderBookSnapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Books[tokenID] = snap
}

// SetOrder scripts the result of GetOrder.
func (m *MockAdapter) SetOrder(orderID string, info *venue.OrderInfo) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Orders[orderID] = info
}

// FetchBook implements venue.Adapter.
func (m *MockAdapter) FetchBook(_ context.Context, tokenID string) (*types.OrderBookSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.SingleFetches = append(m.SingleFetches, tokenID)
	if err, ok := m.BookErrs[tokenID]; ok {
		return nil, err
	}
	snap, ok := m.Books[tokenID]
	if !ok {
		return nil, &types.VenueError{
			Venue:   m.VenueName,
			Kind:    types.ErrKindRetryable,
			Message: fmt.Sprintf("no book for %s", tokenID),
		}
	}
	return snap, nil
}

// FetchBooksBulk implements venue.Adapter.
func (m *MockAdapter) FetchBooksBulk(_ context.Context, tokenIDs []string) (map[string]*types.OrderBookSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.NoBulk {
		return nil, venue.ErrBulkUnsupported
	}

	m.BulkRequests = append(m.BulkRequests, append([]string(nil), tokenIDs...))
	if m.BulkErr != nil {
		return nil, m.BulkErr
	}

	result := make(map[string]*types.OrderBookSnapshot)
	for _, id := range tokenIDs {
		if snap, ok := m.Books[id]; ok {
			result[id] = snap
		}
	}
	return result, nil
}

// PlaceOrder implements venue.Adapter.
func (m *MockAdapter) PlaceOrder(_ context.Context, req *venue.OrderRequest) (*venue.OrderAck, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.PlaceHook != nil {
		ack, err := m.PlaceHook(req)
		if err == nil {
			m.PlacedOrders = append(m.PlacedOrders, req)
		}
		return ack, err
	}

	if m.PlaceErr != nil {
		return nil, m.PlaceErr
	}

	m.PlacedOrders = append(m.PlacedOrders, req)
	m.nextID++
	return &venue.OrderAck{OrderID: fmt.Sprintf("%s-order-%d", m.VenueName, m.nextID)}, nil
}

// CancelOrder implements venue.Adapter.
func (m *MockAdapter) CancelOrder(_ context.Context, orderID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.CancelHook != nil {
		if err := m.CancelHook(orderID); err != nil {
			return err
		}
		m.CancelledIDs = append(m.CancelledIDs, orderID)
		return nil
	}

	if m.CancelErr != nil {
		return m.CancelErr
	}
	m.CancelledIDs = append(m.CancelledIDs, orderID)
	return nil
}

// GetOrder implements venue.Adapter.
func (m *MockAdapter) GetOrder(_ context.Context, orderID string) (*venue.OrderInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	info, ok := m.Orders[orderID]
	if !ok {
		return nil, &types.VenueError{
			Venue:   m.VenueName,
			Kind:    types.ErrKindPermanent,
			Message: fmt.Sprintf("unknown order %s", orderID),
		}
	}
	return info, nil
}

// RecentTrades implements venue.Adapter.
func (m *MockAdapter) RecentTrades(_ context.Context, limit int) ([]types.Trade, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	trades := m.Trades
	if limit > 0 && len(trades) > limit {
		trades = trades[:limit]
	}
	return append([]types.Trade(nil), trades...), nil
}

// PlacedCount returns the number of successfully placed orders.
func (m *MockAdapter) PlacedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.PlacedOrders)
}

// Snapshot builds a one-level book for tests.
func Snapshot(v types.Venue, tokenID string, bidPrice, bidSize, askPrice, askSize float64) *types.OrderBookSnapshot {
	snap := &types.OrderBookSnapshot{Source: v, TokenID: tokenID}
	if bidSize > 0 {
		snap.Bids = []types.OrderBookLevel{{Price: bidPrice, Size: bidSize}}
	}
	if askSize > 0 {
		snap.Asks = []types.OrderBookLevel{{Price: askPrice, Size: askSize}}
	}
	return snap
}
