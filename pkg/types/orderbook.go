package types

import (
	"math"
	"time"
)

// Venue identifies one of the two trading venues.
type Venue string

const (
	VenueOpinion    Venue = "opinion"
	VenuePolymarket Venue = "polymarket"
)

// Side is an order side.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// PriceDecimals is the authoritative price precision everywhere in the engine.
const PriceDecimals = 3

// RoundPrice rounds a price to 3 decimals, half away from zero.
func RoundPrice(p float64) float64 {
	return math.Round(p*1000) / 1000
}

// OrderBookLevel is a single price level. Size is outcome-token quantity.
type OrderBookLevel struct {
	Price float64 `json:"price"`
	Size  float64 `json:"size"`
}

// OrderBookSnapshot holds the top levels of one side of a market.
// Bids are sorted descending by price, asks ascending.
type OrderBookSnapshot struct {
	Source    Venue
	TokenID   string
	Bids      []OrderBookLevel
	Asks      []OrderBookLevel
	FetchedAt time.Time
}

// BestBid returns the top bid, or false when the side is empty.
func (s *OrderBookSnapshot) BestBid() (OrderBookLevel, bool) {
	if len(s.Bids) == 0 {
		return OrderBookLevel{}, false
	}
	return s.Bids[0], true
}

// BestAsk returns the top ask, or false when the side is empty.
func (s *OrderBookSnapshot) BestAsk() (OrderBookLevel, bool) {
	if len(s.Asks) == 0 {
		return OrderBookLevel{}, false
	}
	return s.Asks[0], true
}

// Crossed reports whether best_ask <= best_bid with both sides present.
func (s *OrderBookSnapshot) Crossed() bool {
	bid, okB := s.BestBid()
	ask, okA := s.BestAsk()
	return okB && okA && ask.Price <= bid.Price
}

// SkewExceeds reports whether the fetch timestamps of two snapshots differ
// by more than maxSkew.
func SkewExceeds(a, b *OrderBookSnapshot, maxSkew time.Duration) bool {
	d := a.FetchedAt.Sub(b.FetchedAt)
	if d < 0 {
		d = -d
	}
	return d > maxSkew
}
