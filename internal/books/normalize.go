// Package books is the order-book fabric: snapshot normalization, NO-book
// derivation, batched cross-venue fetching with skew gating, and an
// optional realtime cache for the Opinion stream.
package books

import (
	"sort"

	"github.com/crossvenue/opinion-arb/pkg/types"
)

// Depth is the number of levels retained per side.
const Depth = 5

// SortLevels orders and caps one book side in place. asc selects ask
// ordering (ascending); bids are descending.
func SortLevels(levels []types.OrderBookLevel, asc bool) []types.OrderBookLevel {
	sort.Slice(levels, func(i, j int) bool {
		if asc {
			return levels[i].Price < levels[j].Price
		}
		return levels[i].Price > levels[j].Price
	})
	if len(levels) > Depth {
		levels = levels[:Depth]
	}
	return levels
}

// DeriveNoBook produces the NO-token book implied by a YES book: each YES
// ask at price p becomes a NO bid at 1-p with the same size, and each YES
// bid becomes a NO ask. Sides are re-sorted and capped.
func DeriveNoBook(yes *types.OrderBookSnapshot, noTokenID string) *types.OrderBookSnapshot {
	bids := make([]types.OrderBookLevel, 0, len(yes.Asks))
	for _, ask := range yes.Asks {
		bids = append(bids, types.OrderBookLevel{
			Price: types.RoundPrice(1 - ask.Price),
			Size:  ask.Size,
		})
	}

	asks := make([]types.OrderBookLevel, 0, len(yes.Bids))
	for _, bid := range yes.Bids {
		asks = append(asks, types.OrderBookLevel{
			Price: types.RoundPrice(1 - bid.Price),
			Size:  bid.Size,
		})
	}

	return &types.OrderBookSnapshot{
		Source:    yes.Source,
		TokenID:   noTokenID,
		Bids:      SortLevels(bids, false),
		Asks:      SortLevels(asks, true),
		FetchedAt: yes.FetchedAt,
	}
}
