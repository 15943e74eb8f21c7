package books

import (
	"context"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/crossvenue/opinion-arb/internal/venue"
	"github.com/crossvenue/opinion-arb/pkg/types"
)

// RealtimeCache keeps Opinion YES books current from the venue's websocket
// stream. Snapshot messages replace a book; diff messages update single
// levels (size 0 removes). A diff that leaves the book crossed triggers one
// REST re-sync.
type RealtimeCache struct {
	url     string
	rest    venue.Adapter
	tokens  []string
	logger  *zap.Logger
	dialer  *websocket.Dialer
	backoff backoffState

	mu    sync.RWMutex
	books map[string]*types.OrderBookSnapshot

	wg sync.WaitGroup
}

// RealtimeConfig holds realtime cache configuration.
type RealtimeConfig struct {
	URL          string
	Tokens       []string // YES tokens to subscribe
	RESTFallback venue.Adapter
	Logger       *zap.Logger
}

type backoffState struct {
	initial    time.Duration
	max        time.Duration
	multiplier float64
	jitter     float64
	current    time.Duration
}

// NewRealtimeCache creates a realtime cache; Start must be called.
func NewRealtimeCache(cfg *RealtimeConfig) *RealtimeCache {
	return &RealtimeCache{
		url:    cfg.URL,
		rest:   cfg.RESTFallback,
		tokens: cfg.Tokens,
		logger: cfg.Logger,
		dialer: &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		backoff: backoffState{
			initial:    time.Second,
			max:        30 * time.Second,
			multiplier: 2.0,
			jitter:     0.2,
			current:    time.Second,
		},
		books: make(map[string]*types.OrderBookSnapshot),
	}
}

// Start runs the connect/read loop until ctx is cancelled.
func (c *RealtimeCache) Start(ctx context.Context) {
	c.wg.Add(1)
	go c.connectLoop(ctx)
}

// Close waits for the stream goroutine to exit.
func (c *RealtimeCache) Close() error {
	c.wg.Wait()
	return nil
}

// Get returns the cached book for a token.
func (c *RealtimeCache) Get(tokenID string) (*types.OrderBookSnapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	snap, ok := c.books[tokenID]
	return snap, ok
}

func (c *RealtimeCache) connectLoop(ctx context.Context) {
	defer c.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		conn, err := c.dial(ctx)
		if err != nil {
			c.logger.Warn("realtime-connect-failed", zap.Error(err))
			if !c.sleepBackoff(ctx) {
				return
			}
			continue
		}

		c.backoff.current = c.backoff.initial
		c.logger.Info("realtime-stream-connected", zap.Int("tokens", len(c.tokens)))

		c.readLoop(ctx, conn)
		_ = conn.Close()

		if ctx.Err() != nil {
			return
		}
		RealtimeReconnectsTotal.Inc()
		if !c.sleepBackoff(ctx) {
			return
		}
	}
}

func (c *RealtimeCache) dial(ctx context.Context) (*websocket.Conn, error) {
	conn, _, err := c.dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return nil, err
	}

	sub := map[string]any{"op": "subscribe", "channel": "orderbook", "tokens": c.tokens}
	if err := conn.WriteJSON(sub); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return conn, nil
}

// sleepBackoff waits the current backoff with jitter, growing it for the
// next attempt. Returns false when ctx is done.
func (c *RealtimeCache) sleepBackoff(ctx context.Context) bool {
	jittered := float64(c.backoff.current) * (1 + rand.Float64()*c.backoff.jitter)

	next := time.Duration(float64(c.backoff.current) * c.backoff.multiplier)
	if next > c.backoff.max {
		next = c.backoff.max
	}
	c.backoff.current = next

	select {
	case <-time.After(time.Duration(jittered)):
		return true
	case <-ctx.Done():
		return false
	}
}

type streamLevel struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

type streamMessage struct {
	Type    string        `json:"type"` // "snapshot" or "diff"
	TokenID string        `json:"token_id"`
	Bids    []streamLevel `json:"bids"`
	Asks    []streamLevel `json:"asks"`
}

func (c *RealtimeCache) readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		if ctx.Err() != nil {
			return
		}

		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		_, raw, err := conn.ReadMessage()
		if err != nil {
			c.logger.Warn("realtime-read-failed", zap.Error(err))
			return
		}

		var msg streamMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.logger.Warn("realtime-decode-failed", zap.Error(err))
			continue
		}
		if msg.TokenID == "" {
			continue
		}

		RealtimeMessagesTotal.WithLabelValues(msg.Type).Inc()

		switch msg.Type {
		case "snapshot":
			c.applySnapshot(&msg)
		case "diff":
			c.applyDiff(ctx, &msg)
		}
	}
}

func (c *RealtimeCache) applySnapshot(msg *streamMessage) {
	snap := &types.OrderBookSnapshot{
		Source:    types.VenueOpinion,
		TokenID:   msg.TokenID,
		Bids:      SortLevels(mergeLevels(nil, parseStreamLevels(msg.Bids)), false),
		Asks:      SortLevels(mergeLevels(nil, parseStreamLevels(msg.Asks)), true),
		FetchedAt: time.Now(),
	}

	c.mu.Lock()
	c.books[msg.TokenID] = snap
	c.mu.Unlock()
}

// applyDiff merges level changes into the cached book, then checks for a
// crossed book and re-syncs from REST when found.
func (c *RealtimeCache) applyDiff(ctx context.Context, msg *streamMessage) {
	c.mu.Lock()
	snap, ok := c.books[msg.TokenID]
	if !ok {
		c.mu.Unlock()
		return
	}

	updated := &types.OrderBookSnapshot{
		Source:    types.VenueOpinion,
		TokenID:   msg.TokenID,
		Bids:      SortLevels(mergeLevels(snap.Bids, parseStreamLevels(msg.Bids)), false),
		Asks:      SortLevels(mergeLevels(snap.Asks, parseStreamLevels(msg.Asks)), true),
		FetchedAt: time.Now(),
	}
	c.books[msg.TokenID] = updated
	crossed := updated.Crossed()
	c.mu.Unlock()

	if !crossed {
		return
	}

	CrossedBooksTotal.WithLabelValues(string(types.VenueOpinion)).Inc()
	c.logger.Error("realtime-book-crossed",
		zap.String("token-id", msg.TokenID))

	if c.rest == nil {
		return
	}

	RealtimeResyncsTotal.Inc()
	fresh, err := c.rest.FetchBook(ctx, msg.TokenID)
	if err != nil {
		c.logger.Warn("realtime-resync-failed",
			zap.String("token-id", msg.TokenID),
			zap.Error(err))
		return
	}
	if fresh.Crossed() {
		// Still crossed after re-sync; detector skips this match.
		return
	}

	c.mu.Lock()
	c.books[msg.TokenID] = fresh
	c.mu.Unlock()
}

// mergeLevels applies diff levels onto existing ones. A diff level with
// size 0 removes the price.
func mergeLevels(existing []types.OrderBookLevel, diffs []types.OrderBookLevel) []types.OrderBookLevel {
	byPrice := make(map[float64]float64, len(existing)+len(diffs))
	for _, lvl := range existing {
		byPrice[lvl.Price] = lvl.Size
	}
	for _, lvl := range diffs {
		if lvl.Size <= 0 {
			delete(byPrice, lvl.Price)
			continue
		}
		byPrice[lvl.Price] = lvl.Size
	}

	merged := make([]types.OrderBookLevel, 0, len(byPrice))
	for price, size := range byPrice {
		merged = append(merged, types.OrderBookLevel{Price: price, Size: size})
	}
	return merged
}

// parseStreamLevels keeps zero-size levels so diffs can remove prices.
func parseStreamLevels(levels []streamLevel) []types.OrderBookLevel {
	parsed := make([]types.OrderBookLevel, 0, len(levels))
	for _, lvl := range levels {
		price, err := strconv.ParseFloat(lvl.Price, 64)
		if err != nil {
			continue
		}
		size, err := strconv.ParseFloat(lvl.Size, 64)
		if err != nil {
			continue
		}
		parsed = append(parsed, types.OrderBookLevel{
			Price: types.RoundPrice(price),
			Size:  size,
		})
	}
	return parsed
}
