// Package polymarket implements the venue adapter for the Polymarket CLOB.
package polymarket

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/crossvenue/opinion-arb/internal/venue"
	"github.com/crossvenue/opinion-arb/pkg/types"
)

const bookDepth = 5

// Client is the Polymarket venue adapter. Book fetches are unauthenticated;
// order operations go through the signer.
type Client struct {
	baseURL    string
	booksChunk int
	httpClient *http.Client
	signer     *Signer
	metadata   *MetadataCache
	logger     *zap.Logger
}

// Config holds Polymarket client configuration.
type Config struct {
	BaseURL    string
	BooksChunk int
	Timeout    time.Duration
	Signer     *Signer // nil disables order operations (scan-only mode)
	Metadata   *MetadataCache
	Logger     *zap.Logger
}

// NewClient creates a new Polymarket client.
func NewClient(cfg *Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		baseURL:    cfg.BaseURL,
		booksChunk: cfg.BooksChunk,
		httpClient: &http.Client{Timeout: timeout},
		signer:     cfg.Signer,
		metadata:   cfg.Metadata,
		logger:     cfg.Logger,
	}
}

// Name implements venue.Adapter.
func (c *Client) Name() types.Venue {
	return types.VenuePolymarket
}

// Metadata exposes the tick-size cache, nil when not configured.
func (c *Client) Metadata() *MetadataCache {
	return c.metadata
}

type wireLevel struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

type wireBook struct {
	AssetID string      `json:"asset_id"`
	Bids    []wireLevel `json:"bids"`
	Asks    []wireLevel `json:"asks"`
}

// FetchBook fetches the order book for one token.
func (c *Client) FetchBook(ctx context.Context, tokenID string) (*types.OrderBookSnapshot, error) {
	url := fmt.Sprintf("%s/book?token_id=%s", c.baseURL, tokenID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	var book wireBook
	if err := c.doJSON(req, &book); err != nil {
		return nil, fmt.Errorf("fetch book %s: %w", tokenID, err)
	}

	return bookToSnapshot(tokenID, &book), nil
}

// FetchBooksBulk fetches books for many tokens, issuing one POST /books
// request per chunk of at most BooksChunk tokens.
func (c *Client) FetchBooksBulk(ctx context.Context, tokenIDs []string) (map[string]*types.OrderBookSnapshot, error) {
	result := make(map[string]*types.OrderBookSnapshot, len(tokenIDs))

	for _, chunk := range venue.Chunk(tokenIDs, c.booksChunk) {
		params := make([]map[string]string, 0, len(chunk))
		for _, id := range chunk {
			params = append(params, map[string]string{"token_id": id})
		}

		body, err := json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("encode books request: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/books", bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		var books []wireBook
		if err := c.doJSON(req, &books); err != nil {
			return nil, fmt.Errorf("fetch books chunk: %w", err)
		}

		for i := range books {
			snap := bookToSnapshot(books[i].AssetID, &books[i])
			result[snap.TokenID] = snap
		}
	}

	return result, nil
}

// PlaceOrder builds, signs and submits an order.
func (c *Client) PlaceOrder(ctx context.Context, req *venue.OrderRequest) (*venue.OrderAck, error) {
	if c.signer == nil {
		return nil, &types.VenueError{
			Venue:   types.VenuePolymarket,
			Kind:    types.ErrKindPermanent,
			Message: "order signing not configured",
		}
	}

	resp, err := c.signer.SubmitOrder(ctx, req)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("polymarket-order-placed",
		zap.String("order-id", resp.OrderID),
		zap.String("token-id", req.TokenID),
		zap.Float64("price", req.Price),
		zap.Float64("size", req.Size),
		zap.Bool("neg-risk", req.NegRisk))

	return &venue.OrderAck{OrderID: resp.OrderID}, nil
}

// CancelOrder cancels an order through the authenticated endpoint.
func (c *Client) CancelOrder(ctx context.Context, orderID string) error {
	if c.signer == nil {
		return &types.VenueError{
			Venue:   types.VenuePolymarket,
			Kind:    types.ErrKindPermanent,
			Message: "order signing not configured",
		}
	}
	return c.signer.CancelOrder(ctx, orderID)
}

type wireOrder struct {
	Status       string `json:"status"`
	SizeMatched  string `json:"size_matched"`
	OriginalSize string `json:"original_size"`
}

// GetOrder returns the normalized status of an order.
func (c *Client) GetOrder(ctx context.Context, orderID string) (*venue.OrderInfo, error) {
	if c.signer == nil {
		return nil, &types.VenueError{
			Venue:   types.VenuePolymarket,
			Kind:    types.ErrKindPermanent,
			Message: "order signing not configured",
		}
	}

	raw, err := c.signer.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	var order wireOrder
	if err := json.Unmarshal(raw, &order); err != nil {
		return nil, &types.VenueError{
			Venue:   types.VenuePolymarket,
			Kind:    types.ErrKindRetryable,
			Message: fmt.Sprintf("decode order: %v", err),
		}
	}

	filled, _ := strconv.ParseFloat(order.SizeMatched, 64)
	total, _ := strconv.ParseFloat(order.OriginalSize, 64)

	return &venue.OrderInfo{
		Status: normalizeCLOBStatus(order.Status),
		Filled: filled,
		Total:  total,
	}, nil
}

// RecentTrades is unused for Polymarket; fill attribution for hedge legs
// relies on order status.
func (c *Client) RecentTrades(_ context.Context, _ int) ([]types.Trade, error) {
	return []types.Trade{}, nil
}

// normalizeCLOBStatus maps CLOB order states into the closed set.
func normalizeCLOBStatus(raw string) types.OrderStatus {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "LIVE", "DELAYED":
		return types.StatusPending
	case "MATCHED":
		return types.StatusFilled
	case "CANCELED", "CANCELLED":
		return types.StatusCancelled
	default:
		return types.StatusUnknown
	}
}

func (c *Client) doJSON(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &types.VenueError{
			Venue:   types.VenuePolymarket,
			Kind:    types.ErrKindRetryable,
			Message: err.Error(),
		}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &types.VenueError{
			Venue:   types.VenuePolymarket,
			Kind:    types.ErrKindRetryable,
			Message: fmt.Sprintf("read response: %v", err),
		}
	}

	if resp.StatusCode >= 500 {
		return &types.VenueError{
			Venue:   types.VenuePolymarket,
			Kind:    types.ErrKindRetryable,
			Message: fmt.Sprintf("status %d: %s", resp.StatusCode, string(raw)),
		}
	}
	if resp.StatusCode != http.StatusOK {
		return &types.VenueError{
			Venue:   types.VenuePolymarket,
			Kind:    types.ErrKindPermanent,
			Message: fmt.Sprintf("status %d: %s", resp.StatusCode, string(raw)),
		}
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return &types.VenueError{
			Venue:   types.VenuePolymarket,
			Kind:    types.ErrKindRetryable,
			Message: fmt.Sprintf("decode response: %v", err),
		}
	}

	return nil
}

func bookToSnapshot(tokenID string, book *wireBook) *types.OrderBookSnapshot {
	return &types.OrderBookSnapshot{
		Source:    types.VenuePolymarket,
		TokenID:   tokenID,
		Bids:      parseLevels(book.Bids, false),
		Asks:      parseLevels(book.Asks, true),
		FetchedAt: time.Now(),
	}
}

func parseLevels(levels []wireLevel, asc bool) []types.OrderBookLevel {
	parsed := make([]types.OrderBookLevel, 0, len(levels))
	for _, lvl := range levels {
		price, err := strconv.ParseFloat(lvl.Price, 64)
		if err != nil {
			continue
		}
		size, err := strconv.ParseFloat(lvl.Size, 64)
		if err != nil || size <= 0 {
			continue
		}
		parsed = append(parsed, types.OrderBookLevel{
			Price: types.RoundPrice(price),
			Size:  size,
		})
	}

	sort.Slice(parsed, func(i, j int) bool {
		if asc {
			return parsed[i].Price < parsed[j].Price
		}
		return parsed[i].Price > parsed[j].Price
	})

	if len(parsed) > bookDepth {
		parsed = parsed[:bookDepth]
	}
	return parsed
}
