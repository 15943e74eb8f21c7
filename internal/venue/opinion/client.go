// Package opinion implements the venue adapter for the Opinion REST API.
package opinion

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/crossvenue/opinion-arb/internal/fees"
	"github.com/crossvenue/opinion-arb/internal/venue"
	"github.com/crossvenue/opinion-arb/pkg/types"
)

const bookDepth = 5

// Client is the Opinion venue adapter. All requests pass through the shared
// rate gate.
type Client struct {
	baseURL    string
	apiKey     string
	gate       *venue.Gate
	httpClient *http.Client
	logger     *zap.Logger
}

// Config holds Opinion client configuration.
type Config struct {
	BaseURL string
	APIKey  string
	MaxRPS  float64
	Timeout time.Duration
	Logger  *zap.Logger
}

// NewClient creates a new Opinion client.
func NewClient(cfg *Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		gate:       venue.NewGate(cfg.MaxRPS),
		httpClient: &http.Client{Timeout: timeout},
		logger:     cfg.Logger,
	}
}

// Name implements venue.Adapter.
func (c *Client) Name() types.Venue {
	return types.VenueOpinion
}

// apiEnvelope is the common Opinion response wrapper.
type apiEnvelope struct {
	Errno  int             `json:"errno"`
	Errmsg string          `json:"errmsg"`
	Data   json.RawMessage `json:"data"`
}

type wireLevel struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

type wireBook struct {
	Bids []wireLevel `json:"bids"`
	Asks []wireLevel `json:"asks"`
}

// FetchBook fetches the order book for one token.
func (c *Client) FetchBook(ctx context.Context, tokenID string) (*types.OrderBookSnapshot, error) {
	var book wireBook
	path := fmt.Sprintf("/v1/orderbook?token_id=%s", tokenID)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &book); err != nil {
		return nil, fmt.Errorf("fetch book %s: %w", tokenID, err)
	}

	snapshot := &types.OrderBookSnapshot{
		Source:    types.VenueOpinion,
		TokenID:   tokenID,
		Bids:      parseLevels(book.Bids, false),
		Asks:      parseLevels(book.Asks, true),
		FetchedAt: time.Now(),
	}

	return snapshot, nil
}

// FetchBooksBulk is not supported by Opinion; callers use a worker pool of
// single fetches instead.
func (c *Client) FetchBooksBulk(_ context.Context, _ []string) (map[string]*types.OrderBookSnapshot, error) {
	return nil, venue.ErrBulkUnsupported
}

type placeOrderBody struct {
	MarketID    int64   `json:"market_id"`
	TokenID     string  `json:"token_id"`
	Side        string  `json:"side"`
	Price       float64 `json:"price"`
	Size        float64 `json:"size"`
	TimeInForce string  `json:"time_in_force"`
}

type placeOrderData struct {
	OrderID string `json:"order_id"`
}

// PlaceOrder places an order. Orders under the venue notional floor are
// rejected locally before any request is made.
func (c *Client) PlaceOrder(ctx context.Context, req *venue.OrderRequest) (*venue.OrderAck, error) {
	if !fees.MeetsNotionalFloor(req.Price, req.Size) {
		return nil, &types.VenueError{
			Venue:   types.VenueOpinion,
			Kind:    types.ErrKindPermanent,
			Message: fmt.Sprintf("order value %.4f below notional floor", req.Price*req.Size),
		}
	}

	tif := req.TimeInForce
	if tif == "" {
		tif = "GTC"
	}

	body := placeOrderBody{
		MarketID:    req.MarketID,
		TokenID:     req.TokenID,
		Side:        string(req.Side),
		Price:       types.RoundPrice(req.Price),
		Size:        req.Size,
		TimeInForce: tif,
	}

	var data placeOrderData
	if err := c.doJSON(ctx, http.MethodPost, "/v1/orders", body, &data); err != nil {
		return nil, fmt.Errorf("place order: %w", err)
	}

	c.logger.Debug("opinion-order-placed",
		zap.String("order-id", data.OrderID),
		zap.String("token-id", req.TokenID),
		zap.Float64("price", body.Price),
		zap.Float64("size", req.Size))

	return &venue.OrderAck{OrderID: data.OrderID}, nil
}

// CancelOrder requests cancellation of an order.
func (c *Client) CancelOrder(ctx context.Context, orderID string) error {
	path := fmt.Sprintf("/v1/orders/%s", orderID)
	if err := c.doJSON(ctx, http.MethodDelete, path, nil, nil); err != nil {
		return fmt.Errorf("cancel order %s: %w", orderID, err)
	}
	return nil
}

type orderData struct {
	orderStatusFields
	FilledShares any `json:"filled_shares"`
	TotalShares  any `json:"total_shares"`
}

// GetOrder returns the normalized status and fill progress of an order.
func (c *Client) GetOrder(ctx context.Context, orderID string) (*venue.OrderInfo, error) {
	var data orderData
	path := fmt.Sprintf("/v1/orders/%s", orderID)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &data); err != nil {
		return nil, fmt.Errorf("get order %s: %w", orderID, err)
	}

	info := &venue.OrderInfo{
		Status: data.normalize(),
		Filled: toFloat(data.FilledShares),
		Total:  toFloat(data.TotalShares),
	}

	// Some responses omit the enum on fully filled orders.
	if info.Status == types.StatusUnknown && info.Total > 0 && info.Filled >= info.Total-1e-6 {
		info.Status = types.StatusFilled
	}

	return info, nil
}

type wireTrade struct {
	orderStatusFields
	TradeID   string `json:"trade_id"`
	OrderID   string `json:"order_id"`
	Price     any    `json:"price"`
	Shares    any    `json:"shares"`
	USDAmount any    `json:"usd_amount"`
}

type tradesData struct {
	Trades []wireTrade `json:"trades"`
}

// RecentTrades returns the latest account fills, newest first.
func (c *Client) RecentTrades(ctx context.Context, limit int) ([]types.Trade, error) {
	var data tradesData
	path := fmt.Sprintf("/v1/trades?limit=%d", limit)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &data); err != nil {
		return nil, fmt.Errorf("recent trades: %w", err)
	}

	trades := make([]types.Trade, 0, len(data.Trades))
	for _, wt := range data.Trades {
		trades = append(trades, types.Trade{
			TradeID:   wt.TradeID,
			OrderID:   wt.OrderID,
			Price:     toFloat(wt.Price),
			Shares:    toFloat(wt.Shares),
			USDAmount: toFloat(wt.USDAmount),
			Status:    wt.normalize(),
		})
	}

	return trades, nil
}

// doJSON issues one rate-gated request and decodes the envelope. A non-zero
// errno is classified into the error taxonomy.
func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	if err := c.gate.Wait(ctx); err != nil {
		return err
	}

	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode body: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &types.VenueError{
			Venue:   types.VenueOpinion,
			Kind:    types.ErrKindRetryable,
			Message: err.Error(),
		}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &types.VenueError{
			Venue:   types.VenueOpinion,
			Kind:    types.ErrKindRetryable,
			Message: fmt.Sprintf("read response: %v", err),
		}
	}

	if resp.StatusCode >= 500 {
		return &types.VenueError{
			Venue:   types.VenueOpinion,
			Kind:    types.ErrKindRetryable,
			Message: fmt.Sprintf("status %d: %s", resp.StatusCode, string(raw)),
		}
	}
	if resp.StatusCode != http.StatusOK {
		return &types.VenueError{
			Venue:   types.VenueOpinion,
			Kind:    types.ErrKindPermanent,
			Message: fmt.Sprintf("status %d: %s", resp.StatusCode, string(raw)),
		}
	}

	var envelope apiEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return &types.VenueError{
			Venue:   types.VenueOpinion,
			Kind:    types.ErrKindRetryable,
			Message: fmt.Sprintf("decode envelope: %v", err),
		}
	}

	if envelope.Errno != 0 {
		return classifyAPIError(envelope.Errno, envelope.Errmsg)
	}

	if out != nil && len(envelope.Data) > 0 {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return &types.VenueError{
				Venue:   types.VenueOpinion,
				Kind:    types.ErrKindRetryable,
				Message: fmt.Sprintf("decode data: %v", err),
			}
		}
	}

	return nil
}

func classifyAPIError(errno int, errmsg string) error {
	ve := &types.VenueError{
		Venue:   types.VenueOpinion,
		Kind:    types.ErrKindPermanent,
		Code:    strconv.Itoa(errno),
		Message: errmsg,
	}
	if types.IsBalanceExhausted(ve) {
		ve.Kind = types.ErrKindBalanceExhausted
	}
	return ve
}

// parseLevels converts wire levels into sorted, rounded levels capped at
// bookDepth. asc selects ask ordering.
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

// toFloat accepts the float-or-string encodings Opinion uses for numeric
// fields.
func toFloat(v any) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case string:
		f, err := strconv.ParseFloat(x, 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}
