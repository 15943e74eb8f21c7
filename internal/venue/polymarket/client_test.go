package polymarket

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/crossvenue/opinion-arb/pkg/types"
)

func TestFetchBook(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/book", r.URL.Path)
		assert.Equal(t, "tok-b", r.URL.Query().Get("token_id"))
		w.Write([]byte(`{"asset_id":"tok-b",
			"bids":[{"price":"0.49","size":"80"}],
			"asks":[{"price":"0.51","size":"120"},{"price":"0.5004","size":"60"}]}`))
	}))
	defer srv.Close()

	c := NewClient(&Config{BaseURL: srv.URL, BooksChunk: 25, Logger: zap.NewNop()})

	book, err := c.FetchBook(context.Background(), "tok-b")
	require.NoError(t, err)

	assert.Equal(t, types.VenuePolymarket, book.Source)
	require.Len(t, book.Asks, 2)
	assert.Equal(t, 0.5, book.Asks[0].Price) // rounded and re-sorted to front
	assert.Equal(t, 0.51, book.Asks[1].Price)
}

func TestFetchBooksBulkChunking(t *testing.T) {
	var requests [][]map[string]string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/books", r.URL.Path)

		body, _ := io.ReadAll(r.Body)
		var params []map[string]string
		require.NoError(t, json.Unmarshal(body, &params))
		requests = append(requests, params)

		books := make([]map[string]any, 0, len(params))
		for _, p := range params {
			books = append(books, map[string]any{
				"asset_id": p["token_id"],
				"bids":     []map[string]string{{"price": "0.40", "size": "10"}},
				"asks":     []map[string]string{{"price": "0.60", "size": "10"}},
			})
		}
		_ = json.NewEncoder(w).Encode(books)
	}))
	defer srv.Close()

	c := NewClient(&Config{BaseURL: srv.URL, BooksChunk: 2, Logger: zap.NewNop()})

	tokens := []string{"a", "b", "c", "d", "e"}
	books, err := c.FetchBooksBulk(context.Background(), tokens)
	require.NoError(t, err)

	assert.Len(t, books, 5)
	require.Len(t, requests, 3)
	for _, req := range requests {
		assert.LessOrEqual(t, len(req), 2, "no request may exceed the chunk size")
	}
}

func TestNormalizeCLOBStatus(t *testing.T) {
	assert.Equal(t, types.StatusPending, normalizeCLOBStatus("LIVE"))
	assert.Equal(t, types.StatusPending, normalizeCLOBStatus("delayed"))
	assert.Equal(t, types.StatusFilled, normalizeCLOBStatus("MATCHED"))
	assert.Equal(t, types.StatusCancelled, normalizeCLOBStatus("CANCELED"))
	assert.Equal(t, types.StatusUnknown, normalizeCLOBStatus("???"))
}

func TestPlaceOrderWithoutSigner(t *testing.T) {
	c := NewClient(&Config{BaseURL: "http://unused", BooksChunk: 25, Logger: zap.NewNop()})

	_, err := c.PlaceOrder(context.Background(), nil)
	require.Error(t, err)
	assert.False(t, types.IsRetryable(err))
}

func TestTickForPrice(t *testing.T) {
	tests := []struct {
		price    float64
		expected float64
	}{
		{0.5, 0.01},
		{0.45, 0.01},
		{0.455, 0.001},
		{0.001, 0.001},
		{0.1, 0.01},
		// two-decimal prices whose p*100 lands just below the integer
		{0.29, 0.01},
		{0.58, 0.01},
		{0.07, 0.01},
		{0.57, 0.01},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, TickForPrice(tt.price), "price %f", tt.price)
	}
}

func TestSnapToTick(t *testing.T) {
	p, err := snapToTick(0.453, 0.01)
	require.NoError(t, err)
	assert.Equal(t, 0.45, p)

	p, err = snapToTick(0.4534, 0.001)
	require.NoError(t, err)
	assert.Equal(t, 0.453, p)

	// zero tick leaves the price on the 3-decimal grid
	p, err = snapToTick(0.4534, 0)
	require.NoError(t, err)
	assert.Equal(t, 0.453, p)

	_, err = snapToTick(0.002, 0.01)
	require.Error(t, err)
	assert.False(t, types.IsRetryable(err))

	_, err = snapToTick(0.999, 0.01)
	require.Error(t, err)
}

func TestMetadataCacheFallsBackToInference(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	m := NewMetadataCache(srv.URL, nil)
	assert.Equal(t, 0.001, m.TickSize(context.Background(), "tok", 0.455))
	assert.Equal(t, 0.01, m.TickSize(context.Background(), "tok", 0.45))
}

func TestMetadataCacheUsesEndpoint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"minimum_tick_size":0.001}`))
	}))
	defer srv.Close()

	m := NewMetadataCache(srv.URL, nil)
	assert.Equal(t, 0.001, m.TickSize(context.Background(), "tok", 0.45))
}

func TestClassifyCLOBError(t *testing.T) {
	err := classifyCLOBError("order rejected: INVALID_ORDER_NOT_ENOUGH_BALANCE", "o-1")
	assert.True(t, types.IsBalanceExhausted(err))

	err = classifyCLOBError("MARKET_NOT_READY", "")
	assert.False(t, types.IsBalanceExhausted(err))
	assert.False(t, types.IsRetryable(err))
}
