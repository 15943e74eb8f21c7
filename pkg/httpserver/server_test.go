package httpserver

import (
	"context"
	"io"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/crossvenue/opinion-arb/internal/circuitbreaker"
	"github.com/crossvenue/opinion-arb/internal/liquidity"
	"github.com/crossvenue/opinion-arb/pkg/healthprobe"
	"github.com/crossvenue/opinion-arb/pkg/types"
	"github.com/crossvenue/opinion-arb/pkg/wallet"
)

type fixedFetcher struct{}

func (fixedFetcher) GetBalances(_ context.Context, _ common.Address) (*wallet.Balances, error) {
	return &wallet.Balances{
		MATIC:         big.NewInt(0),
		USDC:          big.NewInt(1_000_000_000),
		USDCAllowance: big.NewInt(0),
	}, nil
}

func newTestServer(t *testing.T, table *liquidity.Table, stats *liquidity.Stats, breaker *circuitbreaker.Breaker) *Server {
	t.Helper()
	hc := healthprobe.New()
	hc.SetReady(true)
	return New(&Config{
		Port:          "0",
		Logger:        zap.NewNop(),
		HealthChecker: hc,
		OrderTable:    table,
		Stats:         stats,
		Breaker:       breaker,
	})
}

func serve(s *Server, method, target string) *http.Response {
	req := httptest.NewRequest(method, target, nil)
	w := httptest.NewRecorder()
	s.server.Handler.ServeHTTP(w, req)
	return w.Result()
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t, nil, nil, nil)

	resp := serve(s, http.MethodGet, "/health")
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestReadyEndpoint(t *testing.T) {
	hc := healthprobe.New()
	s := New(&Config{Port: "0", Logger: zap.NewNop(), HealthChecker: hc})

	resp := serve(s, http.MethodGet, "/ready")
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	hc.SetReady(true)
	resp = serve(s, http.MethodGet, "/ready")
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, nil, nil, nil)

	resp := serve(s, http.MethodGet, "/metrics")
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.NotEmpty(t, body)
}

func TestOrdersEndpoint(t *testing.T) {
	table := liquidity.NewTable(5 * time.Minute)
	table.Register(&liquidity.OrderState{
		Key:           "101:op-yes:opinion_yes_poly_no:will-it-rain",
		OrderID:       "order-1",
		Match:         &types.MarketMatch{Question: "will it rain"},
		OpinionToken:  "op-yes",
		OpinionPrice:  0.43,
		OrderSize:     255,
		EffectiveSize: 250,
		HedgeToken:    "pm-no",
		HedgePrice:    0.50,
		Status:        types.StatusPending,
	})

	s := newTestServer(t, table, liquidity.NewStats(), nil)

	resp := serve(s, http.MethodGet, "/api/orders")
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var payload OrdersResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	assert.Equal(t, 1, payload.Active)
	assert.Equal(t, 1, payload.Tracked)
	require.Len(t, payload.Orders, 1)
	assert.Equal(t, "order-1", payload.Orders[0].OrderID)
	assert.Equal(t, "will it rain", payload.Orders[0].Question)
	assert.Equal(t, 250.0, payload.Orders[0].EffectiveSize)
}

func TestStatsEndpoint(t *testing.T) {
	stats := liquidity.NewStats()
	stats.RecordFill(100)
	stats.RecordHedge(100)

	s := newTestServer(t, liquidity.NewTable(5*time.Minute), stats, nil)

	resp := serve(s, http.MethodGet, "/api/stats")
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var snap liquidity.StatsSnapshot
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&snap))
	assert.Equal(t, int64(1), snap.Fills)
	assert.Equal(t, 100.0, snap.FillVolume)
	assert.Equal(t, int64(1), snap.Hedges)
}

func TestBreakerEndpoint(t *testing.T) {
	breaker, err := circuitbreaker.New(&circuitbreaker.Config{
		CheckInterval:   time.Second,
		TradeMultiplier: 2.0,
		MinAbsolute:     50,
		HysteresisRatio: 1.5,
		Fetcher:         fixedFetcher{},
		Logger:          zap.NewNop(),
	})
	require.NoError(t, err)

	s := newTestServer(t, liquidity.NewTable(5*time.Minute), liquidity.NewStats(), breaker)

	resp := serve(s, http.MethodGet, "/api/breaker")
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var status circuitbreaker.Status
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	assert.True(t, status.Enabled)
}

func TestStateRoutesAbsentWithoutTable(t *testing.T) {
	s := newTestServer(t, nil, nil, nil)

	resp := serve(s, http.MethodGet, "/api/orders")
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServerStartAndShutdown(t *testing.T) {
	s := newTestServer(t, nil, nil, nil)

	done := make(chan error, 1)
	go func() {
		done <- s.Start()
	}()

	time.Sleep(100 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Shutdown(ctx))

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop after shutdown")
	}
}
