package polymarket

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/crossvenue/opinion-arb/pkg/cache"
	"github.com/crossvenue/opinion-arb/pkg/types"
)

const metadataTTL = 24 * time.Hour

// TickForPrice infers the order tick size from the price's precision:
// prices carrying a third decimal need the fine tick.
func TickForPrice(price float64) float64 {
	p := types.RoundPrice(price)
	cents := p * 100
	if math.Abs(cents-math.Round(cents)) > 1e-9 {
		return 0.001
	}
	return 0.01
}

// MetadataCache resolves per-token tick sizes from the CLOB tick-size
// endpoint, cached for 24 hours. When the endpoint is unavailable, the
// price-precision inference is used instead.
type MetadataCache struct {
	baseURL    string
	httpClient *http.Client
	cache      cache.Cache
}

// NewMetadataCache creates a metadata cache backed by the given cache.
func NewMetadataCache(baseURL string, c cache.Cache) *MetadataCache {
	return &MetadataCache{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		cache:      c,
	}
}

// TickSize returns the tick size for a token at the given order price.
// The cached CLOB value wins; the inference from price precision is the
// fallback.
func (m *MetadataCache) TickSize(ctx context.Context, tokenID string, price float64) float64 {
	if m == nil {
		return TickForPrice(price)
	}

	key := "tick:" + tokenID
	if m.cache != nil {
		if cached, ok := m.cache.Get(key); ok {
			if tick, ok := cached.(float64); ok && tick > 0 {
				return tick
			}
		}
	}

	tick, err := m.fetchTickSize(ctx, tokenID)
	if err != nil || tick <= 0 {
		return TickForPrice(price)
	}

	if m.cache != nil {
		m.cache.Set(key, tick, metadataTTL)
	}
	return tick
}

func (m *MetadataCache) fetchTickSize(ctx context.Context, tokenID string) (float64, error) {
	url := fmt.Sprintf("%s/tick-size?token_id=%s", m.baseURL, tokenID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("tick-size endpoint: status %d", resp.StatusCode)
	}

	var data struct {
		MinimumTickSize float64 `json:"minimum_tick_size"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return 0, err
	}

	return data.MinimumTickSize, nil
}
