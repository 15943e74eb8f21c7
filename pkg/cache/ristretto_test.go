package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestCache(t *testing.T) *RistrettoCache {
	t.Helper()

	c, err := NewRistrettoCache(&RistrettoConfig{
		MaxItems: 100,
		Logger:   zap.NewNop(),
	})
	require.NoError(t, err)
	t.Cleanup(c.Close)

	rc, ok := c.(*RistrettoCache)
	require.True(t, ok)
	return rc
}

func TestRistrettoCacheSetGet(t *testing.T) {
	c := newTestCache(t)

	ok := c.Set("tick:123", 0.001, time.Hour)
	assert.True(t, ok)
	c.Wait()

	got, found := c.Get("tick:123")
	require.True(t, found)
	assert.Equal(t, 0.001, got)
}

func TestRistrettoCacheMiss(t *testing.T) {
	c := newTestCache(t)

	_, found := c.Get("absent")
	assert.False(t, found)
}

func TestRistrettoCacheDelete(t *testing.T) {
	c := newTestCache(t)

	c.Set("k", "v", time.Hour)
	c.Wait()
	c.Delete("k")
	c.Wait()

	_, found := c.Get("k")
	assert.False(t, found)
}

func TestRistrettoCacheTTLExpiry(t *testing.T) {
	c := newTestCache(t)

	c.Set("short", "v", 20*time.Millisecond)
	c.Wait()
	time.Sleep(60 * time.Millisecond)

	_, found := c.Get("short")
	assert.False(t, found)
}
