package cache

import (
	"time"

	"github.com/dgraph-io/ristretto"
	"go.uber.org/zap"
)

// RistrettoCache is the ristretto-backed Cache for venue metadata.
// Entries carry unit cost, so MaxItems bounds the entry count.
type RistrettoCache struct {
	inner  *ristretto.Cache
	logger *zap.Logger
}

// RistrettoConfig holds sizing for the metadata cache.
type RistrettoConfig struct {
	MaxItems    int64 // upper bound on cached entries
	BufferItems int64 // keys per Get buffer; 64 when zero
	Logger      *zap.Logger
}

// NewRistrettoCache creates a metadata cache bounded to cfg.MaxItems entries.
func NewRistrettoCache(cfg *RistrettoConfig) (Cache, error) {
	buffer := cfg.BufferItems
	if buffer == 0 {
		buffer = 64
	}

	inner, err := ristretto.NewCache(&ristretto.Config{
		// The admission sketch tracks ~10x the capacity for frequency.
		NumCounters: cfg.MaxItems * 10,
		MaxCost:     cfg.MaxItems,
		BufferItems: buffer,
		Metrics:     true,
	})
	if err != nil {
		return nil, err
	}

	return &RistrettoCache{inner: inner, logger: cfg.Logger}, nil
}

// Get retrieves a value from the cache.
func (r *RistrettoCache) Get(key string) (any, bool) {
	value, found := r.inner.Get(key)
	if found {
		CacheHitsTotal.Inc()
	} else {
		CacheMissesTotal.Inc()
	}
	return value, found
}

// Set stores a value with a TTL at unit cost.
func (r *RistrettoCache) Set(key string, value any, ttl time.Duration) bool {
	ok := r.inner.SetWithTTL(key, value, 1, ttl)
	if ok {
		CacheSetsTotal.Inc()
		r.logger.Debug("metadata-cached",
			zap.String("key", key),
			zap.Duration("ttl", ttl))
	}
	return ok
}

// Delete removes a key.
func (r *RistrettoCache) Delete(key string) {
	r.inner.Del(key)
	CacheDeletesTotal.Inc()
}

// Close releases cache resources.
func (r *RistrettoCache) Close() {
	r.inner.Close()
}

// Metrics exposes ristretto's internal counters.
func (r *RistrettoCache) Metrics() *ristretto.Metrics {
	return r.inner.Metrics
}

// Wait blocks until pending writes are applied; used in tests.
func (r *RistrettoCache) Wait() {
	r.inner.Wait()
}
