// Package cache provides a small TTL cache for venue metadata that is
// expensive to refetch per order, such as Polymarket tick sizes.
package cache

import "time"

// Cache stores venue metadata under string keys with per-entry TTLs.
type Cache interface {
	// Get returns (value, true) when the key is present and unexpired.
	Get(key string) (any, bool)

	// Set stores a value with a TTL; returns false when the entry was
	// dropped by the admission policy.
	Set(key string, value any, ttl time.Duration) bool

	// Delete removes a key.
	Delete(key string)

	// Close releases cache resources.
	Close()
}
