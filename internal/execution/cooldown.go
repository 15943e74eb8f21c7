package execution

import (
	"sync"
	"time"
)

// cooldownReapAfter is how long a cooldown entry survives before being
// dropped from the map entirely.
const cooldownReapAfter = 60 * time.Second

// Cooldown tracks recent executions per (market, strategy) key so the same
// opportunity is not fired twice within the window.
type Cooldown struct {
	mu      sync.Mutex
	window  time.Duration
	entries map[string]time.Time

	now func() time.Time
}

// NewCooldown creates a cooldown gate with the given window.
func NewCooldown(window time.Duration) *Cooldown {
	return &Cooldown{
		window:  window,
		entries: make(map[string]time.Time),
		now:     time.Now,
	}
}

// Allow reports whether an execution of key may proceed, recording it when
// allowed. Stale entries are reaped on every call.
func (c *Cooldown) Allow(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for k, ts := range c.entries {
		if now.Sub(ts) > cooldownReapAfter {
			delete(c.entries, k)
		}
	}

	if last, ok := c.entries[key]; ok && now.Sub(last) < c.window {
		return false
	}
	c.entries[key] = now
	return true
}
