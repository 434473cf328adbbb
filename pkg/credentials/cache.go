package credentials

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// DefaultCacheTTL is how long a resolution outcome (including not-found)
// stays fresh.
const DefaultCacheTTL = 60 * time.Second

type cacheEntry struct {
	result   *ResolvedToken
	cachedAt time.Time
}

// resolutionCache memoizes resolution outcomes per hostname and collapses
// concurrent resolutions for the same hostname into a single execution.
type resolutionCache struct {
	ttl   time.Duration
	group singleflight.Group

	mu      sync.Mutex
	entries map[string]cacheEntry
	pending map[string]int
}

func newResolutionCache(ttl time.Duration) *resolutionCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &resolutionCache{
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
		pending: make(map[string]int),
	}
}

// get returns the cached result for hostname if it is still fresh.
func (c *resolutionCache) get(hostname string) (*ResolvedToken, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[hostname]
	if !ok || time.Since(entry.cachedAt) >= c.ttl {
		return nil, false
	}
	return entry.result, true
}

// resolve returns the fresh cached result for hostname, or runs compute,
// sharing one in-flight computation among concurrent callers. The outcome —
// not-found included — is cached before being returned.
func (c *resolutionCache) resolve(ctx context.Context, hostname string, compute func(ctx context.Context) *ResolvedToken) *ResolvedToken {
	if result, ok := c.get(hostname); ok {
		return result
	}

	c.mu.Lock()
	c.pending[hostname]++
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		if c.pending[hostname]--; c.pending[hostname] <= 0 {
			delete(c.pending, hostname)
		}
		c.mu.Unlock()
	}()

	// The flight is shared: compute runs detached from the initiating
	// caller so its cancellation cannot poison the cached outcome for
	// every waiter.
	flightCtx := context.WithoutCancel(ctx)

	v, _, _ := c.group.Do(hostname, func() (interface{}, error) {
		// Re-check under the flight: a concurrent caller may have
		// populated the entry while this one waited its turn.
		if result, ok := c.get(hostname); ok {
			return result, nil
		}
		result := compute(flightCtx)
		c.mu.Lock()
		c.entries[hostname] = cacheEntry{result: result, cachedAt: time.Now()}
		c.mu.Unlock()
		return result, nil
	})

	result, _ := v.(*ResolvedToken)
	return result
}

// invalidate drops the entry for hostname. Callers already awaiting an
// in-flight resolution still receive its result; subsequent callers start a
// fresh one.
func (c *resolutionCache) invalidate(hostname string) {
	c.mu.Lock()
	delete(c.entries, hostname)
	c.mu.Unlock()
	c.group.Forget(hostname)
}

// invalidateAll clears every cached outcome and detaches in-flight slots.
func (c *resolutionCache) invalidateAll() {
	c.mu.Lock()
	seen := make(map[string]bool, len(c.entries)+len(c.pending))
	for hostname := range c.entries {
		seen[hostname] = true
	}
	for hostname := range c.pending {
		seen[hostname] = true
	}
	c.entries = make(map[string]cacheEntry)
	c.mu.Unlock()
	for hostname := range seen {
		c.group.Forget(hostname)
	}
}
