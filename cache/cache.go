// Package cache wraps ristretto as the bounded, TTL-aware read-through
// cache every read-heavy lookup table in this module hangs off its owning
// store (MIDX entries, packed-refs peeled entries), per the rule that
// caches are never global state but live alongside the store that
// invalidates them on write.
package cache

import (
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto/v2"
)

// Cache is a generic, cost-bounded TTL cache keyed by string.
type Cache[V any] struct {
	c   *ristretto.Cache[string, V]
	ttl time.Duration
}

// Options configures a Cache's size.
type Options struct {
	// NumCounters sizes ristretto's admission sketch; ~10x MaxEntries is
	// ristretto's own guidance.
	NumCounters int64
	// MaxEntries bounds the cache's cost, one unit per entry.
	MaxEntries int64
	// TTL is the default per-entry expiry; zero means entries never expire
	// on their own (still subject to eviction under cost pressure).
	TTL time.Duration
}

// New builds a Cache from Options.
func New[V any](opts Options) (*Cache[V], error) {
	numCounters := opts.NumCounters
	if numCounters <= 0 {
		numCounters = opts.MaxEntries * 10
	}
	if numCounters <= 0 {
		numCounters = 1e4
	}
	maxCost := opts.MaxEntries
	if maxCost <= 0 {
		maxCost = 1000
	}
	c, err := ristretto.NewCache(&ristretto.Config[string, V]{
		NumCounters: numCounters,
		MaxCost:     maxCost,
		BufferItems: 64,
		// Count only the caller's one-unit cost per entry, so MaxEntries
		// really is an entry count.
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, fmt.Errorf("cache: initialize: %w", err)
	}
	return &Cache[V]{c: c, ttl: opts.TTL}, nil
}

// Get returns the cached value for key, if present and unexpired.
func (c *Cache[V]) Get(key string) (V, bool) {
	return c.c.Get(key)
}

// Set stores value for key under the cache's configured TTL.
func (c *Cache[V]) Set(key string, value V) {
	if c.ttl > 0 {
		c.c.SetWithTTL(key, value, 1, c.ttl)
	} else {
		c.c.Set(key, value, 1)
	}
	c.c.Wait()
}

// Invalidate removes key, used when the backing store mutates (pack
// create/delete, packed-refs rewrite).
func (c *Cache[V]) Invalidate(key string) {
	c.c.Del(key)
}
