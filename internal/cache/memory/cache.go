// Package memory provides the in-process query cache backed by go-cache.
//
// go-cache's janitor removes entries by wall clock as a memory backstop.
// Freshness itself is decided on read against the injected clock, so an
// entry is a hit only while now - CreatedAt < ttl.
package memory

import (
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/davidbz/placefinder/internal/domain"
)

// QueryCache implements domain.QueryCache.
type QueryCache struct {
	store          *gocache.Cache
	ttl            time.Duration
	sweepThreshold int
	now            domain.Clock

	mu        sync.Mutex
	nextSweep int // item count that triggers the next opportunistic sweep
}

// Config contains query cache settings.
type Config struct {
	TTL            time.Duration
	SweepInterval  time.Duration // janitor period; zero disables it
	SweepThreshold int           // item count that triggers a sweep on write; zero disables it
}

// NewQueryCache creates a new query cache. A nil clock means time.Now.
func NewQueryCache(cfg Config, now domain.Clock) *QueryCache {
	if now == nil {
		now = time.Now
	}

	return &QueryCache{
		store:          gocache.New(cfg.TTL, cfg.SweepInterval),
		ttl:            cfg.TTL,
		sweepThreshold: cfg.SweepThreshold,
		now:            now,
		nextSweep:      cfg.SweepThreshold,
	}
}

// Get returns the results stored under key if they are still fresh.
// Expired entries are evicted on the way out.
func (c *QueryCache) Get(key string) ([]domain.Suggestion, bool) {
	raw, found := c.store.Get(key)
	if !found {
		return nil, false
	}

	entry, ok := raw.(domain.CacheEntry)
	if !ok || !c.fresh(entry) {
		c.store.Delete(key)
		return nil, false
	}

	return entry.Results, true
}

// Set stores results under key, replacing any previous entry.
func (c *QueryCache) Set(key string, results []domain.Suggestion) {
	stored := make([]domain.Suggestion, len(results))
	copy(stored, results)

	c.store.Set(key, domain.CacheEntry{
		Results:   stored,
		CreatedAt: c.now(),
	}, gocache.DefaultExpiration)

	if c.sweepThreshold > 0 {
		c.maybeSweep()
	}
}

// Sweep evicts entries older than the TTL and returns how many were removed.
func (c *QueryCache) Sweep() int {
	removed := 0
	for key, item := range c.store.Items() {
		entry, ok := item.Object.(domain.CacheEntry)
		if ok && c.fresh(entry) {
			continue
		}
		c.store.Delete(key)
		removed++
	}
	return removed
}

// maybeSweep sweeps once the item count reaches nextSweep, then moves the
// mark a full threshold above the survivors so a cache full of fresh
// entries is not rescanned on every write.
func (c *QueryCache) maybeSweep() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.store.ItemCount() < c.nextSweep {
		return
	}

	c.Sweep()
	c.nextSweep = c.store.ItemCount() + c.sweepThreshold
}

// Len returns the number of stored entries, fresh or not.
func (c *QueryCache) Len() int {
	return c.store.ItemCount()
}

func (c *QueryCache) fresh(entry domain.CacheEntry) bool {
	return c.now().Sub(entry.CreatedAt) < c.ttl
}
