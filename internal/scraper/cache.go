package scraper

import (
	"sync"
	"time"

	"github.com/calmackay/commutecast/internal/utils"
	"github.com/calmackay/commutecast/pkg/transit"
)

// DefaultCacheTTL matches the upstream site's tolerance for repeat
// visits; results inside the window are served from memory.
const DefaultCacheTTL = 90 * time.Second

type cacheEntry struct {
	data      *transit.StopDepartures
	expiresAt time.Time
}

// Cache is a single-TTL keyed cache in front of the scraper. Error
// results are cached too, so a source that just failed is not hammered.
type Cache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]*cacheEntry
	now     func() time.Time
}

func NewCache(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Cache{
		ttl:     ttl,
		entries: make(map[string]*cacheEntry),
		now:     time.Now,
	}
}

// TTL returns the configured entry lifetime.
func (c *Cache) TTL() time.Duration { return c.ttl }

// Get returns a copy of the entry for key, flagged as cache-derived, or
// nil when absent or expired. Expired entries are evicted on sight. The
// existence and expiry checks share one critical section so a sweep and
// a read cannot race into an inconsistent return.
func (c *Cache) Get(key string) *transit.StopDepartures {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil
	}
	if !c.now().Before(entry.expiresAt) {
		utils.Log.Debugf("cache expired for %s", key)
		delete(c.entries, key)
		return nil
	}

	utils.Log.Debugf("cache hit for %s", key)
	cp := *entry.data
	cp.Departures = append([]transit.Departure(nil), entry.data.Departures...)
	cp.Cached = true
	return &cp
}

// Set stores data under key for one TTL window.
func (c *Cache) Set(key string, data *transit.StopDepartures) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = &cacheEntry{data: data, expiresAt: c.now().Add(c.ttl)}
	utils.Log.Debugf("cache set for %s, expires in %s", key, c.ttl)
}

// Clear discards all entries.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*cacheEntry)
	utils.Log.Info("cache cleared")
}
