// Package modelcache provides a bounded, time-expiring store of live model
// handles keyed by (provider, model). Eviction is least-recently-used;
// expiry is lazy on read with a periodic background sweep. Concurrent
// creations for the same key are deduplicated so the underlying constructor
// runs exactly once per miss.
package modelcache

import (
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/calder-ai/relay/internal/core/domain"
	"github.com/calder-ai/relay/internal/logger"
)

const (
	DefaultMaxEntries    = 10
	DefaultTTL           = 5 * time.Minute
	DefaultSweepInterval = 60 * time.Second
)

// Key is the composite cache key. A struct key cannot misparse model ids
// that contain delimiter-like characters (ollama ids such as
// "llama3.2:latest" are routine).
type Key struct {
	Provider domain.ProviderID
	ModelID  string
}

// Config tunes cache capacity and entry lifetime. Zero values fall back to
// the package defaults; a negative SweepInterval disables the background
// sweeper entirely.
type Config struct {
	MaxEntries    int
	TTL           time.Duration
	SweepInterval time.Duration
}

// Stats is a read-only diagnostic snapshot.
type Stats struct {
	Size        int
	PerProvider map[domain.ProviderID]int
	Oldest      time.Time
	Newest      time.Time
}

type entry struct {
	handle    domain.ModelHandle
	createdAt time.Time
	lastUsed  time.Time
	hits      int
}

// Cache is safe for concurrent use. Construct it explicitly at the
// composition root and inject it; there is no package-level instance.
type Cache struct {
	mu         sync.Mutex
	entries    map[Key]*entry
	maxEntries int
	ttl        time.Duration

	group singleflight.Group

	now      func() time.Time
	stop     chan struct{}
	stopOnce sync.Once
}

// New builds a cache and, when SweepInterval is positive, starts the
// background sweeper. Callers own the cache lifecycle and must Close it.
func New(cfg Config) *Cache {
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = DefaultMaxEntries
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.SweepInterval == 0 {
		cfg.SweepInterval = DefaultSweepInterval
	}

	c := &Cache{
		entries:    make(map[Key]*entry),
		maxEntries: cfg.MaxEntries,
		ttl:        cfg.TTL,
		now:        time.Now,
		stop:       make(chan struct{}),
	}

	if cfg.SweepInterval > 0 {
		go c.sweepLoop(cfg.SweepInterval)
	}

	return c
}

// Get returns the cached handle for (provider, modelID), or nil when absent
// or expired. Expired entries are evicted on the spot. A true hit bumps the
// entry's recency and hit count.
func (c *Cache) Get(provider domain.ProviderID, modelID string) domain.ModelHandle {
	key := Key{Provider: provider, ModelID: modelID}

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil
	}

	now := c.now()
	if c.expired(e, now) {
		delete(c.entries, key)
		return nil
	}

	e.lastUsed = now
	e.hits++
	return e.handle
}

// Has reports residency with the same expiry semantics as Get, without
// touching usage stats.
func (c *Cache) Has(provider domain.ProviderID, modelID string) bool {
	key := Key{Provider: provider, ModelID: modelID}

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return false
	}
	if c.expired(e, c.now()) {
		delete(c.entries, key)
		return false
	}
	return true
}

// Set inserts or replaces the handle for (provider, modelID). Inserting a
// new key at capacity evicts the least-recently-used entry first; writing an
// existing key updates in place without changing occupancy.
func (c *Cache) Set(provider domain.ProviderID, modelID string, handle domain.ModelHandle) {
	key := Key{Provider: provider, ModelID: modelID}
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxEntries {
		c.evictLRULocked()
	}

	c.entries[key] = &entry{
		handle:    handle,
		createdAt: now,
		lastUsed:  now,
	}
}

// GetOrCreate returns the cached handle for the key, or runs create to
// produce one. When multiple goroutines miss on the same key concurrently,
// create executes once and every caller receives the same outcome. Failed
// creations are shared with all waiters but never cached.
func (c *Cache) GetOrCreate(provider domain.ProviderID, modelID string, create func() (domain.ModelHandle, error)) (domain.ModelHandle, error) {
	if h := c.Get(provider, modelID); h != nil {
		return h, nil
	}

	v, err, _ := c.group.Do(flightKey("create", provider, modelID), func() (interface{}, error) {
		// Another waiter may have populated the cache before we won the race.
		if h := c.Get(provider, modelID); h != nil {
			return h, nil
		}

		h, err := create()
		if err != nil {
			return nil, err
		}
		if h != nil {
			c.Set(provider, modelID, h)
		}
		return h, nil
	})
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, nil
	}
	return v.(domain.ModelHandle), nil
}

// InvalidateProvider drops every entry belonging to one provider, leaving
// the rest untouched. Called when that provider's credentials change.
func (c *Cache) InvalidateProvider(provider domain.ProviderID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key := range c.entries {
		if key.Provider == provider {
			delete(c.entries, key)
			removed++
		}
	}
	if removed > 0 {
		logger.Debug("model cache invalidated",
			zap.String("provider", string(provider)),
			zap.Int("removed", removed),
		)
	}
}

// Clear empties the cache.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[Key]*entry)
}

// Stats returns a read-only snapshot of occupancy and entry ages.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Stats{
		Size:        len(c.entries),
		PerProvider: make(map[domain.ProviderID]int),
	}
	for key, e := range c.entries {
		s.PerProvider[key.Provider]++
		if s.Oldest.IsZero() || e.createdAt.Before(s.Oldest) {
			s.Oldest = e.createdAt
		}
		if e.createdAt.After(s.Newest) {
			s.Newest = e.createdAt
		}
	}
	return s
}

// Close stops the background sweeper. Safe to call more than once.
func (c *Cache) Close() {
	c.stopOnce.Do(func() {
		close(c.stop)
	})
}

// expired treats an entry as stale strictly after TTL, so an entry queried
// at exactly createdAt+TTL is still live. The boundary choice is arbitrary
// but must stay consistent with the sweeper below.
func (c *Cache) expired(e *entry, now time.Time) bool {
	return now.Sub(e.createdAt) > c.ttl
}

func (c *Cache) evictLRULocked() {
	var victim Key
	var oldest time.Time
	first := true
	for key, e := range c.entries {
		if first || e.lastUsed.Before(oldest) {
			victim = key
			oldest = e.lastUsed
			first = false
		}
	}
	if !first {
		delete(c.entries, victim)
	}
}

func (c *Cache) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.sweep()
		}
	}
}

// sweep removes all expired entries regardless of access patterns, so keys
// nobody re-reads do not pin stale network clients in memory.
func (c *Cache) sweep() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for key, e := range c.entries {
		if c.expired(e, now) {
			delete(c.entries, key)
		}
	}
}

// flightKey builds an unambiguous deduplication key. Each part is quoted so
// model ids containing delimiter characters cannot collide with one another.
func flightKey(op string, provider domain.ProviderID, modelID string) string {
	return op + ":" + strconv.Quote(string(provider)) + ":" + strconv.Quote(modelID)
}
