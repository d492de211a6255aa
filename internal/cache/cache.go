// Package cache provides the time-boxed, size-bounded store for combined
// search responses keyed by request fingerprint.
//
// Eviction is by insertion order: entries are never promoted on read, so the
// entry dropped at capacity is always the oldest-inserted one. Callers that
// describe this as "LRU" should read it as FIFO.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/simplelru"
	"github.com/rs/zerolog"

	"github.com/helixir/paper-search-service/internal/domain"
)

// Defaults applied when Config fields are zero.
const (
	DefaultTTL           = 5 * time.Minute
	DefaultMaxSize       = 1000
	DefaultSweepInterval = 5 * time.Minute
)

// Config configures a Cache.
type Config struct {
	TTL           time.Duration
	MaxSize       int
	SweepInterval time.Duration
}

// Stats is the snapshot returned by Cache.Stats.
type Stats struct {
	Size    int `json:"size"`
	MaxSize int `json:"maxSize"`
}

type entry struct {
	response domain.SearchResponse
	storedAt time.Time
	ttl      time.Duration
}

func (e entry) expired(now time.Time) bool {
	return now.Sub(e.storedAt) > e.ttl
}

// Cache maps request fingerprints to search responses. It is safe for
// concurrent use; every operation holds the lock for its full duration.
type Cache struct {
	mu      sync.Mutex
	entries *simplelru.LRU[string, entry]
	cfg     Config
	now     func() time.Time
	logger  zerolog.Logger
}

// New creates a Cache.
func New(cfg Config, logger zerolog.Logger) *Cache {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = DefaultMaxSize
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = DefaultSweepInterval
	}

	// simplelru only fails for non-positive sizes, excluded above.
	entries, _ := simplelru.NewLRU[string, entry](cfg.MaxSize, nil)

	return &Cache{
		entries: entries,
		cfg:     cfg,
		now:     time.Now,
		logger:  logger.With().Str("component", "search_cache").Logger(),
	}
}

// Get returns the response stored under key. Expired entries are removed and
// reported as absent.
func (c *Cache) Get(key string) (domain.SearchResponse, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries.Peek(key)
	if !ok {
		return domain.SearchResponse{}, false
	}
	if e.expired(c.now()) {
		c.entries.Remove(key)
		return domain.SearchResponse{}, false
	}
	return e.response, true
}

// Set stores response under key with the default TTL.
func (c *Cache) Set(key string, response domain.SearchResponse) {
	c.SetWithTTL(key, response, c.cfg.TTL)
}

// SetWithTTL stores response under key. At capacity, the oldest-inserted
// entry is evicted first.
func (c *Cache) SetWithTTL(key string, response domain.SearchResponse, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.cfg.TTL
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.entries.Len() >= c.cfg.MaxSize {
		if evicted, _, ok := c.entries.RemoveOldest(); ok {
			c.logger.Debug().Str("key", evicted).Msg("evicted oldest cache entry")
		}
	}

	c.entries.Add(key, entry{
		response: response,
		storedAt: c.now(),
		ttl:      ttl,
	})
}

// Sweep removes every expired entry and returns how many were removed.
func (c *Cache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for _, key := range c.entries.Keys() {
		if e, ok := c.entries.Peek(key); ok && e.expired(now) {
			c.entries.Remove(key)
			removed++
		}
	}
	return removed
}

// Len returns the number of stored entries, expired or not.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries.Len()
}

// Stats returns the current size and capacity.
func (c *Cache) Stats() Stats {
	return Stats{Size: c.Len(), MaxSize: c.cfg.MaxSize}
}

// Run sweeps expired entries every SweepInterval. Blocks until ctx is
// cancelled.
func (c *Cache) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.cfg.SweepInterval)
	defer ticker.Stop()

	c.logger.Info().Dur("interval", c.cfg.SweepInterval).Msg("starting cache sweeper")

	for {
		select {
		case <-ctx.Done():
			c.logger.Info().Msg("cache sweeper stopped")
			return ctx.Err()
		case <-ticker.C:
			if removed := c.Sweep(); removed > 0 {
				c.logger.Debug().Int("removed", removed).Int("size", c.Len()).Msg("swept expired cache entries")
			}
		}
	}
}
