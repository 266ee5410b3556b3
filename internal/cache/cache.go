package cache

import (
	"context"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"rentaldesk-bff/internal/logger"
)

// LoadFunc fetches the value for a key on a cache miss.
type LoadFunc func(ctx context.Context) (interface{}, error)

// QueryCache is a read-through cache of backend query results keyed by
// request parameters, e.g. "rentals/7?session=ab12". Writes invalidate by
// key prefix.
type QueryCache struct {
	store *gocache.Cache
	ttl   time.Duration
	group singleflight.Group
}

// New creates a QueryCache. A zero ttl disables caching while keeping the
// single-flight behaviour of GetOrLoad.
func New(ttl, cleanup time.Duration) *QueryCache {
	return &QueryCache{
		store: gocache.New(ttl, cleanup),
		ttl:   ttl,
	}
}

func (c *QueryCache) Get(key string) (interface{}, bool) {
	return c.store.Get(key)
}

func (c *QueryCache) Set(key string, value interface{}) {
	if c.ttl <= 0 {
		return
	}
	c.store.Set(key, value, c.ttl)
}

// GetOrLoad returns the cached value for key or calls load once, sharing the
// result with concurrent callers of the same key. Errors are not cached. A
// panic in load reaches every waiting caller and leaves no state behind.
func (c *QueryCache) GetOrLoad(ctx context.Context, key string, load LoadFunc) (interface{}, error) {
	if v, ok := c.store.Get(key); ok {
		return v, nil
	}

	v, err, shared := c.group.Do(key, func() (interface{}, error) {
		if v, ok := c.store.Get(key); ok {
			return v, nil
		}
		v, err := load(ctx)
		if err != nil {
			return nil, err
		}
		c.Set(key, v)
		return v, nil
	})
	if shared {
		logger.Debug("Cache load shared", "key", key)
	}
	return v, err
}

// Invalidate drops every entry whose key is prefix itself or continues it
// with a path or query separator. "rentals/7" removes "rentals/7" and
// "rentals/7/lines" but keeps "rentals/70".
func (c *QueryCache) Invalidate(prefix string) int {
	removed := 0
	for key := range c.store.Items() {
		if matchesPrefix(key, prefix) {
			c.store.Delete(key)
			removed++
		}
	}
	logger.Debug("Cache invalidated", "prefix", prefix, "removed", removed)
	return removed
}

// Flush empties the cache.
func (c *QueryCache) Flush() {
	c.store.Flush()
}

func matchesPrefix(key, prefix string) bool {
	if !strings.HasPrefix(key, prefix) {
		return false
	}
	if len(key) == len(prefix) || strings.HasSuffix(prefix, "/") {
		return true
	}
	switch key[len(prefix)] {
	case '/', '?':
		return true
	}
	return false
}

// RentalKey is the cache key of a rental lookup.
func RentalKey(rentalID string) string {
	return "rentals/" + rentalID
}
