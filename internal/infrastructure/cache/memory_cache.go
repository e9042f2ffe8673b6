// Package cache holds short-lived in-process caches.
package cache

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"

	"github.com/janhq/reno-server/internal/domain/homecontext"
)

// BundleCache is an LRU of assembled home context bundles with a TTL.
type BundleCache struct {
	cache *lru.Cache
	ttl   time.Duration
	now   func() time.Time
	mu    sync.RWMutex
}

type cacheEntry struct {
	value     homecontext.Bundle
	expiresAt time.Time
}

// NewBundleCache creates a cache holding at most maxSize bundles.
func NewBundleCache(maxSize int, ttl time.Duration) (*BundleCache, error) {
	if maxSize <= 0 {
		maxSize = 256
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	cache, err := lru.New(maxSize)
	if err != nil {
		return nil, err
	}
	return &BundleCache{cache: cache, ttl: ttl, now: time.Now}, nil
}

// Get returns a live entry.
func (c *BundleCache) Get(key string) (homecontext.Bundle, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	val, found := c.cache.Get(key)
	if !found {
		return homecontext.Bundle{}, false
	}
	entry := val.(cacheEntry)
	if c.now().After(entry.expiresAt) {
		c.cache.Remove(key)
		return homecontext.Bundle{}, false
	}
	return entry.value, true
}

// Add stores bundle under key for the configured TTL.
func (c *BundleCache) Add(key string, bundle homecontext.Bundle) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache.Add(key, cacheEntry{value: bundle, expiresAt: c.now().Add(c.ttl)})
}

// Purge drops every entry.
func (c *BundleCache) Purge() {
	c.cache.Purge()
}

// Len reports the number of cached entries, expired or not.
func (c *BundleCache) Len() int {
	return c.cache.Len()
}

var _ homecontext.Cache = (*BundleCache)(nil)
