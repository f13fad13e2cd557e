package engine

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// LookupCache remembers resolved posts for the lifetime of the process so a
// long-running server does not spend quota on the same post twice. Only
// found URLs are stored; misses are retried on the next call.
type LookupCache struct {
	entries    sync.Map // key → *cacheEntry
	ttl        time.Duration
	maxEntries int
}

type cacheEntry struct {
	res       Resolution
	expiresAt time.Time
}

// NewLookupCache creates a cache and starts its cleanup loop, which stops
// when ctx is done. maxEntries <= 0 means unbounded.
func NewLookupCache(ctx context.Context, ttl time.Duration, maxEntries int, cleanupInterval time.Duration) *LookupCache {
	c := &LookupCache{ttl: ttl, maxEntries: maxEntries}
	slog.Info("cache: initialized", slog.Duration("ttl", ttl), slog.Int("max_entries", maxEntries))
	go c.cleanupLoop(ctx, cleanupInterval)
	return c
}

// CacheKey builds the cache key of q: network, identity and search text.
func CacheKey(q Query) string {
	joined := strings.Join([]string{q.Network.String(), strings.ToLower(q.Identity), q.Text}, "|")
	hash := sha256.Sum256([]byte(joined))
	return fmt.Sprintf("pl:%x", hash[:12])
}

// Get returns the cached resolution of q.
func (c *LookupCache) Get(q Query) (Resolution, bool) {
	key := CacheKey(q)
	if val, ok := c.entries.Load(key); ok {
		entry := val.(*cacheEntry)
		if time.Now().Before(entry.expiresAt) {
			metrics.CacheHits.Add(1)
			return entry.res, true
		}
		c.entries.Delete(key)
	}
	metrics.CacheMisses.Add(1)
	return Resolution{}, false
}

// Set stores a found resolution for q.
func (c *LookupCache) Set(q Query, res Resolution) {
	if res.URL == "" {
		return
	}
	c.evictIfNeeded()
	c.entries.Store(CacheKey(q), &cacheEntry{res: res, expiresAt: time.Now().Add(c.ttl)})
}

// Len counts the stored entries, expired ones included.
func (c *LookupCache) Len() int {
	n := 0
	c.entries.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// evictIfNeeded drops expired entries first, then the oldest ones, until
// there is room for one more.
func (c *LookupCache) evictIfNeeded() {
	if c.maxEntries <= 0 {
		return
	}
	count := c.Len()
	if count < c.maxEntries {
		return
	}

	now := time.Now()
	c.entries.Range(func(key, val any) bool {
		if entry, ok := val.(*cacheEntry); ok && now.After(entry.expiresAt) {
			c.entries.Delete(key)
			count--
		}
		return count >= c.maxEntries
	})

	for count >= c.maxEntries {
		var oldestKey any
		oldestAt := now.Add(c.ttl + time.Hour)
		c.entries.Range(func(key, val any) bool {
			// expiry = insertion + ttl, so the earliest expiry is the oldest
			if entry, ok := val.(*cacheEntry); ok && entry.expiresAt.Before(oldestAt) {
				oldestKey = key
				oldestAt = entry.expiresAt
			}
			return true
		})
		if oldestKey == nil {
			return
		}
		c.entries.Delete(oldestKey)
		count--
	}
}

func (c *LookupCache) cleanupLoop(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			now := time.Now()
			c.entries.Range(func(key, val any) bool {
				if entry, ok := val.(*cacheEntry); ok && now.After(entry.expiresAt) {
					c.entries.Delete(key)
				}
				return true
			})
		}
	}
}
