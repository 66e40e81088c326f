package policy

import (
	"sync"
	"time"
)

// CacheKey identifies one resolved candidate list
type CacheKey struct {
	Domain string
	Action string
}

// String returns a string representation of the cache key
func (k CacheKey) String() string {
	return k.Domain + ":" + k.Action
}

// cacheEntry is one cached resolution with its insertion time. Entries are
// retained past their TTL so they can be served stale when the backing
// store is unavailable.
type cacheEntry struct {
	key        CacheKey
	candidates []string
	insertedAt time.Time
}

// isFresh checks whether the entry is within its TTL
func (e *cacheEntry) isFresh(ttl time.Duration) bool {
	return time.Since(e.insertedAt) <= ttl
}

// Cache is an in-memory TTL cache for resolved candidate lists.
// Unlike an evicting cache, expired entries stay resident until replaced
// or invalidated: an expired value is still the last known good value.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]*cacheEntry
	maxSize int
	ttl     time.Duration
	hits    uint64
	misses  uint64
	stale   uint64
}

// NewCache creates a cache with the given size bound and TTL
func NewCache(maxSize int, ttl time.Duration) *Cache {
	return &Cache{
		entries: make(map[string]*cacheEntry),
		maxSize: maxSize,
		ttl:     ttl,
	}
}

// Get returns the cached candidate list and whether it is still fresh.
// ok is false only when no entry exists at all.
func (c *Cache) Get(key CacheKey) (candidates []string, fresh bool, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, exists := c.entries[key.String()]
	if !exists {
		c.misses++
		return nil, false, false
	}

	if entry.isFresh(c.ttl) {
		c.hits++
		return entry.candidates, true, true
	}

	c.stale++
	return entry.candidates, false, true
}

// Set stores a resolved candidate list
func (c *Cache) Set(key CacheKey, candidates []string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	keyStr := key.String()
	if entry, exists := c.entries[keyStr]; exists {
		entry.candidates = candidates
		entry.insertedAt = time.Now()
		return
	}

	if len(c.entries) >= c.maxSize {
		c.evictOldest()
	}

	c.entries[keyStr] = &cacheEntry{
		key:        key,
		candidates: candidates,
		insertedAt: time.Now(),
	}
}

// Invalidate removes entries matching the given domain/action. A wildcard
// in either position clears every entry it could have resolved for, since
// wildcard policies participate in fallback resolution.
func (c *Cache) Invalidate(domain, action string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for keyStr, entry := range c.entries {
		if domain != entry.key.Domain && domain != wildcardToken {
			continue
		}
		if action != entry.key.Action && action != wildcardToken {
			continue
		}
		delete(c.entries, keyStr)
	}
}

// Clear removes all entries from the cache
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*cacheEntry)
}

// CacheStats represents cache statistics
type CacheStats struct {
	Size    int
	MaxSize int
	Hits    uint64
	Misses  uint64
	Stale   uint64
}

// Stats returns cache statistics
func (c *Cache) Stats() CacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return CacheStats{
		Size:    len(c.entries),
		MaxSize: c.maxSize,
		Hits:    c.hits,
		Misses:  c.misses,
		Stale:   c.stale,
	}
}

// evictOldest drops the entry with the oldest insertion time (must be
// called with the lock held)
func (c *Cache) evictOldest() {
	var oldestKey string
	var oldestAt time.Time

	for keyStr, entry := range c.entries {
		if oldestKey == "" || entry.insertedAt.Before(oldestAt) {
			oldestKey = keyStr
			oldestAt = entry.insertedAt
		}
	}

	if oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}

// wildcardToken mirrors models.Wildcard without importing it here
const wildcardToken = "*"
