package cache

import (
	"sync"
	"time"

	"github.com/mdfaizan0/groove/pkg/models"
)

// entry is a cached item with expiration
type entry struct {
	value      interface{}
	expiration time.Time
}

func (e *entry) expired() bool {
	return time.Now().After(e.expiration)
}

// MemoryCache implements a simple in-memory TTL cache
type MemoryCache struct {
	items map[string]*entry
	mutex sync.RWMutex
	ttl   time.Duration
}

// NewMemoryCache creates a new memory cache
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	cache := &MemoryCache{
		items: make(map[string]*entry),
		ttl:   ttl,
	}

	go cache.cleanupExpired()

	return cache
}

// Set stores a value in the cache
func (c *MemoryCache) Set(key string, value interface{}) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.items[key] = &entry{
		value:      value,
		expiration: time.Now().Add(c.ttl),
	}
}

// Get retrieves a value from the cache
func (c *MemoryCache) Get(key string) (interface{}, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	item, exists := c.items[key]
	if !exists || item.expired() {
		return nil, false
	}
	return item.value, true
}

// Delete removes a value from the cache
func (c *MemoryCache) Delete(key string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	delete(c.items, key)
}

// Clear removes all items from the cache
func (c *MemoryCache) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.items = make(map[string]*entry)
}

// Size returns the number of items in the cache
func (c *MemoryCache) Size() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	return len(c.items)
}

// cleanupExpired removes expired entries periodically
func (c *MemoryCache) cleanupExpired() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		c.mutex.Lock()
		for key, item := range c.items {
			if item.expired() {
				delete(c.items, key)
			}
		}
		c.mutex.Unlock()
	}
}

// TrackCache caches track listings and search results. Admin mutations
// clear it so stale listings never outlive a library change.
type TrackCache struct {
	*MemoryCache
}

// NewTrackCache creates a new track cache
func NewTrackCache() *TrackCache {
	return &TrackCache{
		MemoryCache: NewMemoryCache(15 * time.Minute),
	}
}

// SetTracks caches a slice of tracks
func (tc *TrackCache) SetTracks(key string, tracks []models.Track) {
	tc.Set(key, tracks)
}

// GetTracks retrieves cached tracks
func (tc *TrackCache) GetTracks(key string) ([]models.Track, bool) {
	value, exists := tc.Get(key)
	if !exists {
		return nil, false
	}

	tracks, ok := value.([]models.Track)
	return tracks, ok
}
