// Package blobcache implements a process-wide, size- and age-bounded
// in-memory cache of image payloads keyed by derived strings.
//
// Replacement is LRU by last access time; expiry is lazy (an expired entry
// is evicted when read, not swept by a background task). The cache is meant
// to be owned by the single coordination context that runs all manager
// mutations; it does no internal locking, so concurrent callers must
// serialize externally.
package blobcache

import "time"

type entry struct {
	payload    []byte
	lastAccess time.Time
}

// Stats carries diagnostic counters. Obtainable on demand, not needed for
// correctness.
type Stats struct {
	Count int
	Bytes int64
}

type Cache struct {
	capacity int
	ttl      time.Duration
	entries  map[string]*entry

	// now is the clock; swapped for a fake in tests.
	now func() time.Time
}

// New creates a cache bounded to capacity entries, each living at most ttl
// past its last access.
func New(capacity int, ttl time.Duration) *Cache {
	return &Cache{
		capacity: capacity,
		ttl:      ttl,
		entries:  make(map[string]*entry, capacity),
		now:      time.Now,
	}
}

// Put inserts or overwrites the payload under key, resetting its access
// time. When the cache is at capacity the entry with the oldest access time
// is evicted first. Put never fails.
func (c *Cache) Put(key string, payload []byte) {
	if e, ok := c.entries[key]; ok {
		e.payload = payload
		e.lastAccess = c.now()
		return
	}
	if len(c.entries) >= c.capacity {
		c.evictOldest()
	}
	c.entries[key] = &entry{payload: payload, lastAccess: c.now()}
}

// Get returns the payload for key, bumping its access time. An entry whose
// age exceeds the TTL is evicted and reported absent.
func (c *Cache) Get(key string) ([]byte, bool) {
	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.now().Sub(e.lastAccess) > c.ttl {
		delete(c.entries, key)
		return nil, false
	}
	e.lastAccess = c.now()
	return e.payload, true
}

// Remove drops key if present. Idempotent.
func (c *Cache) Remove(key string) {
	delete(c.entries, key)
}

// Clear drops every entry.
func (c *Cache) Clear() {
	c.entries = make(map[string]*entry, c.capacity)
}

// Stats reports the entry count and approximate payload bytes held.
func (c *Cache) Stats() Stats {
	s := Stats{Count: len(c.entries)}
	for _, e := range c.entries {
		s.Bytes += int64(len(e.payload))
	}
	return s
}

func (c *Cache) evictOldest() {
	var oldestKey string
	var oldest time.Time
	first := true
	for k, e := range c.entries {
		if first || e.lastAccess.Before(oldest) {
			oldestKey, oldest = k, e.lastAccess
			first = false
		}
	}
	if !first {
		delete(c.entries, oldestKey)
	}
}
