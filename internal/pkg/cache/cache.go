// Package cache provides the in-memory TTL cache decisions are stored
// in between evaluations. Sharded mutex-protected maps; the shard for a
// key is picked by hash so concurrent callers rarely contend.
package cache

import (
	"sync"
	"sync/atomic"
	"time"

	"vidguard/internal/pkg/hash"
)

const shardCount = 16

// DefaultMaxEntries bounds the cache when no explicit cap is
// configured. TTL sweeping alone leaves the cache unbounded between
// sweeps under high distinct-item cardinality.
const DefaultMaxEntries = 10000

// Stats is a point-in-time view of the cache.
type Stats struct {
	Size    int
	HitRate float64
}

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

type shard[V any] struct {
	mu      sync.RWMutex
	entries map[string]entry[V]
	cap     int
}

// Cache is a TTL key/value cache safe for concurrent use.
type Cache[V any] struct {
	shards [shardCount]*shard[V]
	hits   atomic.Uint64
	misses atomic.Uint64
}

// New creates a cache bounded to maxEntries. maxEntries <= 0 selects
// DefaultMaxEntries.
func New[V any](maxEntries int) *Cache[V] {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	perShard := maxEntries / shardCount
	if perShard < 1 {
		perShard = 1
	}
	c := &Cache[V]{}
	for i := range c.shards {
		c.shards[i] = &shard[V]{
			entries: make(map[string]entry[V]),
			cap:     perShard,
		}
	}
	return c
}

func (c *Cache[V]) shardFor(key string) *shard[V] {
	return c.shards[hash.FastHash64(key)%shardCount]
}

// Get returns the live value for key. An absent or expired entry is a
// miss; expired entries are left for Sweep.
func (c *Cache[V]) Get(key string) (V, bool) {
	s := c.shardFor(key)
	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()

	if !ok || !time.Now().Before(e.expiresAt) {
		c.misses.Add(1)
		var zero V
		return zero, false
	}
	c.hits.Add(1)
	return e.value, true
}

// Put stores value under key for ttl, overwriting any prior entry. A
// full shard drops its expired entries first, then the entry closest to
// expiry.
func (c *Cache[V]) Put(key string, value V, ttl time.Duration) {
	now := time.Now()
	s := c.shardFor(key)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[key]; !exists && len(s.entries) >= s.cap {
		s.evictLocked(now)
	}
	s.entries[key] = entry[V]{value: value, expiresAt: now.Add(ttl)}
}

// evictLocked frees room in a full shard.
func (s *shard[V]) evictLocked(now time.Time) {
	removed := false
	for k, e := range s.entries {
		if !now.Before(e.expiresAt) {
			delete(s.entries, k)
			removed = true
		}
	}
	if removed {
		return
	}

	var victim string
	var earliest time.Time
	for k, e := range s.entries {
		if victim == "" || e.expiresAt.Before(earliest) {
			victim = k
			earliest = e.expiresAt
		}
	}
	if victim != "" {
		delete(s.entries, victim)
	}
}

// Sweep removes every expired entry and reports how many were removed.
func (c *Cache[V]) Sweep() int {
	now := time.Now()
	removed := 0
	for _, s := range c.shards {
		s.mu.Lock()
		for k, e := range s.entries {
			if !now.Before(e.expiresAt) {
				delete(s.entries, k)
				removed++
			}
		}
		s.mu.Unlock()
	}
	return removed
}

// Clear drops every entry. Hit/miss accounting is preserved.
func (c *Cache[V]) Clear() {
	for _, s := range c.shards {
		s.mu.Lock()
		s.entries = make(map[string]entry[V])
		s.mu.Unlock()
	}
}

// Len reports the number of stored entries, expired or not.
func (c *Cache[V]) Len() int {
	n := 0
	for _, s := range c.shards {
		s.mu.RLock()
		n += len(s.entries)
		s.mu.RUnlock()
	}
	return n
}

// Stats returns the current size and lifetime hit rate.
func (c *Cache[V]) Stats() Stats {
	hits := c.hits.Load()
	total := hits + c.misses.Load()
	rate := 0.0
	if total > 0 {
		rate = float64(hits) / float64(total)
	}
	return Stats{Size: c.Len(), HitRate: rate}
}
