// Package cache provides a clock-aware TTL key/value store.
package cache

import (
	"sync"
	"time"
)

// Entry is a cached value with the time it was fetched.
// Entries are immutable once stored.
type Entry[V any] struct {
	Value     V
	FetchedAt time.Time
}

// Cache stores one Entry per key. An entry is fresh while its age is below
// the TTL; stale entries are still returned by Get so callers can fall back
// to them. Reads are lock-free and every write atomically replaces the
// entry for its key.
type Cache[K comparable, V any] struct {
	entries sync.Map
	ttl     time.Duration
	now     func() time.Time
}

// Option configures a Cache.
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// New creates a cache whose entries stay fresh for ttl.
func New[K comparable, V any](ttl time.Duration, opts ...Option) *Cache[K, V] {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return &Cache[K, V]{ttl: ttl, now: o.now}
}

// Get returns the entry for key regardless of freshness.
func (c *Cache[K, V]) Get(key K) (Entry[V], bool) {
	v, ok := c.entries.Load(key)
	if !ok {
		return Entry[V]{}, false
	}
	return v.(Entry[V]), true
}

// GetFresh returns the entry for key only if it is fresh.
func (c *Cache[K, V]) GetFresh(key K) (Entry[V], bool) {
	e, ok := c.Get(key)
	if !ok || !c.IsFresh(e) {
		return Entry[V]{}, false
	}
	return e, true
}

// Put stores value under key, stamped with the current time.
func (c *Cache[K, V]) Put(key K, value V) {
	c.PutAt(key, value, c.now())
}

// PutAt stores value under key with an explicit fetch time.
func (c *Cache[K, V]) PutAt(key K, value V, fetchedAt time.Time) {
	c.entries.Store(key, Entry[V]{Value: value, FetchedAt: fetchedAt})
}

// IsFresh reports whether e is younger than the TTL.
func (c *Cache[K, V]) IsFresh(e Entry[V]) bool {
	return c.Age(e) < c.ttl
}

// Age returns how long ago e was fetched.
func (c *Cache[K, V]) Age(e Entry[V]) time.Duration {
	return c.now().Sub(e.FetchedAt)
}

// TTL returns the configured time-to-live.
func (c *Cache[K, V]) TTL() time.Duration {
	return c.ttl
}

// Len returns the number of stored entries, fresh or stale.
func (c *Cache[K, V]) Len() int {
	n := 0
	c.entries.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}
