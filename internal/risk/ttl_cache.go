package risk

import "time"

type cacheEntry[V any] struct {
	value    V
	storedAt time.Time
}

// ttlCache is a keyed store whose entries go stale ttl after insertion.
// A zero ttl disables expiry.
type ttlCache[V any] struct {
	ttl     time.Duration
	now     func() time.Time
	entries map[string]cacheEntry[V]
}

func newTTLCache[V any](ttl time.Duration, now func() time.Time) *ttlCache[V] {
	return &ttlCache[V]{
		ttl:     ttl,
		now:     now,
		entries: make(map[string]cacheEntry[V]),
	}
}

// Get returns the value when present and fresh. Stale entries are dropped.
func (c *ttlCache[V]) Get(key string) (V, bool) {
	var zero V
	e, ok := c.entries[key]
	if !ok {
		return zero, false
	}
	if c.ttl > 0 && c.now().Sub(e.storedAt) >= c.ttl {
		delete(c.entries, key)
		return zero, false
	}
	return e.value, true
}

func (c *ttlCache[V]) Set(key string, value V) {
	c.entries[key] = cacheEntry[V]{value: value, storedAt: c.now()}
}

func (c *ttlCache[V]) Delete(key string) {
	delete(c.entries, key)
}

func (c *ttlCache[V]) Clear() {
	c.entries = make(map[string]cacheEntry[V])
}

func (c *ttlCache[V]) SetTTL(ttl time.Duration) {
	c.ttl = ttl
}

// Len counts entries, including stale ones not yet evicted
func (c *ttlCache[V]) Len() int {
	return len(c.entries)
}
