package cache

import (
	"container/list"
	"sync"
	"time"

	"github.com/c360/bee/errors"
)

// EvictCallback is called when an entry is evicted from the cache.
// It receives the key and value of the evicted entry.
type EvictCallback[V any] func(key string, value V)

type entry[V any] struct {
	key       string
	value     V
	expiresAt time.Time // zero means no expiration
}

func (e *entry[V]) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// Cache is an LRU cache with an optional TTL.
type Cache[V any] struct {
	mu      sync.Mutex
	maxSize int
	ttl     time.Duration
	now     func() time.Time
	items   map[string]*list.Element // key -> list element
	order   *list.List               // front is most recently used
	stats   counters
	evictFn EvictCallback[V]
}

// New creates a cache holding at most maxSize entries.
func New[V any](maxSize int, options ...Option[V]) (*Cache[V], error) {
	if maxSize <= 0 {
		return nil, errors.Newf(errors.InvalidParam, "cache max size must be positive, got %d", maxSize)
	}
	s := settings[V]{now: time.Now}
	for _, opt := range options {
		if opt != nil {
			opt(&s)
		}
	}

	c := &Cache[V]{
		maxSize: maxSize,
		ttl:     s.ttl,
		now:     s.now,
		items:   make(map[string]*list.Element),
		order:   list.New(),
		evictFn: s.onEvict,
	}
	if s.registry != nil {
		if err := c.stats.export(s.registry, s.owner); err != nil {
			return nil, errors.Wrap(err, "cache", "New", "metrics registration")
		}
	}
	return c, nil
}

// Get retrieves a value by key and marks it as recently used.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.lookup(key)
	if !ok {
		c.stats.record(opMiss)
		var zero V
		return zero, false
	}
	c.stats.record(opHit)
	return e.value, true
}

// Set stores value under key, refreshing its TTL. It reports whether a new
// entry was created.
func (c *Cache[V]) Set(key string, value V) (bool, error) {
	if err := validateKey(key); err != nil {
		return false, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	created := c.put(key, value, true)
	c.stats.record(opSet)
	return created, nil
}

// Add stores value only when key is absent or expired. It reports whether
// the value was stored; an existing live entry is left untouched but marked
// as recently used.
func (c *Cache[V]) Add(key string, value V) (bool, error) {
	if err := validateKey(key); err != nil {
		return false, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.lookup(key); ok {
		c.stats.record(opHit)
		return false, nil
	}
	c.stats.record(opMiss)
	c.put(key, value, false)
	c.stats.record(opSet)
	return true, nil
}

// Delete removes an entry by key.
func (c *Cache[V]) Delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		return false
	}
	c.order.Remove(el)
	delete(c.items, key)
	c.stats.record(opDelete)
	c.stats.resize(len(c.items))
	return true
}

// Len returns the number of entries, including expired ones not yet
// removed.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Stats returns a copy of the counters.
func (c *Cache[V]) Stats() Snapshot {
	return c.stats.snapshot()
}

// lookup returns the live entry for key, removing it if expired. The
// caller holds mu.
func (c *Cache[V]) lookup(key string) (*entry[V], bool) {
	el, ok := c.items[key]
	if !ok {
		return nil, false
	}
	e := el.Value.(*entry[V])
	if e.expired(c.now()) {
		c.evict(el)
		return nil, false
	}
	c.order.MoveToFront(el)
	return e, true
}

// put inserts or updates key. The caller holds mu.
func (c *Cache[V]) put(key string, value V, update bool) bool {
	var expiresAt time.Time
	if c.ttl > 0 {
		expiresAt = c.now().Add(c.ttl)
	}

	if el, ok := c.items[key]; ok && update {
		e := el.Value.(*entry[V])
		e.value, e.expiresAt = value, expiresAt
		c.order.MoveToFront(el)
		return false
	}

	c.items[key] = c.order.PushFront(&entry[V]{key: key, value: value, expiresAt: expiresAt})
	for len(c.items) > c.maxSize {
		c.evict(c.order.Back())
	}
	c.stats.resize(len(c.items))
	return true
}

// evict removes el and reports it. The caller holds mu.
func (c *Cache[V]) evict(el *list.Element) {
	e := el.Value.(*entry[V])
	c.order.Remove(el)
	delete(c.items, e.key)
	c.stats.record(opEvict)
	c.stats.resize(len(c.items))
	if c.evictFn != nil {
		c.evictFn(e.key, e.value)
	}
}

func validateKey(key string) error {
	if key == "" {
		return errors.New(errors.InvalidParam, "cache key cannot be empty")
	}
	return nil
}
