// Package cache provides a bounded, thread-safe map that evicts entries in
// insertion order.
//
// Reads never change an entry's position: the oldest inserted live key is
// always the next one evicted, however often it is read.
package cache

import (
	"container/list"
	"errors"
	"fmt"
	"sync"
)

// ErrInvalidArgument is returned by New for a non-positive limit.
var ErrInvalidArgument = errors.New("invalid argument")

// Cache is a FIFO-evicting map holding at most Limit entries.
type Cache[K comparable, V any] struct {
	mu    sync.RWMutex
	limit int
	items map[K]*list.Element

	// order holds *entry values, oldest at the front.
	order *list.List

	onEvict func(K, V)
	metrics *Metrics
}

type entry[K comparable, V any] struct {
	key   K
	value V
}

// Option configures a Cache.
type Option[K comparable, V any] func(*Cache[K, V])

// WithEvictHook registers fn to be called, outside the lock, for every
// entry evicted to make room. Remove and Clear do not call it.
func WithEvictHook[K comparable, V any](fn func(K, V)) Option[K, V] {
	return func(c *Cache[K, V]) { c.onEvict = fn }
}

// WithMetrics reports hits, misses, evictions and entries to m.
func WithMetrics[K comparable, V any](m *Metrics) Option[K, V] {
	return func(c *Cache[K, V]) { c.metrics = m }
}

// New returns an empty cache holding at most limit entries.
func New[K comparable, V any](limit int, opts ...Option[K, V]) (*Cache[K, V], error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: cache limit must be positive, got %d", ErrInvalidArgument, limit)
	}
	c := &Cache[K, V]{
		limit: limit,
		items: make(map[K]*list.Element, limit),
		order: list.New(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Set stores v under k. An existing key is overwritten in place and keeps
// its queue position. A new key evicts the oldest entry when the cache is
// full.
func (c *Cache[K, V]) Set(k K, v V) {
	var evicted *entry[K, V]

	c.mu.Lock()
	if el, ok := c.items[k]; ok {
		el.Value.(*entry[K, V]).value = v
		c.mu.Unlock()
		return
	}
	if c.order.Len() >= c.limit {
		evicted = c.removeElement(c.order.Front())
		c.metrics.evicted()
	}
	c.items[k] = c.order.PushBack(&entry[K, V]{key: k, value: v})
	c.metrics.added(1)
	c.mu.Unlock()

	if evicted != nil && c.onEvict != nil {
		c.onEvict(evicted.key, evicted.value)
	}
}

// TryGet returns the value stored under k.
func (c *Cache[K, V]) TryGet(k K) (V, bool) {
	c.mu.RLock()
	el, ok := c.items[k]
	var v V
	if ok {
		v = el.Value.(*entry[K, V]).value
	}
	c.mu.RUnlock()

	c.metrics.lookup(ok)
	return v, ok
}

// Contains reports whether k is present without counting a hit or miss.
func (c *Cache[K, V]) Contains(k K) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.items[k]
	return ok
}

// Remove deletes k and reports whether it was present.
func (c *Cache[K, V]) Remove(k K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.items[k]
	if !ok {
		return false
	}
	c.removeElement(el)
	return true
}

// Clear deletes every entry.
func (c *Cache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.metrics.added(-c.order.Len())
	clear(c.items)
	c.order.Init()
}

// Count returns the number of entries.
func (c *Cache[K, V]) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.order.Len()
}

// Limit returns the capacity.
func (c *Cache[K, V]) Limit() int { return c.limit }

// Keys returns the keys from oldest to newest.
func (c *Cache[K, V]) Keys() []K {
	c.mu.RLock()
	defer c.mu.RUnlock()
	keys := make([]K, 0, c.order.Len())
	for el := c.order.Front(); el != nil; el = el.Next() {
		keys = append(keys, el.Value.(*entry[K, V]).key)
	}
	return keys
}

// removeElement unlinks el. The caller holds the write lock.
func (c *Cache[K, V]) removeElement(el *list.Element) *entry[K, V] {
	e := c.order.Remove(el).(*entry[K, V])
	delete(c.items, e.key)
	c.metrics.added(-1)
	return e
}
