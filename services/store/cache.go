package store

import "sync"

// cache is a process-wide read-through cache. Entries never expire and are
// never evicted; the working set is bounded by the number of registered
// entities. Values are copied in and out so callers never share memory with
// the cache.
type cache[T any] struct {
	mu    sync.RWMutex
	items map[string]T
}

func newCache[T any]() *cache[T] {
	return &cache[T]{
		items: make(map[string]T),
	}
}

func (c *cache[T]) Get(key string) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	item, ok := c.items[key]
	return item, ok
}

func (c *cache[T]) Put(key string, item T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = item
}

func (c *cache[T]) Has(key string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.items[key]
	return ok
}

// Find returns the first cached entry matching the predicate. Iteration order
// is unspecified; predicates must identify entries uniquely.
func (c *cache[T]) Find(match func(T) bool) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, item := range c.items {
		if match(item) {
			return item, true
		}
	}
	var zero T
	return zero, false
}
