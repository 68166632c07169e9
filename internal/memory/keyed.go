package memory

import "sync"

// KeyedCache is a bounded key-value store that evicts the oldest inserted
// entry once it grows past its capacity. Reads never reorder entries.
type KeyedCache[V any] struct {
	mu       sync.Mutex
	capacity int
	items    map[string]V
	// order holds keys in insertion order; index 0 is the oldest.
	order []string
}

// NewKeyedCache creates a cache holding at most capacity entries.
// A capacity of zero or less means the cache is unbounded.
func NewKeyedCache[V any](capacity int) *KeyedCache[V] {
	return &KeyedCache[V]{
		capacity: capacity,
		items:    make(map[string]V),
	}
}

// Set inserts or overwrites key. Overwriting keeps the key's original
// insertion position. If the insert pushes the cache over capacity the
// oldest entry is dropped and its key returned with evicted=true.
func (c *KeyedCache[V]) Set(key string, value V) (evictedKey string, evicted bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.items[key]; ok {
		c.items[key] = value
		return "", false
	}
	c.items[key] = value
	c.order = append(c.order, key)

	if c.capacity > 0 && len(c.order) > c.capacity {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.items, oldest)
		return oldest, true
	}
	return "", false
}

// Get returns the value for key and whether it was present.
func (c *KeyedCache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.items[key]
	return v, ok
}

// Has reports whether key is resident.
func (c *KeyedCache[V]) Has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.items[key]
	return ok
}

// Delete removes key and reports whether it was present.
func (c *KeyedCache[V]) Delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.items[key]; !ok {
		return false
	}
	delete(c.items, key)
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return true
}

// Clear drops every entry and returns how many were removed.
func (c *KeyedCache[V]) Clear() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := len(c.order)
	c.items = make(map[string]V)
	c.order = nil
	return n
}

// Len returns the number of resident entries.
func (c *KeyedCache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.order)
}

// Capacity returns the configured capacity (zero or less is unbounded).
func (c *KeyedCache[V]) Capacity() int { return c.capacity }

// Keys returns resident keys, oldest first.
func (c *KeyedCache[V]) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}
