package memory

import (
	"strings"

	"github.com/Chorst09/SistemaPrevendasFull-sub006/internal/metrics"
)

// Scoped is a typed cache bound to one category of a Manager. It prefixes
// ids with the category prefix and keeps the access tracker in step with
// every read and write, so callers cannot forget the tracker update.
type Scoped[V any] struct {
	cat     Category
	cache   *KeyedCache[V]
	tracker *AccessTracker
}

// Bind creates a typed cache for the named category and attaches it to the
// manager's reaper. It panics on an unknown category, which is a wiring bug.
func Bind[V any](m *Manager, category string, capacity int) *Scoped[V] {
	cat, ok := m.reaper.Category(category)
	if !ok {
		panic("memory: unknown category " + category)
	}
	s := &Scoped[V]{
		cat:     cat,
		cache:   NewKeyedCache[V](capacity),
		tracker: m.tracker,
	}
	m.reaper.Attach(cat.Name, s)
	return s
}

// Key returns the tracker key for id.
func (s *Scoped[V]) Key(id string) string { return s.cat.Prefix + id }

// Set stores v under id. A capacity eviction also drops the evicted key from
// the tracker.
func (s *Scoped[V]) Set(id string, v V) {
	key := s.Key(id)
	if evicted, ok := s.cache.Set(key, v); ok {
		s.tracker.Remove(evicted)
		metrics.MemoryEvictionsTotal.WithLabelValues(s.cat.Name, "capacity").Inc()
	}
	s.tracker.Touch(key)
}

// Get returns the value for id and refreshes its access time on a hit.
func (s *Scoped[V]) Get(id string) (V, bool) {
	key := s.Key(id)
	v, ok := s.cache.Get(key)
	if !ok {
		metrics.MemoryCacheMisses.WithLabelValues(s.cat.Name).Inc()
		return v, false
	}
	metrics.MemoryCacheHits.WithLabelValues(s.cat.Name).Inc()
	s.tracker.Touch(key)
	return v, true
}

// Delete removes id from the cache and the tracker.
func (s *Scoped[V]) Delete(id string) bool {
	key := s.Key(id)
	s.tracker.Remove(key)
	if s.cache.Delete(key) {
		metrics.MemoryEvictionsTotal.WithLabelValues(s.cat.Name, "manual").Inc()
		return true
	}
	return false
}

// IDs returns resident ids, oldest inserted first.
func (s *Scoped[V]) IDs() []string {
	keys := s.cache.Keys()
	for i, k := range keys {
		keys[i] = strings.TrimPrefix(k, s.cat.Prefix)
	}
	return keys
}

// Category returns the category the cache is bound to.
func (s *Scoped[V]) Category() Category { return s.cat }

// Evict implements Evictable.
func (s *Scoped[V]) Evict(key string) bool { return s.cache.Delete(key) }

// Has implements Evictable.
func (s *Scoped[V]) Has(key string) bool { return s.cache.Has(key) }

// Clear drops every entry and its tracker key.
func (s *Scoped[V]) Clear() int {
	for _, k := range s.cache.Keys() {
		s.tracker.Remove(k)
	}
	return s.cache.Clear()
}

// Len implements Evictable.
func (s *Scoped[V]) Len() int { return s.cache.Len() }
