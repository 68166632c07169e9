package memory

import (
	"sort"
	"strings"
	"sync"

	"github.com/Chorst09/SistemaPrevendasFull-sub006/internal/metrics"
)

// ListHandle is the part of a list pager the manager needs to evict it.
type ListHandle interface {
	ClearCache()
	TotalItems() int
}

// listRegistry owns registered pagers keyed by their tracker key.
type listRegistry struct {
	prefix string
	mu     sync.Mutex
	lists  map[string]ListHandle
}

func newListRegistry(prefix string) *listRegistry {
	return &listRegistry{prefix: prefix, lists: make(map[string]ListHandle)}
}

func (l *listRegistry) put(key string, h ListHandle) {
	l.mu.Lock()
	l.lists[key] = h
	l.mu.Unlock()
}

func (l *listRegistry) get(key string) (ListHandle, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	h, ok := l.lists[key]
	return h, ok
}

func (l *listRegistry) ids() []string {
	l.mu.Lock()
	out := make([]string, 0, len(l.lists))
	for k := range l.lists {
		out = append(out, strings.TrimPrefix(k, l.prefix))
	}
	l.mu.Unlock()
	sort.Strings(out)
	return out
}

// Evict clears the pager's page cache and forgets it.
func (l *listRegistry) Evict(key string) bool {
	l.mu.Lock()
	h, ok := l.lists[key]
	delete(l.lists, key)
	l.mu.Unlock()
	if ok {
		h.ClearCache()
	}
	return ok
}

func (l *listRegistry) Has(key string) bool {
	_, ok := l.get(key)
	return ok
}

func (l *listRegistry) Clear() int {
	l.mu.Lock()
	lists := l.lists
	l.lists = make(map[string]ListHandle)
	l.mu.Unlock()
	for _, h := range lists {
		h.ClearCache()
	}
	return len(lists)
}

func (l *listRegistry) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.lists)
}

// RegisterList stores a pager under id and starts tracking its age.
func (m *Manager) RegisterList(id string, h ListHandle) {
	key := m.listPrefix + id
	m.lists.put(key, h)
	m.tracker.Touch(key)
}

// List returns the pager registered under id and refreshes its access time.
func (m *Manager) List(id string) (ListHandle, bool) {
	key := m.listPrefix + id
	h, ok := m.lists.get(key)
	if !ok {
		metrics.MemoryCacheMisses.WithLabelValues(CategoryList).Inc()
		return nil, false
	}
	metrics.MemoryCacheHits.WithLabelValues(CategoryList).Inc()
	m.tracker.Touch(key)
	return h, true
}

// TouchList refreshes the access time of a registered pager.
func (m *Manager) TouchList(id string) {
	key := m.listPrefix + id
	if m.lists.Has(key) {
		m.tracker.Touch(key)
	}
}

// UnregisterList drops the pager registered under id.
func (m *Manager) UnregisterList(id string) {
	key := m.listPrefix + id
	m.lists.Evict(key)
	m.tracker.Remove(key)
}

// ListIDs returns the ids of registered pagers.
func (m *Manager) ListIDs() []string { return m.lists.ids() }

// ListAs returns the pager registered under id as its concrete type.
func ListAs[P ListHandle](m *Manager, id string) (P, bool) {
	var zero P
	h, ok := m.List(id)
	if !ok {
		return zero, false
	}
	p, ok := h.(P)
	if !ok {
		return zero, false
	}
	return p, true
}
