package memory

import (
	"sort"
	"sync"
	"time"
)

// AccessTracker records when each cache key was last read or written.
// It is kept alongside the caches rather than inside them, so any code that
// writes a cache without touching the tracker makes that entry look stale.
type AccessTracker struct {
	mu   sync.RWMutex
	now  func() time.Time
	seen map[string]time.Time
}

// NewAccessTracker creates a tracker using now as its clock; nil means time.Now.
func NewAccessTracker(now func() time.Time) *AccessTracker {
	if now == nil {
		now = time.Now
	}
	return &AccessTracker{now: now, seen: make(map[string]time.Time)}
}

// Touch marks key as accessed at the current clock time.
func (t *AccessTracker) Touch(key string) {
	t.TouchAt(key, t.now())
}

// TouchAt marks key as accessed at ts.
func (t *AccessTracker) TouchAt(key string, ts time.Time) {
	t.mu.Lock()
	t.seen[key] = ts
	t.mu.Unlock()
}

// LastAccess returns the last recorded access for key.
func (t *AccessTracker) LastAccess(key string) (time.Time, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	ts, ok := t.seen[key]
	return ts, ok
}

// Age returns how long ago key was touched relative to now.
func (t *AccessTracker) Age(key string, now time.Time) (time.Duration, bool) {
	ts, ok := t.LastAccess(key)
	if !ok {
		return 0, false
	}
	return now.Sub(ts), true
}

// Remove forgets key.
func (t *AccessTracker) Remove(key string) {
	t.mu.Lock()
	delete(t.seen, key)
	t.mu.Unlock()
}

// Snapshot returns a copy of the tracked keys and their timestamps.
func (t *AccessTracker) Snapshot() map[string]time.Time {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[string]time.Time, len(t.seen))
	for k, v := range t.seen {
		out[k] = v
	}
	return out
}

// Keys returns tracked keys in lexical order.
func (t *AccessTracker) Keys() []string {
	t.mu.RLock()
	keys := make([]string, 0, len(t.seen))
	for k := range t.seen {
		keys = append(keys, k)
	}
	t.mu.RUnlock()
	sort.Strings(keys)
	return keys
}

// Len returns the number of tracked keys.
func (t *AccessTracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.seen)
}

// Clear forgets every key.
func (t *AccessTracker) Clear() {
	t.mu.Lock()
	t.seen = make(map[string]time.Time)
	t.mu.Unlock()
}

// Now exposes the tracker clock so sweeps measure age on the same timeline.
func (t *AccessTracker) Now() time.Time { return t.now() }
