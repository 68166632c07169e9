package memory

import (
	"sync"
	"time"
)

// fakeClock is a manually advanced clock.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// fakeList satisfies ListHandle.
type fakeList struct {
	mu      sync.Mutex
	items   int
	cleared int
}

func (f *fakeList) ClearCache() {
	f.mu.Lock()
	f.cleared++
	f.mu.Unlock()
}

func (f *fakeList) TotalItems() int { return f.items }

func (f *fakeList) clearedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cleared
}
