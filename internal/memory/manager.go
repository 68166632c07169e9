// Package memory keeps short-lived working data for the pricing tools
// (open tabs, calculation results, component state, list views) and evicts
// it once idle or when the process runs short of heap.
//
// A Manager is built once by whatever owns the application lifecycle and
// passed to the features that need it. Features bind typed caches with
// Bind, register list pagers with RegisterList and hook their own cleanup
// into the sweep with RegisterCleanup.
package memory

import (
	"context"
	"time"

	"github.com/Chorst09/SistemaPrevendasFull-sub006/internal/metrics"
)

// Options configures a Manager.
type Options struct {
	// Now is the clock used for access times; nil means time.Now.
	Now                func() time.Time
	SweepInterval      time.Duration
	HeapPollInterval   time.Duration
	HeapThresholdBytes uint64
	HeapProbe          HeapProbe
	// Categories overrides the default tab/calc/component/list categories.
	Categories []Category
}

// Stats is a snapshot of the manager for dashboards and metrics.
type Stats struct {
	Entries     map[string]int `json:"entries"`
	TrackedKeys int            `json:"tracked_keys"`
	Callbacks   []string       `json:"callbacks"`
	Lists       int            `json:"lists"`
	Reaper      ReaperStats    `json:"reaper"`
}

// Manager ties the access tracker, cleanup registry, reaper and registered
// caches together.
type Manager struct {
	tracker    *AccessTracker
	registry   *CleanupRegistry
	reaper     *Reaper
	lists      *listRegistry
	listPrefix string
}

// NewManager builds a manager. Nothing runs until Init.
func NewManager(opts Options) *Manager {
	tracker := NewAccessTracker(opts.Now)
	registry := NewCleanupRegistry()
	reaper := NewReaper(ReaperConfig{
		SweepInterval:      opts.SweepInterval,
		HeapPollInterval:   opts.HeapPollInterval,
		HeapThresholdBytes: opts.HeapThresholdBytes,
		HeapProbe:          opts.HeapProbe,
		Categories:         opts.Categories,
	}, tracker, registry)

	m := &Manager{
		tracker:  tracker,
		registry: registry,
		reaper:   reaper,
	}
	if cat, ok := reaper.Category(CategoryList); ok {
		m.listPrefix = cat.Prefix
	} else {
		m.listPrefix = "list-"
	}
	m.lists = newListRegistry(m.listPrefix)
	reaper.Attach(CategoryList, m.lists)
	return m
}

// Init starts the reaper timers.
func (m *Manager) Init(ctx context.Context) error {
	return m.reaper.Start(ctx)
}

// Shutdown stops the timers and releases all tracked state. The manager
// cannot be started again afterwards.
func (m *Manager) Shutdown() {
	m.reaper.Destroy()
}

// Tracker exposes the access tracker for callers managing their own caches.
func (m *Manager) Tracker() *AccessTracker { return m.tracker }

// Reaper exposes the reaper, mainly for attaching custom owners.
func (m *Manager) Reaper() *Reaper { return m.reaper }

// RegisterCleanup adds or replaces a named cleanup callback.
func (m *Manager) RegisterCleanup(name string, cb CleanupFunc) {
	m.registry.Register(name, cb)
}

// UnregisterCleanup removes a named cleanup callback.
func (m *Manager) UnregisterCleanup(name string) {
	m.registry.Unregister(name)
}

// ForceCleanup runs a sweep now.
func (m *Manager) ForceCleanup(ctx context.Context) SweepResult {
	return m.reaper.Sweep(ctx)
}

// FlushAll clears every cache now and runs the cleanup callbacks.
func (m *Manager) FlushAll(ctx context.Context) SweepResult {
	return m.reaper.Flush(ctx)
}

// Stats returns a snapshot of resident entries and reaper activity.
func (m *Manager) Stats() Stats {
	return Stats{
		Entries:     m.reaper.ownerCounts(),
		TrackedKeys: m.tracker.Len(),
		Callbacks:   m.registry.Names(),
		Lists:       m.lists.Len(),
		Reaper:      m.reaper.Stats(),
	}
}

// PublishMetrics copies the current stats into Prometheus gauges.
func (m *Manager) PublishMetrics(context.Context) error {
	s := m.Stats()
	for cat, n := range s.Entries {
		metrics.MemoryEntries.WithLabelValues(cat).Set(float64(n))
	}
	metrics.MemoryTrackedKeys.Set(float64(s.TrackedKeys))
	metrics.MemoryCleanupCallbacks.Set(float64(len(s.Callbacks)))
	return nil
}
