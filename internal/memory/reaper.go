package memory

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/Chorst09/SistemaPrevendasFull-sub006/internal/errorreporting"
	"github.com/Chorst09/SistemaPrevendasFull-sub006/internal/logger"
	"github.com/Chorst09/SistemaPrevendasFull-sub006/internal/metrics"
	"github.com/Chorst09/SistemaPrevendasFull-sub006/internal/tracing"
)

// ErrDestroyed is returned when starting a reaper after Destroy.
var ErrDestroyed = errors.New("memory: reaper destroyed")

// State is the reaper lifecycle state.
type State int

const (
	StateStopped State = iota
	StateRunning
	StateDestroyed
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateDestroyed:
		return "destroyed"
	default:
		return "stopped"
	}
}

// Sweep kinds.
const (
	KindSweep = "sweep"
	KindFlush = "flush"
)

// Default reaper timings.
const (
	DefaultSweepInterval      = 2 * time.Minute
	DefaultHeapPollInterval   = 30 * time.Second
	DefaultHeapThresholdBytes = 100 << 20
)

// SweepResult reports what a sweep or flush did. Sweeps never return errors;
// callback failures are listed here instead.
type SweepResult struct {
	Kind      string            `json:"kind"`
	OK        bool              `json:"ok"`
	Skipped   bool              `json:"skipped,omitempty"`
	Evicted   int               `json:"evicted"`
	Pruned    int               `json:"pruned"`
	Failures  []CallbackFailure `json:"failures,omitempty"`
	StartedAt time.Time         `json:"started_at"`
	Duration  time.Duration     `json:"duration_ns"`
}

// ReaperConfig holds reaper timings and thresholds.
type ReaperConfig struct {
	SweepInterval      time.Duration
	HeapPollInterval   time.Duration
	HeapThresholdBytes uint64
	Categories         []Category
	// HeapProbe reads current heap usage; nil disables heap-triggered flushes.
	HeapProbe HeapProbe
}

func (c *ReaperConfig) applyDefaults() {
	if c.SweepInterval <= 0 {
		c.SweepInterval = DefaultSweepInterval
	}
	if c.HeapPollInterval <= 0 {
		c.HeapPollInterval = DefaultHeapPollInterval
	}
	if c.HeapThresholdBytes == 0 {
		c.HeapThresholdBytes = DefaultHeapThresholdBytes
	}
	if len(c.Categories) == 0 {
		c.Categories = DefaultCategories()
	}
}

// ReaperStats is a point-in-time view of reaper activity.
type ReaperStats struct {
	State         string    `json:"state"`
	Sweeps        uint64    `json:"sweeps"`
	Flushes       uint64    `json:"flushes"`
	Skipped       uint64    `json:"skipped"`
	LastSweepAt   time.Time `json:"last_sweep_at,omitempty"`
	LastHeapBytes uint64    `json:"last_heap_bytes"`
	HeapProbeLive bool      `json:"heap_probe_live"`
}

// Reaper evicts idle entries on a timer, runs cleanup callbacks, and flushes
// everything when heap usage crosses a threshold.
type Reaper struct {
	cfg      ReaperConfig
	tracker  *AccessTracker
	registry *CleanupRegistry

	targetsMu sync.RWMutex
	targets   map[string][]Evictable // category name -> owners

	// sweeping guards against a sweep overlapping the next tick or a heap flush.
	sweeping atomic.Bool

	mu      sync.Mutex
	state   State
	stop    chan struct{}
	wg      sync.WaitGroup
	cancel  context.CancelFunc
	lastRun time.Time

	sweeps, flushes, skipped atomic.Uint64
	lastHeap                 atomic.Uint64
	probeLive                atomic.Bool
}

// NewReaper creates a stopped reaper over tracker and registry.
func NewReaper(cfg ReaperConfig, tracker *AccessTracker, registry *CleanupRegistry) *Reaper {
	cfg.applyDefaults()
	r := &Reaper{
		cfg:      cfg,
		tracker:  tracker,
		registry: registry,
		targets:  make(map[string][]Evictable),
	}
	r.probeLive.Store(cfg.HeapProbe != nil)
	return r
}

// Attach registers e as an owner of keys in the named category.
func (r *Reaper) Attach(category string, e Evictable) {
	r.targetsMu.Lock()
	r.targets[category] = append(r.targets[category], e)
	r.targetsMu.Unlock()
}

// Categories returns the configured categories.
func (r *Reaper) Categories() []Category {
	out := make([]Category, len(r.cfg.Categories))
	copy(out, r.cfg.Categories)
	return out
}

// Category looks up a category by name.
func (r *Reaper) Category(name string) (Category, bool) {
	for _, c := range r.cfg.Categories {
		if c.Name == name {
			return c, true
		}
	}
	return Category{}, false
}

// State returns the lifecycle state.
func (r *Reaper) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Start launches the sweep and heap timers. Starting a running reaper is a no-op.
func (r *Reaper) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch r.state {
	case StateDestroyed:
		return ErrDestroyed
	case StateRunning:
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.stop = make(chan struct{})
	r.state = StateRunning

	r.wg.Add(1)
	go r.sweepLoop(ctx, r.stop)
	if r.cfg.HeapProbe != nil {
		r.wg.Add(1)
		go r.heapLoop(ctx, r.stop)
	}

	logger.WithComponent("memory").Info("reaper started",
		"sweep_interval", r.cfg.SweepInterval,
		"heap_poll_interval", r.cfg.HeapPollInterval,
		"heap_threshold_bytes", r.cfg.HeapThresholdBytes)
	return nil
}

// Stop halts the timers and waits for the loops to exit. A sweep already in
// progress is allowed to finish.
func (r *Reaper) Stop() {
	r.mu.Lock()
	if r.state != StateRunning {
		r.mu.Unlock()
		return
	}
	close(r.stop)
	r.cancel()
	r.state = StateStopped
	r.mu.Unlock()

	r.wg.Wait()
	logger.WithComponent("memory").Info("reaper stopped")
}

// Destroy stops the reaper and clears every tracked key, owner and
// callback. A destroyed reaper cannot be restarted.
func (r *Reaper) Destroy() {
	r.Stop()

	r.mu.Lock()
	r.state = StateDestroyed
	r.mu.Unlock()

	r.targetsMu.Lock()
	for _, owners := range r.targets {
		for _, e := range owners {
			e.Clear()
		}
	}
	r.targets = make(map[string][]Evictable)
	r.targetsMu.Unlock()

	r.tracker.Clear()
	r.registry.Clear()
}

func (r *Reaper) sweepLoop(ctx context.Context, stop <-chan struct{}) {
	defer r.wg.Done()
	ticker := time.NewTicker(r.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-ticker.C:
			r.Sweep(ctx)
		}
	}
}

func (r *Reaper) heapLoop(ctx context.Context, stop <-chan struct{}) {
	defer r.wg.Done()
	ticker := time.NewTicker(r.cfg.HeapPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-ticker.C:
			if !r.checkHeap(ctx) {
				return
			}
		}
	}
}

// checkHeap polls the probe once and flushes when over threshold. It returns
// false when the probe reports that heap introspection is unavailable, which
// disables the heap path for the rest of the reaper's life.
func (r *Reaper) checkHeap(ctx context.Context) bool {
	used, ok := r.cfg.HeapProbe()
	if !ok {
		r.probeLive.Store(false)
		logger.WithComponent("memory").Debug("heap usage unavailable, heap-triggered flush disabled")
		return false
	}
	r.lastHeap.Store(used)
	metrics.MemoryHeapBytes.Set(float64(used))

	if used > r.cfg.HeapThresholdBytes {
		logger.WithComponent("memory").Warn("heap usage over threshold, flushing caches",
			"heap_bytes", used,
			"threshold_bytes", r.cfg.HeapThresholdBytes)
		metrics.MemoryHeapFlushes.Inc()
		r.Flush(ctx)
	}
	return true
}

// Sweep evicts idle entries, prunes orphaned tracker keys and runs every
// cleanup callback. If another sweep or flush is running it returns
// immediately with Skipped set.
func (r *Reaper) Sweep(ctx context.Context) SweepResult {
	return r.run(ctx, KindSweep, r.evictStale)
}

// Flush clears every owner and the tracker, then runs every cleanup callback.
func (r *Reaper) Flush(ctx context.Context) SweepResult {
	return r.run(ctx, KindFlush, r.clearAll)
}

func (r *Reaper) run(ctx context.Context, kind string, evict func(now time.Time) (evicted, pruned int)) SweepResult {
	now := r.tracker.Now()
	res := SweepResult{Kind: kind, StartedAt: now}

	if !r.sweeping.CompareAndSwap(false, true) {
		r.skipped.Add(1)
		metrics.MemorySweepsTotal.WithLabelValues(kind, "skipped").Inc()
		logger.WithComponent("memory").Warn("sweep already in progress, skipping", "kind", kind)
		res.Skipped = true
		res.OK = true
		return res
	}
	defer r.sweeping.Store(false)

	_, span := tracing.StartSpan(ctx, "memory."+kind)
	defer span.End()

	started := time.Now()
	res.Evicted, res.Pruned = evict(now)
	res.Failures = r.registry.Run()
	res.OK = len(res.Failures) == 0
	res.Duration = time.Since(started)

	for _, f := range res.Failures {
		metrics.MemoryCleanupFailures.WithLabelValues(f.Name).Inc()
		errorreporting.CaptureCleanupFailure(f.Name, kind, f.Err)
	}

	outcome := "ok"
	if !res.OK {
		outcome = "failed"
	}
	metrics.MemorySweepsTotal.WithLabelValues(kind, outcome).Inc()
	metrics.MemorySweepDuration.WithLabelValues(kind).Observe(res.Duration.Seconds())
	span.SetAttributes(
		attribute.Int("evicted", res.Evicted),
		attribute.Int("pruned", res.Pruned),
		attribute.Int("failures", len(res.Failures)),
	)

	if kind == KindFlush {
		r.flushes.Add(1)
	} else {
		r.sweeps.Add(1)
	}
	r.mu.Lock()
	r.lastRun = now
	r.mu.Unlock()

	logger.WithComponent("memory").Debug("sweep finished",
		"kind", kind,
		"evicted", res.Evicted,
		"pruned", res.Pruned,
		"failures", len(res.Failures),
		"duration", res.Duration)
	return res
}

func (r *Reaper) evictStale(now time.Time) (evicted, pruned int) {
	cats := r.cfg.Categories
	orphanAge := 2 * maxCategoryAge(cats)

	r.targetsMu.RLock()
	defer r.targetsMu.RUnlock()

	for key, last := range r.tracker.Snapshot() {
		age := now.Sub(last)
		cat, ok := categoryFor(cats, key)
		if !ok {
			if age > orphanAge {
				r.tracker.Remove(key)
				metrics.MemoryTrackerPruned.Inc()
				pruned++
			}
			continue
		}

		owners := r.targets[cat.Name]
		if age > cat.MaxAge {
			for _, e := range owners {
				if e.Evict(key) {
					evicted++
					metrics.MemoryEvictionsTotal.WithLabelValues(cat.Name, "age").Inc()
				}
			}
			r.tracker.Remove(key)
			continue
		}

		// Drop tracker keys whose entry already left its cache.
		if len(owners) > 0 && !anyHas(owners, key) {
			r.tracker.Remove(key)
			metrics.MemoryTrackerPruned.Inc()
			pruned++
		}
	}
	return evicted, pruned
}

func (r *Reaper) clearAll(time.Time) (evicted, pruned int) {
	r.targetsMu.RLock()
	for name, owners := range r.targets {
		for _, e := range owners {
			n := e.Clear()
			evicted += n
			metrics.MemoryEvictionsTotal.WithLabelValues(name, "flush").Add(float64(n))
		}
	}
	r.targetsMu.RUnlock()

	pruned = r.tracker.Len()
	r.tracker.Clear()
	return evicted, pruned
}

func anyHas(owners []Evictable, key string) bool {
	for _, e := range owners {
		if e.Has(key) {
			return true
		}
	}
	return false
}

// Stats returns a snapshot of reaper activity.
func (r *Reaper) Stats() ReaperStats {
	r.mu.Lock()
	state, last := r.state, r.lastRun
	r.mu.Unlock()
	return ReaperStats{
		State:         state.String(),
		Sweeps:        r.sweeps.Load(),
		Flushes:       r.flushes.Load(),
		Skipped:       r.skipped.Load(),
		LastSweepAt:   last,
		LastHeapBytes: r.lastHeap.Load(),
		HeapProbeLive: r.probeLive.Load(),
	}
}

// ownerCounts returns resident entries per category.
func (r *Reaper) ownerCounts() map[string]int {
	r.targetsMu.RLock()
	defer r.targetsMu.RUnlock()
	out := make(map[string]int, len(r.cfg.Categories))
	for _, c := range r.cfg.Categories {
		n := 0
		for _, e := range r.targets[c.Name] {
			n += e.Len()
		}
		out[c.Name] = n
	}
	return out
}
