package metrics

import (
	"context"
	"sync"
	"time"

	"github.com/Chorst09/SistemaPrevendasFull-sub006/internal/logger"
)

// Source publishes one group of gauges when the collector ticks.
type Source struct {
	Name    string
	Collect func(ctx context.Context) error
}

// Collector periodically collects and updates Prometheus metrics
type Collector struct {
	sources  []Source
	interval time.Duration
	stop     chan struct{}
	stopOnce sync.Once
}

// DefaultCollectInterval is used when NewCollector gets a non-positive interval.
const DefaultCollectInterval = 30 * time.Second

// NewCollector creates a new metrics collector
func NewCollector(interval time.Duration, sources ...Source) *Collector {
	if interval <= 0 {
		interval = DefaultCollectInterval
	}
	return &Collector{
		sources:  sources,
		interval: interval,
		stop:     make(chan struct{}),
	}
}

// Start begins the metrics collection loop
func (c *Collector) Start(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	// Collect initial metrics
	c.collectMetrics(ctx)

	for {
		select {
		case <-ticker.C:
			c.collectMetrics(ctx)
		case <-c.stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Stop stops the metrics collector. It is safe to call more than once.
func (c *Collector) Stop() {
	c.stopOnce.Do(func() { close(c.stop) })
}

// collectMetrics runs every source; a failing source does not stop the others
func (c *Collector) collectMetrics(ctx context.Context) {
	for _, s := range c.sources {
		if s.Collect == nil {
			continue
		}
		if err := s.Collect(ctx); err != nil {
			logger.WarnContext(ctx, "metrics collection failed", "collector", s.Name, "error", err)
			MetricsCollectionErrors.WithLabelValues(s.Name).Inc()
		}
	}
}
