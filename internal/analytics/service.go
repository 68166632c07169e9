package analytics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/Chorst09/SistemaPrevendasFull-sub006/internal/circuitbreaker"
	"github.com/Chorst09/SistemaPrevendasFull-sub006/internal/errorreporting"
	"github.com/Chorst09/SistemaPrevendasFull-sub006/internal/logger"
	"github.com/Chorst09/SistemaPrevendasFull-sub006/internal/metrics"
	"github.com/Chorst09/SistemaPrevendasFull-sub006/internal/tracing"
)

// Default queue limits.
const (
	DefaultBatchSize = 50
	DefaultMaxQueue  = 1000
)

// Options configures a Service.
type Options struct {
	// BatchSize is the queue length that triggers a flush.
	BatchSize int
	// MaxQueue bounds the queue when TrimQueue runs.
	MaxQueue int
	Now      func() time.Time
	// Breaker guards store writes; nil creates one named "analytics_store".
	Breaker *circuitbreaker.CircuitBreaker
}

// Service queues events and writes them to a Store in batches. A failed
// write puts the batch back at the head of the queue; there is no retry
// timer, the next flush picks it up.
type Service struct {
	store     Store
	breaker   *circuitbreaker.CircuitBreaker
	batchSize int
	maxQueue  int
	now       func() time.Time
	sessionID string
	log       *slog.Logger

	mu     sync.Mutex
	queue  []Event
	closed bool
}

// NewService creates a service writing to store.
func NewService(store Store, opts Options) *Service {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.MaxQueue < opts.BatchSize {
		opts.MaxQueue = DefaultMaxQueue
		if opts.MaxQueue < opts.BatchSize {
			opts.MaxQueue = opts.BatchSize
		}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Breaker == nil {
		opts.Breaker = circuitbreaker.New(circuitbreaker.Config{Name: "analytics_store"})
	}
	return &Service{
		store:     store,
		breaker:   opts.Breaker,
		batchSize: opts.BatchSize,
		maxQueue:  opts.MaxQueue,
		now:       opts.Now,
		sessionID: newSessionID(opts.Now()),
		log:       logger.WithComponent("analytics"),
	}
}

func newSessionID(now time.Time) string {
	return fmt.Sprintf("session_%d_%s", now.UnixMilli(), strings.ReplaceAll(uuid.NewString(), "-", "")[:9])
}

// SessionID is the session assigned to events that arrive without one.
func (s *Service) SessionID() string { return s.sessionID }

// Track validates e, fills in id, timestamp and session, and queues it.
// Reaching the batch size triggers a flush; flush failures are logged and
// the events stay queued.
func (s *Service) Track(ctx context.Context, e Event) (Event, error) {
	if err := e.Validate(); err != nil {
		return Event{}, err
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = s.now()
	}
	if e.SessionID == "" {
		e.SessionID = s.sessionID
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return Event{}, ErrClosed
	}
	s.queue = append(s.queue, e)
	depth := len(s.queue)
	s.mu.Unlock()

	metrics.AnalyticsEventsTracked.WithLabelValues(e.Category).Inc()
	metrics.AnalyticsQueueDepth.Set(float64(depth))

	if depth >= s.batchSize {
		if _, err := s.Flush(ctx); err != nil {
			s.log.WarnContext(ctx, "batch flush failed, events kept in queue", "error", err, "queued", s.QueueLen())
		}
	}
	return e, nil
}

// Flush writes every queued event. It returns the number written.
func (s *Service) Flush(ctx context.Context) (int, error) {
	s.mu.Lock()
	batch := s.queue
	s.queue = nil
	s.mu.Unlock()
	if len(batch) == 0 {
		return 0, nil
	}

	ctx, span := tracing.StartSpan(ctx, "analytics.flush", tracing.Attrs(attribute.Int("analytics.batch", len(batch))))
	defer span.End()

	err := s.breaker.Do(ctx, func(ctx context.Context) error {
		return s.store.SaveBatch(ctx, batch)
	})
	if err != nil {
		s.requeue(batch)
		span.RecordError(err)
		span.SetStatus(codes.Error, "flush failed")
		if !errors.Is(err, circuitbreaker.ErrCircuitOpen) {
			errorreporting.CaptureErrorWithContext(err,
				map[string]string{"component": "analytics", "operation": "flush"},
				map[string]interface{}{"batch": len(batch)})
		}
		return 0, fmt.Errorf("flush %d events: %w", len(batch), err)
	}

	metrics.AnalyticsEventsFlushed.Add(float64(len(batch)))
	metrics.AnalyticsQueueDepth.Set(float64(s.QueueLen()))
	s.log.DebugContext(ctx, "flushed events", "count", len(batch))
	return len(batch), nil
}

// requeue puts batch back ahead of anything queued since it was taken.
func (s *Service) requeue(batch []Event) {
	s.mu.Lock()
	s.queue = append(append(make([]Event, 0, len(batch)+len(s.queue)), batch...), s.queue...)
	depth := len(s.queue)
	s.mu.Unlock()
	metrics.AnalyticsEventsRequeued.Add(float64(len(batch)))
	metrics.AnalyticsQueueDepth.Set(float64(depth))
}

// TrimQueue drops the oldest events beyond MaxQueue. It has the cleanup
// callback signature so the memory manager can run it on every sweep.
func (s *Service) TrimQueue() error {
	s.mu.Lock()
	over := len(s.queue) - s.maxQueue
	if over > 0 {
		s.queue = append([]Event(nil), s.queue[over:]...)
	}
	depth := len(s.queue)
	s.mu.Unlock()

	if over > 0 {
		metrics.AnalyticsEventsDropped.Add(float64(over))
		s.log.Warn("analytics queue over limit, dropped oldest events", "dropped", over, "limit", s.maxQueue)
	}
	metrics.AnalyticsQueueDepth.Set(float64(depth))
	return nil
}

// QueueLen returns the number of events waiting to be written.
func (s *Service) QueueLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// Shutdown stops accepting events and performs a final flush.
func (s *Service) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	n, err := s.Flush(ctx)
	if err != nil {
		s.log.ErrorContext(ctx, "final analytics flush failed", "error", err, "lost", s.QueueLen())
		return err
	}
	s.log.InfoContext(ctx, "analytics flushed on shutdown", "count", n)
	return nil
}

// Metrics returns the daily aggregate for a YYYY-MM-DD date.
func (s *Service) Metrics(ctx context.Context, date string) (DailyMetrics, error) {
	day, err := ParseDate(date)
	if err != nil {
		return DailyMetrics{}, err
	}
	return s.store.Metrics(ctx, day)
}

// Events returns stored events matching f, newest first.
func (s *Service) Events(ctx context.Context, f EventFilter) ([]Event, error) {
	return s.store.Events(ctx, f.Normalize())
}
