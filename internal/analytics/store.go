package analytics

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Store persists events and their daily aggregates.
type Store interface {
	// SaveBatch writes events and folds them into daily metrics atomically.
	SaveBatch(ctx context.Context, events []Event) error
	// Metrics returns the aggregate for date, or ErrNotFound.
	Metrics(ctx context.Context, date string) (DailyMetrics, error)
	// Events returns matching events, newest first.
	Events(ctx context.Context, f EventFilter) ([]Event, error)
}

// MemoryStore keeps everything in process memory. It is used when no
// database is configured and in tests.
type MemoryStore struct {
	mu       sync.RWMutex
	events   []Event
	ids      map[string]struct{}
	metrics  map[string]*DailyMetrics
	sessions map[string]map[string]struct{}
	now      func() time.Time
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		ids:      make(map[string]struct{}),
		metrics:  make(map[string]*DailyMetrics),
		sessions: make(map[string]map[string]struct{}),
		now:      time.Now,
	}
}

func (s *MemoryStore) SaveBatch(ctx context.Context, events []Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range events {
		if _, dup := s.ids[e.ID]; dup {
			continue
		}
		s.ids[e.ID] = struct{}{}
		s.events = append(s.events, e)
		s.fold(e)
	}
	return nil
}

// fold adds e to its day's aggregate. Caller holds mu.
func (s *MemoryStore) fold(e Event) {
	date := e.Date()
	m, ok := s.metrics[date]
	if !ok {
		m = &DailyMetrics{Date: date, ByType: map[string]int{}, ByCategory: map[string]int{}}
		s.metrics[date] = m
		s.sessions[date] = make(map[string]struct{})
	}
	m.TotalEvents++
	m.ByType[e.Type]++
	m.ByCategory[e.Category]++
	s.sessions[date][e.SessionID] = struct{}{}
	m.Sessions = len(s.sessions[date])
	m.UpdatedAt = s.now()
}

func (s *MemoryStore) Metrics(_ context.Context, date string) (DailyMetrics, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.metrics[date]
	if !ok {
		return DailyMetrics{}, ErrNotFound
	}
	out := *m
	out.ByType = copyCounts(m.ByType)
	out.ByCategory = copyCounts(m.ByCategory)
	return out, nil
}

func (s *MemoryStore) Events(_ context.Context, f EventFilter) ([]Event, error) {
	f = f.Normalize()
	s.mu.RLock()
	matched := make([]Event, 0)
	for _, e := range s.events {
		if f.Match(e) {
			matched = append(matched, e)
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Timestamp.After(matched[j].Timestamp)
	})
	if len(matched) > f.Limit {
		matched = matched[:f.Limit]
	}
	return matched, nil
}

// Len returns the number of stored events.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}

func copyCounts(in map[string]int) map[string]int {
	out := make(map[string]int, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
