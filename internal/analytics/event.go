// Package analytics batches usage events and persists them with per-day
// aggregates.
package analytics

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// DateLayout is the key format for daily metrics.
const DateLayout = "2006-01-02"

var (
	// ErrInvalidEvent is returned for events missing a type or category.
	ErrInvalidEvent = errors.New("analytics: invalid event")
	// ErrInvalidDate is returned when a metrics date is not YYYY-MM-DD.
	ErrInvalidDate = errors.New("analytics: invalid date")
	// ErrNotFound is returned when no metrics exist for a date.
	ErrNotFound = errors.New("analytics: not found")
	// ErrClosed is returned by Track after Shutdown.
	ErrClosed = errors.New("analytics: service closed")
)

// Event is a single tracked user interaction.
type Event struct {
	ID        string         `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	Type      string         `json:"type"`
	Category  string         `json:"category"`
	SessionID string         `json:"session_id"`
	UserID    string         `json:"user_id,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
}

// Validate checks the required fields.
func (e Event) Validate() error {
	if strings.TrimSpace(e.Type) == "" {
		return fmt.Errorf("%w: type is required", ErrInvalidEvent)
	}
	if strings.TrimSpace(e.Category) == "" {
		return fmt.Errorf("%w: category is required", ErrInvalidEvent)
	}
	return nil
}

// Date returns the UTC day the event belongs to.
func (e Event) Date() string {
	return e.Timestamp.UTC().Format(DateLayout)
}

// Default and maximum result sizes for event queries.
const (
	DefaultEventLimit = 100
	MaxEventLimit     = 1000
)

// EventFilter selects stored events. Zero fields match everything.
type EventFilter struct {
	Type      string
	Category  string
	SessionID string
	Since     time.Time
	Until     time.Time
	Limit     int
}

// Normalize clamps Limit into [1, MaxEventLimit].
func (f EventFilter) Normalize() EventFilter {
	if f.Limit <= 0 {
		f.Limit = DefaultEventLimit
	}
	if f.Limit > MaxEventLimit {
		f.Limit = MaxEventLimit
	}
	return f
}

// Match reports whether e passes the filter.
func (f EventFilter) Match(e Event) bool {
	if f.Type != "" && e.Type != f.Type {
		return false
	}
	if f.Category != "" && e.Category != f.Category {
		return false
	}
	if f.SessionID != "" && e.SessionID != f.SessionID {
		return false
	}
	if !f.Since.IsZero() && e.Timestamp.Before(f.Since) {
		return false
	}
	if !f.Until.IsZero() && !e.Timestamp.Before(f.Until) {
		return false
	}
	return true
}

// DailyMetrics aggregates one UTC day of events.
type DailyMetrics struct {
	Date        string         `json:"date"`
	TotalEvents int            `json:"total_events"`
	ByType      map[string]int `json:"by_type"`
	ByCategory  map[string]int `json:"by_category"`
	Sessions    int            `json:"sessions"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// ParseDate validates a YYYY-MM-DD metrics key.
func ParseDate(s string) (string, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return t.Format(DateLayout), nil
}

// datesOf returns the distinct days covered by events, sorted.
func datesOf(events []Event) []string {
	seen := make(map[string]struct{})
	for _, e := range events {
		seen[e.Date()] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for d := range seen {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}
