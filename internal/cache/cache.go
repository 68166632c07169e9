// Package cache holds serialized HTTP responses with a TTL and a memory bound.
package cache

import (
	"context"
	"strings"
	"time"

	"github.com/Chorst09/SistemaPrevendasFull-sub006/internal/metrics"
)

// Cache defines the interface for caching serialized data with TTL.
type Cache interface {
	// Get returns the value and true if found and not expired.
	Get(key string) ([]byte, bool)

	// Set stores a value with the given TTL. A TTL of 0 uses the default.
	Set(key string, value []byte, ttl time.Duration)

	Delete(key string)

	// Clear removes all values from the cache.
	Clear()

	Stats() Stats
}

// Stats represents cache statistics.
type Stats struct {
	Hits      uint64 `json:"hits"`
	Misses    uint64 `json:"misses"`
	KeysAdded uint64 `json:"keys_added"`
	Evictions uint64 `json:"evictions"`
	Size      int64  `json:"size_bytes"` // approximate
	Items     int64  `json:"items"`
}

// Key joins parts into a cache key.
func Key(parts ...string) string {
	return strings.Join(parts, ":")
}

// Publisher returns a metrics collector source that exports c's size.
func Publisher(c Cache) func(context.Context) error {
	return func(context.Context) error {
		s := c.Stats()
		metrics.APICacheSize.Set(float64(s.Size))
		metrics.APICacheItems.Set(float64(s.Items))
		return nil
	}
}

// Invalidator adapts c.Clear to a cleanup callback.
func Invalidator(c Cache) func() error {
	return func() error {
		c.Clear()
		return nil
	}
}
