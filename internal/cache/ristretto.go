package cache

import (
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto"
)

// Ristretto is a cost-bounded cache backed by ristretto. Cost is the value
// length in bytes.
type Ristretto struct {
	cache      *ristretto.Cache
	defaultTTL time.Duration
}

// NewRistretto creates a cache holding at most maxSizeMB of values.
// maxEntries sizes the admission counters.
func NewRistretto(maxSizeMB, maxEntries int64, defaultTTL time.Duration) (*Ristretto, error) {
	numCounters := maxEntries * 10
	if numCounters < 1000 {
		numCounters = 1000
	}
	maxCost := maxSizeMB << 20
	if maxCost <= 0 {
		maxCost = 1 << 10
	}
	if defaultTTL <= 0 {
		defaultTTL = time.Minute
	}

	rc, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: numCounters,
		MaxCost:     maxCost,
		BufferItems: 64,
		Metrics:     true,
	})
	if err != nil {
		return nil, fmt.Errorf("create response cache: %w", err)
	}
	return &Ristretto{cache: rc, defaultTTL: defaultTTL}, nil
}

func (c *Ristretto) Get(key string) ([]byte, bool) {
	val, found := c.cache.Get(key)
	if !found {
		return nil, false
	}
	data, ok := val.([]byte)
	if !ok {
		c.cache.Del(key)
		return nil, false
	}
	return data, true
}

func (c *Ristretto) Set(key string, value []byte, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	c.cache.SetWithTTL(key, value, int64(len(value)), ttl)
	// Sets are buffered; make them visible to the next Get.
	c.cache.Wait()
}

func (c *Ristretto) Delete(key string) {
	c.cache.Del(key)
}

func (c *Ristretto) Clear() {
	c.cache.Clear()
}

func (c *Ristretto) Stats() Stats {
	m := c.cache.Metrics
	return Stats{
		Hits:      m.Hits(),
		Misses:    m.Misses(),
		KeysAdded: m.KeysAdded(),
		Evictions: m.KeysEvicted(),
		Size:      int64(m.CostAdded() - m.CostEvicted()),
		Items:     int64(m.KeysAdded() - m.KeysEvicted()),
	}
}

// Close releases the cache's goroutines.
func (c *Ristretto) Close() {
	c.cache.Close()
}
