package cache

import (
	"context"
	"sync/atomic"
	"time"
)

// Cache defines the cache operations interface
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error

	// Metrics
	GetMetrics() *Metrics

	// Lifecycle
	Close() error
}

// Metrics tracks cache performance
type Metrics struct {
	Hits    uint64
	Misses  uint64
	Sets    uint64
	Deletes uint64
	Keys    uint64
}

// HitRate returns the hit percentage over all lookups
func (m *Metrics) HitRate() float64 {
	hits := atomic.LoadUint64(&m.Hits)
	misses := atomic.LoadUint64(&m.Misses)
	total := hits + misses
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total) * 100
}
