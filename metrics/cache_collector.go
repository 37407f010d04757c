package metrics

import (
	"context"
	"sync"
	"time"
)

// CacheStatsFunc returns the current texture cache snapshot. Defined as a
// function type so this package does not depend on the cache package; the
// composition root binds the cache's Stats method here.
type CacheStatsFunc func() CacheMetrics

// CacheCollectorConfig configures the CacheCollector.
type CacheCollectorConfig struct {
	// CollectionInterval is how often to snapshot cache stats
	CollectionInterval time.Duration
}

// DefaultCacheCollectorConfig samples every 30 seconds.
func DefaultCacheCollectorConfig() CacheCollectorConfig {
	return CacheCollectorConfig{CollectionInterval: 30 * time.Second}
}

// CacheCollector periodically snapshots texture cache statistics into a
// Collector. It takes an immediate snapshot at Start, then one per interval
// until Stop or context cancellation.
type CacheCollector struct {
	stats    CacheStatsFunc
	store    Collector
	interval time.Duration

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	running bool
}

// NewCacheCollector creates a CacheCollector feeding store from stats.
func NewCacheCollector(stats CacheStatsFunc, store Collector, config CacheCollectorConfig) *CacheCollector {
	interval := config.CollectionInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &CacheCollector{
		stats:    stats,
		store:    store,
		interval: interval,
	}
}

// Start launches the background sampling goroutine. Starting twice is a
// no-op.
func (c *CacheCollector) Start(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return
	}
	c.running = true

	ctx, c.cancel = context.WithCancel(ctx)
	c.done = make(chan struct{})

	go func() {
		defer close(c.done)

		c.store.UpdateCacheMetrics(c.stats())

		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.store.UpdateCacheMetrics(c.stats())
			}
		}
	}()
}

// Stop halts sampling and waits for the goroutine to exit.
func (c *CacheCollector) Stop() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	c.running = false
	cancel := c.cancel
	done := c.done
	c.mu.Unlock()

	cancel()
	<-done
}

// IsRunning reports whether sampling is active.
func (c *CacheCollector) IsRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}
