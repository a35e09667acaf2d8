package cache

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/repair-board/internal/observability"
)

// Invalidator is the invalidation target of the coordinator.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// Coordinator invalidates the read-aggregate cache after store commits.
// Callers signal OnMutationCommitted strictly after their transaction
// commits; the background loop performs the invalidation. Rapid bursts
// coalesce through the capacity-1 dirty signal, but the signal raised by
// the last commit in a burst is always consumed, so a burst never ends
// with a stale cache entry.
type Coordinator struct {
	cache   Invalidator
	logger  *zap.Logger
	metrics *observability.Metrics

	dirty chan struct{}
	stop  chan struct{}
	wg    sync.WaitGroup
	once  sync.Once
}

// NewCoordinator constructs and starts the coordinator.
func NewCoordinator(cache Invalidator, logger *zap.Logger, metrics *observability.Metrics) *Coordinator {
	c := &Coordinator{
		cache:   cache,
		logger:  logger,
		metrics: metrics,
		dirty:   make(chan struct{}, 1),
		stop:    make(chan struct{}),
	}
	c.wg.Add(1)
	go c.run()
	return c
}

// OnMutationCommitted marks the aggregate stale. Must be called only
// after the store commit succeeded.
func (c *Coordinator) OnMutationCommitted(kind string) {
	select {
	case c.dirty <- struct{}{}:
	default:
		// an invalidation is already pending; this commit coalesces into it
	}
}

// Close drains pending invalidations and stops the loop.
func (c *Coordinator) Close() {
	c.once.Do(func() { close(c.stop) })
	c.wg.Wait()
}

func (c *Coordinator) run() {
	defer c.wg.Done()
	for {
		select {
		case <-c.dirty:
			c.invalidate()
		case <-c.stop:
			// final drain: a commit may have signaled just before shutdown
			select {
			case <-c.dirty:
				c.invalidate()
			default:
			}
			return
		}
	}
}

func (c *Coordinator) invalidate() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.cache.Invalidate(ctx); err != nil {
		c.logger.Warn("stats cache invalidation failed", zap.Error(err))
		return
	}
	if c.metrics != nil {
		c.metrics.CacheInvalidations.Inc()
	}
}
