// Package statscache memoizes the aggregate candidate-store counts behind
// an adaptive TTL, per spec.md §4.4. Recomputation is collapsed through a
// singleflight.Group so at most one recomputation is ever in flight; a
// caller who arrives while one is already running gets the previous
// snapshot (or a TransientConfigError if there is none yet) rather than
// waiting for it.
package statscache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/luchenqun/lucky-dog/internal/apierr"
	"github.com/luchenqun/lucky-dog/internal/database"
)

const singleflightKey = "stats"

// TTLFor implements spec.md §4.4's adaptive TTL: no caching up to 10,000
// rows, else min(60, floor(T/1,000,000)) minutes.
func TTLFor(total int64) time.Duration {
	if total <= 10_000 {
		return 0
	}
	minutes := total / 1_000_000
	if minutes > 60 {
		minutes = 60
	}
	return time.Duration(minutes) * time.Minute
}

// ComputeFunc produces a fresh Stats snapshot.
type ComputeFunc func(ctx context.Context) (database.Stats, error)

// Cache memoizes database.Stats snapshots.
type Cache struct {
	mu          sync.Mutex
	group       singleflight.Group
	snapshot    *database.Stats
	computedAt  time.Time
	recomputing bool
}

// New constructs an empty Cache.
func New() *Cache {
	return &Cache{}
}

// Get returns a (possibly cached) Stats snapshot. If the TTL for the last
// known total has not elapsed, the cached snapshot is returned without
// calling compute. Otherwise a recomputation is attempted: if one is
// already in flight, the previous snapshot is returned immediately (or a
// TransientConfigError if none exists yet) instead of waiting.
func (c *Cache) Get(ctx context.Context, compute ComputeFunc) (database.Stats, error) {
	c.mu.Lock()
	if c.snapshot != nil {
		if ttl := TTLFor(c.snapshot.Total); ttl > 0 && time.Since(c.computedAt) < ttl {
			snap := *c.snapshot
			c.mu.Unlock()
			return snap, nil
		}
	}

	if c.recomputing {
		if c.snapshot != nil {
			snap := *c.snapshot
			c.mu.Unlock()
			return snap, nil
		}
		c.mu.Unlock()
		return database.Stats{}, apierr.TransientConfig("stats are being recomputed")
	}

	c.recomputing = true
	c.mu.Unlock()

	v, err, _ := c.group.Do(singleflightKey, func() (any, error) {
		return compute(ctx)
	})

	c.mu.Lock()
	c.recomputing = false
	if err == nil {
		s := v.(database.Stats)
		c.snapshot = &s
		c.computedAt = time.Now()
	}
	c.mu.Unlock()

	if err != nil {
		return database.Stats{}, err
	}
	return v.(database.Stats), nil
}
