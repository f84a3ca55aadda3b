// Package federation maintains a background-refreshed snapshot of the
// partition lower-bounds that describe the federation members of the
// backing store.
package federation

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/offerhub/userfed/internal/common"
	"github.com/offerhub/userfed/internal/logging"
	"github.com/offerhub/userfed/internal/repositories/boundaries"
	"github.com/offerhub/userfed/internal/retryx"
)

const (
	DefaultRefreshInterval = 30 * time.Second
	DefaultStaleThreshold  = 600 * time.Second
)

// Config controls the refresh schedule of a Cache.
type Config struct {
	RefreshInterval time.Duration
	StaleThreshold  time.Duration
}

// Cache holds the current ordered list of partition lower-bounds. A single
// background loop (Run) refreshes it; readers always receive a copied
// snapshot of the last successful load and never block on a refresh in
// progress. When no refresh has succeeded for longer than StaleThreshold,
// the cache emits a critical-severity log event (and the optional OnStale
// hook) but keeps serving the last good snapshot.
type Cache struct {
	repo     boundaries.Repository
	exec     *retryx.Executor
	logger   logging.Logger
	interval time.Duration
	stale    time.Duration

	// OnStale, if set before Run, is invoked when staleness is detected.
	OnStale func()

	now func() time.Time

	refreshMu sync.Mutex // serializes refreshes; never held while serving reads

	mu            sync.Mutex
	bounds        []int
	lastRefreshed time.Time
	staleSignaled bool
}

// NewCache builds a Cache over the given boundary repository. Zero config
// fields fall back to the 30s/600s defaults.
func NewCache(repo boundaries.Repository, exec *retryx.Executor, logger logging.Logger, cfg Config) *Cache {
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = DefaultRefreshInterval
	}
	if cfg.StaleThreshold <= 0 {
		cfg.StaleThreshold = DefaultStaleThreshold
	}
	return &Cache{
		repo:     repo,
		exec:     exec,
		logger:   logger,
		interval: cfg.RefreshInterval,
		stale:    cfg.StaleThreshold,
		now:      time.Now,
	}
}

// Run refreshes the cache on the configured interval until ctx is
// cancelled. It performs an initial refresh immediately and blocks, so it
// is normally started in its own goroutine.
func (c *Cache) Run(ctx context.Context) {
	c.logger.Info(ctx, "federation boundary cache started", "interval", c.interval.String())

	c.refresh(ctx)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.refresh(ctx)
		case <-ctx.Done():
			c.logger.Info(ctx, "federation boundary cache stopped")
			return
		}
	}
}

// Boundaries returns a snapshot copy of the current lower-bound list. If
// the background loop has not populated the cache yet, the first caller
// triggers a lazy load.
func (c *Cache) Boundaries(ctx context.Context) ([]int, error) {
	c.mu.Lock()
	loaded := c.bounds != nil
	c.mu.Unlock()

	if !loaded {
		if err := c.refresh(ctx); err != nil {
			return nil, err
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.bounds == nil {
		return nil, common.ErrNotFound
	}
	snapshot := make([]int, len(c.bounds))
	copy(snapshot, c.bounds)
	return snapshot, nil
}

// LastRefreshed reports when the last successful refresh completed.
func (c *Cache) LastRefreshed() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastRefreshed
}

// MemberFor returns the index of the federation member whose key range
// [boundary[i], boundary[i+1]) contains the given partition. Administrative
// and debug paths use this; routine identity operations never need it.
func (c *Cache) MemberFor(ctx context.Context, partition int) (int, error) {
	bounds, err := c.Boundaries(ctx)
	if err != nil {
		return 0, err
	}
	if len(bounds) == 0 || partition < bounds[0] {
		return 0, common.ErrNotFound
	}
	// First index whose lower bound exceeds the partition, minus one.
	i := sort.SearchInts(bounds, partition+1)
	return i - 1, nil
}

// refresh loads the boundary list and swaps the snapshot atomically.
// Refreshes never overlap; a failed refresh keeps the previous snapshot.
func (c *Cache) refresh(ctx context.Context) error {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	var bounds []int
	err := c.exec.Do(ctx, "get_federation_boundaries", func(ctx context.Context) error {
		var err error
		bounds, err = c.repo.GetBoundaries(ctx)
		return err
	})
	if err != nil {
		c.logger.Warn(ctx, "federation boundary refresh failed, keeping previous snapshot", "error", err.Error())
		c.checkStaleness(ctx)
		return err
	}

	c.mu.Lock()
	c.bounds = bounds
	c.lastRefreshed = c.now()
	c.staleSignaled = false
	c.mu.Unlock()

	c.logger.Debug(ctx, "federation boundaries refreshed", "members", len(bounds))
	return nil
}

// checkStaleness raises the critical signal once per stale episode. The
// signal is informational: reads keep serving the last good snapshot.
func (c *Cache) checkStaleness(ctx context.Context) {
	c.mu.Lock()
	age := c.now().Sub(c.lastRefreshed)
	isStale := !c.lastRefreshed.IsZero() && age > c.stale
	alreadySignaled := c.staleSignaled
	if isStale {
		c.staleSignaled = true
	}
	c.mu.Unlock()

	if !isStale || alreadySignaled {
		return
	}

	c.logger.Error(ctx, "federation boundary cache is stale and can no longer be trusted",
		"severity", "critical", "age", age.String(), "threshold", c.stale.String())
	if c.OnStale != nil {
		c.OnStale()
	}
}
