// Package dockcache maintains the mapping from dock screen regions to the
// applications that own them. Lookups are pure in-memory reads over an
// immutable snapshot so they are safe from the event-tap path; the scan
// that produces a snapshot runs on a background loop.
package dockcache

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"dockpeek/internal/platform"
)

// Region is one dock icon's screen rectangle and its owning application.
type Region struct {
	Frame platform.Rect
	Owner platform.AppID
}

// Scanner produces the current dock regions. Implementations may be slow;
// the cache never calls them on the lookup path.
type Scanner interface {
	ScanRegions() ([]Region, error)
}

// DefaultInterval is the refresh cadence. Dock content changes are
// infrequent; a bounded staleness window of a few seconds is acceptable.
const DefaultInterval = 2500 * time.Millisecond

// Cache holds the last published snapshot of dock regions.
type Cache struct {
	scanner  Scanner
	interval time.Duration
	logger   *slog.Logger

	snapshot   atomic.Pointer[[]Region]
	refreshing atomic.Bool

	mu        sync.RWMutex
	blacklist map[platform.AppID]struct{}
}

// Config holds construction options for the cache.
type Config struct {
	Interval  time.Duration
	Blacklist []platform.AppID
	Logger    *slog.Logger
}

// New creates a cache. The first snapshot is empty until Refresh or the
// Run loop publishes one.
func New(cfg Config, scanner Scanner) *Cache {
	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	c := &Cache{
		scanner:   scanner,
		interval:  interval,
		logger:    logger,
		blacklist: make(map[platform.AppID]struct{}),
	}
	for _, app := range cfg.Blacklist {
		c.blacklist[app] = struct{}{}
	}
	empty := []Region{}
	c.snapshot.Store(&empty)
	return c
}

// Lookup resolves a point to the dock region containing it. It reads the
// last published snapshot only and never blocks.
func (c *Cache) Lookup(p platform.Point) (Region, bool) {
	regions := *c.snapshot.Load()
	for _, r := range regions {
		if r.Frame.Contains(p) {
			return r, true
		}
	}
	return Region{}, false
}

// Regions returns the last published snapshot.
func (c *Cache) Regions() []Region {
	return *c.snapshot.Load()
}

// SetBlacklist replaces the blacklist. The next refresh applies it; call
// Refresh to apply immediately.
func (c *Cache) SetBlacklist(apps []platform.AppID) {
	next := make(map[platform.AppID]struct{}, len(apps))
	for _, app := range apps {
		next[app] = struct{}{}
	}
	c.mu.Lock()
	c.blacklist = next
	c.mu.Unlock()
}

// Refresh scans the dock and publishes a new snapshot. A refresh already
// in progress short-circuits the new request rather than queuing behind it.
func (c *Cache) Refresh() {
	if !c.refreshing.CompareAndSwap(false, true) {
		return
	}
	defer c.refreshing.Store(false)

	regions, err := c.scanner.ScanRegions()
	if err != nil {
		c.logger.Warn("dock scan failed, keeping previous snapshot", "error", err)
		return
	}

	c.mu.RLock()
	blacklist := c.blacklist
	c.mu.RUnlock()

	published := make([]Region, 0, len(regions))
	for _, r := range regions {
		if r.Owner == "" {
			continue
		}
		if _, blocked := blacklist[r.Owner]; blocked {
			continue
		}
		published = append(published, r)
	}

	c.snapshot.Store(&published)
	c.logger.Debug("dock snapshot published", "regions", len(published))
}

// Run refreshes the cache at a fixed interval until the context is
// cancelled. It performs one refresh immediately so lookups work as soon
// as the daemon is up.
func (c *Cache) Run(ctx context.Context) {
	defer func() {
		if err := recover(); err != nil {
			c.logger.Error("dock cache loop panic recovered", "error", err)
		}
	}()

	c.Refresh()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.logger.Info("dock cache refresh loop started", "interval", c.interval)
	for {
		select {
		case <-ctx.Done():
			c.logger.Info("dock cache refresh loop stopped")
			return
		case <-ticker.C:
			c.Refresh()
		}
	}
}
