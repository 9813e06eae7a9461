// Package visibility performs the actual show/hide/activate operations
// against a target application's windows.
//
// A single global transition lock guards the whole controller: at most one
// visibility-changing operation is in flight system-wide. This is an
// intentional throttle, not a per-application lock — a redundant
// concurrent request is dropped rather than paying for fine-grained
// locking. The lock is released after a fixed grace delay instead of on
// task completion, because completion signals for focus-server operations
// are unreliable.
package visibility

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"dockpeek/internal/platform"
	"dockpeek/internal/windows"
)

// ErrLocked is returned when a request is dropped because another
// transition is still in flight.
var ErrLocked = errors.New("visibility transition already in flight")

// Lister enumerates the valid windows of an application.
type Lister interface {
	List(app platform.AppID) ([]windows.Handle, error)
}

const (
	// DefaultGrace is how long the transition lock is held after a
	// multi-window operation starts.
	DefaultGrace = 600 * time.Millisecond
	// DefaultAnchorGrace is the shorter hold for anchor-window groups,
	// whose per-window minimize calls settle faster than an app hide.
	DefaultAnchorGrace = 250 * time.Millisecond
)

// Config holds construction options for the controller.
type Config struct {
	// Anchors lists applications whose window group is toggled in
	// lockstep using the first window's minimized flag as the direction.
	Anchors     []platform.AppID
	Grace       time.Duration
	AnchorGrace time.Duration
	Logger      *slog.Logger
}

// Controller is the visibility state machine. Safe for concurrent use.
type Controller struct {
	backend platform.Backend
	lister  Lister
	logger  *slog.Logger

	grace       time.Duration
	anchorGrace time.Duration

	anchorMu sync.RWMutex
	anchors  map[platform.AppID]bool

	mu        sync.Mutex
	locked    bool
	lockedApp platform.AppID

	// Seams for tests: background execution and delayed unlock.
	run   func(func())
	after func(time.Duration, func())
}

// New creates a controller.
func New(cfg Config, backend platform.Backend, lister Lister) *Controller {
	grace := cfg.Grace
	if grace <= 0 {
		grace = DefaultGrace
	}
	anchorGrace := cfg.AnchorGrace
	if anchorGrace <= 0 {
		anchorGrace = DefaultAnchorGrace
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	c := &Controller{
		backend:     backend,
		lister:      lister,
		logger:      logger,
		grace:       grace,
		anchorGrace: anchorGrace,
		anchors:     make(map[platform.AppID]bool),
		run:         func(fn func()) { go fn() },
		after: func(d time.Duration, fn func()) {
			time.AfterFunc(d, fn)
		},
	}
	for _, app := range cfg.Anchors {
		c.anchors[app] = true
	}
	return c
}

// SetAnchors replaces the anchor application set.
func (c *Controller) SetAnchors(apps []platform.AppID) {
	next := make(map[platform.AppID]bool, len(apps))
	for _, app := range apps {
		next[app] = true
	}
	c.anchorMu.Lock()
	c.anchors = next
	c.anchorMu.Unlock()
}

func (c *Controller) isAnchor(app platform.AppID) bool {
	c.anchorMu.RLock()
	defer c.anchorMu.RUnlock()
	return c.anchors[app]
}

// Toggle flips window visibility for app.
//
// If the application is hidden or not frontmost this is the wake-up path:
// unhide and activate, never touching minimize state. If frontmost with no
// windows, reactivate. A single-window application takes a fast path that
// bypasses the lock when the in-flight operation targets a different
// application. Anchor applications toggle the whole group using the first
// window's minimized flag as the authoritative direction; all other
// multi-window applications use the app-level hide/unhide primitive.
func (c *Controller) Toggle(app platform.AppID) error {
	front, err := c.backend.IsFrontmost(app)
	if err != nil {
		// Resolution failure reads as "not frontmost": taking the wake-up
		// path never destroys window state.
		c.logger.Warn("frontmost query failed", "app", app, "error", err)
		front = false
	}
	hidden, err := c.backend.IsHidden(app)
	if err != nil {
		hidden = false
	}

	if hidden || !front {
		if !c.tryLock(app, c.grace) {
			return ErrLocked
		}
		c.run(func() {
			if err := c.backend.Unhide(app); err != nil {
				c.logger.Warn("unhide failed", "app", app, "error", err)
			}
			if err := c.backend.Activate(app); err != nil {
				c.logger.Warn("activate failed", "app", app, "error", err)
			}
		})
		return nil
	}

	handles, err := c.lister.List(app)
	if err != nil {
		return fmt.Errorf("toggle %s: %w", app, err)
	}

	switch {
	case len(handles) == 0:
		if !c.tryLock(app, c.grace) {
			return ErrLocked
		}
		c.run(func() {
			if err := c.backend.Activate(app); err != nil {
				c.logger.Warn("reactivate failed", "app", app, "error", err)
			}
		})

	case len(handles) == 1:
		// Single-window fast path: no multi-window ordering to protect,
		// so low-latency response is safe. The bypass is limited to locks
		// held for a different application; a duplicate for the same app
		// is still dropped.
		if c.lockedFor(app) {
			return ErrLocked
		}
		h := handles[0]
		c.run(func() { c.toggleSingle(h) })

	case c.isAnchor(app):
		if !c.tryLock(app, c.anchorGrace) {
			return ErrLocked
		}
		// The first window's minimized flag is the direction for the
		// whole group, so every click is deterministic even when window
		// states have drifted.
		restore := handles[0].Minimized
		c.run(func() {
			for _, h := range handles {
				if restore {
					c.setMinimized(h.ID, false)
					c.raise(h.ID)
				} else {
					c.setMinimized(h.ID, true)
				}
			}
		})

	default:
		if !c.tryLock(app, c.grace) {
			return ErrLocked
		}
		anyVisible := false
		for _, h := range handles {
			if !h.Minimized {
				anyVisible = true
				break
			}
		}
		c.run(func() {
			if anyVisible {
				if err := c.backend.Hide(app); err != nil {
					c.logger.Warn("hide failed", "app", app, "error", err)
				}
				return
			}
			if err := c.backend.Unhide(app); err != nil {
				c.logger.Warn("unhide failed", "app", app, "error", err)
			}
			if err := c.backend.Activate(app); err != nil {
				c.logger.Warn("activate failed", "app", app, "error", err)
			}
		})
	}

	return nil
}

// EnsureVisible unconditionally un-minimizes and raises every window of
// app. Called when focus shifts to the application through means other
// than a dock click.
func (c *Controller) EnsureVisible(app platform.AppID) error {
	handles, err := c.lister.List(app)
	if err != nil {
		return fmt.Errorf("ensure visible %s: %w", app, err)
	}
	if len(handles) == 0 {
		return nil
	}
	if !c.tryLock(app, c.grace) {
		return ErrLocked
	}
	c.run(func() {
		for _, h := range handles {
			c.setMinimized(h.ID, false)
			c.raise(h.ID)
		}
	})
	return nil
}

// CloseWindow requests a graceful close of one window. Close is not a
// visibility transition and is never gated by the lock.
func (c *Controller) CloseWindow(h windows.Handle) {
	c.run(func() {
		if err := c.backend.PerformClose(h.ID); err != nil {
			c.logger.Warn("close failed", "window", h.ID, "error", err)
		}
	})
}

func (c *Controller) toggleSingle(h windows.Handle) {
	if h.Minimized {
		c.setMinimized(h.ID, false)
		c.raise(h.ID)
		return
	}
	c.setMinimized(h.ID, true)
}

func (c *Controller) setMinimized(id platform.WindowID, minimized bool) {
	if err := c.backend.SetMinimized(id, minimized); err != nil {
		c.logger.Warn("set minimized failed", "window", id, "minimized", minimized, "error", err)
	}
}

func (c *Controller) raise(id platform.WindowID) {
	if err := c.backend.Raise(id); err != nil {
		c.logger.Warn("raise failed", "window", id, "error", err)
	}
}

// tryLock acquires the global transition lock and schedules its release
// after grace. Returns false when another transition holds it.
func (c *Controller) tryLock(app platform.AppID, grace time.Duration) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.locked {
		return false
	}
	c.locked = true
	c.lockedApp = app
	c.after(grace, c.unlock)
	return true
}

func (c *Controller) unlock() {
	c.mu.Lock()
	c.locked = false
	c.lockedApp = ""
	c.mu.Unlock()
}

// lockedFor reports whether the lock is held for this same application.
func (c *Controller) lockedFor(app platform.AppID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.locked && c.lockedApp == app
}

// Locked reports whether a transition is currently in flight.
func (c *Controller) Locked() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.locked
}
