// Package hover turns the noisy global pointer stream into stable
// hover-enter / hover-exit transitions for the preview layer.
//
// Two mechanisms produce the stability: a debounce timer that confirms an
// icon hover only after the pointer has rested on it, and a corridor lock
// that ignores motion inside the band between a hovered icon and its
// preview panel so the travel up into the panel never reads as an exit.
package hover

import (
	"log/slog"
	"sync"
	"time"

	"dockpeek/internal/dockcache"
	"dockpeek/internal/platform"
)

const (
	// DefaultDebounce is how long the pointer must rest on an icon before
	// hover-enter is confirmed.
	DefaultDebounce = 120 * time.Millisecond
	// DefaultCooldown suppresses re-confirming the same icon immediately
	// after its last confirmed enter.
	DefaultCooldown = 100 * time.Millisecond
	// DefaultCorridorMargin widens the corridor band around an icon.
	DefaultCorridorMargin = 8
)

// Listener receives confirmed hover transitions.
type Listener interface {
	HoverEnter(app platform.AppID)
	HoverExit()
}

// Lookup resolves a point against the dock hit cache.
type Lookup func(platform.Point) (dockcache.Region, bool)

// PanelFrame returns the preview panel's current frame, if one is shown.
type PanelFrame func() (platform.Rect, bool)

type timer interface {
	Stop() bool
}

type timerFactory func(d time.Duration, fn func()) timer

func realTimer(d time.Duration, fn func()) timer {
	return time.AfterFunc(d, fn)
}

type targetKind int

const (
	targetNone targetKind = iota
	targetIcon
	targetPanel
)

// Config holds construction options for the tracker.
type Config struct {
	Debounce       time.Duration
	Cooldown       time.Duration
	CorridorMargin int
	Logger         *slog.Logger
}

// Tracker maintains the debounced "currently hovered region" state. Safe
// for concurrent use; PointerMoved is called from the sampling loop and
// timers fire on their own goroutines.
type Tracker struct {
	lookup   Lookup
	panel    PanelFrame
	listener Listener
	logger   *slog.Logger

	debounce time.Duration
	cooldown time.Duration
	margin   int

	newTimer timerFactory
	now      func() time.Time

	mu           sync.Mutex
	enabled      bool
	current      targetKind
	currentApp   platform.AppID
	currentFrame platform.Rect

	pending      timer
	pendingApp   platform.AppID
	pendingFrame platform.Rect

	lastTrigger    time.Time
	lastTriggerApp platform.AppID
}

// New creates a tracker. It starts enabled.
func New(cfg Config, lookup Lookup, panel PanelFrame, listener Listener) *Tracker {
	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	cooldown := cfg.Cooldown
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	margin := cfg.CorridorMargin
	if margin <= 0 {
		margin = DefaultCorridorMargin
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{
		lookup:   lookup,
		panel:    panel,
		listener: listener,
		logger:   logger,
		debounce: debounce,
		cooldown: cooldown,
		margin:   margin,
		newTimer: realTimer,
		now:      time.Now,
		enabled:  true,
	}
}

// SetEnabled turns hover tracking on or off. Disabling resets all state
// without emitting events; the caller is responsible for hiding any open
// preview.
func (t *Tracker) SetEnabled(enabled bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.enabled = enabled
	if !enabled {
		t.cancelPendingLocked()
		t.current = targetNone
		t.currentApp = ""
	}
}

// PointerMoved feeds one pointer sample into the tracker.
func (t *Tracker) PointerMoved(p platform.Point) {
	t.mu.Lock()
	if !t.enabled {
		t.mu.Unlock()
		return
	}

	var emit func()
	if region, ok := t.lookup(p); ok {
		emit = t.onIconLocked(region)
	} else if frame, shown := t.panel(); shown && frame.Contains(p) {
		emit = t.onPanelLocked(frame)
	} else {
		emit = t.onOutsideLocked(p)
	}
	t.mu.Unlock()

	if emit != nil {
		emit()
	}
}

func (t *Tracker) onIconLocked(region dockcache.Region) func() {
	// Already confirmed on this icon: refresh the frame, nothing to do.
	if t.current == targetIcon && t.currentApp == region.Owner {
		t.currentFrame = region.Frame
		t.cancelPendingLocked()
		return nil
	}

	// A pending confirmation for the same icon keeps its timer: re-entry
	// of the same target must not restart the debounce.
	if t.pending != nil && t.pendingApp == region.Owner {
		return nil
	}

	// New target supersedes any older pending one.
	t.cancelPendingLocked()
	app, frame := region.Owner, region.Frame
	t.pendingApp = app
	t.pendingFrame = frame
	t.pending = t.newTimer(t.debounce, func() { t.confirm(app, frame) })
	return nil
}

func (t *Tracker) onPanelLocked(frame platform.Rect) func() {
	// Inside the panel counts as still hovering; a pending icon change is
	// abandoned since the pointer left the icon before it confirmed.
	t.cancelPendingLocked()
	if t.current == targetNone {
		// Entered the panel from outside without touching an icon; with
		// no hovered icon on record, the panel frame itself anchors the
		// corridor band.
		t.current = targetPanel
		t.currentFrame = frame
		return nil
	}
	if t.current == targetIcon {
		t.current = targetPanel
	}
	return nil
}

func (t *Tracker) onOutsideLocked(p platform.Point) func() {
	if t.inCorridorLocked(p) {
		return nil
	}

	t.cancelPendingLocked()
	if t.current == targetNone {
		return nil
	}
	t.current = targetNone
	t.currentApp = ""
	return t.listener.HoverExit
}

// confirm fires when the debounce timer for app elapses.
func (t *Tracker) confirm(app platform.AppID, frame platform.Rect) {
	t.mu.Lock()
	if !t.enabled || t.pendingApp != app {
		t.mu.Unlock()
		return
	}
	t.pending = nil
	t.pendingApp = ""

	now := t.now()
	if app == t.lastTriggerApp && now.Sub(t.lastTrigger) < t.cooldown {
		// Cooldown gate: the same icon re-confirmed immediately after its
		// last trigger is a no-op.
		t.current = targetIcon
		t.currentApp = app
		t.currentFrame = frame
		t.mu.Unlock()
		return
	}

	t.current = targetIcon
	t.currentApp = app
	t.currentFrame = frame
	t.lastTrigger = now
	t.lastTriggerApp = app
	t.mu.Unlock()

	t.listener.HoverEnter(app)
}

func (t *Tracker) cancelPendingLocked() {
	if t.pending != nil {
		t.pending.Stop()
		t.pending = nil
		t.pendingApp = ""
	}
}

// inCorridorLocked reports whether p lies inside the flicker-suppression
// band between the hovered icon and the preview panel.
func (t *Tracker) inCorridorLocked(p platform.Point) bool {
	if t.current == targetNone {
		return false
	}

	band := t.currentFrame.Inset(-t.margin)
	if band.Contains(p) {
		return true
	}

	frame, shown := t.panel()
	if !shown {
		return false
	}

	// Bridge: the icon band's x-range extended vertically to the panel.
	top := min(frame.Y+frame.Height, t.currentFrame.Y)
	bottom := max(frame.Y, t.currentFrame.Y+t.currentFrame.Height)
	bridge := platform.Rect{
		X:      band.X,
		Y:      top,
		Width:  band.Width,
		Height: bottom - top,
	}
	return bridge.Contains(p)
}
