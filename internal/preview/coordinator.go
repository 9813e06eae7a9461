// Package preview drives the preview lifecycle: hidden, showing a panel
// for an application, or peeking at one window. The transition table is
// implemented as a single switch per event; all delayed transitions use
// cancelable timers where a newer event for a different target always
// supersedes an older pending one.
package preview

import (
	"log/slog"
	"sync"
	"time"

	"dockpeek/internal/notify"
	"dockpeek/internal/platform"
	"dockpeek/internal/visibility"
	"dockpeek/internal/windows"
)

const (
	// DefaultExitGrace delays hiding after a hover-exit so brushing past
	// the panel edge does not tear it down.
	DefaultExitGrace = 200 * time.Millisecond
	// DefaultPeekDebounce is how long a thumbnail must be hovered before
	// the peek opens.
	DefaultPeekDebounce = 100 * time.Millisecond
	// DefaultPeekClose delays collapsing a peek so a fast re-hover onto
	// another thumbnail cancels the close.
	DefaultPeekClose = 150 * time.Millisecond
)

type timer interface {
	Stop() bool
}

type timerFactory func(d time.Duration, fn func()) timer

func realTimer(d time.Duration, fn func()) timer {
	return time.AfterFunc(d, fn)
}

// Closer closes windows on behalf of the preview.
type Closer interface {
	CloseWindow(h windows.Handle)
}

// Config holds construction options for the coordinator.
type Config struct {
	ExitGrace    time.Duration
	PeekDebounce time.Duration
	PeekClose    time.Duration
	Logger       *slog.Logger
}

// Coordinator owns the preview state machine. Safe for concurrent use:
// events arrive from the hover tracker, the renderer's UI layer, timers
// and the notification broker.
type Coordinator struct {
	renderer Renderer
	capturer Capturer
	focuser  Focuser
	closer   Closer
	lister   visibility.Lister
	broker   *notify.Broker
	logger   *slog.Logger

	exitGrace    time.Duration
	peekDebounce time.Duration
	peekClose    time.Duration

	// pointerInPanel reports whether the pointer currently rests inside
	// the panel; a pending hide is skipped while it does.
	pointerInPanel func() bool

	newTimer timerFactory
	run      func(func())

	mu      sync.Mutex
	state   State
	handles []windows.Handle

	exitTimer      timer
	peekTimer      timer
	peekTarget     platform.WindowID
	peekCloseTimer timer
}

// New creates a coordinator in the Hidden state and subscribes it to the
// broker's dock-click and window-closed notifications.
func New(cfg Config, renderer Renderer, capturer Capturer, focuser Focuser, closer Closer, lister visibility.Lister, broker *notify.Broker, pointerInPanel func() bool) *Coordinator {
	exitGrace := cfg.ExitGrace
	if exitGrace <= 0 {
		exitGrace = DefaultExitGrace
	}
	peekDebounce := cfg.PeekDebounce
	if peekDebounce <= 0 {
		peekDebounce = DefaultPeekDebounce
	}
	peekClose := cfg.PeekClose
	if peekClose <= 0 {
		peekClose = DefaultPeekClose
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if pointerInPanel == nil {
		pointerInPanel = func() bool { return false }
	}

	c := &Coordinator{
		renderer:       renderer,
		capturer:       capturer,
		focuser:        focuser,
		closer:         closer,
		lister:         lister,
		broker:         broker,
		logger:         logger,
		exitGrace:      exitGrace,
		peekDebounce:   peekDebounce,
		peekClose:      peekClose,
		pointerInPanel: pointerInPanel,
		newTimer:       realTimer,
		run:            func(fn func()) { go fn() },
		state:          Hidden{},
	}

	if broker != nil {
		broker.SubscribeDockClick(c.onDockClick)
		broker.SubscribeWindowClosed(c.onWindowClosed)
	}
	return c
}

// CurrentState returns the current preview state.
func (c *Coordinator) CurrentState() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// HoverEnter handles a confirmed dock-icon hover.
func (c *Coordinator) HoverEnter(app platform.AppID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cancelExitLocked()

	switch st := c.state.(type) {
	case Hidden:
		c.state = Showing{App: app}
		c.run(func() { c.buildContent(app) })

	case Showing:
		if st.App == app {
			// Re-confirming the same target is a no-op: no re-fetch, no
			// animation restart.
			return
		}
		c.cancelPeekTimersLocked()
		c.state = Showing{App: app}
		c.run(func() { c.buildContent(app) })

	case Peeking:
		if st.App == app {
			return
		}
		c.cancelPeekTimersLocked()
		c.renderer.HidePeek()
		c.state = Showing{App: app}
		c.run(func() { c.buildContent(app) })
	}
}

// HoverExit handles the pointer leaving the dock/panel area. The hide is
// confirmed only after the grace delay, and skipped if the pointer is
// back inside the panel by then.
func (c *Coordinator) HoverExit() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, hidden := c.state.(Hidden); hidden {
		return
	}
	c.cancelExitLocked()
	c.exitTimer = c.newTimer(c.exitGrace, c.confirmExit)
}

func (c *Coordinator) confirmExit() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.exitTimer = nil
	if _, hidden := c.state.(Hidden); hidden {
		return
	}
	if c.pointerInPanel() {
		return
	}
	c.hideLocked()
}

// ThumbnailHoverChanged handles the pointer entering or leaving one
// thumbnail inside the panel.
func (c *Coordinator) ThumbnailHoverChanged(w platform.WindowID, entered bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if entered {
		c.thumbnailEnterLocked(w)
		return
	}
	c.thumbnailExitLocked(w)
}

func (c *Coordinator) thumbnailEnterLocked(w platform.WindowID) {
	switch st := c.state.(type) {
	case Hidden:
		return

	case Showing:
		if c.peekTimer != nil && c.peekTarget == w {
			// Same pending target: the debounce keeps running.
			return
		}
		c.cancelPeekDebounceLocked()
		c.startPeekDebounceLocked(st.App, w)

	case Peeking:
		c.cancelPeekCloseLocked()
		if st.Window == w {
			// Back on the already-peeked window: any debounce still
			// pending for another window is stale and must not fire.
			c.cancelPeekDebounceLocked()
			return
		}
		if c.peekTimer != nil && c.peekTarget == w {
			return
		}
		c.cancelPeekDebounceLocked()
		c.startPeekDebounceLocked(st.App, w)
	}
}

func (c *Coordinator) thumbnailExitLocked(w platform.WindowID) {
	// Leaving a thumbnail before its peek confirmed cancels the debounce.
	if c.peekTimer != nil && c.peekTarget == w {
		c.cancelPeekDebounceLocked()
	}

	st, ok := c.state.(Peeking)
	if !ok || st.Window != w {
		return
	}
	c.cancelPeekCloseLocked()
	c.peekCloseTimer = c.newTimer(c.peekClose, c.confirmPeekClose)
}

func (c *Coordinator) startPeekDebounceLocked(app platform.AppID, w platform.WindowID) {
	c.peekTarget = w
	c.peekTimer = c.newTimer(c.peekDebounce, func() { c.confirmPeek(app, w) })
}

func (c *Coordinator) confirmPeek(app platform.AppID, w platform.WindowID) {
	c.mu.Lock()
	if c.peekTarget != w || c.peekTimer == nil {
		c.mu.Unlock()
		return
	}
	c.peekTimer = nil
	c.peekTarget = 0

	h, ok := c.handleForLocked(w)
	if !ok {
		c.mu.Unlock()
		return
	}

	switch c.state.(type) {
	case Showing, Peeking:
		c.state = Peeking{App: app, Window: w}
	default:
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	// Capture is slow; render when ready, and only if the peek is still
	// for this window by then.
	c.run(func() {
		image, err := c.capturer.Capture(w)
		if err != nil {
			c.logger.Warn("thumbnail capture failed", "window", w, "error", err)
			image = nil
		}

		c.mu.Lock()
		st, ok := c.state.(Peeking)
		stale := !ok || st.Window != w
		c.mu.Unlock()
		if stale {
			return
		}
		c.renderer.ShowPeek(h, image)
	})
}

func (c *Coordinator) confirmPeekClose() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.peekCloseTimer = nil
	st, ok := c.state.(Peeking)
	if !ok {
		return
	}
	c.renderer.HidePeek()
	c.state = Showing{App: st.App}
}

// ThumbnailClicked handles a click on a thumbnail. A click while peeking
// triggers the seamless exit: the peek fades while the real window is
// raised into place. A click while merely showing focuses the window and
// dismisses the panel.
func (c *Coordinator) ThumbnailClicked(w platform.WindowID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch st := c.state.(type) {
	case Hidden:
		return

	case Peeking:
		if st.Window != w {
			return
		}
		c.cancelPeekCloseLocked()
		c.renderer.SeamlessExit()
		c.state = Showing{App: st.App}
		c.focusWindowLocked(w)

	case Showing:
		c.cancelPeekTimersLocked()
		c.focusWindowLocked(w)
		c.hideLocked()
	}
}

// CloseClicked handles a click on a thumbnail's close button.
func (c *Coordinator) CloseClicked(w platform.WindowID) {
	c.mu.Lock()
	h, ok := c.handleForLocked(w)
	c.mu.Unlock()
	if !ok {
		return
	}

	c.closer.CloseWindow(h)
	if c.broker != nil {
		c.broker.PublishWindowClosed(notify.WindowClosed{Window: w})
	}
}

// ForceHide hides the preview immediately with no grace delay, cancelling
// any pending peek. Triggered by right-clicks on the dock and clicks
// outside both dock and panel.
func (c *Coordinator) ForceHide() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cancelExitLocked()
	c.cancelPeekTimersLocked()
	if _, hidden := c.state.(Hidden); hidden {
		return
	}
	c.hideLocked()
}

// PanelFrame exposes the renderer's panel frame for hover hit-testing.
func (c *Coordinator) PanelFrame() (platform.Rect, bool) {
	return c.renderer.Frame()
}

// onDockClick lets an open preview animate optimistically ahead of the
// real visibility operation: the content is refreshed in the background.
func (c *Coordinator) onDockClick(ev notify.DockClick) {
	c.mu.Lock()
	app, showing := c.showingAppLocked()
	c.mu.Unlock()
	if !showing || app != ev.App {
		return
	}
	c.run(func() { c.refreshContent(app) })
}

// onWindowClosed re-enumerates the shown application after one of its
// windows closed; an empty result hides the preview.
func (c *Coordinator) onWindowClosed(notify.WindowClosed) {
	c.mu.Lock()
	app, showing := c.showingAppLocked()
	c.mu.Unlock()
	if !showing {
		return
	}
	c.run(func() { c.refreshContent(app) })
}

// buildContent enumerates windows for app and presents the panel. Runs on
// a background task; the result is dropped if the state moved on.
func (c *Coordinator) buildContent(app platform.AppID) {
	handles, err := c.lister.List(app)
	if err != nil {
		c.logger.Warn("preview enumeration failed", "app", app, "error", err)
		handles = nil
	}

	c.mu.Lock()
	current, showing := c.showingAppLocked()
	if !showing || current != app {
		c.mu.Unlock()
		return
	}
	c.handles = handles
	c.mu.Unlock()

	c.renderer.ShowPreview(app, handles)
}

func (c *Coordinator) refreshContent(app platform.AppID) {
	handles, err := c.lister.List(app)
	if err != nil {
		c.logger.Warn("preview refresh failed", "app", app, "error", err)
		return
	}

	c.mu.Lock()
	current, showing := c.showingAppLocked()
	if !showing || current != app {
		c.mu.Unlock()
		return
	}
	c.handles = handles
	if len(handles) == 0 {
		c.hideLocked()
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	c.renderer.UpdatePreview(handles)
}

// focusWindowLocked raises w on a background task.
func (c *Coordinator) focusWindowLocked(w platform.WindowID) {
	c.run(func() {
		if err := c.focuser.SetMinimized(w, false); err != nil {
			c.logger.Warn("unminimize failed", "window", w, "error", err)
		}
		if err := c.focuser.Raise(w); err != nil {
			c.logger.Warn("raise failed", "window", w, "error", err)
		}
	})
}

func (c *Coordinator) hideLocked() {
	c.cancelPeekTimersLocked()
	c.renderer.HidePreview()
	c.state = Hidden{}
	c.handles = nil
}

func (c *Coordinator) showingAppLocked() (platform.AppID, bool) {
	switch st := c.state.(type) {
	case Showing:
		return st.App, true
	case Peeking:
		return st.App, true
	default:
		return "", false
	}
}

func (c *Coordinator) handleForLocked(w platform.WindowID) (windows.Handle, bool) {
	for _, h := range c.handles {
		if h.ID == w {
			return h, true
		}
	}
	return windows.Handle{}, false
}

func (c *Coordinator) cancelExitLocked() {
	if c.exitTimer != nil {
		c.exitTimer.Stop()
		c.exitTimer = nil
	}
}

func (c *Coordinator) cancelPeekDebounceLocked() {
	if c.peekTimer != nil {
		c.peekTimer.Stop()
		c.peekTimer = nil
		c.peekTarget = 0
	}
}

func (c *Coordinator) cancelPeekCloseLocked() {
	if c.peekCloseTimer != nil {
		c.peekCloseTimer.Stop()
		c.peekCloseTimer = nil
	}
}

func (c *Coordinator) cancelPeekTimersLocked() {
	c.cancelPeekDebounceLocked()
	c.cancelPeekCloseLocked()
}
