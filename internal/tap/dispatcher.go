package tap

import (
	"log/slog"
	"sync"
	"time"

	"dockpeek/internal/dockcache"
	"dockpeek/internal/notify"
	"dockpeek/internal/platform"
	"dockpeek/internal/visibility"
	"dockpeek/internal/watchdog"
)

const (
	// DefaultClickBudget bounds the whole click decision, far below any
	// perceptible input delay.
	DefaultClickBudget = 10 * time.Millisecond
	// DefaultCooldown swallows double-fired clicks on the same icon.
	DefaultCooldown = 100 * time.Millisecond
)

// Toggler dispatches the resolved click to the visibility layer.
type Toggler interface {
	Toggle(app platform.AppID) error
}

// PanelFrame reports the preview panel's current frame, if one is shown.
type PanelFrame func() (platform.Rect, bool)

// Config holds construction options for the dispatcher.
type Config struct {
	ClickBudget time.Duration
	Cooldown    time.Duration
	Logger      *slog.Logger
}

// Dispatcher consumes the global click stream. For a click landing on a
// cached dock region it resolves what the click means and invokes the
// visibility controller, all bounded by the watchdog; for everything else
// it stays out of the way.
type Dispatcher struct {
	cache      *dockcache.Cache
	backend    platform.Backend
	lister     visibility.Lister
	toggler    Toggler
	broker     *notify.Broker
	panelFrame PanelFrame
	forceHide  func()
	logger     *slog.Logger

	budget   time.Duration
	cooldown time.Duration

	mu   sync.Mutex
	last time.Time

	now func() time.Time
}

var _ Handler = (*Dispatcher)(nil)

// NewDispatcher creates a dispatcher. panelFrame locates the preview
// panel so clicks outside both it and the dock can dismiss it; forceHide
// performs that dismissal.
func NewDispatcher(cfg Config, cache *dockcache.Cache, backend platform.Backend, lister visibility.Lister, toggler Toggler, broker *notify.Broker, panelFrame PanelFrame, forceHide func()) *Dispatcher {
	budget := cfg.ClickBudget
	if budget <= 0 {
		budget = DefaultClickBudget
	}
	cooldown := cfg.Cooldown
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if panelFrame == nil {
		panelFrame = func() (platform.Rect, bool) { return platform.Rect{}, false }
	}
	if forceHide == nil {
		forceHide = func() {}
	}
	return &Dispatcher{
		cache:      cache,
		backend:    backend,
		lister:     lister,
		toggler:    toggler,
		broker:     broker,
		panelFrame: panelFrame,
		forceHide:  forceHide,
		logger:     logger,
		budget:     budget,
		cooldown:   cooldown,
		now:        time.Now,
	}
}

// HandleButtonDown implements the click path of §the tap contract:
// resolve the dock region from the cache, debounce, then decide under the
// watchdog whether the click activates or toggles the application. A
// watchdog timeout always passes the event through unmodified — the event
// is never held hostage by a slow query.
func (d *Dispatcher) HandleButtonDown(ev ButtonEvent) Action {
	region, onDock := d.cache.Lookup(ev.Pos)

	if ev.Button != ButtonLeft {
		// Non-primary buttons are never consumed; on the dock or away
		// from an open panel they additionally dismiss the preview. That
		// path only posts a UI hide and needs no watchdog.
		if onDock || d.outsidePanel(ev.Pos) {
			d.forceHide()
		}
		return PassThrough
	}

	if !onDock {
		// A click landing outside both the dock and the panel dismisses
		// an open preview immediately, with no grace delay; the click
		// itself still goes wherever it was aimed.
		if d.outsidePanel(ev.Pos) {
			d.forceHide()
		}
		return PassThrough
	}

	if !d.cooldownPassed(ev.Time) {
		// A double-fire inside the cooldown belongs to the click we
		// already handled; letting it through would trigger the default
		// dock behavior the first click suppressed.
		return Consume
	}

	app := region.Owner
	v, ok := watchdog.RunBounded(d.budget, func() verdict {
		return d.classify(app)
	})
	if !ok {
		d.logger.Debug("click decision exceeded budget, passing through", "app", app)
		return PassThrough
	}
	if !v.dispatch {
		return v.action
	}

	// Broadcast before invoking the controller so an open preview can
	// animate optimistically ahead of the real operation.
	if d.broker != nil {
		d.broker.PublishDockClick(notify.DockClick{App: app, Intent: v.intent})
	}
	if err := d.toggler.Toggle(app); err != nil {
		d.logger.Debug("toggle dropped", "app", app, "error", err)
	}
	return v.action
}

// verdict is the outcome of classifying one primary dock click.
type verdict struct {
	action   Action
	intent   notify.Intent
	dispatch bool
}

// classify resolves what a primary dock click means. It runs on a
// watchdog worker and is query-only: the notification and the visibility
// call happen on the caller's side, and only when the worker finished
// inside its budget. An abandoned worker therefore never mutates
// anything, so a timed-out click produces exactly one action — the
// replayed default one.
func (d *Dispatcher) classify(app platform.AppID) verdict {
	front, err := d.backend.IsFrontmost(app)
	if err != nil {
		d.logger.Warn("frontmost query failed", "app", app, "error", err)
		return verdict{action: PassThrough}
	}

	hasWindows := false
	if handles, err := d.lister.List(app); err == nil {
		hasWindows = len(handles) > 0
	}

	intent := notify.IntentToggle
	if !front {
		intent = notify.IntentActivate
		if !hasWindows {
			d.logger.Debug("activating application with no qualifying windows", "app", app)
		}
	}
	return verdict{action: Consume, intent: intent, dispatch: true}
}

// outsidePanel reports whether a preview panel is shown and pos lies
// outside it.
func (d *Dispatcher) outsidePanel(pos platform.Point) bool {
	frame, shown := d.panelFrame()
	return shown && !frame.Contains(pos)
}

func (d *Dispatcher) cooldownPassed(at time.Time) bool {
	if at.IsZero() {
		at = d.now()
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.last.IsZero() && at.Sub(d.last) < d.cooldown {
		return false
	}
	d.last = at
	return true
}
