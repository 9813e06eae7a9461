// Package daemon wires the dockpeek components together and runs them.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"dockpeek/internal/config"
	"dockpeek/internal/dockcache"
	"dockpeek/internal/hover"
	"dockpeek/internal/ipc"
	"dockpeek/internal/notify"
	"dockpeek/internal/platform"
	"dockpeek/internal/preview"
	"dockpeek/internal/session"
	"dockpeek/internal/tap"
	"dockpeek/internal/visibility"
	"dockpeek/internal/windows"
	"dockpeek/internal/x11"
)

// Daemon owns every long-running component. It implements ipc.Daemon so
// the CLI subcommands can reach in.
type Daemon struct {
	logger  *slog.Logger
	cfgPath string

	conn        *x11.Connection
	xtap        *x11.Tap
	focus       *x11.FocusWatcher
	renderer    *x11.PanelRenderer
	cache       *dockcache.Cache
	tracker     *hover.Tracker
	poller      *hover.Poller
	coordinator *preview.Coordinator
	controller  *visibility.Controller
	broker      *notify.Broker

	mu        sync.Mutex
	cfg       *config.Config
	enabled   bool
	locked    bool
	startTime time.Time
}

var _ ipc.Daemon = (*Daemon)(nil)

// New loads the configuration, connects to X11 and builds the component
// graph. The tap is not installed yet; Run does that.
func New(logger *slog.Logger) (*Daemon, error) {
	cfgPath, err := config.DefaultConfigPath()
	if err != nil {
		return nil, err
	}
	cfg, err := config.LoadFromPath(cfgPath)
	if err != nil {
		return nil, err
	}

	conn, err := x11.NewConnection()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X11: %w", err)
	}

	d := &Daemon{
		logger:    logger,
		cfgPath:   cfgPath,
		conn:      conn,
		cfg:       cfg,
		enabled:   true,
		startTime: time.Now(),
	}
	d.build()
	return d, nil
}

// build constructs the component graph from the current config.
func (d *Daemon) build() {
	cfg := d.cfg
	t := cfg.Timings
	backend := x11.NewBackend(d.conn)
	scanner := x11.NewDockScanner(d.conn)

	d.broker = notify.NewBroker(d.logger.With("component", "notify"))

	d.cache = dockcache.New(dockcache.Config{
		Interval:  config.Duration(t.DockRefreshMS),
		Blacklist: cfg.BlacklistIDs(),
		Logger:    d.logger.With("component", "dockcache"),
	}, scanner)

	lister := windows.NewEnumerator(backend)

	d.controller = visibility.New(visibility.Config{
		Anchors:     cfg.AnchorIDs(),
		Grace:       config.Duration(t.LockGraceMS),
		AnchorGrace: config.Duration(t.AnchorGraceMS),
		Logger:      d.logger.With("component", "visibility"),
	}, backend, lister)

	d.renderer = x11.NewPanelRenderer(d.conn, scanner, d.logger.With("component", "panel"))

	d.coordinator = preview.New(preview.Config{
		ExitGrace:    config.Duration(t.ExitGraceMS),
		PeekDebounce: config.Duration(t.PeekDebounceMS),
		PeekClose:    config.Duration(t.PeekCloseMS),
		Logger:       d.logger.With("component", "preview"),
	}, d.renderer, x11.NewCapturer(d.conn), backend, d.controller, lister, d.broker, d.pointerInPanel)

	if cfg.IndependentWindows {
		d.renderer.SetSink(d.coordinator)
	}

	d.tracker = hover.New(hover.Config{
		Debounce: config.Duration(t.HoverDebounceMS),
		Cooldown: config.Duration(t.HoverCooldownMS),
		Logger:   d.logger.With("component", "hover"),
	}, d.cache.Lookup, d.coordinator.PanelFrame, d.coordinator)
	d.tracker.SetEnabled(cfg.HoverPreview)

	d.poller = hover.NewPoller(
		d.conn.PointerPosition,
		d.tracker,
		config.Duration(t.PointerPollMS),
		d.logger.With("component", "poller"),
	)

	dispatcher := tap.NewDispatcher(tap.Config{
		ClickBudget: config.Duration(t.ClickBudgetMS),
		Cooldown:    config.Duration(t.ClickCooldownMS),
		Logger:      d.logger.With("component", "dispatch"),
	}, d.cache, backend, lister, d.controller, d.broker, d.renderer.Frame, d.coordinator.ForceHide)

	d.xtap = x11.NewTap(d.conn, dispatcher, d.logger.With("component", "tap"))
	d.focus = x11.NewFocusWatcher(d.conn, d.logger.With("component", "focus"), d.onFocusChange)
}

// onFocusChange raises the newly focused application's windows. Focus
// reached through a dock click is already handled by the controller,
// whose transition lock is still held then; the resulting ErrLocked drop
// is exactly the dedup wanted.
func (d *Daemon) onFocusChange(app platform.AppID) {
	d.mu.Lock()
	active := d.enabled && !d.locked
	d.mu.Unlock()
	if !active {
		return
	}
	if err := d.controller.EnsureVisible(app); err != nil {
		if errors.Is(err, visibility.ErrLocked) {
			return
		}
		d.logger.Debug("ensure visible failed", "app", app, "error", err)
	}
}

// pointerInPanel reports whether the pointer is currently over the
// preview panel; it vetoes a pending hover exit.
func (d *Daemon) pointerInPanel() bool {
	frame, shown := d.renderer.Frame()
	if !shown {
		return false
	}
	pos, err := d.conn.PointerPosition()
	if err != nil {
		return false
	}
	return frame.Contains(pos)
}

// Run installs the tap, starts every background loop and blocks in the
// X event loop until ctx is cancelled or the connection drops. A failed
// tap install is fatal: without interception the daemon is useless, and
// silently retrying would leave clicks behaving inconsistently.
func (d *Daemon) Run(ctx context.Context) error {
	if err := d.xtap.Start(); err != nil {
		d.conn.Close()
		return fmt.Errorf("cannot intercept dock clicks: %w", err)
	}
	if err := d.focus.Start(); err != nil {
		// Focus-follow raising degrades gracefully; everything else works.
		d.logger.Warn("focus watcher unavailable", "error", err)
	}

	go d.cache.Run(ctx)
	go d.poller.Run(ctx)

	monitor := session.NewMonitor(d.logger.With("component", "session"), d.onSessionLock)
	go func() {
		if err := monitor.Run(ctx); err != nil && ctx.Err() == nil {
			d.logger.Warn("session lock monitor stopped", "error", err)
		}
	}()

	watcher := config.NewWatcher(d.cfgPath, d.logger.With("component", "config"), d.applyConfig)
	go func() {
		if err := watcher.Run(ctx); err != nil && ctx.Err() == nil {
			d.logger.Warn("config watcher stopped", "error", err)
		}
	}()

	go func() {
		<-ctx.Done()
		d.coordinator.ForceHide()
		d.xtap.Stop()
		d.conn.Close()
	}()

	d.logger.Info("dockpeek daemon started")
	d.conn.EventLoop()
	return ctx.Err()
}

// onSessionLock pauses everything while the screen is locked.
func (d *Daemon) onSessionLock(locked bool) {
	d.mu.Lock()
	d.locked = locked
	enabled := d.enabled && !locked
	hoverOK := d.cfg.HoverPreview && !locked
	d.mu.Unlock()

	d.xtap.SetEnabled(enabled)
	d.tracker.SetEnabled(hoverOK)
	if locked {
		d.coordinator.ForceHide()
	}
}

// applyConfig pushes a new configuration into the running components.
func (d *Daemon) applyConfig(cfg *config.Config) {
	d.mu.Lock()
	d.cfg = cfg
	locked := d.locked
	d.mu.Unlock()

	d.cache.SetBlacklist(cfg.BlacklistIDs())
	d.controller.SetAnchors(cfg.AnchorIDs())
	d.tracker.SetEnabled(cfg.HoverPreview && !locked)
	if cfg.IndependentWindows {
		d.renderer.SetSink(d.coordinator)
	} else {
		d.renderer.SetSink(nil)
	}
	if !cfg.HoverPreview {
		d.coordinator.ForceHide()
	}
}

// Status implements ipc.Daemon.
func (d *Daemon) Status() ipc.StatusData {
	d.mu.Lock()
	enabled := d.enabled && !d.locked
	hoverPreview := d.cfg.HoverPreview
	start := d.startTime
	d.mu.Unlock()

	return ipc.StatusData{
		DaemonRunning: true,
		Enabled:       enabled,
		HoverPreview:  hoverPreview,
		DockRegions:   len(d.cache.Regions()),
		PreviewState:  stateName(d.coordinator.CurrentState()),
		UptimeSeconds: int64(time.Since(start).Seconds()),
	}
}

// ReloadConfig implements ipc.Daemon.
func (d *Daemon) ReloadConfig() error {
	cfg, err := config.LoadFromPath(d.cfgPath)
	if err != nil {
		return err
	}
	d.applyConfig(cfg)
	d.logger.Info("config reloaded via IPC")
	return nil
}

// SetEnabled implements ipc.Daemon: toggles click interception.
func (d *Daemon) SetEnabled(enabled bool) {
	d.mu.Lock()
	d.enabled = enabled
	effective := enabled && !d.locked
	d.mu.Unlock()

	d.xtap.SetEnabled(effective)
	if !enabled {
		d.coordinator.ForceHide()
	}
}

// HidePreview implements ipc.Daemon.
func (d *Daemon) HidePreview() {
	d.coordinator.ForceHide()
}

func stateName(s preview.State) string {
	switch s.(type) {
	case preview.Hidden:
		return "hidden"
	case preview.Showing:
		return "showing"
	case preview.Peeking:
		return "peeking"
	default:
		return "unknown"
	}
}
