package x11

import (
	"fmt"
	"log/slog"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/xevent"
	"github.com/BurntSushi/xgbutil/xprop"
	"github.com/BurntSushi/xgbutil/xwindow"

	"dockpeek/internal/platform"
)

// FocusWatcher observes _NET_ACTIVE_WINDOW changes on the root window
// and reports which application gained focus. It lets the visibility
// layer react to focus shifts that did not come from a dock click, such
// as alt-tab or a window manager activation.
type FocusWatcher struct {
	conn     *Connection
	logger   *slog.Logger
	onChange func(platform.AppID)

	// Seams over the connection, injectable in tests.
	active func() (xproto.Window, error)
	appOf  func(xproto.Window) platform.AppID

	activeAtom xproto.Atom

	// lastApp is touched only from the event loop goroutine.
	lastApp platform.AppID
}

// NewFocusWatcher creates a watcher. onChange fires on the event loop
// goroutine whenever the focused application changes.
func NewFocusWatcher(conn *Connection, logger *slog.Logger, onChange func(platform.AppID)) *FocusWatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &FocusWatcher{
		conn:     conn,
		logger:   logger,
		onChange: onChange,
		active:   conn.ActiveWindow,
		appOf:    conn.WindowApp,
	}
}

// Start subscribes to property changes on the root window. Events arrive
// through the connection's event loop.
func (w *FocusWatcher) Start() error {
	atom, err := xprop.Atm(w.conn.XUtil, "_NET_ACTIVE_WINDOW")
	if err != nil {
		return fmt.Errorf("intern _NET_ACTIVE_WINDOW: %w", err)
	}
	w.activeAtom = atom

	if err := xwindow.New(w.conn.XUtil, w.conn.Root).Listen(xproto.EventMaskPropertyChange); err != nil {
		return fmt.Errorf("listen for root property changes: %w", err)
	}
	xevent.PropertyNotifyFun(w.onProperty).Connect(w.conn.XUtil, w.conn.Root)
	return nil
}

func (w *FocusWatcher) onProperty(_ *xgbutil.XUtil, ev xevent.PropertyNotifyEvent) {
	if ev.Atom != w.activeAtom {
		return
	}

	win, err := w.active()
	if err != nil || win == xproto.WindowNone {
		return
	}
	app := w.appOf(win)
	if app == "" || app == w.lastApp {
		return
	}
	w.lastApp = app
	w.logger.Debug("focus moved", "app", app)
	w.onChange(app)
}
