package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/xproto"

	"dockpeek/internal/platform"
)

// Backend implements platform.Backend on top of an X11 connection. All
// methods round-trip to the X server and are therefore only called from
// watchdog-bounded or background paths.
type Backend struct {
	conn *Connection
}

var _ platform.Backend = (*Backend)(nil)

// NewBackend wraps an existing X11 connection.
func NewBackend(conn *Connection) *Backend {
	return &Backend{conn: conn}
}

// appWindows returns the client list filtered to one application.
func (b *Backend) appWindows(app platform.AppID) ([]xproto.Window, error) {
	clients, err := b.conn.ClientWindows()
	if err != nil {
		return nil, fmt.Errorf("failed to list clients: %w", err)
	}

	var wins []xproto.Window
	for _, win := range clients {
		if b.conn.WindowApp(win) == app {
			wins = append(wins, win)
		}
	}
	return wins, nil
}

func (b *Backend) screenRect() platform.Rect {
	screen := b.conn.XUtil.Screen()
	return platform.Rect{
		Width:  int(screen.WidthInPixels),
		Height: int(screen.HeightInPixels),
	}
}

// ServerWindows returns the low-level view: geometry and compositing
// state for every window the application owns.
func (b *Backend) ServerWindows(app platform.AppID) ([]platform.ServerWindow, error) {
	wins, err := b.appWindows(app)
	if err != nil {
		return nil, err
	}

	screen := b.screenRect()
	out := make([]platform.ServerWindow, 0, len(wins))
	for _, win := range wins {
		bounds, ok := b.conn.WindowRect(win)
		if !ok {
			continue
		}

		viewable := b.conn.WindowViewable(win)
		onScreen := viewable && intersects(bounds, screen)

		out = append(out, platform.ServerWindow{
			ID:        platform.WindowID(win),
			Owner:     app,
			Title:     b.conn.WindowTitle(win),
			Bounds:    bounds,
			Layer:     b.conn.WindowLayer(win),
			Alpha:     b.conn.WindowAlpha(win),
			OnScreen:  onScreen,
			Minimized: b.conn.WindowMinimized(win),
		})
	}
	return out, nil
}

// ManagedWindows returns the window-manager view: roles and the actions
// each window exposes.
func (b *Backend) ManagedWindows(app platform.AppID) ([]platform.ManagedWindow, error) {
	wins, err := b.appWindows(app)
	if err != nil {
		return nil, err
	}

	active, activeErr := b.conn.ActiveWindow()

	out := make([]platform.ManagedWindow, 0, len(wins))
	for _, win := range wins {
		role, subrole := b.conn.WindowRoles(win)
		out = append(out, platform.ManagedWindow{
			ID:          platform.WindowID(win),
			Title:       b.conn.WindowTitle(win),
			Frontmost:   activeErr == nil && win == active,
			Role:        role,
			Subrole:     subrole,
			CanClose:    b.conn.WindowCanClose(win),
			CanMinimize: b.conn.WindowCanMinimize(win),
		})
	}
	return out, nil
}

// IsFrontmost reports whether the focused window belongs to app.
func (b *Backend) IsFrontmost(app platform.AppID) (bool, error) {
	active, err := b.conn.ActiveWindow()
	if err != nil {
		return false, fmt.Errorf("failed to get active window: %w", err)
	}
	if active == 0 {
		return false, nil
	}
	return b.conn.WindowApp(active) == app, nil
}

// IsHidden reports whether every window of app is iconified.
func (b *Backend) IsHidden(app platform.AppID) (bool, error) {
	wins, err := b.appWindows(app)
	if err != nil {
		return false, err
	}
	if len(wins) == 0 {
		return false, nil
	}
	for _, win := range wins {
		if !b.conn.WindowMinimized(win) {
			return false, nil
		}
	}
	return true, nil
}

// SetMinimized iconifies or restores a single window.
func (b *Backend) SetMinimized(id platform.WindowID, minimized bool) error {
	win := xproto.Window(id)
	if minimized {
		return b.conn.Minimize(win)
	}
	return b.conn.Unminimize(win)
}

// Raise restacks a window to the front.
func (b *Backend) Raise(id platform.WindowID) error {
	return b.conn.Raise(xproto.Window(id))
}

// PerformClose requests a graceful close.
func (b *Backend) PerformClose(id platform.WindowID) error {
	return b.conn.RequestClose(xproto.Window(id))
}

// Hide iconifies every window of the application.
func (b *Backend) Hide(app platform.AppID) error {
	wins, err := b.appWindows(app)
	if err != nil {
		return err
	}
	for _, win := range wins {
		if err := b.conn.Minimize(win); err != nil {
			return fmt.Errorf("failed to minimize window %d: %w", win, err)
		}
	}
	return nil
}

// Unhide restores every window of the application.
func (b *Backend) Unhide(app platform.AppID) error {
	wins, err := b.appWindows(app)
	if err != nil {
		return err
	}
	for _, win := range wins {
		if err := b.conn.Unminimize(win); err != nil {
			return fmt.Errorf("failed to restore window %d: %w", win, err)
		}
	}
	return nil
}

// Activate focuses the application's most recent window. An application
// with no windows is a no-op; launching is out of our hands.
func (b *Backend) Activate(app platform.AppID) error {
	wins, err := b.appWindows(app)
	if err != nil {
		return err
	}
	if len(wins) == 0 {
		return nil
	}

	// The client list is oldest-first; activate the newest window.
	return b.conn.Activate(wins[len(wins)-1])
}

func intersects(a, b platform.Rect) bool {
	return a.X < b.X+b.Width && b.X < a.X+a.Width &&
		a.Y < b.Y+b.Height && b.Y < a.Y+a.Height
}
