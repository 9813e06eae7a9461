package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"

	"dockpeek/internal/dockcache"
	"dockpeek/internal/platform"
)

// DockScanner derives per-application dock regions from the dock
// window's geometry. The dock lays running applications out in equal
// slices along its long axis, in client-list order; slicing its frame
// the same way reproduces each icon's screen region.
type DockScanner struct {
	conn *Connection
}

var _ dockcache.Scanner = (*DockScanner)(nil)

// NewDockScanner creates a scanner bound to an X11 connection.
func NewDockScanner(conn *Connection) *DockScanner {
	return &DockScanner{conn: conn}
}

// ScanRegions locates the dock window and returns one region per
// running application.
func (s *DockScanner) ScanRegions() ([]dockcache.Region, error) {
	dockFrame, err := s.dockFrame()
	if err != nil {
		return nil, err
	}

	apps, err := s.runningApps()
	if err != nil {
		return nil, err
	}
	if len(apps) == 0 {
		return nil, nil
	}

	return sliceFrame(dockFrame, apps), nil
}

// DockFrame returns the dock window's current geometry.
func (s *DockScanner) DockFrame() (platform.Rect, error) {
	return s.dockFrame()
}

// dockFrame finds the geometry of the first _NET_WM_WINDOW_TYPE_DOCK
// window. The client list is checked first; docks that stay out of it
// are found by walking the root tree.
func (s *DockScanner) dockFrame() (platform.Rect, error) {
	if frame, ok := s.findDock(s.clientList()); ok {
		return frame, nil
	}

	tree, err := xproto.QueryTree(s.conn.XUtil.Conn(), s.conn.Root).Reply()
	if err != nil {
		return platform.Rect{}, fmt.Errorf("failed to query window tree: %w", err)
	}
	if frame, ok := s.findDock(tree.Children); ok {
		return frame, nil
	}

	return platform.Rect{}, fmt.Errorf("no dock window found")
}

func (s *DockScanner) clientList() []xproto.Window {
	clients, err := ewmh.ClientListGet(s.conn.XUtil)
	if err != nil {
		return nil
	}
	return clients
}

func (s *DockScanner) findDock(wins []xproto.Window) (platform.Rect, bool) {
	for _, win := range wins {
		if !s.isDock(win) {
			continue
		}
		if frame, ok := s.conn.WindowRect(win); ok {
			return frame, true
		}
	}
	return platform.Rect{}, false
}

func (s *DockScanner) isDock(win xproto.Window) bool {
	types, err := ewmh.WmWindowTypeGet(s.conn.XUtil, win)
	if err != nil {
		return false
	}
	for _, t := range types {
		if t == "_NET_WM_WINDOW_TYPE_DOCK" {
			return true
		}
	}
	return false
}

// runningApps returns applications with at least one standard-layer
// window, ordered by first appearance in the client list. That order
// matches the dock's icon order.
func (s *DockScanner) runningApps() ([]platform.AppID, error) {
	clients, err := ewmh.ClientListGet(s.conn.XUtil)
	if err != nil {
		return nil, fmt.Errorf("failed to list clients: %w", err)
	}

	seen := make(map[platform.AppID]bool)
	var apps []platform.AppID
	for _, win := range clients {
		if s.conn.WindowLayer(win) != platform.LayerStandard {
			continue
		}
		app := s.conn.WindowApp(win)
		if app == "" || seen[app] {
			continue
		}
		seen[app] = true
		apps = append(apps, app)
	}
	return apps, nil
}

// sliceFrame divides the dock frame into equal regions along its long
// axis, one per application.
func sliceFrame(frame platform.Rect, apps []platform.AppID) []dockcache.Region {
	n := len(apps)
	regions := make([]dockcache.Region, 0, n)

	horizontal := frame.Width >= frame.Height
	for i, app := range apps {
		var r platform.Rect
		if horizontal {
			x0 := frame.X + frame.Width*i/n
			x1 := frame.X + frame.Width*(i+1)/n
			r = platform.Rect{X: x0, Y: frame.Y, Width: x1 - x0, Height: frame.Height}
		} else {
			y0 := frame.Y + frame.Height*i/n
			y1 := frame.Y + frame.Height*(i+1)/n
			r = platform.Rect{X: frame.X, Y: y0, Width: frame.Width, Height: y1 - y0}
		}
		regions = append(regions, dockcache.Region{Frame: r, Owner: app})
	}
	return regions
}
