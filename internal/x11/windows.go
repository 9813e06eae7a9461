package x11

import (
	"strings"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/icccm"
	"github.com/BurntSushi/xgbutil/xprop"

	"dockpeek/internal/platform"
)

const opaque = 0xffffffff

// ClientWindows returns the managed client list in the window manager's
// order (oldest first).
func (c *Connection) ClientWindows() ([]xproto.Window, error) {
	return ewmh.ClientListGet(c.XUtil)
}

// WindowApp returns the application identifier for a window: the
// WM_CLASS class name.
func (c *Connection) WindowApp(win xproto.Window) platform.AppID {
	wmClass, err := icccm.WmClassGet(c.XUtil, win)
	if err != nil {
		return ""
	}
	return platform.AppID(strings.TrimSpace(wmClass.Class))
}

// WindowTitle returns the window title, preferring the EWMH name.
func (c *Connection) WindowTitle(win xproto.Window) string {
	title, err := ewmh.WmNameGet(c.XUtil, win)
	if err == nil {
		if title = strings.TrimSpace(title); title != "" {
			return title
		}
	}

	title, err = icccm.WmNameGet(c.XUtil, win)
	if err == nil {
		if title = strings.TrimSpace(title); title != "" {
			return title
		}
	}

	return ""
}

// WindowRect returns the window geometry in root coordinates.
func (c *Connection) WindowRect(win xproto.Window) (platform.Rect, bool) {
	geom, err := xproto.GetGeometry(c.XUtil.Conn(), xproto.Drawable(win)).Reply()
	if err != nil {
		return platform.Rect{}, false
	}

	translate, err := xproto.TranslateCoordinates(
		c.XUtil.Conn(),
		win,
		c.Root,
		0, 0,
	).Reply()
	if err != nil {
		return platform.Rect{}, false
	}

	return platform.Rect{
		X:      int(translate.DstX),
		Y:      int(translate.DstY),
		Width:  int(geom.Width),
		Height: int(geom.Height),
	}, true
}

// WindowMinimized reports whether the window carries _NET_WM_STATE_HIDDEN.
func (c *Connection) WindowMinimized(win xproto.Window) bool {
	states, err := ewmh.WmStateGet(c.XUtil, win)
	if err != nil {
		return false
	}
	for _, state := range states {
		if state == "_NET_WM_STATE_HIDDEN" {
			return true
		}
	}
	return false
}

// WindowViewable reports whether the window is currently mapped.
func (c *Connection) WindowViewable(win xproto.Window) bool {
	attrs, err := xproto.GetWindowAttributes(c.XUtil.Conn(), win).Reply()
	if err != nil {
		return false
	}
	return attrs.MapState == xproto.MapStateViewable
}

// WindowLayer classifies the stacking layer from the EWMH window type.
func (c *Connection) WindowLayer(win xproto.Window) platform.Layer {
	types, err := ewmh.WmWindowTypeGet(c.XUtil, win)
	if err != nil {
		return platform.LayerStandard
	}
	for _, t := range types {
		switch t {
		case "_NET_WM_WINDOW_TYPE_DOCK",
			"_NET_WM_WINDOW_TYPE_NOTIFICATION",
			"_NET_WM_WINDOW_TYPE_TOOLTIP",
			"_NET_WM_WINDOW_TYPE_SPLASH",
			"_NET_WM_WINDOW_TYPE_DESKTOP":
			return platform.LayerOverlay
		}
	}
	return platform.LayerStandard
}

// WindowRoles maps the EWMH window type onto role and subrole.
func (c *Connection) WindowRoles(win xproto.Window) (platform.Role, platform.Subrole) {
	types, err := ewmh.WmWindowTypeGet(c.XUtil, win)
	if err != nil || len(types) == 0 {
		// Untyped windows are treated as normal application windows.
		return platform.RoleWindow, platform.SubroleStandard
	}
	for _, t := range types {
		switch t {
		case "_NET_WM_WINDOW_TYPE_NORMAL":
			return platform.RoleWindow, platform.SubroleStandard
		case "_NET_WM_WINDOW_TYPE_DIALOG":
			return platform.RoleWindow, platform.SubroleDialog
		}
	}
	return platform.RoleOther, platform.SubroleOther
}

// WindowAlpha returns the compositor opacity in [0,1], defaulting to
// fully opaque when the property is unset.
func (c *Connection) WindowAlpha(win xproto.Window) float64 {
	raw, err := xprop.PropValNum(xprop.GetProperty(c.XUtil, win, "_NET_WM_WINDOW_OPACITY"))
	if err != nil {
		return 1.0
	}
	return float64(raw) / float64(opaque)
}

// WindowCanClose reports whether the window participates in the
// WM_DELETE_WINDOW protocol.
func (c *Connection) WindowCanClose(win xproto.Window) bool {
	protocols, err := icccm.WmProtocolsGet(c.XUtil, win)
	if err != nil {
		return false
	}
	for _, p := range protocols {
		if p == "WM_DELETE_WINDOW" {
			return true
		}
	}
	return false
}

// WindowCanMinimize consults _NET_WM_ALLOWED_ACTIONS. Windows that do
// not publish the property are assumed minimizable.
func (c *Connection) WindowCanMinimize(win xproto.Window) bool {
	actions, err := ewmh.WmAllowedActionsGet(c.XUtil, win)
	if err != nil || len(actions) == 0 {
		return true
	}
	for _, a := range actions {
		if a == "_NET_WM_ACTION_MINIMIZE" {
			return true
		}
	}
	return false
}

// ActiveWindow returns the focused window.
func (c *Connection) ActiveWindow() (xproto.Window, error) {
	return ewmh.ActiveWindowGet(c.XUtil)
}

// Minimize iconifies a window via WM_CHANGE_STATE.
func (c *Connection) Minimize(win xproto.Window) error {
	reply, err := xproto.InternAtom(c.XUtil.Conn(), false, uint16(len("WM_CHANGE_STATE")), "WM_CHANGE_STATE").Reply()
	if err != nil {
		return err
	}

	const iconicState = 3
	ev := xproto.ClientMessageEvent{
		Format: 32,
		Window: win,
		Type:   reply.Atom,
		Data:   xproto.ClientMessageDataUnionData32New([]uint32{iconicState, 0, 0, 0, 0}),
	}

	return xproto.SendEventChecked(
		c.XUtil.Conn(),
		false,
		c.Root,
		xproto.EventMaskSubstructureRedirect|xproto.EventMaskSubstructureNotify,
		string(ev.Bytes()),
	).Check()
}

// Unminimize maps an iconified window back onto the screen.
func (c *Connection) Unminimize(win xproto.Window) error {
	return xproto.MapWindowChecked(c.XUtil.Conn(), win).Check()
}

// Raise restacks a window to the top of its layer.
func (c *Connection) Raise(win xproto.Window) error {
	return ewmh.RestackWindow(c.XUtil, win)
}

// Activate focuses a window via _NET_ACTIVE_WINDOW.
func (c *Connection) Activate(win xproto.Window) error {
	return ewmh.ActiveWindowReq(c.XUtil, win)
}

// RequestClose asks the window to close via WM_DELETE_WINDOW.
func (c *Connection) RequestClose(win xproto.Window) error {
	deleteReply, err := xproto.InternAtom(c.XUtil.Conn(), false, uint16(len("WM_DELETE_WINDOW")), "WM_DELETE_WINDOW").Reply()
	if err != nil {
		return err
	}
	protocolsReply, err := xproto.InternAtom(c.XUtil.Conn(), false, uint16(len("WM_PROTOCOLS")), "WM_PROTOCOLS").Reply()
	if err != nil {
		return err
	}

	ev := xproto.ClientMessageEvent{
		Format: 32,
		Window: win,
		Type:   protocolsReply.Atom,
		Data:   xproto.ClientMessageDataUnionData32New([]uint32{uint32(deleteReply.Atom), 0, 0, 0, 0}),
	}

	return xproto.SendEventChecked(
		c.XUtil.Conn(),
		false,
		win,
		xproto.EventMaskNoEvent,
		string(ev.Bytes()),
	).Check()
}
