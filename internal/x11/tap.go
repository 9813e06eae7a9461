package x11

import (
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/xevent"

	"dockpeek/internal/platform"
	"dockpeek/internal/tap"
)

// grabbedButtons are the pointer buttons intercepted on the root window.
var grabbedButtons = []tap.Button{tap.ButtonLeft, tap.ButtonMiddle, tap.ButtonRight}

// Tap intercepts pointer button presses with a synchronous grab. The
// pointer freezes on each press until the handler's verdict releases it:
// replay delivers the click to the window underneath, async discards it.
type Tap struct {
	conn    *Connection
	handler tap.Handler
	logger  *slog.Logger
	enabled atomic.Bool
}

// NewTap creates a tap that consults handler for every press.
func NewTap(conn *Connection, handler tap.Handler, logger *slog.Logger) *Tap {
	t := &Tap{conn: conn, handler: handler, logger: logger}
	t.enabled.Store(true)
	return t
}

// Start installs the button grabs and the press callback. A failed grab
// means another client owns the buttons; interception cannot work and
// the caller must run without it.
func (t *Tap) Start() error {
	for _, button := range grabbedButtons {
		err := xproto.GrabButtonChecked(
			t.conn.XUtil.Conn(),
			true,
			t.conn.Root,
			uint16(xproto.EventMaskButtonPress),
			xproto.GrabModeSync,
			xproto.GrabModeAsync,
			xproto.WindowNone,
			xproto.CursorNone,
			byte(button),
			xproto.ModMaskAny,
		).Check()
		if err != nil {
			t.ungrab()
			return fmt.Errorf("failed to grab button %d: %w", button, err)
		}
	}

	xevent.ButtonPressFun(t.onButtonPress).Connect(t.conn.XUtil, t.conn.Root)
	t.logger.Info("button tap installed")
	return nil
}

// Stop removes the grabs.
func (t *Tap) Stop() {
	t.ungrab()
}

// SetEnabled toggles interception. While disabled every press is
// replayed untouched.
func (t *Tap) SetEnabled(enabled bool) {
	t.enabled.Store(enabled)
	t.logger.Info("button tap toggled", "enabled", enabled)
}

func (t *Tap) ungrab() {
	for _, button := range grabbedButtons {
		xproto.UngrabButton(t.conn.XUtil.Conn(), byte(button), t.conn.Root, xproto.ModMaskAny)
	}
}

func (t *Tap) onButtonPress(xu *xgbutil.XUtil, ev xevent.ButtonPressEvent) {
	verdict := tap.PassThrough
	if t.enabled.Load() {
		verdict = t.handler.HandleButtonDown(tap.ButtonEvent{
			Pos:    platform.Point{X: int(ev.RootX), Y: int(ev.RootY)},
			Button: tap.Button(ev.Detail),
			Time:   time.Now(),
		})
	}

	mode := byte(xproto.AllowReplayPointer)
	if verdict == tap.Consume {
		mode = xproto.AllowAsyncPointer
	}
	if err := xproto.AllowEventsChecked(xu.Conn(), mode, ev.Time).Check(); err != nil {
		t.logger.Error("failed to release frozen pointer", "error", err)
	}
}
