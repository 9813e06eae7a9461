package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/xproto"

	"dockpeek/internal/platform"
	"dockpeek/internal/preview"
)

// Capturer grabs window contents from the server as raw ZPixmap bytes.
type Capturer struct {
	conn *Connection
}

var _ preview.Capturer = (*Capturer)(nil)

// NewCapturer creates a capturer bound to an X11 connection.
func NewCapturer(conn *Connection) *Capturer {
	return &Capturer{conn: conn}
}

// Capture reads the window's current pixels. Unmapped or obscured
// windows may return stale or partial content; callers treat capture as
// best effort.
func (c *Capturer) Capture(id platform.WindowID) ([]byte, error) {
	win := xproto.Window(id)

	geom, err := xproto.GetGeometry(c.conn.XUtil.Conn(), xproto.Drawable(win)).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to get geometry for capture: %w", err)
	}

	img, err := xproto.GetImage(
		c.conn.XUtil.Conn(),
		xproto.ImageFormatZPixmap,
		xproto.Drawable(win),
		0, 0,
		geom.Width, geom.Height,
		0xffffffff,
	).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to capture window %d: %w", win, err)
	}

	return img.Data, nil
}
