package x11

import (
	"log/slog"
	"sync"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/xevent"

	"dockpeek/internal/platform"
	"dockpeek/internal/preview"
	"dockpeek/internal/windows"
)

// Panel geometry. Thumbnails are fixed-size cells in a single row.
const (
	panelCellWidth  = 180
	panelCellHeight = 120
	panelPadding    = 8
	panelGap        = 56

	panelBackground = 0x2e2e2e
	cellBackground  = 0x454545
	peekBackground  = 0x1a1a1a

	// closeHitSize is the square in each cell's top-right corner that
	// acts as the close button.
	closeHitSize = 16
)

// PanelSink receives thumbnail interaction events from the panel. The
// preview coordinator implements it.
type PanelSink interface {
	ThumbnailHoverChanged(w platform.WindowID, entered bool)
	ThumbnailClicked(w platform.WindowID)
	CloseClicked(w platform.WindowID)
}

// PanelRenderer draws the preview panel as an override-redirect X11
// window floating above the dock, one cell per window with its title in
// the core X font. A peek opens a second surface at the captured
// window's size.
type PanelRenderer struct {
	conn   *Connection
	dock   *DockScanner
	logger *slog.Logger

	mu        sync.Mutex
	win       xproto.Window
	peekWin   xproto.Window
	frame     platform.Rect
	shown     bool
	handles   []windows.Handle
	font      xproto.Font
	fontOK    bool
	sink      PanelSink
	hoverCell int
}

var _ preview.Renderer = (*PanelRenderer)(nil)

// NewPanelRenderer creates a renderer drawing onto conn's screen.
func NewPanelRenderer(conn *Connection, dock *DockScanner, logger *slog.Logger) *PanelRenderer {
	r := &PanelRenderer{conn: conn, dock: dock, logger: logger, hoverCell: -1}
	r.openFont()
	return r
}

// SetSink routes thumbnail interactions to sink. A nil sink turns
// per-window control off; the panel becomes display-only.
func (r *PanelRenderer) SetSink(sink PanelSink) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sink = sink
}

func (r *PanelRenderer) openFont() {
	font, err := xproto.NewFontId(r.conn.XUtil.Conn())
	if err != nil {
		return
	}
	name := "fixed"
	if err := xproto.OpenFontChecked(r.conn.XUtil.Conn(), font, uint16(len(name)), name).Check(); err != nil {
		r.logger.Warn("core font unavailable, titles disabled", "error", err)
		return
	}
	r.font = font
	r.fontOK = true
}

// ShowPreview presents (or rebuilds) the panel for app.
func (r *PanelRenderer) ShowPreview(app platform.AppID, handles []windows.Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.destroyLocked()
	r.handles = handles

	n := len(handles)
	if n == 0 {
		n = 1
	}
	width := n*panelCellWidth + (n+1)*panelPadding
	height := panelCellHeight + 2*panelPadding
	r.frame = r.panelFrameLocked(width, height)

	mask := uint32(xproto.EventMaskButtonPress | xproto.EventMaskPointerMotion | xproto.EventMaskLeaveWindow)
	win, err := r.createWindowLocked(r.frame, panelBackground, mask)
	if err != nil {
		r.logger.Error("failed to create preview panel", "error", err)
		return
	}
	r.win = win
	r.shown = true
	r.hoverCell = -1
	r.connectInputLocked(win)
	r.drawCellsLocked()
}

// UpdatePreview refreshes the thumbnails of the open panel.
func (r *PanelRenderer) UpdatePreview(handles []windows.Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.shown {
		return
	}
	r.handles = handles
	r.drawCellsLocked()
}

// HidePreview removes the panel, including any open peek.
func (r *PanelRenderer) HidePreview() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.destroyLocked()
}

// ShowPeek elevates one window's preview. image may be nil when capture
// failed; a dark placeholder is shown instead.
func (r *PanelRenderer) ShowPeek(h windows.Handle, image []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.hidePeekLocked()
	if !r.shown {
		return
	}

	frame := r.peekFrameLocked(h.Bounds)
	win, err := r.createWindowLocked(frame, peekBackground, 0)
	if err != nil {
		r.logger.Error("failed to create peek surface", "error", err)
		return
	}
	r.peekWin = win

	if image != nil {
		r.putImageLocked(win, h.Bounds, image)
	}
}

// HidePeek collapses the peek back into the panel.
func (r *PanelRenderer) HidePeek() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hidePeekLocked()
}

// SeamlessExit removes the peek without touching the panel; the real
// window takes over visually.
func (r *PanelRenderer) SeamlessExit() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hidePeekLocked()
}

// Frame returns the panel's current screen frame while it is shown.
func (r *PanelRenderer) Frame() (platform.Rect, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frame, r.shown
}

// panelFrameLocked anchors the panel just above (or beside) the dock.
func (r *PanelRenderer) panelFrameLocked(width, height int) platform.Rect {
	screen := r.conn.XUtil.Screen()
	sw, sh := int(screen.WidthInPixels), int(screen.HeightInPixels)

	x := (sw - width) / 2
	y := sh - height - panelGap
	if dock, err := r.dock.DockFrame(); err == nil {
		if dock.Width >= dock.Height {
			// Horizontal dock: center over it.
			x = dock.X + (dock.Width-width)/2
			if dock.Y > sh/2 {
				y = dock.Y - height - panelPadding
			} else {
				y = dock.Y + dock.Height + panelPadding
			}
		} else {
			// Vertical dock: flush against its inner edge.
			y = dock.Y + (dock.Height-height)/2
			if dock.X > sw/2 {
				x = dock.X - width - panelPadding
			} else {
				x = dock.X + dock.Width + panelPadding
			}
		}
	}

	x = max(0, min(x, sw-width))
	y = max(0, min(y, sh-height))
	return platform.Rect{X: x, Y: y, Width: width, Height: height}
}

func (r *PanelRenderer) peekFrameLocked(bounds platform.Rect) platform.Rect {
	screen := r.conn.XUtil.Screen()
	sw := int(screen.WidthInPixels)

	w, h := bounds.Width, bounds.Height
	x := (sw - w) / 2
	y := r.frame.Y - h - panelPadding
	if y < 0 {
		y = 0
	}
	return platform.Rect{X: x, Y: y, Width: w, Height: h}
}

func (r *PanelRenderer) createWindowLocked(frame platform.Rect, background, eventMask uint32) (xproto.Window, error) {
	conn := r.conn.XUtil.Conn()
	win, err := xproto.NewWindowId(conn)
	if err != nil {
		return 0, err
	}

	// Value list order follows the CW bit order.
	screen := r.conn.XUtil.Screen()
	err = xproto.CreateWindowChecked(
		conn,
		screen.RootDepth,
		win,
		r.conn.Root,
		int16(frame.X), int16(frame.Y),
		uint16(frame.Width), uint16(frame.Height),
		0,
		xproto.WindowClassInputOutput,
		screen.RootVisual,
		xproto.CwBackPixel|xproto.CwOverrideRedirect|xproto.CwEventMask,
		[]uint32{background, 1, eventMask},
	).Check()
	if err != nil {
		return 0, err
	}

	if err := xproto.MapWindowChecked(conn, win).Check(); err != nil {
		xproto.DestroyWindow(conn, win)
		return 0, err
	}
	return win, nil
}

// connectInputLocked hooks panel input into the sink. Cell resolution
// runs under the lock; the sink is always called outside it because the
// coordinator calls back into the renderer.
func (r *PanelRenderer) connectInputLocked(win xproto.Window) {
	xu := r.conn.XUtil

	xevent.ButtonPressFun(func(_ *xgbutil.XUtil, ev xevent.ButtonPressEvent) {
		r.mu.Lock()
		sink := r.sink
		id, isClose, ok := r.cellAtLocked(int(ev.EventX), int(ev.EventY))
		r.mu.Unlock()
		if sink == nil || !ok {
			return
		}
		if isClose {
			sink.CloseClicked(id)
		} else {
			sink.ThumbnailClicked(id)
		}
	}).Connect(xu, win)

	xevent.MotionNotifyFun(func(_ *xgbutil.XUtil, ev xevent.MotionNotifyEvent) {
		r.mu.Lock()
		sink := r.sink
		cell := r.cellIndexLocked(int(ev.EventX), int(ev.EventY))
		prev := r.hoverCell
		var exited, entered platform.WindowID
		var notifyExit, notifyEnter bool
		if cell != prev {
			if prev >= 0 && prev < len(r.handles) {
				exited, notifyExit = r.handles[prev].ID, true
			}
			if cell >= 0 && cell < len(r.handles) {
				entered, notifyEnter = r.handles[cell].ID, true
			}
			r.hoverCell = cell
		}
		r.mu.Unlock()
		if sink == nil {
			return
		}
		if notifyExit {
			sink.ThumbnailHoverChanged(exited, false)
		}
		if notifyEnter {
			sink.ThumbnailHoverChanged(entered, true)
		}
	}).Connect(xu, win)

	xevent.LeaveNotifyFun(func(_ *xgbutil.XUtil, _ xevent.LeaveNotifyEvent) {
		r.mu.Lock()
		sink := r.sink
		prev := r.hoverCell
		r.hoverCell = -1
		var exited platform.WindowID
		notify := prev >= 0 && prev < len(r.handles)
		if notify {
			exited = r.handles[prev].ID
		}
		r.mu.Unlock()
		if sink != nil && notify {
			sink.ThumbnailHoverChanged(exited, false)
		}
	}).Connect(xu, win)
}

// cellIndexLocked maps panel coordinates to a cell index, -1 for the
// padding between cells.
func (r *PanelRenderer) cellIndexLocked(x, y int) int {
	if y < panelPadding || y >= panelPadding+panelCellHeight {
		return -1
	}
	stride := panelCellWidth + panelPadding
	i := (x - panelPadding) / stride
	if i < 0 || i >= len(r.handles) {
		return -1
	}
	cellX := panelPadding + i*stride
	if x < cellX || x >= cellX+panelCellWidth {
		return -1
	}
	return i
}

func (r *PanelRenderer) cellAtLocked(x, y int) (id platform.WindowID, isClose, ok bool) {
	i := r.cellIndexLocked(x, y)
	if i < 0 {
		return 0, false, false
	}
	cellX := panelPadding + i*(panelCellWidth+panelPadding)
	closeZone := x >= cellX+panelCellWidth-closeHitSize && y < panelPadding+closeHitSize
	return r.handles[i].ID, closeZone, true
}

func (r *PanelRenderer) drawCellsLocked() {
	conn := r.conn.XUtil.Conn()

	gc, err := xproto.NewGcontextId(conn)
	if err != nil {
		return
	}
	defer xproto.FreeGC(conn, gc)

	mask := uint32(xproto.GcForeground | xproto.GcBackground)
	values := []uint32{cellBackground, panelBackground}
	if r.fontOK {
		mask |= xproto.GcFont
		values = append(values, uint32(r.font))
	}
	if err := xproto.CreateGCChecked(conn, gc, xproto.Drawable(r.win), mask, values).Check(); err != nil {
		return
	}

	for i, h := range r.handles {
		x := panelPadding + i*(panelCellWidth+panelPadding)
		cell := xproto.Rectangle{
			X:      int16(x),
			Y:      int16(panelPadding),
			Width:  panelCellWidth,
			Height: panelCellHeight,
		}
		xproto.PolyFillRectangle(conn, xproto.Drawable(r.win), gc, []xproto.Rectangle{cell})

		if r.sink != nil {
			closeBox := xproto.Rectangle{
				X:      int16(x + panelCellWidth - closeHitSize),
				Y:      int16(panelPadding),
				Width:  closeHitSize,
				Height: closeHitSize,
			}
			xproto.ChangeGC(conn, gc, xproto.GcForeground, []uint32{0x7a3030})
			xproto.PolyFillRectangle(conn, xproto.Drawable(r.win), gc, []xproto.Rectangle{closeBox})
			xproto.ChangeGC(conn, gc, xproto.GcForeground, []uint32{cellBackground})
		}

		if r.fontOK {
			// ImageText8 draws Latin-1 bytes; truncating on a rune
			// boundary at least keeps multi-byte input from being cut
			// mid-sequence.
			title := h.Title
			if runes := []rune(title); len(runes) > 24 {
				title = string(runes[:24])
			}
			xproto.ChangeGC(conn, gc, xproto.GcForeground, []uint32{0xffffff})
			xproto.ImageText8(
				conn,
				byte(len(title)),
				xproto.Drawable(r.win),
				gc,
				int16(x+6), int16(panelPadding+16),
				title,
			)
			xproto.ChangeGC(conn, gc, xproto.GcForeground, []uint32{cellBackground})
		}
	}
}

// putImageLocked paints captured pixels onto the peek surface. The
// server rejects mismatched sizes; a failed put leaves the placeholder.
func (r *PanelRenderer) putImageLocked(win xproto.Window, source platform.Rect, image []byte) {
	conn := r.conn.XUtil.Conn()
	screen := r.conn.XUtil.Screen()

	expected := source.Width * source.Height * 4
	if len(image) < expected {
		return
	}

	gc, err := xproto.NewGcontextId(conn)
	if err != nil {
		return
	}
	defer xproto.FreeGC(conn, gc)
	if err := xproto.CreateGCChecked(conn, gc, xproto.Drawable(win), 0, nil).Check(); err != nil {
		return
	}

	// X caps a single request at the server's maximum length; send the
	// image one row band at a time.
	rowBytes := source.Width * 4
	const maxBytesPerPut = 65536
	rowsPerPut := max(1, maxBytesPerPut/rowBytes)

	for row := 0; row < source.Height; row += rowsPerPut {
		rows := min(rowsPerPut, source.Height-row)
		data := image[row*rowBytes : (row+rows)*rowBytes]
		xproto.PutImage(
			conn,
			xproto.ImageFormatZPixmap,
			xproto.Drawable(win),
			gc,
			uint16(source.Width), uint16(rows),
			0, int16(row),
			0,
			screen.RootDepth,
			data,
		)
	}
}

func (r *PanelRenderer) hidePeekLocked() {
	if r.peekWin != 0 {
		xproto.DestroyWindow(r.conn.XUtil.Conn(), r.peekWin)
		r.peekWin = 0
	}
}

func (r *PanelRenderer) destroyLocked() {
	r.hidePeekLocked()
	if r.win != 0 {
		xevent.Detach(r.conn.XUtil, r.win)
		xproto.DestroyWindow(r.conn.XUtil.Conn(), r.win)
		r.win = 0
	}
	r.shown = false
	r.frame = platform.Rect{}
	r.handles = nil
	r.hoverCell = -1
}
