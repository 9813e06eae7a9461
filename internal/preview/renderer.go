package preview

import (
	"dockpeek/internal/platform"
	"dockpeek/internal/windows"
)

// Renderer is the preview drawing layer. Implementations own the panel
// surface; the coordinator only tells them what to show. All calls are
// posts into the UI layer and must not block.
type Renderer interface {
	// ShowPreview presents (or rebuilds) the panel for app.
	ShowPreview(app platform.AppID, handles []windows.Handle)
	// UpdatePreview refreshes the thumbnails of the open panel.
	UpdatePreview(handles []windows.Handle)
	// HidePreview removes the panel, including any open peek.
	HidePreview()

	// ShowPeek elevates one window's preview. image may be nil when
	// capture failed; the renderer shows a placeholder.
	ShowPeek(h windows.Handle, image []byte)
	// HidePeek collapses the peek back into the panel.
	HidePeek()
	// SeamlessExit fades the peek view while the real window animates
	// into place, instead of an abrupt hide.
	SeamlessExit()

	// Frame returns the panel's current screen frame while it is shown.
	Frame() (platform.Rect, bool)
}

// Capturer produces a thumbnail image for a window. Capture is slow and
// is always called from a background task.
type Capturer interface {
	Capture(id platform.WindowID) ([]byte, error)
}

// Focuser is the narrow window-raising surface the coordinator needs for
// the peek-click seamless exit.
type Focuser interface {
	SetMinimized(id platform.WindowID, minimized bool) error
	Raise(id platform.WindowID) error
}
