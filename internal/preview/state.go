package preview

import "dockpeek/internal/platform"

// State is the preview lifecycle state. Exactly one value exists, owned
// by the Coordinator; external code requests transitions, never sets
// state directly.
type State interface {
	isPreviewState()
}

// Hidden means no preview is on screen.
type Hidden struct{}

// Showing means the preview panel for App is on screen.
type Showing struct {
	App platform.AppID
}

// Peeking means one window's preview is elevated to a large in-place
// view. Peeking exists only inside a Showing session: exiting a peek
// returns to Showing, never to Hidden.
type Peeking struct {
	App    platform.AppID
	Window platform.WindowID
}

func (Hidden) isPreviewState()  {}
func (Showing) isPreviewState() {}
func (Peeking) isPreviewState() {}
