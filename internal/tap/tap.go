// Package tap models the global input event stream. The platform layer
// invokes Handle for every event it intercepts; the returned Action tells
// it whether to replay the event to the rest of the desktop or swallow it.
package tap

import (
	"time"

	"dockpeek/internal/platform"
)

// Action is the tap's verdict on one event.
type Action int

const (
	// PassThrough replays the event unmodified. This is the safe default
	// and the mandatory answer whenever a decision cannot be made in
	// budget.
	PassThrough Action = iota
	// Consume suppresses the default OS handling of the event.
	Consume
)

// Button identifies a pointer button.
type Button int

const (
	ButtonLeft   Button = 1
	ButtonMiddle Button = 2
	ButtonRight  Button = 3
)

// ButtonEvent is one button-down event from the global stream.
type ButtonEvent struct {
	Pos    platform.Point
	Button Button
	Time   time.Time
}

// Handler decides what one button event means. Implementations must
// return within the real-time budget.
type Handler interface {
	HandleButtonDown(ev ButtonEvent) Action
}
