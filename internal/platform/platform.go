package platform

// AppID is a stable identifier for a running application. On X11 this is
// the WM_CLASS class name; it is the join key between dock regions, window
// queries and preview state.
type AppID string

// WindowID is a platform-neutral window identifier.
type WindowID uint32

// Point is a position in screen coordinates.
type Point struct {
	X int
	Y int
}

// Rect describes a rectangular region in screen coordinates.
type Rect struct {
	X      int
	Y      int
	Width  int
	Height int
}

// Contains reports whether p lies inside r.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X < r.X+r.Width && p.Y >= r.Y && p.Y < r.Y+r.Height
}

// Union returns the smallest rect covering both r and o.
func (r Rect) Union(o Rect) Rect {
	if r.Width == 0 && r.Height == 0 {
		return o
	}
	if o.Width == 0 && o.Height == 0 {
		return r
	}
	x1 := min(r.X, o.X)
	y1 := min(r.Y, o.Y)
	x2 := max(r.X+r.Width, o.X+o.Width)
	y2 := max(r.Y+r.Height, o.Y+o.Height)
	return Rect{X: x1, Y: y1, Width: x2 - x1, Height: y2 - y1}
}

// Inset grows (negative d) or shrinks (positive d) r on all sides.
func (r Rect) Inset(d int) Rect {
	return Rect{
		X:      r.X + d,
		Y:      r.Y + d,
		Width:  r.Width - 2*d,
		Height: r.Height - 2*d,
	}
}

// Layer classifies the stacking layer a window lives on.
type Layer int

const (
	// LayerStandard is the normal application window layer.
	LayerStandard Layer = iota
	// LayerOverlay covers docks, notifications, tooltips and other
	// auxiliary surfaces that never participate in visibility toggling.
	LayerOverlay
)

// Role is the window role reported by the window manager.
type Role string

// Subrole refines Role for managed windows.
type Subrole string

const (
	RoleWindow Role = "window"
	RoleOther  Role = "other"

	SubroleStandard Subrole = "standard"
	SubroleDialog   Subrole = "dialog"
	SubroleOther    Subrole = "other"
)

// ServerWindow is a window as seen by the low-level window server:
// geometry and compositing state, no interaction metadata.
type ServerWindow struct {
	ID        WindowID
	Owner     AppID
	Title     string
	Bounds    Rect
	Layer     Layer
	Alpha     float64
	OnScreen  bool
	Minimized bool
}

// ManagedWindow is a window as seen by the window manager: roles and the
// actions it exposes. The ID matches the ServerWindow ID exactly, which is
// what makes the two lists joinable.
type ManagedWindow struct {
	ID          WindowID
	Title       string
	Frontmost   bool
	Role        Role
	Subrole     Subrole
	CanClose    bool
	CanMinimize bool
}
