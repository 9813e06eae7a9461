// Package windows turns raw backend window lists into the filtered handle
// list the rest of the system operates on. The join and validity rules
// here decide what counts as a real, toggleable window versus a ghost,
// panel or overlay.
package windows

import (
	"fmt"

	"dockpeek/internal/platform"
)

const (
	// MinDimension is the smallest width/height a server window may have
	// and still qualify. Anything smaller is an indicator, badge or ghost.
	MinDimension = 100
	// minAlpha rejects nearly transparent windows.
	minAlpha = 0.1
)

// Handle is the enumeration result consumed by visibility and preview
// logic. Handles are not persisted; they are recomputed on every preview
// open and on explicit refresh triggers.
type Handle struct {
	ID        platform.WindowID
	Owner     platform.AppID
	Title     string
	Bounds    platform.Rect
	Minimized bool
	Frontmost bool
	CanClose  bool
}

// Enumerator lists valid windows for an application.
type Enumerator struct {
	backend platform.Backend
}

// NewEnumerator creates an enumerator over the given backend.
func NewEnumerator(backend platform.Backend) *Enumerator {
	return &Enumerator{backend: backend}
}

// List queries both window lists for app and joins them by window id.
//
// A managed window qualifies when its role is the standard window role,
// its subrole is standard or dialog, and it exposes a close or minimize
// action; this excludes auxiliary panels, tooltips and non-interactive
// overlays. When the managed set is non-empty, server windows without a
// managed match are ghosts and are discarded. When it is empty, server
// windows with non-empty titles are used as a fallback.
//
// Independently, server windows are discarded when undersized, on an
// overlay layer, nearly transparent, or off-screen — unless the window is
// minimized or its application is hidden, which is a legitimate state and
// not a ghost.
func (e *Enumerator) List(app platform.AppID) ([]Handle, error) {
	server, err := e.backend.ServerWindows(app)
	if err != nil {
		return nil, fmt.Errorf("list server windows for %s: %w", app, err)
	}
	managed, err := e.backend.ManagedWindows(app)
	if err != nil {
		return nil, fmt.Errorf("list managed windows for %s: %w", app, err)
	}
	appHidden, err := e.backend.IsHidden(app)
	if err != nil {
		// Treat an unanswerable query as "not hidden"; the geometric
		// filters below still apply.
		appHidden = false
	}

	valid := make(map[platform.WindowID]platform.ManagedWindow)
	for _, m := range managed {
		if !qualifies(m) {
			continue
		}
		valid[m.ID] = m
	}

	handles := make([]Handle, 0, len(server))
	for _, s := range server {
		if !passesGeometry(s, appHidden) {
			continue
		}

		if len(valid) > 0 {
			m, ok := valid[s.ID]
			if !ok {
				continue // ghost: no managed counterpart
			}
			title := m.Title
			if title == "" {
				title = s.Title
			}
			handles = append(handles, Handle{
				ID:        s.ID,
				Owner:     s.Owner,
				Title:     title,
				Bounds:    s.Bounds,
				Minimized: s.Minimized,
				Frontmost: m.Frontmost,
				CanClose:  m.CanClose,
			})
			continue
		}

		// Managed set empty: fall back to titled server windows only.
		if s.Title == "" {
			continue
		}
		handles = append(handles, Handle{
			ID:        s.ID,
			Owner:     s.Owner,
			Title:     s.Title,
			Bounds:    s.Bounds,
			Minimized: s.Minimized,
		})
	}

	return handles, nil
}

func qualifies(m platform.ManagedWindow) bool {
	if m.Role != platform.RoleWindow {
		return false
	}
	if m.Subrole != platform.SubroleStandard && m.Subrole != platform.SubroleDialog {
		return false
	}
	return m.CanClose || m.CanMinimize
}

func passesGeometry(s platform.ServerWindow, appHidden bool) bool {
	if s.Bounds.Width < MinDimension || s.Bounds.Height < MinDimension {
		return false
	}
	if s.Layer != platform.LayerStandard {
		return false
	}
	if s.Alpha < minAlpha {
		return false
	}
	if !s.OnScreen && !s.Minimized && !appHidden {
		// Off-screen-but-minimized (or app hidden) is a legitimate state,
		// not a ghost.
		return false
	}
	return true
}
