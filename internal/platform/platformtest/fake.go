// Package platformtest provides a scriptable Backend for tests.
package platformtest

import (
	"sync"

	"dockpeek/internal/platform"
)

// Call records one mutation issued against the fake.
type Call struct {
	Op     string
	App    platform.AppID
	Window platform.WindowID
	Flag   bool
}

// Fake implements platform.Backend. Query results are plain fields;
// mutations are recorded in Calls. Zero value is usable.
type Fake struct {
	mu sync.Mutex

	Server    map[platform.AppID][]platform.ServerWindow
	Managed   map[platform.AppID][]platform.ManagedWindow
	Frontmost map[platform.AppID]bool
	Hidden    map[platform.AppID]bool

	// Err, when set, is returned from every query.
	Err error

	Calls []Call
}

var _ platform.Backend = (*Fake)(nil)

func (f *Fake) ServerWindows(app platform.AppID) ([]platform.ServerWindow, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	return f.Server[app], nil
}

func (f *Fake) ManagedWindows(app platform.AppID) ([]platform.ManagedWindow, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	return f.Managed[app], nil
}

func (f *Fake) IsFrontmost(app platform.AppID) (bool, error) {
	if f.Err != nil {
		return false, f.Err
	}
	return f.Frontmost[app], nil
}

func (f *Fake) IsHidden(app platform.AppID) (bool, error) {
	if f.Err != nil {
		return false, f.Err
	}
	return f.Hidden[app], nil
}

func (f *Fake) SetMinimized(id platform.WindowID, minimized bool) error {
	f.record(Call{Op: "set_minimized", Window: id, Flag: minimized})
	return nil
}

func (f *Fake) Raise(id platform.WindowID) error {
	f.record(Call{Op: "raise", Window: id})
	return nil
}

func (f *Fake) PerformClose(id platform.WindowID) error {
	f.record(Call{Op: "close", Window: id})
	return nil
}

func (f *Fake) Hide(app platform.AppID) error {
	f.record(Call{Op: "hide", App: app})
	return nil
}

func (f *Fake) Unhide(app platform.AppID) error {
	f.record(Call{Op: "unhide", App: app})
	return nil
}

func (f *Fake) Activate(app platform.AppID) error {
	f.record(Call{Op: "activate", App: app})
	return nil
}

func (f *Fake) record(c Call) {
	f.mu.Lock()
	f.Calls = append(f.Calls, c)
	f.mu.Unlock()
}

// Recorded returns a copy of the mutation log.
func (f *Fake) Recorded() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Call, len(f.Calls))
	copy(out, f.Calls)
	return out
}

// Ops returns just the operation names, in order.
func (f *Fake) Ops() []string {
	calls := f.Recorded()
	ops := make([]string, len(calls))
	for i, c := range calls {
		ops[i] = c.Op
	}
	return ops
}
