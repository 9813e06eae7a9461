package platform

// Backend abstracts the window/query service across platforms. All calls
// may be slow (they round-trip to the window server) and must therefore
// never run on the event-tap path directly; callers bound them with the
// watchdog or issue them from background tasks.
type Backend interface {
	// ServerWindows returns the low-level window list for an application.
	ServerWindows(app AppID) ([]ServerWindow, error)
	// ManagedWindows returns the window-manager view of the same windows.
	ManagedWindows(app AppID) ([]ManagedWindow, error)

	IsFrontmost(app AppID) (bool, error)
	IsHidden(app AppID) (bool, error)

	SetMinimized(id WindowID, minimized bool) error
	Raise(id WindowID) error
	PerformClose(id WindowID) error

	Hide(app AppID) error
	Unhide(app AppID) error
	Activate(app AppID) error
}
