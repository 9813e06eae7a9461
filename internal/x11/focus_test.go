package x11

import (
	"errors"
	"log/slog"
	"testing"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/xevent"

	"dockpeek/internal/platform"
)

func propertyEvent(atom xproto.Atom) xevent.PropertyNotifyEvent {
	return xevent.PropertyNotifyEvent{
		PropertyNotifyEvent: &xproto.PropertyNotifyEvent{Atom: atom},
	}
}

func TestFocusWatcher_ReportsNewlyFocusedApp(t *testing.T) {
	var got []platform.AppID
	w := &FocusWatcher{
		logger:     slog.Default(),
		onChange:   func(app platform.AppID) { got = append(got, app) },
		active:     func() (xproto.Window, error) { return 7, nil },
		appOf:      func(xproto.Window) platform.AppID { return "editor" },
		activeAtom: 42,
	}

	w.onProperty(nil, propertyEvent(42))
	if len(got) != 1 || got[0] != "editor" {
		t.Fatalf("expected one focus report for editor, got %v", got)
	}

	// The same app focused again is not re-reported.
	w.onProperty(nil, propertyEvent(42))
	if len(got) != 1 {
		t.Fatalf("repeat focus must be deduplicated, got %v", got)
	}
}

func TestFocusWatcher_IgnoresUnrelatedPropertiesAndErrors(t *testing.T) {
	calls := 0
	app := platform.AppID("term")
	var activeErr error
	w := &FocusWatcher{
		logger:     slog.Default(),
		onChange:   func(platform.AppID) { calls++ },
		active:     func() (xproto.Window, error) { return 7, activeErr },
		appOf:      func(xproto.Window) platform.AppID { return app },
		activeAtom: 42,
	}

	w.onProperty(nil, propertyEvent(9)) // some other root property
	if calls != 0 {
		t.Fatalf("unrelated property must be ignored")
	}

	app = ""
	w.onProperty(nil, propertyEvent(42))
	if calls != 0 {
		t.Fatalf("a window without an owner must be ignored")
	}

	app = "term"
	activeErr = errors.New("connection closed")
	w.onProperty(nil, propertyEvent(42))
	if calls != 0 {
		t.Fatalf("an active-window query failure must be ignored")
	}
}
