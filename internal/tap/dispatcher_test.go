package tap

import (
	"sync"
	"testing"
	"time"

	"dockpeek/internal/dockcache"
	"dockpeek/internal/notify"
	"dockpeek/internal/platform"
	"dockpeek/internal/platform/platformtest"
	"dockpeek/internal/windows"
)

type staticScanner struct {
	regions []dockcache.Region
}

func (s staticScanner) ScanRegions() ([]dockcache.Region, error) {
	return s.regions, nil
}

type fakeToggler struct {
	mu    sync.Mutex
	apps  []platform.AppID
	block chan struct{}
}

func (f *fakeToggler) Toggle(app platform.AppID) error {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	f.apps = append(f.apps, app)
	f.mu.Unlock()
	return nil
}

func (f *fakeToggler) toggled() []platform.AppID {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]platform.AppID(nil), f.apps...)
}

type fakeLister struct {
	mu      sync.Mutex
	handles []windows.Handle
	delay   time.Duration
}

func (l *fakeLister) List(platform.AppID) ([]windows.Handle, error) {
	l.mu.Lock()
	handles, delay := l.handles, l.delay
	l.mu.Unlock()
	if delay > 0 {
		time.Sleep(delay)
	}
	return handles, nil
}

type fixture struct {
	dispatcher *Dispatcher
	toggler    *fakeToggler
	lister     *fakeLister
	backend    *platformtest.Fake
	broker     *notify.Broker
	panel      platform.Rect
	panelShown bool
	hides      int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		toggler: &fakeToggler{},
		lister:  &fakeLister{handles: []windows.Handle{{ID: 1, Owner: "term"}}},
		backend: &platformtest.Fake{Frontmost: map[platform.AppID]bool{"term": true}},
		broker:  notify.NewBroker(nil),
	}
	cache := dockcache.New(dockcache.Config{}, staticScanner{regions: []dockcache.Region{
		{Frame: platform.Rect{X: 0, Y: 1000, Width: 64, Height: 64}, Owner: "term"},
	}})
	cache.Refresh()

	panel := func() (platform.Rect, bool) { return f.panel, f.panelShown }
	f.dispatcher = NewDispatcher(Config{}, cache, f.backend, f.lister, f.toggler, f.broker, panel, func() { f.hides++ })
	return f
}

func click(x, y int, button Button, at time.Time) ButtonEvent {
	return ButtonEvent{Pos: platform.Point{X: x, Y: y}, Button: button, Time: at}
}

func TestHandleButtonDown_ClickOffDockPassesThrough(t *testing.T) {
	f := newFixture(t)

	if got := f.dispatcher.HandleButtonDown(click(500, 500, ButtonLeft, time.Unix(1, 0))); got != PassThrough {
		t.Fatalf("expected pass-through off the dock, got %v", got)
	}
	if len(f.toggler.toggled()) != 0 {
		t.Fatalf("no visibility call expected")
	}
}

func TestHandleButtonDown_DockClickConsumedAndDispatched(t *testing.T) {
	f := newFixture(t)

	var clicks []notify.DockClick
	f.broker.SubscribeDockClick(func(ev notify.DockClick) { clicks = append(clicks, ev) })

	if got := f.dispatcher.HandleButtonDown(click(10, 1010, ButtonLeft, time.Unix(1, 0))); got != Consume {
		t.Fatalf("expected dock click to be consumed, got %v", got)
	}

	toggled := f.toggler.toggled()
	if len(toggled) != 1 || toggled[0] != "term" {
		t.Fatalf("expected toggle(term), got %v", toggled)
	}
	if len(clicks) != 1 || clicks[0].Intent != notify.IntentToggle {
		t.Fatalf("expected a toggle notification before dispatch, got %v", clicks)
	}
}

func TestHandleButtonDown_NotFrontmostClassifiesActivate(t *testing.T) {
	f := newFixture(t)
	f.backend.Frontmost["term"] = false

	var clicks []notify.DockClick
	f.broker.SubscribeDockClick(func(ev notify.DockClick) { clicks = append(clicks, ev) })

	f.dispatcher.HandleButtonDown(click(10, 1010, ButtonLeft, time.Unix(1, 0)))

	if len(clicks) != 1 || clicks[0].Intent != notify.IntentActivate {
		t.Fatalf("expected activate intent, got %v", clicks)
	}
}

func TestHandleButtonDown_CooldownSwallowsDoubleFire(t *testing.T) {
	f := newFixture(t)

	base := time.Unix(1, 0)
	f.dispatcher.HandleButtonDown(click(10, 1010, ButtonLeft, base))
	got := f.dispatcher.HandleButtonDown(click(10, 1010, ButtonLeft, base.Add(30*time.Millisecond)))

	if got != Consume {
		t.Fatalf("double-fire inside cooldown must not reach the OS, got %v", got)
	}
	if len(f.toggler.toggled()) != 1 {
		t.Fatalf("expected exactly one dispatch, got %v", f.toggler.toggled())
	}

	// After the cooldown the next click is handled again.
	f.dispatcher.HandleButtonDown(click(10, 1010, ButtonLeft, base.Add(300*time.Millisecond)))
	if len(f.toggler.toggled()) != 2 {
		t.Fatalf("expected a second dispatch after cooldown, got %v", f.toggler.toggled())
	}
}

func TestHandleButtonDown_WatchdogTimeoutPassesThroughWithoutMutation(t *testing.T) {
	f := newFixture(t)
	f.dispatcher.budget = 5 * time.Millisecond
	f.lister.delay = 100 * time.Millisecond

	var clicks []notify.DockClick
	var clicksMu sync.Mutex
	f.broker.SubscribeDockClick(func(ev notify.DockClick) {
		clicksMu.Lock()
		clicks = append(clicks, ev)
		clicksMu.Unlock()
	})

	got := f.dispatcher.HandleButtonDown(click(10, 1010, ButtonLeft, time.Unix(1, 0)))
	if got != PassThrough {
		t.Fatalf("watchdog timeout must pass the event through, got %v", got)
	}
	if len(f.toggler.toggled()) != 0 {
		t.Fatalf("no visibility mutation may land before the timeout verdict, got %v", f.toggler.toggled())
	}

	// The abandoned worker finishes well after the verdict; its
	// classification must be discarded, or the replayed default click and
	// our toggle would both act on the same press.
	time.Sleep(300 * time.Millisecond)
	if got := f.toggler.toggled(); len(got) != 0 {
		t.Fatalf("visibility mutation landed after the timeout verdict: %v", got)
	}
	clicksMu.Lock()
	published := len(clicks)
	clicksMu.Unlock()
	if published != 0 {
		t.Fatalf("no notification may be published for a timed-out click, got %d", published)
	}
}

func TestHandleButtonDown_LeftClickOutsidePanelForceHides(t *testing.T) {
	f := newFixture(t)
	f.panel = platform.Rect{X: 0, Y: 700, Width: 400, Height: 280}
	f.panelShown = true

	got := f.dispatcher.HandleButtonDown(click(500, 500, ButtonLeft, time.Unix(1, 0)))
	if got != PassThrough {
		t.Fatalf("off-dock click must pass through, got %v", got)
	}
	if f.hides != 1 {
		t.Fatalf("a click outside both dock and panel must dismiss the preview immediately")
	}
	if len(f.toggler.toggled()) != 0 {
		t.Fatalf("no visibility call expected, got %v", f.toggler.toggled())
	}

	// Inside the panel the click belongs to the panel's own input path.
	f.dispatcher.HandleButtonDown(click(100, 800, ButtonLeft, time.Unix(2, 0)))
	if f.hides != 1 {
		t.Fatalf("a click inside the panel must not dismiss it")
	}

	// With no panel shown there is nothing to dismiss.
	f.panelShown = false
	f.dispatcher.HandleButtonDown(click(500, 500, ButtonLeft, time.Unix(3, 0)))
	if f.hides != 1 {
		t.Fatalf("no dismissal expected without an open panel")
	}
}

func TestHandleButtonDown_RightClickOnDockForceHidesAndPassesThrough(t *testing.T) {
	f := newFixture(t)

	if got := f.dispatcher.HandleButtonDown(click(10, 1010, ButtonRight, time.Unix(1, 0))); got != PassThrough {
		t.Fatalf("non-primary buttons are never consumed, got %v", got)
	}
	if f.hides != 1 {
		t.Fatalf("right-click on the dock must force-hide the preview")
	}

	// Off the dock, a right click does nothing.
	f.dispatcher.HandleButtonDown(click(500, 500, ButtonRight, time.Unix(2, 0)))
	if f.hides != 1 {
		t.Fatalf("right-click off the dock must not touch the preview")
	}
}
