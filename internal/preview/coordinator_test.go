package preview

import (
	"sync"
	"testing"
	"time"

	"dockpeek/internal/notify"
	"dockpeek/internal/platform"
	"dockpeek/internal/windows"
)

type manualTimer struct {
	fn      func()
	stopped bool
}

func (m *manualTimer) Stop() bool {
	m.stopped = true
	return true
}

type timerLog struct {
	mu     sync.Mutex
	timers []*manualTimer
}

func (l *timerLog) factory(d time.Duration, fn func()) timer {
	l.mu.Lock()
	defer l.mu.Unlock()
	t := &manualTimer{fn: fn}
	l.timers = append(l.timers, t)
	return t
}

func (l *timerLog) fireLast() {
	l.mu.Lock()
	var t *manualTimer
	if len(l.timers) > 0 {
		t = l.timers[len(l.timers)-1]
	}
	l.mu.Unlock()
	if t != nil && !t.stopped {
		t.fn()
	}
}

func (l *timerLog) fireAll() {
	l.mu.Lock()
	timers := append([]*manualTimer(nil), l.timers...)
	l.timers = nil
	l.mu.Unlock()
	for _, t := range timers {
		if !t.stopped {
			t.fn()
		}
	}
}

func (l *timerLog) pendingCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, t := range l.timers {
		if !t.stopped {
			n++
		}
	}
	return n
}

type fakeRenderer struct {
	mu    sync.Mutex
	calls []string
	frame platform.Rect
	shown bool
}

func (r *fakeRenderer) record(call string) {
	r.mu.Lock()
	r.calls = append(r.calls, call)
	r.mu.Unlock()
}

func (r *fakeRenderer) ShowPreview(app platform.AppID, _ []windows.Handle) {
	r.record("show:" + string(app))
	r.mu.Lock()
	r.shown = true
	r.mu.Unlock()
}

func (r *fakeRenderer) UpdatePreview(_ []windows.Handle) { r.record("update") }

func (r *fakeRenderer) HidePreview() {
	r.record("hide")
	r.mu.Lock()
	r.shown = false
	r.mu.Unlock()
}

func (r *fakeRenderer) ShowPeek(h windows.Handle, _ []byte) {
	r.record("peek:" + string(rune('0'+int(h.ID))))
}

func (r *fakeRenderer) HidePeek() { r.record("hidepeek") }

func (r *fakeRenderer) SeamlessExit() { r.record("seamless") }

func (r *fakeRenderer) Frame() (platform.Rect, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frame, r.shown
}

func (r *fakeRenderer) recorded() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func (r *fakeRenderer) count(call string) int {
	n := 0
	for _, c := range r.recorded() {
		if c == call {
			n++
		}
	}
	return n
}

type fakeCapturer struct{}

func (fakeCapturer) Capture(platform.WindowID) ([]byte, error) {
	return []byte{0x1}, nil
}

type fakeFocuser struct {
	mu    sync.Mutex
	calls []string
}

func (f *fakeFocuser) SetMinimized(id platform.WindowID, minimized bool) error {
	f.mu.Lock()
	f.calls = append(f.calls, "setmin")
	f.mu.Unlock()
	return nil
}

func (f *fakeFocuser) Raise(id platform.WindowID) error {
	f.mu.Lock()
	f.calls = append(f.calls, "raise")
	f.mu.Unlock()
	return nil
}

type fakeCloser struct {
	mu     sync.Mutex
	closed []platform.WindowID
}

func (f *fakeCloser) CloseWindow(h windows.Handle) {
	f.mu.Lock()
	f.closed = append(f.closed, h.ID)
	f.mu.Unlock()
}

type fakeLister struct {
	mu      sync.Mutex
	handles map[platform.AppID][]windows.Handle
}

func (l *fakeLister) List(app platform.AppID) ([]windows.Handle, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.handles[app], nil
}

func (l *fakeLister) set(app platform.AppID, handles []windows.Handle) {
	l.mu.Lock()
	l.handles[app] = handles
	l.mu.Unlock()
}

type fixture struct {
	coord    *Coordinator
	renderer *fakeRenderer
	focuser  *fakeFocuser
	closer   *fakeCloser
	lister   *fakeLister
	timers   *timerLog
	broker   *notify.Broker

	mu    sync.Mutex
	queue []func()
}

// drain runs queued background tasks synchronously until none remain.
func (f *fixture) drain() {
	for {
		f.mu.Lock()
		if len(f.queue) == 0 {
			f.mu.Unlock()
			return
		}
		fn := f.queue[0]
		f.queue = f.queue[1:]
		f.mu.Unlock()
		fn()
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		renderer: &fakeRenderer{frame: platform.Rect{X: 0, Y: 700, Width: 400, Height: 250}},
		focuser:  &fakeFocuser{},
		closer:   &fakeCloser{},
		timers:   &timerLog{},
		broker:   notify.NewBroker(nil),
		lister: &fakeLister{handles: map[platform.AppID][]windows.Handle{
			"appx": {{ID: 1, Owner: "appx"}, {ID: 2, Owner: "appx"}},
			"appy": {{ID: 3, Owner: "appy"}},
		}},
	}
	f.coord = New(Config{}, f.renderer, fakeCapturer{}, f.focuser, f.closer, f.lister, f.broker, nil)
	f.coord.newTimer = f.timers.factory
	f.coord.run = func(fn func()) {
		f.mu.Lock()
		f.queue = append(f.queue, fn)
		f.mu.Unlock()
	}
	return f
}

func (f *fixture) show(app platform.AppID) {
	f.coord.HoverEnter(app)
	f.drain()
}

func (f *fixture) peek(w platform.WindowID) {
	f.coord.ThumbnailHoverChanged(w, true)
	f.timers.fireLast()
	f.drain()
}

func TestHoverEnter_FromHiddenShowsPreview(t *testing.T) {
	f := newFixture(t)

	f.show("appx")

	if _, ok := f.coord.CurrentState().(Showing); !ok {
		t.Fatalf("expected Showing, got %T", f.coord.CurrentState())
	}
	if got := f.renderer.recorded(); len(got) != 1 || got[0] != "show:appx" {
		t.Fatalf("expected one show for appx, got %v", got)
	}
}

func TestHoverEnter_SameAppIsNoop(t *testing.T) {
	f := newFixture(t)

	f.show("appx")
	f.show("appx")

	if n := f.renderer.count("show:appx"); n != 1 {
		t.Fatalf("re-confirming the same app must not re-fetch, got %d shows", n)
	}
}

func TestHoverEnter_DifferentAppRebuildsContent(t *testing.T) {
	f := newFixture(t)

	f.show("appx")
	f.show("appy")

	st, ok := f.coord.CurrentState().(Showing)
	if !ok || st.App != "appy" {
		t.Fatalf("expected Showing(appy), got %#v", f.coord.CurrentState())
	}
	if f.renderer.count("show:appy") != 1 {
		t.Fatalf("expected rebuild for appy, calls %v", f.renderer.recorded())
	}
}

func TestRaceSupersede_OnlySecondAppIsRendered(t *testing.T) {
	f := newFixture(t)

	// Hover X, then hover Y before X's enumeration completes.
	f.coord.HoverEnter("appx")
	f.coord.HoverEnter("appy")
	f.drain()

	if f.renderer.count("show:appx") != 0 {
		t.Fatalf("stale appx content must never render, calls %v", f.renderer.recorded())
	}
	if f.renderer.count("show:appy") != 1 {
		t.Fatalf("expected exactly one show for appy, calls %v", f.renderer.recorded())
	}
}

func TestHoverExit_HidesAfterGraceUnlessPointerInPanel(t *testing.T) {
	f := newFixture(t)
	inPanel := false
	f.coord.pointerInPanel = func() bool { return inPanel }

	f.show("appx")
	f.coord.HoverExit()

	if _, ok := f.coord.CurrentState().(Showing); !ok {
		t.Fatalf("hide must wait for the grace delay")
	}

	inPanel = true
	f.timers.fireLast()
	if _, ok := f.coord.CurrentState().(Showing); !ok {
		t.Fatalf("pointer inside panel must veto the hide")
	}

	inPanel = false
	f.coord.HoverExit()
	f.timers.fireLast()
	if _, ok := f.coord.CurrentState().(Hidden); !ok {
		t.Fatalf("expected Hidden after confirmed exit, got %T", f.coord.CurrentState())
	}
}

func TestHoverEnter_CancelsPendingExit(t *testing.T) {
	f := newFixture(t)

	f.show("appx")
	f.coord.HoverExit()
	f.coord.HoverEnter("appx")
	f.timers.fireAll()
	f.drain()

	if _, ok := f.coord.CurrentState().(Showing); !ok {
		t.Fatalf("re-enter must cancel the pending hide, got %T", f.coord.CurrentState())
	}
}

func TestPeek_OpensAfterDebounceWithCapturedImage(t *testing.T) {
	f := newFixture(t)

	f.show("appx")
	f.coord.ThumbnailHoverChanged(1, true)

	if _, ok := f.coord.CurrentState().(Showing); !ok {
		t.Fatalf("peek must wait for its debounce")
	}

	f.timers.fireLast()
	st, ok := f.coord.CurrentState().(Peeking)
	if !ok || st.Window != 1 {
		t.Fatalf("expected Peeking(1), got %#v", f.coord.CurrentState())
	}

	f.drain()
	if f.renderer.count("peek:1") != 1 {
		t.Fatalf("expected peek render for window 1, calls %v", f.renderer.recorded())
	}
}

func TestPeek_ExitSchedulesGracefulCloseBackToShowing(t *testing.T) {
	f := newFixture(t)

	f.show("appx")
	f.peek(1)
	f.coord.ThumbnailHoverChanged(1, false)

	if _, ok := f.coord.CurrentState().(Peeking); !ok {
		t.Fatalf("peek close must be delayed")
	}

	f.timers.fireLast()
	st, ok := f.coord.CurrentState().(Showing)
	if !ok || st.App != "appx" {
		t.Fatalf("exiting a peek returns to Showing, got %#v", f.coord.CurrentState())
	}
	if f.renderer.count("hidepeek") != 1 {
		t.Fatalf("expected one hidepeek, calls %v", f.renderer.recorded())
	}
}

func TestPeek_FastRehoverOntoOtherThumbnailCancelsClose(t *testing.T) {
	f := newFixture(t)

	f.show("appx")
	f.peek(1)
	f.coord.ThumbnailHoverChanged(1, false)
	f.coord.ThumbnailHoverChanged(2, true)
	f.timers.fireAll()
	f.drain()

	st, ok := f.coord.CurrentState().(Peeking)
	if !ok || st.Window != 2 {
		t.Fatalf("expected the peek to move to window 2, got %#v", f.coord.CurrentState())
	}
}

func TestPeek_ReenterPeekedWindowCancelsStaleDebounce(t *testing.T) {
	f := newFixture(t)

	f.show("appx")
	f.peek(1)
	f.coord.ThumbnailHoverChanged(2, true)
	f.coord.ThumbnailHoverChanged(1, true)

	// The debounce armed for window 2 is stale once the pointer is back
	// on window 1; firing every surviving timer must not move the peek.
	f.timers.fireAll()
	f.drain()

	st, ok := f.coord.CurrentState().(Peeking)
	if !ok || st.Window != 1 {
		t.Fatalf("expected the peek to stay on window 1, got %#v", f.coord.CurrentState())
	}
}

func TestPeekClick_SeamlessExitFiredExactlyOnce(t *testing.T) {
	f := newFixture(t)

	f.show("appx")
	f.peek(1)
	f.coord.ThumbnailHoverChanged(1, false) // pending close
	f.coord.ThumbnailClicked(1)
	f.timers.fireAll()
	f.drain()

	if n := f.renderer.count("seamless"); n != 1 {
		t.Fatalf("seamless exit must fire exactly once, got %d", n)
	}
	st, ok := f.coord.CurrentState().(Showing)
	if !ok || st.App != "appx" {
		t.Fatalf("expected Showing(appx) after peek click, got %#v", f.coord.CurrentState())
	}
	// The pending close was cancelled, so no hidepeek may follow.
	if f.renderer.count("hidepeek") != 0 {
		t.Fatalf("pending peek close must be cancelled, calls %v", f.renderer.recorded())
	}

	f.focuser.mu.Lock()
	focusCalls := len(f.focuser.calls)
	f.focuser.mu.Unlock()
	if focusCalls != 2 {
		t.Fatalf("expected the real window to be unminimized and raised, got %v", f.focuser.calls)
	}
}

func TestForceHide_ReachesHiddenWithNoSurvivingTimers(t *testing.T) {
	f := newFixture(t)

	f.show("appx")
	f.coord.ThumbnailHoverChanged(1, true) // pending peek
	f.coord.HoverExit()                    // pending hide
	f.coord.ForceHide()

	if _, ok := f.coord.CurrentState().(Hidden); !ok {
		t.Fatalf("forced hide must reach Hidden immediately, got %T", f.coord.CurrentState())
	}
	if n := f.timers.pendingCount(); n != 0 {
		t.Fatalf("no pending timers may survive a forced hide, got %d", n)
	}

	// Firing leftover references must be harmless.
	f.timers.fireAll()
	f.drain()
	if _, ok := f.coord.CurrentState().(Hidden); !ok {
		t.Fatalf("state moved after forced hide")
	}
}

func TestCloseClicked_ClosesWindowAndRefreshesContent(t *testing.T) {
	f := newFixture(t)

	f.show("appx")
	f.lister.set("appx", []windows.Handle{{ID: 2, Owner: "appx"}})
	f.coord.CloseClicked(1)
	f.drain()

	f.closer.mu.Lock()
	closed := append([]platform.WindowID(nil), f.closer.closed...)
	f.closer.mu.Unlock()
	if len(closed) != 1 || closed[0] != 1 {
		t.Fatalf("expected window 1 closed, got %v", closed)
	}
	if f.renderer.count("update") != 1 {
		t.Fatalf("expected content refresh after close, calls %v", f.renderer.recorded())
	}
}

func TestWindowClosed_LastWindowHidesPreview(t *testing.T) {
	f := newFixture(t)

	f.show("appy")
	f.lister.set("appy", nil)
	f.broker.PublishWindowClosed(notify.WindowClosed{Window: 3})
	f.drain()

	if _, ok := f.coord.CurrentState().(Hidden); !ok {
		t.Fatalf("empty window list must hide the preview, got %T", f.coord.CurrentState())
	}
}

func TestDockClick_RefreshesOpenPreviewOptimistically(t *testing.T) {
	f := newFixture(t)

	f.show("appx")
	f.broker.PublishDockClick(notify.DockClick{App: "appx", Intent: notify.IntentToggle})
	f.drain()

	if f.renderer.count("update") != 1 {
		t.Fatalf("dock click on the shown app must refresh content, calls %v", f.renderer.recorded())
	}

	// A click for another app leaves the panel alone.
	f.broker.PublishDockClick(notify.DockClick{App: "appy", Intent: notify.IntentToggle})
	f.drain()
	if f.renderer.count("update") != 1 {
		t.Fatalf("unrelated dock click must not refresh, calls %v", f.renderer.recorded())
	}
}
