// Package notify is the in-process pub/sub used between the input side and
// the preview UI. Delivery is synchronous and in subscription order with
// no guarantees beyond that; subscribers must not block.
package notify

import (
	"log/slog"
	"sync"

	"dockpeek/internal/platform"
)

// Intent is the classified meaning of a dock click.
type Intent string

const (
	// IntentActivate wakes an application that is hidden or not frontmost.
	IntentActivate Intent = "activate"
	// IntentToggle flips window visibility of the frontmost application.
	IntentToggle Intent = "toggle"
)

// DockClick is broadcast before the visibility operation starts so an open
// preview can animate its state ahead of the slower real operation.
type DockClick struct {
	App    platform.AppID
	Intent Intent
}

// WindowClosed is broadcast when a window is closed through the preview.
type WindowClosed struct {
	Window platform.WindowID
}

// Broker fans events out to subscribers. Safe for concurrent use.
type Broker struct {
	logger *slog.Logger

	mu          sync.RWMutex
	dockClick   []func(DockClick)
	windowClose []func(WindowClosed)
}

// NewBroker creates a broker.
func NewBroker(logger *slog.Logger) *Broker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Broker{logger: logger}
}

// SubscribeDockClick registers a handler for dock click notifications.
func (b *Broker) SubscribeDockClick(fn func(DockClick)) {
	b.mu.Lock()
	b.dockClick = append(b.dockClick, fn)
	b.mu.Unlock()
}

// SubscribeWindowClosed registers a handler for window close notifications.
func (b *Broker) SubscribeWindowClosed(fn func(WindowClosed)) {
	b.mu.Lock()
	b.windowClose = append(b.windowClose, fn)
	b.mu.Unlock()
}

// PublishDockClick delivers ev to all subscribers, in order, on the
// caller's goroutine.
func (b *Broker) PublishDockClick(ev DockClick) {
	b.mu.RLock()
	subs := b.dockClick
	b.mu.RUnlock()
	for _, fn := range subs {
		b.deliver(func() { fn(ev) })
	}
}

// PublishWindowClosed delivers ev to all subscribers, in order, on the
// caller's goroutine.
func (b *Broker) PublishWindowClosed(ev WindowClosed) {
	b.mu.RLock()
	subs := b.windowClose
	b.mu.RUnlock()
	for _, fn := range subs {
		b.deliver(func() { fn(ev) })
	}
}

// deliver invokes one subscriber, containing panics so a broken subscriber
// cannot take down the publisher.
func (b *Broker) deliver(fn func()) {
	defer func() {
		if err := recover(); err != nil {
			b.logger.Error("notification subscriber panic recovered", "error", err)
		}
	}()
	fn()
}
