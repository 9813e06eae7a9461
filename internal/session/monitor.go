// Package session watches the desktop session for lock and unlock
// transitions so interception can be paused while the screen is locked.
package session

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/godbus/dbus/v5"
)

const (
	screensaverInterface = "org.freedesktop.ScreenSaver"
	activeChangedMember  = "ActiveChanged"
)

// Monitor delivers session lock state changes over D-Bus.
type Monitor struct {
	logger   *slog.Logger
	onLocked func(locked bool)
}

// NewMonitor creates a monitor. onLocked is called with true when the
// screen locks and false when it unlocks.
func NewMonitor(logger *slog.Logger, onLocked func(locked bool)) *Monitor {
	return &Monitor{logger: logger, onLocked: onLocked}
}

// Run subscribes to ScreenSaver ActiveChanged signals on the session bus
// and blocks until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) error {
	conn, err := dbus.SessionBus()
	if err != nil {
		return fmt.Errorf("failed to connect to session bus: %w", err)
	}
	defer conn.Close()

	if err := conn.AddMatchSignal(
		dbus.WithMatchInterface(screensaverInterface),
		dbus.WithMatchMember(activeChangedMember),
	); err != nil {
		return fmt.Errorf("failed to subscribe to screensaver signals: %w", err)
	}

	signals := make(chan *dbus.Signal, 16)
	conn.Signal(signals)
	m.logger.Info("session lock monitor started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case sig, ok := <-signals:
			if !ok {
				return nil
			}
			locked, ok := parseActiveChanged(sig)
			if !ok {
				continue
			}
			m.logger.Info("session lock state changed", "locked", locked)
			m.onLocked(locked)
		}
	}
}

func parseActiveChanged(sig *dbus.Signal) (bool, bool) {
	if sig == nil || sig.Name != screensaverInterface+"."+activeChangedMember {
		return false, false
	}
	if len(sig.Body) != 1 {
		return false, false
	}
	locked, ok := sig.Body[0].(bool)
	return locked, ok
}
