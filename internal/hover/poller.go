package hover

import (
	"context"
	"log/slog"
	"time"

	"dockpeek/internal/platform"
	"dockpeek/internal/watchdog"
)

const (
	// DefaultPollInterval samples the pointer ~30 times a second, fast
	// enough for stable hover detection without measurable load.
	DefaultPollInterval = 33 * time.Millisecond
	// DefaultSampleBudget bounds the handling of one sample. A sample
	// that cannot be processed in time is dropped, never queued.
	DefaultSampleBudget = 10 * time.Millisecond
)

// Source reads the current pointer position.
type Source func() (platform.Point, error)

// Poller drives the tracker from a pointer position source.
type Poller struct {
	source   Source
	tracker  *Tracker
	interval time.Duration
	budget   time.Duration
	logger   *slog.Logger
}

// NewPoller creates a poller.
func NewPoller(source Source, tracker *Tracker, interval time.Duration, logger *slog.Logger) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{
		source:   source,
		tracker:  tracker,
		interval: interval,
		budget:   DefaultSampleBudget,
		logger:   logger,
	}
}

// Run samples the pointer until the context is cancelled. Unchanged
// positions are skipped; each processed sample is watchdog-bounded so a
// stalled lookup can never back the sampling loop up.
func (p *Poller) Run(ctx context.Context) {
	defer func() {
		if err := recover(); err != nil {
			p.logger.Error("pointer poll loop panic recovered", "error", err)
		}
	}()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.logger.Info("pointer poll loop started", "interval", p.interval)

	var last platform.Point
	var havePos bool
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("pointer poll loop stopped")
			return
		case <-ticker.C:
			pos, err := p.source()
			if err != nil {
				continue
			}
			if havePos && pos == last {
				continue
			}
			last = pos
			havePos = true

			_, ok := watchdog.RunBounded(p.budget, func() struct{} {
				p.tracker.PointerMoved(pos)
				return struct{}{}
			})
			if !ok {
				p.logger.Debug("pointer sample dropped, budget exceeded")
			}
		}
	}
}
