// Package persist schedules snapshot writes for a store. The store itself
// never saves on its own; this loop is the caller that does.
package persist

import (
	"context"
	"time"

	"memory-loop/internal/logs"
)

// Saver is the part of the store the autosaver needs.
type Saver interface {
	Save(path string) error
}

// Autosaver writes a snapshot every interval and once more on shutdown.
// Failed saves are logged and retried on the next tick.
type Autosaver struct {
	saver    Saver
	path     string
	interval time.Duration
	logger   *logs.Logger
}

func NewAutosaver(saver Saver, path string, interval time.Duration, logger *logs.Logger) *Autosaver {
	return &Autosaver{
		saver:    saver,
		path:     path,
		interval: interval,
		logger:   logger,
	}
}

// Start blocks until ctx is cancelled, then performs a final save and
// returns its error. An interval <= 0 disables periodic saves.
func (a *Autosaver) Start(ctx context.Context) error {
	var tick <-chan time.Time
	if a.interval > 0 {
		ticker := time.NewTicker(a.interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-tick:
			a.saveOnce()
		case <-ctx.Done():
			a.logger.Debug("autosave stopped, writing final snapshot", "path", a.path)
			return a.saver.Save(a.path)
		}
	}
}

func (a *Autosaver) saveOnce() {
	// The store logs and counts failures itself.
	if err := a.saver.Save(a.path); err != nil {
		a.logger.Warn("autosave will retry on next tick", "path", a.path, "interval", a.interval.String())
	}
}
