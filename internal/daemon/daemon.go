// Package daemon hosts the long-running device process: the wake loop plus
// the background watchers that can cut a sleep short.
package daemon

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"git.home.luguber.info/inful/inkframe/internal/logfields"
)

// Runner is the wake loop.
type Runner interface {
	Run(ctx context.Context) error
}

// Daemon runs the wake loop with its watchers and owns their resources.
type Daemon struct {
	runner  Runner
	watcher *SettingsWatcher
	closers []io.Closer
	logger  *slog.Logger
}

// New builds a daemon. watcher may be nil. closers are closed in reverse
// order when Run returns.
func New(runner Runner, watcher *SettingsWatcher, logger *slog.Logger, closers ...io.Closer) *Daemon {
	if logger == nil {
		logger = slog.Default()
	}
	return &Daemon{runner: runner, watcher: watcher, closers: closers, logger: logger}
}

// Run blocks until the wake loop ends. Cancellation is a clean stop.
func (d *Daemon) Run(ctx context.Context) error {
	defer d.close()
	if d.watcher != nil {
		if err := d.watcher.Start(ctx); err != nil {
			d.logger.Warn("Settings watcher not started", logfields.Error(err))
		}
		defer func() {
			if err := d.watcher.Stop(); err != nil {
				d.logger.Warn("Settings watcher stop failed", logfields.Error(err))
			}
		}()
	}

	d.logger.Info("Device loop starting")
	err := d.runner.Run(ctx)
	if errors.Is(err, context.Canceled) {
		d.logger.Info("Device loop stopped")
		return nil
	}
	return err
}

func (d *Daemon) close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i].Close(); err != nil {
			d.logger.Warn("Close failed", logfields.Error(err))
		}
	}
}
