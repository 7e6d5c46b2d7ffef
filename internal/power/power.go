// Package power ends a cycle: it suspends until the next wake or restarts
// the process.
package power

import (
	"context"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/inkframe/internal/logfields"
)

// Wake says why a sleep ended.
type Wake string

const (
	WakeTimer Wake = "timer"
	WakeEarly Wake = "early"
)

// Sleeper blocks for roughly d and reports how the wait ended.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) (Wake, error)
}

// Restarter replaces the running process. It returns only on failure.
type Restarter interface {
	Restart(ctx context.Context) error
}

// fallback retries a failed sleep on a second sleeper.
type fallback struct {
	primary   Sleeper
	secondary Sleeper
	logger    *slog.Logger
}

// WithFallback uses secondary whenever primary fails.
func WithFallback(primary, secondary Sleeper, logger *slog.Logger) Sleeper {
	if logger == nil {
		logger = slog.Default()
	}
	return &fallback{primary: primary, secondary: secondary, logger: logger}
}

func (f *fallback) Sleep(ctx context.Context, d time.Duration) (Wake, error) {
	start := time.Now()
	wake, err := f.primary.Sleep(ctx, d)
	if err == nil || ctx.Err() != nil {
		return wake, err
	}
	remaining := d - time.Since(start)
	f.logger.Warn("Primary sleep failed, falling back",
		logfields.Error(err),
		slog.Duration("remaining", remaining))
	return f.secondary.Sleep(ctx, remaining)
}
