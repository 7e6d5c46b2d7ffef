package power

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"

	"git.home.luguber.info/inful/inkframe/internal/logfields"
)

// TimerSleeper waits in-process. The wake is a gocron one-time job; WakeEarly
// cuts the wait short.
type TimerSleeper struct {
	scheduler gocron.Scheduler
	early     chan struct{}
	logger    *slog.Logger
}

func NewTimerSleeper(logger *slog.Logger) (*TimerSleeper, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}
	s.Start()
	return &TimerSleeper{scheduler: s, early: make(chan struct{}, 1), logger: logger}, nil
}

// WakeEarly ends the current or next sleep. Extra requests coalesce.
func (s *TimerSleeper) WakeEarly() {
	select {
	case s.early <- struct{}{}:
	default:
	}
}

func (s *TimerSleeper) Sleep(ctx context.Context, d time.Duration) (Wake, error) {
	// Requests raised while awake are stale.
	select {
	case <-s.early:
	default:
	}
	if d <= 0 {
		return WakeTimer, nil
	}

	fired := make(chan struct{})
	job, err := s.scheduler.NewJob(
		gocron.OneTimeJob(gocron.OneTimeJobStartDateTime(time.Now().Add(d))),
		gocron.NewTask(func() { close(fired) }),
		gocron.WithName("wake"),
	)
	if err != nil {
		return "", fmt.Errorf("failed to schedule wake job: %w", err)
	}
	defer func() { _ = s.scheduler.RemoveJob(job.ID()) }()

	s.logger.Debug("Sleeping", logfields.SleepSeconds(uint32(d/time.Second)), slog.Duration("duration", d))
	select {
	case <-fired:
		return WakeTimer, nil
	case <-s.early:
		return WakeEarly, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Close stops the scheduler.
func (s *TimerSleeper) Close() error {
	return s.scheduler.Shutdown()
}
