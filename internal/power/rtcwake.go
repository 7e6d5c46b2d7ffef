package power

import (
	"context"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"time"

	ferrors "git.home.luguber.info/inful/inkframe/internal/foundation/errors"
	"git.home.luguber.info/inful/inkframe/internal/logfields"
)

// RTCWakeSleeper suspends the whole system with rtcwake(8) and returns after
// the RTC alarm resumes it.
type RTCWakeSleeper struct {
	Command string
	Mode    string
	logger  *slog.Logger
	run     func(ctx context.Context, name string, args ...string) ([]byte, error)
}

func NewRTCWakeSleeper(logger *slog.Logger) *RTCWakeSleeper {
	if logger == nil {
		logger = slog.Default()
	}
	return &RTCWakeSleeper{Command: "rtcwake", Mode: "mem", logger: logger, run: runCommand}
}

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

func (s *RTCWakeSleeper) Sleep(ctx context.Context, d time.Duration) (Wake, error) {
	seconds := int64(d / time.Second)
	if seconds < 1 {
		return WakeTimer, nil
	}
	args := []string{"-m", s.Mode, "-s", strconv.FormatInt(seconds, 10)}
	s.logger.Info("Suspending until RTC alarm", logfields.SleepSeconds(uint32(seconds)), slog.String("mode", s.Mode))
	out, err := s.run(ctx, s.Command, args...)
	if err != nil {
		return "", ferrors.WrapError(err, ferrors.CategoryHardware, "rtcwake failed").
			WithContext("command", s.Command).
			WithContext("output", strings.TrimSpace(string(out))).
			Build()
	}
	return WakeTimer, nil
}
