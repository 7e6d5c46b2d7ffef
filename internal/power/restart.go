package power

import (
	"context"
	"log/slog"
	"os"

	"golang.org/x/sys/unix"

	ferrors "git.home.luguber.info/inful/inkframe/internal/foundation/errors"
)

// ExecRestarter re-executes the current binary with the same arguments, so
// the device comes back through a fresh process with the same durable state.
type ExecRestarter struct {
	Args   []string
	logger *slog.Logger
	exec   func(argv0 string, argv []string, envv []string) error
}

func NewExecRestarter(logger *slog.Logger) *ExecRestarter {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExecRestarter{Args: os.Args, logger: logger, exec: unix.Exec}
}

func (r *ExecRestarter) Restart(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	exe, err := os.Executable()
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryRuntime, "resolve executable").Fatal().Build()
	}
	r.logger.Warn("Restarting", slog.String("executable", exe))
	if err := r.exec(exe, r.Args, os.Environ()); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryRuntime, "exec failed").
			Fatal().
			WithContext("executable", exe).
			Build()
	}
	return nil
}
