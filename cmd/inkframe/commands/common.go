// Package commands implements the inkframe subcommands.
package commands

import (
	"io"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/inkframe/internal/config"
	ferrors "git.home.luguber.info/inful/inkframe/internal/foundation/errors"
)

// Global is shared by every subcommand.
type Global struct {
	Logger *slog.Logger
}

// CLI definition & global flags.
type CLI struct {
	Config   string           `short:"c" help:"Configuration file path; empty uses built-in defaults" env:"INKFRAME_CONFIG" type:"path"`
	Verbose  bool             `short:"v" help:"Enable verbose logging"`
	Simulate bool             `help:"Use in-memory peripherals instead of the attached hardware"`
	Version  kong.VersionFlag `name:"version" help:"Show version and exit"`

	Run      RunCmd      `cmd:"" help:"Run the duty cycle until stopped"`
	Cycle    CycleCmd    `cmd:"" help:"Run a single cycle and print its outcome"`
	Portal   PortalCmd   `cmd:"" help:"Serve the configuration portal until a reboot is requested"`
	State    StateCmd    `cmd:"" help:"Inspect or reset the retained cycle state"`
	Journal  JournalCmd  `cmd:"" help:"List recent cycles from the journal"`
	Schedule ScheduleCmd `cmd:"" help:"Preview the sleep decision for a point in time"`
	Init     InitCmd     `cmd:"" help:"Write a default configuration file"`
}

// stdout receives command output.
var stdout io.Writer = os.Stdout

// AfterApply installs a provisional logger; loadConfig replaces it once the
// configured level and format are known.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply(g *Global) error {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	if g != nil {
		g.Logger = logger
	}
	return nil
}

// loadConfig reads the configuration and reinstalls the logger from it.
func loadConfig(g *Global, root *CLI) (*config.Config, error) {
	var cfg *config.Config
	if root.Config == "" {
		cfg = config.Default()
	} else {
		loaded, err := config.Load(root.Config)
		if err != nil {
			return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "load configuration").
				WithContext("path", root.Config).Build()
		}
		cfg = loaded
	}
	if root.Simulate {
		cfg.Hardware.Simulate = true
	}

	g.Logger = newLogger(cfg.Logging, root.Verbose)
	slog.SetDefault(g.Logger)
	return cfg, nil
}

func newLogger(lc config.LoggingConfig, verbose bool) *slog.Logger {
	level := lc.Level.SlogLevel()
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if lc.Format == config.LogFormatJSON {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
