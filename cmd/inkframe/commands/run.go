package commands

import (
	"context"
	"os/signal"
	"syscall"

	"git.home.luguber.info/inful/inkframe/internal/config"
	"git.home.luguber.info/inful/inkframe/internal/daemon"
	"git.home.luguber.info/inful/inkframe/internal/logfields"
)

// RunCmd implements the 'run' command.
type RunCmd struct {
	SleepMode string `name:"sleep-mode" help:"Override power.mode (timer or rtcwake)"`
	NoWatch   bool   `name:"no-watch" help:"Do not watch the settings file for external edits"`
}

func (r *RunCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(g, root)
	if err != nil {
		return err
	}
	if r.SleepMode != "" {
		if mode := config.NormalizeSleepMode(r.SleepMode); mode != "" {
			cfg.Power.Mode = mode
		} else {
			g.Logger.Warn("Unknown sleep mode ignored", logfields.Reason(r.SleepMode))
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	dev, err := openDevice(cfg, g.Logger)
	if err != nil {
		return err
	}

	var watcher *daemon.SettingsWatcher
	if !r.NoWatch {
		watcher, err = daemon.NewSettingsWatcher(dev.settings, dev.timer, g.Logger)
		if err != nil {
			g.Logger.Warn("Settings watcher unavailable", logfields.Error(err))
			watcher = nil
		}
	}

	return daemon.New(dev.orch, watcher, g.Logger, dev).Run(ctx)
}
