package orchestrator

import (
	"context"

	"git.home.luguber.info/inful/inkframe/internal/logfields"
)

// Run executes cycles until ctx ends or the process is replaced. Each
// outcome is carried out through the power controller: sleep and loop, or
// restart. A successful restart does not return.
func (o *Orchestrator) Run(ctx context.Context) error {
	for {
		out := o.RunCycle(ctx)
		if err := ctx.Err(); err != nil {
			return err
		}
		switch out.Action {
		case ActionConfig:
			if err := o.runConfigMode(ctx); err != nil {
				return err
			}
			return o.deps.Restarter.Restart(ctx)
		case ActionRestart:
			return o.deps.Restarter.Restart(ctx)
		default:
			wake, err := o.deps.Sleeper.Sleep(ctx, out.Sleep())
			if err != nil {
				return err
			}
			o.wakeReason = string(wake)
		}
	}
}

// runConfigMode serves the portal until a reboot is requested. The portal
// is started even without a network link so it stays reachable over a
// locally managed access point.
func (o *Orchestrator) runConfigMode(ctx context.Context) error {
	if o.deps.Portal == nil {
		o.logger.Warn("Config mode requested but no portal is configured")
		return nil
	}
	if err := o.deps.Link.Connect(ctx); err != nil {
		o.logger.Warn("Network connect failed; serving portal on local interfaces only", logfields.Error(err))
	}
	o.logger.Info("Config portal started")
	err := o.deps.Portal.Run(ctx)
	if derr := o.deps.Link.Disconnect(context.WithoutCancel(ctx)); derr != nil {
		o.logger.Warn("Network disconnect failed", logfields.Error(derr))
	}
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		o.logger.Error("Config portal failed", logfields.Error(err))
	}
	return nil
}
