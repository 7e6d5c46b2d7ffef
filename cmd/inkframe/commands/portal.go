package commands

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
)

// PortalCmd implements the 'portal' command: config mode without the button.
type PortalCmd struct {
	Listen string `help:"Override portal.listen"`
}

func (p *PortalCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(g, root)
	if err != nil {
		return err
	}
	if p.Listen != "" {
		cfg.Portal.Listen = p.Listen
	}
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	dev, err := openDevice(cfg, g.Logger)
	if err != nil {
		return err
	}
	defer func() { _ = dev.Close() }()

	err = dev.portal.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
