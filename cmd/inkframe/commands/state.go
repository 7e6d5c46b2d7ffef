package commands

import (
	"encoding/json"
	"fmt"

	"git.home.luguber.info/inful/inkframe/internal/durable"
)

// StateCmd groups the durable state subcommands.
type StateCmd struct {
	Show  StateShowCmd  `cmd:"" default:"1" help:"Print the retained state and the wake reason it implies"`
	Reset StateResetCmd `cmd:"" help:"Discard the retained state, as after a power loss"`
}

type StateShowCmd struct{}

type stateView struct {
	durable.State
	WakeReason durable.WakeReason `json:"wake_reason"`
	Path       string             `json:"path"`
}

func (s *StateShowCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(g, root)
	if err != nil {
		return err
	}
	store := durable.NewStore(cfg.Storage.StateFile, cfg.Storage.BootIDFile, g.Logger)
	st, reason := store.Load()

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(stateView{State: st, WakeReason: reason, Path: cfg.Storage.StateFile})
}

type StateResetCmd struct{}

func (s *StateResetCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(g, root)
	if err != nil {
		return err
	}
	store := durable.NewStore(cfg.Storage.StateFile, cfg.Storage.BootIDFile, g.Logger)
	if err := store.Reset(); err != nil {
		return err
	}
	_, err = fmt.Fprintf(stdout, "Durable state reset: %s\n", cfg.Storage.StateFile)
	return err
}
