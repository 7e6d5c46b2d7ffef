package commands

import (
	"fmt"

	"git.home.luguber.info/inful/inkframe/internal/config"
)

// InitCmd implements the 'init' command.
type InitCmd struct {
	Force bool   `help:"Overwrite existing configuration file"`
	Path  string `arg:"" optional:"" help:"Where to write the file; defaults to --config or ./inkframe.yaml"`
}

func (i *InitCmd) Run(_ *Global, root *CLI) error {
	path := i.Path
	if path == "" {
		path = root.Config
	}
	if path == "" {
		path = "inkframe.yaml"
	}
	fmt.Fprintf(stdout, "Writing configuration to %s\n", path)
	if err := config.Init(path, i.Force); err != nil {
		return err
	}
	fmt.Fprintln(stdout, "initialized successfully")
	return nil
}
