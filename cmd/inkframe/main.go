package main

import (
	"log/slog"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/inkframe/cmd/inkframe/commands"
	ferrors "git.home.luguber.info/inful/inkframe/internal/foundation/errors"
	"git.home.luguber.info/inful/inkframe/internal/version"
)

func main() {
	var cli commands.CLI
	global := &commands.Global{Logger: slog.Default()}
	parser := kong.Parse(&cli,
		kong.Bind(global),
		kong.Name("inkframe"),
		kong.Description("Battery-powered e-paper picture frame."),
		kong.UsageOnError(),
		kong.Vars{"version": version.String()},
	)

	if err := parser.Run(&cli); err != nil {
		ferrors.NewCLIErrorAdapter(cli.Verbose, global.Logger).HandleError(err)
	}
}
