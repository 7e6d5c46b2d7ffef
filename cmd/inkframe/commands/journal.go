package commands

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	ferrors "git.home.luguber.info/inful/inkframe/internal/foundation/errors"
	"git.home.luguber.info/inful/inkframe/internal/journal"
)

// JournalCmd implements the 'journal' command.
type JournalCmd struct {
	Limit int           `short:"n" help:"Number of cycles to list" default:"20"`
	Since time.Duration `help:"Only list cycles started within this duration; overrides --limit"`
}

func (j *JournalCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(g, root)
	if err != nil {
		return err
	}
	if cfg.Storage.JournalFile == "" {
		return ferrors.ConfigError("journal disabled: storage.journal_file is empty").Build()
	}
	store, err := journal.NewSQLiteStore(cfg.Storage.JournalFile)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	var entries []journal.Entry
	if j.Since > 0 {
		now := time.Now()
		entries, err = store.Range(ctx, now.Add(-j.Since), now)
	} else {
		entries, err = store.Recent(ctx, j.Limit)
	}
	if err != nil {
		return err
	}
	return writeEntries(entries)
}

func writeEntries(entries []journal.Entry) error {
	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STARTED\tWAKE\tBOOT\tOUTCOME\tSLEEP\tBATTERY\tFINGERPRINT\tREASON")
	for _, e := range entries {
		volts := "-"
		if e.BatteryValid {
			volts = fmt.Sprintf("%.2fV", e.BatteryVolts)
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%ds\t%s\t%s\t%s\n",
			e.StartedAt.Local().Format(time.DateTime),
			e.WakeReason, e.BootCount, e.Outcome, e.SleepSeconds, volts, e.Fingerprint, e.Reason)
	}
	return tw.Flush()
}
