package commands

import (
	"fmt"
	"time"

	"git.home.luguber.info/inful/inkframe/internal/clock"
	ferrors "git.home.luguber.info/inful/inkframe/internal/foundation/errors"
	"git.home.luguber.info/inful/inkframe/internal/schedule"
	"git.home.luguber.info/inful/inkframe/internal/settings"
)

// ScheduleCmd implements the 'schedule' command.
type ScheduleCmd struct {
	At string `help:"UTC instant to evaluate (RFC 3339); defaults to now"`
}

func (s *ScheduleCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(g, root)
	if err != nil {
		return err
	}
	store, err := settings.Open(cfg.Storage.SettingsFile, g.Logger)
	if err != nil {
		return err
	}

	c := clock.NewManual(time.Now())
	if s.At != "" {
		at, perr := time.Parse(time.RFC3339, s.At)
		if perr != nil {
			return ferrors.ValidationError("--at must be an RFC 3339 timestamp").
				WithCause(perr).
				WithContext("value", s.At).Build()
		}
		if err := c.Set(at); err != nil {
			return err
		}
	}
	return previewSchedule(store.Get(), c.Now())
}

func previewSchedule(sched settings.Schedule, now time.Time) error {
	valid := clock.IsValid(now)
	w := sched.Window()
	active := schedule.IsWithinActiveWindow(now, w.StartHour, w.EndHour, sched.TimezoneOffsetMinutes)
	sleep := schedule.CalculateSleepSeconds(sched.RefreshMinutes, w, now, valid)

	local := now.Add(time.Duration(sched.TimezoneOffsetMinutes) * time.Minute)
	fmt.Fprintf(stdout, "Schedule:     %s\n", sched)
	fmt.Fprintf(stdout, "Evaluated at: %s (local %s)\n", now.Format(time.RFC3339), local.Format("15:04:05"))
	fmt.Fprintf(stdout, "Clock valid:  %t\n", valid)
	fmt.Fprintf(stdout, "Active:       %t\n", !valid || active)
	fmt.Fprintf(stdout, "Sleep:        %ds (%s)\n", sleep, time.Duration(sleep)*time.Second)
	fmt.Fprintf(stdout, "Next wake:    %s\n", now.Add(time.Duration(sleep)*time.Second).Format(time.RFC3339))
	return nil
}
