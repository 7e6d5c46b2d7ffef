package orchestrator

import (
	"context"

	"git.home.luguber.info/inful/inkframe/internal/journal"
	"git.home.luguber.info/inful/inkframe/internal/logfields"
	"git.home.luguber.info/inful/inkframe/internal/report"
)

// publish sends the cycle report while the network is still up.
func (c *cycle) publish(ctx context.Context) {
	o := c.o
	r := report.Report{
		DeviceMAC:    c.mac,
		CycleID:      c.out.CycleID,
		BootCount:    c.out.State.BootCount,
		WakeReason:   c.out.WakeReason,
		Outcome:      string(c.out.Result),
		Reason:       c.out.Reason,
		Fingerprint:  c.out.State.CommittedFingerprint,
		SleepSeconds: c.out.SleepSeconds,
		ClockValid:   c.out.ClockValid,
		Timestamp:    o.deps.Clock.Now(),
	}
	if c.out.Battery.Measured {
		v := c.out.Battery.Volts
		r.BatteryVolts = &v
	}
	ctx, cancel := context.WithTimeout(ctx, o.opts.ReportTimeout)
	defer cancel()
	if err := o.deps.Reporter.Publish(ctx, r); err != nil {
		c.log.Warn("Cycle report not published", logfields.Error(err))
	}
}

// record writes the journal entry and metrics. Failures are logged only.
func (c *cycle) record(ctx context.Context) {
	o := c.o
	m := o.deps.Metrics
	m.IncCycleOutcome(string(c.out.Result))
	m.SetSleepSeconds(c.out.SleepSeconds)
	m.ObserveCycleDuration(c.out.Duration)
	if o.deps.MetricsSink != nil {
		if err := o.deps.MetricsSink.Write(); err != nil {
			c.log.Warn("Metrics not written", logfields.Error(err))
		}
	}

	if o.deps.Journal == nil {
		return
	}
	e := journal.Entry{
		CycleID:      c.out.CycleID,
		StartedAt:    o.deps.Clock.Now().Add(-c.out.Duration),
		Duration:     c.out.Duration,
		WakeReason:   c.out.WakeReason,
		BootCount:    c.out.State.BootCount,
		Outcome:      string(c.out.Result),
		Reason:       c.out.Reason,
		Fingerprint:  c.out.State.CommittedFingerprint,
		SleepSeconds: c.out.SleepSeconds,
		BatteryVolts: c.out.Battery.Volts,
		BatteryValid: c.out.Battery.Measured,
	}
	details := map[string]string{"action": string(c.out.Action)}
	if c.out.ImageName != "" {
		details["image_name"] = c.out.ImageName
	}
	if c.out.ServerDeviceID != "" {
		details["device_id"] = c.out.ServerDeviceID
	}
	if c.out.ScheduleUpdated {
		details["schedule_updated"] = "true"
	}
	e.Details = details
	if err := o.deps.Journal.Append(ctx, e); err != nil {
		c.log.Warn("Journal entry not written", logfields.Error(err))
		return
	}
	if _, err := o.deps.Journal.Prune(ctx, o.opts.JournalKeep); err != nil {
		c.log.Warn("Journal prune failed", logfields.Error(err))
	}
}
