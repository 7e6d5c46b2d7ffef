package orchestrator

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/inkframe/internal/battery"
	"git.home.luguber.info/inful/inkframe/internal/button"
	"git.home.luguber.info/inful/inkframe/internal/changecache"
	"git.home.luguber.info/inful/inkframe/internal/clock"
	"git.home.luguber.info/inful/inkframe/internal/durable"
	"git.home.luguber.info/inful/inkframe/internal/logfields"
	"git.home.luguber.info/inful/inkframe/internal/metrics"
	"git.home.luguber.info/inful/inkframe/internal/schedule"
	"git.home.luguber.info/inful/inkframe/internal/transport"
)

// cycle is the scratch state of one RunCycle. It is dropped when the cycle
// ends, like RAM across a deep sleep.
type cycle struct {
	o         *Orchestrator
	log       *slog.Logger
	out       Outcome
	tracker   *changecache.Tracker
	mac       string
	headers   http.Header
	connected bool
	started   time.Time
}

// RunCycle performs one wake cycle and returns what the platform must do
// next. The durable state already reflects the outcome when it returns.
func (o *Orchestrator) RunCycle(ctx context.Context) Outcome {
	id := uuid.NewString()
	c := &cycle{
		o:       o,
		log:     o.logger.With(logfields.CycleID(id)),
		out:     Outcome{CycleID: id},
		tracker: changecache.NewTracker(),
		headers: http.Header{},
		started: time.Now(),
	}

	c.wake()
	if c.arbitrate(ctx) {
		return c.finish(ctx, ActionConfig, ResultConfigMode, "config button held")
	}
	c.readBattery()
	if err := c.connect(ctx); err != nil {
		return c.finish(ctx, ActionSleep, ResultOffline, err.Error())
	}
	c.syncConfig(ctx)
	if !c.evaluateWindow() {
		return c.finish(ctx, ActionSleep, ResultQuietHours, "outside active window")
	}
	if !c.checkChange(ctx) {
		return c.finish(ctx, ActionSleep, ResultUnchanged, "fingerprint matches committed image")
	}
	action, result, reason := c.fetchAndRender(ctx)
	return c.finish(ctx, action, result, reason)
}

// stage logs the start of a step and returns the function that closes it.
func (c *cycle) stage(name string) func(metrics.ResultLabel) {
	start := time.Now()
	c.log.Debug("Stage started", logfields.Stage(name))
	return func(res metrics.ResultLabel) {
		d := time.Since(start)
		c.o.deps.Metrics.ObserveStageDuration(name, d)
		c.o.deps.Metrics.IncStageResult(name, res)
		c.log.Info("Stage finished",
			logfields.Stage(name),
			slog.String("result", string(res)),
			logfields.DurationMS(float64(d.Microseconds())/1000))
	}
}

func (c *cycle) wake() {
	o := c.o
	if !o.loaded {
		_, reason := o.deps.Durable.Load()
		o.wakeReason = string(reason)
		o.loaded = true
	}
	st, err := o.deps.Durable.Apply(durable.Wake())
	if err != nil {
		c.log.Error("Failed to persist wake", logfields.Error(err))
	}
	c.out.State = st
	c.out.WakeReason = o.wakeReason
	o.deps.Metrics.SetBootCount(st.BootCount)
	c.log.Info("Woke",
		logfields.BootCount(st.BootCount),
		logfields.WakeReason(o.wakeReason),
		logfields.Fingerprint(st.CommittedFingerprint))
}

// arbitrate reports whether the config button is held for the full hold
// duration.
func (c *cycle) arbitrate(ctx context.Context) bool {
	if c.o.deps.Button == nil {
		return false
	}
	done := c.stage(StageBootArbitration)
	held, err := button.HeldFor(ctx, c.o.deps.Button, c.o.opts.HoldDuration, c.o.opts.SampleInterval)
	if err != nil {
		c.log.Warn("Config button unreadable; continuing normal cycle", logfields.Error(err))
		done(metrics.ResultFailed)
		return false
	}
	done(metrics.ResultSuccess)
	if held {
		c.log.Info("Config button held, entering config mode")
	}
	return held
}

func (c *cycle) readBattery() {
	done := c.stage(StageReadBattery)
	var r battery.Reading
	if c.o.deps.Battery != nil {
		r = battery.Measure(c.o.deps.Battery, c.log)
	}
	c.out.Battery = r
	c.o.deps.Metrics.SetBatteryVolts(r.Volts, r.Measured)
	c.log.Info("Battery", logfields.BatteryVolts(r.Volts, r.Measured))
	if r.Measured {
		done(metrics.ResultSuccess)
	} else {
		done(metrics.ResultSkipped)
	}
}

func (c *cycle) connect(ctx context.Context) error {
	done := c.stage(StageConnectNetwork)
	mac, err := c.o.deps.Link.HardwareAddr()
	if err != nil {
		c.log.Warn("Device MAC unavailable", logfields.Error(err))
	}
	c.mac = mac
	c.headers = transport.IdentityHeaders(mac, c.out.Battery.Volts, c.out.Battery.Measured)

	if err := c.o.deps.Link.Connect(ctx); err != nil {
		c.log.Warn("Network connect failed; keeping current image", logfields.Error(err))
		if derr := c.o.deps.Link.Disconnect(ctx); derr != nil {
			c.log.Debug("Disconnect after failed connect", logfields.Error(derr))
		}
		done(metrics.ResultFailed)
		return err
	}
	c.connected = true
	c.log.Info("Network connected", logfields.MAC(mac))
	done(metrics.ResultSuccess)
	return nil
}

// syncConfig never fails the cycle.
func (c *cycle) syncConfig(ctx context.Context) {
	done := c.stage(StageSyncConfig)
	res, err := c.o.deps.Syncer.Sync(ctx, c.headers)
	if err != nil {
		c.log.Warn("Remote config sync failed; using stored schedule", logfields.Error(err))
		done(metrics.ResultFailed)
		return
	}
	c.out.ScheduleUpdated = res.Updated
	done(metrics.ResultSuccess)
}

// evaluateWindow reports whether image work may happen now. An invalid clock
// never blocks work.
func (c *cycle) evaluateWindow() bool {
	done := c.stage(StageEvaluateWindow)
	now := c.o.deps.Clock.Now()
	valid := clock.IsValid(now)
	c.out.ClockValid = valid
	sched := c.o.deps.Settings.Get()
	if !valid {
		c.log.Info("Clock not synced; ignoring active window")
		done(metrics.ResultSkipped)
		return true
	}
	inside := schedule.IsWithinActiveWindow(now, sched.ActiveStartHour, sched.ActiveEndHour, sched.TimezoneOffsetMinutes)
	c.log.Info("Active window evaluated",
		slog.Bool("inside", inside),
		slog.Int("start_hour", sched.ActiveStartHour),
		slog.Int("end_hour", sched.ActiveEndHour),
		slog.Int("local_seconds", schedule.LocalSecondsOfDay(now, sched.TimezoneOffsetMinutes)))
	done(metrics.ResultSuccess)
	return inside
}

// checkChange reports whether a fetch is warranted.
func (c *cycle) checkChange(ctx context.Context) bool {
	done := c.stage(StageCheckChange)
	url := c.o.deps.Settings.Get().HashURL()
	res := c.o.deps.Checker.Check(ctx, url, c.headers, c.out.State.CommittedFingerprint, c.tracker)
	attrs := []any{
		slog.Bool("changed", res.Changed),
		logfields.Reason(string(res.Reason)),
		logfields.Fingerprint(res.Fingerprint),
	}
	if res.Err != nil {
		attrs = append(attrs, logfields.Error(res.Err))
		done(metrics.ResultFailed)
	} else {
		done(metrics.ResultSuccess)
	}
	c.log.Info("Fingerprint checked", attrs...)
	return res.Changed
}

func (c *cycle) fetchAndRender(ctx context.Context) (Action, Result, string) {
	done := c.stage(StageFetchRender)
	deps := c.o.deps

	if err := deps.Panel.Initialize(ctx); err != nil {
		c.log.Error("Display initialization failed", logfields.Error(err))
		c.tracker.Discard()
		done(metrics.ResultFailed)
		return ActionRestart, ResultDisplayFault, err.Error()
	}

	url := deps.Settings.Get().ImageURL()
	resp, err := deps.Fetcher.Download(ctx, url, c.headers, c.o.opts.MaxImageBytes)
	if err != nil {
		c.log.Warn("Image fetch failed; keeping current image", logfields.URL(url), logfields.Error(err))
		c.tracker.Discard()
		c.sleepPanel()
		done(metrics.ResultFailed)
		return ActionSleep, ResultFetchFailed, err.Error()
	}
	c.out.Bytes = int64(len(resp.Body))
	c.out.ImageName = resp.Header.Get(transport.HeaderImageName)
	c.out.ServerDeviceID = resp.Header.Get(transport.HeaderDeviceID)
	deps.Metrics.ObserveDownloadBytes(c.out.Bytes)
	c.log.Info("Image downloaded",
		logfields.URL(url),
		logfields.Bytes(c.out.Bytes),
		slog.String("image_name", c.out.ImageName),
		slog.String("device_id", c.out.ServerDeviceID))

	if err := deps.Panel.LoadImage(resp.Body); err != nil {
		c.log.Error("Image rejected by display", logfields.Error(err))
		c.tracker.Discard()
		c.sleepPanel()
		done(metrics.ResultFailed)
		return ActionSleep, ResultRenderFailed, err.Error()
	}
	if err := deps.Panel.Refresh(ctx); err != nil {
		c.log.Error("Display refresh failed", logfields.Error(err))
		c.tracker.Discard()
		c.sleepPanel()
		done(metrics.ResultFailed)
		return ActionSleep, ResultRenderFailed, err.Error()
	}

	if fp, ok := c.tracker.Resolve(resp.Header.Get(transport.HeaderImageHash)); ok {
		st, err := deps.Durable.Apply(durable.Commit(fp))
		if err != nil {
			c.log.Error("Failed to commit fingerprint", logfields.Fingerprint(fp), logfields.Error(err))
		} else {
			c.out.State = st
			c.log.Info("Fingerprint committed", logfields.Fingerprint(fp))
		}
	}
	c.sleepPanel()
	done(metrics.ResultSuccess)
	return ActionSleep, ResultRendered, ""
}

// sleepPanel powers the panel down. Failure is logged only.
func (c *cycle) sleepPanel() {
	if err := c.o.deps.Panel.Sleep(); err != nil {
		c.log.Warn("Display sleep failed", logfields.Error(err))
	}
}

// finish settles the outcome, releases the network, persists the exit and
// records the cycle.
func (c *cycle) finish(ctx context.Context, action Action, result Result, reason string) Outcome {
	o := c.o
	c.out.Action = action
	c.out.Result = result
	c.out.Reason = reason

	if c.tracker.Phase() == changecache.PhasePending {
		c.tracker.Discard()
	}

	now := o.deps.Clock.Now()
	c.out.ClockValid = clock.IsValid(now)
	if action == ActionSleep {
		done := c.stage(StageSleep)
		sched := o.deps.Settings.Get()
		c.out.SleepSeconds = schedule.CalculateSleepSeconds(sched.RefreshMinutes, sched.Window(), now, c.out.ClockValid)
		done(metrics.ResultSuccess)
	}

	if c.connected {
		c.publish(ctx)
		c.disconnect(ctx)
	}

	if action == ActionRestart {
		c.log.Warn("Restarting after delay", slog.Duration("delay", o.opts.RestartDelay))
		if err := o.wait(ctx, o.opts.RestartDelay); err != nil {
			c.log.Debug("Restart delay interrupted", logfields.Error(err))
		}
	}

	st, err := o.deps.Durable.Apply(durable.Halt(exitFor(action)))
	if err != nil {
		c.log.Error("Failed to persist cycle exit", logfields.Error(err))
	} else {
		c.out.State = st
	}
	c.out.Duration = time.Since(c.started)
	c.record(ctx)

	c.log.Info("Cycle complete",
		slog.String("action", string(action)),
		slog.String("result", string(result)),
		logfields.Reason(reason),
		logfields.SleepSeconds(c.out.SleepSeconds),
		logfields.Fingerprint(c.out.State.CommittedFingerprint),
		logfields.DurationMS(float64(c.out.Duration.Microseconds())/1000))
	return c.out
}

func (c *cycle) disconnect(ctx context.Context) {
	done := c.stage(StageDisconnect)
	if err := c.o.deps.Link.Disconnect(ctx); err != nil {
		c.log.Warn("Network disconnect failed", logfields.Error(err))
		done(metrics.ResultFailed)
	} else {
		done(metrics.ResultSuccess)
	}
	c.connected = false
}

func exitFor(a Action) durable.ExitKind {
	switch a {
	case ActionRestart:
		return durable.ExitRestart
	case ActionConfig:
		return durable.ExitConfig
	default:
		return durable.ExitSleep
	}
}
