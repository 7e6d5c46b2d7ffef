package commands

import (
	"io"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"periph.io/x/host/v3"

	"git.home.luguber.info/inful/inkframe/internal/battery"
	"git.home.luguber.info/inful/inkframe/internal/button"
	"git.home.luguber.info/inful/inkframe/internal/changecache"
	"git.home.luguber.info/inful/inkframe/internal/clock"
	"git.home.luguber.info/inful/inkframe/internal/config"
	"git.home.luguber.info/inful/inkframe/internal/display"
	"git.home.luguber.info/inful/inkframe/internal/durable"
	ferrors "git.home.luguber.info/inful/inkframe/internal/foundation/errors"
	"git.home.luguber.info/inful/inkframe/internal/journal"
	"git.home.luguber.info/inful/inkframe/internal/logfields"
	"git.home.luguber.info/inful/inkframe/internal/metrics"
	"git.home.luguber.info/inful/inkframe/internal/orchestrator"
	"git.home.luguber.info/inful/inkframe/internal/portal"
	"git.home.luguber.info/inful/inkframe/internal/power"
	"git.home.luguber.info/inful/inkframe/internal/remotesync"
	"git.home.luguber.info/inful/inkframe/internal/report"
	"git.home.luguber.info/inful/inkframe/internal/retry"
	"git.home.luguber.info/inful/inkframe/internal/settings"
	"git.home.luguber.info/inful/inkframe/internal/transport"
	"git.home.luguber.info/inful/inkframe/internal/version"
)

// peripherals are the attached devices, real or simulated.
type peripherals struct {
	panel   display.Panel
	button  button.Input
	battery battery.Sensor
	closers []io.Closer
}

func openPeripherals(hc config.HardwareConfig, logger *slog.Logger) (*peripherals, error) {
	format := display.PackedFormat{Width: hc.FrameWidth, Height: hc.FrameHeight}
	if hc.Simulate {
		p := &peripherals{
			panel:  display.NewMemory(format, hc.SnapshotPath),
			button: button.FlagFile(hc.ButtonFlagFile),
		}
		if hc.SimulatedVolts > 0 {
			p.battery = battery.Static(hc.SimulatedVolts)
		}
		logger.Info("Using simulated peripherals", logfields.Path(hc.SnapshotPath))
		return p, nil
	}

	if _, err := host.Init(); err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryHardware, "initialize periph.io host drivers").Fatal().Build()
	}

	p := &peripherals{}
	panel, err := display.OpenWaveshare(hc.SPIPort, format, logger)
	if err != nil {
		return nil, err
	}
	p.panel = panel
	p.closers = append(p.closers, panel)

	btn, err := button.OpenGPIO(hc.ButtonPin)
	if err != nil {
		// A missing button only costs config mode.
		logger.Warn("Boot button unavailable", slog.String("pin", hc.ButtonPin), logfields.Error(err))
	} else {
		p.button = btn
	}

	if hc.BatteryEnabled {
		adc, err := battery.OpenADS1115(hc.I2CBus, hc.ADCChannel, hc.VoltageDivider)
		if err != nil {
			logger.Warn("Battery ADC unavailable", logfields.Error(err))
		} else {
			p.battery = adc
			p.closers = append(p.closers, adc)
		}
	}
	return p, nil
}

// device is the fully wired process.
type device struct {
	cfg      *config.Config
	logger   *slog.Logger
	settings *settings.Store
	durable  *durable.Store
	journal  journal.Store
	registry *prometheus.Registry
	timer    *power.TimerSleeper
	link     transport.Link
	portal   *portal.Server
	orch     *orchestrator.Orchestrator
	closers  []io.Closer
}

// Close releases everything in reverse order of acquisition.
func (d *device) Close() error {
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i].Close(); err != nil {
			d.logger.Warn("Close failed", logfields.Error(err))
		}
	}
	d.closers = nil
	return nil
}

func openDevice(cfg *config.Config, logger *slog.Logger) (_ *device, err error) {
	d := &device{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			_ = d.Close()
		}
	}()

	d.settings, err = settings.Open(cfg.Storage.SettingsFile, logger)
	if err != nil {
		return nil, err
	}
	d.durable = durable.NewStore(cfg.Storage.StateFile, cfg.Storage.BootIDFile, logger)

	if cfg.Storage.JournalFile != "" {
		store, jerr := journal.NewSQLiteStore(cfg.Storage.JournalFile)
		if jerr != nil {
			return nil, jerr
		}
		d.journal = store
		d.closers = append(d.closers, store)
	}

	hw, err := openPeripherals(cfg.Hardware, logger)
	if err != nil {
		return nil, err
	}
	d.closers = append(d.closers, hw.closers...)

	d.link = transport.NewInterfaceLink(transport.LinkOptions{
		Interface:   cfg.Device.Interface,
		UpCommand:   cfg.Device.UpCommand,
		DownCommand: cfg.Device.DownCommand,
		Timeout:     cfg.Device.ConnectTimeout,
		Policy:      retry.FromConfig(cfg.Retry),
		Logger:      logger,
	})
	client := transport.New(transport.Options{
		Timeout:     cfg.HTTP.Timeout,
		IdleTimeout: cfg.HTTP.IdleTimeout,
		Logger:      logger,
	})

	d.registry = prometheus.NewRegistry()
	recorder := metrics.NewPrometheusRecorder(d.registry)

	d.timer, err = power.NewTimerSleeper(logger)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryRuntime, "create wake timer").Build()
	}
	d.closers = append(d.closers, d.timer)
	var sleeper power.Sleeper = d.timer
	if cfg.Power.Mode == config.SleepModeRTCWake {
		rtc := power.NewRTCWakeSleeper(logger)
		rtc.Command = cfg.Power.RTCWake
		sleeper = power.WithFallback(rtc, d.timer, logger)
	}

	mac, macErr := d.link.HardwareAddr()
	if macErr != nil {
		logger.Warn("Device MAC unavailable", logfields.Error(macErr))
	}
	d.portal = portal.New(portal.Options{
		Listen:    cfg.Portal.Listen,
		Store:     d.settings,
		DeviceMAC: mac,
		Version:   version.Version,
		Metrics:   metrics.HTTPHandler(d.registry),
		Logger:    logger,
	})

	deps := orchestrator.Deps{
		Durable:   d.durable,
		Settings:  d.settings,
		Clock:     clock.System{},
		Link:      d.link,
		Syncer:    remotesync.New(client, d.settings, clock.System{}, logger),
		Checker:   changecache.NewChecker(client, logger),
		Fetcher:   client,
		Panel:     hw.panel,
		Sleeper:   sleeper,
		Restarter: power.NewExecRestarter(logger),
		Portal:    d.portal,
		Metrics:   recorder,
		Logger:    logger,
	}
	if hw.button != nil {
		deps.Button = hw.button
	}
	if hw.battery != nil {
		deps.Battery = hw.battery
	}
	if d.journal != nil {
		deps.Journal = d.journal
	}
	if cfg.Metrics.Enabled {
		deps.MetricsSink = metrics.NewTextfile(cfg.Metrics.TextfilePath, d.registry)
	}
	if cfg.Report.Enabled {
		deps.Reporter = report.NewPerCycle(report.Options{
			URL:     cfg.Report.URL,
			Subject: cfg.Report.Subject,
			Timeout: cfg.Report.Timeout,
			Logger:  logger,
		})
	}

	opts := orchestrator.DefaultOptions()
	opts.RestartDelay = cfg.Power.RestartDelay
	opts.MaxImageBytes = cfg.HTTP.MaxImageBytes
	opts.ReportTimeout = cfg.Report.Timeout
	opts.JournalKeep = cfg.Storage.JournalKeep

	d.orch, err = orchestrator.New(deps, opts)
	if err != nil {
		return nil, err
	}
	return d, nil
}
