package config

import "time"

// Default values applied by ApplyDefaults.
const (
	DefaultInterface      = "wlan0"
	DefaultConnectTimeout = 20 * time.Second
	DefaultHTTPTimeout    = 30 * time.Second
	DefaultIdleTimeout    = 10 * time.Second
	DefaultMaxImageBytes  = 960000
	DefaultSettingsFile   = "/var/lib/inkframe/settings.yaml"
	DefaultStateFile      = "/run/inkframe/state.json"
	DefaultBootIDFile     = "/proc/sys/kernel/random/boot_id"
	DefaultButtonPin      = "GPIO17"
	DefaultI2CBus         = "1"
	DefaultVoltageDivider = 2.0
	DefaultFrameWidth     = 1200
	DefaultFrameHeight    = 1600
	DefaultJournalKeep    = 2000
	DefaultRTCWake        = "rtcwake"
	DefaultRestartDelay   = 5 * time.Second
	DefaultPortalListen   = ":8080"
	DefaultReportSubject  = "inkframe.cycles"
	DefaultReportTimeout  = 5 * time.Second
)

// ApplyDefaults fills every zero-valued field with its default.
func ApplyDefaults(cfg *Config) {
	if cfg.Device.Interface == "" {
		cfg.Device.Interface = DefaultInterface
	}
	if cfg.Device.ConnectTimeout <= 0 {
		cfg.Device.ConnectTimeout = DefaultConnectTimeout
	}

	if cfg.HTTP.Timeout <= 0 {
		cfg.HTTP.Timeout = DefaultHTTPTimeout
	}
	if cfg.HTTP.IdleTimeout <= 0 {
		cfg.HTTP.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.HTTP.MaxImageBytes <= 0 {
		cfg.HTTP.MaxImageBytes = DefaultMaxImageBytes
	}

	if cfg.Storage.SettingsFile == "" {
		cfg.Storage.SettingsFile = DefaultSettingsFile
	}
	if cfg.Storage.StateFile == "" {
		cfg.Storage.StateFile = DefaultStateFile
	}
	if cfg.Storage.BootIDFile == "" {
		cfg.Storage.BootIDFile = DefaultBootIDFile
	}

	if cfg.Storage.JournalKeep <= 0 {
		cfg.Storage.JournalKeep = DefaultJournalKeep
	}

	if cfg.Hardware.ButtonPin == "" {
		cfg.Hardware.ButtonPin = DefaultButtonPin
	}
	if cfg.Hardware.I2CBus == "" {
		cfg.Hardware.I2CBus = DefaultI2CBus
	}
	if cfg.Hardware.VoltageDivider <= 0 {
		cfg.Hardware.VoltageDivider = DefaultVoltageDivider
	}

	if cfg.Hardware.FrameWidth <= 0 {
		cfg.Hardware.FrameWidth = DefaultFrameWidth
	}
	if cfg.Hardware.FrameHeight <= 0 {
		cfg.Hardware.FrameHeight = DefaultFrameHeight
	}

	if cfg.Power.Mode == "" {
		cfg.Power.Mode = SleepModeTimer
	}
	if cfg.Power.RTCWake == "" {
		cfg.Power.RTCWake = DefaultRTCWake
	}
	if cfg.Power.RestartDelay <= 0 {
		cfg.Power.RestartDelay = DefaultRestartDelay
	}

	if cfg.Portal.Listen == "" {
		cfg.Portal.Listen = DefaultPortalListen
	}

	if cfg.Report.Subject == "" {
		cfg.Report.Subject = DefaultReportSubject
	}
	if cfg.Report.Timeout <= 0 {
		cfg.Report.Timeout = DefaultReportTimeout
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = LogLevelInfo
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = LogFormatText
	}

	if cfg.Retry.Backoff == "" {
		cfg.Retry.Backoff = RetryBackoffLinear
	}
	if cfg.Retry.InitialDelay <= 0 {
		cfg.Retry.InitialDelay = 500 * time.Millisecond
	}
	if cfg.Retry.MaxDelay <= 0 {
		cfg.Retry.MaxDelay = 2 * time.Second
	}
}
