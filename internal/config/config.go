package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// CurrentVersion is the only configuration format version understood by Load.
const CurrentVersion = "1.0"

// Config is the application configuration for the frame process. It covers the
// host-side plumbing only; the user-facing schedule lives in the settings store.
type Config struct {
	Version  string         `yaml:"version"`
	Device   DeviceConfig   `yaml:"device"`
	HTTP     HTTPConfig     `yaml:"http"`
	Storage  StorageConfig  `yaml:"storage"`
	Hardware HardwareConfig `yaml:"hardware"`
	Power    PowerConfig    `yaml:"power"`
	Portal   PortalConfig   `yaml:"portal"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Report   ReportConfig   `yaml:"report"`
	Logging  LoggingConfig  `yaml:"logging"`
	Retry    RetryConfig    `yaml:"retry"`
}

// DeviceConfig describes the network link used during a cycle.
type DeviceConfig struct {
	Interface      string        `yaml:"interface"`       // Network interface whose MAC identifies the frame
	ConnectTimeout time.Duration `yaml:"connect_timeout"` // How long to wait for the link to come up
	UpCommand      []string      `yaml:"up_command,omitempty"`
	DownCommand    []string      `yaml:"down_command,omitempty"`
}

// HTTPConfig holds transport limits for config, hash and image requests.
type HTTPConfig struct {
	Timeout       time.Duration `yaml:"timeout"`         // Per-request timeout for small requests
	IdleTimeout   time.Duration `yaml:"idle_timeout"`    // Abort image downloads after this long without bytes
	MaxImageBytes int64         `yaml:"max_image_bytes"` // Upper bound for Content-Length
}

// StorageConfig points at the files the process owns.
type StorageConfig struct {
	SettingsFile string `yaml:"settings_file"` // Persisted DeviceSchedule
	StateFile    string `yaml:"state_file"`    // Durable cycle state, expected on tmpfs
	BootIDFile   string `yaml:"boot_id_file"`  // Kernel boot id used to detect cold boots
	JournalFile  string `yaml:"journal_file"`  // SQLite cycle journal; empty disables it
	JournalKeep  int    `yaml:"journal_keep"`  // Newest entries kept after each append
}

// HardwareConfig selects the attached peripherals.
type HardwareConfig struct {
	Simulate       bool    `yaml:"simulate"`        // Use in-memory peripherals instead of periph.io drivers
	SPIPort        string  `yaml:"spi_port"`        // Empty picks the first SPI port
	ButtonPin      string  `yaml:"button_pin"`      // GPIO name of the boot button
	I2CBus         string  `yaml:"i2c_bus"`         // Bus carrying the battery ADC
	BatteryEnabled bool    `yaml:"battery_enabled"` // False reports "not measured" every cycle
	ADCChannel     int     `yaml:"adc_channel"`     // ADS1115 single-ended channel 0..3
	VoltageDivider float64 `yaml:"voltage_divider"` // Multiplier from ADC volts to battery volts
	FrameWidth     int     `yaml:"frame_width"`     // Width of the packed frame served by the image server
	FrameHeight    int     `yaml:"frame_height"`

	// Simulation only.
	SnapshotPath   string  `yaml:"snapshot_path,omitempty"`    // PNG written after each simulated refresh
	ButtonFlagFile string  `yaml:"button_flag_file,omitempty"` // Existing file reads as a held button
	SimulatedVolts float64 `yaml:"simulated_volts,omitempty"`
}

// PowerConfig controls how a computed sleep is executed.
type PowerConfig struct {
	Mode         SleepMode     `yaml:"mode"`          // timer|rtcwake
	RTCWake      string        `yaml:"rtcwake"`       // rtcwake binary used in rtcwake mode
	RestartDelay time.Duration `yaml:"restart_delay"` // Pause before a hardware-failure restart
}

// PortalConfig controls the configuration portal.
type PortalConfig struct {
	Listen string `yaml:"listen"`
}

// MetricsConfig enables node-exporter textfile output.
type MetricsConfig struct {
	Enabled      bool   `yaml:"enabled"`
	TextfilePath string `yaml:"textfile_path"`
}

// ReportConfig enables publishing one report per cycle over NATS.
type ReportConfig struct {
	Enabled bool          `yaml:"enabled"`
	URL     string        `yaml:"url"`
	Subject string        `yaml:"subject"`
	Timeout time.Duration `yaml:"timeout"`
}

// LoggingConfig represents logging configuration.
type LoggingConfig struct {
	Level  LogLevel  `yaml:"level"`
	Format LogFormat `yaml:"format"`
}

// RetryConfig controls the backoff between link polls.
type RetryConfig struct {
	Backoff      RetryBackoffMode `yaml:"backoff"`
	InitialDelay time.Duration    `yaml:"initial_delay"`
	MaxDelay     time.Duration    `yaml:"max_delay"`
}

// Load reads, expands, normalizes, defaults and validates a configuration file.
func Load(configPath string) (*Config, error) {
	loadEnvFiles()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file not found: %s", configPath)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(data)
}

// Parse builds a Config from raw YAML. Environment references are expanded first.
func Parse(data []byte) (*Config, error) {
	expandedData := os.ExpandEnv(string(data))

	var config Config
	if err := yaml.Unmarshal([]byte(expandedData), &config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if config.Version == "" {
		config.Version = CurrentVersion
	}
	if config.Version != CurrentVersion {
		return nil, fmt.Errorf("unsupported configuration version: %s (expected %s)", config.Version, CurrentVersion)
	}

	res := NormalizeConfig(&config)
	for _, w := range res.Warnings {
		fmt.Fprintf(os.Stderr, "config normalization: %s\n", w)
	}

	ApplyDefaults(&config)

	if err := ValidateConfig(&config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}

// Default returns a fully defaulted configuration, used when no file is given.
func Default() *Config {
	cfg := &Config{Version: CurrentVersion}
	ApplyDefaults(cfg)
	return cfg
}

// Init writes a default configuration file.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", configPath)
	}

	data, err := yaml.Marshal(Default())
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := "# inkframe configuration\n# Values may reference environment variables as ${NAME}.\n"
	if err := os.WriteFile(configPath, append([]byte(header), data...), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
