package config

import (
	"errors"
	"fmt"
)

// ValidateConfig checks a defaulted configuration for values no component can work with.
func ValidateConfig(cfg *Config) error {
	if cfg.Device.Interface == "" {
		return errors.New("device.interface cannot be empty")
	}
	if cfg.HTTP.MaxImageBytes < 1024 {
		return fmt.Errorf("http.max_image_bytes too small: %d", cfg.HTTP.MaxImageBytes)
	}
	if cfg.Hardware.ADCChannel < 0 || cfg.Hardware.ADCChannel > 3 {
		return fmt.Errorf("hardware.adc_channel must be 0..3, got %d", cfg.Hardware.ADCChannel)
	}
	if frame := int64(cfg.Hardware.FrameWidth*cfg.Hardware.FrameHeight+1) / 2; frame > cfg.HTTP.MaxImageBytes {
		return fmt.Errorf("http.max_image_bytes (%d) cannot hold a %dx%d frame (%d bytes)",
			cfg.HTTP.MaxImageBytes, cfg.Hardware.FrameWidth, cfg.Hardware.FrameHeight, frame)
	}
	if cfg.Retry.InitialDelay > cfg.Retry.MaxDelay {
		return fmt.Errorf("retry.initial_delay (%s) must not exceed retry.max_delay (%s)", cfg.Retry.InitialDelay, cfg.Retry.MaxDelay)
	}
	if cfg.Metrics.Enabled && cfg.Metrics.TextfilePath == "" {
		return errors.New("metrics.textfile_path is required when metrics are enabled")
	}
	if cfg.Report.Enabled && cfg.Report.URL == "" {
		return errors.New("report.url is required when reporting is enabled")
	}
	if cfg.Storage.SettingsFile == "" || cfg.Storage.StateFile == "" {
		return errors.New("storage.settings_file and storage.state_file are required")
	}
	return nil
}
