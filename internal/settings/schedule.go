// Package settings owns the persisted DeviceSchedule: server location, refresh
// interval and active window. Every mutation is validated as a whole before
// it reaches disk, so a stored schedule is always in range.
package settings

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	ferrors "git.home.luguber.info/inful/inkframe/internal/foundation/errors"
	"git.home.luguber.info/inful/inkframe/internal/schedule"
)

// Field limits.
const (
	MinRefreshMinutes     = 1
	MaxRefreshMinutes     = 1440
	MinHour               = 0
	MaxHour               = 23
	MinTimezoneOffset     = -720
	MaxTimezoneOffset     = 840
	MaxHostLength         = 127
	MaxImageEndpointLen   = 63
	DefaultServerHost     = "192.168.86.34"
	DefaultServerPort     = 5000
	DefaultImageEndpoint  = "/image_packed"
	DefaultRefreshMinutes = 15
	DefaultActiveStart    = 8
	DefaultActiveEnd      = 20
	configEndpoint        = "/config"
	hashEndpoint          = "/hash"
)

// Schedule is the user-configurable device schedule.
type Schedule struct {
	ServerHost            string `yaml:"server_host" json:"server_host"`
	ServerPort            int    `yaml:"server_port" json:"server_port"`
	ImageEndpoint         string `yaml:"image_endpoint" json:"image_endpoint"`
	RefreshMinutes        int    `yaml:"refresh_minutes" json:"refresh_minutes"`
	ActiveStartHour       int    `yaml:"active_start_hour" json:"active_start_hour"`
	ActiveEndHour         int    `yaml:"active_end_hour" json:"active_end_hour"`
	TimezoneOffsetMinutes int    `yaml:"timezone_offset_minutes" json:"timezone_offset_minutes"`
}

// Defaults returns the factory schedule.
func Defaults() Schedule {
	return Schedule{
		ServerHost:            DefaultServerHost,
		ServerPort:            DefaultServerPort,
		ImageEndpoint:         DefaultImageEndpoint,
		RefreshMinutes:        DefaultRefreshMinutes,
		ActiveStartHour:       DefaultActiveStart,
		ActiveEndHour:         DefaultActiveEnd,
		TimezoneOffsetMinutes: 0,
	}
}

// Window projects the schedule onto the scheduler's window type.
func (s Schedule) Window() schedule.Window {
	return schedule.Window{
		StartHour:             s.ActiveStartHour,
		EndHour:               s.ActiveEndHour,
		TimezoneOffsetMinutes: s.TimezoneOffsetMinutes,
	}
}

// BaseURL is http://host:port.
func (s Schedule) BaseURL() string {
	return "http://" + net.JoinHostPort(s.ServerHost, strconv.Itoa(s.ServerPort))
}

func (s Schedule) ImageURL() string  { return s.BaseURL() + s.ImageEndpoint }
func (s Schedule) HashURL() string   { return s.BaseURL() + hashEndpoint }
func (s Schedule) ConfigURL() string { return s.BaseURL() + configEndpoint }

// Validate checks every field and returns the first violation.
func (s Schedule) Validate() error {
	if err := ValidateHost(s.ServerHost); err != nil {
		return err
	}
	if err := ValidatePort(s.ServerPort); err != nil {
		return err
	}
	if _, err := NormalizeEndpoint(s.ImageEndpoint); err != nil {
		return err
	}
	if err := ValidateRefreshMinutes(s.RefreshMinutes); err != nil {
		return err
	}
	if err := ValidateHour("active_start_hour", s.ActiveStartHour); err != nil {
		return err
	}
	if err := ValidateHour("active_end_hour", s.ActiveEndHour); err != nil {
		return err
	}
	return ValidateTimezoneOffset(s.TimezoneOffsetMinutes)
}

func rangeError(field string, value, lo, hi int) error {
	return ferrors.ValidationError(fmt.Sprintf("%s out of range: %d (allowed %d..%d)", field, value, lo, hi)).
		WithContext("field", field).
		WithContext("value", value).
		Build()
}

func ValidateRefreshMinutes(v int) error {
	if v < MinRefreshMinutes || v > MaxRefreshMinutes {
		return rangeError("refresh_minutes", v, MinRefreshMinutes, MaxRefreshMinutes)
	}
	return nil
}

func ValidateHour(field string, v int) error {
	if v < MinHour || v > MaxHour {
		return rangeError(field, v, MinHour, MaxHour)
	}
	return nil
}

func ValidateTimezoneOffset(v int) error {
	if v < MinTimezoneOffset || v > MaxTimezoneOffset {
		return rangeError("timezone_offset_minutes", v, MinTimezoneOffset, MaxTimezoneOffset)
	}
	return nil
}

func ValidatePort(v int) error {
	if v <= 0 || v > 65535 {
		return rangeError("server_port", v, 1, 65535)
	}
	return nil
}

// ValidateHost requires a non-empty host without whitespace, at most MaxHostLength long.
func ValidateHost(host string) error {
	switch {
	case host == "":
		return ferrors.ValidationError("server_host cannot be empty").WithContext("field", "server_host").Build()
	case len(host) > MaxHostLength:
		return ferrors.ValidationError(fmt.Sprintf("server_host longer than %d characters", MaxHostLength)).
			WithContext("field", "server_host").Build()
	case strings.ContainsAny(host, " \t\r\n/"):
		return ferrors.ValidationError("server_host contains invalid characters").
			WithContext("field", "server_host").Build()
	}
	return nil
}

// NormalizeEndpoint trims the endpoint and ensures a leading slash.
func NormalizeEndpoint(endpoint string) (string, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return "", ferrors.ValidationError("image_endpoint cannot be empty").WithContext("field", "image_endpoint").Build()
	}
	if !strings.HasPrefix(endpoint, "/") {
		endpoint = "/" + endpoint
	}
	if len(endpoint) > MaxImageEndpointLen {
		return "", ferrors.ValidationError(fmt.Sprintf("image_endpoint longer than %d characters", MaxImageEndpointLen)).
			WithContext("field", "image_endpoint").Build()
	}
	return endpoint, nil
}
