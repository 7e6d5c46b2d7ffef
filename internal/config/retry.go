package config

import "git.home.luguber.info/inful/inkframe/internal/foundation/normalization"

// RetryBackoffMode enumerates supported backoff strategies for retries.
type RetryBackoffMode string

const (
	RetryBackoffFixed       RetryBackoffMode = "fixed"
	RetryBackoffLinear      RetryBackoffMode = "linear"
	RetryBackoffExponential RetryBackoffMode = "exponential"
)

var retryBackoffNormalizer = normalization.NewNormalizer(map[string]RetryBackoffMode{
	"fixed":       RetryBackoffFixed,
	"linear":      RetryBackoffLinear,
	"exponential": RetryBackoffExponential,
}, "")

// NormalizeRetryBackoff converts arbitrary user input (case-insensitive) into a typed mode, returning empty string for unknown.
func NormalizeRetryBackoff(raw string) RetryBackoffMode {
	return retryBackoffNormalizer.Normalize(raw)
}

// SleepMode selects how the process waits between cycles.
type SleepMode string

const (
	// SleepModeTimer keeps the process resident and wakes it with a scheduler job.
	SleepModeTimer SleepMode = "timer"
	// SleepModeRTCWake suspends the board and lets the RTC alarm wake it.
	SleepModeRTCWake SleepMode = "rtcwake"
)

var sleepModeNormalizer = normalization.NewEnumNormalizer("power.mode", map[string]SleepMode{
	"timer":   SleepModeTimer,
	"rtcwake": SleepModeRTCWake,
}, "")

func NormalizeSleepMode(raw string) SleepMode {
	return sleepModeNormalizer.Normalize(raw)
}
