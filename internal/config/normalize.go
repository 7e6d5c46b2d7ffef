package config

import (
	"fmt"
	"strings"
)

// NormalizationResult captures adjustments & warnings from normalization pass.
type NormalizationResult struct{ Warnings []string }

// NormalizeConfig canonicalizes enumerated fields before defaults are applied.
func NormalizeConfig(c *Config) *NormalizationResult {
	res := &NormalizationResult{}

	if raw := string(c.Logging.Level); strings.TrimSpace(raw) != "" {
		lvl := NormalizeLogLevel(raw)
		if string(lvl) != raw {
			res.Warnings = append(res.Warnings, warnChanged("logging.level", raw, string(lvl)))
		}
		c.Logging.Level = lvl
	}
	if raw := string(c.Logging.Format); strings.TrimSpace(raw) != "" {
		f := NormalizeLogFormat(raw)
		if string(f) != raw {
			res.Warnings = append(res.Warnings, warnChanged("logging.format", raw, string(f)))
		}
		c.Logging.Format = f
	}
	if raw := string(c.Retry.Backoff); strings.TrimSpace(raw) != "" {
		mode := NormalizeRetryBackoff(raw)
		if mode == "" {
			res.Warnings = append(res.Warnings, warnUnknown("retry.backoff", raw, string(RetryBackoffLinear)))
			mode = RetryBackoffLinear
		} else if string(mode) != raw {
			res.Warnings = append(res.Warnings, warnChanged("retry.backoff", raw, string(mode)))
		}
		c.Retry.Backoff = mode
	}
	if raw := string(c.Power.Mode); strings.TrimSpace(raw) != "" {
		mode, err := sleepModeNormalizer.NormalizeWithValidation(raw)
		if err != nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("%v, using '%s'", err, SleepModeTimer))
			mode = SleepModeTimer
		} else if string(mode) != raw {
			res.Warnings = append(res.Warnings, warnChanged("power.mode", raw, string(mode)))
		}
		c.Power.Mode = mode
	}
	return res
}

func warnChanged(field, from, to string) string {
	return fmt.Sprintf("normalized %s from '%s' to '%s'", field, from, to)
}

func warnUnknown(field, value, fallback string) string {
	return fmt.Sprintf("unknown %s '%s', using '%s'", field, value, fallback)
}
