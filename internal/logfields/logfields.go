package logfields

import (
	"log/slog"
	"time"
)

// Canonical log field name constants to avoid drift across packages.
const (
	KeyCycleID     = "cycle_id"
	KeyStage       = "stage"
	KeyDurationMS  = "duration_ms"
	KeyBootCount   = "boot_count"
	KeyWakeReason  = "wake_reason"
	KeyFingerprint = "fingerprint"
	KeySleepSecs   = "sleep_seconds"
	KeyURL         = "url"
	KeyStatus      = "status"
	KeyBytes       = "bytes"
	KeyBatteryV    = "battery_v"
	KeyMAC         = "mac"
	KeyReason      = "reason"
	KeyPath        = "path"
	KeyMethod      = "method"
	KeyRemoteAddr  = "remote_addr"
	KeyError       = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func CycleID(id string) slog.Attr       { return slog.String(KeyCycleID, id) }
func Stage(name string) slog.Attr       { return slog.String(KeyStage, name) }
func DurationMS(ms float64) slog.Attr   { return slog.Float64(KeyDurationMS, ms) }
func BootCount(n uint32) slog.Attr      { return slog.Uint64(KeyBootCount, uint64(n)) }
func WakeReason(r string) slog.Attr     { return slog.String(KeyWakeReason, r) }
func Fingerprint(fp string) slog.Attr   { return slog.String(KeyFingerprint, fp) }
func SleepSeconds(s uint32) slog.Attr   { return slog.Uint64(KeySleepSecs, uint64(s)) }
func URL(u string) slog.Attr            { return slog.String(KeyURL, u) }
func Status(code int) slog.Attr         { return slog.Int(KeyStatus, code) }
func Bytes(n int64) slog.Attr           { return slog.Int64(KeyBytes, n) }
func MAC(addr string) slog.Attr         { return slog.String(KeyMAC, addr) }
func Reason(r string) slog.Attr         { return slog.String(KeyReason, r) }
func Path(p string) slog.Attr           { return slog.String(KeyPath, p) }
func Method(m string) slog.Attr         { return slog.String(KeyMethod, m) }
func RemoteAddr(a string) slog.Attr     { return slog.String(KeyRemoteAddr, a) }
func Since(start time.Time) slog.Attr   { return DurationMS(float64(time.Since(start).Microseconds()) / 1000) }

// BatteryVolts logs a measured voltage, or nothing useful when unmeasured.
func BatteryVolts(v float64, measured bool) slog.Attr {
	if !measured {
		return slog.String(KeyBatteryV, "not measured")
	}
	return slog.Float64(KeyBatteryV, v)
}

func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
