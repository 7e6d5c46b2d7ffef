// Package schedule converts UTC instants into local time-of-day decisions for
// the active window and computes how long the frame should sleep. Every
// function takes its inputs explicitly; nothing here reads the system clock.
package schedule

import (
	"math"
	"time"
)

const (
	// SecondsPerDay is the length of a local day; DST is not modelled.
	SecondsPerDay = 86400

	// MinSleepSeconds bounds the worst-case wake frequency.
	MinSleepSeconds uint32 = 60

	// Unbounded is returned by SecondsUntilWindowEnd when the window is disabled.
	Unbounded uint32 = math.MaxUint32
)

// Window is the local-time active window. StartHour == EndHour disables it.
type Window struct {
	StartHour             int
	EndHour               int
	TimezoneOffsetMinutes int
}

// Disabled reports whether the window is always active.
func (w Window) Disabled() bool { return w.StartHour == w.EndHour }

// LocalSecondsOfDay shifts the UTC time by the offset and folds it into [0, 86400).
func LocalSecondsOfDay(utcNow time.Time, tzOffsetMinutes int) int {
	local := utcNow.Unix() + int64(tzOffsetMinutes)*60
	sod := local % SecondsPerDay
	if sod < 0 {
		sod += SecondsPerDay
	}
	return int(sod)
}

// IsWithinActiveWindow reports whether utcNow falls inside the local window.
// Overnight windows (start > end) wrap around midnight.
func IsWithinActiveWindow(utcNow time.Time, startHour, endHour, tzOffsetMinutes int) bool {
	if startHour == endHour {
		return true
	}
	sod := LocalSecondsOfDay(utcNow, tzOffsetMinutes)
	start, end := startHour*3600, endHour*3600
	if startHour < endHour {
		return sod >= start && sod < end
	}
	return sod >= start || sod < end
}

// SecondsUntilNextActiveWindow returns the seconds to the next local startHour:00.
// At or past today's boundary it rolls over to tomorrow, so the result is in (0, 86400].
func SecondsUntilNextActiveWindow(utcNow time.Time, startHour, tzOffsetMinutes int) uint32 {
	return secondsUntilHour(LocalSecondsOfDay(utcNow, tzOffsetMinutes), startHour)
}

// SecondsUntilWindowEnd returns the seconds to the next local endHour:00, or
// Unbounded when the window is disabled.
func SecondsUntilWindowEnd(utcNow time.Time, startHour, endHour, tzOffsetMinutes int) uint32 {
	if startHour == endHour {
		return Unbounded
	}
	return secondsUntilHour(LocalSecondsOfDay(utcNow, tzOffsetMinutes), endHour)
}

func secondsUntilHour(sod, hour int) uint32 {
	target := hour * 3600
	if sod < target {
		return uint32(target - sod)
	}
	return uint32(SecondsPerDay - sod + target)
}

// CalculateSleepSeconds decides the next sleep duration.
//
// With an invalid clock the window is ignored and the refresh interval is used.
// Outside the window the frame sleeps until it opens. Inside, it sleeps for the
// refresh interval unless that reaches or passes the window end, in which case
// it sleeps until the next opening. The result is never below MinSleepSeconds.
func CalculateSleepSeconds(refreshMinutes int, w Window, utcNow time.Time, clockValid bool) uint32 {
	refresh := clampRefresh(refreshMinutes)
	if !clockValid {
		return floor(refresh)
	}

	untilOpen := SecondsUntilNextActiveWindow(utcNow, w.StartHour, w.TimezoneOffsetMinutes)
	if !IsWithinActiveWindow(utcNow, w.StartHour, w.EndHour, w.TimezoneOffsetMinutes) {
		return floor(untilOpen)
	}

	untilEnd := SecondsUntilWindowEnd(utcNow, w.StartHour, w.EndHour, w.TimezoneOffsetMinutes)
	if refresh >= untilEnd {
		return floor(untilOpen)
	}
	return floor(refresh)
}

func clampRefresh(refreshMinutes int) uint32 {
	if refreshMinutes <= 0 {
		return 0
	}
	if refreshMinutes > math.MaxUint32/60 {
		return math.MaxUint32
	}
	return uint32(refreshMinutes) * 60
}

func floor(s uint32) uint32 {
	if s < MinSleepSeconds {
		return MinSleepSeconds
	}
	return s
}
