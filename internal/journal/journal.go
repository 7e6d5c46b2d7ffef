// Package journal keeps a local history of duty cycles in SQLite.
package journal

import (
	"context"
	"time"
)

// Entry is one finished cycle.
type Entry struct {
	ID           int64
	CycleID      string
	StartedAt    time.Time
	Duration     time.Duration
	WakeReason   string
	BootCount    uint32
	Outcome      string
	Reason       string
	Fingerprint  string
	SleepSeconds uint32
	BatteryVolts float64
	BatteryValid bool
	Details      map[string]string
}

// Store persists and lists cycle entries.
type Store interface {
	Append(ctx context.Context, e Entry) error
	Recent(ctx context.Context, limit int) ([]Entry, error)
	Range(ctx context.Context, start, end time.Time) ([]Entry, error)
	Prune(ctx context.Context, keep int) (int64, error)
	Close() error
}
