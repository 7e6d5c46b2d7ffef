package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	ferrors "git.home.luguber.info/inful/inkframe/internal/foundation/errors"
)

const memoryPath = ":memory:"

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewSQLiteStore opens or creates the journal. Use ":memory:" for an
// in-memory database.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dbPath != memoryPath {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, ferrors.WrapError(err, ferrors.CategoryStorage, "create journal directory").
				WithContext("path", dbPath).
				Build()
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryStorage, "open sqlite database").
			WithContext("path", dbPath).
			Build()
	}
	// Every connection to ":memory:" is a separate database.
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db}
	if err := store.initialize(); err != nil {
		_ = db.Close()
		return nil, ferrors.WrapError(err, ferrors.CategoryStorage, "initialize journal schema").
			WithContext("path", dbPath).
			Build()
	}
	return store, nil
}

func (s *SQLiteStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS cycles (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		cycle_id TEXT NOT NULL,
		started_at INTEGER NOT NULL,
		duration_ms INTEGER NOT NULL,
		wake_reason TEXT NOT NULL,
		boot_count INTEGER NOT NULL,
		outcome TEXT NOT NULL,
		reason TEXT,
		fingerprint TEXT,
		sleep_seconds INTEGER NOT NULL,
		battery_v REAL,
		details TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_cycles_started_at ON cycles(started_at);
	CREATE INDEX IF NOT EXISTS idx_cycles_outcome ON cycles(outcome);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Append adds one entry.
func (s *SQLiteStore) Append(ctx context.Context, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var details []byte
	if len(e.Details) > 0 {
		var err error
		details, err = json.Marshal(e.Details)
		if err != nil {
			return fmt.Errorf("marshal details: %w", err)
		}
	}
	battery := sql.NullFloat64{Float64: e.BatteryVolts, Valid: e.BatteryValid}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO cycles (cycle_id, started_at, duration_ms, wake_reason, boot_count, outcome, reason, fingerprint, sleep_seconds, battery_v, details)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.CycleID, e.StartedAt.UnixMilli(), e.Duration.Milliseconds(), e.WakeReason, int64(e.BootCount),
		e.Outcome, e.Reason, e.Fingerprint, int64(e.SleepSeconds), battery, details,
	)
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryStorage, "insert cycle").
			WithContext("cycle_id", e.CycleID).
			Build()
	}
	return nil
}

const selectColumns = `SELECT id, cycle_id, started_at, duration_ms, wake_reason, boot_count, outcome, reason, fingerprint, sleep_seconds, battery_v, details FROM cycles`

// Recent returns up to limit entries, newest first.
func (s *SQLiteStore) Recent(ctx context.Context, limit int) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, selectColumns+" ORDER BY id DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("query cycles: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

// Range returns entries started within [start, end], oldest first.
func (s *SQLiteStore) Range(ctx context.Context, start, end time.Time) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, selectColumns+" WHERE started_at >= ? AND started_at <= ? ORDER BY id",
		start.UnixMilli(), end.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("query cycles: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

// Prune keeps the newest keep entries and reports how many were removed.
func (s *SQLiteStore) Prune(ctx context.Context, keep int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		"DELETE FROM cycles WHERE id NOT IN (SELECT id FROM cycles ORDER BY id DESC LIMIT ?)", keep)
	if err != nil {
		return 0, ferrors.WrapError(err, ferrors.CategoryStorage, "prune cycles").Build()
	}
	return res.RowsAffected()
}

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	var entries []Entry
	for rows.Next() {
		var (
			e                   Entry
			startedMS, durMS    int64
			bootCount, sleepSec int64
			reason, fingerprint sql.NullString
			battery             sql.NullFloat64
			details             []byte
		)
		err := rows.Scan(&e.ID, &e.CycleID, &startedMS, &durMS, &e.WakeReason, &bootCount,
			&e.Outcome, &reason, &fingerprint, &sleepSec, &battery, &details)
		if err != nil {
			return nil, fmt.Errorf("scan cycle: %w", err)
		}
		e.StartedAt = time.UnixMilli(startedMS).UTC()
		e.Duration = time.Duration(durMS) * time.Millisecond
		e.BootCount = uint32(bootCount)
		e.SleepSeconds = uint32(sleepSec)
		e.Reason = reason.String
		e.Fingerprint = fingerprint.String
		e.BatteryVolts, e.BatteryValid = battery.Float64, battery.Valid
		if len(details) > 0 {
			if err := json.Unmarshal(details, &e.Details); err != nil {
				return nil, fmt.Errorf("unmarshal details: %w", err)
			}
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return entries, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
