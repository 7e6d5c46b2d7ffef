package settings

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/inkframe/internal/fileutil"
	ferrors "git.home.luguber.info/inful/inkframe/internal/foundation/errors"
	"git.home.luguber.info/inful/inkframe/internal/logfields"
)

// Store persists a Schedule as YAML. Reads and writes are safe for concurrent
// use; the portal and the cycle may touch it at the same time.
type Store struct {
	mu      sync.RWMutex
	path    string
	current Schedule
	logger  *slog.Logger
}

// Open loads the schedule at path. A missing file yields defaults without
// writing anything. Stored fields that fail validation fall back to their
// default one by one.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{path: path, current: Defaults(), logger: logger}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return s, nil
		}
		return nil, ferrors.WrapError(err, ferrors.CategoryStorage, "failed to read settings").
			WithContext("path", path).Build()
	}

	var stored Schedule
	if err := yaml.Unmarshal(data, &stored); err != nil {
		logger.Warn("Settings file unreadable, using defaults", logfields.Path(path), logfields.Error(err))
		return s, nil
	}
	s.current = sanitize(stored, logger)
	return s, nil
}

// sanitize keeps each valid stored field and replaces the rest with defaults.
func sanitize(stored Schedule, logger *slog.Logger) Schedule {
	out := Defaults()
	keep := func(field string, err error, apply func()) {
		if err != nil {
			logger.Warn("Ignoring stored setting", slog.String("field", field), logfields.Error(err))
			return
		}
		apply()
	}
	keep("server_host", ValidateHost(stored.ServerHost), func() { out.ServerHost = stored.ServerHost })
	keep("server_port", ValidatePort(stored.ServerPort), func() { out.ServerPort = stored.ServerPort })
	ep, epErr := NormalizeEndpoint(stored.ImageEndpoint)
	keep("image_endpoint", epErr, func() { out.ImageEndpoint = ep })
	keep("refresh_minutes", ValidateRefreshMinutes(stored.RefreshMinutes), func() { out.RefreshMinutes = stored.RefreshMinutes })
	keep("active_start_hour", ValidateHour("active_start_hour", stored.ActiveStartHour), func() { out.ActiveStartHour = stored.ActiveStartHour })
	keep("active_end_hour", ValidateHour("active_end_hour", stored.ActiveEndHour), func() { out.ActiveEndHour = stored.ActiveEndHour })
	keep("timezone_offset_minutes", ValidateTimezoneOffset(stored.TimezoneOffsetMinutes), func() { out.TimezoneOffsetMinutes = stored.TimezoneOffsetMinutes })
	return out
}

// Path returns the backing file.
func (s *Store) Path() string { return s.path }

// Get returns a snapshot of the current schedule.
func (s *Store) Get() Schedule {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Apply validates next as a whole and persists it. On any error the stored
// schedule is unchanged.
func (s *Store) Apply(next Schedule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.applyLocked(next)
}

// Update applies fn to a copy of the current schedule and stores the result.
func (s *Store) Update(fn func(*Schedule)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.current
	fn(&next)
	return s.applyLocked(next)
}

func (s *Store) applyLocked(next Schedule) error {
	ep, err := NormalizeEndpoint(next.ImageEndpoint)
	if err != nil {
		return err
	}
	next.ImageEndpoint = ep
	if err := next.Validate(); err != nil {
		return err
	}
	if next == s.current {
		return nil
	}
	if err := s.persist(next); err != nil {
		return err
	}
	s.current = next
	return nil
}

// ResetToDefaults restores the factory schedule.
func (s *Store) ResetToDefaults() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.persist(Defaults()); err != nil {
		return err
	}
	s.current = Defaults()
	return nil
}

// Reload re-reads the backing file. Used after external edits.
func (s *Store) Reload() error {
	fresh, err := Open(s.path, s.logger)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.current = fresh.current
	s.mu.Unlock()
	return nil
}

func (s *Store) persist(next Schedule) error {
	data, err := yaml.Marshal(next)
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryInternal, "failed to encode settings").Build()
	}
	if err := fileutil.WriteAtomic(s.path, data, 0o644); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryStorage, "failed to persist settings").
			WithContext("path", s.path).Build()
	}
	return nil
}

// Typed accessors. Each setter is all-or-nothing: an invalid value returns an
// error and leaves the stored schedule untouched.

func (s *Store) ServerHost() string         { return s.Get().ServerHost }
func (s *Store) ServerPort() int            { return s.Get().ServerPort }
func (s *Store) ImageEndpoint() string      { return s.Get().ImageEndpoint }
func (s *Store) RefreshMinutes() int        { return s.Get().RefreshMinutes }
func (s *Store) ActiveStartHour() int       { return s.Get().ActiveStartHour }
func (s *Store) ActiveEndHour() int         { return s.Get().ActiveEndHour }
func (s *Store) TimezoneOffsetMinutes() int { return s.Get().TimezoneOffsetMinutes }

func (s *Store) SetServerHost(v string) error {
	return s.Update(func(sc *Schedule) { sc.ServerHost = v })
}

func (s *Store) SetServerPort(v int) error {
	return s.Update(func(sc *Schedule) { sc.ServerPort = v })
}

func (s *Store) SetImageEndpoint(v string) error {
	return s.Update(func(sc *Schedule) { sc.ImageEndpoint = v })
}

func (s *Store) SetRefreshMinutes(v int) error {
	return s.Update(func(sc *Schedule) { sc.RefreshMinutes = v })
}

func (s *Store) SetActiveStartHour(v int) error {
	return s.Update(func(sc *Schedule) { sc.ActiveStartHour = v })
}

func (s *Store) SetActiveEndHour(v int) error {
	return s.Update(func(sc *Schedule) { sc.ActiveEndHour = v })
}

func (s *Store) SetTimezoneOffsetMinutes(v int) error {
	return s.Update(func(sc *Schedule) { sc.TimezoneOffsetMinutes = v })
}

// String renders the schedule for logs.
func (s Schedule) String() string {
	return fmt.Sprintf("%s%s refresh=%dm window=%02d-%02d tz=%+dm",
		s.BaseURL(), s.ImageEndpoint, s.RefreshMinutes, s.ActiveStartHour, s.ActiveEndHour, s.TimezoneOffsetMinutes)
}
