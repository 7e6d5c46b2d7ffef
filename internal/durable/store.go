package durable

import (
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"sync"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/inkframe/internal/fileutil"
	ferrors "git.home.luguber.info/inful/inkframe/internal/foundation/errors"
	"git.home.luguber.info/inful/inkframe/internal/logfields"
)

// WakeReason describes why the current cycle started.
type WakeReason string

const (
	WakeColdBoot WakeReason = "cold_boot"
	WakeTimer    WakeReason = "timer"
	WakeRestart  WakeReason = "restart"
	WakeConfig   WakeReason = "config_exit"
	WakeUnknown  WakeReason = "unknown"
)

type fileFormat struct {
	BootID uuid.UUID `json:"boot_id"`
	State  State     `json:"state"`
}

// Store persists State tagged with the current boot id.
type Store struct {
	mu         sync.Mutex
	path       string
	bootIDPath string
	bootID     uuid.UUID
	current    State
	logger     *slog.Logger
}

// NewStore creates a store for path. bootIDPath is read on Load; when it is
// unreadable the state is tagged with the nil UUID and never expires.
func NewStore(path, bootIDPath string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{path: path, bootIDPath: bootIDPath, logger: logger}
}

// Load reads the retained state. Missing, unreadable or foreign-boot files
// all produce the zero state with WakeColdBoot.
func (s *Store) Load() (State, WakeReason) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := ReadBootID(s.bootIDPath)
	if err != nil {
		s.logger.Warn("Boot id unavailable; durable state will not detect power loss",
			logfields.Path(s.bootIDPath), logfields.Error(err))
		id = uuid.Nil
	}
	s.bootID = id
	s.current = State{}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("Durable state unreadable", logfields.Path(s.path), logfields.Error(err))
		}
		return s.current, WakeColdBoot
	}

	var stored fileFormat
	if err := json.Unmarshal(data, &stored); err != nil {
		s.logger.Warn("Durable state corrupt, starting cold", logfields.Path(s.path), logfields.Error(err))
		return s.current, WakeColdBoot
	}
	if stored.BootID != id {
		return s.current, WakeColdBoot
	}
	if stored.State.CommittedFingerprint != "" && !ValidFingerprint(stored.State.CommittedFingerprint) {
		stored.State.CommittedFingerprint = ""
	}

	s.current = stored.State
	switch stored.State.LastExit {
	case ExitSleep:
		return s.current, WakeTimer
	case ExitRestart:
		return s.current, WakeRestart
	case ExitConfig:
		return s.current, WakeConfig
	default:
		return s.current, WakeUnknown
	}
}

// Current returns the in-memory state.
func (s *Store) Current() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Apply is the single mutation entry point. The successor state is persisted
// before it becomes current; on error nothing changes.
func (s *Store) Apply(ev Event) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := s.current.Next(ev)
	if err != nil {
		return s.current, err
	}
	if err := s.save(next); err != nil {
		return s.current, err
	}
	s.current = next
	return next, nil
}

// Reset discards the retained state as if the device had lost power.
func (s *Store) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return ferrors.WrapError(err, ferrors.CategoryStorage, "failed to remove durable state").
			WithContext("path", s.path).Build()
	}
	s.current = State{}
	return nil
}

func (s *Store) save(st State) error {
	data, err := json.MarshalIndent(fileFormat{BootID: s.bootID, State: st}, "", "  ")
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryInternal, "failed to encode durable state").Build()
	}
	if err := fileutil.WriteAtomic(s.path, data, 0o600); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryStorage, "failed to persist durable state").
			WithContext("path", s.path).Build()
	}
	return nil
}
