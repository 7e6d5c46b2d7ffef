// Package clock provides the wall clock used by the cycle and the validity
// rule that separates a synced clock from one that never was.
package clock

import (
	"sync"
	"time"

	"golang.org/x/sys/unix"

	ferrors "git.home.luguber.info/inful/inkframe/internal/foundation/errors"
)

// ValidThreshold is the earliest instant accepted as a synced clock.
var ValidThreshold = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

// IsValid reports whether t is at or after ValidThreshold.
func IsValid(t time.Time) bool { return !t.Before(ValidThreshold) }

// Clock reads and sets UTC time.
type Clock interface {
	Now() time.Time
	Set(t time.Time) error
}

// System is the host clock. Set requires CAP_SYS_TIME.
type System struct{}

func (System) Now() time.Time { return time.Now().UTC() }

func (System) Set(t time.Time) error {
	tv := unix.NsecToTimeval(t.UnixNano())
	if err := unix.Settimeofday(&tv); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryRuntime, "failed to set system clock").
			Warning().
			WithContext("epoch", t.Unix()).
			Build()
	}
	return nil
}

// Manual is a settable in-memory clock. It backs previews and tests.
type Manual struct {
	mu   sync.Mutex
	now  time.Time
	sets int
}

func NewManual(now time.Time) *Manual { return &Manual{now: now.UTC()} }

func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *Manual) Set(t time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = t.UTC()
	m.sets++
	return nil
}

// Advance moves the clock forward without counting as a Set.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d)
}

// Sets returns how many times Set was called.
func (m *Manual) Sets() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sets
}
