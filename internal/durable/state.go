// Package durable holds the cycle state that survives a sleep but not a power
// loss. The state file lives on a runtime tmpfs and is stamped with the kernel
// boot id; a file from an earlier boot is treated as absent.
//
// All mutation goes through Store.Apply so the transitions stay auditable:
// Wake bumps the boot counter, Commit replaces the committed fingerprint after
// a confirmed render and Halt records how the previous cycle ended.
package durable

import (
	"fmt"

	ferrors "git.home.luguber.info/inful/inkframe/internal/foundation/errors"
)

// FingerprintLength is the exact length of a well-formed image fingerprint.
const FingerprintLength = 16

// ValidFingerprint reports whether fp has the fingerprint shape.
func ValidFingerprint(fp string) bool { return len(fp) == FingerprintLength }

// ExitKind records how a cycle handed control back to the platform.
type ExitKind string

const (
	ExitNone    ExitKind = ""
	ExitSleep   ExitKind = "sleep"
	ExitRestart ExitKind = "restart"
	ExitConfig  ExitKind = "config"
)

// State is the serializable durable state. The zero value is the cold-boot state.
type State struct {
	BootCount            uint32   `json:"boot_count"`
	CommittedFingerprint string   `json:"committed_fingerprint"`
	LastExit             ExitKind `json:"last_exit,omitempty"`
}

// HasImage reports whether a rendered image is known to be on the panel.
func (s State) HasImage() bool { return s.CommittedFingerprint != "" }

// EventKind names a state transition.
type EventKind string

const (
	EventWake   EventKind = "wake"
	EventCommit EventKind = "commit"
	EventHalt   EventKind = "halt"
)

// Event is one transition request.
type Event struct {
	Kind        EventKind
	Fingerprint string
	Exit        ExitKind
}

func Wake() Event                     { return Event{Kind: EventWake} }
func Commit(fingerprint string) Event { return Event{Kind: EventCommit, Fingerprint: fingerprint} }
func Halt(exit ExitKind) Event        { return Event{Kind: EventHalt, Exit: exit} }

// Next computes the successor of s under ev. It never mutates s. An empty
// commit clears the committed fingerprint: the panel shows an image whose
// identity is unknown.
func (s State) Next(ev Event) (State, error) {
	switch ev.Kind {
	case EventWake:
		s.BootCount++
		s.LastExit = ExitNone
		return s, nil
	case EventCommit:
		if ev.Fingerprint != "" && !ValidFingerprint(ev.Fingerprint) {
			return s, ferrors.ValidationError(fmt.Sprintf("fingerprint must be %d characters, got %d", FingerprintLength, len(ev.Fingerprint))).
				WithContext("fingerprint", ev.Fingerprint).
				Build()
		}
		s.CommittedFingerprint = ev.Fingerprint
		return s, nil
	case EventHalt:
		switch ev.Exit {
		case ExitSleep, ExitRestart, ExitConfig:
			s.LastExit = ev.Exit
			return s, nil
		}
		return s, ferrors.InternalError(fmt.Sprintf("unknown exit kind %q", ev.Exit)).Build()
	default:
		return s, ferrors.InternalError(fmt.Sprintf("unknown durable event %q", ev.Kind)).Build()
	}
}
