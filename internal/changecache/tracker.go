package changecache

import "git.home.luguber.info/inful/inkframe/internal/durable"

// Phase of the cycle-scoped pending fingerprint.
type Phase string

const (
	PhaseNoPending Phase = "no_pending"
	PhasePending   Phase = "pending"
	PhaseCommitted Phase = "committed"
	PhaseDiscarded Phase = "discarded"
)

// Tracker is the pending-fingerprint state machine:
// NoPending -> Pending(token) -> Committed(token) | Discarded.
// Committed and Discarded are terminal for the cycle.
type Tracker struct {
	phase   Phase
	pending string
}

func NewTracker() *Tracker { return &Tracker{phase: PhaseNoPending} }

func (t *Tracker) Phase() Phase     { return t.phase }
func (t *Tracker) Pending() string { return t.pending }

func (t *Tracker) terminal() bool {
	return t.phase == PhaseCommitted || t.phase == PhaseDiscarded
}

// Stage records a well-formed fingerprint observed by the check.
func (t *Tracker) Stage(fp string) {
	if t.terminal() || !durable.ValidFingerprint(fp) {
		return
	}
	t.phase = PhasePending
	t.pending = fp
}

// Clear drops any pending token after an "unchanged" check.
func (t *Tracker) Clear() {
	if t.terminal() {
		return
	}
	t.phase = PhaseNoPending
	t.pending = ""
}

// Discard abandons the pending token after a failed or skipped render.
func (t *Tracker) Discard() {
	if t.terminal() {
		return
	}
	t.phase = PhaseDiscarded
	t.pending = ""
}

// Resolve decides what to commit after a confirmed render. A well-formed
// response header wins; otherwise the pending token; otherwise the empty
// fingerprint, since the panel now shows an image of unknown identity.
// It returns false when the tracker was already terminal.
func (t *Tracker) Resolve(responseFingerprint string) (string, bool) {
	if t.terminal() {
		return "", false
	}
	token := ""
	switch {
	case durable.ValidFingerprint(responseFingerprint):
		token = responseFingerprint
	case t.phase == PhasePending:
		token = t.pending
	}
	t.phase = PhaseCommitted
	t.pending = token
	return token, true
}
