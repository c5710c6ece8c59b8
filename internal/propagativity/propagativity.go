// Package propagativity implements the rate-limited state machine that
// decides whether a node is currently willing to fork off part of its ITC
// identity for a newcomer.
package propagativity

import (
	"fmt"
	"time"

	"github.com/byronwasti/florescence/internal/itc"
)

type kind uint8

const (
	unknown kind = iota
	propagating
	resting
)

// DefaultTimeout bounds how often a node will fork its identity for a new
// member once it has started doing so.
const DefaultTimeout = 5 * time.Second

// State tracks whether (and since when) a node has last forked its
// identity. It is not safe for concurrent use: callers drive it from a
// single-threaded event loop, same as the rest of this module.
type State struct {
	kind    kind
	id      itc.IDTree
	since   time.Time
	timeout time.Duration
	now     func() time.Time
}

// New returns a State in the Unknown phase: no identity to offer yet.
func New(timeout time.Duration, now func() time.Time) *State {
	if now == nil {
		now = time.Now
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &State{kind: unknown, timeout: timeout, now: now}
}

// NewResting returns a State already holding id in the Resting phase, as of
// now(). Used to bootstrap the very first node in a group, which starts out
// owning the entire interval.
func NewResting(timeout time.Duration, now func() time.Time, id itc.IDTree) *State {
	s := New(timeout, now)
	s.kind = resting
	s.id = id
	s.since = s.now()
	return s
}

// ID returns the identity currently being offered, if any.
func (s *State) ID() (itc.IDTree, bool) {
	switch s.kind {
	case propagating, resting:
		return s.id, true
	default:
		return nil, false
	}
}

// ForcePropagating drops any rest-timer in progress and moves the state
// back to Propagating, keeping whatever identity it already held. A no-op
// while Unknown: there is no identity yet to offer early.
func (s *State) ForcePropagating() {
	switch s.kind {
	case propagating, resting:
		s.kind = propagating
	}
}

// Seed moves the state out of Unknown by assigning it an initial identity
// to propagate from. Used once a node has learned its own ITC identity.
func (s *State) Seed(id itc.IDTree) {
	s.kind = propagating
	s.id = id
}

// Reclaim moves straight to Resting with a freshly-reclaimed identity,
// resetting the throttle window. Used after internal/recycling folds a
// departed peer's interval back into this node's own.
func (s *State) Reclaim(id itc.IDTree) {
	s.kind = resting
	s.id = id
	s.since = s.now()
}

// Reset discards any held identity, returning to Unknown. Used when a node
// adopts another replica's core wholesale during reality-skew defection and
// must re-request an identity of its own from scratch.
func (s *State) Reset() {
	s.kind = unknown
	s.id = nil
}

// Clone returns an independent copy of s.
func (s *State) Clone() *State {
	cp := *s
	return &cp
}

// Propagate forks off half of the currently-held identity and hands it
// back to the caller, provided the rate limit allows it: once Resting, a
// further fork is only granted after timeout has elapsed since the last
// one. Returns (forkedID, true) when a fork happened, (nil, false)
// otherwise.
func (s *State) Propagate() (itc.IDTree, bool) {
	switch s.kind {
	case propagating:
		kept, given := itc.Fork(s.id)
		s.id = kept
		s.kind = resting
		s.since = s.now()
		return given, true
	case resting:
		if s.now().Sub(s.since) > s.timeout {
			kept, given := itc.Fork(s.id)
			s.id = kept
			s.since = s.now()
			return given, true
		}
		return nil, false
	default:
		return nil, false
	}
}

func (s *State) String() string {
	switch s.kind {
	case propagating:
		return fmt.Sprintf("p.%s", s.id)
	case resting:
		return fmt.Sprintf("r.%s", s.id)
	default:
		return "x"
	}
}
