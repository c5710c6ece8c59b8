package propagativity

import (
	"testing"
	"time"

	"github.com/byronwasti/florescence/internal/itc"
)

func TestUnknownNeverPropagates(t *testing.T) {
	clock := time.Unix(0, 0)
	s := New(time.Second, func() time.Time { return clock })
	if _, ok := s.Propagate(); ok {
		t.Fatalf("Unknown state should never propagate")
	}
	if _, ok := s.ID(); ok {
		t.Fatalf("Unknown state should have no id")
	}
}

func TestPropagateThrottles(t *testing.T) {
	clock := time.Unix(0, 0)
	now := func() time.Time { return clock }
	s := New(time.Second, now)
	s.Seed(itc.One)

	if _, ok := s.Propagate(); !ok {
		t.Fatalf("first propagate (Propagating phase) should succeed")
	}

	// Immediately resting: a second call within the timeout must be
	// refused.
	if _, ok := s.Propagate(); ok {
		t.Fatalf("second propagate within the timeout window should be refused")
	}

	// Advance past the timeout: propagate should succeed again.
	clock = clock.Add(2 * time.Second)
	if _, ok := s.Propagate(); !ok {
		t.Fatalf("propagate after the timeout elapses should succeed")
	}
}

func TestPropagateForksDisjointIdentities(t *testing.T) {
	clock := time.Unix(0, 0)
	s := New(time.Second, func() time.Time { return clock })
	s.Seed(itc.One)

	given, ok := s.Propagate()
	if !ok {
		t.Fatalf("expected a fork")
	}
	kept, _ := s.ID()
	if !itc.Equal(itc.Join(kept, given), itc.One) {
		t.Fatalf("kept and given halves should reassemble to the original id")
	}
}

func TestForcePropagatingResetsRestTimer(t *testing.T) {
	clock := time.Unix(0, 0)
	s := New(time.Second, func() time.Time { return clock })
	s.Seed(itc.One)
	s.Propagate() // now Resting

	s.ForcePropagating()
	if _, ok := s.Propagate(); !ok {
		t.Fatalf("forcing back to Propagating should allow an immediate fork")
	}
}
