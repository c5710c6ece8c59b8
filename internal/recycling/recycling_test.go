package recycling

import (
	"testing"

	"github.com/byronwasti/florescence/internal/itc"
)

// These cases are ported one-for-one from the reference claim_ids test
// vectors: same own/dead interval shapes, same expected result shapes
// (rendered through itc.IDTree.String, which omits the space the original
// renderer used after each comma).

func TestBasicReclaim(t *testing.T) {
	own := itc.Sub(itc.One, itc.Zero)
	dead := itc.Sub(itc.Zero, itc.One)
	got := ClaimIDs(own, dead)
	if got.String() != "1" {
		t.Fatalf("got %s, want 1", got)
	}
}

func TestNestedReclaimLeft(t *testing.T) {
	own := itc.Sub(itc.Zero, itc.Sub(itc.One, itc.Zero))
	dead := itc.Sub(itc.One, itc.Zero)
	got := ClaimIDs(own, dead)
	if got.String() != "(1,0)" {
		t.Fatalf("got %s, want (1,0)", got)
	}
}

func TestDoublyNestedReclaimLeft(t *testing.T) {
	own := itc.Sub(itc.Zero, itc.Sub(itc.Sub(itc.One, itc.Zero), itc.Zero))
	dead := itc.Sub(itc.One, itc.Zero)
	got := ClaimIDs(own, dead)
	if got.String() != "(1,0)" {
		t.Fatalf("got %s, want (1,0)", got)
	}
}

func TestNestedReclaimRight(t *testing.T) {
	own := itc.Sub(itc.Sub(itc.Zero, itc.One), itc.Zero)
	dead := itc.Sub(itc.Zero, itc.One)
	got := ClaimIDs(own, dead)
	if got.String() != "(0,1)" {
		t.Fatalf("got %s, want (0,1)", got)
	}
}

func TestDoublyNestedReclaimRight(t *testing.T) {
	own := itc.Sub(itc.Sub(itc.Zero, itc.Sub(itc.Zero, itc.One)), itc.Zero)
	dead := itc.Sub(itc.Zero, itc.One)
	got := ClaimIDs(own, dead)
	if got.String() != "(0,1)" {
		t.Fatalf("got %s, want (0,1)", got)
	}
}

func TestNoReclaim(t *testing.T) {
	own := itc.Sub(itc.Sub(itc.Zero, itc.Sub(itc.One, itc.Zero)), itc.Zero)
	dead := itc.Sub(itc.Zero, itc.One)
	got := ClaimIDs(own, dead)
	if got.String() != "((0,(1,0)),0)" {
		t.Fatalf("got %s, want ((0,(1,0)),0)", got)
	}
}

func TestSomeReclaim(t *testing.T) {
	own := itc.Sub(itc.Sub(itc.Zero, itc.Sub(itc.One, itc.Zero)), itc.Zero)
	dead := itc.Sub(itc.Sub(itc.Zero, itc.Sub(itc.Zero, itc.One)), itc.One)
	got := ClaimIDs(own, dead)
	if got.String() != "((0,1),0)" {
		t.Fatalf("got %s, want ((0,1),0)", got)
	}
}

// ReapSouls (spec end-to-end scenario): a live peer's own id should expand
// to cover a departed neighbor's id once that neighbor is marked dead, so
// that the group's owned interval stays a single contiguous One once every
// other peer has gone.
func TestReapSoulsConverges(t *testing.T) {
	left, right := itc.Fork(itc.One)
	reclaimed := ClaimIDs(left, right)
	if !itc.Equal(reclaimed, itc.One) {
		t.Fatalf("reclaiming the only other half should restore One, got %s", reclaimed)
	}
}
