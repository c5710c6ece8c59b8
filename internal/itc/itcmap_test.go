package itc

import "testing"

type strVal string

func (s strVal) Equal(other strVal) bool { return s == other }

func TestMapInsertAndGet(t *testing.T) {
	m := NewMap[strVal]()
	left, right := Fork(One)
	m.Insert(left, "alice")
	m.Insert(right, "bob")

	if v, ok := m.Get(left); !ok || v != "alice" {
		t.Fatalf("Get(left) = %v, %v", v, ok)
	}
	if m.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", m.Len())
	}
}

func TestMapInsertDisplacesSubsumed(t *testing.T) {
	m := NewMap[strVal]()
	left, right := Fork(One)
	m.Insert(left, "alice")
	m.Insert(right, "bob")

	displaced := m.Insert(One, "merged")
	if len(displaced) != 2 {
		t.Fatalf("expected both entries displaced, got %d", len(displaced))
	}
	if m.Len() != 1 {
		t.Fatalf("Len() = %d, want 1 after reclaim", m.Len())
	}
	if v, ok := m.Get(One); !ok || v != "merged" {
		t.Fatalf("Get(One) = %v, %v", v, ok)
	}
}

func TestMapApplyIdempotent(t *testing.T) {
	src := NewMap[strVal]()
	left, right := Fork(One)
	src.Insert(left, "alice")
	src.Insert(right, "bob")
	patch := src.Diff(ZeroEvent)

	dst := NewMap[strVal]()
	add1, rem1 := dst.Apply(patch)
	if len(add1) != 2 || len(rem1) != 0 {
		t.Fatalf("first apply: additions=%d removals=%d, want 2,0", len(add1), len(rem1))
	}
	ts1 := dst.Timestamp()

	add2, rem2 := dst.Apply(patch)
	if len(add2) != 0 || len(rem2) != 0 {
		t.Fatalf("second apply should be a no-op, got additions=%d removals=%d", len(add2), len(rem2))
	}
	if Compare(ts1, dst.Timestamp()) != Equivalent {
		t.Fatalf("timestamp should not change on idempotent re-apply")
	}
}

func TestMapDiffOmitsEntriesPeerAlreadyHas(t *testing.T) {
	src := NewMap[strVal]()
	left, right := Fork(One)
	src.Insert(left, "alice")
	src.Insert(right, "bob")

	dst := NewMap[strVal]()
	add, _ := dst.Apply(src.Diff(ZeroEvent))
	if len(add) != 2 {
		t.Fatalf("initial sync: additions=%d, want 2", len(add))
	}

	src.Insert(left, "alice2")
	patch := src.Diff(dst.Timestamp())
	if len(patch.Entries) != 1 || patch.Entries[0].Value != "alice2" {
		t.Fatalf("patch.Entries = %+v, want only alice's updated entry", patch.Entries)
	}

	add, _ = dst.Apply(patch)
	if len(add) != 1 {
		t.Fatalf("second sync: additions=%d, want 1", len(add))
	}
	if v, ok := dst.Get(left); !ok || v != "alice2" {
		t.Fatalf("dst.Get(left) = %v, %v, want alice2", v, ok)
	}
	if v, ok := dst.Get(right); !ok || v != "bob" {
		t.Fatalf("dst.Get(right) = %v, %v, want bob unchanged", v, ok)
	}
}

func TestMapDiffThenApplyConverges(t *testing.T) {
	a := NewMap[strVal]()
	left, right := Fork(One)
	a.Insert(left, "alice")

	b := NewMap[strVal]()
	b.Insert(right, "bob")

	patchFromB := b.Diff(a.Timestamp())
	a.Apply(patchFromB)

	if a.Len() != 2 {
		t.Fatalf("a.Len() = %d, want 2 after merging b's patch", a.Len())
	}
	if v, ok := a.Get(right); !ok || v != "bob" {
		t.Fatalf("a should now know about bob: %v, %v", v, ok)
	}
}
