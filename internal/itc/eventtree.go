package itc

import (
	"fmt"
	"math"
)

// EventTree records, per position in the identity interval, how many events
// a replica has observed there. Leaf(n) means "n events everywhere in this
// subtree"; Node(n, l, r) means "n events everywhere, plus whatever l and r
// record on top of that" (children are deltas above the parent's base).
type EventTree interface {
	isEventTree()
	String() string
}

// Leaf is a uniform event count across an entire subtree.
type Leaf struct {
	N uint64
}

// Node is a base count plus per-half deltas.
type Node struct {
	N           uint64
	Left, Right EventTree
}

func (Leaf) isEventTree() {}
func (Node) isEventTree() {}

func (l Leaf) String() string { return fmt.Sprintf("%d", l.N) }
func (n Node) String() string {
	return fmt.Sprintf("(%d,%s,%s)", n.N, n.Left.String(), n.Right.String())
}

// ZeroEvent is the event tree of a replica that has observed nothing.
var ZeroEvent EventTree = Leaf{N: 0}

func expand(e EventTree) Node {
	if n, ok := e.(Node); ok {
		return n
	}
	l := e.(Leaf)
	return Node{N: l.N, Left: Leaf{0}, Right: Leaf{0}}
}

func lift(e EventTree, d uint64) EventTree {
	if d == 0 {
		return e
	}
	switch v := e.(type) {
	case Leaf:
		return Leaf{N: v.N + d}
	case Node:
		return Node{N: v.N + d, Left: v.Left, Right: v.Right}
	default:
		return e
	}
}

func normalizeEvent(e EventTree) EventTree {
	n, ok := e.(Node)
	if !ok {
		return e
	}
	ll, lok := n.Left.(Leaf)
	rl, rok := n.Right.(Leaf)
	if lok && rok && ll.N == rl.N {
		return Leaf{N: n.N + ll.N}
	}
	return e
}

// Leq reports whether a is pointwise less-than-or-equal to b at every
// position in the interval.
func Leq(a, b EventTree) bool {
	al, aok := a.(Leaf)
	bl, bok := b.(Leaf)
	if aok && bok {
		return al.N <= bl.N
	}
	if aok {
		return Leq(expand(a), b)
	}
	if bok {
		return Leq(a, expand(b))
	}
	an, bn := a.(Node), b.(Node)
	if an.N > bn.N {
		return false
	}
	d := bn.N - an.N
	return Leq(an.Left, lift(bn.Left, d)) && Leq(an.Right, lift(bn.Right, d))
}

// Ordering describes the result of comparing two EventTrees under the
// partial order induced by Leq.
type Ordering int

const (
	Equivalent Ordering = iota
	Less
	Greater
	Incomparable
)

func (o Ordering) String() string {
	switch o {
	case Equivalent:
		return "equal"
	case Less:
		return "less"
	case Greater:
		return "greater"
	default:
		return "incomparable"
	}
}

// Compare determines a's relation to b under the ITC partial order.
func Compare(a, b EventTree) Ordering {
	aLeqB := Leq(a, b)
	bLeqA := Leq(b, a)
	switch {
	case aLeqB && bLeqA:
		return Equivalent
	case aLeqB:
		return Less
	case bLeqA:
		return Greater
	default:
		return Incomparable
	}
}

// EventJoin takes the pointwise maximum of two event trees, used to fold a
// peer's advertised clock into the local one without losing either side's
// history.
func EventJoin(a, b EventTree) EventTree {
	al, aok := a.(Leaf)
	bl, bok := b.(Leaf)
	if aok && bok {
		if al.N >= bl.N {
			return al
		}
		return bl
	}
	an, bn := expand(a), expand(b)
	base := an.N
	var other uint64
	if bn.N > an.N {
		base = bn.N
	}
	var lo, hi Node
	if an.N <= bn.N {
		lo, hi, other = an, bn, bn.N-an.N
		return normalizeEvent(Node{
			N:     base,
			Left:  EventJoin(lift(lo.Left, other), hi.Left),
			Right: EventJoin(lift(lo.Right, other), hi.Right),
		})
	}
	lo, hi, other = bn, an, an.N-bn.N
	return normalizeEvent(Node{
		N:     base,
		Left:  EventJoin(lift(lo.Left, other), hi.Left),
		Right: EventJoin(lift(lo.Right, other), hi.Right),
	})
}

// minEvent returns the smallest event count recorded anywhere in e's
// subtree: a Leaf is uniform, so its own count; a Node's children are
// deltas above its base, so its base plus whichever child is behind.
func minEvent(e EventTree) uint64 {
	switch v := e.(type) {
	case Leaf:
		return v.N
	case Node:
		l, r := minEvent(v.Left), minEvent(v.Right)
		if l < r {
			return v.N + l
		}
		return v.N + r
	default:
		return 0
	}
}

// minEventAt returns the smallest event count recorded anywhere within id's
// owned interval of e, or math.MaxUint64 if id owns nothing. Diff uses this
// to tell whether a peer's reported clock already dominates a given entry's
// slot without needing a separate per-entry timestamp.
func minEventAt(e EventTree, id IDTree) uint64 {
	switch t := id.(type) {
	case idZero:
		return math.MaxUint64
	case idOne:
		return minEvent(e)
	case Branch:
		n := expand(e)
		best := uint64(math.MaxUint64)
		if !IsZero(t.Left) {
			if v := n.N + minEventAt(n.Left, t.Left); v < best {
				best = v
			}
		}
		if !IsZero(t.Right) {
			if v := n.N + minEventAt(n.Right, t.Right); v < best {
				best = v
			}
		}
		return best
	default:
		return 0
	}
}

// Bump grows e at the positions owned by id, producing a strictly greater
// (Leq-dominating) event tree. This is a simplified, always-correct grow
// step: it favors monotonic correctness of the causal order over the
// maximally compact trees the original ITC "fill+grow" algorithm produces.
func Bump(id IDTree, e EventTree) EventTree {
	switch t := id.(type) {
	case idZero:
		return e
	case idOne:
		switch v := e.(type) {
		case Leaf:
			return Leaf{N: v.N + 1}
		case Node:
			return Node{N: v.N + 1, Left: v.Left, Right: v.Right}
		default:
			return e
		}
	case Branch:
		n := expand(e)
		switch {
		case IsZero(t.Left):
			return normalizeEvent(Node{N: n.N, Left: n.Left, Right: Bump(t.Right, n.Right)})
		case IsZero(t.Right):
			return normalizeEvent(Node{N: n.N, Left: Bump(t.Left, n.Left), Right: n.Right})
		default:
			return normalizeEvent(Node{N: n.N, Left: Bump(t.Left, n.Left), Right: Bump(t.Right, n.Right)})
		}
	default:
		return e
	}
}
