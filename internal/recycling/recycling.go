// Package recycling implements claim_ids: folding a departed peer's ITC
// identity back into whichever neighbor is contiguous with it, so that the
// group's owned interval stays compact instead of accumulating
// permanently-orphaned dead zones.
package recycling

import "github.com/byronwasti/florescence/internal/itc"

// ClaimIDs reclaims whatever part of deadPeers' interval is contiguous with
// own, returning an updated own identity. Non-contiguous dead regions are
// left alone — only a defunct id directly adjacent to (one full subtree
// next to) a live one gets folded in; internal/pollination's reaper keeps
// calling this as more peers die and ids sit long enough to becomes
// adjacent.
func ClaimIDs(own, deadPeers itc.IDTree) itc.IDTree {
	return convert(recurse(own, deadPeers))
}

// reclaimKind mirrors IdReclaimTree from the algorithm this is ported from:
// an extra "in progress" vocabulary (Dead, TrendingLeft, TrendingRight) not
// present in itc.IDTree itself, used only while folding dead intervals in.
type reclaimKind uint8

const (
	rZero reclaimKind = iota
	rDead
	rOne
	rSub
	rTrendingLeft
	rTrendingRight
)

type reclaim struct {
	kind        reclaimKind
	left, right *reclaim
}

func leaf(k reclaimKind) *reclaim { return &reclaim{kind: k} }
func branch(k reclaimKind, l, r *reclaim) *reclaim {
	return &reclaim{kind: k, left: l, right: r}
}

func recurse(own, dead itc.IDTree) *reclaim {
	ownIsZero, ownIsOne := itc.IsZero(own), itc.IsOne(own)
	deadIsZero, deadIsOne := itc.IsZero(dead), itc.IsOne(dead)
	ownBranch, ownIsBranch := itc.AsBranch(own)
	deadBranch, deadIsBranch := itc.AsBranch(dead)

	switch {
	case ownIsZero && deadIsZero:
		return leaf(rZero)
	case ownIsZero && deadIsOne:
		return leaf(rDead)
	case ownIsOne && deadIsZero:
		return leaf(rOne)
	case ownIsOne && deadIsOne:
		panic("recycling: own and dead both claim the full interval")
	case ownIsZero && deadIsBranch:
		return leaf(rZero)
	case ownIsOne && deadIsBranch:
		panic("recycling: own is One but dead is a strict subset")
	case ownIsBranch && deadIsOne:
		panic("recycling: dead is One but own is a strict subset")

	case ownIsBranch && deadIsZero:
		l := recurse(ownBranch.Left, itc.Zero)
		r := recurse(ownBranch.Right, itc.Zero)
		switch {
		case l.kind == rTrendingLeft || l.kind == rOne:
			return branch(rTrendingLeft, l, r)
		case r.kind == rTrendingRight || r.kind == rOne:
			return branch(rTrendingRight, l, r)
		default:
			return branch(rSub, l, r)
		}

	case ownIsBranch && deadIsBranch:
		l := recurse(ownBranch.Left, deadBranch.Left)
		r := recurse(ownBranch.Right, deadBranch.Right)
		return mergeBranch(l, r)

	default:
		panic("recycling: unreachable own/dead combination")
	}
}

func mergeBranch(l, r *reclaim) *reclaim {
	switch {
	case l.kind == rDead && r.kind == rDead:
		panic("recycling: both halves dead with no live owner")
	case (l.kind == rDead || l.kind == rZero) && (r.kind == rDead || r.kind == rZero):
		return leaf(rZero)
	case (l.kind == rOne && r.kind == rDead) || (l.kind == rDead && r.kind == rOne):
		return leaf(rOne)
	case l.kind == rTrendingRight && r.kind == rDead:
		return branch(rSub, leaf(rZero), leaf(rOne))
	case l.kind == rDead && r.kind == rTrendingLeft:
		return branch(rSub, leaf(rOne), leaf(rZero))
	case l.kind == rTrendingLeft && r.kind == rZero:
		return branch(rTrendingLeft, l, leaf(rZero))
	case l.kind == rZero && r.kind == rTrendingRight:
		return branch(rTrendingRight, leaf(rZero), r)
	case isSpread(l) && isSpread(r):
		panic("recycling: two non-trivial reclaim fronts collided")
	default:
		return branch(rSub, l, r)
	}
}

func isSpread(t *reclaim) bool {
	switch t.kind {
	case rTrendingLeft, rTrendingRight, rSub:
		return true
	default:
		return false
	}
}

func convert(t *reclaim) itc.IDTree {
	switch t.kind {
	case rDead, rZero:
		return itc.Zero
	case rOne:
		return itc.One
	default:
		return itc.Sub(convert(t.left), convert(t.right))
	}
}
