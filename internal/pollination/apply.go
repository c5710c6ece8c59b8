package pollination

import (
	"github.com/byronwasti/florescence/internal/domain"
	"github.com/byronwasti/florescence/internal/itc"
)

// RealitySkewError signals that a patch application, however causally
// valid, left the map in a state whose reality token disagrees with the
// peer's. Core carries the node's state as it would be if the patch were
// accepted anyway — the caller (see handlers.go) uses it to decide which
// side should defect.
type RealitySkewError[A comparable] struct {
	Core *Node[A]
}

func (e *RealitySkewError[A]) Error() string { return domain.ErrRealitySkew.Error() }
func (e *RealitySkewError[A]) Unwrap() error { return domain.ErrRealitySkew }

// CreatePatch produces a delta to ship to a peer whose map timestamp is
// peerTS.
func (n *Node[A]) CreatePatch(peerTS itc.EventTree) itc.Patch[domain.PeerInfo[A]] {
	return n.coreMap.Diff(peerTS)
}

// applyPatchUnchecked folds patch into the map and reality token with no
// reality-token cross-check, reporting whether the patch removed the
// node's own slot (which the caller must treat specially: a clean patch
// should never do this).
func (n *Node[A]) applyPatchUnchecked(patch itc.Patch[domain.PeerInfo[A]]) (selfRemoved bool) {
	additions, removals := n.coreMap.Apply(patch)
	for _, e := range additions {
		n.realityToken = n.realityToken.Push(e.Value.UUID)
	}
	ownID, hasOwn := n.ID()
	for _, e := range removals {
		n.realityToken = n.realityToken.Push(e.Value.UUID)
		if hasOwn && itc.Equal(e.ID, ownID) {
			selfRemoved = true
		}
	}
	return selfRemoved
}

// ApplyPatch folds patch into the node's state. When the node's current
// reality token already matches peerRT, the patch is trusted and applied
// in place — any invariant violation here (self removed, token mismatch
// afterward) indicates a bug upstream and is fatal. Otherwise the patch is
// speculatively applied to a clone: if the clone's resulting token matches
// peerRT after all, the clone becomes the new live state; if it still
// doesn't (or the patch would remove the node's own slot), a
// *RealitySkewError is returned carrying that clone for the caller to
// reconcile.
func (n *Node[A]) ApplyPatch(peerRT domain.RealityToken, patch itc.Patch[domain.PeerInfo[A]]) error {
	if n.realityToken.Equal(peerRT) {
		selfRemoved := n.applyPatchUnchecked(patch)
		if selfRemoved {
			panic("pollination: clean patch (matching reality token) removed the node's own id")
		}
		if !n.realityToken.Equal(peerRT) {
			panic("pollination: reality token mismatch after an already-matching update")
		}
		return nil
	}

	clone := n.Clone()
	selfRemoved := clone.applyPatchUnchecked(patch)
	if selfRemoved || !clone.realityToken.Equal(peerRT) {
		return &RealitySkewError[A]{Core: clone}
	}
	*n = *clone
	return nil
}

// swapCores replaces n's entire state with other's, then blanks n's
// membership bookkeeping (propagativity, map, reality token) so it rejoins
// as a fresh participant under its newly-adopted uuid. Returns the
// displaced former state, which the caller (internal/flower) is
// responsible for marking Dead and broadcasting, since a node that just
// defected must tell the reality it left that its old identity is gone.
func (n *Node[A]) swapCores(other *Node[A]) *Node[A] {
	old := new(Node[A])
	*old = *n
	*n = *other
	n.propagativity.Reset()
	n.coreMap = itc.NewMap[domain.PeerInfo[A]]()
	n.realityToken = domain.ZeroToken.Push(n.uuid)
	return old
}
