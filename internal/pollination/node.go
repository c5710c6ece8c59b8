// Package pollination implements the single-threaded core state machine
// that owns a node's ITC identity, its replicated membership map, and its
// reality token, and answers the five wire messages with the next message
// (if any) a caller should send back.
package pollination

import (
	"time"

	"github.com/google/uuid"

	"github.com/byronwasti/florescence/internal/domain"
	"github.com/byronwasti/florescence/internal/itc"
	"github.com/byronwasti/florescence/internal/propagativity"
	"github.com/byronwasti/florescence/internal/recycling"
)

// Node is the pollination core: identity, causal map, and reality token for
// a single group member. A, the address type, is whatever the surrounding
// transport (internal/engine/*) addresses peers with.
type Node[A comparable] struct {
	uuid         uuid.UUID
	propagativity *propagativity.State
	realityToken domain.RealityToken
	coreMap      *itc.Map[domain.PeerInfo[A]]
	ownInfo      domain.PeerInfo[A]
}

// New bootstraps a fresh node that owns the entire identity interval — the
// first member of a new group. A node joining an existing group instead
// starts from NewJoining and waits for a Seed response.
func New[A comparable](id uuid.UUID, addr A, propagationTimeout time.Duration, now func() time.Time) *Node[A] {
	ownInfo := domain.NewPeerInfo(id, addr)
	coreMap := itc.NewMap[domain.PeerInfo[A]]()
	coreMap.Insert(itc.One, ownInfo)
	return &Node[A]{
		uuid:          id,
		propagativity: propagativity.NewResting(propagationTimeout, now, itc.One),
		realityToken:  domain.ZeroToken.Push(id),
		coreMap:       coreMap,
		ownInfo:       ownInfo,
	}
}

// NewJoining bootstraps a node with no identity of its own yet: it knows
// nothing about the group and must wait for a Seed response to a NewMember
// announcement before it can participate.
func NewJoining[A comparable](id uuid.UUID, addr A, propagationTimeout time.Duration, now func() time.Time) *Node[A] {
	return &Node[A]{
		uuid:          id,
		propagativity: propagativity.New(propagationTimeout, now),
		realityToken:  domain.ZeroToken.Push(id),
		coreMap:       itc.NewMap[domain.PeerInfo[A]](),
		ownInfo:       domain.NewPeerInfo(id, addr),
	}
}

// UUID returns the node's stable identity (distinct from its ITC IDTree,
// which can change as the group reshapes).
func (n *Node[A]) UUID() uuid.UUID { return n.uuid }

// Timestamp returns the embedded clock of the node's membership map.
func (n *Node[A]) Timestamp() itc.EventTree { return n.coreMap.Timestamp() }

// ID returns the node's current ITC identity, if it has been granted one.
func (n *Node[A]) ID() (itc.IDTree, bool) { return n.propagativity.ID() }

// PeerCount returns the number of slots (live or tombstoned) in the map.
func (n *Node[A]) PeerCount() int { return n.coreMap.Len() }

// RealityToken returns the node's current reality token.
func (n *Node[A]) RealityToken() domain.RealityToken { return n.realityToken }

// Propagativity exposes the underlying throttle state, e.g. for
// ForcePropagating test harnesses (see SPEC_FULL.md §11).
func (n *Node[A]) Propagativity() *propagativity.State { return n.propagativity }

// Bump re-asserts the node's own entry in the map, advancing its clock.
// Driven periodically by the runtime so idle nodes still make progress
// against peers that are behind.
func (n *Node[A]) Bump() bool { return n.setRaw(n.ownInfo) }

// setRaw re-inserts info at the node's own id, folding any displaced peers'
// uuids into the reality token. Widening the node's own id (ReapSouls,
// Propagate's complement) can displace this node's own prior, narrower
// slot alongside whatever dead space it subsumed; re-publishing the same
// identity isn't a membership change, so that particular displacement is
// excluded from the fold — only a displaced entry belonging to some other
// uuid represents a real departure worth recording.
func (n *Node[A]) setRaw(info domain.PeerInfo[A]) bool {
	id, ok := n.ID()
	if !ok {
		return false
	}
	removed := n.coreMap.Insert(id, info)
	for _, e := range removed {
		if e.Value.UUID == n.uuid {
			continue
		}
		n.realityToken = n.realityToken.Push(e.Value.UUID)
	}
	return true
}

// MarkDead overwrites the slot at id with a tombstone, if a live entry is
// there, folding the departing peer's uuid into the reality token — this is
// the node's own record that the peer has left, independent of whether or
// when ReapSouls later reclaims the id. Declaring a peer dead in the first
// place is the runtime's call (see internal/flower and DESIGN.md's
// open-question resolution); this just records that call.
func (n *Node[A]) MarkDead(id itc.IDTree) bool {
	if v, ok := n.coreMap.Get(id); !ok || v.IsDead() {
		return false
	}
	removed := n.coreMap.Insert(id, domain.DeadPeerInfo[A]())
	for _, e := range removed {
		n.realityToken = n.realityToken.Push(e.Value.UUID)
	}
	return true
}

// ReapSouls folds any dead peers' ids into this node's own identity where
// contiguous, shrinking the group's dead space. Returns whether a reclaim
// happened. The criterion for declaring a peer dead in the first place
// lives one layer up, in internal/flower (see DESIGN.md's open-question
// resolution) — this only ever acts on peers already marked Dead.
func (n *Node[A]) ReapSouls() bool {
	var deadUnion itc.IDTree
	found := false
	for _, e := range n.coreMap.All() {
		if !e.Value.IsDead() {
			continue
		}
		if !found {
			deadUnion = e.ID
			found = true
		} else {
			deadUnion = itc.Join(deadUnion, e.ID)
		}
	}
	if !found {
		return false
	}
	ownID, ok := n.ID()
	if !ok {
		return false
	}
	newID := recycling.ClaimIDs(ownID, deadUnion)
	if itc.Equal(newID, ownID) {
		return false
	}
	n.propagativity.Reclaim(newID)
	n.setRaw(n.ownInfo)
	return true
}

// Propagate forks off part of the node's identity for a newcomer, subject
// to the propagativity throttle. Forking shrinks the node's own id, so the
// map slot it used to occupy under the wider, pre-fork id is explicitly
// cleaned up: Insert's displacement logic only catches the opposite case
// (a new id that's a superset of an old one), not this one.
func (n *Node[A]) Propagate() (itc.IDTree, bool) {
	oldID, hadID := n.ID()
	given, ok := n.propagativity.Propagate()
	if !ok {
		return nil, false
	}
	newID, _ := n.ID()
	if hadID && !itc.Equal(oldID, newID) {
		n.coreMap.Remove(oldID)
	}
	n.setRaw(n.ownInfo)
	return given, true
}

// Clone returns an independent copy, used by ApplyPatch's untrusted path to
// speculatively apply a patch without corrupting live state if it turns out
// to signal a reality skew.
func (n *Node[A]) Clone() *Node[A] {
	return &Node[A]{
		uuid:          n.uuid,
		propagativity: n.propagativity.Clone(),
		realityToken:  n.realityToken,
		coreMap:       n.coreMap.Clone(),
		ownInfo:       n.ownInfo,
	}
}
