package domain

import "github.com/google/uuid"

// PeerStatus records whether a PeerInfo slot refers to a live peer or a
// tombstone left behind after a departure.
type PeerStatus uint8

const (
	Healthy PeerStatus = iota
	Dead
)

func (s PeerStatus) String() string {
	if s == Dead {
		return "dead"
	}
	return "healthy"
}

// PeerInfo is the value stored at each slot of a replicated membership map:
// a peer's identity, its last-known address (absent once it has no address
// yet, or once it is Dead), and its status.
type PeerInfo[A comparable] struct {
	UUID   uuid.UUID
	Addr   *A
	Status PeerStatus
}

// NewPeerInfo builds a Healthy entry.
func NewPeerInfo[A comparable](id uuid.UUID, addr A) PeerInfo[A] {
	return PeerInfo[A]{UUID: id, Addr: &addr, Status: Healthy}
}

// DeadPeerInfo builds the tombstone sentinel: zero UUID, no address, Dead
// status. Every reclaimed/removed slot converges to this exact value so
// that tombstones compare Equal regardless of who produced them.
func DeadPeerInfo[A comparable]() PeerInfo[A] {
	return PeerInfo[A]{Status: Dead}
}

// IsDead reports whether this slot is a tombstone.
func (p PeerInfo[A]) IsDead() bool { return p.Status == Dead }

// Equal implements itc.Equatable so Map.Apply can detect true no-ops.
func (p PeerInfo[A]) Equal(other PeerInfo[A]) bool {
	if p.UUID != other.UUID || p.Status != other.Status {
		return false
	}
	switch {
	case p.Addr == nil && other.Addr == nil:
		return true
	case p.Addr == nil || other.Addr == nil:
		return false
	default:
		return *p.Addr == *other.Addr
	}
}
