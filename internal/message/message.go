// Package message defines the wire protocol's five message kinds and their
// binary codec.
package message

import (
	"github.com/google/uuid"

	"github.com/byronwasti/florescence/internal/domain"
	"github.com/byronwasti/florescence/internal/itc"
)

// Kind tags which of the five message shapes a Message carries.
type Kind uint8

const (
	Heartbeat Kind = iota
	Update
	RealitySkew
	Seed
	NewMember
)

func (k Kind) String() string {
	switch k {
	case Heartbeat:
		return "heartbeat"
	case Update:
		return "update"
	case RealitySkew:
		return "reality_skew"
	case Seed:
		return "seed"
	case NewMember:
		return "new_member"
	default:
		return "unknown"
	}
}

// Message is the single wire envelope for all five message kinds; fields
// that don't apply to a given Kind are left at their zero value. Every kind
// but NewMember carries ID, Timestamp and RealityToken; Update, RealitySkew
// and Seed add Patch; RealitySkew and Seed add PeerCount; Seed adds NewID
// (see usesID/usesPatch/usesPeerCount in codec.go).
type Message[A comparable] struct {
	Kind         Kind
	UUID         uuid.UUID
	ID           itc.IDTree
	Timestamp    itc.EventTree
	RealityToken domain.RealityToken
	Patch        itc.Patch[domain.PeerInfo[A]]
	PeerCount    int
	NewID        itc.IDTree // Seed only; nil means "no id granted"
}

// HeartbeatMsg builds a Heartbeat message from a node's current local state.
func HeartbeatMsg[A comparable](id uuid.UUID, treeID itc.IDTree, ts itc.EventTree, rt domain.RealityToken) Message[A] {
	return Message[A]{Kind: Heartbeat, UUID: id, ID: treeID, Timestamp: ts, RealityToken: rt}
}

// UpdateMsg builds an Update message carrying a catch-up patch.
func UpdateMsg[A comparable](id uuid.UUID, treeID itc.IDTree, ts itc.EventTree, rt domain.RealityToken, patch itc.Patch[domain.PeerInfo[A]]) Message[A] {
	return Message[A]{Kind: Update, UUID: id, ID: treeID, Timestamp: ts, RealityToken: rt, Patch: patch}
}

// RealitySkewMsg builds a RealitySkew message, raised when two replicas'
// reality tokens diverge after an otherwise causally-consistent merge.
func RealitySkewMsg[A comparable](id uuid.UUID, treeID itc.IDTree, ts itc.EventTree, rt domain.RealityToken, patch itc.Patch[domain.PeerInfo[A]], peerCount int) Message[A] {
	return Message[A]{Kind: RealitySkew, UUID: id, ID: treeID, Timestamp: ts, RealityToken: rt, Patch: patch, PeerCount: peerCount}
}

// NewMemberMsg announces a newcomer looking to be granted an identity.
func NewMemberMsg[A comparable](id uuid.UUID) Message[A] {
	return Message[A]{Kind: NewMember, UUID: id}
}

// SeedMsg responds to a NewMember, optionally granting a forked identity
// (newID nil means "not currently willing to propagate, here's the group
// state anyway").
func SeedMsg[A comparable](id uuid.UUID, treeID itc.IDTree, ts itc.EventTree, rt domain.RealityToken, patch itc.Patch[domain.PeerInfo[A]], peerCount int, newID itc.IDTree) Message[A] {
	return Message[A]{Kind: Seed, UUID: id, ID: treeID, Timestamp: ts, RealityToken: rt, Patch: patch, PeerCount: peerCount, NewID: newID}
}
