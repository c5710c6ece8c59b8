package pollination

import (
	"errors"

	"github.com/byronwasti/florescence/internal/domain"
	"github.com/byronwasti/florescence/internal/itc"
	"github.com/byronwasti/florescence/internal/message"
)

// HandleMessageRes is the result of handling one incoming message: an
// optional reply to send back, and — only on a reality-skew defection — the
// node's prior state, which the caller must broadcast as dead.
type HandleMessageRes[A comparable] struct {
	Response *message.Message[A]
	OldCore  *Node[A]
}

func respond[A comparable](msg *message.Message[A]) HandleMessageRes[A] {
	return HandleMessageRes[A]{Response: msg}
}

// HandleMessage dispatches an incoming message to the matching handler and
// returns whatever reply (if any) the caller should send, plus an old core
// to broadcast as dead if this message triggered a defection.
func (n *Node[A]) HandleMessage(msg message.Message[A]) (HandleMessageRes[A], error) {
	switch msg.Kind {
	case message.Heartbeat:
		return respond(n.handleHeartbeat(msg)), nil
	case message.Update:
		resp, err := n.handleUpdate(msg)
		return respond(resp), err
	case message.RealitySkew:
		return n.handleRealitySkew(msg)
	case message.NewMember:
		return respond(n.handleNewMember(msg)), nil
	case message.Seed:
		return respond(n.handleSeed(msg)), nil
	default:
		return HandleMessageRes[A]{}, domain.ErrDeserialization
	}
}

func (n *Node[A]) handleHeartbeat(msg message.Message[A]) *message.Message[A] {
	switch itc.Compare(n.Timestamp(), msg.Timestamp) {
	case itc.Greater, itc.Incomparable:
		patch := n.CreatePatch(msg.Timestamp)
		return n.msgUpdate(patch)
	case itc.Less:
		return n.msgHeartbeat()
	default: // Equivalent
		if !msg.RealityToken.Equal(n.realityToken) {
			patch := n.CreatePatch(msg.Timestamp)
			return n.msgRealitySkew(patch)
		}
		return nil
	}
}

func (n *Node[A]) handleUpdate(msg message.Message[A]) (*message.Message[A], error) {
	switch itc.Compare(n.Timestamp(), msg.Timestamp) {
	case itc.Greater:
		patch := n.CreatePatch(msg.Timestamp)
		return n.msgUpdate(patch), nil

	case itc.Less, itc.Incomparable:
		err := n.ApplyPatch(msg.RealityToken, msg.Patch)
		switch {
		case err == nil:
			return n.msgHeartbeat(), nil
		case isRealitySkew[A](err):
			patch := n.CreatePatch(msg.Timestamp)
			return n.msgRealitySkew(patch), nil
		default:
			return nil, err
		}

	default: // Equivalent
		if !msg.RealityToken.Equal(n.realityToken) {
			patch := n.CreatePatch(msg.Timestamp)
			return n.msgRealitySkew(patch), nil
		}
		return nil, nil
	}
}

func (n *Node[A]) handleRealitySkew(msg message.Message[A]) (HandleMessageRes[A], error) {
	err := n.ApplyPatch(msg.RealityToken, msg.Patch)
	if err == nil {
		return respond(n.msgHeartbeat()), nil
	}

	var skew *RealitySkewError[A]
	if !errors.As(err, &skew) {
		return HandleMessageRes[A]{}, err
	}

	// Tie-break: the side with more peers wins; ties broken by the
	// lexicographically larger reality token. The loser adopts the
	// winner's core wholesale and rejoins as a fresh member.
	weLose := msg.PeerCount > n.PeerCount() ||
		(msg.PeerCount == n.PeerCount() && n.realityToken.Less(msg.RealityToken))

	if weLose {
		old := n.swapCores(skew.Core)
		return HandleMessageRes[A]{Response: n.msgNewMember(), OldCore: old}, nil
	}

	patch := n.CreatePatch(msg.Timestamp)
	return respond(n.msgRealitySkew(patch)), nil
}

func (n *Node[A]) handleNewMember(msg message.Message[A]) *message.Message[A] {
	newID, _ := n.Propagate()
	return n.msgSeed(newID)
}

func (n *Node[A]) handleSeed(msg message.Message[A]) *message.Message[A] {
	// Only reset ourselves if we don't already have an id: a Seed that
	// arrives after we've already joined is stale and ignored beyond a
	// courtesy heartbeat.
	if _, ok := n.ID(); ok {
		return n.msgHeartbeat()
	}

	if msg.NewID != nil {
		n.applyPatchUnchecked(msg.Patch)
		n.propagativity.Reclaim(msg.NewID)
		n.setRaw(n.ownInfo)
		patch := n.CreatePatch(msg.Timestamp)
		return n.msgUpdate(patch)
	}

	n.applyPatchUnchecked(msg.Patch)
	n.realityToken = msg.RealityToken
	return nil
}

func isRealitySkew[A comparable](err error) bool {
	var skew *RealitySkewError[A]
	return errors.As(err, &skew)
}

func (n *Node[A]) msgHeartbeat() *message.Message[A] {
	id, ok := n.ID()
	if !ok {
		return nil
	}
	m := message.HeartbeatMsg[A](n.uuid, id, n.Timestamp(), n.realityToken)
	return &m
}

func (n *Node[A]) msgUpdate(patch itc.Patch[domain.PeerInfo[A]]) *message.Message[A] {
	id, ok := n.ID()
	if !ok {
		return nil
	}
	m := message.UpdateMsg(n.uuid, id, n.Timestamp(), n.realityToken, patch)
	return &m
}

func (n *Node[A]) msgRealitySkew(patch itc.Patch[domain.PeerInfo[A]]) *message.Message[A] {
	id, ok := n.ID()
	if !ok {
		return nil
	}
	m := message.RealitySkewMsg(n.uuid, id, n.Timestamp(), n.realityToken, patch, n.PeerCount())
	return &m
}

func (n *Node[A]) msgNewMember() *message.Message[A] {
	m := message.NewMemberMsg[A](n.uuid)
	return &m
}

func (n *Node[A]) msgSeed(newID itc.IDTree) *message.Message[A] {
	id, ok := n.ID()
	if !ok {
		return nil
	}
	patch := n.CreatePatch(itc.ZeroEvent)
	m := message.SeedMsg(n.uuid, id, n.Timestamp(), n.realityToken, patch, n.PeerCount(), newID)
	return &m
}
