package message

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/byronwasti/florescence/internal/domain"
	"github.com/byronwasti/florescence/internal/itc"
)

// JSONAddrCodec mirrors AddrCodec for the JSON wire format: an address
// needs a string representation rather than a byte-stream Encode/Decode
// pair.
type JSONAddrCodec[A any] struct {
	Encode func(a A) string
	Decode func(s string) (A, error)
}

type jsonPeerInfo struct {
	UUID   uuid.UUID `json:"uuid"`
	Status int       `json:"status"`
	Addr   *string   `json:"addr,omitempty"`
}

type jsonPatchEntry struct {
	ID    any          `json:"id"`
	Value jsonPeerInfo `json:"value"`
}

type jsonPatch struct {
	Timestamp any              `json:"timestamp"`
	Entries   []jsonPatchEntry `json:"entries"`
}

type jsonMessage struct {
	Kind         string     `json:"kind"`
	UUID         uuid.UUID  `json:"uuid"`
	ID           any        `json:"id,omitempty"`
	Timestamp    any        `json:"timestamp,omitempty"`
	RealityToken string     `json:"reality_token,omitempty"`
	Patch        *jsonPatch `json:"patch,omitempty"`
	PeerCount    int        `json:"peer_count,omitempty"`
	NewID        any        `json:"new_id,omitempty"`
}

func kindToString(k Kind) (string, error) {
	if int(k) < 0 || k > NewMember {
		return "", fmt.Errorf("message: unknown kind %d", k)
	}
	return k.String(), nil
}

func kindFromString(s string) (Kind, error) {
	switch s {
	case "heartbeat":
		return Heartbeat, nil
	case "update":
		return Update, nil
	case "reality_skew":
		return RealitySkew, nil
	case "seed":
		return Seed, nil
	case "new_member":
		return NewMember, nil
	default:
		return 0, fmt.Errorf("message: unknown kind %q", s)
	}
}

func peerInfoToJSON[A any](p domain.PeerInfo[A], addr JSONAddrCodec[A]) jsonPeerInfo {
	out := jsonPeerInfo{UUID: p.UUID, Status: int(p.Status)}
	if p.Addr != nil {
		s := addr.Encode(*p.Addr)
		out.Addr = &s
	}
	return out
}

func peerInfoFromJSON[A any](p jsonPeerInfo, addr JSONAddrCodec[A]) (domain.PeerInfo[A], error) {
	out := domain.PeerInfo[A]{UUID: p.UUID, Status: domain.PeerStatus(p.Status)}
	if p.Addr != nil {
		a, err := addr.Decode(*p.Addr)
		if err != nil {
			return out, err
		}
		out.Addr = &a
	}
	return out, nil
}

func patchToJSON[A any](patch itc.Patch[domain.PeerInfo[A]], addr JSONAddrCodec[A]) jsonPatch {
	out := jsonPatch{
		Timestamp: itc.EventTreeToJSON(patch.Timestamp),
		Entries:   make([]jsonPatchEntry, len(patch.Entries)),
	}
	for i, e := range patch.Entries {
		out.Entries[i] = jsonPatchEntry{ID: itc.IDTreeToJSON(e.ID), Value: peerInfoToJSON(e.Value, addr)}
	}
	return out
}

func patchFromJSON[A any](p jsonPatch, addr JSONAddrCodec[A]) (itc.Patch[domain.PeerInfo[A]], error) {
	var out itc.Patch[domain.PeerInfo[A]]
	ts, err := itc.EventTreeFromJSON(p.Timestamp)
	if err != nil {
		return out, err
	}
	out.Timestamp = ts
	out.Entries = make([]itc.Entry[domain.PeerInfo[A]], len(p.Entries))
	for i, e := range p.Entries {
		id, err := itc.IDTreeFromJSON(e.ID)
		if err != nil {
			return out, err
		}
		val, err := peerInfoFromJSON(e.Value, addr)
		if err != nil {
			return out, err
		}
		out.Entries[i] = itc.Entry[domain.PeerInfo[A]]{ID: id, Value: val}
	}
	return out, nil
}

// EncodeJSON serializes msg as JSON, the opt-in wire format matching the
// original source's "JSON mode supported as a build flag".
func EncodeJSON[A any](msg Message[A], addr JSONAddrCodec[A]) ([]byte, error) {
	kind, err := kindToString(msg.Kind)
	if err != nil {
		return nil, err
	}
	out := jsonMessage{
		Kind:         kind,
		UUID:         msg.UUID,
		RealityToken: msg.RealityToken.String(),
		PeerCount:    msg.PeerCount,
	}
	if usesID(msg.Kind) {
		out.ID = itc.IDTreeToJSON(msg.ID)
		out.Timestamp = itc.EventTreeToJSON(msg.Timestamp)
	}
	if usesPatch(msg.Kind) {
		patch := patchToJSON(msg.Patch, addr)
		out.Patch = &patch
	}
	if msg.Kind == Seed && msg.NewID != nil {
		out.NewID = itc.IDTreeToJSON(msg.NewID)
	}
	return json.Marshal(out)
}

// DecodeJSON is the inverse of EncodeJSON.
func DecodeJSON[A any](data []byte, addr JSONAddrCodec[A]) (Message[A], error) {
	var in jsonMessage
	var msg Message[A]
	if err := json.Unmarshal(data, &in); err != nil {
		return msg, err
	}
	kind, err := kindFromString(in.Kind)
	if err != nil {
		return msg, err
	}
	msg.Kind = kind
	msg.UUID = in.UUID
	msg.PeerCount = in.PeerCount

	rt, err := domain.ParseRealityToken(in.RealityToken)
	if err != nil {
		return msg, err
	}
	msg.RealityToken = rt

	if usesID(kind) {
		id, err := itc.IDTreeFromJSON(in.ID)
		if err != nil {
			return msg, err
		}
		msg.ID = id
		ts, err := itc.EventTreeFromJSON(in.Timestamp)
		if err != nil {
			return msg, err
		}
		msg.Timestamp = ts
	}

	if usesPatch(kind) {
		if in.Patch == nil {
			return msg, fmt.Errorf("message: %s message missing patch", kind)
		}
		patch, err := patchFromJSON(*in.Patch, addr)
		if err != nil {
			return msg, err
		}
		msg.Patch = patch
	}

	if kind == Seed && in.NewID != nil {
		newID, err := itc.IDTreeFromJSON(in.NewID)
		if err != nil {
			return msg, err
		}
		msg.NewID = newID
	}

	return msg, nil
}
