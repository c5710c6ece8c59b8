package message

import (
	"bytes"
	"testing"

	"github.com/google/uuid"

	"github.com/byronwasti/florescence/internal/domain"
	"github.com/byronwasti/florescence/internal/itc"
)

func TestHeartbeatRoundTrip(t *testing.T) {
	id := uuid.New()
	msg := HeartbeatMsg[domain.NetAddr](id, itc.One, itc.Bump(itc.One, itc.ZeroEvent), domain.ZeroToken.Push(id))

	var buf bytes.Buffer
	if err := Encode(&buf, msg, NetAddrCodec); err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := Decode(&buf, NetAddrCodec)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Kind != Heartbeat || got.UUID != id || !itc.Equal(got.ID, itc.One) {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}

func TestUpdateWithPatchRoundTrip(t *testing.T) {
	id := uuid.New()
	peerID := uuid.New()
	m := itc.NewMap[domain.PeerInfo[domain.MemAddr]]()
	left, right := itc.Fork(itc.One)
	m.Insert(left, domain.NewPeerInfo(id, domain.MemAddr(1)))
	m.Insert(right, domain.NewPeerInfo(peerID, domain.MemAddr(2)))
	patch := m.Diff(itc.ZeroEvent)

	msg := UpdateMsg(id, left, m.Timestamp(), domain.ZeroToken.Push(id).Push(peerID), patch)

	var buf bytes.Buffer
	if err := Encode(&buf, msg, MemAddrCodec); err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := Decode(&buf, MemAddrCodec)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Kind != Update || len(got.Patch.Entries) != 2 {
		t.Fatalf("round trip mismatch: %+v", got)
	}
	var sawAddrs int
	for _, e := range got.Patch.Entries {
		if e.Value.Addr != nil {
			sawAddrs++
		}
	}
	if sawAddrs != 2 {
		t.Fatalf("expected both entries to carry an addr, got %d", sawAddrs)
	}
}

func TestNewMemberRoundTrip(t *testing.T) {
	id := uuid.New()
	msg := NewMemberMsg[domain.NetAddr](id)

	var buf bytes.Buffer
	if err := Encode(&buf, msg, NetAddrCodec); err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := Decode(&buf, NetAddrCodec)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Kind != NewMember || got.UUID != id {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}

func TestSeedWithoutNewIDRoundTrip(t *testing.T) {
	id := uuid.New()
	m := itc.NewMap[domain.PeerInfo[domain.NetAddr]]()
	m.Insert(itc.One, domain.NewPeerInfo(id, domain.NetAddr("host:1")))
	patch := m.Diff(itc.ZeroEvent)

	msg := SeedMsg(id, itc.One, m.Timestamp(), domain.ZeroToken.Push(id), patch, 1, nil)

	var buf bytes.Buffer
	if err := Encode(&buf, msg, NetAddrCodec); err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := Decode(&buf, NetAddrCodec)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.NewID != nil {
		t.Fatalf("expected nil NewID, got %v", got.NewID)
	}
	if got.PeerCount != 1 {
		t.Fatalf("PeerCount = %d, want 1", got.PeerCount)
	}
}
