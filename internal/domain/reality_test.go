package domain

import (
	"testing"

	"github.com/google/uuid"
)

func TestRealityTokenCommutative(t *testing.T) {
	a, b := uuid.New(), uuid.New()

	order1 := ZeroToken.Push(a).Push(b)
	order2 := ZeroToken.Push(b).Push(a)

	if !order1.Equal(order2) {
		t.Fatalf("token should not depend on push order: %s vs %s", order1, order2)
	}
}

func TestRealityTokenPushTwiceCancels(t *testing.T) {
	a := uuid.New()
	token := ZeroToken.Push(a).Push(a)
	if !token.Equal(ZeroToken) {
		t.Fatalf("pushing the same id twice should cancel out, got %s", token)
	}
}

func TestPeerInfoEqual(t *testing.T) {
	id := uuid.New()
	p1 := NewPeerInfo[NetAddr](id, "host:1")
	p2 := NewPeerInfo[NetAddr](id, "host:1")
	if !p1.Equal(p2) {
		t.Fatalf("identical peer info should be equal")
	}
	p3 := NewPeerInfo[NetAddr](id, "host:2")
	if p1.Equal(p3) {
		t.Fatalf("peer info with different addr should not be equal")
	}
}

func TestRealityTokenParseStringRoundTrip(t *testing.T) {
	token := ZeroToken.Push(uuid.New()).Push(uuid.New())
	parsed, err := ParseRealityToken(token.String())
	if err != nil {
		t.Fatalf("ParseRealityToken: %v", err)
	}
	if !parsed.Equal(token) {
		t.Fatalf("round trip mismatch: got %s, want %s", parsed, token)
	}
}

func TestParseRealityTokenRejectsBadInput(t *testing.T) {
	if _, err := ParseRealityToken("not hex"); err == nil {
		t.Fatal("expected error for non-hex input")
	}
	if _, err := ParseRealityToken("ab"); err == nil {
		t.Fatal("expected error for wrong-length input")
	}
}

func TestDeadPeerInfoIsZeroValue(t *testing.T) {
	d1 := DeadPeerInfo[NetAddr]()
	d2 := DeadPeerInfo[NetAddr]()
	if !d1.Equal(d2) {
		t.Fatalf("all tombstones should be equal")
	}
	if !d1.IsDead() {
		t.Fatalf("DeadPeerInfo should report IsDead")
	}
}
