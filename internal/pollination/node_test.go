package pollination_test

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/byronwasti/florescence/internal/domain"
	"github.com/byronwasti/florescence/internal/itc"
	"github.com/byronwasti/florescence/internal/message"
	"github.com/byronwasti/florescence/internal/pollination"
)

func lowUUID() uuid.UUID {
	var id uuid.UUID
	id[15] = 0x01
	return id
}

func highUUID() uuid.UUID {
	var id uuid.UUID
	for i := range id {
		id[i] = 0xFF
	}
	return id
}

// seedTwoNodes drives a bootstrap node (A) and a joining node (B) through a
// NewMember -> Seed -> Update exchange and returns both once converged.
func seedTwoNodes(t *testing.T) (*pollination.Node[domain.NetAddr], *pollination.Node[domain.NetAddr]) {
	t.Helper()

	clock := time.Unix(0, 0)
	now := func() time.Time { return clock }

	nodeA := pollination.New[domain.NetAddr](lowUUID(), "addrA", time.Second, now)
	nodeB := pollination.NewJoining[domain.NetAddr](highUUID(), "addrB", time.Second, now)

	clock = clock.Add(2 * time.Second)

	newMember := message.NewMemberMsg[domain.NetAddr](nodeB.UUID())
	res, err := nodeA.HandleMessage(newMember)
	if err != nil {
		t.Fatalf("nodeA handling NewMember: %v", err)
	}
	if res.Response == nil || res.Response.Kind != message.Seed {
		t.Fatalf("expected a Seed reply, got %+v", res.Response)
	}
	if res.Response.NewID == nil {
		t.Fatalf("expected nodeA to grant an id past its propagation timeout")
	}

	seedRes, err := nodeB.HandleMessage(*res.Response)
	if err != nil {
		t.Fatalf("nodeB handling Seed: %v", err)
	}
	if seedRes.Response == nil || seedRes.Response.Kind != message.Update {
		t.Fatalf("expected an Update reply from nodeB, got %+v", seedRes.Response)
	}

	finalRes, err := nodeA.HandleMessage(*seedRes.Response)
	if err != nil {
		t.Fatalf("nodeA handling Update: %v", err)
	}
	if finalRes.Response == nil || finalRes.Response.Kind != message.Heartbeat {
		t.Fatalf("expected a Heartbeat reply from nodeA, got %+v", finalRes.Response)
	}

	return nodeA, nodeB
}

func TestTwoNodeSeedConverges(t *testing.T) {
	nodeA, nodeB := seedTwoNodes(t)

	if got := nodeA.PeerCount(); got != 2 {
		t.Fatalf("nodeA.PeerCount() = %d, want 2", got)
	}
	if got := nodeB.PeerCount(); got != 2 {
		t.Fatalf("nodeB.PeerCount() = %d, want 2", got)
	}
	if !nodeA.RealityToken().Equal(nodeB.RealityToken()) {
		t.Fatalf("reality tokens diverged: A=%s B=%s", nodeA.RealityToken(), nodeB.RealityToken())
	}

	idA, ok := nodeA.ID()
	if !ok {
		t.Fatalf("nodeA has no id after seeding")
	}
	idB, ok := nodeB.ID()
	if !ok {
		t.Fatalf("nodeB has no id after seeding")
	}
	if !itc.Equal(itc.Join(idA, idB), itc.One) {
		t.Fatalf("nodeA and nodeB's ids don't reconstruct the whole interval")
	}
}

func TestReapSoulsReclaimsDeadPeer(t *testing.T) {
	nodeA, nodeB := seedTwoNodes(t)

	idB, ok := nodeB.ID()
	if !ok {
		t.Fatalf("nodeB has no id")
	}

	if !nodeA.MarkDead(idB) {
		t.Fatalf("nodeA.MarkDead(idB) found nothing to mark")
	}

	tokenBeforeReap := nodeA.RealityToken()

	if !nodeA.ReapSouls() {
		t.Fatalf("expected ReapSouls to reclaim nodeB's id")
	}

	idA, ok := nodeA.ID()
	if !ok {
		t.Fatalf("nodeA lost its id during reap")
	}
	if !itc.Equal(idA, itc.One) {
		t.Fatalf("nodeA.ID() = %s, want the whole interval back", idA)
	}
	if got := nodeA.PeerCount(); got != 1 {
		t.Fatalf("nodeA.PeerCount() = %d, want 1 after reclaiming the only other half", got)
	}
	if !nodeA.RealityToken().Equal(tokenBeforeReap) {
		t.Fatalf("nodeA.RealityToken() = %s, want %s unchanged by reap", nodeA.RealityToken(), tokenBeforeReap)
	}

	if nodeA.ReapSouls() {
		t.Fatalf("ReapSouls should be a no-op once there's nothing dead left to reclaim")
	}
}

// TestMarkDeadFoldsDeparturePeerIntoToken pins down the intermediate step of
// the reap trace: declaring a live peer dead is itself a departure and folds
// that peer's uuid out of the reality token immediately, before any reclaim.
func TestMarkDeadFoldsDeparturePeerIntoToken(t *testing.T) {
	nodeA, nodeB := seedTwoNodes(t)

	idB, ok := nodeB.ID()
	if !ok {
		t.Fatalf("nodeB has no id")
	}

	before := nodeA.RealityToken()
	if !nodeA.MarkDead(idB) {
		t.Fatalf("nodeA.MarkDead(idB) found nothing to mark")
	}
	after := nodeA.RealityToken()

	if after.Equal(before) {
		t.Fatalf("RealityToken() unchanged by MarkDead, want nodeB's uuid folded out")
	}
	want := before.Push(nodeB.UUID())
	if !after.Equal(want) {
		t.Fatalf("RealityToken() = %s after MarkDead, want %s", after, want)
	}
}

func TestRealitySkewDefection(t *testing.T) {
	clock := time.Unix(0, 0)
	now := func() time.Time { return clock }

	// Two independently-bootstrapped nodes: both believe they own the whole
	// interval, with unrelated membership. Exchanging heartbeats must
	// surface this as a reality skew rather than silently merging.
	loser := pollination.New[domain.NetAddr](lowUUID(), "addrLow", time.Second, now)
	winner := pollination.New[domain.NetAddr](highUUID(), "addrHigh", time.Second, now)

	heartbeatFromLoser := *mustMsg(t, loser)

	res, err := winner.HandleMessage(heartbeatFromLoser)
	if err != nil {
		t.Fatalf("winner handling heartbeat: %v", err)
	}
	if res.Response == nil || res.Response.Kind != message.RealitySkew {
		t.Fatalf("expected a RealitySkew reply, got %+v", res.Response)
	}
	if res.OldCore != nil {
		t.Fatalf("the side with the lexicographically larger token shouldn't defect")
	}

	defectRes, err := loser.HandleMessage(*res.Response)
	if err != nil {
		t.Fatalf("loser handling reality skew: %v", err)
	}
	if defectRes.OldCore == nil {
		t.Fatalf("expected the lower-token side to defect and surface its old core")
	}
	if defectRes.Response == nil || defectRes.Response.Kind != message.NewMember {
		t.Fatalf("expected the defector to rejoin via NewMember, got %+v", defectRes.Response)
	}
	if _, ok := loser.ID(); ok {
		t.Fatalf("a defector should have given up its id and be waiting for a fresh Seed")
	}
	if loser.PeerCount() != 0 {
		t.Fatalf("a defector's map should be wiped, got PeerCount() = %d", loser.PeerCount())
	}
	if !defectRes.OldCore.RealityToken().Equal(domain.ZeroToken.Push(lowUUID())) {
		t.Fatalf("old core should preserve the defector's pre-defection reality token")
	}
}

func mustMsg(t *testing.T, n *pollination.Node[domain.NetAddr]) *message.Message[domain.NetAddr] {
	t.Helper()
	id, ok := n.ID()
	if !ok {
		t.Fatalf("node has no id to build a heartbeat from")
	}
	m := message.HeartbeatMsg[domain.NetAddr](n.UUID(), id, n.Timestamp(), n.RealityToken())
	return &m
}

func TestNewMemberThrottle(t *testing.T) {
	clock := time.Unix(0, 0)
	now := func() time.Time { return clock }

	nodeA := pollination.New[domain.NetAddr](lowUUID(), "addrA", time.Second, now)
	newcomer := uuid.New()

	res, err := nodeA.HandleMessage(message.NewMemberMsg[domain.NetAddr](newcomer))
	if err != nil {
		t.Fatalf("handling NewMember: %v", err)
	}
	if res.Response == nil || res.Response.Kind != message.Seed {
		t.Fatalf("expected a Seed reply even when throttled, got %+v", res.Response)
	}
	if res.Response.NewID != nil {
		t.Fatalf("expected no id granted before the propagation timeout elapses")
	}

	clock = clock.Add(2 * time.Second)

	res2, err := nodeA.HandleMessage(message.NewMemberMsg[domain.NetAddr](newcomer))
	if err != nil {
		t.Fatalf("handling second NewMember: %v", err)
	}
	if res2.Response == nil || res2.Response.Kind != message.Seed || res2.Response.NewID == nil {
		t.Fatalf("expected an id granted once the timeout has elapsed, got %+v", res2.Response)
	}
}
