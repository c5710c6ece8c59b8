package flower_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/byronwasti/florescence/internal/domain"
	"github.com/byronwasti/florescence/internal/engine/memengine"
	"github.com/byronwasti/florescence/internal/flower"
)

func waitForConverged(t *testing.T, ctx context.Context, a, b *flower.Flower[domain.MemAddr]) (flower.Snapshot, flower.Snapshot) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		sa, err := a.Query(ctx)
		if err != nil {
			t.Fatalf("querying a: %v", err)
		}
		sb, err := b.Query(ctx)
		if err != nil {
			t.Fatalf("querying b: %v", err)
		}
		if sa.PeerCount == 2 && sb.PeerCount == 2 && sa.RealityToken.Equal(sb.RealityToken) {
			return sa, sb
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("flowers did not converge in time")
	return flower.Snapshot{}, flower.Snapshot{}
}

func TestTwoFlowersConvergeOverMemEngine(t *testing.T) {
	world := memengine.NewWorld()
	engA := memengine.New(world)
	engB := memengine.New(world)

	cfg := flower.DefaultConfig()
	cfg.PropagationTimeout = time.Nanosecond // don't throttle the join in this test

	a := flower.New[domain.MemAddr](uuid.New(), engA, nil, cfg, nil)
	b := flower.New[domain.MemAddr](uuid.New(), engB, []domain.MemAddr{engA.Addr()}, cfg, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	go func() { _ = a.Run(ctx) }()
	go func() { _ = b.Run(ctx) }()

	sa, sb := waitForConverged(t, ctx, a, b)

	if !sa.HasID || !sb.HasID {
		t.Fatalf("both flowers should have an id after converging: a=%+v b=%+v", sa, sb)
	}
	if sa.Connections != 1 || sb.Connections != 1 {
		t.Fatalf("expected exactly one connection each, got a=%d b=%d", sa.Connections, sb.Connections)
	}
}
