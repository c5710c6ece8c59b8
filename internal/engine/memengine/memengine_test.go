package memengine

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/byronwasti/florescence/internal/domain"
	"github.com/byronwasti/florescence/internal/message"
)

func TestDialedConnExchangesMessages(t *testing.T) {
	world := NewWorld()
	a := New(world)
	b := New(world)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	accepted, err := b.Listen(ctx)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	cAB, err := a.Dial(ctx, b.Addr())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}

	var cBA interface {
		RemoteAddr() domain.MemAddr
		Send(message.Message[domain.MemAddr]) error
		Recv() (message.Message[domain.MemAddr], error)
		Close() error
	}
	select {
	case cBA = <-accepted:
	case <-ctx.Done():
		t.Fatal("timed out waiting for accepted conn")
	}

	if cBA.RemoteAddr() != a.Addr() {
		t.Fatalf("accepted conn remote = %s, want %s", cBA.RemoteAddr(), a.Addr())
	}

	id := uuid.New()
	msg := message.NewMemberMsg[domain.MemAddr](id)
	if err := cAB.Send(msg); err != nil {
		t.Fatalf("send: %v", err)
	}
	got, err := cBA.Recv()
	if err != nil {
		t.Fatalf("recv: %v", err)
	}
	if got.UUID != id || got.Kind != message.NewMember {
		t.Fatalf("got %+v, want uuid %s kind NewMember", got, id)
	}
}

func TestDialUnknownAddrErrors(t *testing.T) {
	world := NewWorld()
	a := New(world)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if _, err := a.Dial(ctx, domain.MemAddr(999)); err == nil {
		t.Fatal("expected error dialing unregistered address")
	}
}

func TestCloseUnblocksRecv(t *testing.T) {
	world := NewWorld()
	a := New(world)
	b := New(world)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if _, err := b.Listen(ctx); err != nil {
		t.Fatalf("listen: %v", err)
	}
	cAB, err := a.Dial(ctx, b.Addr())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	if err := cAB.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := cAB.Recv(); err == nil {
		t.Fatal("expected Recv to fail on a closed conn")
	}
}
