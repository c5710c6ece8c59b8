// Package memengine is an in-process engine.Engine: addresses are slot
// indices into a package-level World registry, and a Dial simply wires up a
// pair of Go channels between the two engines — no sockets involved. Used by
// tests and any future discrete-event simulator, grounded on the original
// source's `engine::mpsc` (an in-memory mpsc-channel transport) and on the
// teacher's pattern of a single mutex-guarded registry shared by an entire
// process (`internal/infra/federation`'s org/member bookkeeping).
package memengine

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/byronwasti/florescence/internal/domain"
	"github.com/byronwasti/florescence/internal/engine"
	"github.com/byronwasti/florescence/internal/message"
)

const chanBuffer = 32

// World is the shared registry every memengine.Engine in a process joins.
// Tests construct their own World so they don't leak state across runs.
type World struct {
	mu    sync.Mutex
	next  domain.MemAddr
	peers map[domain.MemAddr]*Engine
}

// NewWorld returns an empty registry.
func NewWorld() *World {
	return &World{peers: make(map[domain.MemAddr]*Engine)}
}

// DefaultWorld is the process-wide registry used when callers don't need
// isolation (e.g. a `florist run --engine mem` single process simulating a
// whole group).
var DefaultWorld = NewWorld()

// Engine is one participant's handle into a World.
type Engine struct {
	world  *World
	addr   domain.MemAddr
	accept chan engine.Conn[domain.MemAddr]
}

// New registers a fresh engine in world, claiming the next free slot index.
func New(world *World) *Engine {
	world.mu.Lock()
	defer world.mu.Unlock()
	e := &Engine{world: world, addr: world.next, accept: make(chan engine.Conn[domain.MemAddr], chanBuffer)}
	world.peers[world.next] = e
	world.next++
	return e
}

func (e *Engine) Addr() domain.MemAddr { return e.addr }

func (e *Engine) Listen(ctx context.Context) (<-chan engine.Conn[domain.MemAddr], error) {
	out := make(chan engine.Conn[domain.MemAddr], chanBuffer)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case c, ok := <-e.accept:
				if !ok {
					return
				}
				select {
				case out <- c:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

func (e *Engine) Dial(ctx context.Context, addr domain.MemAddr) (engine.Conn[domain.MemAddr], error) {
	e.world.mu.Lock()
	peer, ok := e.world.peers[addr]
	e.world.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("memengine: no such address %s", addr)
	}

	toPeer := make(chan message.Message[domain.MemAddr], chanBuffer)
	toSelf := make(chan message.Message[domain.MemAddr], chanBuffer)

	self := &conn{remote: addr, out: toPeer, in: toSelf, closed: make(chan struct{})}
	other := &conn{remote: e.addr, out: toSelf, in: toPeer, closed: make(chan struct{})}

	select {
	case peer.accept <- other:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return self, nil
}

// conn is both ends of an in-process pipe: Send writes to the peer's inbox,
// Recv reads from this end's own.
type conn struct {
	remote    domain.MemAddr
	out       chan<- message.Message[domain.MemAddr]
	in        <-chan message.Message[domain.MemAddr]
	closed    chan struct{}
	closeOnce sync.Once
}

func (c *conn) RemoteAddr() domain.MemAddr { return c.remote }

func (c *conn) Send(msg message.Message[domain.MemAddr]) error {
	select {
	case c.out <- msg:
		return nil
	case <-c.closed:
		return io.ErrClosedPipe
	}
}

func (c *conn) Recv() (message.Message[domain.MemAddr], error) {
	select {
	case msg, ok := <-c.in:
		if !ok {
			return message.Message[domain.MemAddr]{}, io.EOF
		}
		return msg, nil
	case <-c.closed:
		return message.Message[domain.MemAddr]{}, io.EOF
	}
}

func (c *conn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}
