// Package flower is the runtime that drives one pollination.Node: dialing
// seeds, accepting connections, ticking heartbeats and reaps, and
// translating inbound/outbound wire messages to and from Node.HandleMessage
// calls. Exactly one goroutine ever touches the Node; every other goroutine
// here only moves bytes. Grounded on the original source's
// `flower_old.rs`, whose `tokio::select!` loop this translates arm-for-arm
// into a Go `select`, and on the teacher's SWIM probe loop
// (internal/infra/gossip/swim.go) for the ticker/goroutine-per-connection
// shape.
package flower

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/byronwasti/florescence/internal/domain"
	"github.com/byronwasti/florescence/internal/engine"
	"github.com/byronwasti/florescence/internal/flower/registry"
	"github.com/byronwasti/florescence/internal/itc"
	"github.com/byronwasti/florescence/internal/message"
	"github.com/byronwasti/florescence/internal/observability"
	"github.com/byronwasti/florescence/internal/pollination"
)

// Snapshot is a point-in-time, read-only view of a Flower's node, handed out
// over the query channel for introspection (internal/api) without letting a
// second goroutine touch the Node directly.
type Snapshot struct {
	UUID         uuid.UUID
	HasID        bool
	ID           string
	PeerCount    int
	RealityToken domain.RealityToken
	Connections  int
}

type queryReq struct {
	reply chan Snapshot
}

// connState is the per-connection bookkeeping the runtime (not the Node)
// owns: the transport handle, its own debounce window, and enough of what
// it last told us about itself to drive reaping and death broadcasts.
type connState[A comparable] struct {
	conn      engine.Conn[A]
	debounce  *debouncer
	lastSeen  time.Time
	peerID    itc.IDTree
	hasPeerID bool
}

type inboundMsg[A comparable] struct {
	idx int
	msg message.Message[A]
	err error
}

// Flower bundles a pollination.Node with the transport and timers that keep
// it alive.
type Flower[A comparable] struct {
	node  *pollination.Node[A]
	eng   engine.Engine[A]
	seeds []A
	cfg   Config
	log   *slog.Logger

	conns   *registry.Slots[*connState[A]]
	inbound chan inboundMsg[A]
	queries chan queryReq

	tracer     *observability.Tracer
	metricsTag string
}

// New builds a Flower around a freshly-bootstrapped node (the first member
// of a group — pass no seeds) or one about to join (pass seeds; it starts
// with no ITC identity and waits for a Seed reply).
func New[A comparable](id uuid.UUID, eng engine.Engine[A], seeds []A, cfg Config, log *slog.Logger) *Flower[A] {
	cfg = cfg.withDefaults()
	if log == nil {
		log = slog.Default()
	}

	var node *pollination.Node[A]
	if len(seeds) == 0 {
		node = pollination.New[A](id, eng.Addr(), cfg.PropagationTimeout, cfg.Now)
	} else {
		node = pollination.NewJoining[A](id, eng.Addr(), cfg.PropagationTimeout, cfg.Now)
	}

	return &Flower[A]{
		node:       node,
		eng:        eng,
		seeds:      seeds,
		cfg:        cfg,
		log:        log,
		conns:      registry.NewSlots[*connState[A]](),
		inbound:    make(chan inboundMsg[A], 64),
		queries:    make(chan queryReq),
		tracer:     observability.NewTracer(observability.DefaultTracerConfig()),
		metricsTag: id.String(),
	}
}

// Tracer exposes the Flower's span tracer for api-layer introspection.
func (f *Flower[A]) Tracer() *observability.Tracer {
	return f.tracer
}

// Query returns a snapshot of the node's current state, safe to call from
// any goroutine.
func (f *Flower[A]) Query(ctx context.Context) (Snapshot, error) {
	req := queryReq{reply: make(chan Snapshot, 1)}
	select {
	case f.queries <- req:
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
	select {
	case s := <-req.reply:
		return s, nil
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
}

// Run dials every seed, starts accepting inbound connections, and blocks
// running the event loop until ctx is cancelled.
func (f *Flower[A]) Run(ctx context.Context) error {
	for _, addr := range f.seeds {
		if addr == f.eng.Addr() {
			continue
		}
		conn, err := f.eng.Dial(ctx, addr)
		if err != nil {
			f.log.Warn("dial seed failed", "addr", fmt.Sprint(addr), "err", err)
			continue
		}
		f.addConn(conn)
		if err := conn.Send(message.NewMemberMsg[A](f.node.UUID())); err != nil {
			f.log.Warn("announcing to seed failed", "addr", fmt.Sprint(addr), "err", err)
		}
	}

	accept, err := f.eng.Listen(ctx)
	if err != nil {
		return fmt.Errorf("flower: listen: %w", err)
	}

	heartbeat := time.NewTicker(f.cfg.HeartbeatInterval)
	defer heartbeat.Stop()
	reap := time.NewTicker(f.cfg.ReapInterval)
	defer reap.Stop()

	f.log.Info("flower running", "addr", fmt.Sprint(f.eng.Addr()), "uuid", f.node.UUID())

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-heartbeat.C:
			f.node.Bump()
			f.broadcast(message.Heartbeat)

		case <-reap.C:
			f.reapQuietPeers()

		case conn, ok := <-accept:
			if !ok {
				return fmt.Errorf("flower: engine stopped accepting connections")
			}
			f.addConn(conn)

		case im := <-f.inbound:
			f.handleInbound(im)

		case q := <-f.queries:
			q.reply <- f.snapshot()
		}
	}
}

func (f *Flower[A]) snapshot() Snapshot {
	id, hasID := f.node.ID()
	idStr := ""
	if hasID {
		idStr = id.String()
	}
	return Snapshot{
		UUID:         f.node.UUID(),
		HasID:        hasID,
		ID:           idStr,
		PeerCount:    f.node.PeerCount(),
		RealityToken: f.node.RealityToken(),
		Connections:  f.conns.Len(),
	}
}

func (f *Flower[A]) addConn(conn engine.Conn[A]) {
	idx := f.conns.Push(&connState[A]{
		conn:     conn,
		debounce: newDebouncer(f.cfg.DebounceWindow, f.cfg.Now),
		lastSeen: f.cfg.Now(),
	})
	observability.ConnectionCount.WithLabelValues(f.metricsTag).Set(float64(f.conns.Len()))
	go f.receiveLoop(idx, conn)
}

func (f *Flower[A]) removeConn(idx int) {
	f.conns.Remove(idx)
	observability.ConnectionCount.WithLabelValues(f.metricsTag).Set(float64(f.conns.Len()))
}

func (f *Flower[A]) receiveLoop(idx int, conn engine.Conn[A]) {
	for {
		msg, err := conn.Recv()
		f.inbound <- inboundMsg[A]{idx: idx, msg: msg, err: err}
		if err != nil {
			return
		}
	}
}

func (f *Flower[A]) handleInbound(im inboundMsg[A]) {
	if im.err != nil {
		f.log.Debug("connection closed", "idx", im.idx, "err", im.err)
		f.removeConn(im.idx)
		return
	}

	st, ok := f.conns.Get(im.idx)
	if !ok {
		return
	}
	st.lastSeen = f.cfg.Now()
	if im.msg.ID != nil {
		st.peerID, st.hasPeerID = im.msg.ID, true
	}

	span := f.tracer.StartSpan(context.Background(), "handle_message", map[string]string{
		"kind": im.msg.Kind.String(),
	})
	start := time.Now()
	res, err := f.node.HandleMessage(im.msg)
	observability.MessageLatency.WithLabelValues(im.msg.Kind.String()).Observe(float64(time.Since(start).Microseconds()) / 1000)
	f.tracer.EndSpan(span, err)

	if err != nil {
		observability.MessagesHandled.WithLabelValues(im.msg.Kind.String(), "error").Inc()
		f.log.Warn("handling message failed", "idx", im.idx, "kind", im.msg.Kind, "err", err)
		return
	}
	observability.MessagesHandled.WithLabelValues(im.msg.Kind.String(), "ok").Inc()

	if im.msg.Kind == message.NewMember && res.Response != nil {
		if res.Response.NewID != nil {
			observability.PropagationsGranted.Inc()
		} else {
			observability.PropagationsThrottled.Inc()
		}
	}
	if res.OldCore != nil {
		observability.RealitySkews.WithLabelValues("lost").Inc()
		f.broadcastDeath(im.idx, res.OldCore)
	} else if im.msg.Kind == message.RealitySkew {
		observability.RealitySkews.WithLabelValues("retained").Inc()
	}

	observability.PeerCount.WithLabelValues(f.metricsTag).Set(float64(f.node.PeerCount()))

	if res.Response != nil {
		f.sendTo(im.idx, *res.Response)
	}
}

func (f *Flower[A]) sendTo(idx int, msg message.Message[A]) {
	st, ok := f.conns.Get(idx)
	if !ok {
		return
	}
	if !st.debounce.allow(msg.Kind, msg.Timestamp) {
		return
	}
	if err := st.conn.Send(msg); err != nil {
		f.log.Warn("send failed", "idx", idx, "err", err)
		f.removeConn(idx)
	}
}

func (f *Flower[A]) broadcast(kind message.Kind) {
	var msg *message.Message[A]
	switch kind {
	case message.Heartbeat:
		id, ok := f.node.ID()
		if !ok {
			return
		}
		m := message.HeartbeatMsg[A](f.node.UUID(), id, f.node.Timestamp(), f.node.RealityToken())
		msg = &m
	default:
		return
	}

	f.conns.Each(func(idx int, st *connState[A]) {
		if !st.debounce.allow(msg.Kind, msg.Timestamp) {
			return
		}
		if err := st.conn.Send(*msg); err != nil {
			f.log.Warn("broadcast send failed", "idx", idx, "err", err)
			f.removeConn(idx)
		}
	})
}

// broadcastDeath is the supplemented completion of flower_old.rs's
// unfinished "broadcast_death" TODO: tell every other connection that the
// identity old used to hold is now Dead, so they reap it rather than wait
// out LivenessTimeout.
func (f *Flower[A]) broadcastDeath(exceptIdx int, old *pollination.Node[A]) {
	id, ok := old.ID()
	if !ok {
		return
	}
	patch := itc.Patch[domain.PeerInfo[A]]{
		Timestamp: old.Timestamp(),
		Entries: []itc.Entry[domain.PeerInfo[A]]{
			{ID: id, Value: domain.DeadPeerInfo[A]()},
		},
	}
	msg := message.UpdateMsg[A](old.UUID(), id, old.Timestamp(), old.RealityToken(), patch)

	f.conns.Each(func(idx int, st *connState[A]) {
		if idx == exceptIdx {
			return
		}
		if err := st.conn.Send(msg); err != nil {
			f.log.Warn("death broadcast failed", "idx", idx, "err", err)
			f.removeConn(idx)
		}
	})
}

func (f *Flower[A]) reapQuietPeers() {
	now := f.cfg.Now()
	f.conns.Each(func(idx int, st *connState[A]) {
		if !st.hasPeerID {
			return
		}
		if now.Sub(st.lastSeen) < f.cfg.LivenessTimeout {
			return
		}
		f.node.MarkDead(st.peerID)
	})

	if f.node.ReapSouls() {
		observability.SoulsReaped.Inc()
		observability.PeerCount.WithLabelValues(f.metricsTag).Set(float64(f.node.PeerCount()))
		f.log.Info("reaped dead peer ids", "new_id", mustID(f.node))
		f.broadcast(message.Heartbeat)
	}
}

func mustID[A comparable](n *pollination.Node[A]) string {
	id, ok := n.ID()
	if !ok {
		return ""
	}
	return id.String()
}
