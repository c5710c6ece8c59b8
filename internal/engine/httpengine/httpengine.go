// Package httpengine is the "simple HTTP/POST" reference engine.Engine: one
// POST /pollinate round trip per message, addresses are "host:port" strings
// (Send posts to http://<addr>/pollinate). Grounded
// on the teacher's chi wiring (internal/api/server.go) for the server side
// and on net/http's client for the dial side.
//
// HTTP's request/response shape doesn't carry unsolicited server->client
// pushes, so each Conn here is fundamentally one-reply-per-request: a client
// Conn's Recv only ever yields the reply to something it just Sent, and a
// server Conn's Send only ever fulfills the request that produced the
// Recv the caller is replying to. When the protocol handler has no reply for
// an inbound message (e.g. a terminal Seed), the server simply answers with
// 204 No Content after ReplyTimeout — there is no way to signal "no reply,
// but don't hang up" over a single HTTP exchange otherwise.
package httpengine

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/byronwasti/florescence/internal/domain"
	"github.com/byronwasti/florescence/internal/engine"
	"github.com/byronwasti/florescence/internal/message"
)

// ReplyTimeout bounds how long the server side waits for the protocol
// handler to produce a reply before answering 204.
const ReplyTimeout = 2 * time.Second

// Engine serves and dials plain HTTP POST connections.
type Engine struct {
	addr   domain.NetAddr
	client *http.Client
	wire   message.Format

	mu    sync.Mutex
	conns map[uuid.UUID]*serverConn
}

// New returns an Engine that will bind to addr ("host:port") on Listen,
// framing messages with format (Binary by default; pass message.JSON to
// opt in, leaving New(addr) alone valid at existing call sites).
func New(addr domain.NetAddr, format ...message.Format) *Engine {
	e := &Engine{
		addr:   addr,
		client: &http.Client{Timeout: 10 * time.Second},
		conns:  make(map[uuid.UUID]*serverConn),
	}
	if len(format) > 0 {
		e.wire = format[0]
	}
	return e
}

func (e *Engine) Addr() domain.NetAddr { return e.addr }

func (e *Engine) Listen(ctx context.Context) (<-chan engine.Conn[domain.NetAddr], error) {
	ln, err := net.Listen("tcp", string(e.addr))
	if err != nil {
		return nil, fmt.Errorf("httpengine: listen %s: %w", e.addr, err)
	}

	out := make(chan engine.Conn[domain.NetAddr], 32)
	r := chi.NewRouter()
	r.Post("/pollinate", e.handlePollinate(out))
	srv := &http.Server{Handler: r}

	go func() {
		<-ctx.Done()
		_ = srv.Close()
	}()
	go func() {
		defer close(out)
		_ = srv.Serve(ln)
	}()

	return out, nil
}

func (e *Engine) handlePollinate(out chan<- engine.Conn[domain.NetAddr]) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		body, err := io.ReadAll(req.Body)
		if err != nil {
			http.Error(w, "read body", http.StatusBadRequest)
			return
		}
		msg, err := message.DecodeFrameBytes(body, e.wire, message.NetAddrCodec, message.NetAddrJSONCodec)
		if err != nil {
			http.Error(w, "decode message", http.StatusBadRequest)
			return
		}

		conn := e.connFor(msg.UUID, out)

		replyCh := make(chan message.Message[domain.NetAddr], 1)
		conn.deliver(replyCh, msg)

		select {
		case reply := <-replyCh:
			w.Header().Set("Content-Type", contentType(e.wire))
			if err := message.EncodeFrame(w, reply, e.wire, message.NetAddrCodec, message.NetAddrJSONCodec); err != nil {
				http.Error(w, "encode reply", http.StatusInternalServerError)
			}
		case <-time.After(ReplyTimeout):
			w.WriteHeader(http.StatusNoContent)
		}
	}
}

func (e *Engine) connFor(peer uuid.UUID, out chan<- engine.Conn[domain.NetAddr]) *serverConn {
	e.mu.Lock()
	defer e.mu.Unlock()
	if c, ok := e.conns[peer]; ok {
		return c
	}
	c := &serverConn{peer: peer, inbound: make(chan inboundRequest, 32)}
	e.conns[peer] = c
	out <- c
	return c
}

func (e *Engine) Dial(ctx context.Context, addr domain.NetAddr) (engine.Conn[domain.NetAddr], error) {
	return &clientConn{ctx: ctx, remote: addr, client: e.client, wire: e.wire, replies: make(chan message.Message[domain.NetAddr], 32)}, nil
}

func contentType(f message.Format) string {
	if f == message.JSON {
		return "application/json"
	}
	return "application/octet-stream"
}

// inboundRequest pairs a decoded request with the channel its reply (if any)
// must be written back through.
type inboundRequest struct {
	msg   message.Message[domain.NetAddr]
	reply chan message.Message[domain.NetAddr]
}

// serverConn is the synthetic, per-remote-peer Conn the runtime sees on the
// server side: Recv drains requests that arrived over separate HTTP calls,
// Send fulfills whichever request most recently came out of Recv.
type serverConn struct {
	peer    uuid.UUID
	inbound chan inboundRequest

	mu      sync.Mutex
	pending chan message.Message[domain.NetAddr]
}

func (c *serverConn) deliver(reply chan message.Message[domain.NetAddr], msg message.Message[domain.NetAddr]) {
	c.inbound <- inboundRequest{msg: msg, reply: reply}
}

func (c *serverConn) RemoteAddr() domain.NetAddr { return domain.NetAddr(c.peer.String()) }

func (c *serverConn) Recv() (message.Message[domain.NetAddr], error) {
	req, ok := <-c.inbound
	if !ok {
		return message.Message[domain.NetAddr]{}, io.EOF
	}
	c.mu.Lock()
	c.pending = req.reply
	c.mu.Unlock()
	return req.msg, nil
}

func (c *serverConn) Send(msg message.Message[domain.NetAddr]) error {
	c.mu.Lock()
	reply := c.pending
	c.pending = nil
	c.mu.Unlock()
	if reply == nil {
		return fmt.Errorf("httpengine: no pending request to reply to")
	}
	reply <- msg
	return nil
}

func (c *serverConn) Close() error {
	close(c.inbound)
	return nil
}

// clientConn POSTs every Send and queues the decoded reply (if any) for a
// subsequent Recv; there's no server->client push over plain HTTP.
type clientConn struct {
	ctx     context.Context
	remote  domain.NetAddr
	client  *http.Client
	wire    message.Format
	replies chan message.Message[domain.NetAddr]
}

func (c *clientConn) RemoteAddr() domain.NetAddr { return c.remote }

func (c *clientConn) Send(msg message.Message[domain.NetAddr]) error {
	data, err := message.EncodeFrameBytes(msg, c.wire, message.NetAddrCodec, message.NetAddrJSONCodec)
	if err != nil {
		return err
	}

	url := fmt.Sprintf("http://%s/pollinate", c.remote)
	req, err := http.NewRequestWithContext(c.ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentType(c.wire))

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	reply, err := message.DecodeFrameBytes(body, c.wire, message.NetAddrCodec, message.NetAddrJSONCodec)
	if err != nil {
		return err
	}
	c.replies <- reply
	return nil
}

func (c *clientConn) Recv() (message.Message[domain.NetAddr], error) {
	select {
	case reply := <-c.replies:
		return reply, nil
	case <-c.ctx.Done():
		return message.Message[domain.NetAddr]{}, c.ctx.Err()
	}
}

func (c *clientConn) Close() error { return nil }
