// Package grpcengine is an engine.Engine over a single HTTP/2
// bidirectional-streaming gRPC method, addresses are "host:port" strings.
// It is deliberately not backed by a .proto-generated service: the
// bidi stream carries already-encoded message.Message bytes via rawCodec,
// so the RPC layer never needs to know the wire payload's Go type — the same
// rationale as the original source's BinCoder/BinCodec (see codec.go).
package grpcengine

import (
	"context"
	"fmt"
	"io"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/peer"

	"github.com/byronwasti/florescence/internal/domain"
	"github.com/byronwasti/florescence/internal/engine"
	"github.com/byronwasti/florescence/internal/message"
)

const (
	serviceName = "florescence.Pollination"
	methodName  = "/" + serviceName + "/Pollinate"
)

// rawStream is the subset of grpc.ClientStream/grpc.ServerStream this
// package needs; both satisfy it, so one Conn implementation serves both
// directions.
type rawStream interface {
	SendMsg(m any) error
	RecvMsg(m any) error
}

// Engine serves and dials the Pollinate stream.
type Engine struct {
	addr   domain.NetAddr
	server *grpc.Server
	wire   message.Format
}

// New builds an Engine framing messages with format (Binary by default, so
// New(addr) alone still works at its old call sites; pass message.JSON to
// opt into the JSON wire format instead).
func New(addr domain.NetAddr, format ...message.Format) *Engine {
	e := &Engine{addr: addr}
	if len(format) > 0 {
		e.wire = format[0]
	}
	return e
}

func (e *Engine) Addr() domain.NetAddr { return e.addr }

func (e *Engine) Listen(ctx context.Context) (<-chan engine.Conn[domain.NetAddr], error) {
	ln, err := net.Listen("tcp", string(e.addr))
	if err != nil {
		return nil, fmt.Errorf("grpcengine: listen %s: %w", e.addr, err)
	}

	out := make(chan engine.Conn[domain.NetAddr], 32)
	s := grpc.NewServer()
	s.RegisterService(&serviceDesc, &serverBinder{out: out, wire: e.wire})
	e.server = s

	go func() {
		<-ctx.Done()
		s.GracefulStop()
	}()
	go func() {
		defer close(out)
		_ = s.Serve(ln)
	}()

	return out, nil
}

func (e *Engine) Dial(ctx context.Context, addr domain.NetAddr) (engine.Conn[domain.NetAddr], error) {
	cc, err := grpc.NewClient(string(addr), grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("grpcengine: dial %s: %w", addr, err)
	}

	stream, err := cc.NewStream(ctx, &grpc.StreamDesc{
		StreamName:    "Pollinate",
		ServerStreams: true,
		ClientStreams: true,
	}, methodName, grpc.CallContentSubtype(codecName))
	if err != nil {
		_ = cc.Close()
		return nil, fmt.Errorf("grpcengine: open stream to %s: %w", addr, err)
	}

	return &conn{stream: stream, remote: addr, closeFn: cc.Close, wire: e.wire}, nil
}

// serverBinder is the opaque "service" object RegisterService hands back to
// our manually-built StreamDesc handler; it exists only to carry the
// new-connection channel across that boundary.
type serverBinder struct {
	out  chan<- engine.Conn[domain.NetAddr]
	wire message.Format
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*any)(nil),
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Pollinate",
			Handler:       pollinateHandler,
			ServerStreams: true,
			ClientStreams: true,
		},
	},
	Metadata: "florescence/pollinate.proto",
}

func pollinateHandler(srv any, stream grpc.ServerStream) error {
	binder := srv.(*serverBinder)

	remote := domain.NetAddr("unknown")
	if p, ok := peer.FromContext(stream.Context()); ok {
		remote = domain.NetAddr(p.Addr.String())
	}

	c := &conn{stream: stream, remote: remote, wire: binder.wire}
	select {
	case binder.out <- c:
	case <-stream.Context().Done():
		return stream.Context().Err()
	}

	<-stream.Context().Done()
	return stream.Context().Err()
}

// conn wraps one gRPC stream (either side) as an engine.Conn, encoding and
// decoding message.Message frames over rawCodec.
type conn struct {
	stream  rawStream
	remote  domain.NetAddr
	closeFn func() error
	wire    message.Format
}

func (c *conn) RemoteAddr() domain.NetAddr { return c.remote }

func (c *conn) Send(msg message.Message[domain.NetAddr]) error {
	data, err := message.EncodeFrameBytes(msg, c.wire, message.NetAddrCodec, message.NetAddrJSONCodec)
	if err != nil {
		return err
	}
	frame := rawFrame(data)
	return c.stream.SendMsg(&frame)
}

func (c *conn) Recv() (message.Message[domain.NetAddr], error) {
	var frame rawFrame
	if err := c.stream.RecvMsg(&frame); err != nil {
		if err == io.EOF {
			return message.Message[domain.NetAddr]{}, io.EOF
		}
		return message.Message[domain.NetAddr]{}, err
	}
	return message.DecodeFrameBytes(frame, c.wire, message.NetAddrCodec, message.NetAddrJSONCodec)
}

func (c *conn) Close() error {
	if c.closeFn != nil {
		return c.closeFn()
	}
	return nil
}
