// Package engine defines the transport boundary a Flower runs over: Dial an
// address to open an outbound Conn, Listen for inbound ones. Message bytes
// are opaque to the engine — it never needs to know the wire payload's Go
// type, matching the rationale behind the original source's BinCoder/BinCodec
// split between transport and codec.
package engine

import (
	"context"

	"github.com/byronwasti/florescence/internal/message"
)

// Engine is implemented once per transport (memengine, grpcengine,
// httpengine). A is the address type connections are identified by.
type Engine[A comparable] interface {
	// Addr returns this engine's own bind address.
	Addr() A

	// Listen starts accepting inbound connections, returning a channel of
	// them. Closing ctx stops accepting and closes the channel.
	Listen(ctx context.Context) (<-chan Conn[A], error)

	// Dial opens an outbound connection to addr.
	Dial(ctx context.Context, addr A) (Conn[A], error)
}

// Conn is one bidirectional message stream to a single peer.
type Conn[A comparable] interface {
	// RemoteAddr is the peer this Conn talks to.
	RemoteAddr() A

	// Send delivers msg to the peer. Must not block indefinitely.
	Send(msg message.Message[A]) error

	// Recv blocks for the next inbound message, or returns an error (incl.
	// io.EOF) once the peer is gone.
	Recv() (message.Message[A], error)

	Close() error
}
