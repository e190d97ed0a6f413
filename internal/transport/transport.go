// Package transport is the boundary between the peer session and the
// rendezvous service that actually moves bytes between players.
//
// A Transport registers a rendezvous identifier and yields an Endpoint. The
// endpoint dials other identifiers and accepts inbound connections. Each
// Conn is a reliable, ordered pipe to exactly one remote identifier.
//
// [Memory] implements the boundary in-process for tests. [WebRTC] implements
// it with pion data channels, signaled through the rendezvous server in
// internal/rendezvous.
package transport

import (
	"context"
	"errors"
)

var (
	ErrIDTaken         = errors.New("rendezvous id already in use")
	ErrPeerUnavailable = errors.New("peer unavailable")
	ErrClosed          = errors.New("transport closed")
	ErrConnClosed      = errors.New("connection closed")
)

// Metadata travels with a dial request and is visible to the accepting side
// before it decides whether to admit the connection.
type Metadata map[string]string

// MetadataUsername is the key under which a joining player's display name travels.
const MetadataUsername = "username"

// Transport registers rendezvous identifiers.
type Transport interface {
	// Register claims id with the rendezvous service. It fails with an error
	// wrapping ErrIDTaken when another endpoint already owns id.
	Register(ctx context.Context, id string) (Endpoint, error)
}

// Endpoint is a registered rendezvous identity.
type Endpoint interface {
	// ID returns the registered rendezvous identifier.
	ID() string

	// Dial opens a connection to remote and returns once it is open.
	Dial(ctx context.Context, remote string, metadata Metadata) (Conn, error)

	// Accept returns the next inbound open connection.
	Accept(ctx context.Context) (Conn, error)

	// Close releases the identifier and closes every connection.
	Close() error
}

// Conn is an open connection to one remote identifier.
type Conn interface {
	// Peer returns the remote rendezvous identifier.
	Peer() string

	// Metadata returns the metadata supplied by the dialing side.
	Metadata() Metadata

	// Send writes one message. Messages are delivered in order.
	Send(data []byte) error

	// Messages yields inbound messages in arrival order. The channel is
	// closed when the connection closes, whichever side or cause triggered it.
	Messages() <-chan []byte

	// Done is closed once the connection is closed.
	Done() <-chan struct{}

	// Err returns the reason the connection closed, or nil for a clean close.
	Err() error

	// Close closes the connection. Closing twice is a no-op.
	Close() error
}

// drainInbound closes connections that were queued for Accept but never
// taken.
func drainInbound(inbound chan Conn) {
	for {
		select {
		case conn := <-inbound:
			conn.Close()
		default:
			return
		}
	}
}
