package transport

import "errors"

// ErrTransportClosed indicates a send on a transport that has been closed.
var ErrTransportClosed = errors.New("transport closed")

// Handler is a function that processes one complete inbound frame.
type Handler func(frame []byte)

// Transport defines the interface for byte carriers used by securelink
// connections. This abstraction allows different carriers (in-memory pipe,
// TCP, WebSocket) to be used interchangeably; the connection layer only
// ever sees opaque frames.
type Transport interface {
	// Send transmits one complete frame to the peer.
	Send(frame []byte) error

	// Close shuts down the carrier. Further sends fail with
	// ErrTransportClosed. Close is idempotent.
	Close() error

	// RegisterHandler registers the callback invoked once per inbound
	// frame, in delivery order. Frames arriving before a handler is
	// registered are dropped.
	RegisterHandler(handler Handler)
}
