package securelink

import "errors"

// Connection errors.
var (
	// ErrInvalidState indicates an operation attempted outside its valid
	// connection state. Reported synchronously to the caller; it does not
	// close the connection.
	ErrInvalidState = errors.New("invalid connection state")

	// ErrHandshakeFailure indicates Connect could not complete the
	// handshake. The connection is closed.
	ErrHandshakeFailure = errors.New("handshake failed")

	// ErrSequence indicates a replayed or reordered frame: its sequence
	// number was not strictly greater than the last accepted one.
	ErrSequence = errors.New("sequence violation")

	// ErrUnknownMessageType indicates a frame with a type outside the
	// protocol's message set.
	ErrUnknownMessageType = errors.New("unknown message type")

	// ErrAckTimeout indicates a sent frame was not acknowledged within
	// the configured timeout.
	ErrAckTimeout = errors.New("ack timeout")

	// ErrReceiveTimeout indicates no DATA frame arrived for a pending
	// Receive within the configured timeout.
	ErrReceiveTimeout = errors.New("receive timeout")

	// ErrProtocolTimeout indicates the idle timer fired: nothing arrived
	// from the peer for the configured inactivity period. The connection
	// is force-closed.
	ErrProtocolTimeout = errors.New("protocol timeout")

	// ErrConnectionClosed indicates the connection closed while the
	// operation was outstanding, or the operation was attempted after
	// close.
	ErrConnectionClosed = errors.New("connection closed")
)
