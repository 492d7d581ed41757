package securelink

// State represents the connection lifecycle state.
type State uint8

const (
	// StateDisconnected is the initial state before any handshake.
	StateDisconnected State = iota

	// StateHandshakeInit means the initiator sent HANDSHAKE_INIT and is
	// awaiting the response.
	StateHandshakeInit

	// StateHandshakeResponse means the responder sent HANDSHAKE_RESPONSE
	// and is awaiting the confirming ACK.
	StateHandshakeResponse

	// StateConnected means session keys are established and data flows.
	StateConnected

	// StateClosed is terminal. A closed connection cannot be reopened;
	// establish a new one instead.
	StateClosed
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "DISCONNECTED"
	case StateHandshakeInit:
		return "HANDSHAKE_INIT"
	case StateHandshakeResponse:
		return "HANDSHAKE_RESPONSE"
	case StateConnected:
		return "CONNECTED"
	case StateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}
