package wire

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/opd-ai/securelink/limits"
)

// ProtocolVersion is the only wire version this implementation speaks.
const ProtocolVersion = 1

// MessageType identifies the semantic type of a frame.
type MessageType uint8

const (
	// MessageHandshakeInit opens a handshake and carries the initiator's
	// ephemeral public key.
	MessageHandshakeInit MessageType = 0x01
	// MessageHandshakeResponse answers an init with the responder's
	// ephemeral public key.
	MessageHandshakeResponse MessageType = 0x02
	// MessageData carries an application payload.
	MessageData MessageType = 0x03
	// MessageAck acknowledges a specific sequence number.
	MessageAck MessageType = 0x04
	// MessageClose announces connection teardown.
	MessageClose MessageType = 0x05
)

// String returns a human-readable message type name.
func (t MessageType) String() string {
	switch t {
	case MessageHandshakeInit:
		return "HANDSHAKE_INIT"
	case MessageHandshakeResponse:
		return "HANDSHAKE_RESPONSE"
	case MessageData:
		return "DATA"
	case MessageAck:
		return "ACK"
	case MessageClose:
		return "CLOSE"
	default:
		return fmt.Sprintf("UNKNOWN(0x%02x)", uint8(t))
	}
}

var (
	// ErrInvalidHeader indicates a header that is too short, carries an
	// unknown version or type, or disagrees with the frame length.
	ErrInvalidHeader = errors.New("invalid header")

	// ErrFrameTooShort indicates fewer bytes than the fixed 74-byte
	// frame overhead.
	ErrFrameTooShort = errors.New("frame too short")

	// ErrDecode indicates a payload document that failed to deserialize.
	ErrDecode = errors.New("payload decode failed")
)

// Header is the fixed 14-byte big-endian frame header.
type Header struct {
	Version       uint8
	Type          MessageType
	Sequence      uint64
	PayloadLength uint32
}

// EncodeHeader serializes h into its fixed 14-byte layout.
func EncodeHeader(h *Header) []byte {
	buf := make([]byte, limits.HeaderLen)
	buf[0] = h.Version
	buf[1] = byte(h.Type)
	binary.BigEndian.PutUint64(buf[2:10], h.Sequence)
	binary.BigEndian.PutUint32(buf[10:14], h.PayloadLength)
	return buf
}

// DecodeHeader parses the fixed header from the front of data.
// It fails with ErrInvalidHeader when fewer than 14 bytes are available or
// the version is unsupported. Unknown message types are NOT rejected here;
// the connection layer surfaces those so it can report them distinctly.
func DecodeHeader(data []byte) (*Header, error) {
	if len(data) < limits.HeaderLen {
		return nil, fmt.Errorf("%w: %d bytes, need %d", ErrInvalidHeader, len(data), limits.HeaderLen)
	}

	h := &Header{
		Version:       data[0],
		Type:          MessageType(data[1]),
		Sequence:      binary.BigEndian.Uint64(data[2:10]),
		PayloadLength: binary.BigEndian.Uint32(data[10:14]),
	}

	if h.Version != ProtocolVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrInvalidHeader, h.Version)
	}

	return h, nil
}
