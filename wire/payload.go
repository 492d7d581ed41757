package wire

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// encMode is the CBOR encoder mode for payload documents.
// Configured for deterministic encoding so both endpoints produce
// identical bytes for identical documents.
var encMode cbor.EncMode

// decMode is the CBOR decoder mode for payload documents.
var decMode cbor.DecMode

func init() {
	var err error

	encOpts := cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
		Time:          cbor.TimeUnix,
	}
	encMode, err = encOpts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create CBOR encoder mode: %v", err))
	}

	// Lenient decoding for forward compatibility with future fields.
	decOpts := cbor.DecOptions{
		DupMapKey:         cbor.DupMapKeyQuiet,
		IndefLength:       cbor.IndefLengthAllowed,
		ExtraReturnErrors: cbor.ExtraDecErrorNone,
	}
	decMode, err = decOpts.DecMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create CBOR decoder mode: %v", err))
	}
}

// HandshakePayload travels in HANDSHAKE_INIT and HANDSHAKE_RESPONSE frames
// and carries the sender's ephemeral public key.
type HandshakePayload struct {
	PublicKey []byte `cbor:"1,keyasint"`
}

// DataPayload wraps application bytes in a DATA frame.
type DataPayload struct {
	Body []byte `cbor:"1,keyasint"`
}

// AckPayload references the sequence number being acknowledged. The frame's
// own header sequence belongs to the sender's outgoing counter; Acked names
// the peer frame this ACK answers.
type AckPayload struct {
	Acked uint64 `cbor:"1,keyasint"`
}

// ClosePayload optionally explains why the connection is going away.
type ClosePayload struct {
	Reason string `cbor:"1,keyasint,omitempty"`
}

// EncodePayload serializes a payload document to canonical CBOR bytes.
func EncodePayload(v any) ([]byte, error) {
	data, err := encMode.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return data, nil
}

// DecodePayload deserializes CBOR bytes into a payload document.
func DecodePayload(data []byte, v any) error {
	if err := decMode.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return nil
}

// DecodeHandshakePayload parses and validates a handshake document. Keys
// that are not exactly 32 bytes or that are all zero are rejected; a zero
// key can never be an honest X25519 public key.
func DecodeHandshakePayload(data []byte) (*HandshakePayload, [32]byte, error) {
	var p HandshakePayload
	var key [32]byte

	if err := DecodePayload(data, &p); err != nil {
		return nil, key, err
	}
	if len(p.PublicKey) != 32 {
		return nil, key, fmt.Errorf("%w: handshake public key is %d bytes, want 32", ErrDecode, len(p.PublicKey))
	}
	copy(key[:], p.PublicKey)

	allZero := true
	for _, b := range key {
		if b != 0 {
			allZero = false
			break
		}
	}
	if allZero {
		return nil, key, fmt.Errorf("%w: handshake public key is all zeros", ErrDecode)
	}

	return &p, key, nil
}
