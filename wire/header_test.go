package wire

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/securelink/limits"
)

func TestHeaderRoundTrip(t *testing.T) {
	cases := []struct {
		name   string
		header Header
	}{
		{name: "handshake init", header: Header{Version: 1, Type: MessageHandshakeInit, Sequence: 1, PayloadLength: 40}},
		{name: "data max seq", header: Header{Version: 1, Type: MessageData, Sequence: ^uint64(0), PayloadLength: 0}},
		{name: "ack", header: Header{Version: 1, Type: MessageAck, Sequence: 7, PayloadLength: 9}},
		{name: "close", header: Header{Version: 1, Type: MessageClose, Sequence: 1000, PayloadLength: 0}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			encoded := EncodeHeader(&tc.header)
			require.Len(t, encoded, limits.HeaderLen)

			decoded, err := DecodeHeader(encoded)
			require.NoError(t, err)
			assert.Equal(t, tc.header, *decoded)
		})
	}
}

func TestDecodeHeaderTooShort(t *testing.T) {
	_, err := DecodeHeader(make([]byte, limits.HeaderLen-1))
	assert.ErrorIs(t, err, ErrInvalidHeader)

	_, err = DecodeHeader(nil)
	assert.ErrorIs(t, err, ErrInvalidHeader)
}

func TestDecodeHeaderBadVersion(t *testing.T) {
	encoded := EncodeHeader(&Header{Version: 2, Type: MessageData, Sequence: 1})
	_, err := DecodeHeader(encoded)
	assert.ErrorIs(t, err, ErrInvalidHeader)
}

func TestDecodeHeaderUnknownTypePasses(t *testing.T) {
	// Unknown types survive header decoding so the connection layer can
	// report them as UnknownMessageType rather than a generic header error.
	encoded := EncodeHeader(&Header{Version: 1, Type: MessageType(0x7F), Sequence: 3})
	decoded, err := DecodeHeader(encoded)
	require.NoError(t, err)
	assert.Equal(t, MessageType(0x7F), decoded.Type)
}

func TestMessageTypeString(t *testing.T) {
	assert.Equal(t, "HANDSHAKE_INIT", MessageHandshakeInit.String())
	assert.Equal(t, "HANDSHAKE_RESPONSE", MessageHandshakeResponse.String())
	assert.Equal(t, "DATA", MessageData.String())
	assert.Equal(t, "ACK", MessageAck.String())
	assert.Equal(t, "CLOSE", MessageClose.String())
	assert.Equal(t, "UNKNOWN(0x7f)", MessageType(0x7F).String())
}

func TestErrorsAreDistinct(t *testing.T) {
	assert.False(t, errors.Is(ErrFrameTooShort, ErrInvalidHeader))
	assert.False(t, errors.Is(ErrDecode, ErrInvalidHeader))
}
