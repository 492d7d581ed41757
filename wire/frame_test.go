package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/securelink/crypto"
	"github.com/opd-ai/securelink/limits"
)

func testSessionKeys(t *testing.T) *crypto.SessionKeys {
	t.Helper()
	var secret [32]byte
	for i := range secret {
		secret[i] = byte(i * 3)
	}
	keys, err := crypto.DeriveSessionKeys(secret)
	require.NoError(t, err)
	return keys
}

func TestFrameRoundTrip(t *testing.T) {
	keys := testSessionKeys(t)

	cases := []struct {
		name    string
		msgType MessageType
		seq     uint64
		payload []byte
	}{
		{name: "data", msgType: MessageData, seq: 1, payload: []byte("ping")},
		{name: "empty payload", msgType: MessageClose, seq: 2, payload: nil},
		{name: "ack", msgType: MessageAck, seq: 3, payload: []byte{0x81, 0x01}},
		{name: "large payload", msgType: MessageData, seq: ^uint64(0), payload: make([]byte, 64*1024)},
		{name: "handshake", msgType: MessageHandshakeInit, seq: 1, payload: make([]byte, 34)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			frame, err := BuildFrame(tc.msgType, tc.seq, tc.payload, keys)
			require.NoError(t, err)
			assert.Equal(t, limits.FrameOverhead+len(tc.payload), len(frame))
			assert.GreaterOrEqual(t, len(frame), limits.MinFrameLen)

			header, payload, err := ParseFrame(frame, keys)
			require.NoError(t, err)
			assert.Equal(t, tc.msgType, header.Type)
			assert.Equal(t, tc.seq, header.Sequence)
			assert.Equal(t, len(tc.payload), len(payload))
			if len(tc.payload) > 0 {
				assert.Equal(t, tc.payload, payload)
			}
		})
	}
}

func TestParseFrameTooShort(t *testing.T) {
	keys := testSessionKeys(t)

	for _, size := range []int{0, 1, 13, 14, limits.MinFrameLen - 1} {
		_, _, err := ParseFrame(make([]byte, size), keys)
		assert.ErrorIs(t, err, ErrFrameTooShort, "size %d", size)
	}
}

func TestParseFrameEveryBitFlipFails(t *testing.T) {
	keys := testSessionKeys(t)

	frame, err := BuildFrame(MessageData, 42, []byte("integrity matters"), keys)
	require.NoError(t, err)

	// Flipping any single bit anywhere in the frame must be detected.
	// Walk every byte, flipping one bit per byte position.
	for i := range frame {
		tampered := make([]byte, len(frame))
		copy(tampered, frame)
		tampered[i] ^= 1 << (uint(i) % 8)

		_, payload, err := ParseFrame(tampered, keys)
		assert.ErrorIs(t, err, crypto.ErrAuthenticationFailed, "flip at offset %d", i)
		assert.Nil(t, payload, "plaintext leaked for flip at offset %d", i)
	}
}

func TestParseFrameWrongKeys(t *testing.T) {
	keys := testSessionKeys(t)

	var otherSecret [32]byte
	otherSecret[0] = 0xFF
	otherKeys, err := crypto.DeriveSessionKeys(otherSecret)
	require.NoError(t, err)

	frame, err := BuildFrame(MessageData, 5, []byte("secret"), keys)
	require.NoError(t, err)

	// Entirely different session keys.
	_, _, err = ParseFrame(frame, otherKeys)
	assert.ErrorIs(t, err, crypto.ErrAuthenticationFailed)

	// Right MAC key, wrong encryption key: HMAC passes, AEAD must not.
	mixed := &crypto.SessionKeys{
		EncryptionKey: otherKeys.EncryptionKey,
		HMACKey:       keys.HMACKey,
	}
	_, _, err = ParseFrame(frame, mixed)
	assert.ErrorIs(t, err, crypto.ErrAuthenticationFailed)

	// Wrong MAC key, right encryption key.
	mixed = &crypto.SessionKeys{
		EncryptionKey: keys.EncryptionKey,
		HMACKey:       otherKeys.HMACKey,
	}
	_, _, err = ParseFrame(frame, mixed)
	assert.ErrorIs(t, err, crypto.ErrAuthenticationFailed)
}

func TestParseFrameLengthMismatch(t *testing.T) {
	keys := testSessionKeys(t)

	frame, err := BuildFrame(MessageData, 9, []byte("abc"), keys)
	require.NoError(t, err)

	// Rewrite the declared payload length and re-MAC so only the length
	// consistency check can catch it.
	frame[12] = 0xFF
	mac := crypto.ComputeHMAC(frame[:len(frame)-limits.MACLen], keys.HMACKey)
	copy(frame[len(frame)-limits.MACLen:], mac[:])

	_, _, err = ParseFrame(frame, keys)
	assert.ErrorIs(t, err, ErrInvalidHeader)
}

func TestParseFrameOversized(t *testing.T) {
	keys := testSessionKeys(t)
	_, _, err := ParseFrame(make([]byte, limits.MaxFrameLen+1), keys)
	assert.ErrorIs(t, err, limits.ErrFrameTooLarge)
}

func TestBuildFrameOversizedPayload(t *testing.T) {
	keys := testSessionKeys(t)
	_, err := BuildFrame(MessageData, 1, make([]byte, limits.MaxPayloadSize+1), keys)
	assert.ErrorIs(t, err, limits.ErrPayloadTooLarge)
}

func TestBuildFrameFreshIVs(t *testing.T) {
	keys := testSessionKeys(t)

	first, err := BuildFrame(MessageData, 1, []byte("same"), keys)
	require.NoError(t, err)
	second, err := BuildFrame(MessageData, 1, []byte("same"), keys)
	require.NoError(t, err)

	// Same type, sequence, payload, and keys must still differ on the
	// wire because every frame draws a fresh random IV.
	assert.NotEqual(t, first, second)
	assert.NotEqual(t,
		first[limits.HeaderLen:limits.HeaderLen+limits.IVLen],
		second[limits.HeaderLen:limits.HeaderLen+limits.IVLen])
}
