package wire

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/securelink/crypto"
	"github.com/opd-ai/securelink/limits"
)

// BuildFrame assembles a complete wire frame for the given message type,
// sequence number, and serialized payload document.
//
// The payload is AEAD-encrypted under keys.EncryptionKey with a fresh
// random IV, then header, IV, ciphertext, and tag are concatenated and an
// HMAC-SHA256 under keys.HMACKey over everything preceding it is appended.
func BuildFrame(msgType MessageType, seq uint64, payload []byte, keys *crypto.SessionKeys) ([]byte, error) {
	if err := limits.ValidatePayloadSize(payload); err != nil {
		return nil, err
	}

	ciphertext, iv, tag, err := crypto.EncryptAEAD(payload, keys.EncryptionKey, nil)
	if err != nil {
		return nil, fmt.Errorf("frame encryption failed: %w", err)
	}

	header := &Header{
		Version:       ProtocolVersion,
		Type:          msgType,
		Sequence:      seq,
		PayloadLength: uint32(len(ciphertext)),
	}

	frame := make([]byte, 0, limits.FrameOverhead+len(ciphertext))
	frame = append(frame, EncodeHeader(header)...)
	frame = append(frame, iv...)
	frame = append(frame, ciphertext...)
	frame = append(frame, tag...)

	mac := crypto.ComputeHMAC(frame, keys.HMACKey)
	frame = append(frame, mac[:]...)

	logrus.WithFields(logrus.Fields{
		"function": "BuildFrame",
		"type":     msgType.String(),
		"seq":      seq,
		"size":     len(frame),
	}).Trace("Frame built")

	return frame, nil
}

// ParseFrame validates and decrypts a complete wire frame.
//
// The trailing HMAC is verified over all preceding bytes BEFORE any
// decryption is attempted, so a tampered frame never reaches the cipher
// and cannot be used as a decryption oracle. Authentication failures of
// either the HMAC or the AEAD tag surface as
// crypto.ErrAuthenticationFailed.
func ParseFrame(frame []byte, keys *crypto.SessionKeys) (*Header, []byte, error) {
	if len(frame) < limits.MinFrameLen {
		return nil, nil, fmt.Errorf("%w: %d bytes, need %d", ErrFrameTooShort, len(frame), limits.MinFrameLen)
	}
	if err := limits.ValidateFrameSize(frame); err != nil {
		return nil, nil, err
	}

	// Fixed offsets: header | iv | ciphertext | tag | hmac.
	macStart := len(frame) - limits.MACLen
	tagStart := macStart - limits.TagLen
	ctStart := limits.HeaderLen + limits.IVLen

	var mac [32]byte
	copy(mac[:], frame[macStart:])
	if !crypto.VerifyHMAC(frame[:macStart], keys.HMACKey, mac) {
		return nil, nil, fmt.Errorf("frame HMAC mismatch: %w", crypto.ErrAuthenticationFailed)
	}

	header, err := DecodeHeader(frame[:limits.HeaderLen])
	if err != nil {
		return nil, nil, err
	}

	ciphertext := frame[ctStart:tagStart]
	if int(header.PayloadLength) != len(ciphertext) {
		return nil, nil, fmt.Errorf("%w: declared payload length %d, frame carries %d",
			ErrInvalidHeader, header.PayloadLength, len(ciphertext))
	}

	iv := frame[limits.HeaderLen:ctStart]
	tag := frame[tagStart:macStart]

	payload, err := crypto.DecryptAEAD(ciphertext, keys.EncryptionKey, iv, tag)
	if err != nil {
		return nil, nil, fmt.Errorf("frame decryption failed: %w", err)
	}

	return header, payload, nil
}
