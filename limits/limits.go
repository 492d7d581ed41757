package limits

import (
	"errors"
	"fmt"
)

const (
	// HeaderLen is the fixed encoded size of a frame header:
	// version (1) + message type (1) + sequence number (8) + payload length (4).
	HeaderLen = 14

	// IVLen is the AEAD initialization vector size (96-bit GCM nonce).
	IVLen = 12

	// TagLen is the AEAD authentication tag size (128-bit GCM tag).
	TagLen = 16

	// MACLen is the size of the trailing HMAC-SHA256 over the frame.
	MACLen = 32

	// FrameOverhead is the fixed per-frame overhead: header + IV + tag + HMAC.
	FrameOverhead = HeaderLen + IVLen + TagLen + MACLen

	// MinFrameLen is the smallest valid frame (empty ciphertext).
	MinFrameLen = FrameOverhead

	// MaxPayloadSize is the absolute maximum plaintext payload for any frame.
	// This prevents memory exhaustion from hostile length fields (1MB limit).
	MaxPayloadSize = 1024 * 1024

	// MaxFrameLen is the largest frame the protocol will build or accept.
	MaxFrameLen = MaxPayloadSize + FrameOverhead
)

var (
	// ErrPayloadTooLarge indicates a payload exceeds MaxPayloadSize.
	ErrPayloadTooLarge = errors.New("payload too large")

	// ErrFrameTooLarge indicates a frame exceeds MaxFrameLen.
	ErrFrameTooLarge = errors.New("frame too large")
)

// ValidatePayloadSize validates a plaintext payload against MaxPayloadSize.
// Empty payloads are legal; CLOSE and keepalive-style frames carry none.
func ValidatePayloadSize(payload []byte) error {
	if len(payload) > MaxPayloadSize {
		return fmt.Errorf("%w: size %d exceeds limit %d", ErrPayloadTooLarge, len(payload), MaxPayloadSize)
	}
	return nil
}

// ValidateFrameSize validates a raw frame against MaxFrameLen.
// Short-frame detection belongs to the codec; this only bounds the upper end.
func ValidateFrameSize(frame []byte) error {
	if len(frame) > MaxFrameLen {
		return fmt.Errorf("%w: size %d exceeds limit %d", ErrFrameTooLarge, len(frame), MaxFrameLen)
	}
	return nil
}
