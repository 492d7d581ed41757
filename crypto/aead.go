package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"

	"github.com/opd-ai/securelink/limits"
)

var (
	// ErrAuthenticationFailed indicates an authentication tag or HMAC did
	// not verify. No plaintext is ever released when this is returned.
	ErrAuthenticationFailed = errors.New("authentication failed")

	// ErrInvalidIV indicates an IV of the wrong size was supplied.
	ErrInvalidIV = errors.New("invalid IV length")
)

// EncryptAEAD encrypts plaintext with AES-256-GCM.
//
// If iv is nil a fresh random 12-byte IV is drawn; an explicit iv must be
// exactly 12 bytes. The 16-byte authentication tag is returned separately
// from the ciphertext so the frame codec can place it at a fixed offset.
//
// Reusing an IV under the same key is a catastrophic confidentiality
// break. Callers that pass an explicit IV own that risk; the random path
// is always safe.
func EncryptAEAD(plaintext []byte, key [32]byte, iv []byte) (ciphertext, usedIV, tag []byte, err error) {
	if err := limits.ValidatePayloadSize(plaintext); err != nil {
		return nil, nil, nil, err
	}

	if iv == nil {
		iv = make([]byte, limits.IVLen)
		if _, err := rand.Read(iv); err != nil {
			return nil, nil, nil, fmt.Errorf("%w: %v", ErrKeyGeneration, err)
		}
	} else if len(iv) != limits.IVLen {
		return nil, nil, nil, fmt.Errorf("%w: got %d, want %d", ErrInvalidIV, len(iv), limits.IVLen)
	}

	aead, err := newGCM(key)
	if err != nil {
		return nil, nil, nil, err
	}

	// Seal appends ciphertext||tag; split so the tag travels separately.
	sealed := aead.Seal(nil, iv, plaintext, nil)
	split := len(sealed) - limits.TagLen

	return sealed[:split], iv, sealed[split:], nil
}

// DecryptAEAD decrypts ciphertext with AES-256-GCM, verifying the tag in
// constant time. On tag mismatch it returns ErrAuthenticationFailed and no
// partial plaintext.
func DecryptAEAD(ciphertext []byte, key [32]byte, iv, tag []byte) ([]byte, error) {
	if len(iv) != limits.IVLen {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrInvalidIV, len(iv), limits.IVLen)
	}
	if len(tag) != limits.TagLen {
		return nil, ErrAuthenticationFailed
	}

	aead, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	sealed := make([]byte, 0, len(ciphertext)+len(tag))
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, tag...)

	plaintext, err := aead.Open(nil, iv, sealed, nil)
	if err != nil {
		return nil, ErrAuthenticationFailed
	}

	return plaintext, nil
}

func newGCM(key [32]byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, fmt.Errorf("cipher init failed: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("cipher init failed: %w", err)
	}
	return aead, nil
}
