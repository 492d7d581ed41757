package crypto

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/hkdf"
)

// ErrKeyDerivation indicates HKDF expansion failed.
var ErrKeyDerivation = errors.New("key derivation failed")

// Fixed HKDF parameters. Both peers must use identical values so that the
// same shared secret always expands to the same session keys.
var (
	kdfSalt = []byte("securelink/v1 session salt")
	kdfInfo = []byte("securelink/v1 session keys")

	// handshakeSeed feeds the well-known keys used to frame handshake
	// messages before a shared secret exists. These keys provide framing
	// integrity only, never secrecy: every implementation knows them.
	handshakeSeed = []byte("securelink/v1 handshake framing")
)

// SessionKeys holds the symmetric keys derived for one connection.
//
// The keys are derived once at handshake completion and are immutable for
// the connection lifetime. Both peers compute them independently from the
// shared secret and must arrive at identical values.
type SessionKeys struct {
	EncryptionKey [32]byte
	HMACKey       [32]byte
}

// DeriveSessionKeys expands a shared secret into session keys using
// HKDF-SHA256 with the protocol's fixed salt and info.
//
// The expansion is deterministic: identical secrets always yield identical
// keys. The first 32 bytes become the encryption key, the last 32 the HMAC
// key.
func DeriveSessionKeys(sharedSecret [32]byte) (*SessionKeys, error) {
	reader := hkdf.New(sha256.New, sharedSecret[:], kdfSalt, kdfInfo)

	okm := make([]byte, 64)
	if _, err := io.ReadFull(reader, okm); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyDerivation, err)
	}

	keys := &SessionKeys{}
	copy(keys.EncryptionKey[:], okm[:32])
	copy(keys.HMACKey[:], okm[32:])
	ZeroBytes(okm)

	logrus.WithFields(logrus.Fields{
		"function": "DeriveSessionKeys",
	}).Debug("Session keys derived from shared secret")

	return keys, nil
}

// HandshakeKeys returns the well-known keys that frame HANDSHAKE_INIT and
// HANDSHAKE_RESPONSE messages. Because they are derived from public
// protocol constants they carry no confidentiality; they only let the
// codec apply one uniform frame layout before session keys exist.
func HandshakeKeys() *SessionKeys {
	reader := hkdf.New(sha256.New, handshakeSeed, kdfSalt, kdfInfo)

	okm := make([]byte, 64)
	// Reading 64 bytes from a single SHA-256 HKDF cannot fail.
	if _, err := io.ReadFull(reader, okm); err != nil {
		panic(fmt.Sprintf("handshake key expansion failed: %v", err))
	}

	keys := &SessionKeys{}
	copy(keys.EncryptionKey[:], okm[:32])
	copy(keys.HMACKey[:], okm[32:])

	return keys
}

// Wipe erases the key material. Call when the owning connection closes.
func (k *SessionKeys) Wipe() {
	if k == nil {
		return
	}
	ZeroBytes(k.EncryptionKey[:])
	ZeroBytes(k.HMACKey[:])
}
