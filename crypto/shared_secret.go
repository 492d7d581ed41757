package crypto

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/curve25519"
)

// ErrInvalidPeerKey indicates a peer public key that is malformed or maps
// to the all-zero shared secret (low-order curve point).
var ErrInvalidPeerKey = errors.New("invalid peer public key")

// DeriveSharedSecret computes a shared secret between two parties using
// Elliptic Curve Diffie-Hellman (ECDH) on Curve25519.
//
// The computation runs in constant time. Peer keys that are all-zero or
// that are low-order points (which would yield an all-zero secret) are
// rejected with ErrInvalidPeerKey.
func DeriveSharedSecret(privateKey, peerPublicKey [32]byte) ([32]byte, error) {
	if isZeroKey(peerPublicKey) {
		return [32]byte{}, ErrInvalidPeerKey
	}

	// Work on copies so the caller's key material is never modified.
	var publicKeyCopy [32]byte
	var privateKeyCopy [32]byte
	copy(publicKeyCopy[:], peerPublicKey[:])
	copy(privateKeyCopy[:], privateKey[:])

	sharedSecret, err := curve25519.X25519(privateKeyCopy[:], publicKeyCopy[:])
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "DeriveSharedSecret",
			"error":    err.Error(),
		}).Error("X25519 computation failed")

		ZeroBytes(privateKeyCopy[:])
		return [32]byte{}, fmt.Errorf("%w: %v", ErrInvalidPeerKey, err)
	}

	var result [32]byte
	copy(result[:], sharedSecret)

	// Wipe the key copy and the intermediate secret before returning.
	ZeroBytes(privateKeyCopy[:])
	ZeroBytes(sharedSecret)

	logrus.WithFields(logrus.Fields{
		"function":        "DeriveSharedSecret",
		"peer_key_prefix": fmt.Sprintf("%x", peerPublicKey[:8]),
	}).Debug("Shared secret computed, sensitive data wiped")

	return result, nil
}
