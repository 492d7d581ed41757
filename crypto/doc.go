// Package crypto implements the cryptographic primitives for the securelink
// protocol.
//
// This package handles ephemeral key generation, X25519 key agreement,
// HKDF-SHA256 session key derivation, AES-256-GCM payload encryption, and
// HMAC-SHA256 frame authentication using Go's x/crypto and standard library
// packages.
//
// Example:
//
//	keys, err := crypto.GenerateKeyPair()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println("Public key:", hex.EncodeToString(keys.Public[:]))
package crypto
