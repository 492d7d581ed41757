// Package wire implements the securelink frame codec.
//
// A frame is one complete wire-format unit, big-endian throughout:
//
//	offset size  field
//	0      1     version (=1)
//	1      1     messageType (1..5)
//	2      8     sequenceNumber
//	10     4     payloadLength (ciphertext bytes)
//	14     12    IV
//	26     var   ciphertext
//	-48    16    authentication tag
//	-32    32    HMAC-SHA256 over all preceding bytes
//
// The fixed overhead is 74 bytes, which is also the minimum frame length.
// ParseFrame verifies the trailing HMAC before any decryption takes place,
// so a forged frame never reaches the cipher.
//
// Payloads are structured key-value documents encoded as canonical CBOR
// before encryption.
package wire
