package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
)

// ComputeHMAC returns the HMAC-SHA256 tag of data under key.
func ComputeHMAC(data []byte, key [32]byte) [32]byte {
	mac := hmac.New(sha256.New, key[:])
	mac.Write(data)

	var tag [32]byte
	copy(tag[:], mac.Sum(nil))
	return tag
}

// VerifyHMAC reports whether tag is the HMAC-SHA256 of data under key.
// The comparison is constant time with no early exit, so the verdict
// leaks nothing about where a forged tag diverges.
func VerifyHMAC(data []byte, key [32]byte, tag [32]byte) bool {
	expected := ComputeHMAC(data, key)
	return hmac.Equal(expected[:], tag[:])
}
