package crypto

import (
	"bytes"
	"errors"
	"testing"
)

func TestGenerateKeyPair(t *testing.T) {
	keyPair, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair() error: %v", err)
	}

	if keyPair == nil {
		t.Fatal("GenerateKeyPair() returned nil key pair")
	}

	// Check that keys are not zero
	if isZeroKey(keyPair.Public) {
		t.Error("GenerateKeyPair() returned zero public key")
	}

	if isZeroKey(keyPair.Private) {
		t.Error("GenerateKeyPair() returned zero private key")
	}

	// Test that multiple key generations produce different keys
	keyPair2, _ := GenerateKeyPair()
	if bytes.Equal(keyPair.Public[:], keyPair2.Public[:]) {
		t.Error("Multiple GenerateKeyPair() calls produced identical public keys")
	}
}

func TestFromSecretKey(t *testing.T) {
	cases := []struct {
		name      string
		secretKey [32]byte
		wantError bool
	}{
		{
			name:      "Valid key",
			secretKey: [32]byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17, 18, 19, 20, 21, 22, 23, 24, 25, 26, 27, 28, 29, 30, 31, 32},
			wantError: false,
		},
		{
			name:      "Zero key",
			secretKey: [32]byte{},
			wantError: true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			keyPair, err := FromSecretKey(tc.secretKey)
			if tc.wantError {
				if err == nil {
					t.Fatal("FromSecretKey() expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("FromSecretKey() error: %v", err)
			}
			if isZeroKey(keyPair.Public) {
				t.Error("FromSecretKey() derived zero public key")
			}
		})
	}
}

func TestFromSecretKeyMatchesGenerated(t *testing.T) {
	generated, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair() error: %v", err)
	}

	rebuilt, err := FromSecretKey(generated.Private)
	if err != nil {
		t.Fatalf("FromSecretKey() error: %v", err)
	}

	if !bytes.Equal(generated.Public[:], rebuilt.Public[:]) {
		t.Error("FromSecretKey() public key does not match GenerateKeyPair()")
	}
}

func TestDeriveSharedSecretSymmetry(t *testing.T) {
	alice, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair() error: %v", err)
	}
	bob, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair() error: %v", err)
	}

	fromAlice, err := DeriveSharedSecret(alice.Private, bob.Public)
	if err != nil {
		t.Fatalf("DeriveSharedSecret(alice) error: %v", err)
	}
	fromBob, err := DeriveSharedSecret(bob.Private, alice.Public)
	if err != nil {
		t.Fatalf("DeriveSharedSecret(bob) error: %v", err)
	}

	if !bytes.Equal(fromAlice[:], fromBob[:]) {
		t.Error("shared secrets do not match between peers")
	}

	if isZeroKey(fromAlice) {
		t.Error("shared secret is all zeros")
	}
}

func TestDeriveSharedSecretForwardSecrecy(t *testing.T) {
	peer, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair() error: %v", err)
	}

	// Two independent ephemeral pairs against the same peer public key
	// must produce distinct secrets.
	first, _ := GenerateKeyPair()
	second, _ := GenerateKeyPair()

	secretA, err := DeriveSharedSecret(first.Private, peer.Public)
	if err != nil {
		t.Fatalf("DeriveSharedSecret() error: %v", err)
	}
	secretB, err := DeriveSharedSecret(second.Private, peer.Public)
	if err != nil {
		t.Fatalf("DeriveSharedSecret() error: %v", err)
	}

	if bytes.Equal(secretA[:], secretB[:]) {
		t.Error("independent ephemeral keys produced identical shared secrets")
	}
}

func TestDeriveSharedSecretRejectsZeroPeerKey(t *testing.T) {
	local, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair() error: %v", err)
	}

	_, err = DeriveSharedSecret(local.Private, [32]byte{})
	if !errors.Is(err, ErrInvalidPeerKey) {
		t.Errorf("DeriveSharedSecret() error = %v, want ErrInvalidPeerKey", err)
	}
}

func TestSecureWipe(t *testing.T) {
	data := []byte{1, 2, 3, 4}
	if err := SecureWipe(data); err != nil {
		t.Fatalf("SecureWipe() error: %v", err)
	}
	for i, b := range data {
		if b != 0 {
			t.Errorf("SecureWipe() left byte %d = %d", i, b)
		}
	}

	if err := SecureWipe(nil); err == nil {
		t.Error("SecureWipe(nil) expected error, got nil")
	}
}
