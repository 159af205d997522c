package internal

import (
	"bytes"
	"testing"
)

func TestSealOpenRoundTrip(t *testing.T) {
	key := bytes.Repeat([]byte{0x11}, 32)
	plaintext := []byte("JBSWY3DPEHPK3PXP")

	sealed, err := Seal(key, plaintext)
	if err != nil {
		t.Fatalf("Seal failed: %v", err)
	}
	if bytes.Contains(sealed, plaintext) {
		t.Fatal("ciphertext leaks plaintext")
	}

	opened, err := Open(key, sealed)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if !bytes.Equal(opened, plaintext) {
		t.Fatalf("round trip mismatch: %q", opened)
	}
}

func TestSealUniqueNonces(t *testing.T) {
	key := bytes.Repeat([]byte{0x11}, 32)

	a, err := Seal(key, []byte("same"))
	if err != nil {
		t.Fatalf("Seal failed: %v", err)
	}
	b, err := Seal(key, []byte("same"))
	if err != nil {
		t.Fatalf("Seal failed: %v", err)
	}
	if bytes.Equal(a, b) {
		t.Fatal("two seals of the same plaintext must differ")
	}
}

func TestOpenRejectsTamperingAndWrongKey(t *testing.T) {
	key := bytes.Repeat([]byte{0x11}, 32)
	sealed, err := Seal(key, []byte("secret"))
	if err != nil {
		t.Fatalf("Seal failed: %v", err)
	}

	tampered := append([]byte(nil), sealed...)
	tampered[len(tampered)-1] ^= 0x01
	if _, err := Open(key, tampered); err == nil {
		t.Fatal("expected authentication failure on tampered ciphertext")
	}

	other := bytes.Repeat([]byte{0x22}, 32)
	if _, err := Open(other, sealed); err == nil {
		t.Fatal("expected failure with wrong key")
	}

	if _, err := Open(key, []byte("short")); err == nil {
		t.Fatal("expected failure on truncated ciphertext")
	}
}

func TestSealRejectsBadKey(t *testing.T) {
	if _, err := Seal([]byte("too-short"), []byte("x")); err == nil {
		t.Fatal("expected error for non-32-byte key")
	}
}
