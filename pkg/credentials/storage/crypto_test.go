package storage

import (
	"strings"
	"testing"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	key, err := generateKey()
	if err != nil {
		t.Fatalf("generateKey() error = %v", err)
	}

	plaintext := []byte(`{"version":1,"credentials":{}}`)
	envelope, err := encrypt(key, plaintext)
	if err != nil {
		t.Fatalf("encrypt() error = %v", err)
	}

	if parts := strings.Split(envelope, ":"); len(parts) != 3 {
		t.Fatalf("envelope has %d parts, want 3 (iv:authTag:ciphertext)", len(parts))
	}
	if strings.Contains(envelope, string(plaintext)) {
		t.Fatal("envelope contains plaintext")
	}

	got, err := decrypt(key, envelope)
	if err != nil {
		t.Fatalf("decrypt() error = %v", err)
	}
	if string(got) != string(plaintext) {
		t.Errorf("decrypt() = %q, want %q", got, plaintext)
	}
}

func TestDecryptRejectsTampering(t *testing.T) {
	key, _ := generateKey()
	envelope, err := encrypt(key, []byte("secret payload"))
	if err != nil {
		t.Fatalf("encrypt() error = %v", err)
	}

	// Flip one hex digit of the ciphertext part.
	parts := strings.Split(envelope, ":")
	ct := []byte(parts[2])
	if ct[0] == '0' {
		ct[0] = '1'
	} else {
		ct[0] = '0'
	}
	tampered := parts[0] + ":" + parts[1] + ":" + string(ct)

	if _, err := decrypt(key, tampered); err == nil {
		t.Error("decrypt() accepted tampered ciphertext")
	}
}

func TestDecryptRejectsWrongKey(t *testing.T) {
	key1, _ := generateKey()
	key2, _ := generateKey()

	envelope, err := encrypt(key1, []byte("secret payload"))
	if err != nil {
		t.Fatalf("encrypt() error = %v", err)
	}
	if _, err := decrypt(key2, envelope); err == nil {
		t.Error("decrypt() accepted wrong key")
	}
}

func TestDecryptRejectsMalformedEnvelopes(t *testing.T) {
	key, _ := generateKey()

	for _, envelope := range []string{
		"",
		"nothexatall",
		"aa:bb",
		"zz:zz:zz",
		"aabb:ccdd:eeff", // wrong nonce/tag sizes
	} {
		if _, err := decrypt(key, envelope); err == nil {
			t.Errorf("decrypt(%q) accepted malformed envelope", envelope)
		}
	}
}
