package security

import (
	"strings"
	"testing"
)

const testKey = "0123456789abcdef0123456789abcdef" // 32 hex chars -> 16 byte key

func TestEncryptDecryptRoundTrip(t *testing.T) {
	cipher, err := NewCipher(testKey)
	if err != nil {
		t.Fatalf("NewCipher: %v", err)
	}

	inputs := []string{"", "John Doe", "user@example.com", "pseudonym with spaces", strings.Repeat("x", 4096)}
	for _, input := range inputs {
		encrypted, err := cipher.Encrypt(input)
		if err != nil {
			t.Fatalf("Encrypt(%q): %v", input, err)
		}
		if input != "" && encrypted == input {
			t.Errorf("Encrypt(%q) returned plaintext", input)
		}

		decrypted, err := cipher.Decrypt(encrypted)
		if err != nil {
			t.Fatalf("Decrypt: %v", err)
		}
		if decrypted != input {
			t.Errorf("round trip = %q, want %q", decrypted, input)
		}
	}
}

func TestEncryptIsNonDeterministic(t *testing.T) {
	cipher, err := NewCipher(testKey)
	if err != nil {
		t.Fatalf("NewCipher: %v", err)
	}

	a, _ := cipher.Encrypt("value")
	b, _ := cipher.Encrypt("value")
	if a == b {
		t.Error("two encryptions of the same value produced identical ciphertext")
	}
}

func TestNewCipherRejectsBadKeys(t *testing.T) {
	if _, err := NewCipher(""); err == nil {
		t.Error("empty key accepted")
	}
	if _, err := NewCipher("short"); err == nil {
		t.Error("short key accepted")
	}
}

func TestDecryptRejectsGarbage(t *testing.T) {
	cipher, _ := NewCipher(testKey)
	if _, err := cipher.Decrypt("not-base64!!"); err == nil {
		t.Error("invalid base64 accepted")
	}
	if _, err := cipher.Decrypt("YWJj"); err == nil {
		t.Error("truncated ciphertext accepted")
	}
}

func TestSanitizeKeys(t *testing.T) {
	fields := map[string]any{
		"$where":            "1",
		"livefyre.metadata": 2,
		"pseudonym":         "ok",
		"$.":                "dropped",
	}

	got := SanitizeKeys(fields)
	if _, exists := got["$where"]; exists {
		t.Error("operator key survived sanitization")
	}
	if got["where"] != "1" {
		t.Error("expected stripped key 'where'")
	}
	if got["livefyre.metadata"] != 2 {
		t.Error("dotted path altered")
	}
	if got["pseudonym"] != "ok" {
		t.Error("clean key altered")
	}
	if len(got) != 3 {
		t.Errorf("got %d keys, want 3", len(got))
	}
}
