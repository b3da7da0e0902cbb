// Package security provides AES encryption and sanitization utilities for
// fields persisted to the document store.
package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"io"
)

// Cipher encrypts and decrypts sensitive document fields (pseudonym, email,
// names) with a process-wide key. Injected into the stores rather than read
// from ambient state.
type Cipher struct {
	key []byte
}

// NewCipher builds a Cipher from a hex-encoded or raw key. The decoded key
// must be 16, 24 or 32 bytes.
func NewCipher(key string) (*Cipher, error) {
	if len(key) == 0 {
		return nil, errors.New("empty encryption key")
	}

	keyBytes := decodeKey(key)
	if len(keyBytes) != 16 && len(keyBytes) != 24 && len(keyBytes) != 32 {
		return nil, errors.New("invalid key length: must decode to 16, 24 or 32 bytes")
	}

	return &Cipher{key: keyBytes}, nil
}

// Hex keys of these lengths are decoded; anything else is used as raw bytes.
func decodeKey(key string) []byte {
	if len(key) == 32 || len(key) == 48 || len(key) == 64 {
		decoded, err := hex.DecodeString(key)
		if err == nil && (len(decoded) == 16 || len(decoded) == 24 || len(decoded) == 32) {
			return decoded
		}
	}
	return []byte(key)
}

// Encrypt encrypts data using AES-GCM and returns base64 ciphertext.
func (c *Cipher) Encrypt(data string) (string, error) {
	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	ciphertext := gcm.Seal(nonce, nonce, []byte(data), nil)
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// Decrypt reverses Encrypt.
func (c *Cipher) Decrypt(encrypted string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(encrypted)
	if err != nil {
		return "", err
	}

	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	nonceSize := gcm.NonceSize()
	if len(data) < nonceSize {
		return "", errors.New("invalid ciphertext")
	}

	nonce, ciphertext := data[:nonceSize], data[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", err
	}

	return string(plaintext), nil
}
