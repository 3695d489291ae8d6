package privacy

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// ErrAuth is returned when a ciphertext fails authentication — the GCM tag
// does not verify, meaning the value was tampered with or the wrong key
// was used to decrypt it.
var ErrAuth = errors.New("privacy: authentication failed")

// FieldCipher is a process-wide AEAD keyed with a single 256-bit secret.
// Every creative text/media URL and escrow key is encrypted with it before
// it ever reaches the store.
type FieldCipher struct {
	aead cipher.AEAD
}

// NewFieldCipher builds a FieldCipher from a 32-byte key. Keys shorter or
// longer than 32 bytes are rejected — this module never silently pads or
// truncates key material.
func NewFieldCipher(key []byte) (*FieldCipher, error) {
	if len(key) != 32 {
		return nil, fmt.Errorf("privacy: field encryption key must be 32 bytes, got %d", len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("privacy: new cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("privacy: new gcm: %w", err)
	}
	return &FieldCipher{aead: aead}, nil
}

// Encrypt returns "hex(iv):hex(tag):hex(ciphertext)". The IV is fresh
// random per call, so two encryptions of the same plaintext never match.
func (c *FieldCipher) Encrypt(plaintext string) (string, error) {
	iv := make([]byte, c.aead.NonceSize())
	if _, err := rand.Read(iv); err != nil {
		return "", fmt.Errorf("privacy: read iv: %w", err)
	}

	sealed := c.aead.Seal(nil, iv, []byte(plaintext), nil)
	tagStart := len(sealed) - c.aead.Overhead()
	ciphertext, tag := sealed[:tagStart], sealed[tagStart:]

	return strings.Join([]string{
		hex.EncodeToString(iv),
		hex.EncodeToString(tag),
		hex.EncodeToString(ciphertext),
	}, ":"), nil
}

// Decrypt parses the 3-segment hex-colon format and verifies the GCM tag.
// Returns ErrAuth (wrapped) when the tag does not match.
func (c *FieldCipher) Decrypt(encoded string) (string, error) {
	parts := strings.Split(encoded, ":")
	if len(parts) != 3 {
		return "", fmt.Errorf("privacy: malformed encrypted field (want 3 segments, got %d)", len(parts))
	}

	iv, err := hex.DecodeString(parts[0])
	if err != nil {
		return "", fmt.Errorf("privacy: decode iv: %w", err)
	}
	tag, err := hex.DecodeString(parts[1])
	if err != nil {
		return "", fmt.Errorf("privacy: decode tag: %w", err)
	}
	ciphertext, err := hex.DecodeString(parts[2])
	if err != nil {
		return "", fmt.Errorf("privacy: decode ciphertext: %w", err)
	}

	sealed := append(ciphertext, tag...)
	plaintext, err := c.aead.Open(nil, iv, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrAuth, err)
	}
	return string(plaintext), nil
}
