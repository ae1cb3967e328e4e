// Package vault encrypts user-supplied secrets at rest with AES-256-GCM.
//
// Tokens have the form base64(nonce):base64(ciphertext):base64(tag) using
// standard padded base64. The nonce is 12 bytes and the tag 16 bytes.
package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"
)

const (
	// KeySize is the master key length in bytes (AES-256).
	KeySize   = 32
	NonceSize = 12
	TagSize   = 16

	separator = ":"
)

// ErrDecryption is returned for any token that cannot be authenticated and
// decrypted with the current key. Callers treat it as corruption.
var ErrDecryption = errors.New("vault: decryption failed")

// Vault seals and opens secret tokens with a single master key.
type Vault struct {
	aead cipher.AEAD
	rand io.Reader
}

// New builds a Vault around a 32-byte master key.
func New(key []byte) (*Vault, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("vault: key must be %d bytes, got %d", KeySize, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("vault: create cipher: %w", err)
	}
	aead, err := cipher.NewGCMWithTagSize(block, TagSize)
	if err != nil {
		return nil, fmt.Errorf("vault: create gcm: %w", err)
	}
	return &Vault{aead: aead, rand: rand.Reader}, nil
}

// Encrypt seals plaintext under a fresh random nonce.
func (v *Vault) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, NonceSize)
	if _, err := io.ReadFull(v.rand, nonce); err != nil {
		return "", fmt.Errorf("vault: read nonce: %w", err)
	}

	sealed := v.aead.Seal(nil, nonce, []byte(plaintext), nil)
	ciphertext, tag := sealed[:len(sealed)-TagSize], sealed[len(sealed)-TagSize:]

	return strings.Join([]string{
		base64.StdEncoding.EncodeToString(nonce),
		base64.StdEncoding.EncodeToString(ciphertext),
		base64.StdEncoding.EncodeToString(tag),
	}, separator), nil
}

// Decrypt opens a token produced by Encrypt. Every failure, including a
// malformed token, yields ErrDecryption and no plaintext.
func (v *Vault) Decrypt(token string) (string, error) {
	parts := strings.Split(token, separator)
	if len(parts) != 3 {
		return "", fmt.Errorf("%w: expected 3 segments, got %d", ErrDecryption, len(parts))
	}

	nonce, err := base64.StdEncoding.DecodeString(parts[0])
	if err != nil {
		return "", fmt.Errorf("%w: nonce is not base64", ErrDecryption)
	}
	if len(nonce) != NonceSize {
		return "", fmt.Errorf("%w: nonce must be %d bytes, got %d", ErrDecryption, NonceSize, len(nonce))
	}
	ciphertext, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return "", fmt.Errorf("%w: ciphertext is not base64", ErrDecryption)
	}
	tag, err := base64.StdEncoding.DecodeString(parts[2])
	if err != nil {
		return "", fmt.Errorf("%w: tag is not base64", ErrDecryption)
	}
	if len(tag) != TagSize {
		return "", fmt.Errorf("%w: tag must be %d bytes, got %d", ErrDecryption, TagSize, len(tag))
	}

	sealed := make([]byte, 0, len(ciphertext)+len(tag))
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, tag...)

	plaintext, err := v.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("%w: authentication failed", ErrDecryption)
	}
	return string(plaintext), nil
}

// IsEncrypted reports whether value looks like a vault token: exactly three
// colon separated base64 segments with non-empty nonce and tag. It does not
// check segment lengths, so a damaged token still routes to Decrypt and is
// reported as corrupt instead of being mistaken for legacy plaintext.
func IsEncrypted(value string) bool {
	parts := strings.Split(value, separator)
	if len(parts) != 3 {
		return false
	}
	if parts[0] == "" || parts[2] == "" {
		return false
	}
	for _, p := range parts {
		if _, err := base64.StdEncoding.DecodeString(p); err != nil {
			return false
		}
	}
	return true
}
