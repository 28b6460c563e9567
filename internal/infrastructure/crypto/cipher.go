// Package crypto seals TOTP secrets before they reach a storage backend.
//
// Secrets are encrypted with AES-256-GCM. The key is derived from the
// configured master key with HKDF-SHA256, so operators can supply any
// sufficiently long passphrase.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/hkdf"
)

const (
	keySize       = 32
	minMasterKey  = 16
	sealedPrefix  = "v1:"
	hkdfInfoLabel = "mfa-service totp secret"
)

var (
	ErrMasterKeyTooShort = errors.New("encryption master key must be at least 16 bytes")
	ErrMalformedSealed   = errors.New("malformed sealed value")
	ErrDecrypt           = errors.New("failed to decrypt value")
)

// Cipher encrypts and decrypts short strings
type Cipher struct {
	aead cipher.AEAD
}

// NewCipher derives an AES-256-GCM key from masterKey
func NewCipher(masterKey string) (*Cipher, error) {
	if len(masterKey) < minMasterKey {
		return nil, ErrMasterKeyTooShort
	}

	key := make([]byte, keySize)
	kdf := hkdf.New(sha256.New, []byte(masterKey), nil, []byte(hkdfInfoLabel))
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create gcm: %w", err)
	}
	return &Cipher{aead: aead}, nil
}

// Seal encrypts plaintext. The empty string stays empty so cleared records
// remain recognisable.
func (c *Cipher) Seal(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("read nonce: %w", err)
	}
	sealed := c.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return sealedPrefix + base64.RawStdEncoding.EncodeToString(sealed), nil
}

// Open decrypts a value produced by Seal
func (c *Cipher) Open(sealed string) (string, error) {
	if sealed == "" {
		return "", nil
	}
	if !strings.HasPrefix(sealed, sealedPrefix) {
		return "", ErrMalformedSealed
	}
	raw, err := base64.RawStdEncoding.DecodeString(strings.TrimPrefix(sealed, sealedPrefix))
	if err != nil {
		return "", ErrMalformedSealed
	}
	nonceSize := c.aead.NonceSize()
	if len(raw) < nonceSize {
		return "", ErrMalformedSealed
	}
	plain, err := c.aead.Open(nil, raw[:nonceSize], raw[nonceSize:], nil)
	if err != nil {
		return "", ErrDecrypt
	}
	return string(plain), nil
}
