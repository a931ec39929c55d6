package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/crypto/hkdf"
)

// MinMasterKeyLength is the shortest master key accepted, in bytes.
const MinMasterKeyLength = 32

var (
	ErrMasterKeyTooShort = fmt.Errorf("cryptox: master key must be at least %d bytes", MinMasterKeyLength)
	ErrSealedTooShort    = errors.New("cryptox: sealed data too short")
)

// keyCipherInfo binds derived keys to this use so the master key can be
// shared with other subsystems without producing the same AES key.
const keyCipherInfo = "dreamscape session signing keys v1"

// KeyCipher seals private key material at rest with AES-256-GCM. Output is
// nonce || ciphertext || tag.
type KeyCipher struct {
	aead cipher.AEAD
}

// NewKeyCipher derives the AES key from master with HKDF-SHA256.
func NewKeyCipher(master []byte) (*KeyCipher, error) {
	if len(master) < MinMasterKeyLength {
		return nil, ErrMasterKeyTooShort
	}

	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, master, nil, []byte(keyCipherInfo)), key); err != nil {
		return nil, fmt.Errorf("cryptox: derive key: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("cryptox: create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("cryptox: create GCM: %w", err)
	}
	return &KeyCipher{aead: aead}, nil
}

// LoadKeyCipher reads the master key from file. Surrounding whitespace is
// ignored so the file can be written with echo.
func LoadKeyCipher(file string) (*KeyCipher, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("cryptox: read master key: %w", err)
	}
	return NewKeyCipher([]byte(strings.TrimSpace(string(data))))
}

func (c *KeyCipher) Seal(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, c.aead.NonceSize(), c.aead.NonceSize()+len(plaintext)+c.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("cryptox: generate nonce: %w", err)
	}
	return c.aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Open reverses Seal. A wrong master key or tampered data fails here.
func (c *KeyCipher) Open(sealed []byte) ([]byte, error) {
	n := c.aead.NonceSize()
	if len(sealed) < n+c.aead.Overhead() {
		return nil, ErrSealedTooShort
	}

	plaintext, err := c.aead.Open(nil, sealed[:n], sealed[n:], nil)
	if err != nil {
		return nil, fmt.Errorf("cryptox: open sealed key: %w", err)
	}
	return plaintext, nil
}
