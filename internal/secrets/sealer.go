// Package secrets seals provider API keys for storage at rest.
package secrets

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

var ErrSealedDataInvalid = errors.New("sealed data is invalid")

// Sealer encrypts with ChaCha20-Poly1305 under a key derived from the
// master secret via HKDF. The scope string is mixed into key derivation,
// so ciphertext sealed for one organization cannot be opened under
// another.
type Sealer struct {
	masterSecret []byte
}

func NewSealer(masterSecret string) (*Sealer, error) {
	if masterSecret == "" {
		return nil, errors.New("master secret is required")
	}

	return &Sealer{masterSecret: []byte(masterSecret)}, nil
}

func (s *Sealer) Seal(plaintext []byte, scope string) ([]byte, error) {
	key, err := s.deriveKey(scope)
	if err != nil {
		return nil, err
	}

	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	return aead.Seal(nonce, nonce, plaintext, nil), nil
}

func (s *Sealer) Open(sealed []byte, scope string) ([]byte, error) {
	key, err := s.deriveKey(scope)
	if err != nil {
		return nil, err
	}

	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	if len(sealed) < aead.NonceSize() {
		return nil, ErrSealedDataInvalid
	}

	nonce, ciphertext := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]

	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrSealedDataInvalid
	}

	return plaintext, nil
}

func (s *Sealer) deriveKey(scope string) ([]byte, error) {
	salt := []byte("promptdeck-provider-keys")
	info := []byte("sealing-key-" + scope)

	reader := hkdf.New(sha256.New, s.masterSecret, salt, info)
	key := make([]byte, chacha20poly1305.KeySize)

	if _, err := io.ReadFull(reader, key); err != nil {
		return nil, fmt.Errorf("failed to derive sealing key: %w", err)
	}

	return key, nil
}
