package badger

import (
	"crypto/rand"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// Sealer encrypts sensitive payloads (cookie jars, stored credentials)
// before they hit disk. A nil-key sealer passes data through unsealed and is
// only permitted in development (enforced by config validation).
type Sealer struct {
	key []byte
}

// NewSealer creates a sealer from a 32-byte key. A nil key yields a
// passthrough sealer.
func NewSealer(key []byte) (*Sealer, error) {
	if key == nil {
		return &Sealer{}, nil
	}
	if len(key) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("session key must be %d bytes, got %d", chacha20poly1305.KeySize, len(key))
	}
	return &Sealer{key: key}, nil
}

// Seal encrypts plaintext with XChaCha20-Poly1305, prepending the nonce
func (s *Sealer) Seal(plaintext []byte) ([]byte, error) {
	if s.key == nil {
		return plaintext, nil
	}

	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cipher: %w", err)
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	return aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Open decrypts a payload produced by Seal
func (s *Sealer) Open(sealed []byte) ([]byte, error) {
	if s.key == nil {
		return sealed, nil
	}

	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cipher: %w", err)
	}

	if len(sealed) < aead.NonceSize() {
		return nil, fmt.Errorf("sealed payload too short")
	}

	nonce, ciphertext := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open sealed payload: %w", err)
	}

	return plaintext, nil
}
