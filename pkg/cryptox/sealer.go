package cryptox

import (
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"
	"os"

	"golang.org/x/crypto/chacha20poly1305"
)

// Sealer encrypts and decrypts small secret values using ChaCha20-Poly1305.
// The output format is: [24-byte nonce][ciphertext][16-byte auth tag].
// A Sealer is safe for concurrent use.
type Sealer struct {
	aeadKey [32]byte
}

// NewSealer creates a Sealer from raw key material. The material is hashed
// with SHA-256 to derive the 32-byte AEAD key, so any non-empty input works.
func NewSealer(keyMaterial []byte) (*Sealer, error) {
	if len(keyMaterial) == 0 {
		return nil, fmt.Errorf("cryptox: empty key material")
	}

	s := &Sealer{aeadKey: sha256.Sum256(keyMaterial)}
	return s, nil
}

// NewSealerFromEnv loads key material from, in order:
// 1. The file at path (if non-empty)
// 2. The AUTHKIT_MASTER_KEY environment variable
// 3. A freshly generated ephemeral key (secrets won't survive restart)
func NewSealerFromEnv(path string) (*Sealer, error) {
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("cryptox: read master key file: %w", err)
		}
		return NewSealer(data)
	}

	if envKey := os.Getenv("AUTHKIT_MASTER_KEY"); envKey != "" {
		return NewSealer([]byte(envKey))
	}

	// Ephemeral fallback for development
	material := make([]byte, 32)
	if _, err := rand.Read(material); err != nil {
		return nil, fmt.Errorf("cryptox: generate ephemeral master key: %w", err)
	}
	return NewSealer(material)
}

// Seal encrypts plaintext with a random nonce per call.
func (s *Sealer) Seal(plaintext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(s.aeadKey[:])
	if err != nil {
		return nil, fmt.Errorf("cryptox: create AEAD: %w", err)
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("cryptox: generate nonce: %w", err)
	}

	return aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Open decrypts data produced by Seal and verifies its authentication tag.
func (s *Sealer) Open(sealed []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(s.aeadKey[:])
	if err != nil {
		return nil, fmt.Errorf("cryptox: create AEAD: %w", err)
	}

	if len(sealed) < aead.NonceSize() {
		return nil, fmt.Errorf("cryptox: ciphertext too short")
	}

	nonce, ciphertext := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]

	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("cryptox: decryption failed: %w", err)
	}

	return plaintext, nil
}
