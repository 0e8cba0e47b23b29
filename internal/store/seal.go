package store

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

// sealer encrypts the credential token at rest. The master key lives in a
// file next to the database; the cipher key is derived from it so the file
// never holds the key material used on the wire.
type sealer struct {
	aead interface {
		Seal(dst, nonce, plaintext, additionalData []byte) []byte
		Open(dst, nonce, ciphertext, additionalData []byte) ([]byte, error)
	}
}

const sealKeyLen = 32

func newSealer(keyPath string) (*sealer, error) {
	master, err := loadOrCreateKey(keyPath)
	if err != nil {
		return nil, err
	}

	h := hkdf.New(sha256.New, master, nil, []byte("gitpad-token-seal"))
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(h, key); err != nil {
		return nil, err
	}

	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}
	return &sealer{aead: aead}, nil
}

func loadOrCreateKey(path string) ([]byte, error) {
	b, err := os.ReadFile(path)
	if err == nil {
		if len(b) != sealKeyLen {
			return nil, fmt.Errorf("seal key %s has length %d, want %d", path, len(b), sealKeyLen)
		}
		return b, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	b = make([]byte, sealKeyLen)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	if err := os.WriteFile(path, b, 0o600); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *sealer) seal(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, chacha20poly1305.NonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return s.aead.Seal(nonce, nonce, plaintext, nil), nil
}

func (s *sealer) open(sealed []byte) ([]byte, error) {
	if len(sealed) < chacha20poly1305.NonceSize {
		return nil, errors.New("sealed token too short")
	}
	nonce, ciphertext := sealed[:chacha20poly1305.NonceSize], sealed[chacha20poly1305.NonceSize:]
	return s.aead.Open(nil, nonce, ciphertext, nil)
}
