package storage

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// SealedBackend wraps another Backend and encrypts values with AES-256 GCM
// before they reach it. It is the higher-assurance variant used for
// credential-class entries (device id, auth token); the contract shape is
// identical to the plain backend.
type SealedBackend struct {
	inner Backend
	aead  cipher.AEAD
}

// NewSealedBackend derives a 32-byte sealing key from secret via HKDF-SHA256
// and returns a backend that stores only sealed values in inner. The nonce is
// prepended to each stored ciphertext.
func NewSealedBackend(inner Backend, secret string) (*SealedBackend, error) {
	if secret == "" {
		return nil, errors.New("storage: sealing secret must not be empty")
	}

	key := make([]byte, 32)
	kdf := hkdf.New(sha256.New, []byte(secret), nil, []byte("orchid storage seal v1"))
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, fmt.Errorf("failed to derive sealing key: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return &SealedBackend{inner: inner, aead: gcm}, nil
}

func (b *SealedBackend) Get(ctx context.Context, key string) ([]byte, error) {
	sealed, err := b.inner.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if len(sealed) < b.aead.NonceSize() {
		return nil, fmt.Errorf("sealed entry %q too short", key)
	}
	nonce, ciphertext := sealed[:b.aead.NonceSize()], sealed[b.aead.NonceSize():]
	plaintext, err := b.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to unseal entry %q: %w", key, err)
	}
	return plaintext, nil
}

func (b *SealedBackend) Set(ctx context.Context, key string, data []byte) error {
	nonce := make([]byte, b.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return fmt.Errorf("failed to generate nonce: %w", err)
	}
	sealed := b.aead.Seal(nonce, nonce, data, nil)
	return b.inner.Set(ctx, key, sealed)
}

func (b *SealedBackend) Delete(ctx context.Context, key string) error {
	return b.inner.Delete(ctx, key)
}
