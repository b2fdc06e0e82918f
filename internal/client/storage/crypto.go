package storage

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
)

// ErrCorruptValue is returned when a sealed value cannot be decrypted.
var ErrCorruptValue = errors.New("corrupt sealed value")

// NewAEADFromSecret derives an AES-GCM cipher from an arbitrary secret.
func NewAEADFromSecret(secret []byte) (cipher.AEAD, error) {
	key := sha256.Sum256(secret)
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create AEAD: %w", err)
	}
	return aead, nil
}

// SealedStore encrypts values before handing them to the wrapped store.
// Keys are stored in clear text.
type SealedStore struct {
	inner KeyValueStore
	aead  cipher.AEAD
}

// NewSealedStore wraps inner with AES-GCM encryption keyed by secret.
func NewSealedStore(inner KeyValueStore, secret []byte) (*SealedStore, error) {
	aead, err := NewAEADFromSecret(secret)
	if err != nil {
		return nil, err
	}
	return &SealedStore{inner: inner, aead: aead}, nil
}

// Get implements KeyValueStore.
func (s *SealedStore) Get(ctx context.Context, key string) (string, bool, error) {
	enc, ok, err := s.inner.Get(ctx, key)
	if err != nil || !ok {
		return "", ok, err
	}
	raw, err := base64.StdEncoding.DecodeString(enc)
	if err != nil || len(raw) < s.aead.NonceSize() {
		return "", false, fmt.Errorf("%s: %w", key, ErrCorruptValue)
	}
	nonce, data := raw[:s.aead.NonceSize()], raw[s.aead.NonceSize():]
	// key is bound as additional data
	plain, err := s.aead.Open(nil, nonce, data, []byte(key))
	if err != nil {
		return "", false, fmt.Errorf("%s: %w", key, ErrCorruptValue)
	}
	return string(plain), true, nil
}

// Set implements KeyValueStore.
func (s *SealedStore) Set(ctx context.Context, key, value string) error {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("generate nonce: %w", err)
	}
	ct := s.aead.Seal(nonce, nonce, []byte(value), []byte(key))
	return s.inner.Set(ctx, key, base64.StdEncoding.EncodeToString(ct))
}

// Remove implements KeyValueStore.
func (s *SealedStore) Remove(ctx context.Context, key string) error {
	return s.inner.Remove(ctx, key)
}
