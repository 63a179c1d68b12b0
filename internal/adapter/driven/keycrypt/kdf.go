// Package keycrypt implements fingerprint-keyed authenticated encryption:
// PBKDF2-HMAC-SHA256 key derivation feeding AES-256-GCM.
package keycrypt

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"fmt"

	"golang.org/x/crypto/pbkdf2"

	"github.com/ericfisherdev/crmvault/internal/domain/port/driven"
)

const (
	// SaltSize is the length of the per-save PBKDF2 salt.
	SaltSize = 16

	// KeySize is the AES-256 key length in bytes.
	KeySize = 32

	// MinIterations is the lowest PBKDF2 iteration count the KDF accepts.
	MinIterations = 100_000
)

// KDF stretches a fingerprint and salt into an AES-256-GCM key.
type KDF struct {
	iterations int
}

// NewKDF returns a KDF running the given number of PBKDF2 iterations.
// Counts below MinIterations are raised to MinIterations.
func NewKDF(iterations int) *KDF {
	if iterations < MinIterations {
		iterations = MinIterations
	}
	return &KDF{iterations: iterations}
}

// Iterations returns the effective PBKDF2 iteration count.
func (k *KDF) Iterations() int {
	return k.iterations
}

// DeriveKey derives the key for fingerprint and salt. The same inputs always
// produce the same key. The raw key bytes are wiped once the AEAD is built.
func (k *KDF) DeriveKey(ctx context.Context, fingerprint string, salt []byte) (*Key, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", driven.ErrKeyDerivation, err)
	}
	if len(salt) != SaltSize {
		return nil, fmt.Errorf("%w: salt is %d bytes, want %d", driven.ErrKeyDerivation, len(salt), SaltSize)
	}

	raw := pbkdf2.Key([]byte(fingerprint), salt, k.iterations, KeySize, sha256.New)
	defer clear(raw)

	aead, err := newAEAD(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", driven.ErrKeyDerivation, err)
	}
	return &Key{aead: aead}, nil
}

// Key is a derived encryption key. It can encrypt and decrypt but never
// exposes its key material.
type Key struct {
	aead cipher.AEAD
}

func newAEAD(raw []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(raw)
	if err != nil {
		return nil, fmt.Errorf("aes.NewCipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("cipher.NewGCM: %w", err)
	}
	return gcm, nil
}
