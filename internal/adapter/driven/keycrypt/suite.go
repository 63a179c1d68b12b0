package keycrypt

import (
	"bytes"
	"context"
	"crypto/rand"
	"fmt"
	"io"

	"github.com/ericfisherdev/crmvault/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.Sealer = (*Suite)(nil)

// probeKey and probeNonce are fixed inputs for the cipher self-test.
var (
	probeKey   = bytes.Repeat([]byte{0x5a}, KeySize)
	probeNonce = bytes.Repeat([]byte{0xa5}, NonceSize)
)

// Suite implements driven.Sealer on top of KDF, Encrypt and Decrypt.
type Suite struct {
	kdf  *KDF
	rand io.Reader
}

// NewSuite creates a Suite using crypto/rand and the given PBKDF2 iteration count.
func NewSuite(iterations int) *Suite {
	return NewSuiteWithRand(iterations, rand.Reader)
}

// NewSuiteWithRand creates a Suite reading randomness from r.
func NewSuiteWithRand(iterations int, r io.Reader) *Suite {
	return &Suite{kdf: NewKDF(iterations), rand: r}
}

// Probe checks that the random source is readable and that AES-256-GCM
// round-trips a known plaintext.
func (s *Suite) Probe() error {
	if s.rand == nil {
		return fmt.Errorf("%w: no random source", driven.ErrUnsupportedEnvironment)
	}
	if _, err := s.random(1); err != nil {
		return fmt.Errorf("%w: %w", driven.ErrUnsupportedEnvironment, err)
	}

	aead, err := newAEAD(probeKey)
	if err != nil {
		return fmt.Errorf("%w: %w", driven.ErrUnsupportedEnvironment, err)
	}
	key := &Key{aead: aead}
	plaintext := []byte("crmvault probe")

	sealed, err := Encrypt(key, probeNonce, plaintext)
	if err != nil {
		return fmt.Errorf("%w: %w", driven.ErrUnsupportedEnvironment, err)
	}
	opened, err := Decrypt(key, probeNonce, sealed)
	if err != nil || !bytes.Equal(opened, plaintext) {
		return fmt.Errorf("%w: cipher self-test failed", driven.ErrUnsupportedEnvironment)
	}
	return nil
}

// NewSalt returns SaltSize random bytes.
func (s *Suite) NewSalt() ([]byte, error) {
	return s.random(SaltSize)
}

// NewNonce returns NonceSize random bytes.
func (s *Suite) NewNonce() ([]byte, error) {
	return s.random(NonceSize)
}

// Seal derives the key for fingerprint and salt and encrypts plaintext.
func (s *Suite) Seal(ctx context.Context, fingerprint string, salt, nonce, plaintext []byte) ([]byte, error) {
	key, err := s.kdf.DeriveKey(ctx, fingerprint, salt)
	if err != nil {
		return nil, err
	}
	return Encrypt(key, nonce, plaintext)
}

// Open derives the key for fingerprint and salt and decrypts ciphertext.
func (s *Suite) Open(ctx context.Context, fingerprint string, salt, nonce, ciphertext []byte) ([]byte, error) {
	key, err := s.kdf.DeriveKey(ctx, fingerprint, salt)
	if err != nil {
		return nil, err
	}
	return Decrypt(key, nonce, ciphertext)
}

func (s *Suite) random(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := io.ReadFull(s.rand, b); err != nil {
		return nil, fmt.Errorf("read random: %w", err)
	}
	return b, nil
}
