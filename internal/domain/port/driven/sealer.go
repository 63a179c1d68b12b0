package driven

import (
	"context"
	"errors"
)

// ErrUnsupportedEnvironment is returned when a required cryptographic or
// storage capability is missing from the runtime.
var ErrUnsupportedEnvironment = errors.New("credential persistence unsupported in this environment")

// ErrKeyDerivation is returned when a key cannot be derived from the
// fingerprint and salt.
var ErrKeyDerivation = errors.New("key derivation failed")

// ErrDecryption is returned when a ciphertext fails authentication: it was
// tampered with, corrupted, or sealed under a different fingerprint.
var ErrDecryption = errors.New("decryption failed")

// Sealer defines the driven port for fingerprint-keyed authenticated
// encryption. Keys are derived inside the adapter and never cross this port.
type Sealer interface {
	// Probe verifies that randomness and the cipher suite are usable.
	// Returns ErrUnsupportedEnvironment otherwise.
	Probe() error

	// NewSalt returns fresh random key-derivation salt.
	NewSalt() ([]byte, error)

	// NewNonce returns a fresh random nonce for a single Seal call.
	NewNonce() ([]byte, error)

	// Seal derives a key from fingerprint and salt and encrypts plaintext.
	Seal(ctx context.Context, fingerprint string, salt, nonce, plaintext []byte) ([]byte, error)

	// Open derives a key from fingerprint and salt and decrypts ciphertext.
	// Returns ErrDecryption if authentication fails.
	Open(ctx context.Context, fingerprint string, salt, nonce, ciphertext []byte) ([]byte, error)
}
