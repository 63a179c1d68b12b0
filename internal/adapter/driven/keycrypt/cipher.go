package keycrypt

import (
	"errors"
	"fmt"

	"github.com/ericfisherdev/crmvault/internal/domain/port/driven"
)

// NonceSize is the AES-GCM nonce length in bytes.
const NonceSize = 12

// Encrypt seals plaintext with key under nonce. The returned ciphertext
// carries the GCM tag. nonce must never be reused with the same key.
func Encrypt(key *Key, nonce, plaintext []byte) ([]byte, error) {
	if key == nil {
		return nil, errors.New("encrypt: nil key")
	}
	if len(nonce) != NonceSize {
		return nil, fmt.Errorf("encrypt: nonce is %d bytes, want %d", len(nonce), NonceSize)
	}
	return key.aead.Seal(nil, nonce, plaintext, nil), nil
}

// Decrypt opens ciphertext produced by Encrypt. Any authentication failure,
// including a malformed nonce, is reported as driven.ErrDecryption.
func Decrypt(key *Key, nonce, ciphertext []byte) ([]byte, error) {
	if key == nil {
		return nil, fmt.Errorf("%w: nil key", driven.ErrDecryption)
	}
	if len(nonce) != NonceSize {
		return nil, fmt.Errorf("%w: nonce is %d bytes, want %d", driven.ErrDecryption, len(nonce), NonceSize)
	}

	plaintext, err := key.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", driven.ErrDecryption, err)
	}
	return plaintext, nil
}
