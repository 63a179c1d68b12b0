package keycrypt

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/crmvault/internal/domain/port/driven"
)

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, errors.New("entropy source unavailable")
}

func TestSuite_Probe(t *testing.T) {
	assert.NoError(t, NewSuite(MinIterations).Probe())
}

func TestSuite_ProbeFailsWithoutRandomness(t *testing.T) {
	err := NewSuiteWithRand(MinIterations, failingReader{}).Probe()
	assert.ErrorIs(t, err, driven.ErrUnsupportedEnvironment)

	err = NewSuiteWithRand(MinIterations, nil).Probe()
	assert.ErrorIs(t, err, driven.ErrUnsupportedEnvironment)
}

func TestSuite_SaltAndNonceAreFresh(t *testing.T) {
	s := NewSuite(MinIterations)

	salt1, err := s.NewSalt()
	require.NoError(t, err)
	salt2, err := s.NewSalt()
	require.NoError(t, err)
	assert.Len(t, salt1, SaltSize)
	assert.NotEqual(t, salt1, salt2)

	nonce1, err := s.NewNonce()
	require.NoError(t, err)
	nonce2, err := s.NewNonce()
	require.NoError(t, err)
	assert.Len(t, nonce1, NonceSize)
	assert.NotEqual(t, nonce1, nonce2)
}

func TestSuite_SealOpen(t *testing.T) {
	s := NewSuite(MinIterations)
	ctx := context.Background()

	salt, err := s.NewSalt()
	require.NoError(t, err)
	nonce, err := s.NewNonce()
	require.NoError(t, err)

	sealed, err := s.Seal(ctx, "fp", salt, nonce, []byte("payload"))
	require.NoError(t, err)

	opened, err := s.Open(ctx, "fp", salt, nonce, sealed)
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), opened)

	_, err = s.Open(ctx, "other-fp", salt, nonce, sealed)
	assert.ErrorIs(t, err, driven.ErrDecryption)
}

func TestSuite_RandomFailure(t *testing.T) {
	s := NewSuiteWithRand(MinIterations, failingReader{})

	_, err := s.NewSalt()
	assert.Error(t, err)
	_, err = s.NewNonce()
	assert.Error(t, err)
}
