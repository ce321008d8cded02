package wallet

import (
	"crypto/ed25519"
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSeed = "0x0101010101010101010101010101010101010101010101010101010101010101"

func TestNewSignerFromEnvMissing(t *testing.T) {
	t.Setenv("BOT_PRIVATE_KEY", "")
	_, err := NewSignerFromEnv()
	assert.ErrorIs(t, err, ErrMissingCredential)
}

func TestNewSignerFromEnv(t *testing.T) {
	t.Setenv("BOT_PRIVATE_KEY", testSeed)
	s, err := NewSignerFromEnv()
	require.NoError(t, err)
	assert.NotEmpty(t, s.Address())
}

func TestNewSignerRejectsBadSeeds(t *testing.T) {
	_, err := NewSigner("zz")
	assert.ErrorIs(t, err, ErrInvalidKey)

	_, err = NewSigner("0xdeadbeef") // too short
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestAddressDerivationIsDeterministic(t *testing.T) {
	a, err := NewSigner(testSeed)
	require.NoError(t, err)
	b, err := NewSigner(strings.TrimPrefix(testSeed, "0x"))
	require.NoError(t, err)

	assert.Equal(t, a.Address(), b.Address())
	assert.True(t, strings.HasPrefix(a.Address(), "0x"))
	assert.Len(t, a.Address(), 2+64) // blake2b-256 hex
}

func TestSignVerifies(t *testing.T) {
	s, err := NewSigner(testSeed)
	require.NoError(t, err)

	msg := []byte("bundle payload")
	raw, err := base64.StdEncoding.DecodeString(s.Sign(msg))
	require.NoError(t, err)

	// flag || signature || pubkey
	require.Len(t, raw, 1+ed25519.SignatureSize+ed25519.PublicKeySize)
	assert.Equal(t, schemeFlagEd25519, raw[0])

	sig := raw[1 : 1+ed25519.SignatureSize]
	pub := ed25519.PublicKey(raw[1+ed25519.SignatureSize:])
	assert.True(t, ed25519.Verify(pub, msg, sig))
}
