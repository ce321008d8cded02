/*

Signing key handling. The key is derived once at startup from the
BOT_PRIVATE_KEY environment variable (hex-encoded ed25519 seed) and the
resulting signer is shared read-only across cycles.

*/

package wallet

import (
	"crypto/ed25519"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/Jarekkkkk/sui-bot/internal/logger"
	"golang.org/x/crypto/blake2b"
)

// Error definitions for zero-tolerance error handling
var (
	ErrMissingCredential = errors.New("BOT_PRIVATE_KEY env value not setup")
	ErrInvalidKey        = errors.New("signing key is invalid")
)

// ed25519 scheme flag prepended to the public key for address derivation.
const schemeFlagEd25519 byte = 0x00

var walletLogger = logger.GetForComponent("wallet")

// Signer holds the bot's ed25519 keypair and derived address.
// Immutable after construction.
type Signer struct {
	priv    ed25519.PrivateKey
	pub     ed25519.PublicKey
	address string
}

// NewSignerFromEnv builds the signer from BOT_PRIVATE_KEY. Fails fast with
// ErrMissingCredential when the variable is unset.
func NewSignerFromEnv() (*Signer, error) {
	secret := os.Getenv("BOT_PRIVATE_KEY")
	if secret == "" {
		return nil, ErrMissingCredential
	}
	return NewSigner(secret)
}

// NewSigner builds a signer from a hex-encoded 32-byte ed25519 seed.
func NewSigner(hexSeed string) (*Signer, error) {
	seed, err := hex.DecodeString(strings.TrimPrefix(hexSeed, "0x"))
	if err != nil {
		return nil, fmt.Errorf("%w: not valid hex: %w", ErrInvalidKey, err)
	}
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("%w: seed must be %d bytes, got %d", ErrInvalidKey, ed25519.SeedSize, len(seed))
	}

	priv := ed25519.NewKeyFromSeed(seed)
	pub := priv.Public().(ed25519.PublicKey)

	addr, err := deriveAddress(pub)
	if err != nil {
		return nil, err
	}

	s := &Signer{priv: priv, pub: pub, address: addr}
	walletLogger.Info().Str("address", addr).Msg("Signer initialized")
	return s, nil
}

// deriveAddress hashes the scheme flag and public key with blake2b-256.
func deriveAddress(pub ed25519.PublicKey) (string, error) {
	h, err := blake2b.New256(nil)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidKey, err)
	}
	h.Write([]byte{schemeFlagEd25519})
	h.Write(pub)
	return "0x" + hex.EncodeToString(h.Sum(nil)), nil
}

// Address returns the controlled address.
func (s *Signer) Address() string {
	return s.address
}

// PublicKeyBase64 returns the scheme-flagged public key, base64 encoded,
// as submission endpoints expect alongside a signature.
func (s *Signer) PublicKeyBase64() string {
	flagged := append([]byte{schemeFlagEd25519}, s.pub...)
	return base64.StdEncoding.EncodeToString(flagged)
}

// Sign produces a base64 signature over the given message bytes.
func (s *Signer) Sign(msg []byte) string {
	sig := ed25519.Sign(s.priv, msg)
	flagged := append([]byte{schemeFlagEd25519}, sig...)
	flagged = append(flagged, s.pub...)
	return base64.StdEncoding.EncodeToString(flagged)
}
