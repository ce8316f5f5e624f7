package keys

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/cloudflare/circl/hpke"
	"github.com/cloudflare/circl/kem"
)

// KEM is the key-encapsulation scheme behind SecretKey and PublicKey.
var KEM = hpke.KEM_X25519_HKDF_SHA256

// PublicKeySize is the length of an encrypting PublicKey in bytes.
const PublicKeySize = 32

// PublicKey is an X25519 encrypting key.
type PublicKey [PublicKeySize]byte

// SecretKey is the private half of an encrypting key pair.
type SecretKey struct {
	sk kem.PrivateKey
	pk PublicKey
}

func newSecretKey(pk kem.PublicKey, sk kem.PrivateKey) (*SecretKey, error) {
	raw, err := pk.MarshalBinary()
	if err != nil {
		return nil, err
	}
	out := &SecretKey{sk: sk}
	if len(raw) != PublicKeySize {
		return nil, fmt.Errorf("unexpected public key length %d", len(raw))
	}
	copy(out.pk[:], raw)
	return out, nil
}

// SecretKeyFromSeed deterministically derives an encrypting key pair from a
// 32-byte seed.
func SecretKeyFromSeed(seed []byte) (*SecretKey, error) {
	scheme := KEM.Scheme()
	if len(seed) != scheme.SeedSize() {
		return nil, fmt.Errorf("seed must be %d bytes, got %d", scheme.SeedSize(), len(seed))
	}
	pk, sk := scheme.DeriveKeyPair(seed)
	return newSecretKey(pk, sk)
}

// GenerateSecretKey returns a new random encrypting key pair.
func GenerateSecretKey(rand io.Reader) (*SecretKey, error) {
	seed := make([]byte, KEM.Scheme().SeedSize())
	if _, err := io.ReadFull(rand, seed); err != nil {
		return nil, fmt.Errorf("read seed: %w", err)
	}
	return SecretKeyFromSeed(seed)
}

// SecretKeyFromBytes parses a raw X25519 private key.
func SecretKeyFromBytes(b []byte) (*SecretKey, error) {
	scheme := KEM.Scheme()
	sk, err := scheme.UnmarshalBinaryPrivateKey(b)
	if err != nil {
		return nil, fmt.Errorf("invalid x25519 private key: %w", err)
	}
	return newSecretKey(sk.Public(), sk)
}

// PublicKey returns the public half.
func (k *SecretKey) PublicKey() PublicKey { return k.pk }

// Bytes returns the raw private key.
func (k *SecretKey) Bytes() ([]byte, error) { return k.sk.MarshalBinary() }

// KEM returns the key in the form expected by the HPKE receiver.
func (k *SecretKey) KEM() kem.PrivateKey { return k.sk }

func (k *SecretKey) String() string { return "SecretKey{REDACTED}" }

// PublicKeyFromBytes validates and copies b into a PublicKey.
func PublicKeyFromBytes(b []byte) (PublicKey, error) {
	var pk PublicKey
	if len(b) != PublicKeySize {
		return pk, fmt.Errorf("x25519 public key must be %d bytes, got %d", PublicKeySize, len(b))
	}
	if _, err := KEM.Scheme().UnmarshalBinaryPublicKey(b); err != nil {
		return pk, fmt.Errorf("invalid x25519 public key: %w", err)
	}
	copy(pk[:], b)
	return pk, nil
}

// KEM returns the key in the form expected by the HPKE sender.
func (pk PublicKey) KEM() (kem.PublicKey, error) {
	return KEM.Scheme().UnmarshalBinaryPublicKey(pk[:])
}

// String returns "x25519:" + base64(key).
func (pk PublicKey) String() string {
	return "x25519:" + base64.StdEncoding.EncodeToString(pk[:])
}

// ParsePublicKey parses the form produced by PublicKey.String.
func ParsePublicKey(s string) (PublicKey, error) {
	alg, enc, ok := strings.Cut(s, ":")
	if !ok || alg != "x25519" {
		return PublicKey{}, errors.New("encrypting key must use the x25519:<base64> form")
	}
	b, err := decodeBase64(enc)
	if err != nil {
		return PublicKey{}, fmt.Errorf("invalid encrypting key base64: %w", err)
	}
	return PublicKeyFromBytes(b)
}
