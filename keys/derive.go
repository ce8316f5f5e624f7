package keys

import (
	"crypto/ed25519"
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

const kdfInfo = "xdao-precore-keys-v1"

// SeedSize is the length of every seed handled by this package.
const SeedSize = ed25519.SeedSize

// DeriveRoleSeed deterministically derives a role-specific seed from a root
// seed. The same root seed and role always give the same output.
func DeriveRoleSeed(rootSeed []byte, role string) ([]byte, error) {
	if err := CheckRole(role); err != nil {
		return nil, err
	}
	return expand(rootSeed, "role:"+role)
}

// DeriveSigningSeed returns the ed25519 seed used for an identity's
// verifying key.
func DeriveSigningSeed(seed []byte) ([]byte, error) { return expand(seed, "signing") }

// DeriveEncryptingSeed returns the X25519 seed used for an identity's
// encrypting key.
func DeriveEncryptingSeed(seed []byte) ([]byte, error) { return expand(seed, "encrypting") }

func expand(seed []byte, purpose string) ([]byte, error) {
	if len(seed) != SeedSize {
		return nil, fmt.Errorf("seed must be %d bytes, got %d", SeedSize, len(seed))
	}
	r := hkdf.New(sha256.New, seed, nil, []byte(kdfInfo+"\x00"+purpose))
	out := make([]byte, SeedSize)
	if _, err := io.ReadFull(r, out); err != nil {
		return nil, fmt.Errorf("kdf: %w", err)
	}
	return out, nil
}

// Identity is the pair of keys a node or publisher holds: a signer for
// authenticating objects and a secret key for receiving encrypted ones.
type Identity struct {
	Signer    *Signer
	SecretKey *SecretKey
}

// IdentityFromSeed derives both halves of an identity from one seed.
func IdentityFromSeed(seed []byte) (Identity, error) {
	sseed, err := DeriveSigningSeed(seed)
	if err != nil {
		return Identity{}, err
	}
	eseed, err := DeriveEncryptingSeed(seed)
	if err != nil {
		return Identity{}, err
	}
	signer, err := SignerFromSeed(sseed)
	if err != nil {
		return Identity{}, err
	}
	sk, err := SecretKeyFromSeed(eseed)
	if err != nil {
		return Identity{}, err
	}
	return Identity{Signer: signer, SecretKey: sk}, nil
}

// VerifyingKey returns the identity's public verifying key.
func (id Identity) VerifyingKey() VerifyingKey { return id.Signer.VerifyingKey() }

// PublicKey returns the identity's public encrypting key.
func (id Identity) PublicKey() PublicKey { return id.SecretKey.PublicKey() }
