package keys

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"
)

const (
	// SignatureSize is the length of a Signature in bytes.
	SignatureSize = ed25519.SignatureSize
	// VerifyingKeySize is the length of a VerifyingKey in bytes.
	VerifyingKeySize = ed25519.PublicKeySize
)

// Signature is an ed25519 signature over sha256(message).
type Signature [SignatureSize]byte

// VerifyingKey is an ed25519 public key.
type VerifyingKey [VerifyingKeySize]byte

// Signer holds an ed25519 private key. It is safe for concurrent use.
type Signer struct {
	priv ed25519.PrivateKey
	vk   VerifyingKey
}

// NewSigner wraps an existing ed25519 private key.
func NewSigner(priv ed25519.PrivateKey) (*Signer, error) {
	if len(priv) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("ed25519 private key must be %d bytes, got %d", ed25519.PrivateKeySize, len(priv))
	}
	s := &Signer{priv: append(ed25519.PrivateKey(nil), priv...)}
	copy(s.vk[:], priv.Public().(ed25519.PublicKey))
	return s, nil
}

// SignerFromSeed returns the signer for a 32-byte ed25519 seed.
func SignerFromSeed(seed []byte) (*Signer, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("seed must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	return NewSigner(ed25519.NewKeyFromSeed(seed))
}

// GenerateSigner returns a new random signer.
func GenerateSigner(rand io.Reader) (*Signer, error) {
	_, priv, err := ed25519.GenerateKey(rand)
	if err != nil {
		return nil, err
	}
	return NewSigner(priv)
}

// Sign returns a signature over sha256(message).
func (s *Signer) Sign(message []byte) Signature {
	digest := sha256.Sum256(message)
	var sig Signature
	copy(sig[:], ed25519.Sign(s.priv, digest[:]))
	return sig
}

// VerifyingKey returns the public half of the signer.
func (s *Signer) VerifyingKey() VerifyingKey { return s.vk }

// Verify reports whether sig is a valid signature of message under vk.
func (sig Signature) Verify(vk VerifyingKey, message []byte) bool {
	digest := sha256.Sum256(message)
	return ed25519.Verify(ed25519.PublicKey(vk[:]), digest[:], sig[:])
}

// SignatureFromBytes copies b into a Signature.
func SignatureFromBytes(b []byte) (Signature, error) {
	var sig Signature
	if len(b) != SignatureSize {
		return sig, fmt.Errorf("invalid ed25519 signature length %d", len(b))
	}
	copy(sig[:], b)
	return sig, nil
}

// VerifyingKeyFromBytes copies b into a VerifyingKey.
func VerifyingKeyFromBytes(b []byte) (VerifyingKey, error) {
	var vk VerifyingKey
	if len(b) != VerifyingKeySize {
		return vk, fmt.Errorf("ed25519 public key must be %d bytes, got %d", VerifyingKeySize, len(b))
	}
	copy(vk[:], b)
	return vk, nil
}

// String returns the key in issuer form: "ed25519:" + base64(key).
func (vk VerifyingKey) String() string {
	return "ed25519:" + base64.StdEncoding.EncodeToString(vk[:])
}

// ParseVerifyingKey parses the issuer form produced by VerifyingKey.String.
func ParseVerifyingKey(s string) (VerifyingKey, error) {
	alg, enc, ok := strings.Cut(s, ":")
	if !ok || alg != "ed25519" {
		return VerifyingKey{}, errors.New("verifying key must use the ed25519:<base64> form")
	}
	b, err := decodeBase64(enc)
	if err != nil {
		return VerifyingKey{}, fmt.Errorf("invalid verifying key base64: %w", err)
	}
	return VerifyingKeyFromBytes(b)
}

func decodeBase64(s string) ([]byte, error) {
	// Prefer standard padded encoding, but accept raw encoding too.
	if b, err := base64.StdEncoding.DecodeString(s); err == nil {
		return b, nil
	}
	return base64.RawStdEncoding.DecodeString(s)
}
