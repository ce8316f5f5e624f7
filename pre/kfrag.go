package pre

import (
	"crypto/sha512"
	"encoding/binary"
	"errors"
	"fmt"

	"go.dedis.ch/kyber/v3"
	"go.dedis.ch/kyber/v3/group/edwards25519"
	"go.dedis.ch/kyber/v3/share"

	"xdao.co/precore/ids"
	"xdao.co/precore/keys"
)

const scalarSize = 32

// KeyFragSize is the length of a serialized KeyFrag.
const KeyFragSize = 4 + scalarSize

var group = edwards25519.NewBlakeSHA256Ed25519()

// KeyFrag is one share of a delegation secret. Any threshold of the
// fragments generated together recover it.
type KeyFrag struct {
	Index uint32
	Value [scalarSize]byte
}

// Bytes returns index (big endian) ‖ value.
func (k KeyFrag) Bytes() []byte {
	out := make([]byte, KeyFragSize)
	binary.BigEndian.PutUint32(out, k.Index)
	copy(out[4:], k.Value[:])
	return out
}

// KeyFragFromBytes parses the form produced by KeyFrag.Bytes.
func KeyFragFromBytes(b []byte) (KeyFrag, error) {
	var k KeyFrag
	if len(b) != KeyFragSize {
		return k, fmt.Errorf("key fragment must be %d bytes, got %d", KeyFragSize, len(b))
	}
	k.Index = binary.BigEndian.Uint32(b)
	copy(k.Value[:], b[4:])
	if _, err := k.scalar(); err != nil {
		return KeyFrag{}, err
	}
	return k, nil
}

func (k KeyFrag) scalar() (kyber.Scalar, error) {
	s := group.Scalar()
	if err := s.UnmarshalBinary(k.Value[:]); err != nil {
		return nil, fmt.Errorf("invalid key fragment scalar: %w", err)
	}
	return s, nil
}

func delegationSecret(delegating *keys.SecretKey, receiving keys.PublicKey) (kyber.Scalar, error) {
	raw, err := delegating.Bytes()
	if err != nil {
		return nil, err
	}
	h := sha512.New()
	_, _ = h.Write([]byte("xdao-precore/delegation/v1"))
	_, _ = h.Write(raw)
	_, _ = h.Write(receiving[:])
	return group.Scalar().SetBytes(h.Sum(nil)), nil
}

// GenerateKFrags splits the secret that delegates decryption rights from
// delegating to receiving into shares fragments, threshold of which are
// needed to recover it.
func GenerateKFrags(delegating *keys.SecretKey, receiving keys.PublicKey, threshold, shares int) ([]KeyFrag, error) {
	if threshold < 1 {
		return nil, errors.New("threshold must be at least 1")
	}
	if shares < threshold {
		return nil, fmt.Errorf("shares (%d) must be at least threshold (%d)", shares, threshold)
	}
	secret, err := delegationSecret(delegating, receiving)
	if err != nil {
		return nil, err
	}
	poly := share.NewPriPoly(group, threshold, secret, group.RandomStream())
	out := make([]KeyFrag, 0, shares)
	for _, s := range poly.Shares(shares) {
		raw, err := s.V.MarshalBinary()
		if err != nil {
			return nil, err
		}
		kf := KeyFrag{Index: uint32(s.I)}
		copy(kf.Value[:], raw)
		out = append(out, kf)
	}
	return out, nil
}

// RecoverSecret combines at least threshold fragments into the delegation
// secret they were split from.
func RecoverSecret(kfrags []KeyFrag, threshold int) ([]byte, error) {
	priShares := make([]*share.PriShare, 0, len(kfrags))
	for _, kf := range kfrags {
		v, err := kf.scalar()
		if err != nil {
			return nil, err
		}
		priShares = append(priShares, &share.PriShare{I: int(kf.Index), V: v})
	}
	secret, err := share.RecoverSecret(group, priShares, threshold, len(priShares))
	if err != nil {
		return nil, err
	}
	return secret.MarshalBinary()
}

// EncryptedKeyFrag is a KeyFrag sealed for one node and signed by the
// publisher for one policy.
type EncryptedKeyFrag struct {
	Capsule    Capsule
	Ciphertext []byte
}

// Bytes returns capsule ‖ ciphertext.
func (e EncryptedKeyFrag) Bytes() []byte {
	out := make([]byte, 0, CapsuleSize+len(e.Ciphertext))
	out = append(out, e.Capsule[:]...)
	return append(out, e.Ciphertext...)
}

// EncryptedKeyFragFromBytes parses the form produced by
// EncryptedKeyFrag.Bytes.
func EncryptedKeyFragFromBytes(b []byte) (EncryptedKeyFrag, error) {
	if len(b) <= CapsuleSize {
		return EncryptedKeyFrag{}, fmt.Errorf("encrypted key fragment too short: %d bytes", len(b))
	}
	var e EncryptedKeyFrag
	copy(e.Capsule[:], b)
	e.Ciphertext = append([]byte(nil), b[CapsuleSize:]...)
	return e, nil
}

// Equal reports whether two sealed fragments are byte-identical.
func (e EncryptedKeyFrag) Equal(o EncryptedKeyFrag) bool {
	return e.Capsule == o.Capsule && string(e.Ciphertext) == string(o.Ciphertext)
}

func kfragMessage(hrac ids.HRAC, kfrag []byte) []byte {
	msg := make([]byte, 0, ids.HRACSize+len(kfrag))
	msg = append(msg, hrac[:]...)
	return append(msg, kfrag...)
}

// SealKeyFrag signs hrac ‖ kfrag with the publisher's signer and encrypts
// the signature and fragment to recipient, bound to hrac.
func SealKeyFrag(signer *keys.Signer, recipient keys.PublicKey, hrac ids.HRAC, kfrag KeyFrag) (EncryptedKeyFrag, error) {
	raw := kfrag.Bytes()
	sig := signer.Sign(kfragMessage(hrac, raw))
	plaintext := make([]byte, 0, keys.SignatureSize+len(raw))
	plaintext = append(plaintext, sig[:]...)
	plaintext = append(plaintext, raw...)
	capsule, ct, err := seal(recipient, infoKeyFrag, hrac[:], plaintext)
	if err != nil {
		return EncryptedKeyFrag{}, fmt.Errorf("pre: seal key fragment: %w", err)
	}
	return EncryptedKeyFrag{Capsule: capsule, Ciphertext: ct}, nil
}

// Open decrypts the fragment with the node's secret key and checks that
// publisherVK signed it for hrac.
func (e EncryptedKeyFrag) Open(sk *keys.SecretKey, hrac ids.HRAC, publisherVK keys.VerifyingKey) (KeyFrag, error) {
	pt, err := open(sk, infoKeyFrag, hrac[:], e.Capsule, e.Ciphertext)
	if err != nil {
		return KeyFrag{}, err
	}
	if len(pt) != keys.SignatureSize+KeyFragSize {
		return KeyFrag{}, fmt.Errorf("%w: unexpected plaintext length %d", ErrDecryption, len(pt))
	}
	sig, err := keys.SignatureFromBytes(pt[:keys.SignatureSize])
	if err != nil {
		return KeyFrag{}, err
	}
	raw := pt[keys.SignatureSize:]
	if !sig.Verify(publisherVK, kfragMessage(hrac, raw)) {
		return KeyFrag{}, ErrVerification
	}
	return KeyFragFromBytes(raw)
}
