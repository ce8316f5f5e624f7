// Package pre provides the encryption primitives the protocol objects are
// built on: capsule encryption to an encrypting key, key fragments of a
// delegation secret, and key fragments sealed for a single node.
//
// Capsule encryption is HPKE in base mode (X25519, HKDF-SHA256,
// ChaCha20-Poly1305). The capsule is the HPKE encapsulated key.
package pre

import (
	"crypto/rand"
	"errors"
	"fmt"

	"github.com/cloudflare/circl/hpke"

	"xdao.co/precore/keys"
)

var (
	// ErrDecryption is returned when a ciphertext does not open under the
	// given key.
	ErrDecryption = errors.New("pre: decryption failed")
	// ErrVerification is returned when a sealed key fragment carries a bad
	// publisher signature.
	ErrVerification = errors.New("pre: signature verification failed")
)

// CapsuleSize is the length of a Capsule in bytes.
const CapsuleSize = 32

// Capsule is the encapsulated key that, together with the recipient's
// secret key, opens a ciphertext.
type Capsule [CapsuleSize]byte

// CapsuleFromBytes copies b into a Capsule.
func CapsuleFromBytes(b []byte) (Capsule, error) {
	var c Capsule
	if len(b) != CapsuleSize {
		return c, fmt.Errorf("capsule must be %d bytes, got %d", CapsuleSize, len(b))
	}
	copy(c[:], b)
	return c, nil
}

var suite = hpke.NewSuite(keys.KEM, hpke.KDF_HKDF_SHA256, hpke.AEAD_ChaCha20Poly1305)

var (
	infoCapsule = []byte("xdao-precore/capsule/v1")
	infoKeyFrag = []byte("xdao-precore/kfrag/v1")
)

func seal(pk keys.PublicKey, info, aad, plaintext []byte) (Capsule, []byte, error) {
	kpk, err := pk.KEM()
	if err != nil {
		return Capsule{}, nil, err
	}
	sender, err := suite.NewSender(kpk, info)
	if err != nil {
		return Capsule{}, nil, err
	}
	enc, sealer, err := sender.Setup(rand.Reader)
	if err != nil {
		return Capsule{}, nil, err
	}
	ct, err := sealer.Seal(plaintext, aad)
	if err != nil {
		return Capsule{}, nil, err
	}
	capsule, err := CapsuleFromBytes(enc)
	if err != nil {
		return Capsule{}, nil, err
	}
	return capsule, ct, nil
}

func open(sk *keys.SecretKey, info, aad []byte, capsule Capsule, ciphertext []byte) ([]byte, error) {
	receiver, err := suite.NewReceiver(sk.KEM(), info)
	if err != nil {
		return nil, err
	}
	opener, err := receiver.Setup(capsule[:])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecryption, err)
	}
	pt, err := opener.Open(ciphertext, aad)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecryption, err)
	}
	return pt, nil
}

// Encrypt encrypts plaintext so that only the holder of the secret key for
// pk can recover it.
func Encrypt(pk keys.PublicKey, plaintext []byte) (Capsule, []byte, error) {
	capsule, ct, err := seal(pk, infoCapsule, nil, plaintext)
	if err != nil {
		return Capsule{}, nil, fmt.Errorf("pre: encrypt: %w", err)
	}
	return capsule, ct, nil
}

// DecryptOriginal recovers the plaintext of a ciphertext produced by
// Encrypt. Errors wrap ErrDecryption when the key or data do not match.
func DecryptOriginal(sk *keys.SecretKey, capsule Capsule, ciphertext []byte) ([]byte, error) {
	return open(sk, infoCapsule, nil, capsule, ciphertext)
}
