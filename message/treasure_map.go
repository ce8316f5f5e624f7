package message

import (
	"errors"
	"fmt"

	"xdao.co/precore/envelope"
	"xdao.co/precore/ids"
	"xdao.co/precore/keys"
	"xdao.co/precore/pre"
)

// ErrEncryption is returned when a treasure map cannot be encrypted.
var ErrEncryption = errors.New("message: encryption failed")

// Assignment gives one key fragment to the node at Address.
type Assignment struct {
	Address       ids.Address
	EncryptingKey keys.PublicKey
	KeyFrag       pre.KeyFrag
}

// Destination is a key fragment sealed for the node at Address.
type Destination struct {
	Address          ids.Address
	EncryptedKeyFrag pre.EncryptedKeyFrag
}

// OpenKeyFrag decrypts the node's fragment and checks the publisher's
// signature over it.
func (d Destination) OpenKeyFrag(sk *keys.SecretKey, hrac ids.HRAC, publisherVK keys.VerifyingKey) (pre.KeyFrag, error) {
	return d.EncryptedKeyFrag.Open(sk, hrac, publisherVK)
}

func (d Destination) clone() Destination {
	d.EncryptedKeyFrag.Ciphertext = cloneBytes(d.EncryptedKeyFrag.Ciphertext)
	return d
}

// TreasureMap lists, for one policy, which node holds which sealed key
// fragment. Address uniqueness across destinations is up to the caller.
type TreasureMap struct {
	Threshold             uint8
	HRAC                  ids.HRAC
	destinations          []Destination
	PolicyEncryptingKey   keys.PublicKey
	PublisherVerifyingKey keys.VerifyingKey
}

// NewTreasureMap seals each assignment's fragment for its node and records
// the destinations in assignment order. The publisher key is taken from
// signer.
//
// It panics if threshold is zero or there are fewer assignments than
// threshold.
func NewTreasureMap(signer *keys.Signer, hrac ids.HRAC, policyKey keys.PublicKey, assignments []Assignment, threshold uint8) (TreasureMap, error) {
	if threshold == 0 {
		panic("message: treasure map threshold must be non-zero")
	}
	if len(assignments) < int(threshold) {
		panic(fmt.Sprintf("message: treasure map threshold %d exceeds %d assignments", threshold, len(assignments)))
	}
	dests := make([]Destination, 0, len(assignments))
	for _, a := range assignments {
		ekfrag, err := pre.SealKeyFrag(signer, a.EncryptingKey, hrac, a.KeyFrag)
		if err != nil {
			return TreasureMap{}, fmt.Errorf("seal fragment for %s: %w", a.Address, err)
		}
		dests = append(dests, Destination{Address: a.Address, EncryptedKeyFrag: ekfrag})
	}
	return TreasureMap{
		Threshold:             threshold,
		HRAC:                  hrac,
		destinations:          dests,
		PolicyEncryptingKey:   policyKey,
		PublisherVerifyingKey: signer.VerifyingKey(),
	}, nil
}

// Destinations returns a copy of the destinations in order.
func (m TreasureMap) Destinations() []Destination {
	out := make([]Destination, len(m.destinations))
	for i, d := range m.destinations {
		out[i] = d.clone()
	}
	return out
}

// Destination looks up the fragment sealed for addr.
func (m TreasureMap) Destination(addr ids.Address) (Destination, bool) {
	for _, d := range m.destinations {
		if d.Address == addr {
			return d.clone(), true
		}
	}
	return Destination{}, false
}

func (m TreasureMap) clone() TreasureMap {
	out := m
	out.destinations = m.Destinations()
	return out
}

func (TreasureMap) Brand() envelope.Brand     { return brandTreasureMap }
func (TreasureMap) Version() envelope.Version { return v1 }

func (m TreasureMap) MarshalUnversioned() []byte {
	b := &envelope.Builder{}
	b.Uint(1, uint64(m.Threshold))
	b.Bytes(2, m.HRAC[:])
	for _, d := range m.destinations {
		b.Bytes(3, (&envelope.Builder{}).
			Bytes(1, d.Address[:]).
			Bytes(2, d.EncryptedKeyFrag.Bytes()).
			Finish())
	}
	b.Bytes(4, m.PolicyEncryptingKey[:])
	b.Bytes(5, m.PublisherVerifyingKey[:])
	return b.Finish()
}

func decodeDestination(data []byte) (Destination, error) {
	var d Destination
	seen, err := envelope.ReadFields(data, func(f envelope.Field) error {
		switch f.Num {
		case 1:
			return f.Fixed(d.Address[:])
		case 2:
			raw, err := f.Bytes()
			if err != nil {
				return err
			}
			d.EncryptedKeyFrag, err = pre.EncryptedKeyFragFromBytes(raw)
			return err
		}
		return nil
	})
	if err != nil {
		return Destination{}, fmt.Errorf("destination: %w", err)
	}
	if err := seen.Require(1, 2); err != nil {
		return Destination{}, fmt.Errorf("destination: %w", err)
	}
	return d, nil
}

func (m *TreasureMap) UnmarshalUnversioned(minor uint16, data []byte) error {
	if err := envelope.CheckMinor(minor, v1.Minor); err != nil {
		return err
	}
	out := TreasureMap{destinations: []Destination{}}
	seen, err := envelope.ReadFields(data, func(f envelope.Field) error {
		var err error
		switch f.Num {
		case 1:
			out.Threshold, err = f.Uint8()
		case 2:
			err = f.Fixed(out.HRAC[:])
		case 3:
			var raw []byte
			if raw, err = f.Bytes(); err != nil {
				return err
			}
			var d Destination
			if d, err = decodeDestination(raw); err == nil {
				out.destinations = append(out.destinations, d)
			}
		case 4:
			var raw []byte
			if raw, err = f.Bytes(); err == nil {
				out.PolicyEncryptingKey, err = keys.PublicKeyFromBytes(raw)
			}
		case 5:
			err = f.Fixed(out.PublisherVerifyingKey[:])
		}
		return err
	}, 3)
	if err != nil {
		return err
	}
	if err := seen.Require(1, 2, 4, 5); err != nil {
		return err
	}
	if out.Threshold == 0 || len(out.destinations) < int(out.Threshold) {
		return fmt.Errorf("threshold %d with %d destinations", out.Threshold, len(out.destinations))
	}
	*m = out
	return nil
}

// Encrypt authorizes the map for recipient and encrypts it so that only
// recipient can read it. Either a complete EncryptedTreasureMap is returned
// or an error wrapping ErrEncryption.
func (m TreasureMap) Encrypt(signer *keys.Signer, recipient keys.PublicKey) (EncryptedTreasureMap, error) {
	auth := newAuthorizedTreasureMap(signer, recipient, m)
	capsule, ct, err := pre.Encrypt(recipient, envelope.Marshal(auth))
	if err != nil {
		return EncryptedTreasureMap{}, fmt.Errorf("%w: %w", ErrEncryption, err)
	}
	return EncryptedTreasureMap{capsule: capsule, ciphertext: ct}, nil
}

// authorizedTreasureMap binds a treasure map to the one recipient the
// publisher meant it for.
type authorizedTreasureMap struct {
	signature   keys.Signature
	treasureMap TreasureMap
}

// The signed message is recipient ‖ envelope(tmap), so the signature does
// not carry over to a map re-encrypted for someone else.
func authorizationMessage(recipient keys.PublicKey, tmap TreasureMap) []byte {
	tb := envelope.Marshal(tmap)
	msg := make([]byte, 0, len(recipient)+len(tb))
	msg = append(msg, recipient[:]...)
	return append(msg, tb...)
}

func newAuthorizedTreasureMap(signer *keys.Signer, recipient keys.PublicKey, tmap TreasureMap) authorizedTreasureMap {
	return authorizedTreasureMap{
		signature:   signer.Sign(authorizationMessage(recipient, tmap)),
		treasureMap: tmap.clone(),
	}
}

func (a authorizedTreasureMap) verify(recipient keys.PublicKey, publisherVK keys.VerifyingKey) (TreasureMap, bool) {
	if !a.signature.Verify(publisherVK, authorizationMessage(recipient, a.treasureMap)) {
		return TreasureMap{}, false
	}
	return a.treasureMap.clone(), true
}

func (authorizedTreasureMap) Brand() envelope.Brand     { return brandAuthorizedTreasureMap }
func (authorizedTreasureMap) Version() envelope.Version { return v1 }

func (a authorizedTreasureMap) MarshalUnversioned() []byte {
	return (&envelope.Builder{}).
		Bytes(1, a.signature[:]).
		Bytes(2, a.treasureMap.MarshalUnversioned()).
		Finish()
}

func (a *authorizedTreasureMap) UnmarshalUnversioned(minor uint16, data []byte) error {
	if err := envelope.CheckMinor(minor, v1.Minor); err != nil {
		return err
	}
	var out authorizedTreasureMap
	seen, err := envelope.ReadFields(data, func(f envelope.Field) error {
		switch f.Num {
		case 1:
			return f.Fixed(out.signature[:])
		case 2:
			raw, err := f.Bytes()
			if err != nil {
				return err
			}
			return out.treasureMap.UnmarshalUnversioned(v1.Minor, raw)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if err := seen.Require(1, 2); err != nil {
		return err
	}
	*a = out
	return nil
}

// EncryptedTreasureMap is the wire form of a treasure map: readable only by
// its recipient.
type EncryptedTreasureMap struct {
	capsule    pre.Capsule
	ciphertext []byte
}

// Decrypt opens the map with the recipient's secret key and checks that
// publisherVK authorized it for that recipient.
//
// A key or ciphertext mismatch returns an error wrapping pre.ErrDecryption
// and a malformed payload returns an envelope error. A map that decrypts
// but was authorized for a different recipient, or by a different
// publisher, returns false with a nil error.
func (e EncryptedTreasureMap) Decrypt(sk *keys.SecretKey, publisherVK keys.VerifyingKey) (TreasureMap, bool, error) {
	plaintext, err := pre.DecryptOriginal(sk, e.capsule, e.ciphertext)
	if err != nil {
		return TreasureMap{}, false, err
	}
	var auth authorizedTreasureMap
	if err := envelope.Unmarshal(plaintext, &auth); err != nil {
		return TreasureMap{}, false, err
	}
	tmap, ok := auth.verify(sk.PublicKey(), publisherVK)
	return tmap, ok, nil
}

// Capsule returns the capsule the map was encrypted with.
func (e EncryptedTreasureMap) Capsule() pre.Capsule { return e.capsule }

func (EncryptedTreasureMap) Brand() envelope.Brand     { return brandEncryptedTreasureMap }
func (EncryptedTreasureMap) Version() envelope.Version { return v1 }

func (e EncryptedTreasureMap) MarshalUnversioned() []byte {
	return (&envelope.Builder{}).
		Bytes(1, e.capsule[:]).
		Bytes(2, e.ciphertext).
		Finish()
}

func (e *EncryptedTreasureMap) UnmarshalUnversioned(minor uint16, data []byte) error {
	if err := envelope.CheckMinor(minor, v1.Minor); err != nil {
		return err
	}
	var out EncryptedTreasureMap
	seen, err := envelope.ReadFields(data, func(f envelope.Field) error {
		var err error
		switch f.Num {
		case 1:
			err = f.Fixed(out.capsule[:])
		case 2:
			out.ciphertext, err = f.Bytes()
		}
		return err
	})
	if err != nil {
		return err
	}
	if err := seen.Require(1, 2); err != nil {
		return err
	}
	*e = out
	return nil
}
