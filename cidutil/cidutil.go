// Package cidutil derives content identifiers for envelope bytes.
//
// Identifiers are CIDv1 with the "raw" multicodec and a sha2-256 multihash,
// so any two parties holding the same encoded object agree on its name.
package cidutil

import (
	"fmt"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"

	"xdao.co/precore/envelope"
)

// DigestSize is the length of a sha2-256 digest.
const DigestSize = 32

// Sum returns the sha2-256 multihash of data.
func Sum(data []byte) (multihash.Multihash, error) {
	return multihash.Sum(data, multihash.SHA2_256, -1)
}

// Digest returns the raw sha2-256 digest of data, taken from its multihash.
func Digest(data []byte) ([DigestSize]byte, error) {
	var out [DigestSize]byte
	mh, err := Sum(data)
	if err != nil {
		return out, err
	}
	decoded, err := multihash.Decode(mh)
	if err != nil {
		return out, err
	}
	if len(decoded.Digest) != DigestSize {
		return out, fmt.Errorf("unexpected digest length %d", len(decoded.Digest))
	}
	copy(out[:], decoded.Digest)
	return out, nil
}

// CIDv1RawSHA256 returns the CIDv1 (raw + sha2-256) of data.
func CIDv1RawSHA256(data []byte) (cid.Cid, error) {
	mh, err := Sum(data)
	if err != nil {
		return cid.Undef, err
	}
	return cid.NewCidV1(cid.Raw, mh), nil
}

// ObjectCID returns the CID of an object's envelope bytes.
func ObjectCID(o envelope.Object) (cid.Cid, error) {
	return CIDv1RawSHA256(envelope.Marshal(o))
}

// Parse decodes a CID string and checks that it names raw sha2-256 content.
func Parse(s string) (cid.Cid, error) {
	c, err := cid.Decode(s)
	if err != nil {
		return cid.Undef, err
	}
	prefix := c.Prefix()
	if prefix.Version != 1 || prefix.Codec != cid.Raw || prefix.MhType != multihash.SHA2_256 {
		return cid.Undef, fmt.Errorf("cid %s is not a CIDv1 raw sha2-256 identifier", s)
	}
	return c, nil
}

// Matches reports whether c names data.
func Matches(c cid.Cid, data []byte) bool {
	got, err := CIDv1RawSHA256(data)
	if err != nil {
		return false
	}
	return got.Equals(c)
}
