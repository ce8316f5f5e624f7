// Package ids defines the fixed-size opaque identifiers carried by protocol
// messages: node addresses, policy HRACs and fleet-state checksums.
//
// All identifiers are comparable array values; they can be used as map keys
// and are totally ordered by their bytes.
package ids

import (
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/sha3"
)

// HRACSize is the length of a policy HRAC in bytes.
const HRACSize = 16

// HRAC identifies a policy: it binds the publisher, the recipient and the
// label the data was published under.
type HRAC [HRACSize]byte

// NewHRAC derives the HRAC for a policy from the publisher's and recipient's
// verifying keys and the policy label.
func NewHRAC(publisherVerifyingKey, recipientVerifyingKey, label []byte) HRAC {
	h := sha3.New256()
	_, _ = h.Write(publisherVerifyingKey)
	_, _ = h.Write(recipientVerifyingKey)
	_, _ = h.Write(label)
	var out HRAC
	copy(out[:], h.Sum(nil))
	return out
}

// HRACFromBytes copies b into an HRAC.
func HRACFromBytes(b []byte) (HRAC, error) {
	var out HRAC
	if len(b) != HRACSize {
		return out, fmt.Errorf("hrac must be %d bytes, got %d", HRACSize, len(b))
	}
	copy(out[:], b)
	return out, nil
}

func (h HRAC) String() string { return hex.EncodeToString(h[:]) }

// FleetStateChecksumSize is the length of a fleet-state digest in bytes.
const FleetStateChecksumSize = 32

// FleetStateChecksum identifies a snapshot of known-node state.
// It is compared by equality only.
type FleetStateChecksum [FleetStateChecksumSize]byte

// FleetStateChecksumFromBytes copies b into a checksum.
func FleetStateChecksumFromBytes(b []byte) (FleetStateChecksum, error) {
	var out FleetStateChecksum
	if len(b) != FleetStateChecksumSize {
		return out, fmt.Errorf("fleet state checksum must be %d bytes, got %d", FleetStateChecksumSize, len(b))
	}
	copy(out[:], b)
	return out, nil
}

func (c FleetStateChecksum) String() string { return hex.EncodeToString(c[:]) }
