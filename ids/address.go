package ids

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/sha3"
)

// AddressSize is the length of a node's staking-provider address in bytes.
const AddressSize = 20

// Address is a node's canonical (Ethereum-style) address.
type Address [AddressSize]byte

// AddressFromBytes copies b into an Address.
func AddressFromBytes(b []byte) (Address, error) {
	var a Address
	if len(b) != AddressSize {
		return a, fmt.Errorf("address must be %d bytes, got %d", AddressSize, len(b))
	}
	copy(a[:], b)
	return a, nil
}

// ParseAddress parses a 0x-prefixed hex address. All-lowercase and
// all-uppercase inputs are accepted as is; mixed-case inputs must carry a
// valid EIP-55 checksum.
func ParseAddress(s string) (Address, error) {
	var a Address
	body, ok := strings.CutPrefix(s, "0x")
	if !ok {
		body, ok = strings.CutPrefix(s, "0X")
	}
	if !ok {
		return a, errors.New("address must start with 0x")
	}
	if len(body) != 2*AddressSize {
		return a, fmt.Errorf("address must have %d hex digits, got %d", 2*AddressSize, len(body))
	}
	raw, err := hex.DecodeString(body)
	if err != nil {
		return a, fmt.Errorf("invalid address hex: %w", err)
	}
	copy(a[:], raw)
	if body != strings.ToLower(body) && body != strings.ToUpper(body) {
		if a.String() != "0x"+body {
			return Address{}, errors.New("invalid address checksum")
		}
	}
	return a, nil
}

// String returns the EIP-55 checksummed form.
func (a Address) String() string {
	lower := hex.EncodeToString(a[:])
	h := sha3.NewLegacyKeccak256()
	_, _ = h.Write([]byte(lower))
	digest := h.Sum(nil)

	out := []byte(lower)
	for i, c := range out {
		if c < 'a' || c > 'f' {
			continue
		}
		nibble := digest[i/2]
		if i%2 == 0 {
			nibble >>= 4
		} else {
			nibble &= 0x0f
		}
		if nibble >= 8 {
			out[i] = c - ('a' - 'A')
		}
	}
	return "0x" + string(out)
}

// Compare orders two addresses by their bytes.
func Compare(a, b Address) int { return bytes.Compare(a[:], b[:]) }
