// Package envelope implements the versioned wire envelope shared by every
// protocol object.
//
// Layout:
//
//	offset 0..4   brand (4 ASCII bytes, fixed per message type)
//	offset 4..6   major version (big-endian uint16)
//	offset 6..8   minor version (big-endian uint16)
//	offset 8..    canonical unversioned payload
//
// Brand and version are checked before any payload decoding is attempted, so
// a reader rejects foreign or incompatible data without touching the payload.
package envelope

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

// HeaderSize is the number of bytes preceding the unversioned payload.
const HeaderSize = 8

// Brand identifies a message type for its entire lifetime.
type Brand [4]byte

// NewBrand converts a 4-character ASCII tag. It panics on any other length;
// brands are compile-time constants.
func NewBrand(tag string) Brand {
	if len(tag) != 4 {
		panic(fmt.Sprintf("envelope: brand %q must be 4 bytes", tag))
	}
	var b Brand
	copy(b[:], tag)
	return b
}

func (b Brand) String() string { return string(b[:]) }

// Version is the (major, minor) shape revision of a message type.
// Major changes on breaking changes; minor changes are additive.
type Version struct {
	Major uint16
	Minor uint16
}

func (v Version) String() string { return fmt.Sprintf("%d.%d", v.Major, v.Minor) }

// Header is the decoded envelope prefix.
type Header struct {
	Brand   Brand
	Version Version
}

func (h Header) String() string { return h.Brand.String() + " v" + h.Version.String() }

// Object is implemented by every protocol message.
type Object interface {
	Brand() Brand
	Version() Version
	// MarshalUnversioned returns the canonical payload bytes. The output must be
	// deterministic: signatures are computed over it.
	MarshalUnversioned() []byte
}

// Unmarshaler is an Object that can be decoded from an envelope.
type Unmarshaler interface {
	Object
	// UnmarshalUnversioned decodes the payload written under the given minor
	// version. It returns ErrMinorVersionTooNew when minor is beyond what the
	// implementation understands.
	UnmarshalUnversioned(minor uint16, data []byte) error
}

// Marshal returns brand ‖ major ‖ minor ‖ unversioned payload.
func Marshal(o Object) []byte {
	payload := o.MarshalUnversioned()
	out := make([]byte, HeaderSize, HeaderSize+len(payload))
	b := o.Brand()
	v := o.Version()
	copy(out[:4], b[:])
	binary.BigEndian.PutUint16(out[4:6], v.Major)
	binary.BigEndian.PutUint16(out[6:8], v.Minor)
	return append(out, payload...)
}

// ParseHeader splits buf into its header and payload.
func ParseHeader(buf []byte) (Header, []byte, error) {
	if len(buf) < HeaderSize {
		return Header{}, nil, newError(KindHeader, Header{}, Header{},
			fmt.Sprintf("need at least %d bytes, got %d", HeaderSize, len(buf)))
	}
	var h Header
	copy(h.Brand[:], buf[:4])
	h.Version.Major = binary.BigEndian.Uint16(buf[4:6])
	h.Version.Minor = binary.BigEndian.Uint16(buf[6:8])
	return h, buf[HeaderSize:], nil
}

// Unmarshal decodes buf into dst after checking brand and major version.
// The payload must be exactly what dst re-encodes to; anything else is a
// KindDeserialization error wrapping ErrNonCanonical.
func Unmarshal(buf []byte, dst Unmarshaler) error {
	expected := Header{Brand: dst.Brand(), Version: dst.Version()}
	got, payload, err := ParseHeader(buf)
	if err != nil {
		var e *Error
		if errors.As(err, &e) {
			e.Expected = expected
		}
		return err
	}
	if got.Brand != expected.Brand {
		return newError(KindBrandMismatch, expected, got,
			fmt.Sprintf("incorrect brand: expected %q, got %q", expected.Brand, got.Brand))
	}
	if got.Version.Major != expected.Version.Major {
		return newError(KindMajorVersionMismatch, expected, got,
			fmt.Sprintf("%s: unsupported major version %d (supported %d)", got.Brand, got.Version.Major, expected.Version.Major))
	}
	if err := dst.UnmarshalUnversioned(got.Version.Minor, payload); err != nil {
		if errors.Is(err, ErrMinorVersionTooNew) {
			return newError(KindMinorVersionTooNew, expected, got,
				fmt.Sprintf("%s: minor version %d is newer than supported %d", got.Brand, got.Version.Minor, expected.Version.Minor))
		}
		return wrapError(KindDeserialization, expected, got,
			fmt.Sprintf("%s: malformed payload", got.Brand), err)
	}
	if !bytes.Equal(dst.MarshalUnversioned(), payload) {
		return wrapError(KindDeserialization, expected, got,
			fmt.Sprintf("%s: malformed payload", got.Brand), ErrNonCanonical)
	}
	return nil
}

// CheckMinor is the strict minor-version policy: anything up to supported is
// readable, anything above is rejected.
func CheckMinor(minor, supported uint16) error {
	if minor > supported {
		return ErrMinorVersionTooNew
	}
	return nil
}
