package envelope

import (
	"errors"
	"fmt"
)

// Kind is a stable category for programmatic error handling.
//
// Callers should branch on Kind rather than matching error strings.
// Use errors.As to extract *Error for the brand and versions involved.
type Kind string

const (
	// KindHeader: the buffer is too short to hold a brand and version.
	KindHeader Kind = "Header"
	// KindBrandMismatch: the buffer holds a different message type.
	KindBrandMismatch Kind = "BrandMismatch"
	// KindMajorVersionMismatch: breaking shape change; the reader will not guess.
	KindMajorVersionMismatch Kind = "MajorVersionMismatch"
	// KindMinorVersionTooNew: the reader knows the type but not this shape revision.
	KindMinorVersionTooNew Kind = "MinorVersionTooNew"
	// KindDeserialization: the payload bytes are malformed.
	KindDeserialization Kind = "Deserialization"
)

// ErrMinorVersionTooNew is returned by UnmarshalUnversioned hooks that cannot
// interpret a minor version. Unmarshal reports it as KindMinorVersionTooNew.
var ErrMinorVersionTooNew = errors.New("envelope: minor version too new")

// ErrNonCanonical is the cause of a KindDeserialization error for a payload
// that decodes but is not the canonical encoding of the decoded value.
var ErrNonCanonical = errors.New("envelope: payload is not canonical")

// Error is the envelope's structured error type.
//
// Expected and Got are filled for brand and version errors; Cause carries the
// underlying codec error for KindDeserialization.
type Error struct {
	Kind     Kind
	Expected Header
	Got      Header
	Message  string
	Cause    error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Cause != nil {
		return fmt.Sprintf("envelope: %s: %v", e.Message, e.Cause)
	}
	return "envelope: " + e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func newError(kind Kind, expected, got Header, msg string) error {
	return &Error{Kind: kind, Expected: expected, Got: got, Message: msg}
}

func wrapError(kind Kind, expected, got Header, msg string, cause error) error {
	if cause == nil {
		return newError(kind, expected, got, msg)
	}
	return &Error{Kind: kind, Expected: expected, Got: got, Message: msg, Cause: cause}
}

// IsKind reports whether err is (or wraps) a *Error with the given Kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}
