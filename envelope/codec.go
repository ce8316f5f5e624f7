package envelope

import (
	"errors"
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

// Canonical payload encoding.
//
// Payloads use the protobuf wire format (tag, type, value) with three extra
// rules that make the bytes canonical:
//   - fields are written in ascending field-number order;
//   - required fields are always written, even when zero;
//   - optional fields are written only when present.
//
// ReadFields skips field numbers it does not know. Unmarshal then re-encodes
// the decoded object and rejects the payload unless the bytes match, so an
// unknown field or a non-minimal varint never passes for a supported minor.

// Builder appends canonical fields to a payload.
type Builder struct {
	buf  []byte
	last protowire.Number
}

func (b *Builder) tag(num protowire.Number, typ protowire.Type) {
	if num < b.last {
		panic(fmt.Sprintf("envelope: field %d written after field %d", num, b.last))
	}
	b.last = num
	b.buf = protowire.AppendTag(b.buf, num, typ)
}

// Uint writes an unsigned varint field.
func (b *Builder) Uint(num protowire.Number, v uint64) *Builder {
	b.tag(num, protowire.VarintType)
	b.buf = protowire.AppendVarint(b.buf, v)
	return b
}

// Bool writes a boolean as a 0/1 varint.
func (b *Builder) Bool(num protowire.Number, v bool) *Builder {
	return b.Uint(num, protowire.EncodeBool(v))
}

// Bytes writes a length-delimited field. Calling it repeatedly with the same
// number produces a repeated field.
func (b *Builder) Bytes(num protowire.Number, v []byte) *Builder {
	b.tag(num, protowire.BytesType)
	b.buf = protowire.AppendBytes(b.buf, v)
	return b
}

// String writes a UTF-8 string field.
func (b *Builder) String(num protowire.Number, s string) *Builder {
	b.tag(num, protowire.BytesType)
	b.buf = protowire.AppendString(b.buf, s)
	return b
}

// Finish returns the encoded payload. The builder must not be reused.
func (b *Builder) Finish() []byte {
	if b.buf == nil {
		return []byte{}
	}
	return b.buf
}

// Field is one decoded (number, value) pair.
type Field struct {
	Num    protowire.Number
	Type   protowire.Type
	varint uint64
	bytes  []byte
}

var (
	errWireType   = errors.New("unexpected wire type")
	errNonMinimal = errors.New("non-minimal varint")
)

// Uint64 returns a varint field's value.
func (f Field) Uint64() (uint64, error) {
	if f.Type != protowire.VarintType {
		return 0, fmt.Errorf("field %d: %w", f.Num, errWireType)
	}
	return f.varint, nil
}

// Uint32 returns a varint field that must fit in 32 bits.
func (f Field) Uint32() (uint32, error) {
	v, err := f.Uint64()
	if err != nil {
		return 0, err
	}
	if v > math.MaxUint32 {
		return 0, fmt.Errorf("field %d: value %d overflows uint32", f.Num, v)
	}
	return uint32(v), nil
}

// Uint16 returns a varint field that must fit in 16 bits.
func (f Field) Uint16() (uint16, error) {
	v, err := f.Uint64()
	if err != nil {
		return 0, err
	}
	if v > math.MaxUint16 {
		return 0, fmt.Errorf("field %d: value %d overflows uint16", f.Num, v)
	}
	return uint16(v), nil
}

// Uint8 returns a varint field that must fit in 8 bits.
func (f Field) Uint8() (uint8, error) {
	v, err := f.Uint64()
	if err != nil {
		return 0, err
	}
	if v > math.MaxUint8 {
		return 0, fmt.Errorf("field %d: value %d overflows uint8", f.Num, v)
	}
	return uint8(v), nil
}

// Bool returns a varint field holding 0 or 1.
func (f Field) Bool() (bool, error) {
	v, err := f.Uint64()
	if err != nil {
		return false, err
	}
	if v > 1 {
		return false, fmt.Errorf("field %d: invalid bool %d", f.Num, v)
	}
	return v == 1, nil
}

// Bytes returns a copy of a length-delimited field. The result is never nil.
func (f Field) Bytes() ([]byte, error) {
	if f.Type != protowire.BytesType {
		return nil, fmt.Errorf("field %d: %w", f.Num, errWireType)
	}
	return append([]byte{}, f.bytes...), nil
}

// Fixed copies a length-delimited field of exactly len(dst) bytes into dst.
func (f Field) Fixed(dst []byte) error {
	if f.Type != protowire.BytesType {
		return fmt.Errorf("field %d: %w", f.Num, errWireType)
	}
	if len(f.bytes) != len(dst) {
		return fmt.Errorf("field %d: expected %d bytes, got %d", f.Num, len(dst), len(f.bytes))
	}
	copy(dst, f.bytes)
	return nil
}

// Text returns a length-delimited field as a string.
func (f Field) Text() (string, error) {
	if f.Type != protowire.BytesType {
		return "", fmt.Errorf("field %d: %w", f.Num, errWireType)
	}
	return string(f.bytes), nil
}

// Seen records which field numbers a payload contained.
type Seen map[protowire.Number]bool

// Require fails if any of nums was absent.
func (s Seen) Require(nums ...protowire.Number) error {
	for _, n := range nums {
		if !s[n] {
			return fmt.Errorf("missing required field %d", n)
		}
	}
	return nil
}

// ReadFields decodes data field by field and calls fn for each known wire
// type. Field numbers must be non-decreasing; only numbers listed in repeated
// may occur more than once. Groups and fixed-width values are skipped.
func ReadFields(data []byte, fn func(Field) error, repeated ...protowire.Number) (Seen, error) {
	seen := Seen{}
	var last protowire.Number
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, fmt.Errorf("tag: %w", protowire.ParseError(n))
		}
		if n != protowire.SizeTag(num) {
			return nil, fmt.Errorf("field %d: %w", num, errNonMinimal)
		}
		data = data[n:]
		if num < last {
			return nil, fmt.Errorf("field %d out of canonical order after field %d", num, last)
		}
		if seen[num] && !contains(repeated, num) {
			return nil, fmt.Errorf("duplicate field %d", num)
		}
		last = num
		seen[num] = true

		f := Field{Num: num, Type: typ}
		switch typ {
		case protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return nil, fmt.Errorf("field %d: %w", num, protowire.ParseError(n))
			}
			if n != protowire.SizeVarint(v) {
				return nil, fmt.Errorf("field %d: %w", num, errNonMinimal)
			}
			f.varint = v
			data = data[n:]
		case protowire.BytesType:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, fmt.Errorf("field %d: %w", num, protowire.ParseError(n))
			}
			if n != protowire.SizeBytes(len(v)) {
				return nil, fmt.Errorf("field %d: %w", num, errNonMinimal)
			}
			f.bytes = v
			data = data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return nil, fmt.Errorf("field %d: %w", num, protowire.ParseError(n))
			}
			data = data[n:]
			continue
		}
		if err := fn(f); err != nil {
			return nil, err
		}
	}
	return seen, nil
}

func contains(nums []protowire.Number, n protowire.Number) bool {
	for _, x := range nums {
		if x == n {
			return true
		}
	}
	return false
}
