package envelope

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"google.golang.org/protobuf/encoding/protowire"
)

// note is a minimal protocol object used to exercise the envelope.
// Minor version 1 added the optional Tag field.
type note struct {
	Seq  uint32
	Body []byte
	Tag  string
}

func (*note) Brand() Brand     { return NewBrand("Note") }
func (*note) Version() Version { return Version{Major: 2, Minor: 1} }

func (n *note) MarshalUnversioned() []byte {
	var b Builder
	b.Uint(1, uint64(n.Seq)).Bytes(2, n.Body)
	if n.Tag != "" {
		b.String(3, n.Tag)
	}
	return b.Finish()
}

func (n *note) UnmarshalUnversioned(minor uint16, data []byte) error {
	if err := CheckMinor(minor, 1); err != nil {
		return err
	}
	var out note
	seen, err := ReadFields(data, func(f Field) error {
		var err error
		switch f.Num {
		case 1:
			out.Seq, err = f.Uint32()
		case 2:
			out.Body, err = f.Bytes()
		case 3:
			out.Tag, err = f.Text()
		}
		return err
	})
	if err != nil {
		return err
	}
	if err := seen.Require(1, 2); err != nil {
		return err
	}
	*n = out
	return nil
}

type other struct{ note }

func (*other) Brand() Brand { return NewBrand("Othr") }

func withVersion(t *testing.T, buf []byte, major, minor uint16) []byte {
	t.Helper()
	out := append([]byte(nil), buf...)
	binary.BigEndian.PutUint16(out[4:6], major)
	binary.BigEndian.PutUint16(out[6:8], minor)
	return out
}

func TestMarshal_Layout(t *testing.T) {
	n := &note{Seq: 7, Body: []byte("hi")}
	b := Marshal(n)
	if string(b[:4]) != "Note" {
		t.Fatalf("brand: got %q", b[:4])
	}
	if binary.BigEndian.Uint16(b[4:6]) != 2 || binary.BigEndian.Uint16(b[6:8]) != 1 {
		t.Fatalf("version bytes: %x", b[4:8])
	}
	if !bytes.Equal(b[HeaderSize:], n.MarshalUnversioned()) {
		t.Fatalf("payload mismatch")
	}
}

func TestUnmarshal_RoundTrip(t *testing.T) {
	for _, in := range []*note{
		{Seq: 1, Body: []byte("body")},
		{Seq: 0, Body: []byte{}},
		{Seq: 42, Body: []byte{0}, Tag: "t"},
	} {
		var got note
		if err := Unmarshal(Marshal(in), &got); err != nil {
			t.Fatalf("Unmarshal: %v", err)
		}
		if got.Seq != in.Seq || !bytes.Equal(got.Body, in.Body) || got.Tag != in.Tag {
			t.Fatalf("round trip mismatch: got %+v want %+v", got, *in)
		}
	}
}

func TestUnmarshal_BrandMismatch(t *testing.T) {
	b := Marshal(&note{Seq: 1, Body: []byte("x")})
	var o other
	err := Unmarshal(b, &o)
	if !IsKind(err, KindBrandMismatch) {
		t.Fatalf("expected KindBrandMismatch, got %v", err)
	}
	var e *Error
	if !errors.As(err, &e) {
		t.Fatalf("expected *Error, got %T", err)
	}
	if e.Expected.Brand != NewBrand("Othr") || e.Got.Brand != NewBrand("Note") {
		t.Fatalf("unexpected brands in error: %+v", e)
	}
}

func TestUnmarshal_MajorVersionMismatch(t *testing.T) {
	b := Marshal(&note{Seq: 1, Body: []byte("x")})
	for _, major := range []uint16{1, 3, 0xffff} {
		var n note
		err := Unmarshal(withVersion(t, b, major, 0), &n)
		if !IsKind(err, KindMajorVersionMismatch) {
			t.Fatalf("major %d: expected KindMajorVersionMismatch, got %v", major, err)
		}
	}
}

func TestUnmarshal_MinorVersionGate(t *testing.T) {
	b := Marshal(&note{Seq: 1, Body: []byte("x"), Tag: "new"})

	var older note
	if err := Unmarshal(withVersion(t, b, 2, 0), &older); err != nil {
		t.Fatalf("minor 0 should be readable: %v", err)
	}

	var n note
	err := Unmarshal(withVersion(t, b, 2, 2), &n)
	if !IsKind(err, KindMinorVersionTooNew) {
		t.Fatalf("expected KindMinorVersionTooNew, got %v", err)
	}
	if IsKind(err, KindMajorVersionMismatch) {
		t.Fatalf("minor error must be distinct from major mismatch")
	}
}

func TestReadFields_SkipsUnknownFields(t *testing.T) {
	var b Builder
	b.Uint(1, 5).Bytes(2, []byte("x")).Uint(9, 77).Bytes(10, []byte("future"))

	var got []protowire.Number
	seen, err := ReadFields(b.Finish(), func(f Field) error {
		got = append(got, f.Num)
		return nil
	})
	if err != nil {
		t.Fatalf("ReadFields: %v", err)
	}
	if len(got) != 4 || !seen[9] || !seen[10] {
		t.Fatalf("unexpected fields: %v", got)
	}
}

func TestUnmarshal_RejectsNonCanonical(t *testing.T) {
	header := Marshal(&note{})[:HeaderSize]

	var unknown Builder
	unknown.Uint(1, 5).Bytes(2, []byte("x")).Uint(9, 77)

	overlongValue := append([]byte{0x08, 0x85, 0x00}, 0x12, 0x00)
	overlongLength := []byte{0x08, 0x05, 0x12, 0x81, 0x00, 'x'}
	overlongTag := []byte{0x88, 0x00, 0x05, 0x12, 0x00}

	cases := map[string][]byte{
		"unknown field":   append(append([]byte(nil), header...), unknown.Finish()...),
		"overlong value":  append(append([]byte(nil), header...), overlongValue...),
		"overlong length": append(append([]byte(nil), header...), overlongLength...),
		"overlong tag":    append(append([]byte(nil), header...), overlongTag...),
	}
	for name, buf := range cases {
		var n note
		err := Unmarshal(buf, &n)
		if !IsKind(err, KindDeserialization) {
			t.Fatalf("%s: expected KindDeserialization, got %v", name, err)
		}
	}

	var n note
	err := Unmarshal(append(append([]byte(nil), header...), unknown.Finish()...), &n)
	if !errors.Is(err, ErrNonCanonical) {
		t.Fatalf("unknown field: expected ErrNonCanonical, got %v", err)
	}
	err = Unmarshal(append(append([]byte(nil), header...), overlongValue...), &n)
	if !errors.Is(err, errNonMinimal) {
		t.Fatalf("overlong value: expected errNonMinimal, got %v", err)
	}
}

func TestUnmarshal_DeserializationErrors(t *testing.T) {
	header := Marshal(&note{})[:HeaderSize]

	var dup Builder
	dup.Uint(1, 1).Uint(1, 2).Bytes(2, nil)

	var missing Builder
	missing.Uint(1, 1)

	cases := map[string][]byte{
		"truncated": append(append([]byte(nil), header...), 0x12, 0x05, 'a'),
		"duplicate": append(append([]byte(nil), header...), dup.Finish()...),
		"missing":   append(append([]byte(nil), header...), missing.Finish()...),
		"order":     append(append([]byte(nil), header...), 0x12, 0x00, 0x08, 0x01),
		"wiretype":  append(append([]byte(nil), header...), 0x0a, 0x00, 0x12, 0x00),
	}
	for name, buf := range cases {
		var n note
		err := Unmarshal(buf, &n)
		if !IsKind(err, KindDeserialization) {
			t.Fatalf("%s: expected KindDeserialization, got %v", name, err)
		}
		if errors.Unwrap(err) == nil {
			t.Fatalf("%s: expected the inner error to be retained", name)
		}
	}
}

func TestParseHeader_TooShort(t *testing.T) {
	for _, buf := range [][]byte{nil, []byte("Not"), []byte("Note\x00\x02\x00")} {
		var n note
		if err := Unmarshal(buf, &n); !IsKind(err, KindHeader) {
			t.Fatalf("len %d: expected KindHeader, got %v", len(buf), err)
		}
	}
}

func TestBuilder_PanicsOnDescendingFields(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic")
		}
	}()
	var b Builder
	b.Uint(2, 1).Uint(1, 1)
}

func TestNewBrand_PanicsOnBadLength(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic")
		}
	}()
	NewBrand("TooLong")
}
