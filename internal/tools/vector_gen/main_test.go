package main

import (
	"bytes"
	"testing"

	"xdao.co/precore/message"
)

func TestVectors_DeterministicAndDecodable(t *testing.T) {
	a, err := vectors()
	if err != nil {
		t.Fatalf("vectors: %v", err)
	}
	b, err := vectors()
	if err != nil {
		t.Fatalf("vectors: %v", err)
	}
	if len(a) != len(b) {
		t.Fatalf("vector count changed")
	}
	for i := range a {
		if !bytes.Equal(a[i].Bytes, b[i].Bytes) || a[i].CID != b[i].CID {
			t.Fatalf("%s is not deterministic", a[i].Name)
		}
		d, err := message.Decode(a[i].Bytes)
		if err != nil {
			t.Fatalf("%s: %v", a[i].Name, err)
		}
		if d.Kind == message.KindUnknown {
			t.Fatalf("%s decoded as unknown", a[i].Name)
		}
	}
}
