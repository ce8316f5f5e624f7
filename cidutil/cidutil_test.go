package cidutil

import (
	"crypto/sha256"
	"testing"
)

func TestCIDv1RawSHA256_Deterministic(t *testing.T) {
	a, err := CIDv1RawSHA256([]byte("hello"))
	if err != nil {
		t.Fatalf("CIDv1RawSHA256: %v", err)
	}
	b, err := CIDv1RawSHA256([]byte("hello"))
	if err != nil {
		t.Fatalf("CIDv1RawSHA256: %v", err)
	}
	if !a.Equals(b) {
		t.Fatalf("expected equal CIDs")
	}
	if !Matches(a, []byte("hello")) || Matches(a, []byte("hellO")) {
		t.Fatalf("Matches disagrees with the data")
	}

	parsed, err := Parse(a.String())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !parsed.Equals(a) {
		t.Fatalf("parsed CID differs")
	}
	if _, err := Parse("not-a-cid"); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestDigest_MatchesSHA256(t *testing.T) {
	got, err := Digest([]byte("fleet"))
	if err != nil {
		t.Fatalf("Digest: %v", err)
	}
	if got != sha256.Sum256([]byte("fleet")) {
		t.Fatalf("digest mismatch")
	}
}
