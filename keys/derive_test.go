package keys

import (
	"bytes"
	"testing"
)

func seqSeed(start byte) []byte {
	seed := make([]byte, SeedSize)
	for i := range seed {
		seed[i] = start + byte(i)
	}
	return seed
}

func TestDeriveRoleSeedDeterministic(t *testing.T) {
	root := seqSeed(0)

	a, err := DeriveRoleSeed(root, "ursula")
	if err != nil {
		t.Fatalf("DeriveRoleSeed: %v", err)
	}
	b, err := DeriveRoleSeed(root, "ursula")
	if err != nil {
		t.Fatalf("DeriveRoleSeed: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Fatalf("expected deterministic derivation")
	}

	c, err := DeriveRoleSeed(root, "publisher")
	if err != nil {
		t.Fatalf("DeriveRoleSeed: %v", err)
	}
	if bytes.Equal(a, c) {
		t.Fatalf("expected different roles to derive different seeds")
	}
}

func TestDeriveRoleSeed_Rejects(t *testing.T) {
	if _, err := DeriveRoleSeed(make([]byte, 16), "ursula"); err == nil {
		t.Fatalf("expected short seed error")
	}
	if _, err := DeriveRoleSeed(seqSeed(0), "bad role"); err == nil {
		t.Fatalf("expected role error")
	}
}

func TestIdentityFromSeed(t *testing.T) {
	seed := seqSeed(7)
	a, err := IdentityFromSeed(seed)
	if err != nil {
		t.Fatalf("IdentityFromSeed: %v", err)
	}
	b, err := IdentityFromSeed(seed)
	if err != nil {
		t.Fatalf("IdentityFromSeed: %v", err)
	}
	if a.VerifyingKey() != b.VerifyingKey() || a.PublicKey() != b.PublicKey() {
		t.Fatalf("expected deterministic identity")
	}
	vk, pk := a.VerifyingKey(), a.PublicKey()
	if bytes.Equal(vk[:], pk[:]) {
		t.Fatalf("signing and encrypting keys must differ")
	}

	other, err := IdentityFromSeed(seqSeed(8))
	if err != nil {
		t.Fatalf("IdentityFromSeed: %v", err)
	}
	if other.VerifyingKey() == a.VerifyingKey() {
		t.Fatalf("different seeds must give different keys")
	}
}
