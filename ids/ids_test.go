package ids

import (
	"sort"
	"strings"
	"testing"
)

func TestAddress_EIP55(t *testing.T) {
	for _, s := range []string{
		"0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed",
		"0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359",
		"0xdbF03B407c01E7cD3CBea99509d93f8DDDC8C6FB",
		"0xD1220A0cf47c7B9Be7A2E6BA89F429762e7b9aDb",
	} {
		a, err := ParseAddress(s)
		if err != nil {
			t.Fatalf("ParseAddress(%s): %v", s, err)
		}
		if a.String() != s {
			t.Fatalf("checksum mismatch: got %s want %s", a.String(), s)
		}
		lower, err := ParseAddress(strings.ToLower(s))
		if err != nil {
			t.Fatalf("ParseAddress(lower): %v", err)
		}
		if lower != a {
			t.Fatalf("lowercase parse differs")
		}
	}
}

func TestParseAddress_Rejects(t *testing.T) {
	for _, s := range []string{
		"5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed",
		"0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeA",
		"0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAzz",
		"0x5AAeb6053F3E94C9b9A09f33669435E7Ef1BeAed",
	} {
		if _, err := ParseAddress(s); err == nil {
			t.Fatalf("expected error for %q", s)
		}
	}
}

func TestAddress_Ordering(t *testing.T) {
	a := Address{0x01}
	b := Address{0x02}
	c := Address{0x01, 0x01}
	addrs := []Address{b, c, a}
	sort.Slice(addrs, func(i, j int) bool { return Compare(addrs[i], addrs[j]) < 0 })
	if addrs[0] != a || addrs[1] != c || addrs[2] != b {
		t.Fatalf("unexpected order: %v", addrs)
	}
}

func TestNewHRAC_Deterministic(t *testing.T) {
	pub := []byte("publisher-key")
	bob := []byte("recipient-key")
	h1 := NewHRAC(pub, bob, []byte("label"))
	h2 := NewHRAC(pub, bob, []byte("label"))
	if h1 != h2 {
		t.Fatalf("expected deterministic HRAC")
	}
	if h1 == NewHRAC(pub, bob, []byte("other")) {
		t.Fatalf("different labels must give different HRACs")
	}
	if h1 == NewHRAC(bob, pub, []byte("label")) {
		t.Fatalf("swapping publisher and recipient must change the HRAC")
	}
}

func TestFromBytes_Lengths(t *testing.T) {
	if _, err := HRACFromBytes(make([]byte, HRACSize-1)); err == nil {
		t.Fatalf("expected HRAC length error")
	}
	if _, err := AddressFromBytes(make([]byte, AddressSize+1)); err == nil {
		t.Fatalf("expected address length error")
	}
	if _, err := FleetStateChecksumFromBytes(make([]byte, FleetStateChecksumSize)); err != nil {
		t.Fatalf("FleetStateChecksumFromBytes: %v", err)
	}
}
