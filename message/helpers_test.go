package message

import (
	"testing"

	"github.com/stretchr/testify/require"

	"xdao.co/precore/ids"
	"xdao.co/precore/keys"
)

func identity(t *testing.T, b byte) keys.Identity {
	t.Helper()
	seed := make([]byte, keys.SeedSize)
	for i := range seed {
		seed[i] = b
	}
	id, err := keys.IdentityFromSeed(seed)
	require.NoError(t, err)
	return id
}

func address(b byte) ids.Address {
	var a ids.Address
	for i := range a {
		a[i] = b
	}
	return a
}

func testPayload(t *testing.T, id keys.Identity, addr byte) NodeMetadataPayload {
	t.Helper()
	return NodeMetadataPayload{
		StakingProviderAddress: address(addr),
		Domain:                 "lynx",
		TimestampEpoch:         1_700_000_000,
		VerifyingKey:           id.VerifyingKey(),
		EncryptingKey:          id.PublicKey(),
		CertificateDER:         []byte("certificate"),
		Host:                   "127.0.0.1",
		Port:                   9151,
	}
}

func testNode(t *testing.T, seed, addr byte) NodeMetadata {
	t.Helper()
	id := identity(t, seed)
	return NewNodeMetadata(id.Signer, testPayload(t, id, addr))
}
