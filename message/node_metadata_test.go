package message

import (
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"

	"xdao.co/precore/envelope"
)

func TestNodeMetadata_RoundTrip(t *testing.T) {
	id := identity(t, 1)
	for name, evidence := range map[string][]byte{
		"absent":  nil,
		"empty":   {},
		"present": []byte("evidence"),
	} {
		t.Run(name, func(t *testing.T) {
			p := testPayload(t, id, 1)
			p.DecentralizedIdentityEvidence = evidence
			m := NewNodeMetadata(id.Signer, p)
			require.True(t, m.Verify())

			back, err := NodeMetadataFromBytes(m.Bytes())
			require.NoError(t, err)
			require.Equal(t, m, back)
			require.True(t, back.Verify())
			require.Equal(t, evidence == nil, back.Payload().DecentralizedIdentityEvidence == nil)
		})
	}
}

func TestNodeMetadata_ClonesPayload(t *testing.T) {
	id := identity(t, 1)
	p := testPayload(t, id, 1)
	m := NewNodeMetadata(id.Signer, p)
	p.CertificateDER[0] ^= 0xff
	require.True(t, m.Verify())

	got := m.Payload()
	got.CertificateDER[0] ^= 0xff
	got.Host = "example.org"
	require.True(t, m.Verify())
	require.Equal(t, "127.0.0.1", m.Payload().Host)
}

func TestNodeMetadata_VerifyUsesEmbeddedKey(t *testing.T) {
	owner := identity(t, 1)
	other := identity(t, 2)
	m := NewNodeMetadata(other.Signer, testPayload(t, owner, 1))
	require.False(t, m.Verify())
}

func TestNodeMetadata_SingleByteFlips(t *testing.T) {
	m := testNode(t, 1, 1)
	buf := m.Bytes()
	for i := envelope.HeaderSize; i < len(buf); i++ {
		tampered := append([]byte(nil), buf...)
		tampered[i] ^= 0x01
		back, err := NodeMetadataFromBytes(tampered)
		if err != nil {
			continue
		}
		require.False(t, back.Verify(), "flip at byte %d still verifies", i)
	}
}

func TestNodeMetadata_Multiaddr(t *testing.T) {
	id := identity(t, 1)
	for host, want := range map[string]string{
		"127.0.0.1":        "/ip4/127.0.0.1/tcp/9151",
		"::1":              "/ip6/::1/tcp/9151",
		"node.example.org": "/dns/node.example.org/tcp/9151",
	} {
		p := testPayload(t, id, 1)
		p.Host = host
		addr, err := p.Multiaddr()
		require.NoError(t, err)
		require.Equal(t, want, addr.String())
	}

	p := testPayload(t, id, 1)
	p.Host = "bad/host"
	_, err := p.Multiaddr()
	require.Error(t, err)
}

func TestNodeMetadata_MissingField(t *testing.T) {
	m := testNode(t, 1, 1)
	payload := (&envelope.Builder{}).Bytes(1, make([]byte, 64)).Finish()
	buf := append(m.Bytes()[:envelope.HeaderSize:envelope.HeaderSize], payload...)
	_, err := NodeMetadataFromBytes(buf)
	require.True(t, envelope.IsKind(err, envelope.KindDeserialization), "got %v", err)
}

func overlongVarint(v uint64) []byte {
	b := protowire.AppendVarint(nil, v)
	b[len(b)-1] |= 0x80
	return append(b, 0x00)
}

// signedNode wraps payload in a NodeMetadata envelope carrying m's signature.
func signedNode(m NodeMetadata, payload []byte) []byte {
	body := (&envelope.Builder{}).
		Bytes(1, m.signature[:]).
		Bytes(2, payload).
		Finish()
	return append(m.Bytes()[:envelope.HeaderSize:envelope.HeaderSize], body...)
}

func TestNodeMetadata_RejectsNonCanonicalPayload(t *testing.T) {
	m := testNode(t, 1, 1)
	canonical := m.payload.marshal()

	// Port is the last field written when evidence is absent.
	portLen := protowire.SizeTag(fieldNodePort) + protowire.SizeVarint(uint64(m.payload.Port))
	prefix := canonical[:len(canonical)-portLen]
	rebuilt := protowire.AppendTag(append([]byte(nil), prefix...), fieldNodePort, protowire.VarintType)
	rebuilt = protowire.AppendVarint(rebuilt, uint64(m.payload.Port))
	require.Equal(t, canonical, rebuilt)

	back, err := NodeMetadataFromBytes(signedNode(m, rebuilt))
	require.NoError(t, err)
	require.True(t, back.Verify())

	overlong := protowire.AppendTag(append([]byte(nil), prefix...), fieldNodePort, protowire.VarintType)
	overlong = append(overlong, overlongVarint(uint64(m.payload.Port))...)

	unknown := protowire.AppendTag(append([]byte(nil), canonical...), 30, protowire.VarintType)
	unknown = protowire.AppendVarint(unknown, 1)

	for name, payload := range map[string][]byte{
		"overlong varint": overlong,
		"unknown field":   unknown,
	} {
		_, err := NodeMetadataFromBytes(signedNode(m, payload))
		require.True(t, envelope.IsKind(err, envelope.KindDeserialization), "%s: got %v", name, err)
	}
}
