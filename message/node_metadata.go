package message

import (
	"fmt"
	"net"
	"strconv"

	"github.com/multiformats/go-multiaddr"

	"xdao.co/precore/envelope"
	"xdao.co/precore/ids"
	"xdao.co/precore/keys"
)

// NodeMetadataPayload is what a node announces about itself.
type NodeMetadataPayload struct {
	StakingProviderAddress ids.Address
	Domain                 string
	TimestampEpoch         uint32
	VerifyingKey           keys.VerifyingKey
	EncryptingKey          keys.PublicKey
	CertificateDER         []byte
	Host                   string
	Port                   uint16
	// DecentralizedIdentityEvidence is optional; nil means absent. Checking
	// it against VerifyingKey is left to the caller.
	DecentralizedIdentityEvidence []byte
}

const (
	fieldNodeAddress = iota + 1
	fieldNodeDomain
	fieldNodeTimestamp
	fieldNodeVerifyingKey
	fieldNodeEncryptingKey
	fieldNodeCertificate
	fieldNodeHost
	fieldNodePort
	fieldNodeEvidence
)

func (p NodeMetadataPayload) clone() NodeMetadataPayload {
	out := p
	out.CertificateDER = append([]byte{}, p.CertificateDER...)
	out.DecentralizedIdentityEvidence = cloneBytes(p.DecentralizedIdentityEvidence)
	return out
}

func (p NodeMetadataPayload) marshal() []byte {
	b := &envelope.Builder{}
	b.Bytes(fieldNodeAddress, p.StakingProviderAddress[:]).
		String(fieldNodeDomain, p.Domain).
		Uint(fieldNodeTimestamp, uint64(p.TimestampEpoch)).
		Bytes(fieldNodeVerifyingKey, p.VerifyingKey[:]).
		Bytes(fieldNodeEncryptingKey, p.EncryptingKey[:]).
		Bytes(fieldNodeCertificate, p.CertificateDER).
		String(fieldNodeHost, p.Host).
		Uint(fieldNodePort, uint64(p.Port))
	if p.DecentralizedIdentityEvidence != nil {
		b.Bytes(fieldNodeEvidence, p.DecentralizedIdentityEvidence)
	}
	return b.Finish()
}

func (p *NodeMetadataPayload) unmarshal(data []byte) error {
	var out NodeMetadataPayload
	seen, err := envelope.ReadFields(data, func(f envelope.Field) error {
		var err error
		switch f.Num {
		case fieldNodeAddress:
			err = f.Fixed(out.StakingProviderAddress[:])
		case fieldNodeDomain:
			out.Domain, err = f.Text()
		case fieldNodeTimestamp:
			out.TimestampEpoch, err = f.Uint32()
		case fieldNodeVerifyingKey:
			err = f.Fixed(out.VerifyingKey[:])
		case fieldNodeEncryptingKey:
			var raw []byte
			if raw, err = f.Bytes(); err == nil {
				out.EncryptingKey, err = keys.PublicKeyFromBytes(raw)
			}
		case fieldNodeCertificate:
			out.CertificateDER, err = f.Bytes()
		case fieldNodeHost:
			out.Host, err = f.Text()
		case fieldNodePort:
			out.Port, err = f.Uint16()
		case fieldNodeEvidence:
			out.DecentralizedIdentityEvidence, err = f.Bytes()
		}
		return err
	})
	if err != nil {
		return err
	}
	if err := seen.Require(fieldNodeAddress, fieldNodeDomain, fieldNodeTimestamp,
		fieldNodeVerifyingKey, fieldNodeEncryptingKey, fieldNodeCertificate,
		fieldNodeHost, fieldNodePort); err != nil {
		return err
	}
	*p = out
	return nil
}

// Multiaddr returns the node's contact address as /ip4, /ip6 or /dns over
// tcp.
func (p NodeMetadataPayload) Multiaddr() (multiaddr.Multiaddr, error) {
	proto := "dns"
	if ip := net.ParseIP(p.Host); ip != nil {
		proto = "ip6"
		if ip.To4() != nil {
			proto = "ip4"
		}
	}
	addr, err := multiaddr.NewMultiaddr("/" + proto + "/" + p.Host + "/tcp/" + strconv.Itoa(int(p.Port)))
	if err != nil {
		return nil, fmt.Errorf("node %s: %w", p.StakingProviderAddress, err)
	}
	return addr, nil
}

// NodeMetadata is a NodeMetadataPayload signed by the key it announces.
type NodeMetadata struct {
	signature keys.Signature
	payload   NodeMetadataPayload
}

// NewNodeMetadata signs the canonical encoding of payload.
func NewNodeMetadata(signer *keys.Signer, payload NodeMetadataPayload) NodeMetadata {
	p := payload.clone()
	return NodeMetadata{signature: signer.Sign(p.marshal()), payload: p}
}

// Verify reports whether the signature matches the payload under the
// payload's own verifying key. It proves the payload is unchanged since it
// was signed, not who the key belongs to.
func (m NodeMetadata) Verify() bool {
	return m.signature.Verify(m.payload.VerifyingKey, m.payload.marshal())
}

// Payload returns a copy of the announced payload, whether or not it
// verifies.
func (m NodeMetadata) Payload() NodeMetadataPayload { return m.payload.clone() }

// Signature returns the node's signature.
func (m NodeMetadata) Signature() keys.Signature { return m.signature }

func (NodeMetadata) Brand() envelope.Brand     { return brandNodeMetadata }
func (NodeMetadata) Version() envelope.Version { return v1 }

func (m NodeMetadata) MarshalUnversioned() []byte {
	return (&envelope.Builder{}).
		Bytes(1, m.signature[:]).
		Bytes(2, m.payload.marshal()).
		Finish()
}

func (m *NodeMetadata) UnmarshalUnversioned(minor uint16, data []byte) error {
	if err := envelope.CheckMinor(minor, v1.Minor); err != nil {
		return err
	}
	var out NodeMetadata
	seen, err := envelope.ReadFields(data, func(f envelope.Field) error {
		switch f.Num {
		case 1:
			return f.Fixed(out.signature[:])
		case 2:
			raw, err := f.Bytes()
			if err != nil {
				return err
			}
			return out.payload.unmarshal(raw)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if err := seen.Require(1, 2); err != nil {
		return err
	}
	*m = out
	return nil
}

// Bytes returns the envelope encoding.
func (m NodeMetadata) Bytes() []byte { return envelope.Marshal(m) }

// NodeMetadataFromBytes decodes an envelope produced by NodeMetadata.Bytes.
// It does not verify the signature.
func NodeMetadataFromBytes(buf []byte) (NodeMetadata, error) {
	var m NodeMetadata
	if err := envelope.Unmarshal(buf, &m); err != nil {
		return NodeMetadata{}, err
	}
	return m, nil
}
