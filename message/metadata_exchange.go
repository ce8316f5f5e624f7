package message

import (
	"sort"

	"google.golang.org/protobuf/encoding/protowire"

	"xdao.co/precore/cidutil"
	"xdao.co/precore/envelope"
	"xdao.co/precore/ids"
	"xdao.co/precore/keys"
)

// cloneNodes copies nodes; an empty list is always nil.
func cloneNodes(nodes []NodeMetadata) []NodeMetadata {
	if len(nodes) == 0 {
		return nil
	}
	out := make([]NodeMetadata, len(nodes))
	for i, n := range nodes {
		out[i] = NodeMetadata{signature: n.signature, payload: n.payload.clone()}
	}
	return out
}

func appendNodes(b *envelope.Builder, num protowire.Number, nodes []NodeMetadata) {
	for _, n := range nodes {
		b.Bytes(num, n.MarshalUnversioned())
	}
}

func decodeNode(f envelope.Field) (NodeMetadata, error) {
	raw, err := f.Bytes()
	if err != nil {
		return NodeMetadata{}, err
	}
	var n NodeMetadata
	if err := n.UnmarshalUnversioned(v1.Minor, raw); err != nil {
		return NodeMetadata{}, err
	}
	return n, nil
}

// MetadataRequest asks a peer for the nodes it knows, announcing the
// sender's own view. It is unsigned: each announced node carries its own
// signature, which the receiver must check with NodeMetadata.Verify.
type MetadataRequest struct {
	FleetStateChecksum ids.FleetStateChecksum
	// nil when empty
	AnnounceNodes []NodeMetadata
}

// NewMetadataRequest builds a request. Node signatures are not checked.
func NewMetadataRequest(checksum ids.FleetStateChecksum, nodes []NodeMetadata) MetadataRequest {
	return MetadataRequest{FleetStateChecksum: checksum, AnnounceNodes: cloneNodes(nodes)}
}

func (MetadataRequest) Brand() envelope.Brand     { return brandMetadataRequest }
func (MetadataRequest) Version() envelope.Version { return v1 }

func (r MetadataRequest) MarshalUnversioned() []byte {
	b := &envelope.Builder{}
	b.Bytes(1, r.FleetStateChecksum[:])
	appendNodes(b, 2, r.AnnounceNodes)
	return b.Finish()
}

func (r *MetadataRequest) UnmarshalUnversioned(minor uint16, data []byte) error {
	if err := envelope.CheckMinor(minor, v1.Minor); err != nil {
		return err
	}
	var out MetadataRequest
	seen, err := envelope.ReadFields(data, func(f envelope.Field) error {
		switch f.Num {
		case 1:
			return f.Fixed(out.FleetStateChecksum[:])
		case 2:
			n, err := decodeNode(f)
			if err != nil {
				return err
			}
			out.AnnounceNodes = append(out.AnnounceNodes, n)
		}
		return nil
	}, 2)
	if err != nil {
		return err
	}
	if err := seen.Require(1); err != nil {
		return err
	}
	*r = out
	return nil
}

// VerifiedMetadataResponse is the content of a MetadataResponse.
type VerifiedMetadataResponse struct {
	TimestampEpoch uint32
	// nil when empty
	AnnounceNodes []NodeMetadata
}

func (r VerifiedMetadataResponse) clone() VerifiedMetadataResponse {
	return VerifiedMetadataResponse{TimestampEpoch: r.TimestampEpoch, AnnounceNodes: cloneNodes(r.AnnounceNodes)}
}

func (r VerifiedMetadataResponse) marshal() []byte {
	b := &envelope.Builder{}
	b.Uint(1, uint64(r.TimestampEpoch))
	appendNodes(b, 2, r.AnnounceNodes)
	return b.Finish()
}

func (r *VerifiedMetadataResponse) unmarshal(data []byte) error {
	var out VerifiedMetadataResponse
	seen, err := envelope.ReadFields(data, func(f envelope.Field) error {
		var err error
		switch f.Num {
		case 1:
			out.TimestampEpoch, err = f.Uint32()
		case 2:
			var n NodeMetadata
			if n, err = decodeNode(f); err == nil {
				out.AnnounceNodes = append(out.AnnounceNodes, n)
			}
		}
		return err
	}, 2)
	if err != nil {
		return err
	}
	if err := seen.Require(1); err != nil {
		return err
	}
	*r = out
	return nil
}

// MetadataResponse is a VerifiedMetadataResponse signed by the responding
// node as a whole.
type MetadataResponse struct {
	signature keys.Signature
	response  VerifiedMetadataResponse
}

// NewMetadataResponse signs the canonical encoding of resp.
func NewMetadataResponse(signer *keys.Signer, resp VerifiedMetadataResponse) MetadataResponse {
	r := resp.clone()
	return MetadataResponse{signature: signer.Sign(r.marshal()), response: r}
}

// Verify checks the responder's signature under vk and returns the content
// on success. Signatures of the announced nodes are not re-checked.
func (m MetadataResponse) Verify(vk keys.VerifyingKey) (VerifiedMetadataResponse, bool) {
	if !m.signature.Verify(vk, m.response.marshal()) {
		return VerifiedMetadataResponse{}, false
	}
	return m.response.clone(), true
}

func (MetadataResponse) Brand() envelope.Brand     { return brandMetadataResponse }
func (MetadataResponse) Version() envelope.Version { return v1 }

func (m MetadataResponse) MarshalUnversioned() []byte {
	return (&envelope.Builder{}).
		Bytes(1, m.signature[:]).
		Bytes(2, m.response.marshal()).
		Finish()
}

func (m *MetadataResponse) UnmarshalUnversioned(minor uint16, data []byte) error {
	if err := envelope.CheckMinor(minor, v1.Minor); err != nil {
		return err
	}
	var out MetadataResponse
	seen, err := envelope.ReadFields(data, func(f envelope.Field) error {
		switch f.Num {
		case 1:
			return f.Fixed(out.signature[:])
		case 2:
			raw, err := f.Bytes()
			if err != nil {
				return err
			}
			return out.response.unmarshal(raw)
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

// ComputeFleetStateChecksum digests a set of known nodes. Nodes are ordered
// by staking-provider address and, for repeated addresses, only the first
// in the input is kept, so peers holding the same nodes agree regardless of
// the order they learned them in.
func ComputeFleetStateChecksum(nodes []NodeMetadata) (ids.FleetStateChecksum, error) {
	sorted := append([]NodeMetadata(nil), nodes...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return ids.Compare(sorted[i].payload.StakingProviderAddress, sorted[j].payload.StakingProviderAddress) < 0
	})
	b := &envelope.Builder{}
	for i, n := range sorted {
		if i > 0 && sorted[i-1].payload.StakingProviderAddress == n.payload.StakingProviderAddress {
			continue
		}
		b.Bytes(1, envelope.Marshal(n))
	}
	digest, err := cidutil.Digest(b.Finish())
	if err != nil {
		return ids.FleetStateChecksum{}, err
	}
	return ids.FleetStateChecksum(digest), nil
}
