package message

import (
	"fmt"

	"xdao.co/precore/envelope"
)

// Kind names the message types Decode recognizes.
type Kind int

const (
	KindUnknown Kind = iota
	KindNodeMetadata
	KindMetadataRequest
	KindMetadataResponse
	KindRetrievalKit
	KindMessageKit
	KindTreasureMap
	KindAuthorizedTreasureMap
	KindEncryptedTreasureMap
)

var kindNames = map[Kind]string{
	KindUnknown:               "unknown",
	KindNodeMetadata:          "NodeMetadata",
	KindMetadataRequest:       "MetadataRequest",
	KindMetadataResponse:      "MetadataResponse",
	KindRetrievalKit:          "RetrievalKit",
	KindMessageKit:            "MessageKit",
	KindTreasureMap:           "TreasureMap",
	KindAuthorizedTreasureMap: "AuthorizedTreasureMap",
	KindEncryptedTreasureMap:  "EncryptedTreasureMap",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

func newByBrand(b envelope.Brand) (Kind, envelope.Unmarshaler) {
	switch b {
	case brandNodeMetadata:
		return KindNodeMetadata, &NodeMetadata{}
	case brandMetadataRequest:
		return KindMetadataRequest, &MetadataRequest{}
	case brandMetadataResponse:
		return KindMetadataResponse, &MetadataResponse{}
	case brandRetrievalKit:
		return KindRetrievalKit, &RetrievalKit{}
	case brandMessageKit:
		return KindMessageKit, &MessageKit{}
	case brandTreasureMap:
		return KindTreasureMap, &TreasureMap{}
	case brandAuthorizedTreasureMap:
		return KindAuthorizedTreasureMap, &authorizedTreasureMap{}
	case brandEncryptedTreasureMap:
		return KindEncryptedTreasureMap, &EncryptedTreasureMap{}
	}
	return KindUnknown, nil
}

// Decoded is the result of Decode. Object holds a pointer to the decoded
// value (for example *NodeMetadata) and is nil for KindUnknown.
type Decoded struct {
	Kind   Kind
	Header envelope.Header
	Object envelope.Object
}

// Decode dispatches on the envelope brand. An unrecognized brand is not an
// error: it yields KindUnknown with the parsed header. Version and payload
// failures of a recognized brand are returned as envelope errors.
func Decode(buf []byte) (Decoded, error) {
	h, _, err := envelope.ParseHeader(buf)
	if err != nil {
		return Decoded{}, err
	}
	kind, dst := newByBrand(h.Brand)
	if dst == nil {
		return Decoded{Kind: KindUnknown, Header: h}, nil
	}
	if err := envelope.Unmarshal(buf, dst); err != nil {
		return Decoded{Kind: kind, Header: h}, err
	}
	return Decoded{Kind: kind, Header: h, Object: dst}, nil
}

// Unmarshal decodes buf into one of this package's message types, for
// example:
//
//	var req message.MetadataRequest
//	err := message.Unmarshal(buf, &req)
func Unmarshal(buf []byte, dst envelope.Unmarshaler) error {
	return envelope.Unmarshal(buf, dst)
}

// Marshal returns the envelope encoding of any message.
func Marshal(o envelope.Object) []byte { return envelope.Marshal(o) }
