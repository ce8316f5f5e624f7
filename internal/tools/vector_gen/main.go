// Command vector_gen prints deterministic envelope vectors for the protocol
// objects whose encoding does not depend on randomness.
package main

import (
	"encoding/hex"
	"fmt"
	"os"

	"xdao.co/precore/cidutil"
	"xdao.co/precore/envelope"
	"xdao.co/precore/ids"
	"xdao.co/precore/keys"
	"xdao.co/precore/message"
	"xdao.co/precore/pre"
)

type vector struct {
	Name  string
	Bytes []byte
	CID   string
}

func mustIdentity(seedByte byte) keys.Identity {
	seed := make([]byte, keys.SeedSize)
	for i := range seed {
		seed[i] = seedByte
	}
	id, err := keys.IdentityFromSeed(seed)
	if err != nil {
		panic(err)
	}
	return id
}

func mustAddress(s string) ids.Address {
	a, err := ids.ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return a
}

func vectors() ([]vector, error) {
	ursula := mustIdentity(0xA1)
	responder := mustIdentity(0xB2)

	node := message.NewNodeMetadata(ursula.Signer, message.NodeMetadataPayload{
		StakingProviderAddress: mustAddress("0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"),
		Domain:                 "lynx",
		TimestampEpoch:         1_700_000_000,
		VerifyingKey:           ursula.VerifyingKey(),
		EncryptingKey:          ursula.PublicKey(),
		CertificateDER:         []byte("conformance certificate"),
		Host:                   "ursula.example.org",
		Port:                   9151,
	})
	checksum, err := message.ComputeFleetStateChecksum([]message.NodeMetadata{node})
	if err != nil {
		return nil, err
	}
	var capsule pre.Capsule
	for i := range capsule {
		capsule[i] = byte(i)
	}

	objects := []struct {
		name string
		obj  envelope.Object
	}{
		{"node_metadata", node},
		{"metadata_request_empty", message.NewMetadataRequest(ids.FleetStateChecksum{}, nil)},
		{"metadata_request", message.NewMetadataRequest(checksum, []message.NodeMetadata{node})},
		{"metadata_response", message.NewMetadataResponse(responder.Signer, message.VerifiedMetadataResponse{
			TimestampEpoch: 1_700_000_100,
			AnnounceNodes:  []message.NodeMetadata{node},
		})},
		{"retrieval_kit", message.NewRetrievalKit(capsule,
			mustAddress("0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359"),
			mustAddress("0xdbF03B407c01E7cD3CBea99509d93f8DDDC8C6FB"))},
	}

	out := make([]vector, 0, len(objects))
	for _, o := range objects {
		c, err := cidutil.ObjectCID(o.obj)
		if err != nil {
			return nil, err
		}
		out = append(out, vector{Name: o.name, Bytes: envelope.Marshal(o.obj), CID: c.String()})
	}
	return out, nil
}

func main() {
	vs, err := vectors()
	if err != nil {
		fmt.Fprintf(os.Stderr, "vector_gen: %v\n", err)
		os.Exit(1)
	}
	for _, v := range vs {
		fmt.Printf("NAME=%s\nCID=%s\n---BEGIN---\n%s\n---END---\n", v.Name, v.CID, hex.EncodeToString(v.Bytes))
	}
}
