// Package message defines the protocol objects exchanged between nodes,
// publishers and requesters, and their envelope encodings.
//
// Every object implements envelope.Object with a fixed brand and version.
// Objects are immutable values: constructors clone their inputs, and
// verification and decryption never modify the receiver.
package message

import (
	"xdao.co/precore/envelope"
)

var (
	brandNodeMetadata          = envelope.NewBrand("NdMd")
	brandMetadataRequest       = envelope.NewBrand("MdRq")
	brandMetadataResponse      = envelope.NewBrand("MdRs")
	brandRetrievalKit          = envelope.NewBrand("RKit")
	brandMessageKit            = envelope.NewBrand("MKit")
	brandTreasureMap           = envelope.NewBrand("TMap")
	brandAuthorizedTreasureMap = envelope.NewBrand("AMap")
	brandEncryptedTreasureMap  = envelope.NewBrand("EMap")
)

// All objects are at 1.0; readers accept minor 0 only.
var v1 = envelope.Version{Major: 1, Minor: 0}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append([]byte{}, b...)
}
