// Package keys holds the key material used by protocol objects.
//
// Signing uses ed25519 over a sha256 digest of the message. Encrypting keys
// are X25519 keys usable with HPKE. Both kinds can be derived from a single
// 32-byte seed, and KeyStore keeps such seeds on the local filesystem.
//
// The filesystem-backed KeyStore is a local convenience and not part of any
// wire format.
package keys
