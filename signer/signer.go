// Package signer defines the interface of a nostr key pair that can sign,
// verify and derive shared secrets.
package signer

type I interface {
	// Generate creates a fresh new key pair from system entropy.
	Generate() (err er)
	// InitSec initialises the secret (signing) key from the raw bytes, and also
	// derives the public key because it can.
	InitSec(sec by) (err er)
	// InitPub initializes the public (verification) key from raw bytes.
	InitPub(pub by) (err er)
	// Sec returns the secret key bytes.
	Sec() by
	// Pub returns the public key bytes (x-only schnorr pubkey).
	Pub() by
	// ECPub returns the 33 byte compressed public key with the even prefix.
	ECPub() by
	// Sign creates a signature using the stored secret key.
	Sign(msg by) (sig by, err er)
	// Verify checks a message hash and signature match the stored public key.
	Verify(msg, sig by) (valid bo, err er)
	// Zero wipes the secret key.
	Zero()
	// ECDH returns the hashed shared secret of the secret key and the provided
	// compressed public key.
	ECDH(pub by) (secret by, err er)
}
