// Package p256k implements signer.I with BIP-340 schnorr signatures and ECDH
// on secp256k1, using github.com/btcsuite/btcd/btcec/v2.
package p256k

import (
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"lukechampine.com/frand"

	"luminaflow.lol/errs"
	"luminaflow.lol/sha256"
	"luminaflow.lol/signer"
)

const (
	SecKeyLen = btcec.PrivKeyBytesLen
	PubKeyLen = schnorr.PubKeyBytesLen
	SigLen    = schnorr.SignatureSize
)

// Signer is a secp256k1 key pair. Either half may be absent: a Signer made
// with InitPub can only verify.
type Signer struct {
	sec      *btcec.PrivateKey
	pub      *btcec.PublicKey
	skb, pkb by
}

var _ signer.I = &Signer{}

// New returns an empty Signer.
func New() *Signer { return &Signer{} }

// Generate creates a new key pair.
func (s *Signer) Generate() (err er) {
	if s.sec, err = btcec.NewPrivateKey(); chk.E(err) {
		return
	}
	s.skb = s.sec.Serialize()
	s.pub = s.sec.PubKey()
	s.pkb = schnorr.SerializePubKey(s.pub)
	return
}

// InitSec initialises a Signer using raw secret key bytes.
func (s *Signer) InitSec(sec by) (err er) {
	if err = checkSec(sec); err != nil {
		return
	}
	s.sec, s.pub = btcec.PrivKeyFromBytes(sec)
	s.skb = s.sec.Serialize()
	s.pkb = schnorr.SerializePubKey(s.pub)
	return
}

// InitPub initializes a verify-only Signer from an x-only public key.
func (s *Signer) InitPub(pub by) (err er) {
	if s.pub, err = schnorr.ParsePubKey(pub); err != nil {
		err = errs.Wrap(errs.InvalidKey, err, "parsing x-only public key")
		return
	}
	s.pkb = schnorr.SerializePubKey(s.pub)
	return
}

// Sec returns the raw secret key bytes.
func (s *Signer) Sec() (b by) { return s.skb }

// Pub returns the raw BIP-340 schnorr public key bytes.
func (s *Signer) Pub() (b by) { return s.pkb }

// ECPub returns the public key as a compressed point with the even prefix.
func (s *Signer) ECPub() (b by) {
	if s.pkb == nil {
		return
	}
	return append(by{0x02}, s.pkb...)
}

// Sign a 32 byte message hash. Requires an initialised secret key.
func (s *Signer) Sign(msg by) (sig by, err er) {
	if s.sec == nil {
		err = errs.New(errs.InvalidKey, "signer has no secret key")
		return
	}
	var aux [32]byte
	frand.Read(aux[:])
	var si *schnorr.Signature
	if si, err = schnorr.Sign(s.sec, msg, schnorr.CustomNonce(aux)); chk.E(err) {
		err = errs.Wrap(errs.InvalidKey, err, "signing")
		return
	}
	sig = si.Serialize()
	return
}

// Verify a message signature, only requires the public key is initialised.
func (s *Signer) Verify(msg, sig by) (valid bo, err er) {
	if s.pub == nil {
		err = errs.New(errs.InvalidKey, "signer has no public key")
		return
	}
	var si *schnorr.Signature
	if si, err = schnorr.ParseSignature(sig); err != nil {
		err = errs.Wrap(errs.BadSignature, err, "parsing %d byte signature", len(sig))
		return
	}
	valid = si.Verify(msg, s.pub)
	return
}

// Zero wipes the secret key.
func (s *Signer) Zero() {
	if s.sec != nil {
		s.sec.Zero()
	}
	for i := range s.skb {
		s.skb[i] = 0
	}
	s.sec, s.skb = nil, nil
}

// ECDH derives the hashed shared secret with a compressed public key.
func (s *Signer) ECDH(pub by) (secret by, err er) {
	if s.sec == nil {
		err = errs.New(errs.InvalidKey, "signer has no secret key")
		return
	}
	return ECDH(s.skb, pub)
}

func checkSec(sec by) (err er) {
	if len(sec) != SecKeyLen {
		return errs.New(errs.InvalidLength, "secret key must be %d bytes, got %d",
			SecKeyLen, len(sec))
	}
	var k btcec.ModNScalar
	if overflow := k.SetByteSlice(sec); overflow || k.IsZero() {
		return errs.New(errs.InvalidKey, "secret key is not a valid scalar")
	}
	return
}

// DerivePublicKey returns the 32 byte x-only public key of a secret key.
func DerivePublicKey(sec by) (pub by, err er) {
	if err = checkSec(sec); err != nil {
		return
	}
	_, pk := btcec.PrivKeyFromBytes(sec)
	pub = schnorr.SerializePubKey(pk)
	return
}

// Verify checks a BIP-340 signature of a 32 byte id against an x-only public
// key. Malformed input is logged and reported as invalid.
func Verify(pub, id, sig by) (valid bo) {
	if len(pub) != PubKeyLen || len(sig) != SigLen {
		log.D.F("cannot verify: pubkey %d bytes, sig %d bytes", len(pub), len(sig))
		return
	}
	var err er
	var pk *btcec.PublicKey
	if pk, err = btcec.ParsePubKey(append(by{0x02}, pub...)); chk.D(err) {
		return
	}
	var si *schnorr.Signature
	if si, err = schnorr.ParseSignature(sig); chk.D(err) {
		return
	}
	return si.Verify(id, pk)
}

// ECDH multiplies the public point by the secret scalar and returns the
// SHA-256 of the compressed result, which is what libsecp256k1 produces
// with its default hash function.
//
// Both keys are taken as their even-y lift, as x-only keys are: a secret whose
// public point has odd y is negated first, so both sides of an exchange reach
// the same point whatever the parity of their keys.
func ECDH(sec, pub33 by) (secret by, err er) {
	if err = checkSec(sec); err != nil {
		return
	}
	var pk *btcec.PublicKey
	if pk, err = btcec.ParsePubKey(pub33); err != nil {
		err = errs.Wrap(errs.InvalidKey, err, "parsing public key")
		return
	}
	var k btcec.ModNScalar
	k.SetByteSlice(sec)
	if _, own := btcec.PrivKeyFromBytes(sec); own.SerializeCompressed()[0] != 0x02 {
		k.Negate()
	}
	var point, result btcec.JacobianPoint
	pk.AsJacobian(&point)
	btcec.ScalarMultNonConst(&k, &point, &result)
	result.ToAffine()
	shared := btcec.NewPublicKey(&result.X, &result.Y)
	k.Zero()
	secret = sha256.Hash(shared.SerializeCompressed())
	return
}
