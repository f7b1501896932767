// Package bech32encoding is the NIP-19 bech32 encoding of nostr keys, nsec
// for secret keys and npub for x-only public keys.
package bech32encoding

import (
	"github.com/btcsuite/btcd/btcutil/bech32"

	"luminaflow.lol/errs"
	"luminaflow.lol/hex"
)

const (
	// MinKeyStringLen is 56 because Bech32 needs 52 characters plus 4 for the
	// HRP, any string shorter than this cannot be a nostr key.
	MinKeyStringLen = 56
	HexKeyLen       = 64
	KeyLen          = 32
)

const (
	SecHRP = "nsec"
	PubHRP = "npub"
)

// ConvertForBech32 performs the bit expansion required for encoding into
// Bech32.
func ConvertForBech32(b8 by) (b5 by, err er) { return bech32.ConvertBits(b8, 8, 5, true) }

// ConvertFromBech32 collapses together the bit expanded 5 bit numbers
// encoded in bech32.
func ConvertFromBech32(b5 by) (b8 by, err er) { return bech32.ConvertBits(b5, 5, 8, false) }

func checkHRP(hrp st) (err er) {
	if hrp != SecHRP && hrp != PubHRP {
		err = errs.New(errs.InvalidPrefix, "human readable part %q is neither %s nor %s",
			hrp, SecHRP, PubHRP)
	}
	return
}

// Encode renders a 32 byte key as bech32 with the nsec or npub prefix.
func Encode(raw by, hrp st) (encoded st, err er) {
	if len(raw) != KeyLen {
		err = errs.New(errs.InvalidLength, "key must be %d bytes, got %d", KeyLen,
			len(raw))
		return
	}
	if err = checkHRP(hrp); err != nil {
		return
	}
	var b5 by
	if b5, err = ConvertForBech32(raw); chk.E(err) {
		return
	}
	if encoded, err = bech32.Encode(hrp, b5); chk.E(err) {
		err = errs.Encode(err, "bech32 encoding")
	}
	return
}

// Decode returns the 32 byte key and the prefix of a bech32 nsec or npub.
func Decode(encoded st) (raw by, hrp st, err er) {
	var b5 by
	if hrp, b5, err = bech32.Decode(encoded); err != nil {
		switch e := err.(type) {
		case bech32.ErrInvalidChecksum:
			err = errs.Wrap(errs.ChecksumError, e, "decoding %q", encoded)
		case bech32.ErrInvalidLength:
			err = errs.Wrap(errs.InvalidLength, e, "decoding %q", encoded)
		default:
			err = errs.Encode(e, "decoding %q", encoded)
		}
		log.D.Ln(err)
		return
	}
	if err = checkHRP(hrp); err != nil {
		return
	}
	if raw, err = ConvertFromBech32(b5); err != nil {
		err = errs.Wrap(errs.InvalidLength, err, "%s payload is not whole bytes", hrp)
		return
	}
	if len(raw) != KeyLen {
		err = errs.New(errs.InvalidLength, "%s payload must be %d bytes, got %d", hrp,
			KeyLen, len(raw))
		raw = nil
	}
	return
}

func decodeAs(encoded, want st) (raw by, err er) {
	var hrp st
	if raw, hrp, err = Decode(encoded); err != nil {
		return
	}
	if hrp != want {
		err = errs.New(errs.InvalidPrefix, "wrong human readable part, got %q want %q",
			hrp, want)
		raw = nil
	}
	return
}

// BinToNsec encodes a raw secret key as an nsec.
func BinToNsec(sk by) (st, er) { return Encode(sk, SecHRP) }

// BinToNpub encodes a raw x-only public key as an npub.
func BinToNpub(pk by) (st, er) { return Encode(pk, PubHRP) }

// NsecToBin decodes an nsec to the raw secret key.
func NsecToBin(nsec st) (sk by, err er) { return decodeAs(nsec, SecHRP) }

// NpubToBin decodes an npub to the raw x-only public key.
func NpubToBin(npub st) (pk by, err er) { return decodeAs(npub, PubHRP) }

// HexToNpub encodes a hex public key as an npub.
func HexToNpub(pkh st) (npub st, err er) {
	var b by
	if b, err = decodeHex(pkh); err != nil {
		return
	}
	return BinToNpub(b)
}

// HexToNsec encodes a hex secret key as an nsec.
func HexToNsec(skh st) (nsec st, err er) {
	var b by
	if b, err = decodeHex(skh); err != nil {
		return
	}
	return BinToNsec(b)
}

// NpubToHex decodes an npub to hex.
func NpubToHex(npub st) (pkh st, err er) {
	var b by
	if b, err = NpubToBin(npub); err != nil {
		return
	}
	return hex.Enc(b), nil
}

// NsecToHex decodes an nsec to hex.
func NsecToHex(nsec st) (skh st, err er) {
	var b by
	if b, err = NsecToBin(nsec); err != nil {
		return
	}
	return hex.Enc(b), nil
}

func decodeHex(h st) (b by, err er) {
	if len(h)%2 != 0 || !hex.IsLower(h) {
		err = errs.New(errs.InvalidHex, "%q is not lower case hex", h)
		return
	}
	return hex.Dec(h)
}
