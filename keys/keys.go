// Package keys is helpers for generating and converting nostr keys between
// their raw, hex and bech32 forms.
package keys

import (
	"strings"

	"luminaflow.lol/bech32encoding"
	"luminaflow.lol/errs"
	"luminaflow.lol/hex"
	"luminaflow.lol/p256k"
)

// GenerateSecretKey returns a new random secret key.
func GenerateSecretKey() (sec by, err er) {
	s := p256k.New()
	if err = s.Generate(); chk.E(err) {
		return
	}
	sec = s.Sec()
	return
}

// GenerateSecretKeyHex returns a new random secret key as hex.
func GenerateSecretKeyHex() (sks st, err er) {
	var sec by
	if sec, err = GenerateSecretKey(); err != nil {
		return
	}
	return hex.Enc(sec), nil
}

// PublicKeyHex derives the hex x-only public key of a hex secret key.
func PublicKeyHex(secHex st) (pkh st, err er) {
	var sec, pub by
	if sec, err = HexToBin32(secHex); err != nil {
		return
	}
	if pub, err = p256k.DerivePublicKey(sec); err != nil {
		return
	}
	return hex.Enc(pub), nil
}

// HexToBin decodes lower case hex.
func HexToBin(s st) (b by, err er) {
	if len(s)%2 != 0 {
		err = errs.New(errs.InvalidHex, "odd length hex string (%d)", len(s))
		return
	}
	if !hex.IsLower(s) {
		err = errs.New(errs.InvalidHex, "%q is not lower case hex", s)
		return
	}
	if b, err = hex.Dec(s); err != nil {
		err = errs.Wrap(errs.InvalidHex, err, "decoding hex")
	}
	return
}

// HexToBin32 decodes lower case hex that must be 32 bytes long.
func HexToBin32(s st) (b by, err er) {
	if b, err = HexToBin(s); err != nil {
		return
	}
	if len(b) != 32 {
		err = errs.New(errs.InvalidLength, "expected 32 bytes, got %d", len(b))
		b = nil
	}
	return
}

// BinToHex encodes as lower case hex.
func BinToHex(b by) st { return hex.Enc(b) }

// IsValid32ByteHex reports whether pk is 64 characters of lower case hex.
func IsValid32ByteHex(pk st) bo {
	_, err := HexToBin32(pk)
	return err == nil
}

// ParsePublic accepts a public key as an npub, 64 hex characters of x-only
// key, or 66 hex characters with the 02 prefix of a compressed even key, and
// returns the 32 byte x-only key.
func ParsePublic(s st) (pub by, err er) {
	s = strings.TrimSpace(s)
	switch {
	case strings.HasPrefix(s, bech32encoding.PubHRP+"1"):
		return bech32encoding.NpubToBin(s)
	case len(s) == 64:
		return HexToBin32(s)
	case len(s) == 66 && strings.HasPrefix(s, "02"):
		return HexToBin32(s[2:])
	}
	err = errs.New(errs.InvalidKey, "%q is not an npub or hex public key", s)
	return
}

// ParseSecret accepts a secret key as an nsec or 64 hex characters.
func ParseSecret(s st) (sec by, err er) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, bech32encoding.SecHRP+"1") {
		return bech32encoding.NsecToBin(s)
	}
	return HexToBin32(s)
}
