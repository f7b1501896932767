// Package encryption is the direct message cipher: an ECDH shared secret
// between the two keys, expanded by HKDF into an AES-256-CBC key, with the
// payload carried as base64(ciphertext)?iv=base64(iv).
package encryption

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/btcsuite/btcd/btcec/v2"
	"golang.org/x/crypto/hkdf"
	"lukechampine.com/frand"

	"luminaflow.lol/errs"
	"luminaflow.lol/keys"
	"luminaflow.lol/p256k"
	"luminaflow.lol/sha256"
)

const (
	// Info is the HKDF info string binding derived keys to this use.
	Info    = "nostr-encryption"
	KeyLen  = 32
	IVLen   = aes.BlockSize
	ivParam = "?iv="
)

// NormalizePubKey accepts an npub, a 64 character hex x-only key or a 66
// character hex key with the 02 prefix and returns the 33 byte compressed
// even key.
func NormalizePubKey(s st) (pub33 by, err er) {
	var x by
	if x, err = keys.ParsePublic(s); err != nil {
		err = errs.Wrap(errs.InvalidKey, err, "recipient key")
		return
	}
	pub33 = append(by{0x02}, x...)
	if _, err = btcec.ParsePubKey(pub33); err != nil {
		err = errs.Wrap(errs.InvalidKey, err, "recipient key is not on the curve")
		pub33 = nil
	}
	return
}

// SharedSecret is the SHA-256 of the compressed ECDH point of the secret key
// and the compressed public key.
func SharedSecret(sec, pub33 by) (shared by, err er) { return p256k.ECDH(sec, pub33) }

// DeriveKey expands a shared secret into the symmetric message key with
// HKDF-SHA256, no salt and the Info string.
func DeriveKey(shared by) (key by, err er) {
	key = make(by, KeyLen)
	if _, err = io.ReadFull(hkdf.New(sha256.New, shared, nil, by(Info)), key); chk.E(err) {
		return
	}
	return
}

// MessageKey derives the symmetric key shared by a secret key and the other
// party's public key in any form NormalizePubKey accepts.
func MessageKey(sec by, other st) (key by, err er) {
	var pub33, shared by
	if pub33, err = NormalizePubKey(other); err != nil {
		return
	}
	if shared, err = SharedSecret(sec, pub33); err != nil {
		return
	}
	return DeriveKey(shared)
}

// Encrypt seals plaintext to the recipient.
func Encrypt(sec by, recipient st, plaintext by) (payload st, err er) {
	var key by
	if key, err = MessageKey(sec, recipient); err != nil {
		return
	}
	return EncryptWithKey(key, frand.Bytes(IVLen), plaintext)
}

// Decrypt opens a payload from the sender.
func Decrypt(sec by, sender st, payload st) (plaintext by, err er) {
	var key by
	if key, err = MessageKey(sec, sender); err != nil {
		return
	}
	return DecryptWithKey(key, payload)
}

// EncryptWithKey pads and encrypts plaintext with the given key and iv.
func EncryptWithKey(key, iv, plaintext by) (payload st, err er) {
	if len(iv) != IVLen {
		err = errs.New(errs.MalformedPayload, "iv must be %d bytes", IVLen)
		return
	}
	var block cipher.Block
	if block, err = aes.NewCipher(key); err != nil {
		err = errs.Wrap(errs.InvalidKey, err, "message key")
		return
	}
	padded := pad(plaintext)
	ct := make(by, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ct, padded)
	payload = base64.StdEncoding.EncodeToString(ct) + ivParam +
		base64.StdEncoding.EncodeToString(iv)
	return
}

// DecryptWithKey parses and decrypts a payload with the given key.
func DecryptWithKey(key by, payload st) (plaintext by, err er) {
	ctB64, ivB64, found := strings.Cut(payload, ivParam)
	if !found {
		err = errs.New(errs.MalformedPayload, "payload has no %s", ivParam)
		return
	}
	var ct, iv by
	if ct, err = base64.StdEncoding.DecodeString(ctB64); err != nil {
		err = errs.Wrap(errs.MalformedPayload, err, "ciphertext is not base64")
		return
	}
	if iv, err = base64.StdEncoding.DecodeString(ivB64); err != nil {
		err = errs.Wrap(errs.MalformedPayload, err, "iv is not base64")
		return
	}
	if len(iv) != IVLen {
		err = errs.New(errs.MalformedPayload, "iv must be %d bytes, got %d", IVLen,
			len(iv))
		return
	}
	if len(ct) == 0 || len(ct)%aes.BlockSize != 0 {
		err = errs.New(errs.MalformedPayload,
			"ciphertext length %d is not a positive multiple of %d", len(ct),
			aes.BlockSize)
		return
	}
	var block cipher.Block
	if block, err = aes.NewCipher(key); err != nil {
		err = errs.Wrap(errs.InvalidKey, err, "message key")
		return
	}
	padded := make(by, len(ct))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(padded, ct)
	if plaintext, err = unpad(padded); err != nil {
		return
	}
	if !utf8.Valid(plaintext) {
		err = errs.New(errs.DecryptionFailed, "plaintext is not valid UTF-8")
		plaintext = nil
	}
	return
}

// pad applies PKCS#7 padding to a multiple of the AES block size.
func pad(b by) (padded by) {
	n := aes.BlockSize - len(b)%aes.BlockSize
	padded = make(by, len(b), len(b)+n)
	copy(padded, b)
	for _i := 0; _i < n; _i++ {
		padded = append(padded, byte(n))
	}
	return
}

func unpad(b by) (unpadded by, err er) {
	n := no(b[len(b)-1])
	if n == 0 || n > aes.BlockSize || n > len(b) {
		err = errs.New(errs.DecryptionFailed, "invalid padding")
		return
	}
	for _, c := range b[len(b)-n:] {
		if no(c) != n {
			err = errs.New(errs.DecryptionFailed, "invalid padding")
			return
		}
	}
	unpadded = b[:len(b)-n]
	return
}
