package encryption

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"lukechampine.com/frand"

	"luminaflow.lol/bech32encoding"
	"luminaflow.lol/errs"
	"luminaflow.lol/hex"
	"luminaflow.lol/p256k"
)

func secFromInt(i byte) by {
	sec := make(by, 32)
	sec[31] = i
	return sec
}

func TestKnownAnswer(t *testing.T) {
	// keys 1 and 2 share the point 2G
	const twoG = "c6047f9441ed7d6d3045406e95c07cd85c778e4b8cef3ca7abac09b95c709ee5"
	const oneG = "79be667ef9dcbbac55a06295ce870b07029bfcdb2dce28d959f2815b16f81798"
	pub33, err := NormalizePubKey(twoG)
	require.NoError(t, err)
	shared, err := SharedSecret(secFromInt(1), pub33)
	require.NoError(t, err)
	require.Equal(t,
		"b1c9938f01121e159887ac2c8d393a22e4476ff8212de13fe1939de2a236f0a7",
		hex.Enc(shared))
	key, err := DeriveKey(shared)
	require.NoError(t, err)
	require.Equal(t,
		"3a87edcae979cfc9471958d1164e967d343d178fc96396b18f29fa741cfd8372",
		hex.Enc(key))
	iv := make(by, 16)
	for i := range iv {
		iv[i] = byte(i)
	}
	payload, err := EncryptWithKey(key, iv, by("hello, nostr"))
	require.NoError(t, err)
	require.Equal(t, "7qQx44FBRwFufFJXufV7/g==?iv=AAECAwQFBgcICQoLDA0ODw==", payload)
	pt, err := Decrypt(secFromInt(2), oneG, payload)
	require.NoError(t, err)
	require.Equal(t, "hello, nostr", st(pt))
}

func TestRoundTrip(t *testing.T) {
	for _i := 0; _i < 20; _i++ {
		a, b := p256k.New(), p256k.New()
		require.NoError(t, a.Generate())
		require.NoError(t, b.Generate())
		bNpub, err := bech32encoding.BinToNpub(b.Pub())
		require.NoError(t, err)
		msg := st(frand.Bytes(frand.Intn(40)))
		msg = strings.ToValidUTF8(msg, "?")
		payload, err := Encrypt(a.Sec(), bNpub, by(msg))
		require.NoError(t, err)
		pt, err := Decrypt(b.Sec(), hex.Enc(a.Pub()), payload)
		require.NoError(t, err)
		require.Equal(t, msg, st(pt))
		// the sender can read their own message back
		pt, err = Decrypt(a.Sec(), "02"+hex.Enc(b.Pub()), payload)
		require.NoError(t, err)
		require.Equal(t, msg, st(pt))
	}
}

func TestFreshIV(t *testing.T) {
	a, b := p256k.New(), p256k.New()
	require.NoError(t, a.Generate())
	require.NoError(t, b.Generate())
	p1, err := Encrypt(a.Sec(), hex.Enc(b.Pub()), by("same"))
	require.NoError(t, err)
	p2, err := Encrypt(a.Sec(), hex.Enc(b.Pub()), by("same"))
	require.NoError(t, err)
	require.NotEqual(t, p1, p2)
}

func TestMalformed(t *testing.T) {
	key := frand.Bytes(32)
	good, err := EncryptWithKey(key, frand.Bytes(16), by("hi"))
	require.NoError(t, err)
	ct, _, _ := strings.Cut(good, "?iv=")
	for _, payload := range []st{
		ct,
		"!!!?iv=AAECAwQFBgcICQoLDA0ODw==",
		ct + "?iv=###",
		ct + "?iv=AAECAw==",
		"?iv=AAECAwQFBgcICQoLDA0ODw==",
		"AAECAw==?iv=AAECAwQFBgcICQoLDA0ODw==",
	} {
		_, err = DecryptWithKey(key, payload)
		require.ErrorIs(t, err, errs.ErrMalformedPayload, payload)
		require.ErrorIs(t, err, errs.EncodingError)
		require.NotErrorIs(t, err, errs.CryptoError)
	}
}

func TestWrongKeyFails(t *testing.T) {
	payload, err := EncryptWithKey(frand.Bytes(32), frand.Bytes(16), by("secret words"))
	require.NoError(t, err)
	// a wrong key almost always breaks the padding, and when it does not the
	// plaintext is garbage that is never returned as the original
	for _i := 0; _i < 10; _i++ {
		pt, err := DecryptWithKey(frand.Bytes(32), payload)
		if err != nil {
			require.ErrorIs(t, err, errs.ErrDecryptionFailed)
			require.Nil(t, pt)
			continue
		}
		require.NotEqual(t, "secret words", st(pt))
	}
}

func TestNormalizePubKey(t *testing.T) {
	_, err := NormalizePubKey("npub1xyz")
	require.ErrorIs(t, err, errs.ErrInvalidKey)
	// valid hex but not an x coordinate on the curve
	_, err = NormalizePubKey(strings.Repeat("ff", 32))
	require.ErrorIs(t, err, errs.ErrInvalidKey)
}
