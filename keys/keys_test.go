package keys

import (
	"testing"

	"github.com/stretchr/testify/require"

	"luminaflow.lol/bech32encoding"
	"luminaflow.lol/errs"
)

func TestGenerateAndDerive(t *testing.T) {
	skh, err := GenerateSecretKeyHex()
	require.NoError(t, err)
	require.True(t, IsValid32ByteHex(skh))
	pkh, err := PublicKeyHex(skh)
	require.NoError(t, err)
	require.True(t, IsValid32ByteHex(pkh))
	pkh2, err := PublicKeyHex(skh)
	require.NoError(t, err)
	require.Equal(t, pkh, pkh2)
}

func TestHexErrors(t *testing.T) {
	_, err := HexToBin("abc")
	require.ErrorIs(t, err, errs.ErrInvalidHex)
	_, err = HexToBin("zz")
	require.ErrorIs(t, err, errs.ErrInvalidHex)
	_, err = HexToBin("AB")
	require.ErrorIs(t, err, errs.ErrInvalidHex)
	_, err = HexToBin32("abcd")
	require.ErrorIs(t, err, errs.ErrInvalidLength)
	b, err := HexToBin("00ff")
	require.NoError(t, err)
	require.Equal(t, "00ff", BinToHex(b))
}

func TestParsePublic(t *testing.T) {
	const pkh = "3bf0c63fcb93463407af97a5e5ee64fa883d107ef9e558472c4eb9aaaefa459d"
	want, err := HexToBin32(pkh)
	require.NoError(t, err)
	npub, err := bech32encoding.HexToNpub(pkh)
	require.NoError(t, err)
	for _, in := range []st{pkh, "02" + pkh, npub, " " + npub + "\n"} {
		got, err := ParsePublic(in)
		require.NoError(t, err, in)
		require.Equal(t, want, got)
	}
	_, err = ParsePublic("03" + pkh)
	require.ErrorIs(t, err, errs.ErrInvalidKey)
	_, err = ParsePublic("alice")
	require.ErrorIs(t, err, errs.ErrInvalidKey)
}
