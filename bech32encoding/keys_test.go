package bech32encoding

import (
	"strings"
	"testing"

	"github.com/btcsuite/btcd/btcutil/bech32"
	"github.com/stretchr/testify/require"
	"lukechampine.com/frand"

	"luminaflow.lol/errs"
	"luminaflow.lol/hex"
)

func TestRoundTrip(t *testing.T) {
	for _i := 0; _i < 100; _i++ {
		raw := frand.Bytes(32)
		for _, hrp := range []st{SecHRP, PubHRP} {
			enc, err := Encode(raw, hrp)
			require.NoError(t, err)
			require.True(t, strings.HasPrefix(enc, hrp+"1"))
			require.GreaterOrEqual(t, len(enc), MinKeyStringLen)
			dec, gotHRP, err := Decode(enc)
			require.NoError(t, err)
			require.Equal(t, hrp, gotHRP)
			require.Equal(t, raw, dec)
		}
	}
}

func TestKnownNpub(t *testing.T) {
	// the example key pair from NIP-19
	npub, err := HexToNpub("3bf0c63fcb93463407af97a5e5ee64fa883d107ef9e558472c4eb9aaaefa459d")
	require.NoError(t, err)
	require.Equal(t, "npub180cvv07tjdrrgpa0j7j7tmnyl2yr6yr7l8j4s3evf6u64th6gkwsyjh6w6", npub)
	nsec, err := HexToNsec("67dea2ed018072d675f5415ecfaed7d2597555e202d85b3d65ea4e58d2d92ffa")
	require.NoError(t, err)
	require.Equal(t, "nsec1vl029mgpspedva04g90vltkh6fvh240zqtv9k0t9af8935ke9laqsnlfe5", nsec)
	h, err := NpubToHex(npub)
	require.NoError(t, err)
	require.Equal(t, "3bf0c63fcb93463407af97a5e5ee64fa883d107ef9e558472c4eb9aaaefa459d", h)
}

func TestDecodeErrors(t *testing.T) {
	raw := frand.Bytes(32)
	npub, err := BinToNpub(raw)
	require.NoError(t, err)

	// corrupt the checksum by changing the last character
	last := npub[len(npub)-1]
	repl := byte('q')
	if last == 'q' {
		repl = 'p'
	}
	_, _, err = Decode(npub[:len(npub)-1] + string(repl))
	require.ErrorIs(t, err, errs.ErrChecksum)

	b5, err := ConvertForBech32(raw)
	require.NoError(t, err)
	note, err := bech32.Encode("note", b5)
	require.NoError(t, err)
	_, _, err = Decode(note)
	require.ErrorIs(t, err, errs.ErrInvalidPrefix)

	short, err := ConvertForBech32(raw[:31])
	require.NoError(t, err)
	shortNpub, err := bech32.Encode(PubHRP, short)
	require.NoError(t, err)
	_, _, err = Decode(shortNpub)
	require.ErrorIs(t, err, errs.ErrInvalidLength)

	_, err = NsecToBin(npub)
	require.ErrorIs(t, err, errs.ErrInvalidPrefix)

	_, _, err = Decode("npub1 not bech32")
	require.ErrorIs(t, err, errs.EncodingError)
}

func TestEncodeErrors(t *testing.T) {
	_, err := Encode(frand.Bytes(31), PubHRP)
	require.ErrorIs(t, err, errs.ErrInvalidLength)
	_, err = Encode(frand.Bytes(32), "nprofile")
	require.ErrorIs(t, err, errs.ErrInvalidPrefix)
	_, err = HexToNpub(strings.ToUpper(hex.Enc(frand.Bytes(32))))
	require.ErrorIs(t, err, errs.ErrInvalidHex)
}
