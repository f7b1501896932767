package envelopes

import (
	"testing"

	"github.com/stretchr/testify/require"

	"luminaflow.lol/errs"
)

func TestIdentify(t *testing.T) {
	label, rem, err := Identify(by(` ["EOSE", "sub-1"]`))
	require.NoError(t, err)
	require.Equal(t, "EOSE", label)
	require.Equal(t, ` "sub-1"]`, st(rem))
	els, err := Elements(rem)
	require.NoError(t, err)
	require.Len(t, els, 1)
	id, err := String(els[0])
	require.NoError(t, err)
	require.Equal(t, "sub-1", id)
	require.Error(t, Count("EOSE", els, 2))

	for _, bad := range []st{``, `{}`, `[`, `["EOSE`, `["EOSE"]`, `[1,2]`} {
		_, _, err = Identify(by(bad))
		require.ErrorIs(t, err, errs.ErrBadFrame, bad)
	}
}

func TestMarshal(t *testing.T) {
	b := Marshal(nil, "CLOSE", func(dst by) by { return append(dst, `"x"`...) })
	require.Equal(t, `["CLOSE","x"]`, st(b))
}
