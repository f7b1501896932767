package accounts

import (
	"testing"

	"github.com/stretchr/testify/require"

	"luminaflow.lol/bech32encoding"
	"luminaflow.lol/errs"
	"luminaflow.lol/keys"
	"luminaflow.lol/lol"
)

func newAccount(t *testing.T, nick string) Record {
	sec, err := keys.GenerateSecretKeyHex()
	require.NoError(t, err)
	return Record{SecretKeyHex: sec, Nickname: nick}
}

func npubOf(t *testing.T, rec Record) string {
	pkh, err := keys.PublicKeyHex(rec.SecretKeyHex)
	require.NoError(t, err)
	npub, err := bech32encoding.HexToNpub(pkh)
	require.NoError(t, err)
	return npub
}

func TestSaveListDelete(t *testing.T) {
	a, err := Open("", "correct horse", lol.Off)
	require.NoError(t, err)
	defer a.Close()

	recs, err := a.List()
	require.NoError(t, err)
	require.Empty(t, recs)

	alice, bob := newAccount(t, "alice"), newAccount(t, "bob")
	require.NoError(t, a.Save(alice))
	require.NoError(t, a.Save(bob))
	// saving the same key again replaces the record
	alice.Nickname = "alice2"
	require.NoError(t, a.Save(alice))

	recs, err = a.List()
	require.NoError(t, err)
	require.Len(t, recs, 2)
	byNick := map[string]Record{}
	for _, r := range recs {
		byNick[r.Nickname] = r
	}
	require.Contains(t, byNick, "alice2")
	require.Contains(t, byNick, "bob")
	require.Equal(t, npubOf(t, alice), byNick["alice2"].PublicKeyEncoded)

	got, err := a.Get(npubOf(t, bob))
	require.NoError(t, err)
	require.Equal(t, bob.SecretKeyHex, got.SecretKeyHex)

	require.NoError(t, a.Delete(npubOf(t, bob)))
	got, err = a.Get(npubOf(t, bob))
	require.NoError(t, err)
	require.Nil(t, got)
	require.NoError(t, a.Delete(npubOf(t, bob)))
	recs, err = a.List()
	require.NoError(t, err)
	require.Len(t, recs, 1)
}

func TestSaveChecksPublicKey(t *testing.T) {
	a, err := Open("", "k", lol.Off)
	require.NoError(t, err)
	defer a.Close()
	alice, bob := newAccount(t, "alice"), newAccount(t, "bob")
	alice.PublicKeyEncoded = npubOf(t, bob)
	require.ErrorIs(t, a.Save(alice), errs.ErrInvalidKey)
	require.Error(t, a.Save(Record{SecretKeyHex: "nothex"}))
	_, err = a.Get("nobody")
	require.ErrorIs(t, err, errs.ErrInvalidKey)
}

func TestReopen(t *testing.T) {
	dir := t.TempDir()
	a, err := Open(dir, "passphrase", lol.Off)
	require.NoError(t, err)
	alice := newAccount(t, "alice")
	require.NoError(t, a.Save(alice))
	require.NoError(t, a.Close())

	_, err = Open(dir, "wrong", lol.Off)
	require.ErrorIs(t, err, errs.ErrInvalidKey)

	a, err = Open(dir, "passphrase", lol.Off)
	require.NoError(t, err)
	defer a.Close()
	recs, err := a.List()
	require.NoError(t, err)
	require.Len(t, recs, 1)
	require.Equal(t, alice.SecretKeyHex, recs[0].SecretKeyHex)
}

func TestOpenWithoutKey(t *testing.T) {
	_, err := Open("", "", lol.Off)
	require.ErrorIs(t, err, errs.ErrInvalidKey)
}
