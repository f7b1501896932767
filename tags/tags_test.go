package tags

import (
	"testing"

	"github.com/stretchr/testify/require"

	"luminaflow.lol/tag"
)

func TestTags(t *testing.T) {
	tt := New(tag.New("p", "alice"), tag.New("e", "x"), tag.New("p", "bob", "wss://r"))
	tt.AppendTags(tag.New("p"))
	require.Equal(t, 4, tt.Len())
	require.Equal(t, []st{"alice", "bob"}, tt.Values("p"))
	require.Len(t, tt.GetAll("p"), 3)
	require.True(t, tt.ContainsValue("e", "x"))
	require.False(t, tt.ContainsValue("e", "y"))
	require.Equal(t, `[["p","alice"],["e","x"],["p","bob","wss://r"],["p"]]`,
		st(tt.Marshal(nil)))
	back := FromStringSlices(tt.ToStringSlices())
	require.Equal(t, st(tt.Marshal(nil)), st(back.Marshal(nil)))
	var empty *T
	require.Equal(t, "[]", st(empty.Marshal(nil)))
	require.Nil(t, empty.N(0))
}
