package hash

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestObjectSHA1MatchesGit(t *testing.T) {
	// git hash-object --stdin </dev/null for an empty blob is
	// e69de29bb2d1d6434b8b29ae775ad8c2e48c5391
	id := Object(SHA1, "blob", nil)
	require.Equal(t, "e69de29bb2d1d6434b8b29ae775ad8c2e48c5391", id.String())
}

func TestObjectSHA256(t *testing.T) {
	id := Object(SHA256, "blob", nil)
	require.Len(t, id, 32)
	require.Equal(t, SHA256, id.AlgoOf())
}

func TestFromHexRejectsBadWidth(t *testing.T) {
	_, err := FromHex("abcd")
	require.Error(t, err)
}

func TestZeroID(t *testing.T) {
	require.True(t, Zero20.IsZero())
	require.False(t, ID{1}.IsZero())
}

func TestSort(t *testing.T) {
	a, _ := FromHex("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	b, _ := FromHex("bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
	ids := []ID{b, a}
	Sort(ids)
	require.True(t, ids[0].Equal(a))
	require.True(t, ids[1].Equal(b))
}
