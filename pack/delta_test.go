package pack

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/antgroup/gitvault/errs"
)

func TestEncodeDecodeDeltaRoundTrip(t *testing.T) {
	cases := []struct {
		name         string
		base, target []byte
	}{
		{"identical", []byte("the quick brown fox"), []byte("the quick brown fox")},
		{"append", []byte("the quick brown fox"), []byte("the quick brown fox jumps over the lazy dog")},
		{"prepend", []byte("brown fox"), []byte("the quick brown fox")},
		{"no overlap", []byte("abcdefgh"), []byte("12345678")},
		{"empty base", nil, []byte("hello")},
		{"empty target", []byte("hello"), nil},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			delta := EncodeDelta(c.base, c.target)
			got, err := DecodeDelta(c.base, delta)
			require.NoError(t, err)
			require.Equal(t, c.target, got)
		})
	}
}

// TestDecodeDeltaWorkedExample exercises a delta whose final length comes up
// short: a copy instruction whose offset+size runs past the end of base is
// clamped to whatever base bytes exist, so the final result-length check
// catches the short output rather than the copy instruction itself erroring
// out.
func TestDecodeDeltaWorkedExample(t *testing.T) {
	base := []byte("abcdefghij") // 10 bytes
	delta := []byte{
		0x0a, // base size varint: 10
		0x0c, // target size varint: 12
		0x91, 0x02, 0x04, // copy offset=2 size=4 -> "cdef"
		0x05, 'H', 'e', 'l', 'l', 'o', // insert "Hello"
		0x91, 0x08, 0x03, // copy offset=8 size=3, clamped to base[8:10] -> "ij"
	}

	_, err := DecodeDelta(base, delta)
	require.Error(t, err)
	require.True(t, errs.IsDeltaError(err))
	de, ok := err.(*errs.DeltaError)
	require.True(t, ok)
	require.EqualValues(t, 12, de.Expected)
	require.EqualValues(t, 11, de.Actual)
}

func TestDecodeDeltaRejectsBaseSizeMismatch(t *testing.T) {
	base := []byte("short")
	delta := EncodeDelta([]byte("a different, longer base string"), []byte("target"))
	_, err := DecodeDelta(base, delta)
	require.Error(t, err)
	require.True(t, errs.IsDeltaError(err))
}

func TestDecodeDeltaRejectsTruncatedInsert(t *testing.T) {
	base := []byte("abc")
	delta := []byte{
		0x03, // base size 3
		0x05, // target size 5
		0x05, 'h', 'e', // insert claims 5 bytes but only 2 follow
	}
	_, err := DecodeDelta(base, delta)
	require.Error(t, err)
	require.True(t, errs.IsDeltaError(err))
}

func TestDecodeDeltaRejectsZeroOpcode(t *testing.T) {
	base := []byte("abc")
	delta := []byte{0x03, 0x00, 0x00}
	_, err := DecodeDelta(base, delta)
	require.Error(t, err)
	require.True(t, errs.IsDeltaError(err))
}
