package cdc

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSequenceGeneratorMonotonic(t *testing.T) {
	var g SequenceGenerator
	require.EqualValues(t, 1, g.Next())
	require.EqualValues(t, 2, g.Next())
	require.EqualValues(t, 3, g.Next())
}

func TestDeriveEventIDDeterministicAndSensitiveToInput(t *testing.T) {
	id1 := DeriveEventID(EventRefUpdate, "repo-1", 1, []byte("payload"))
	id2 := DeriveEventID(EventRefUpdate, "repo-1", 1, []byte("payload"))
	require.Equal(t, id1, id2)

	id3 := DeriveEventID(EventRefUpdate, "repo-1", 2, []byte("payload"))
	require.NotEqual(t, id1, id3)

	id4 := DeriveEventID(EventObjectWrite, "repo-1", 1, []byte("payload"))
	require.NotEqual(t, id1, id4)
}
