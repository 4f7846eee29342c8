package dlq

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/antgroup/gitvault/cdc"
)

func TestMemoryRecordsBatchesAndCauses(t *testing.T) {
	m := NewMemory()
	require.Equal(t, 0, m.Len())

	cause := errors.New("sink down")
	events := []cdc.Event{{Sequence: 1}, {Sequence: 2}}

	require.NoError(t, m.HandleDeadLetter(context.Background(), events, cause))
	require.Equal(t, 1, m.Len())
	require.Len(t, m.Batches[0], 2)
	require.Equal(t, cause, m.Causes[0])
}
