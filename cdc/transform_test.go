package cdc

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTransformPreservesColumns(t *testing.T) {
	e := Event{
		ID:        "abc123",
		Type:      EventRefUpdate,
		Source:    "repo-1",
		Timestamp: 1700000000,
		Sequence:  7,
		Version:   1,
		SHA:       "deadbeef",
		Payload:   []byte(`{"ref":"refs/heads/main"}`),
	}

	row := Transformer{}.Transform(e)
	require.Equal(t, "abc123", row.EventID)
	require.Equal(t, EventRefUpdate, row.EventType)
	require.Equal(t, "repo-1", row.Source)
	require.EqualValues(t, 1700000000, row.Timestamp)
	require.EqualValues(t, 7, row.Sequence)
	require.Equal(t, "deadbeef", row.SHA)
	require.Equal(t, `{"ref":"refs/heads/main"}`, row.PayloadJSON)
}

func TestTransformBatchPreservesOrder(t *testing.T) {
	events := []Event{
		{Sequence: 1, SHA: "a"},
		{Sequence: 2, SHA: "b"},
		{Sequence: 3, SHA: "c"},
	}
	rows := Transformer{}.TransformBatch(events)
	require.Len(t, rows, 3)
	require.Equal(t, "a", rows[0].SHA)
	require.Equal(t, "b", rows[1].SHA)
	require.Equal(t, "c", rows[2].SHA)
}
