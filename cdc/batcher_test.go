package cdc

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBatcherFlushesOnCount(t *testing.T) {
	var mu sync.Mutex
	var flushes [][]Event

	b := NewBatcher(3, time.Hour, func(batch []Event) {
		mu.Lock()
		defer mu.Unlock()
		flushes = append(flushes, batch)
	})

	for i := 0; i < 3; i++ {
		b.Add(Event{Sequence: uint64(i + 1)})
	}

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, flushes, 1)
	require.Len(t, flushes[0], 3)
}

func TestBatcherFlushesOnInterval(t *testing.T) {
	done := make(chan []Event, 1)
	b := NewBatcher(100, 10*time.Millisecond, func(batch []Event) {
		done <- batch
	})

	b.Add(Event{Sequence: 1})

	select {
	case batch := <-done:
		require.Len(t, batch, 1)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for interval flush")
	}
}

func TestBatcherManualFlush(t *testing.T) {
	var flushed []Event
	b := NewBatcher(100, time.Hour, func(batch []Event) {
		flushed = batch
	})

	b.Add(Event{Sequence: 1})
	b.Add(Event{Sequence: 2})
	b.Flush()

	require.Len(t, flushed, 2)

	// Flushing an empty batcher is a no-op.
	flushed = nil
	b.Flush()
	require.Nil(t, flushed)
}
