// Package dlq holds dead-letter handler implementations for the cdc
// pipeline. This file provides the in-memory one used by tests and as a
// minimal default; cdc/dlq/mysql provides a durable one.
package dlq

import (
	"context"
	"sync"

	"github.com/antgroup/gitvault/cdc"
)

// Memory records every dead-lettered batch for later inspection.
type Memory struct {
	mu      sync.Mutex
	Batches [][]cdc.Event
	Causes  []error
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) HandleDeadLetter(_ context.Context, events []cdc.Event, cause error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Batches = append(m.Batches, events)
	m.Causes = append(m.Causes, cause)
	return nil
}

// Len returns the number of dead-lettered batches recorded so far.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Batches)
}
