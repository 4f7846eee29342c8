// Package cdc implements the change-data-capture pipeline: capture produces
// events, the batcher groups them by count or time, the transformer shapes
// them into rows, and a sink (with retry and dead-letter handling) persists
// them. Small stages wired together by a batcher callback and a
// WaitGroup-tracked goroutine per batch, not a framework.
package cdc

import (
	"encoding/hex"
	"encoding/json"
	"sync/atomic"

	"github.com/zeebo/blake3"
)

// EventType distinguishes the git operations CDC observes.
type EventType string

const (
	EventRefUpdate   EventType = "ref_update"
	EventPackUpload  EventType = "pack_upload"
	EventObjectWrite EventType = "object_write"
)

// Event is a single observed operation, carrying a session-monotonic
// sequence number assigned at capture time.
type Event struct {
	ID        string
	Type      EventType
	Source    string
	Timestamp int64 // unix seconds
	Sequence  uint64
	Version   int
	SHA       string
	Payload   json.RawMessage
}

// SequenceGenerator hands out monotonically increasing sequence numbers for
// one capture session.
type SequenceGenerator struct {
	next uint64
}

// Next returns the next sequence number, starting at 1.
func (g *SequenceGenerator) Next() uint64 {
	return atomic.AddUint64(&g.next, 1)
}

// DeriveEventID computes a fast, non-cryptographic content fingerprint for
// an event's dedup key. This is deliberately blake3, not the git object
// hash algorithm (SHA-1/SHA-256): event identity and object identity are
// unrelated concerns.
func DeriveEventID(typ EventType, source string, sequence uint64, payload []byte) string {
	h := blake3.New()
	h.Write([]byte(typ))
	h.Write([]byte(source))
	var seqBuf [8]byte
	for i := 0; i < 8; i++ {
		seqBuf[i] = byte(sequence >> (8 * (7 - i)))
	}
	h.Write(seqBuf[:])
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil))
}
