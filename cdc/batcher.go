package cdc

import (
	"sync"
	"time"
)

// Batcher collects Events and flushes them to a callback when either count
// reaches batchSize or flushInterval has elapsed since the first event
// currently queued. A manual Flush is also supported. Safe for concurrent
// Add calls.
type Batcher struct {
	batchSize     int
	flushInterval time.Duration
	onFlush       func([]Event)

	mu        sync.Mutex
	buf       []Event
	firstAt   time.Time
	timer     *time.Timer
	stopTimer chan struct{}
}

// NewBatcher builds a Batcher. onFlush is invoked with the queued events
// whenever a flush condition is met; it runs on the caller's goroutine for
// count-triggered flushes and on an internal timer goroutine for
// interval-triggered ones.
func NewBatcher(batchSize int, flushInterval time.Duration, onFlush func([]Event)) *Batcher {
	return &Batcher{batchSize: batchSize, flushInterval: flushInterval, onFlush: onFlush}
}

// Add enqueues an event, flushing synchronously if the batch is now full.
func (b *Batcher) Add(e Event) {
	b.mu.Lock()
	if len(b.buf) == 0 {
		b.firstAt = time.Now()
		b.armTimer()
	}
	b.buf = append(b.buf, e)
	full := len(b.buf) >= b.batchSize && b.batchSize > 0
	b.mu.Unlock()

	if full {
		b.Flush()
	}
}

// armTimer must be called with mu held; it schedules the interval flush for
// the batch that just started filling.
func (b *Batcher) armTimer() {
	if b.flushInterval <= 0 {
		return
	}
	b.timer = time.AfterFunc(b.flushInterval, b.Flush)
}

// Flush drains the current batch (if any) and invokes onFlush. Safe to call
// concurrently with Add or with a pending timer; only one flush of a given
// batch ever fires.
func (b *Batcher) Flush() {
	b.mu.Lock()
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	if len(b.buf) == 0 {
		b.mu.Unlock()
		return
	}
	batch := b.buf
	b.buf = nil
	b.mu.Unlock()

	b.onFlush(batch)
}
