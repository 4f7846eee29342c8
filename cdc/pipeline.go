package cdc

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/antgroup/gitvault/config"
)

// Pipeline wires capture -> batcher -> transformer -> sink, with a retry
// policy guarding sink writes and dead-letter handlers receiving batches
// whose retries were exhausted.
type Pipeline struct {
	source  string
	batcher *Batcher
	xform   Transformer
	sink    Sink
	retry   *RetryPolicy
	dlq     []DeadLetterHandler
	metrics *Metrics
	seq     SequenceGenerator
	log     *logrus.Entry

	// mu guards started/stopped. Capture/Flush hold the read side for their
	// whole body (check-then-enqueue), so Stop's write-side Lock cannot
	// flip stopped until every in-flight Capture/Flush has either finished
	// enqueuing or observed stopped and bailed out — closing the gap a
	// plain check-then-act would leave between reading the flag and
	// calling into the batcher.
	mu      sync.RWMutex
	started bool
	stopped bool
	wg      sync.WaitGroup
}

// NewPipeline builds a Pipeline. source tags every captured event (e.g. a
// repository identifier); dlq handlers are optional.
func NewPipeline(source string, cfg config.Pipeline, retryCfg config.Retry, sink Sink, dlq ...DeadLetterHandler) *Pipeline {
	p := &Pipeline{
		source:  source,
		sink:    sink,
		retry:   NewRetryPolicy(retryCfg),
		dlq:     dlq,
		metrics: &Metrics{},
		log:     logrus.WithField("component", "cdc.pipeline"),
	}
	p.batcher = NewBatcher(cfg.BatchSize, cfg.FlushInterval(), p.handleFlush)
	return p
}

// Start marks the pipeline active. Idempotent: a second call is a no-op.
func (p *Pipeline) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.started = true
}

// Capture records one observed event, assigning it the next session
// sequence number and a content-derived id. It is a no-op unless the
// pipeline is running: events arriving before Start or after Stop are
// dropped.
func (p *Pipeline) Capture(typ EventType, sha string, payload []byte, version int) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if !p.started || p.stopped {
		return
	}

	seq := p.seq.Next()
	e := Event{
		ID:        DeriveEventID(typ, p.source, seq, payload),
		Type:      typ,
		Source:    p.source,
		Timestamp: time.Now().Unix(),
		Sequence:  seq,
		Version:   version,
		SHA:       sha,
		Payload:   payload,
	}
	p.batcher.Add(e)
}

// Flush forces the current batch to process immediately, regardless of
// count/time thresholds. Like Capture, it is a no-op unless the pipeline
// is running.
func (p *Pipeline) Flush() {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if !p.started || p.stopped {
		return
	}
	p.batcher.Flush()
}

// Stop flushes any pending events exactly once, waits for in-flight batch
// retries to complete their policy, and marks the pipeline stopped.
// Idempotent: a second call is a no-op.
func (p *Pipeline) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	p.mu.Unlock()

	p.batcher.Flush()
	p.wg.Wait()
}

// Metrics returns a snapshot of the pipeline's counters.
func (p *Pipeline) Metrics() Snapshot {
	return p.metrics.Snapshot()
}

// handleFlush is the Batcher's onFlush callback: it runs the retry policy
// against the sink and, on exhaustion, hands the batch to every registered
// dead-letter handler. Processing runs on its own goroutine, tracked by wg
// so Stop can wait for it, since sinks and dead-letter handlers may be
// slow or async.
func (p *Pipeline) handleFlush(events []Event) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.processBatch(events)
	}()
}

func (p *Pipeline) processBatch(events []Event) {
	start := time.Now()
	ctx := context.Background()
	rows := p.xform.TransformBatch(events)

	var lastErr error
	for attempt := 0; ; attempt++ {
		err := p.sink.Write(ctx, rows)
		if err == nil {
			p.metrics.recordBatch(len(events), batchByteSize(rows))
			p.metrics.recordLatency(float64(time.Since(start).Milliseconds()))
			return
		}
		lastErr = err
		if attempt >= p.retry.MaxRetries {
			break
		}
		p.log.WithError(err).WithField("attempt", attempt).Warn("sink write failed, retrying")
		time.Sleep(p.retry.Delay(attempt))
	}

	// One batch that exhausts its retry budget is one failure, regardless
	// of how many attempts it took — metrics.errors tracks failed batches,
	// not failed attempts.
	p.metrics.recordError()
	p.log.WithError(lastErr).WithField("batch_size", len(events)).Error("batch exhausted retries, routing to dead-letter handlers")
	for _, h := range p.dlq {
		if err := h.HandleDeadLetter(ctx, events, lastErr); err != nil {
			p.log.WithError(err).Error("dead-letter handler failed")
		}
	}
}

func batchByteSize(rows []Row) int {
	n := 0
	for _, r := range rows {
		n += len(r.PayloadJSON)
	}
	return n
}
