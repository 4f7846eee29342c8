package cdc

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/antgroup/gitvault/config"
)

// RetryPolicy computes the backoff delay for a sink retry attempt:
// min(initial * multiplier^attempt, max), optionally scaled by a
// uniform[0.5, 1.5) jitter factor. Safe for concurrent use: Delay may be
// called from multiple in-flight batch goroutines at once.
type RetryPolicy struct {
	MaxRetries int
	Initial    time.Duration
	Max        time.Duration
	Multiplier float64
	Jitter     bool

	mu   sync.Mutex
	rand *rand.Rand
}

// NewRetryPolicy builds a RetryPolicy from the layered config section.
func NewRetryPolicy(c config.Retry) *RetryPolicy {
	mult := c.BackoffMultiplier
	if mult <= 0 {
		mult = 2
	}
	return &RetryPolicy{
		MaxRetries: c.MaxRetries,
		Initial:    c.InitialDelay(),
		Max:        c.MaxDelay(),
		Multiplier: mult,
		Jitter:     c.Jitter,
		rand:       rand.New(rand.NewSource(1)),
	}
}

// Delay returns the backoff delay before retry attempt (0-indexed).
func (p *RetryPolicy) Delay(attempt int) time.Duration {
	d := float64(p.Initial) * math.Pow(p.Multiplier, float64(attempt))
	if p.Max > 0 && d > float64(p.Max) {
		d = float64(p.Max)
	}
	if p.Jitter {
		p.mu.Lock()
		j := p.rand.Float64()
		p.mu.Unlock()
		d *= 0.5 + j
	}
	if d < 0 {
		d = 0
	}
	return time.Duration(d)
}
