package cdc

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/antgroup/gitvault/config"
)

func TestRetryPolicyExponentialBackoffCapped(t *testing.T) {
	p := NewRetryPolicy(config.Retry{
		MaxRetries:        5,
		InitialDelayMS:    100,
		MaxDelayMS:        1000,
		BackoffMultiplier: 2,
	})

	require.Equal(t, 100*time.Millisecond, p.Delay(0))
	require.Equal(t, 200*time.Millisecond, p.Delay(1))
	require.Equal(t, 400*time.Millisecond, p.Delay(2))
	require.Equal(t, 800*time.Millisecond, p.Delay(3))
	// Would be 1600ms uncapped; clamped to max_delay_ms.
	require.Equal(t, 1000*time.Millisecond, p.Delay(4))
}

func TestRetryPolicyJitterStaysInBounds(t *testing.T) {
	p := NewRetryPolicy(config.Retry{
		InitialDelayMS:    100,
		MaxDelayMS:        1000,
		BackoffMultiplier: 2,
		Jitter:            true,
	})

	for attempt := 0; attempt < 4; attempt++ {
		d := p.Delay(attempt)
		base := float64(100) * pow2(attempt)
		if base > 1000 {
			base = 1000
		}
		require.GreaterOrEqual(t, float64(d), base*0.5*float64(time.Millisecond))
		require.LessOrEqual(t, float64(d), base*1.5*float64(time.Millisecond))
	}
}

func pow2(n int) float64 {
	v := 1.0
	for i := 0; i < n; i++ {
		v *= 2
	}
	return v
}
