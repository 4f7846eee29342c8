package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestGetSetInvalidate(t *testing.T) {
	c, err := New[string](Options{MaxEntries: 10, TTL: time.Minute})
	require.NoError(t, err)

	_, ok := c.Get("k")
	require.False(t, ok)

	c.Set("k", "v")
	got, ok := c.Get("k")
	require.True(t, ok)
	require.Equal(t, "v", got)

	c.Invalidate("k")
	_, ok = c.Get("k")
	require.False(t, ok)
}

func TestZeroTTLNeverExpiresEarly(t *testing.T) {
	c, err := New[int](Options{MaxEntries: 10})
	require.NoError(t, err)

	c.Set("n", 42)
	got, ok := c.Get("n")
	require.True(t, ok)
	require.Equal(t, 42, got)
}
