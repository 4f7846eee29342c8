package packstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/antgroup/gitvault/errs"
	"github.com/antgroup/gitvault/packstore/objectservice/memory"
)

func TestAcquireReleaseRoundTrip(t *testing.T) {
	svc := memory.New()
	mgr := NewLockManager(svc, LockOptions{TTL: time.Minute, Holder: "writer-1"})

	h, err := mgr.Acquire(context.Background(), "refs/heads/main", 0)
	require.NoError(t, err)
	require.Equal(t, "refs/heads/main", h.Name())

	require.NoError(t, h.Release())

	// Released lock can be re-acquired immediately.
	h2, err := mgr.Acquire(context.Background(), "refs/heads/main", 0)
	require.NoError(t, err)
	require.NoError(t, h2.Release())
}

func TestAcquireContendedFailsTryOnce(t *testing.T) {
	svc := memory.New()
	mgr := NewLockManager(svc, LockOptions{TTL: time.Minute})

	h, err := mgr.Acquire(context.Background(), "pack-x", 0)
	require.NoError(t, err)

	_, err = mgr.Acquire(context.Background(), "pack-x", 0)
	require.Error(t, err)

	require.NoError(t, h.Release())
}

func TestAcquireStaleLockIsBreakable(t *testing.T) {
	svc := memory.New()
	mgr := NewLockManager(svc, LockOptions{TTL: 10 * time.Millisecond, BreakStale: true})

	h, err := mgr.Acquire(context.Background(), "pack-x", 0)
	require.NoError(t, err)
	_ = h

	time.Sleep(20 * time.Millisecond)

	h2, err := mgr.Acquire(context.Background(), "pack-x", 0)
	require.NoError(t, err)
	require.NoError(t, h2.Release())
}

func TestAcquireStaleLockNotBreakableFails(t *testing.T) {
	svc := memory.New()
	mgr := NewLockManager(svc, LockOptions{TTL: 10 * time.Millisecond, BreakStale: false})

	_, err := mgr.Acquire(context.Background(), "pack-x", 0)
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)

	_, err = mgr.Acquire(context.Background(), "pack-x", 0)
	require.Error(t, err)
}

func TestRefreshExtendsAndDetectsLost(t *testing.T) {
	svc := memory.New()
	mgr := NewLockManager(svc, LockOptions{TTL: time.Minute})

	h, err := mgr.Acquire(context.Background(), "pack-x", 0)
	require.NoError(t, err)
	require.NoError(t, h.Refresh(context.Background()))

	// Forcibly delete the lock object to simulate another holder winning
	// a race, then refresh must report LockLost.
	require.NoError(t, svc.Delete(context.Background(), lockKey("pack-x")))
	// Re-acquire as someone else.
	other, err := mgr.Acquire(context.Background(), "pack-x", 0)
	require.NoError(t, err)

	err = h.Refresh(context.Background())
	require.Error(t, err)
	require.True(t, errs.IsLockLost(err))

	require.NoError(t, other.Release())
}

func TestSweepLocksRemovesExpired(t *testing.T) {
	svc := memory.New()
	mgr := NewLockManager(svc, LockOptions{TTL: 10 * time.Millisecond})

	_, err := mgr.Acquire(context.Background(), "pack-x", 0)
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)

	swept, err := mgr.SweepLocks(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, swept)

	_, err = svc.Head(context.Background(), lockKey("pack-x"))
	require.True(t, errs.IsObjectNotFound(err))
}

func TestHolderSignerSignVerify(t *testing.T) {
	signer, err := NewHolderSigner([]byte("a long enough secret for hkdf"), "test")
	require.NoError(t, err)

	tok, err := signer.Sign("writer-1", "pack-x", time.Now().Add(time.Hour))
	require.NoError(t, err)

	holder, err := signer.Verify(tok, "pack-x")
	require.NoError(t, err)
	require.Equal(t, "writer-1", holder)

	_, err = signer.Verify(tok, "pack-y")
	require.Error(t, err)
}
