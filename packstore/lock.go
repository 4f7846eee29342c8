package packstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/antgroup/gitvault/errs"
	"github.com/antgroup/gitvault/packstore/objectservice"
	"github.com/antgroup/gitvault/refs"
)

const lockPrefix = "locks/"

func lockKey(resource string) string { return lockPrefix + resource + ".lock" }

// lockContent is the JSON body stored under a lock key.
type lockContent struct {
	LockID     string `json:"lock_id"`
	Resource   string `json:"resource"`
	AcquiredAt int64  `json:"acquired_at"`
	ExpiresAt  int64  `json:"expires_at"`
	Holder     string `json:"holder,omitempty"`
	Token      string `json:"token,omitempty"`
}

// LockOptions configures a LockManager.
type LockOptions struct {
	RetryInterval  time.Duration // default 100ms
	TTL            time.Duration
	Holder         string
	StaleThreshold time.Duration
	BreakStale     bool
	Signer         *HolderSigner // optional; signs the holder claim when set
}

// LockManager acquires distributed locks on an object service using
// conditional writes: acquire reads any existing lock, puts
// with if-not-exists when absent or etag_matches when expired, then
// re-reads to confirm this caller actually won the race.
type LockManager struct {
	svc  objectservice.Service
	opts LockOptions
	log  *logrus.Entry
}

var _ refs.LockManager = (*LockManager)(nil)

// NewLockManager returns a LockManager bound to svc.
func NewLockManager(svc objectservice.Service, opts LockOptions) *LockManager {
	if opts.RetryInterval <= 0 {
		opts.RetryInterval = 100 * time.Millisecond
	}
	if opts.TTL <= 0 {
		opts.TTL = 30 * time.Second
	}
	return &LockManager{svc: svc, opts: opts, log: logrus.WithField("component", "packstore.lock")}
}

// Handle is a held distributed lock, satisfying refs.Lock.
type Handle struct {
	mgr        *LockManager
	resource   string
	lockID     string
	etag       string
	acquiredAt time.Time
	expiresAt  time.Time
}

func (h *Handle) Name() string { return h.resource }

// AcquireLock blocks until the lock for resource is free or timeout elapses
// (0 means try exactly once), satisfying refs.LockManager.
func (m *LockManager) AcquireLock(resource string, timeout time.Duration) (refs.Lock, error) {
	return m.Acquire(context.Background(), resource, timeout)
}

// Acquire attempts to take the lock for resource, retrying at
// opts.RetryInterval until timeout elapses (timeout <= 0 means try once).
func (m *LockManager) Acquire(ctx context.Context, resource string, timeout time.Duration) (*Handle, error) {
	key := lockKey(resource)
	deadline := time.Now().Add(timeout)
	for {
		h, err := m.tryAcquire(ctx, resource, key)
		if err == nil {
			return h, nil
		}
		if timeout <= 0 || time.Now().After(deadline) {
			if errs.IsStaleLock(err) {
				return nil, err
			}
			return nil, &errs.LockTimeout{Name: resource}
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(m.opts.RetryInterval):
		}
	}
}

func (m *LockManager) tryAcquire(ctx context.Context, resource, key string) (*Handle, error) {
	now := time.Now()
	existing, body, err := m.readLock(ctx, key)
	var conds objectservice.Conditions
	switch {
	case err != nil && errs.IsObjectNotFound(err):
		conds = objectservice.Conditions{IfNoneMatchAny: true}
	case err != nil:
		return nil, err
	case !now.Before(time.Unix(body.ExpiresAt, 0)):
		if !m.opts.BreakStale {
			return nil, &errs.StaleLock{Name: resource}
		}
		conds = objectservice.Conditions{IfMatch: existing.ETag}
	default:
		return nil, &errs.LockTimeout{Name: resource}
	}

	lockID := newLockID()
	expiresAt := now.Add(m.opts.TTL)
	content := lockContent{
		LockID:     lockID,
		Resource:   resource,
		AcquiredAt: now.Unix(),
		ExpiresAt:  expiresAt.Unix(),
		Holder:     m.opts.Holder,
	}
	if m.opts.Signer != nil && m.opts.Holder != "" {
		tok, err := m.opts.Signer.Sign(m.opts.Holder, resource, expiresAt)
		if err != nil {
			return nil, err
		}
		content.Token = tok
	}
	raw, err := json.Marshal(content)
	if err != nil {
		return nil, err
	}
	if _, err := m.svc.Put(ctx, key, jsonReader(raw), int64(len(raw)), &conds, nil); err != nil {
		if errs.IsConditionFailed(err) {
			return nil, &errs.LockTimeout{Name: resource}
		}
		return nil, err
	}

	// Defeat the race where a second writer's concurrent if-not-exists Put
	// lost the condition but our own read-back still observes stale data:
	// re-read and confirm our lock_id actually won.
	meta, confirmed, err := m.readLock(ctx, key)
	if err != nil {
		return nil, err
	}
	if confirmed.LockID != lockID {
		return nil, &errs.LockTimeout{Name: resource}
	}
	return &Handle{mgr: m, resource: resource, lockID: lockID, etag: meta.ETag, acquiredAt: now, expiresAt: expiresAt}, nil
}

func (m *LockManager) readLock(ctx context.Context, key string) (*objectservice.Meta, *lockContent, error) {
	meta, err := m.svc.Head(ctx, key)
	if err != nil {
		return nil, nil, err
	}
	r, err := m.svc.Get(ctx, key, nil)
	if err != nil {
		return nil, nil, err
	}
	defer r.Close()
	var content lockContent
	if err := json.NewDecoder(r).Decode(&content); err != nil {
		return nil, nil, &errs.StaleLock{Name: key}
	}
	return meta, &content, nil
}

// Release deletes the lock iff it still holds our lock_id. Never an
// unconditional delete.
func (h *Handle) Release() error {
	ctx := context.Background()
	_, content, err := h.mgr.readLock(ctx, lockKey(h.resource))
	if err != nil {
		if errs.IsObjectNotFound(err) {
			return nil
		}
		return err
	}
	if content.LockID != h.lockID {
		return nil
	}
	return h.mgr.svc.Delete(ctx, lockKey(h.resource))
}

// Refresh extends the lock's expiry under an etag_matches conditional
// write, updating the handle on success. Returns errs.LockLost if another
// holder has since taken the lock.
func (h *Handle) Refresh(ctx context.Context) error {
	expiresAt := time.Now().Add(h.mgr.opts.TTL)
	content := lockContent{
		LockID:     h.lockID,
		Resource:   h.resource,
		AcquiredAt: h.acquiredAt.Unix(),
		ExpiresAt:  expiresAt.Unix(),
		Holder:     h.mgr.opts.Holder,
	}
	if h.mgr.opts.Signer != nil && h.mgr.opts.Holder != "" {
		tok, err := h.mgr.opts.Signer.Sign(h.mgr.opts.Holder, h.resource, expiresAt)
		if err != nil {
			return err
		}
		content.Token = tok
	}
	raw, err := json.Marshal(content)
	if err != nil {
		return err
	}
	conds := objectservice.Conditions{IfMatch: h.etag}
	etag, err := h.mgr.svc.Put(ctx, lockKey(h.resource), jsonReader(raw), int64(len(raw)), &conds, nil)
	if err != nil {
		if errs.IsConditionFailed(err) {
			return &errs.LockLost{Name: h.resource}
		}
		return err
	}
	h.etag = etag
	h.expiresAt = expiresAt
	return nil
}

// SweepLocks lists all locks and deletes any that are expired or whose
// content fails to parse.
func (m *LockManager) SweepLocks(ctx context.Context) (swept int, err error) {
	page, err := m.svc.List(ctx, lockPrefix, "")
	if err != nil {
		return 0, err
	}
	now := time.Now()
	for _, key := range page.Keys {
		r, err := m.svc.Get(ctx, key, nil)
		if err != nil {
			continue
		}
		var content lockContent
		decodeErr := json.NewDecoder(r).Decode(&content)
		r.Close()
		if decodeErr != nil || !now.Before(time.Unix(content.ExpiresAt, 0)) {
			if err := m.svc.Delete(ctx, key); err != nil {
				m.log.WithError(err).WithField("key", key).Warn("sweeper: failed to delete lock")
				continue
			}
			swept++
		}
	}
	return swept, nil
}

func newLockID() string {
	return fmt.Sprintf("%d-%d", time.Now().UnixNano(), randSuffix())
}
