package refs

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/antgroup/gitvault/errs"
)

// MemoryBackend is an in-process Backend, primarily for tests and for
// composing the reference subsystem with a packstore-backed object service
// that has no native ref concept of its own.
type MemoryBackend struct {
	mu     sync.RWMutex
	refs   map[string]*Ref
	packed *PackedRefs
}

// NewMemoryBackend returns an empty backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{refs: map[string]*Ref{}}
}

func (m *MemoryBackend) ReadRef(name string) (*Ref, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if r, ok := m.refs[name]; ok {
		cp := *r
		return &cp, nil
	}
	if m.packed != nil {
		if id, ok := m.packed.Entries[name]; ok {
			return NewDirect(name, id), nil
		}
	}
	return nil, nil
}

func (m *MemoryBackend) WriteRef(ref *Ref) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *ref
	m.refs[ref.Name] = &cp
	return nil
}

func (m *MemoryBackend) DeleteRef(name string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, existed := m.refs[name]
	delete(m.refs, name)
	if m.packed != nil {
		if _, ok := m.packed.Entries[name]; ok {
			existed = true
			delete(m.packed.Entries, name)
			delete(m.packed.Peeled, name)
		}
	}
	return existed, nil
}

func (m *MemoryBackend) ListRefs(prefix string) ([]*Ref, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	seen := map[string]bool{}
	var out []*Ref
	for name, r := range m.refs {
		if strings.HasPrefix(name, prefix) {
			cp := *r
			out = append(out, &cp)
			seen[name] = true
		}
	}
	if m.packed != nil {
		for name, id := range m.packed.Entries {
			if seen[name] || !strings.HasPrefix(name, prefix) {
				continue
			}
			out = append(out, NewDirect(name, id))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *MemoryBackend) WritePackedRefs(p *PackedRefs) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.packed = p
	return nil
}

func (m *MemoryBackend) ReadPackedRefs() (*PackedRefs, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.packed == nil {
		return NewPackedRefs(), nil
	}
	return m.packed, nil
}

// MemoryReflog is an in-process ReflogBackend storing entries in append
// (chronological) order, matching the on-disk storage order; ReadEntries
// reverses them to the newest-first display order.
type MemoryReflog struct {
	mu      sync.RWMutex
	entries map[string][]Entry
}

func NewMemoryReflog() *MemoryReflog {
	return &MemoryReflog{entries: map[string][]Entry{}}
}

func (m *MemoryReflog) AppendEntry(refName string, entry Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[refName] = append(m.entries[refName], entry)
	return nil
}

func (m *MemoryReflog) ReadEntries(refName string) ([]Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	src := m.entries[refName]
	out := make([]Entry, len(src))
	for i, e := range src {
		out[len(src)-1-i] = e
	}
	return out, nil
}

func (m *MemoryReflog) DeleteReflog(refName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, refName)
	return nil
}

func (m *MemoryReflog) ReflogExists(refName string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.entries[refName]
	return ok, nil
}

// MemoryLockManager grants in-process exclusive locks keyed by name, used
// by the in-memory backend and by tests of the CAS update protocol.
type MemoryLockManager struct {
	mu    sync.Mutex
	held  map[string]chan struct{}
}

func NewMemoryLockManager() *MemoryLockManager {
	return &MemoryLockManager{held: map[string]chan struct{}{}}
}

type memoryLock struct {
	m    *MemoryLockManager
	name string
}

func (l *memoryLock) Name() string { return l.name }

func (l *memoryLock) Release() error {
	l.m.mu.Lock()
	ch, ok := l.m.held[l.name]
	if ok {
		delete(l.m.held, l.name)
	}
	l.m.mu.Unlock()
	if ok {
		close(ch)
	}
	return nil
}

func (m *MemoryLockManager) AcquireLock(name string, timeout time.Duration) (Lock, error) {
	deadline := time.Now().Add(timeout)
	for {
		m.mu.Lock()
		if _, busy := m.held[name]; !busy {
			m.held[name] = make(chan struct{})
			m.mu.Unlock()
			return &memoryLock{m: m, name: name}, nil
		}
		wait := m.held[name]
		m.mu.Unlock()

		if timeout <= 0 {
			return nil, &errs.LockTimeout{Name: name}
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, &errs.LockTimeout{Name: name}
		}
		select {
		case <-wait:
		case <-time.After(remaining):
			return nil, &errs.LockTimeout{Name: name}
		}
	}
}
