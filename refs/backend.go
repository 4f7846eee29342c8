package refs

import "time"

// Backend is the storage collaborator the ref subsystem is built against.
// Implementations range from a loose-file tree
// (mirroring Git's own on-disk layout) to a row in a metadata database
// fronting the tiered object-storage substrate.
type Backend interface {
	ReadRef(name string) (*Ref, error)
	WriteRef(ref *Ref) error
	DeleteRef(name string) (bool, error)
	ListRefs(prefix string) ([]*Ref, error)
	WritePackedRefs(p *PackedRefs) error
	ReadPackedRefs() (*PackedRefs, error)
}

// ReflogBackend is the append-only history collaborator. ReadEntries
// returns newest-first, matching how reflogs are
// displayed; the on-disk/on-wire storage order is chronological.
type ReflogBackend interface {
	AppendEntry(refName string, entry Entry) error
	ReadEntries(refName string) ([]Entry, error)
	DeleteReflog(refName string) error
	ReflogExists(refName string) (bool, error)
}

// Lock is a held exclusive lock on a single ref, acquired through a
// LockManager or supplied externally to Update so a caller can batch
// several operations under one acquisition (as pack_loose does).
type Lock interface {
	Name() string
	Release() error
}

// LockManager acquires per-ref locks. AcquireLock must block (or fail with
// errs.LockTimeout) until the lock is free or timeout elapses; timeout of 0
// means try-once.
type LockManager interface {
	AcquireLock(name string, timeout time.Duration) (Lock, error)
}
