package refs

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/antgroup/gitvault/errs"
	"github.com/antgroup/gitvault/hash"
	"github.com/antgroup/gitvault/object"
)

// UpdateOptions controls the compare-and-swap precondition for Update.
//
// HasExpected false means "None": ExpectedOld is ignored and the ref must
// currently exist as a direct ref (any value), unless CreateOnly or Force is
// also set. With HasExpected true, an all-zero ExpectedOld (IsZero()) means
// the ref must not currently exist, and any other ExpectedOld means the
// current value must equal it exactly.
type UpdateOptions struct {
	ExpectedOld hash.ID
	HasExpected bool
	CreateOnly  bool
	Force       bool
	// ExternalLock reuses a lock the caller already holds (e.g. from
	// pack_loose's batch acquisition) instead of acquiring a new one.
	ExternalLock Lock
}

// Store composes a ref Backend, a ReflogBackend, and a LockManager into the
// full CAS update / resolve / pack-loose surface.
type Store struct {
	Backend  Backend
	Reflog   ReflogBackend
	Locks    LockManager
	Algo     hash.Algo
	MaxDepth int

	log *logrus.Entry
}

// NewStore wires the three required collaborators together.
func NewStore(backend Backend, reflog ReflogBackend, locks LockManager, algo hash.Algo) *Store {
	return &Store{
		Backend:  backend,
		Reflog:   reflog,
		Locks:    locks,
		Algo:     algo,
		MaxDepth: DefaultMaxDepth,
		log:      logrus.WithField("component", "refs.store"),
	}
}

// Get returns the ref as currently stored (no symbolic resolution), or nil
// if absent.
func (s *Store) Get(name string) (*Ref, error) {
	if err := Validate(name); err != nil {
		return nil, err
	}
	return s.Backend.ReadRef(name)
}

// Resolve follows name to its final direct id.
func (s *Store) Resolve(name string) (*ResolveResult, error) {
	if err := Validate(name); err != nil {
		return nil, err
	}
	return Resolve(s.Backend, name, s.MaxDepth)
}

// ListOptions filters List. An empty Prefix matches every ref. Symbolic
// refs and HEAD (with the other special heads) are excluded unless asked
// for, matching how ref enumeration is usually consumed.
type ListOptions struct {
	Prefix          string
	IncludeSymbolic bool
	IncludeHead     bool
}

// List returns refs matching opts, sorted by name as the backend returns
// them.
func (s *Store) List(opts ListOptions) ([]*Ref, error) {
	all, err := s.Backend.ListRefs(opts.Prefix)
	if err != nil {
		return nil, err
	}
	out := all[:0:0]
	for _, r := range all {
		if r.T == Symbolic && !opts.IncludeSymbolic {
			continue
		}
		if IsSpecialHead(r.Name) && !opts.IncludeHead {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

// ReadReflog returns name's reflog entries, newest first. A ref with no
// reflog yields an empty slice.
func (s *Store) ReadReflog(name string) ([]Entry, error) {
	if err := Validate(name); err != nil {
		return nil, err
	}
	if s.Reflog == nil {
		return nil, nil
	}
	return s.Reflog.ReadEntries(name)
}

const lockTimeout = 10 * time.Second

// Update performs the atomic compare-and-swap update protocol: it
// validates, acquires (or reuses) an exclusive lock, reads the current
// value, checks the precondition, writes the new value, and appends a
// reflog entry recording the transition, releasing any lock it acquired
// itself.
func (s *Store) Update(name string, newID hash.ID, committer object.Signature, message string, opts UpdateOptions) error {
	if err := Validate(name); err != nil {
		return err
	}
	if newID.AlgoOf() == "" {
		return &errs.InvalidID{Value: newID.String()}
	}
	if opts.CreateOnly && opts.Force {
		return &errs.InvalidAtomicUpdate{Name: name, Reason: "create_only and force are mutually exclusive"}
	}

	lock := opts.ExternalLock
	ownLock := false
	if lock == nil {
		acquired, err := s.Locks.AcquireLock(name, lockTimeout)
		if err != nil {
			return err
		}
		lock, ownLock = acquired, true
	}
	if ownLock {
		defer lock.Release()
	}

	current, err := s.Backend.ReadRef(name)
	if err != nil {
		return err
	}

	if err := checkPrecondition(name, current, opts); err != nil {
		return err
	}

	var oldID hash.ID
	if current != nil && current.T == Direct {
		oldID = current.ID
	} else {
		oldID = hash.ZeroFor(s.Algo)
	}

	if err := s.Backend.WriteRef(NewDirect(name, newID)); err != nil {
		return err
	}
	if s.Reflog != nil {
		entry := Entry{Old: oldID, New: newID, Committer: committer, Message: message}
		if err := s.Reflog.AppendEntry(name, entry); err != nil {
			return err
		}
	}
	return nil
}

func checkPrecondition(name string, current *Ref, opts UpdateOptions) error {
	exists := current != nil
	if opts.CreateOnly {
		if exists {
			return &errs.AlreadyExists{Name: name}
		}
		return nil
	}
	if opts.Force {
		return nil
	}
	if !opts.HasExpected {
		if !exists {
			return &errs.RefNotFound{Name: name}
		}
		if current.T != Direct {
			return &errs.CASConflict{Name: name, Expected: "direct ref", Actual: currentString(current)}
		}
		return nil
	}
	if opts.ExpectedOld.IsZero() {
		if exists {
			return &errs.CASConflict{Name: name, Expected: "absent", Actual: currentString(current)}
		}
		return nil
	}
	if !exists {
		return &errs.CASConflict{Name: name, Expected: opts.ExpectedOld.String(), Actual: "absent"}
	}
	if current.T != Direct || !current.ID.Equal(opts.ExpectedOld) {
		return &errs.CASConflict{Name: name, Expected: opts.ExpectedOld.String(), Actual: currentString(current)}
	}
	return nil
}

func currentString(r *Ref) string {
	if r == nil {
		return "absent"
	}
	if r.T == Symbolic {
		return "ref: " + r.Target
	}
	return r.ID.String()
}

// Delete removes name, optionally requiring its current id to match
// expectedOld first. It appends a reflog entry with New=Zero.
func (s *Store) Delete(name string, expectedOld hash.ID, hasExpected bool, committer object.Signature, message string) error {
	if err := Validate(name); err != nil {
		return err
	}
	lock, err := s.Locks.AcquireLock(name, lockTimeout)
	if err != nil {
		return err
	}
	defer lock.Release()

	current, err := s.Backend.ReadRef(name)
	if err != nil {
		return err
	}
	if current == nil {
		return &errs.RefNotFound{Name: name}
	}
	if hasExpected {
		if current.T != Direct || !current.ID.Equal(expectedOld) {
			return &errs.CASConflict{Name: name, Expected: expectedOld.String(), Actual: currentString(current)}
		}
	}
	if _, err := s.Backend.DeleteRef(name); err != nil {
		return err
	}
	if s.Reflog != nil {
		var oldID hash.ID
		if current.T == Direct {
			oldID = current.ID
		} else {
			oldID = hash.ZeroFor(s.Algo)
		}
		entry := Entry{Old: oldID, New: hash.ZeroFor(s.Algo), Committer: committer, Message: message}
		if err := s.Reflog.AppendEntry(name, entry); err != nil {
			return err
		}
	}
	return nil
}

// CreateSymbolic writes name as a symbolic ref pointing at target, without
// any CAS precondition (symbolic refs such as HEAD are not CAS-guarded the
// way direct refs are).
func (s *Store) CreateSymbolic(name, target string) error {
	if err := Validate(name); err != nil {
		return err
	}
	if err := Validate(target); err != nil {
		return err
	}
	lock, err := s.Locks.AcquireLock(name, lockTimeout)
	if err != nil {
		return err
	}
	defer lock.Release()
	return s.Backend.WriteRef(NewSymbolic(name, target))
}

// UpdateHead points HEAD at target, either symbolically (the normal
// "checked out a branch" case) or directly (detached HEAD).
func (s *Store) UpdateHead(target string, symbolic bool, id hash.ID) error {
	if symbolic {
		return s.CreateSymbolic(HEAD, target)
	}
	lock, err := s.Locks.AcquireLock(HEAD, lockTimeout)
	if err != nil {
		return err
	}
	defer lock.Release()
	return s.Backend.WriteRef(NewDirect(HEAD, id))
}

// packableName reports whether a ref is eligible for pack_loose: direct,
// not HEAD, not symbolic.
func packableName(r *Ref) bool {
	return r != nil && r.T == Direct && r.Name != HEAD
}

// PackLoose consolidates every packable loose ref (direct, non-HEAD,
// non-symbolic) into the packed-refs file. It acquires locks on every
// packable ref, re-reads them under lock for consistency, writes the new
// packed-refs blob, then releases all locks. Loose files are left in place
// afterward; a separate prune pass is
// responsible for removing loose files that now duplicate a packed entry
// with an identical id.
func (s *Store) PackLoose() error {
	all, err := s.Backend.ListRefs("")
	if err != nil {
		return err
	}
	var names []string
	for _, r := range all {
		if packableName(r) {
			names = append(names, r.Name)
		}
	}
	if len(names) == 0 {
		return nil
	}
	s.log.WithField("count", len(names)).Info("pack_loose: packing loose refs")

	locks := make([]Lock, 0, len(names))
	defer func() {
		for _, l := range locks {
			_ = l.Release()
		}
	}()
	for _, n := range names {
		l, err := s.Locks.AcquireLock(n, lockTimeout)
		if err != nil {
			return err
		}
		locks = append(locks, l)
	}

	packed, err := s.Backend.ReadPackedRefs()
	if err != nil {
		return err
	}
	// ReadPackedRefs may hand back a backend's own live, lock-guarded
	// instance (e.g. MemoryBackend, or CachedBackend's cached entry); clone
	// it before mutating so this doesn't race with concurrent reads of that
	// same instance elsewhere.
	if packed == nil {
		packed = NewPackedRefs()
	} else {
		packed = packed.Clone()
	}
	packed.Traits = []string{"peeled", "fully-peeled", "sorted"}

	for _, n := range names {
		r, err := s.Backend.ReadRef(n)
		if err != nil {
			return err
		}
		if !packableName(r) {
			continue
		}
		packed.Put(n, r.ID, nil)
	}
	return s.Backend.WritePackedRefs(packed)
}
