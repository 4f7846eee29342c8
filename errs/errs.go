// Package errs is the structured error taxonomy shared by every component of
// the repository engine. Each kind carries the fields its callers need to
// decide how to react; nothing here is meant to be matched on message text.
package errs

import "fmt"

// InvalidRefName is returned when a reference name fails validation.
type InvalidRefName struct {
	Name   string
	Reason string
}

func (e *InvalidRefName) Error() string {
	return fmt.Sprintf("invalid ref name %q: %s", e.Name, e.Reason)
}

func IsInvalidRefName(err error) bool {
	_, ok := err.(*InvalidRefName)
	return ok
}

// InvalidID is returned when an object id fails to parse as hex of the
// expected width.
type InvalidID struct {
	Value string
}

func (e *InvalidID) Error() string {
	return fmt.Sprintf("invalid object id %q", e.Value)
}

func IsInvalidID(err error) bool {
	_, ok := err.(*InvalidID)
	return ok
}

// InvalidAtomicUpdate is returned when an update request's combination of
// preconditions cannot be satisfied (e.g. create_only with force both set).
type InvalidAtomicUpdate struct {
	Name   string
	Reason string
}

func (e *InvalidAtomicUpdate) Error() string {
	return fmt.Sprintf("invalid atomic update for %q: %s", e.Name, e.Reason)
}

func IsInvalidAtomicUpdate(err error) bool {
	_, ok := err.(*InvalidAtomicUpdate)
	return ok
}

// RefNotFound is returned by resolve/get operations when the named ref (or
// a ref in its symbolic chain) does not exist.
type RefNotFound struct {
	Name         string
	PartialChain []string
}

func (e *RefNotFound) Error() string {
	return fmt.Sprintf("ref not found: %s", e.Name)
}

func IsRefNotFound(err error) bool {
	_, ok := err.(*RefNotFound)
	return ok
}

// ObjectNotFound is returned when an object id cannot be located in any
// storage tier consulted.
type ObjectNotFound struct {
	ID string
}

func (e *ObjectNotFound) Error() string {
	return fmt.Sprintf("object not found: %s", e.ID)
}

func IsObjectNotFound(err error) bool {
	_, ok := err.(*ObjectNotFound)
	return ok
}

// CASConflict is returned when a compare-and-swap ref update's precondition
// did not match the value actually stored.
type CASConflict struct {
	Name     string
	Expected string
	Actual   string
}

func (e *CASConflict) Error() string {
	return fmt.Sprintf("cas conflict on %q: expected %s, got %s", e.Name, e.Expected, e.Actual)
}

func IsCASConflict(err error) bool {
	_, ok := err.(*CASConflict)
	return ok
}

// AlreadyExists is returned when create_only is requested for a ref that is
// already present.
type AlreadyExists struct {
	Name string
}

func (e *AlreadyExists) Error() string {
	return fmt.Sprintf("already exists: %s", e.Name)
}

func IsAlreadyExists(err error) bool {
	_, ok := err.(*AlreadyExists)
	return ok
}

// CircularRef is returned by the resolver when a symbolic chain revisits a
// name already seen.
type CircularRef struct {
	Chain []string
}

func (e *CircularRef) Error() string {
	return fmt.Sprintf("circular reference: %v", e.Chain)
}

func IsCircularRef(err error) bool {
	_, ok := err.(*CircularRef)
	return ok
}

// MaxDepthExceeded is returned by the resolver when a symbolic chain is
// longer than the configured maximum.
type MaxDepthExceeded struct {
	Chain []string
	Max   int
}

func (e *MaxDepthExceeded) Error() string {
	return fmt.Sprintf("max depth %d exceeded: %v", e.Max, e.Chain)
}

func IsMaxDepthExceeded(err error) bool {
	_, ok := err.(*MaxDepthExceeded)
	return ok
}

// CorruptObject is returned when an object's bytes cannot be parsed as the
// framing or type they claim to be.
type CorruptObject struct {
	ID     string
	Type   string
	Reason string
}

func (e *CorruptObject) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("corrupt %s object %s: %s", e.Type, e.ID, e.Reason)
	}
	return fmt.Sprintf("corrupt %s object: %s", e.Type, e.Reason)
}

func IsCorruptObject(err error) bool {
	_, ok := err.(*CorruptObject)
	return ok
}

// PackFormatError is returned when a pack stream's framing is invalid at a
// given byte offset.
type PackFormatError struct {
	Offset int64
	Reason string
}

func (e *PackFormatError) Error() string {
	return fmt.Sprintf("pack format error at offset %d: %s", e.Offset, e.Reason)
}

func IsPackFormatError(err error) bool {
	_, ok := err.(*PackFormatError)
	return ok
}

// DeltaError is returned when a delta fails to apply to its claimed base or
// result size.
type DeltaError struct {
	BaseSize int64
	Expected int64
	Actual   int64
	Reason   string
}

func (e *DeltaError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("delta error: %s", e.Reason)
	}
	return fmt.Sprintf("delta error: expected %d bytes, got %d (base %d)", e.Expected, e.Actual, e.BaseSize)
}

func IsDeltaError(err error) bool {
	_, ok := err.(*DeltaError)
	return ok
}

// ChecksumMismatch is returned when a verified download's recomputed hash
// disagrees with the stored checksum.
type ChecksumMismatch struct {
	ID string
}

func (e *ChecksumMismatch) Error() string {
	return fmt.Sprintf("checksum mismatch: %s", e.ID)
}

func IsChecksumMismatch(err error) bool {
	_, ok := err.(*ChecksumMismatch)
	return ok
}

// LockTimeout is returned when lock acquisition does not succeed within the
// caller's budget.
type LockTimeout struct {
	Name string
}

func (e *LockTimeout) Error() string {
	return fmt.Sprintf("lock timeout: %s", e.Name)
}

func IsLockTimeout(err error) bool {
	_, ok := err.(*LockTimeout)
	return ok
}

// StaleLock is returned when a lock is expired and the lock manager is not
// configured to break stale locks, or when a lock's stored content cannot be
// parsed. A conditional write that loses a race yields LockTimeout instead.
type StaleLock struct {
	Name string
}

func (e *StaleLock) Error() string {
	return fmt.Sprintf("stale lock: %s", e.Name)
}

func IsStaleLock(err error) bool {
	_, ok := err.(*StaleLock)
	return ok
}

// LockLost is returned when a held lock's refresh fails because another
// holder has since taken it.
type LockLost struct {
	Name string
}

func (e *LockLost) Error() string {
	return fmt.Sprintf("lock lost: %s", e.Name)
}

func IsLockLost(err error) bool {
	_, ok := err.(*LockLost)
	return ok
}

// ConditionFailed is returned by an object service's conditional write
// (etag_matches / etag_does_not_match) when the precondition does not hold
// against the object currently stored under the key.
type ConditionFailed struct {
	Key    string
	Reason string
}

func (e *ConditionFailed) Error() string {
	return fmt.Sprintf("condition failed for %q: %s", e.Key, e.Reason)
}

func IsConditionFailed(err error) bool {
	_, ok := err.(*ConditionFailed)
	return ok
}

// Pipeline error kinds. A PipelineError carries only a kind and a cause,
// not the offending event(s); the CDC pipeline hands those to the
// dead-letter queue separately.
type PipelineErrorKind int

const (
	ValidationError PipelineErrorKind = iota
	ProcessingError
	SerializationError
	StorageError
	TimeoutError
	BufferOverflow
)

func (k PipelineErrorKind) String() string {
	switch k {
	case ValidationError:
		return "ValidationError"
	case ProcessingError:
		return "ProcessingError"
	case SerializationError:
		return "SerializationError"
	case StorageError:
		return "StorageError"
	case TimeoutError:
		return "TimeoutError"
	case BufferOverflow:
		return "BufferOverflow"
	default:
		return "UnknownPipelineError"
	}
}

// PipelineError wraps an underlying cause with a pipeline error kind.
type PipelineError struct {
	Kind  PipelineErrorKind
	Cause error
}

func (e *PipelineError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.Cause)
	}
	return e.Kind.String()
}

func (e *PipelineError) Unwrap() error { return e.Cause }

func NewPipelineError(kind PipelineErrorKind, cause error) *PipelineError {
	return &PipelineError{Kind: kind, Cause: cause}
}

func IsPipelineError(err error) bool {
	_, ok := err.(*PipelineError)
	return ok
}
