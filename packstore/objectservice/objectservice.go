// Package objectservice defines the content-addressed blob interface the
// atomic packfile store and the distributed lock both build on: put/get/head
// with conditional writes, delete, and prefix listing. Every concrete backend
// (memory, S3, GCS) implements the same small surface so the store and lock
// protocols are genuinely backend-agnostic.
package objectservice

import (
	"context"
	"io"
)

// Conditions expresses the preconditions a Put must satisfy before it is
// allowed to take effect, modeled after S3's If-Match/If-None-Match and
// GCS's generation-match preconditions.
type Conditions struct {
	// IfMatch requires the object currently stored under the key to carry
	// this exact ETag. Empty means "no If-Match constraint".
	IfMatch string
	// IfNoneMatchAny, when true, requires that no object currently exists
	// under the key at all (the "if-not-exists" case, conds.etag_does_not_match("*")).
	IfNoneMatchAny bool
}

// ByteRange requests a partial read; Length <= 0 means "to end of object".
type ByteRange struct {
	Offset int64
	Length int64
}

// Meta is the metadata returned by Head.
type Meta struct {
	ETag           string
	Size           int64
	CustomMetadata map[string]string
}

// ListPage is one page of a prefix listing.
type ListPage struct {
	Keys   []string
	Cursor string
}

// Service is the object-service capability every packstore and lock
// implementation is built against. Implementations must make Put's
// conditional check atomic with respect to concurrent callers: two
// concurrent Puts racing on an if-not-exists condition must not both
// succeed.
type Service interface {
	// Put uploads r (size bytes, or unknown length if size < 0) to key,
	// optionally subject to conds. Returns the new object's ETag on
	// success, or *errs.ConditionFailed if a precondition did not hold.
	Put(ctx context.Context, key string, r io.Reader, size int64, conds *Conditions, customMetadata map[string]string) (etag string, err error)
	// Get opens key for reading, optionally restricted to rng. Returns
	// *errs.ObjectNotFound if key does not exist.
	Get(ctx context.Context, key string, rng *ByteRange) (io.ReadCloser, error)
	// Head returns key's metadata without transferring its body. Returns
	// *errs.ObjectNotFound if key does not exist.
	Head(ctx context.Context, key string) (*Meta, error)
	// Delete removes the given keys. Deleting an absent key is not an
	// error.
	Delete(ctx context.Context, keys ...string) error
	// List returns keys with the given prefix, paginated via cursor.
	List(ctx context.Context, prefix, cursor string) (*ListPage, error)
}
