// Package memory implements objectservice.Service entirely in process
// memory, for tests and local development. It honors the same conditional
// write semantics a real object store would.
package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/antgroup/gitvault/errs"
	"github.com/antgroup/gitvault/packstore/objectservice"
)

type entry struct {
	data []byte
	meta objectservice.Meta
}

// Service is an in-memory objectservice.Service.
type Service struct {
	mu      sync.RWMutex
	objects map[string]entry
	seq     uint64
}

var _ objectservice.Service = (*Service)(nil)

// New returns an empty in-memory object service.
func New() *Service {
	return &Service{objects: map[string]entry{}}
}

func (s *Service) nextETag() string {
	n := atomic.AddUint64(&s.seq, 1)
	return fmt.Sprintf("etag-%d", n)
}

func (s *Service) Put(ctx context.Context, key string, r io.Reader, size int64, conds *objectservice.Conditions, customMetadata map[string]string) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.objects[key]
	if conds != nil {
		if conds.IfNoneMatchAny && exists {
			return "", &errs.ConditionFailed{Key: key, Reason: "object already exists"}
		}
		if conds.IfMatch != "" {
			if !exists {
				return "", &errs.ConditionFailed{Key: key, Reason: "object does not exist"}
			}
			if existing.meta.ETag != conds.IfMatch {
				return "", &errs.ConditionFailed{Key: key, Reason: fmt.Sprintf("etag mismatch: have %s want %s", existing.meta.ETag, conds.IfMatch)}
			}
		}
	}

	etag := s.nextETag()
	s.objects[key] = entry{
		data: data,
		meta: objectservice.Meta{ETag: etag, Size: int64(len(data)), CustomMetadata: customMetadata},
	}
	return etag, nil
}

func (s *Service) Get(ctx context.Context, key string, rng *objectservice.ByteRange) (io.ReadCloser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.objects[key]
	if !ok {
		return nil, &errs.ObjectNotFound{ID: key}
	}
	data := e.data
	if rng != nil {
		start := rng.Offset
		if start < 0 || start > int64(len(data)) {
			start = int64(len(data))
		}
		end := int64(len(data))
		if rng.Length > 0 && start+rng.Length < end {
			end = start + rng.Length
		}
		data = data[start:end]
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *Service) Head(ctx context.Context, key string) (*objectservice.Meta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.objects[key]
	if !ok {
		return nil, &errs.ObjectNotFound{ID: key}
	}
	m := e.meta
	return &m, nil
}

func (s *Service) Delete(ctx context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		delete(s.objects, k)
	}
	return nil
}

func (s *Service) List(ctx context.Context, prefix, cursor string) (*objectservice.ListPage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var keys []string
	for k := range s.objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	if cursor != "" {
		i := sort.SearchStrings(keys, cursor)
		keys = keys[i:]
	}
	return &objectservice.ListPage{Keys: keys}, nil
}
