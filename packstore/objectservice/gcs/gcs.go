// Package gcs implements objectservice.Service on Google Cloud Storage,
// using GCS generation preconditions (Conditions.GenerationMatch /
// DoesNotExist) to express the object service's conditional-write contract.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"

	"github.com/antgroup/gitvault/errs"
	"github.com/antgroup/gitvault/packstore/objectservice"
)

// Service is an objectservice.Service backed by a GCS bucket.
type Service struct {
	bucket *storage.BucketHandle
}

var _ objectservice.Service = (*Service)(nil)

// New wraps an existing GCS client's bucket handle.
func New(client *storage.Client, bucketName string) *Service {
	return &Service{bucket: client.Bucket(bucketName)}
}

func etagFromGeneration(gen int64) string {
	return strconv.FormatInt(gen, 10)
}

func (s *Service) Put(ctx context.Context, key string, r io.Reader, size int64, conds *objectservice.Conditions, customMetadata map[string]string) (string, error) {
	obj := s.bucket.Object(key)
	if conds != nil {
		if conds.IfNoneMatchAny {
			obj = obj.If(storage.Conditions{DoesNotExist: true})
		} else if conds.IfMatch != "" {
			gen, err := strconv.ParseInt(conds.IfMatch, 10, 64)
			if err != nil {
				return "", fmt.Errorf("gcs: conditional etag %q is not a generation: %w", conds.IfMatch, err)
			}
			obj = obj.If(storage.Conditions{GenerationMatch: gen})
		}
	}
	w := obj.NewWriter(ctx)
	w.Metadata = customMetadata
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return "", err
	}
	if err := w.Close(); err != nil {
		if isConditionError(err) {
			return "", &errs.ConditionFailed{Key: key, Reason: err.Error()}
		}
		return "", err
	}
	return etagFromGeneration(w.Attrs().Generation), nil
}

func isConditionError(err error) bool {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code == 412 || apiErr.Code == 409
	}
	return false
}

func (s *Service) Get(ctx context.Context, key string, rng *objectservice.ByteRange) (io.ReadCloser, error) {
	var r *storage.Reader
	var err error
	if rng != nil {
		r, err = s.bucket.Object(key).NewRangeReader(ctx, rng.Offset, rng.Length)
	} else {
		r, err = s.bucket.Object(key).NewReader(ctx)
	}
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, &errs.ObjectNotFound{ID: key}
		}
		return nil, err
	}
	return r, nil
}

func (s *Service) Head(ctx context.Context, key string) (*objectservice.Meta, error) {
	attrs, err := s.bucket.Object(key).Attrs(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, &errs.ObjectNotFound{ID: key}
		}
		return nil, err
	}
	return &objectservice.Meta{
		ETag:           etagFromGeneration(attrs.Generation),
		Size:           attrs.Size,
		CustomMetadata: attrs.Metadata,
	}, nil
}

func (s *Service) Delete(ctx context.Context, keys ...string) error {
	for _, k := range keys {
		if err := s.bucket.Object(k).Delete(ctx); err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
			return err
		}
	}
	return nil
}

func (s *Service) List(ctx context.Context, prefix, cursor string) (*objectservice.ListPage, error) {
	it := s.bucket.Objects(ctx, &storage.Query{Prefix: prefix})
	it.PageInfo().Token = cursor
	it.PageInfo().MaxSize = 1000

	page := &objectservice.ListPage{}
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		page.Keys = append(page.Keys, attrs.Name)
		if len(page.Keys) >= 1000 {
			break
		}
	}
	page.Cursor = it.PageInfo().Token
	return page, nil
}
