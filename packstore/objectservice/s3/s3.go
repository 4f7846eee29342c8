// Package s3 implements objectservice.Service on top of Amazon S3 (or any
// S3-compatible endpoint), using S3's If-Match/If-None-Match headers to
// express the object service's conditional-write contract.
package s3

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/antgroup/gitvault/errs"
	"github.com/antgroup/gitvault/packstore/objectservice"
)

// Options configures a Service.
type Options struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
}

// Service is an objectservice.Service backed by an S3 bucket.
type Service struct {
	client *s3.Client
	bucket string
}

var _ objectservice.Service = (*Service)(nil)

// New builds a Service from static credentials and endpoint options.
func New(ctx context.Context, opts Options) (*Service, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if opts.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(opts.Region))
	}
	if opts.AccessKeyID != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, "")))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("s3: load aws config: %w", err)
	}
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
		o.UsePathStyle = opts.UsePathStyle
	})
	return &Service{client: client, bucket: opts.Bucket}, nil
}

func isConditionalError(err error) bool {
	var apiErr interface{ ErrorCode() string }
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "PreconditionFailed", "ConditionalRequestConflict":
			return true
		}
	}
	return false
}

func isNotFound(err error) bool {
	var nf *types.NoSuchKey
	if errors.As(err, &nf) {
		return true
	}
	var apiErr interface{ ErrorCode() string }
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode() == "NotFound" || apiErr.ErrorCode() == "NoSuchKey"
	}
	return false
}

func (s *Service) Put(ctx context.Context, key string, r io.Reader, size int64, conds *objectservice.Conditions, customMetadata map[string]string) (string, error) {
	in := &s3.PutObjectInput{
		Bucket:   aws.String(s.bucket),
		Key:      aws.String(key),
		Body:     r,
		Metadata: customMetadata,
	}
	if size >= 0 {
		in.ContentLength = aws.Int64(size)
	}
	if conds != nil {
		if conds.IfNoneMatchAny {
			in.IfNoneMatch = aws.String("*")
		} else if conds.IfMatch != "" {
			in.IfMatch = aws.String(conds.IfMatch)
		}
	}
	out, err := s.client.PutObject(ctx, in)
	if err != nil {
		if isConditionalError(err) {
			return "", &errs.ConditionFailed{Key: key, Reason: err.Error()}
		}
		return "", err
	}
	return aws.ToString(out.ETag), nil
}

func (s *Service) Get(ctx context.Context, key string, rng *objectservice.ByteRange) (io.ReadCloser, error) {
	in := &s3.GetObjectInput{Bucket: aws.String(s.bucket), Key: aws.String(key)}
	if rng != nil {
		end := ""
		if rng.Length > 0 {
			end = fmt.Sprintf("%d", rng.Offset+rng.Length-1)
		}
		in.Range = aws.String(fmt.Sprintf("bytes=%d-%s", rng.Offset, end))
	}
	out, err := s.client.GetObject(ctx, in)
	if err != nil {
		if isNotFound(err) {
			return nil, &errs.ObjectNotFound{ID: key}
		}
		return nil, err
	}
	return out.Body, nil
}

func (s *Service) Head(ctx context.Context, key string) (*objectservice.Meta, error) {
	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: aws.String(s.bucket), Key: aws.String(key)})
	if err != nil {
		if isNotFound(err) {
			return nil, &errs.ObjectNotFound{ID: key}
		}
		return nil, err
	}
	return &objectservice.Meta{
		ETag:           aws.ToString(out.ETag),
		Size:           aws.ToInt64(out.ContentLength),
		CustomMetadata: out.Metadata,
	}, nil
}

func (s *Service) Delete(ctx context.Context, keys ...string) error {
	for _, k := range keys {
		if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: aws.String(s.bucket), Key: aws.String(k)}); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) List(ctx context.Context, prefix, cursor string) (*objectservice.ListPage, error) {
	in := &s3.ListObjectsV2Input{Bucket: aws.String(s.bucket), Prefix: aws.String(prefix)}
	if cursor != "" {
		in.ContinuationToken = aws.String(cursor)
	}
	out, err := s.client.ListObjectsV2(ctx, in)
	if err != nil {
		return nil, err
	}
	page := &objectservice.ListPage{}
	for _, obj := range out.Contents {
		page.Keys = append(page.Keys, aws.ToString(obj.Key))
	}
	page.Cursor = aws.ToString(out.NextContinuationToken)
	return page, nil
}
