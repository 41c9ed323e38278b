package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"journalapi/internal/config"
)

type s3Store struct {
	client *minio.Client
	bucket string
}

// NewS3 connects to the diary bucket on AWS S3 or any S3-compatible server.
// Without static keys the instance role is used. The bucket is created on
// startup only when cfg.CreateBucket is set.
func NewS3(ctx context.Context, cfg config.S3Config) (ObjectStore, error) {
	switch {
	case cfg.Endpoint == "":
		return nil, fmt.Errorf("s3 endpoint is required")
	case cfg.Bucket == "":
		return nil, fmt.Errorf("s3 bucket is required")
	}

	opts := &minio.Options{
		Creds:  credentials.NewIAM(""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts.Creds = credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, "")
	}
	cli, err := minio.New(cfg.Endpoint, opts)
	if err != nil {
		return nil, fmt.Errorf("s3 client: %w", err)
	}

	s := &s3Store{client: cli, bucket: cfg.Bucket}
	if cfg.CreateBucket {
		if err := s.ensureBucket(ctx, cfg.Region); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *s3Store) ensureBucket(ctx context.Context, region string) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	ok, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("bucket %s: %w", s.bucket, err)
	}
	if ok {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: region}); err != nil {
		return fmt.Errorf("make bucket %s: %w", s.bucket, err)
	}
	return nil
}

func notFound(err error) error {
	if err == nil {
		return nil
	}
	resp := minio.ToErrorResponse(err)
	if resp.Code == "NoSuchKey" || resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s", ErrObjectNotFound, resp.Key)
	}
	return err
}

func (s *s3Store) Put(ctx context.Context, key string, r io.Reader, opt PutOptions) (Object, error) {
	up, err := s.client.PutObject(ctx, s.bucket, key, r, opt.Size, minio.PutObjectOptions{ContentType: opt.ContentType})
	if err != nil {
		return Object{}, err
	}
	return Object{Key: key, Size: up.Size, ETag: up.ETag, ContentType: opt.ContentType, LastModified: up.LastModified}, nil
}

func (s *s3Store) Get(ctx context.Context, key string) (io.ReadCloser, Object, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, Object{}, notFound(err)
	}
	// GetObject does no I/O until read.
	st, err := obj.Stat()
	if err != nil {
		obj.Close()
		return nil, Object{}, notFound(err)
	}
	return obj, toObject(key, st), nil
}

func (s *s3Store) Stat(ctx context.Context, key string) (Object, error) {
	st, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		return Object{}, notFound(err)
	}
	return toObject(key, st), nil
}

// Delete succeeds for a missing key.
func (s *s3Store) Delete(ctx context.Context, key string) error {
	return s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{})
}

func (s *s3Store) PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error) {
	u, err := s.client.PresignedGetObject(ctx, s.bucket, key, expiry, url.Values{})
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

func toObject(key string, st minio.ObjectInfo) Object {
	return Object{Key: key, Size: st.Size, ETag: st.ETag, ContentType: st.ContentType, LastModified: st.LastModified}
}
