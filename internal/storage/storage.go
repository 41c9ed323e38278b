// Package storage keeps diary text files in an S3-compatible bucket.
package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

var ErrObjectNotFound = errors.New("object not found")

// PutOptions describes an upload. Size is -1 when the length is unknown.
type PutOptions struct {
	Size        int64
	ContentType string
}

type Object struct {
	Key          string
	Size         int64
	ETag         string
	ContentType  string
	LastModified time.Time
}

// ObjectStore is the subset of the S3 API the diary files need.
// Get and Stat return ErrObjectNotFound for a missing key.
type ObjectStore interface {
	Put(ctx context.Context, key string, r io.Reader, opt PutOptions) (Object, error)
	Get(ctx context.Context, key string) (io.ReadCloser, Object, error)
	Stat(ctx context.Context, key string) (Object, error)
	Delete(ctx context.Context, key string) error
	PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error)
}
