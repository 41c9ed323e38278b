package mocks

import (
	"context"
	"io"
	"time"

	"github.com/stretchr/testify/mock"

	"journalapi/internal/storage"
)

// MockObjectStore is a testify mock of storage.ObjectStore.
type MockObjectStore struct {
	mock.Mock
}

var _ storage.ObjectStore = (*MockObjectStore)(nil)

func object(args mock.Arguments, i int) storage.Object {
	obj, _ := args.Get(i).(storage.Object)
	return obj
}

func (m *MockObjectStore) Put(ctx context.Context, key string, r io.Reader, opt storage.PutOptions) (storage.Object, error) {
	args := m.Called(ctx, key, r, opt)
	return object(args, 0), args.Error(1)
}

func (m *MockObjectStore) Get(ctx context.Context, key string) (io.ReadCloser, storage.Object, error) {
	args := m.Called(ctx, key)
	rc, _ := args.Get(0).(io.ReadCloser)
	return rc, object(args, 1), args.Error(2)
}

func (m *MockObjectStore) Stat(ctx context.Context, key string) (storage.Object, error) {
	args := m.Called(ctx, key)
	return object(args, 0), args.Error(1)
}

func (m *MockObjectStore) Delete(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

func (m *MockObjectStore) PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error) {
	args := m.Called(ctx, key, expiry)
	return args.String(0), args.Error(1)
}
