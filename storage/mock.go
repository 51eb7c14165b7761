package storage

import (
	"context"

	"github.com/ruteri/identity-registry/interfaces"
	"github.com/stretchr/testify/mock"
)

// MockStorageBackend mocks the StorageBackend interface
type MockStorageBackend struct {
	mock.Mock
	BackendName string
}

func (m *MockStorageBackend) Fetch(ctx context.Context, id interfaces.ContentID, contentType interfaces.ContentType) ([]byte, error) {
	args := m.Called(ctx, id, contentType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockStorageBackend) Store(ctx context.Context, data []byte, contentType interfaces.ContentType) (interfaces.ContentID, error) {
	args := m.Called(ctx, data, contentType)
	return args.Get(0).(interfaces.ContentID), args.Error(1)
}

func (m *MockStorageBackend) Available(ctx context.Context) bool {
	args := m.Called(ctx)
	return args.Bool(0)
}

func (m *MockStorageBackend) Name() string {
	return m.BackendName
}

func (m *MockStorageBackend) LocationURI() string {
	return "mock://" + m.BackendName
}
