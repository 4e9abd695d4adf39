package registry

import (
	"context"

	"github.com/ruteri/weighted-membership-registry/interfaces"
	"github.com/stretchr/testify/mock"
)

// MockStorageBackend mocks interfaces.StorageBackend
type MockStorageBackend struct {
	mock.Mock
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
	return m.Called(ctx).Bool(0)
}

func (m *MockStorageBackend) Name() string {
	return "mock"
}

func (m *MockStorageBackend) LocationURI() string {
	return "mock://"
}

// MockHeadStore mocks interfaces.HeadStore
type MockHeadStore struct {
	mock.Mock
}

func (m *MockHeadStore) Heads(ctx context.Context) (map[interfaces.Address]interfaces.ContentID, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[interfaces.Address]interfaces.ContentID), args.Error(1)
}

func (m *MockHeadStore) SetHead(ctx context.Context, registry interfaces.Address, id interfaces.ContentID) error {
	return m.Called(ctx, registry, id).Error(0)
}

// MockEventSink mocks interfaces.EventSink
type MockEventSink struct {
	mock.Mock
}

func (m *MockEventSink) Publish(ctx context.Context, registry interfaces.Address, events []interfaces.Event) error {
	return m.Called(ctx, registry, events).Error(0)
}
