package bills

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockStore is a mock implementation of Store using testify/mock.
type MockStore struct {
	mock.Mock
}

func (m *MockStore) Create(ctx context.Context, b Bill) (Bill, error) {
	args := m.Called(ctx, b)
	return args.Get(0).(Bill), args.Error(1)
}

func (m *MockStore) List(ctx context.Context) ([]Bill, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Bill), args.Error(1)
}

func (m *MockStore) Get(ctx context.Context, id uuid.UUID) (Bill, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(Bill), args.Error(1)
}

func (m *MockStore) Update(ctx context.Context, id uuid.UUID, b Bill) (Bill, error) {
	args := m.Called(ctx, id, b)
	return args.Get(0).(Bill), args.Error(1)
}

func (m *MockStore) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
