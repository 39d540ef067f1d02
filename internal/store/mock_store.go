package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockStore is a mock implementation of Store using testify/mock.
type MockStore struct {
	mock.Mock
}

func (m *MockStore) SavePrediction(ctx context.Context, p Prediction) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *MockStore) GetPrediction(ctx context.Context, id uuid.UUID) (Prediction, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(Prediction), args.Error(1)
}

func (m *MockStore) ListPredictions(ctx context.Context, sessionID uuid.UUID, opts ListOptions) ([]Prediction, error) {
	args := m.Called(ctx, sessionID, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Prediction), args.Error(1)
}

func (m *MockStore) Close() error {
	args := m.Called()
	return args.Error(0)
}
