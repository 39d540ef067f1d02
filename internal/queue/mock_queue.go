package queue

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockQueue is a mock implementation of Queue using testify/mock.
type MockQueue struct {
	mock.Mock
}

func (m *MockQueue) Request(ctx context.Context, subject string, data []byte) ([]byte, error) {
	args := m.Called(ctx, subject, data)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockQueue) Serve(ctx context.Context, subject string, handler Handler) error {
	args := m.Called(ctx, subject, handler)
	return args.Error(0)
}

func (m *MockQueue) Close() {
	m.Called()
}
