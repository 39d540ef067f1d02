package session

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockNotifier is a mock implementation of Notifier using testify/mock.
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(ctx context.Context, sessionID uuid.UUID, message string) {
	m.Called(ctx, sessionID, message)
}
