package llm

import (
	"context"

	"github.com/openai/openai-go/v3"
	"github.com/stretchr/testify/mock"
)

// MockChat is a mock implementation of ChatCompleter using testify/mock.
type MockChat struct {
	mock.Mock
}

func (m *MockChat) Complete(ctx context.Context, params openai.ChatCompletionNewParams) (string, error) {
	args := m.Called(ctx, params)
	return args.String(0), args.Error(1)
}
