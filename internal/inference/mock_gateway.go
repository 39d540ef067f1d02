package inference

import (
	"context"

	"github.com/stretchr/testify/mock"

	"qna-agents/internal/answer"
)

// MockGateway is a mock implementation of Gateway using testify/mock.
type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) EnsureModelLoaded(ctx context.Context) (Model, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(Model), args.Error(1)
}

func (m *MockGateway) FindAnswers(ctx context.Context, model Model, question, paragraph string) ([]answer.Candidate, error) {
	args := m.Called(ctx, model, question, paragraph)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]answer.Candidate), args.Error(1)
}

// MockModel is a mock implementation of Model using testify/mock.
type MockModel struct {
	mock.Mock
}

func (m *MockModel) FindAnswers(ctx context.Context, question, paragraph string) ([]answer.Candidate, error) {
	args := m.Called(ctx, question, paragraph)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]answer.Candidate), args.Error(1)
}

func (m *MockModel) ID() string {
	args := m.Called()
	return args.String(0)
}
