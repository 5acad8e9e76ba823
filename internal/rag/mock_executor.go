package rag

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockExecutor is a mock implementation of Executor using testify/mock.
type MockExecutor struct {
	mock.Mock
}

func (m *MockExecutor) AnswerQuery(ctx context.Context, prompt string, history []Turn) (string, error) {
	args := m.Called(ctx, prompt, history)
	return args.String(0), args.Error(1)
}
