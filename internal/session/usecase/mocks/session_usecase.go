// Package mocks provides mock implementations of the session use case for testing.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	sessionDomain "github.com/allisson/txgateway/internal/session/domain"
)

// MockSessionUseCase is a mock implementation of SessionUseCase for testing.
type MockSessionUseCase struct {
	mock.Mock
}

func (m *MockSessionUseCase) SignIn(
	ctx context.Context,
	input *sessionDomain.SignInInput,
) (*sessionDomain.SignInOutput, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sessionDomain.SignInOutput), args.Error(1)
}

func (m *MockSessionUseCase) VerifyToken(ctx context.Context, token string) (*sessionDomain.Claims, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sessionDomain.Claims), args.Error(1)
}

func (m *MockSessionUseCase) Bind(
	ctx context.Context,
	input *sessionDomain.BindInput,
) (*sessionDomain.Binding, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sessionDomain.Binding), args.Error(1)
}

func (m *MockSessionUseCase) SignOut(ctx context.Context, username string) error {
	args := m.Called(ctx, username)
	return args.Error(0)
}

func (m *MockSessionUseCase) Fetch(ctx context.Context, username string) (*sessionDomain.Record, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sessionDomain.Record), args.Error(1)
}
