// Package mocks provides mock implementations for testing auth handlers.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	cryptoDomain "github.com/allisson/txgateway/internal/crypto/domain"
	transactionDomain "github.com/allisson/txgateway/internal/transaction/domain"
)

// MockAuthUseCase is a mock implementation of AuthUseCase for testing.
type MockAuthUseCase struct {
	mock.Mock
}

// Login mocks the Login method of AuthUseCase.
func (m *MockAuthUseCase) Login(
	ctx context.Context,
	envelope *cryptoDomain.Envelope,
	caller *transactionDomain.Caller,
) (*cryptoDomain.Envelope, error) {
	args := m.Called(ctx, envelope, caller)
	return envelopeResult(args)
}

// VerifyOTP mocks the VerifyOTP method of AuthUseCase.
func (m *MockAuthUseCase) VerifyOTP(
	ctx context.Context,
	envelope *cryptoDomain.Envelope,
	caller *transactionDomain.Caller,
) (*cryptoDomain.Envelope, error) {
	args := m.Called(ctx, envelope, caller)
	return envelopeResult(args)
}

// ChangePassword mocks the ChangePassword method of AuthUseCase.
func (m *MockAuthUseCase) ChangePassword(
	ctx context.Context,
	envelope *cryptoDomain.Envelope,
	caller *transactionDomain.Caller,
) (*cryptoDomain.Envelope, error) {
	args := m.Called(ctx, envelope, caller)
	return envelopeResult(args)
}

// SendOTP mocks the SendOTP method of AuthUseCase.
func (m *MockAuthUseCase) SendOTP(
	ctx context.Context,
	envelope *cryptoDomain.Envelope,
	caller *transactionDomain.Caller,
) (*cryptoDomain.Envelope, error) {
	args := m.Called(ctx, envelope, caller)
	return envelopeResult(args)
}

// VerifySession mocks the VerifySession method of AuthUseCase.
func (m *MockAuthUseCase) VerifySession(
	ctx context.Context,
	envelope *cryptoDomain.Envelope,
	caller *transactionDomain.Caller,
) (*cryptoDomain.Envelope, error) {
	args := m.Called(ctx, envelope, caller)
	return envelopeResult(args)
}

// AuditTrail mocks the AuditTrail method of AuthUseCase.
func (m *MockAuthUseCase) AuditTrail(
	ctx context.Context,
	envelope *cryptoDomain.Envelope,
	caller *transactionDomain.Caller,
) (*cryptoDomain.Envelope, error) {
	args := m.Called(ctx, envelope, caller)
	return envelopeResult(args)
}

// PublicKey mocks the PublicKey method of AuthUseCase.
func (m *MockAuthUseCase) PublicKey() string {
	args := m.Called()
	return args.String(0)
}

func envelopeResult(args mock.Arguments) (*cryptoDomain.Envelope, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cryptoDomain.Envelope), args.Error(1)
}
