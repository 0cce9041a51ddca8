// Package mocks provides mock implementations for testing transaction handlers.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	cryptoDomain "github.com/allisson/txgateway/internal/crypto/domain"
	transactionDomain "github.com/allisson/txgateway/internal/transaction/domain"
	transactionService "github.com/allisson/txgateway/internal/transaction/service"
)

// MockTransactionUseCase is a mock implementation of TransactionUseCase for testing.
type MockTransactionUseCase struct {
	mock.Mock
}

// HandleEnvelope mocks the HandleEnvelope method of TransactionUseCase.
func (m *MockTransactionUseCase) HandleEnvelope(
	ctx context.Context,
	envelope *cryptoDomain.Envelope,
	caller *transactionDomain.Caller,
) (*cryptoDomain.Envelope, error) {
	args := m.Called(ctx, envelope, caller)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cryptoDomain.Envelope), args.Error(1)
}

// Execute mocks the Execute method of TransactionUseCase.
func (m *MockTransactionUseCase) Execute(
	ctx context.Context,
	req *transactionDomain.Request,
	caller *transactionDomain.Caller,
) *transactionDomain.Feedback {
	args := m.Called(ctx, req, caller)
	return args.Get(0).(*transactionDomain.Feedback)
}

// Upload mocks the Upload method of TransactionUseCase.
func (m *MockTransactionUseCase) Upload(
	ctx context.Context,
	in *transactionDomain.UploadInput,
	caller *transactionDomain.Caller,
) (*transactionDomain.Feedback, error) {
	args := m.Called(ctx, in, caller)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*transactionDomain.Feedback), args.Error(1)
}

// PrintReceipt mocks the PrintReceipt method of TransactionUseCase.
func (m *MockTransactionUseCase) PrintReceipt(
	ctx context.Context,
	envelope *cryptoDomain.Envelope,
	caller *transactionDomain.Caller,
) (*transactionService.RawResponse, error) {
	args := m.Called(ctx, envelope, caller)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*transactionService.RawResponse), args.Error(1)
}
