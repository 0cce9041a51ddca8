// Package mocks provides mock implementations of the crypto services for testing.
package mocks

import (
	"crypto/rsa"

	"github.com/stretchr/testify/mock"

	cryptoDomain "github.com/allisson/txgateway/internal/crypto/domain"
)

// MockEnvelopeService is a mock implementation of EnvelopeService for testing.
type MockEnvelopeService struct {
	mock.Mock
}

// Open mocks the Open method of EnvelopeService.
func (m *MockEnvelopeService) Open(envelope *cryptoDomain.Envelope) (*cryptoDomain.Opened, error) {
	args := m.Called(envelope)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cryptoDomain.Opened), args.Error(1)
}

// Seal mocks the Seal method of EnvelopeService.
func (m *MockEnvelopeService) Seal(plaintext []byte, recipient *rsa.PublicKey) (*cryptoDomain.Envelope, error) {
	args := m.Called(plaintext, recipient)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cryptoDomain.Envelope), args.Error(1)
}

// PublicKeyPEM mocks the PublicKeyPEM method of EnvelopeService.
func (m *MockEnvelopeService) PublicKeyPEM() []byte {
	args := m.Called()
	return args.Get(0).([]byte)
}
