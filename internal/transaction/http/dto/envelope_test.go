package dto

import (
	"testing"

	"github.com/stretchr/testify/assert"

	cryptoDomain "github.com/allisson/txgateway/internal/crypto/domain"
)

func TestEnvelopeRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		req     EnvelopeRequest
		wantErr bool
	}{
		{
			name: "valid",
			req:  EnvelopeRequest{Payload: &cryptoDomain.Envelope{SecureKeys: "a2V5cw==", Data: "abcd"}},
		},
		{name: "missing payload", req: EnvelopeRequest{}, wantErr: true},
		{
			name:    "missing secure keys",
			req:     EnvelopeRequest{Payload: &cryptoDomain.Envelope{Data: "abcd"}},
			wantErr: true,
		},
		{
			name:    "missing data",
			req:     EnvelopeRequest{Payload: &cryptoDomain.Envelope{SecureKeys: "a2V5cw=="}},
			wantErr: true,
		},
		{
			name:    "blank data",
			req:     EnvelopeRequest{Payload: &cryptoDomain.Envelope{SecureKeys: "a2V5cw==", Data: "   "}},
			wantErr: true,
		},
		{
			name:    "padded secure keys",
			req:     EnvelopeRequest{Payload: &cryptoDomain.Envelope{SecureKeys: " a2V5cw==\n", Data: "abcd"}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}
