// Package service implements session tokens and the encrypted session record codec.
package service

import (
	"time"

	sessionDomain "github.com/allisson/txgateway/internal/session/domain"
)

// TokenService issues and verifies session tokens.
type TokenService interface {
	// Issue signs a token for username, valid from now.
	Issue(username string, now time.Time) (string, *sessionDomain.Claims, error)

	// Verify checks signature, algorithm and expiry. Failures wrap ErrAuthentication.
	Verify(token string) (*sessionDomain.Claims, error)
}

// RecordCodec converts session records to and from their cached form.
type RecordCodec interface {
	Encode(record *sessionDomain.Record) (map[string]any, error)
	Decode(fields map[string]any) (*sessionDomain.Record, error)
}
