// Package usecase implements the session state machine: sign-in creates a bound
// record, every protected call re-binds against it, and any mismatch deletes it.
package usecase

import (
	"context"
	"time"

	sessionDomain "github.com/allisson/txgateway/internal/session/domain"
)

// SessionStore is the cache subset used for session records.
type SessionStore interface {
	SetHash(ctx context.Context, key string, values map[string]any, ttl time.Duration) error
	GetHash(ctx context.Context, key string) (map[string]any, error)
	Delete(ctx context.Context, keys ...string) error
}

// SessionUseCase manages session records.
type SessionUseCase interface {
	// SignIn issues a token and overwrites the user's session record.
	SignIn(ctx context.Context, input *sessionDomain.SignInInput) (*sessionDomain.SignInOutput, error)

	// VerifyToken validates a bearer token without touching the cache.
	VerifyToken(ctx context.Context, token string) (*sessionDomain.Claims, error)

	// Bind checks the presented credentials against the stored record. Any
	// mismatch, missing record or undecodable field deletes the token subject's
	// session and returns ErrSessionBinding.
	Bind(ctx context.Context, input *sessionDomain.BindInput) (*sessionDomain.Binding, error)

	// SignOut deletes the user's session without reading it.
	SignOut(ctx context.Context, username string) error

	// Fetch returns the stored record without binding checks.
	Fetch(ctx context.Context, username string) (*sessionDomain.Record, error)
}
