// Package usecase implements the sign-in flows. Each flow opens a sealed client
// envelope, runs one backend transaction through the transaction pipeline and
// seals the reply for the client's public key.
package usecase

import (
	"context"

	cryptoDomain "github.com/allisson/txgateway/internal/crypto/domain"
	transactionDomain "github.com/allisson/txgateway/internal/transaction/domain"
)

// Whitelist is the cache subset used to restrict logins.
type Whitelist interface {
	IsMember(ctx context.Context, key, member string) (bool, error)
}

// AuthUseCase runs the sign-in flows. Only envelope failures are returned as
// errors; every other outcome is sealed in the reply.
type AuthUseCase interface {
	// Login checks recaptcha and the whitelist, runs the login transaction and
	// opens a session on success.
	Login(ctx context.Context, envelope *cryptoDomain.Envelope, caller *transactionDomain.Caller) (*cryptoDomain.Envelope, error)

	// VerifyOTP checks an SMS or TOTP one-time password.
	VerifyOTP(ctx context.Context, envelope *cryptoDomain.Envelope, caller *transactionDomain.Caller) (*cryptoDomain.Envelope, error)

	// ChangePassword replaces the first-login password.
	ChangePassword(ctx context.Context, envelope *cryptoDomain.Envelope, caller *transactionDomain.Caller) (*cryptoDomain.Envelope, error)

	// SendOTP asks the backend to deliver a one-time password.
	SendOTP(ctx context.Context, envelope *cryptoDomain.Envelope, caller *transactionDomain.Caller) (*cryptoDomain.Envelope, error)

	// VerifySession binds the caller's session, or deletes it on sign-out.
	VerifySession(ctx context.Context, envelope *cryptoDomain.Envelope, caller *transactionDomain.Caller) (*cryptoDomain.Envelope, error)

	// AuditTrail records a client activity enriched from the cached session.
	AuditTrail(ctx context.Context, envelope *cryptoDomain.Envelope, caller *transactionDomain.Caller) (*cryptoDomain.Envelope, error)

	// PublicKey returns the gateway public key PEM, base64 encoded.
	PublicKey() string
}
