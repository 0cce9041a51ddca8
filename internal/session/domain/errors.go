package domain

import (
	"github.com/allisson/txgateway/internal/errors"
)

var (
	// ErrAuthentication indicates a bearer token is missing, malformed, expired or badly signed.
	ErrAuthentication = errors.Wrap(errors.ErrUnauthorized, "authentication failed")

	// ErrSessionBinding indicates the session record does not match the caller.
	// The record has been deleted by the time this error is returned.
	ErrSessionBinding = errors.Wrap(errors.ErrUnauthorized, "session binding failed")

	// ErrSessionNotFound indicates no session record exists for the user.
	ErrSessionNotFound = errors.Wrap(errors.ErrNotFound, "session not found")

	// ErrRecordDecode indicates a cached session field could not be decrypted or parsed.
	ErrRecordDecode = errors.Wrap(errors.ErrInvalidInput, "session record decode failed")
)
