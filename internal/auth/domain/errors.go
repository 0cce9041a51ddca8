package domain

import (
	"github.com/allisson/txgateway/internal/errors"
)

var (
	// ErrRecaptchaFailed indicates the recaptcha token was rejected or could not be checked.
	ErrRecaptchaFailed = errors.Wrap(errors.ErrForbidden, "recaptcha verification failed")

	// ErrNotWhitelisted indicates the username is not allowed to sign in.
	ErrNotWhitelisted = errors.Wrap(errors.ErrForbidden, "username not whitelisted")

	// ErrPayloadDecode indicates an opened envelope did not hold the expected document.
	ErrPayloadDecode = errors.Wrap(errors.ErrInvalidInput, "auth payload decode failed")
)
