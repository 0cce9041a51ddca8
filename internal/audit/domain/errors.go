package domain

import (
	"github.com/allisson/txgateway/internal/errors"
)

var (
	// ErrSignatureInvalid indicates an audit record was modified after it was signed.
	ErrSignatureInvalid = errors.Wrap(errors.ErrInvalidInput, "audit signature invalid")

	// ErrQueueFull indicates the in-process queue dropped an event.
	ErrQueueFull = errors.Wrap(errors.ErrUnavailable, "audit queue full")

	// ErrQueueClosed indicates an event was enqueued after shutdown.
	ErrQueueClosed = errors.Wrap(errors.ErrUnavailable, "audit queue closed")
)
