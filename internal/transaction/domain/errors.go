package domain

import (
	"github.com/allisson/txgateway/internal/errors"
)

// Transaction error definitions.
//
// None of these reach the transport layer: the orchestrator converts them into a
// Feedback. They exist so logs, metrics and tests can tell failures apart.
var (
	// ErrValidation indicates the payload failed the transaction type's schema.
	ErrValidation = errors.Wrap(errors.ErrInvalidInput, "transaction validation failed")

	// ErrConfiguration indicates the transaction type has no schema or endpoint.
	ErrConfiguration = errors.Wrap(errors.ErrNotFound, "transaction configuration missing")

	// ErrBackendUnreachable indicates the outbound call timed out or failed in transport.
	ErrBackendUnreachable = errors.Wrap(errors.ErrUnavailable, "backend unreachable")

	// ErrBackendRejected indicates the backend answered but its success rule evaluated false.
	ErrBackendRejected = errors.Wrap(errors.ErrConflict, "backend rejected request")

	// ErrRequestGeneration indicates the outbound request could not be built.
	ErrRequestGeneration = errors.Wrap(errors.ErrInvalidInput, "request generation failed")

	// ErrResponseParse indicates the backend body could not be decoded.
	ErrResponseParse = errors.Wrap(errors.ErrInvalidInput, "response parse failed")

	// ErrUnknownAdapter indicates a response adapter name is not registered.
	ErrUnknownAdapter = errors.Wrap(errors.ErrNotFound, "unknown adapter")

	// ErrPayloadDecryption indicates the inbound envelope could not be opened.
	ErrPayloadDecryption = errors.Wrap(errors.ErrInvalidInput, "payload decryption failed")

	// ErrUnauthorizedTransaction indicates session verification failed for a protected type.
	ErrUnauthorizedTransaction = errors.Wrap(errors.ErrUnauthorized, "transaction not authorized")

	// ErrUploadRejected indicates a document upload broke its route's file rules.
	// Unlike the errors above it is returned to the transport as a 422.
	ErrUploadRejected = errors.Wrap(errors.ErrInvalidInput, "upload rejected")

	// ErrAttachmentOutsideStore indicates an attachment path escapes the upload directory.
	ErrAttachmentOutsideStore = errors.Wrap(errors.ErrForbidden, "attachment outside upload directory")
)
