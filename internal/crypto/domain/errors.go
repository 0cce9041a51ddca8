package domain

import (
	"github.com/allisson/txgateway/internal/errors"
)

// Cryptographic operation error definitions.
//
// These domain-specific errors wrap standard errors from internal/errors so the
// transport layer can map them without knowing about envelopes or ciphers.
var (
	// ErrEnvelopeDecode indicates an inbound envelope could not be opened.
	//
	// The specific step that failed (base64/hex decoding, RSA-OAEP, the key JSON,
	// AES-CBC padding) is never disclosed to the caller.
	//
	// HTTP Status: 422 Unprocessable Entity
	ErrEnvelopeDecode = errors.Wrap(errors.ErrInvalidInput, "envelope decode failed")

	// ErrEnvelopeSeal indicates an outbound envelope could not be produced.
	ErrEnvelopeSeal = errors.New("envelope seal failed")

	// ErrInvalidPublicKey indicates the counterparty JWK is missing or malformed.
	ErrInvalidPublicKey = errors.Wrap(errors.ErrInvalidInput, "invalid public key")

	// ErrInvalidPrivateKey indicates the gateway private key could not be loaded.
	ErrInvalidPrivateKey = errors.New("invalid private key")

	// ErrInvalidKeySize indicates a symmetric key has an unsupported length.
	ErrInvalidKeySize = errors.Wrap(errors.ErrInvalidInput, "invalid key size")

	// ErrDecryptionFailed indicates a symmetric decryption failed (bad padding, bad length).
	ErrDecryptionFailed = errors.Wrap(errors.ErrInvalidInput, "decryption failed")

	// ErrFieldDecode indicates a cached session field could not be decrypted.
	ErrFieldDecode = errors.Wrap(errors.ErrInvalidInput, "field decode failed")

	// ErrSecretUnwrap indicates a "kms:" prefixed secret could not be unwrapped.
	ErrSecretUnwrap = errors.New("secret unwrap failed")
)
