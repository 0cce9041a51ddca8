// Package service provides the cryptographic services of the gateway: the hybrid
// envelope used on the wire, the field cipher used for cached session values, HMAC
// digests sent to the backend, and KMS unwrapping of configured secrets.
package service

import (
	"context"
	"crypto/rsa"

	cryptoDomain "github.com/allisson/txgateway/internal/crypto/domain"
)

// EnvelopeService opens inbound envelopes and seals outbound ones.
type EnvelopeService interface {
	// Open decrypts an inbound envelope with the gateway private key.
	// Any failure is reported as cryptoDomain.ErrEnvelopeDecode.
	Open(envelope *cryptoDomain.Envelope) (*cryptoDomain.Opened, error)

	// Seal encrypts plaintext under a fresh AES key for the given recipient.
	Seal(plaintext []byte, recipient *rsa.PublicKey) (*cryptoDomain.Envelope, error)

	// PublicKeyPEM returns the gateway public key in PEM form.
	PublicKeyPEM() []byte
}

// FieldCipher encrypts individual values written to the session cache.
type FieldCipher interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// Digester computes the keyed digests the backend expects for passwords and PINs.
type Digester interface {
	Digest(value string) string
}

// SecretResolver resolves configuration values that may be KMS-wrapped.
type SecretResolver interface {
	Resolve(ctx context.Context, value string) (string, error)
}
