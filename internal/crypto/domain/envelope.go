// Package domain defines the envelope message and key material shared by the
// crypto services.
package domain

import (
	"context"
	"crypto/rsa"
)

// Envelope is the hybrid-encrypted message exchanged with clients.
//
// Data is the hex-encoded AES-256-CBC ciphertext of the payload. SecureKeys is the
// RSA-OAEP-SHA256 ciphertext of a SymmetricKeys JSON document. PublicKey carries the
// sender's JWK so the gateway can seal the reply; it is only present on inbound messages.
type Envelope struct {
	SecureKeys string `json:"secureKeys"`
	Data       string `json:"data"`
	PublicKey  string `json:"publicKey,omitempty"`
}

// SymmetricKeys is the plaintext of Envelope.SecureKeys.
type SymmetricKeys struct {
	SecretKey string `json:"secretKey"`
	SecretIv  string `json:"secretIv"`
}

// Opened is the result of opening an inbound envelope.
type Opened struct {
	// Plaintext is the decrypted payload bytes (usually JSON).
	Plaintext []byte
	// PublicKey is the sender's key for the reply; nil when the envelope carried none.
	PublicKey *rsa.PublicKey
}

// KMSKeeper is the subset of *secrets.Keeper used to unwrap configured secrets.
type KMSKeeper interface {
	Encrypt(ctx context.Context, plaintext []byte) ([]byte, error)
	Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error)
	Close() error
}
