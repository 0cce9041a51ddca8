package domain

const (
	// EnvelopeKeySize is the AES-256 key size used for every sealed message.
	EnvelopeKeySize = 32

	// EnvelopeIVSize is the AES block size used as the CBC initialization vector.
	EnvelopeIVSize = 16

	// KMSSecretPrefix marks configuration values that are KMS-wrapped and base64 encoded.
	KMSSecretPrefix = "kms:"
)
