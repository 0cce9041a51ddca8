package service

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"encoding/base64"
	"fmt"

	cryptoDomain "github.com/allisson/txgateway/internal/crypto/domain"
)

// ecbFieldCipher encrypts values with AES in ECB mode and PKCS#7 padding.
//
// The mode is deterministic so equal plaintexts produce equal ciphertexts. Cached
// session values are looked up and compared by their decrypted form only, and the
// backend payload cipher shares this construction with its counterpart.
type ecbFieldCipher struct {
	block cipher.Block
}

// NewFieldCipher builds a FieldCipher keyed by secret. Secrets of 16, 24 or 32
// bytes are used as the AES key directly; any other length is hashed with SHA-256.
func NewFieldCipher(secret string) (FieldCipher, error) {
	if secret == "" {
		return nil, fmt.Errorf("%w: empty secret", cryptoDomain.ErrInvalidKeySize)
	}

	key := []byte(secret)
	switch len(key) {
	case 16, 24, 32:
	default:
		sum := sha256.Sum256(key)
		key = sum[:]
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", cryptoDomain.ErrInvalidKeySize, err)
	}
	return &ecbFieldCipher{block: block}, nil
}

// Encrypt returns the base64 ciphertext of plaintext.
func (c *ecbFieldCipher) Encrypt(plaintext string) (string, error) {
	size := c.block.BlockSize()
	padded := pkcs7Pad([]byte(plaintext), size)
	out := make([]byte, len(padded))
	for i := 0; i < len(padded); i += size {
		c.block.Encrypt(out[i:i+size], padded[i:i+size])
	}
	return base64.StdEncoding.EncodeToString(out), nil
}

// Decrypt reverses Encrypt.
func (c *ecbFieldCipher) Decrypt(ciphertext string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("%w: %v", cryptoDomain.ErrFieldDecode, err)
	}

	size := c.block.BlockSize()
	if len(raw) == 0 || len(raw)%size != 0 {
		return "", cryptoDomain.ErrFieldDecode
	}

	out := make([]byte, len(raw))
	for i := 0; i < len(raw); i += size {
		c.block.Decrypt(out[i:i+size], raw[i:i+size])
	}

	plaintext, err := pkcs7Unpad(out, size)
	if err != nil {
		return "", cryptoDomain.ErrFieldDecode
	}
	return string(plaintext), nil
}
