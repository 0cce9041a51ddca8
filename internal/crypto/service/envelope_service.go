package service

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"

	cryptoDomain "github.com/allisson/txgateway/internal/crypto/domain"
)

type envelopeService struct {
	privateKey   *rsa.PrivateKey
	publicKeyPEM []byte
}

// NewEnvelopeService creates an EnvelopeService bound to the gateway key pair.
func NewEnvelopeService(privateKey *rsa.PrivateKey, publicKeyPEM []byte) EnvelopeService {
	return &envelopeService{privateKey: privateKey, publicKeyPEM: publicKeyPEM}
}

// Open decrypts the symmetric keys with RSA-OAEP-SHA256 and the data with AES-256-CBC.
func (s *envelopeService) Open(envelope *cryptoDomain.Envelope) (*cryptoDomain.Opened, error) {
	if envelope == nil || envelope.SecureKeys == "" || envelope.Data == "" {
		return nil, cryptoDomain.ErrEnvelopeDecode
	}

	wrapped, err := decodeSecureKeys(envelope.SecureKeys)
	if err != nil {
		return nil, cryptoDomain.ErrEnvelopeDecode
	}

	keyDoc, err := rsa.DecryptOAEP(sha256.New(), nil, s.privateKey, wrapped, nil)
	if err != nil {
		return nil, cryptoDomain.ErrEnvelopeDecode
	}
	defer cryptoDomain.Zero(keyDoc)

	var keys cryptoDomain.SymmetricKeys
	if err := json.Unmarshal(keyDoc, &keys); err != nil {
		return nil, cryptoDomain.ErrEnvelopeDecode
	}

	key, err := hex.DecodeString(keys.SecretKey)
	if err != nil || len(key) != cryptoDomain.EnvelopeKeySize {
		return nil, cryptoDomain.ErrEnvelopeDecode
	}
	defer cryptoDomain.Zero(key)

	iv, err := hex.DecodeString(keys.SecretIv)
	if err != nil || len(iv) != cryptoDomain.EnvelopeIVSize {
		return nil, cryptoDomain.ErrEnvelopeDecode
	}

	ciphertext, err := hex.DecodeString(envelope.Data)
	if err != nil {
		return nil, cryptoDomain.ErrEnvelopeDecode
	}

	plaintext, err := decryptCBC(key, iv, ciphertext)
	if err != nil {
		return nil, cryptoDomain.ErrEnvelopeDecode
	}

	opened := &cryptoDomain.Opened{Plaintext: plaintext}
	if envelope.PublicKey != "" {
		publicKey, err := ParseJWK(envelope.PublicKey)
		if err != nil {
			return nil, err
		}
		opened.PublicKey = publicKey
	}
	return opened, nil
}

// Seal encrypts plaintext under a fresh key and IV, wrapping them for recipient.
func (s *envelopeService) Seal(plaintext []byte, recipient *rsa.PublicKey) (*cryptoDomain.Envelope, error) {
	if recipient == nil {
		return nil, cryptoDomain.ErrInvalidPublicKey
	}

	key := make([]byte, cryptoDomain.EnvelopeKeySize)
	iv := make([]byte, cryptoDomain.EnvelopeIVSize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("%w: %v", cryptoDomain.ErrEnvelopeSeal, err)
	}
	defer cryptoDomain.Zero(key)
	if _, err := rand.Read(iv); err != nil {
		return nil, fmt.Errorf("%w: %v", cryptoDomain.ErrEnvelopeSeal, err)
	}

	ciphertext, err := encryptCBC(key, iv, plaintext)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", cryptoDomain.ErrEnvelopeSeal, err)
	}

	keyDoc, err := json.Marshal(cryptoDomain.SymmetricKeys{
		SecretKey: hex.EncodeToString(key),
		SecretIv:  hex.EncodeToString(iv),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", cryptoDomain.ErrEnvelopeSeal, err)
	}
	defer cryptoDomain.Zero(keyDoc)

	wrapped, err := rsa.EncryptOAEP(sha256.New(), rand.Reader, recipient, keyDoc, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", cryptoDomain.ErrEnvelopeSeal, err)
	}

	return &cryptoDomain.Envelope{
		SecureKeys: base64.StdEncoding.EncodeToString(wrapped),
		Data:       hex.EncodeToString(ciphertext),
	}, nil
}

func (s *envelopeService) PublicKeyPEM() []byte {
	return s.publicKeyPEM
}

// decodeSecureKeys accepts hex when every character is a hex digit, base64 otherwise.
func decodeSecureKeys(s string) ([]byte, error) {
	if isHex(s) {
		return hex.DecodeString(s)
	}
	return decodeBase64(s)
}

func isHex(s string) bool {
	if len(s) == 0 || len(s)%2 != 0 {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') && (c < 'A' || c > 'F') {
			return false
		}
	}
	return true
}
