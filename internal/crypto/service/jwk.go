package service

import (
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	cryptoDomain "github.com/allisson/txgateway/internal/crypto/domain"
)

// jwk holds the members of an RSA JSON Web Key needed for encryption.
type jwk struct {
	Kty string `json:"kty"`
	N   string `json:"n"`
	E   string `json:"e"`
	Alg string `json:"alg,omitempty"`
	Ext bool   `json:"ext,omitempty"`
}

// ParseJWK parses an RSA public JWK given either as JSON or as base64 of the JSON.
func ParseJWK(raw string) (*rsa.PublicKey, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, cryptoDomain.ErrInvalidPublicKey
	}

	doc := []byte(raw)
	if !strings.HasPrefix(raw, "{") {
		decoded, err := decodeBase64(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", cryptoDomain.ErrInvalidPublicKey, err)
		}
		doc = decoded
	}

	var key jwk
	if err := json.Unmarshal(doc, &key); err != nil {
		return nil, fmt.Errorf("%w: %v", cryptoDomain.ErrInvalidPublicKey, err)
	}
	if key.Kty != "RSA" {
		return nil, fmt.Errorf("%w: unsupported kty %q", cryptoDomain.ErrInvalidPublicKey, key.Kty)
	}

	n, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(key.N, "="))
	if err != nil || len(n) == 0 {
		return nil, fmt.Errorf("%w: bad modulus", cryptoDomain.ErrInvalidPublicKey)
	}
	e, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(key.E, "="))
	if err != nil || len(e) == 0 || len(e) > 4 {
		return nil, fmt.Errorf("%w: bad exponent", cryptoDomain.ErrInvalidPublicKey)
	}

	exponent := 0
	for _, b := range e {
		exponent = exponent<<8 | int(b)
	}

	return &rsa.PublicKey{N: new(big.Int).SetBytes(n), E: exponent}, nil
}

// MarshalJWK encodes key as an RSA-OAEP-256 JWK JSON document.
func MarshalJWK(key *rsa.PublicKey) (string, error) {
	e := big.NewInt(int64(key.E)).Bytes()
	raw, err := json.Marshal(jwk{
		Kty: "RSA",
		N:   base64.RawURLEncoding.EncodeToString(key.N.Bytes()),
		E:   base64.RawURLEncoding.EncodeToString(e),
		Alg: "RSA-OAEP-256",
		Ext: true,
	})
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// decodeBase64 accepts standard and URL alphabets, padded or not.
func decodeBase64(s string) ([]byte, error) {
	for _, enc := range []*base64.Encoding{
		base64.StdEncoding,
		base64.RawStdEncoding,
		base64.URLEncoding,
		base64.RawURLEncoding,
	} {
		if out, err := enc.DecodeString(s); err == nil {
			return out, nil
		}
	}
	return nil, fmt.Errorf("invalid base64")
}
