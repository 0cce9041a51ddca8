package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
)

type hmacDigester struct {
	secret []byte
}

// NewHMACDigester returns a Digester computing hex(HMAC-SHA256(secret, base64(value))).
// Callers append the username (or the PIN parameter) to the value before digesting.
func NewHMACDigester(secret string) Digester {
	return &hmacDigester{secret: []byte(secret)}
}

func (d *hmacDigester) Digest(value string) string {
	mac := hmac.New(sha256.New, d.secret)
	mac.Write([]byte(base64.StdEncoding.EncodeToString([]byte(value))))
	return hex.EncodeToString(mac.Sum(nil))
}
