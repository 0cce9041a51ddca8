// Package service signs and verifies persisted audit records.
package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"

	auditDomain "github.com/allisson/txgateway/internal/audit/domain"
)

const signingInfo = "audit-log-signing-v1"

// Signer computes tamper-evidence signatures for audit records.
type Signer interface {
	Sign(record *auditDomain.Record) ([]byte, error)
	Verify(record *auditDomain.Record) error
}

type hmacSigner struct {
	key []byte
}

// NewHMACSigner derives a 32-byte signing key from ikm with HKDF-SHA256 and signs
// records with HMAC-SHA256.
func NewHMACSigner(ikm []byte) (Signer, error) {
	if len(ikm) == 0 {
		return nil, errors.New("audit signing key is empty")
	}

	reader := hkdf.New(sha256.New, ikm, nil, []byte(signingInfo))
	key := make([]byte, 32)
	if _, err := io.ReadFull(reader, key); err != nil {
		return nil, fmt.Errorf("failed to derive signing key: %w", err)
	}
	return &hmacSigner{key: key}, nil
}

// canonicalize renders id || kind || action || payload || created_at, with the
// variable-length fields length-prefixed.
func canonicalize(record *auditDomain.Record) []byte {
	buf := make([]byte, 0, 64+len(record.Payload))
	buf = append(buf, record.ID[:]...)
	buf = appendLengthPrefixed(buf, []byte(record.Kind))
	buf = appendLengthPrefixed(buf, []byte(record.Action))
	buf = appendLengthPrefixed(buf, record.Payload)
	buf = binary.BigEndian.AppendUint64(buf, uint64(record.CreatedAt.UnixMicro()))
	return buf
}

func appendLengthPrefixed(buf, data []byte) []byte {
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(data)))
	return append(buf, data...)
}

func (s *hmacSigner) Sign(record *auditDomain.Record) ([]byte, error) {
	if record == nil {
		return nil, errors.New("audit record is nil")
	}
	mac := hmac.New(sha256.New, s.key)
	mac.Write(canonicalize(record))
	return mac.Sum(nil), nil
}

// Verify returns ErrSignatureInvalid when the stored signature does not match.
func (s *hmacSigner) Verify(record *auditDomain.Record) error {
	expected, err := s.Sign(record)
	if err != nil {
		return err
	}
	if !hmac.Equal(record.Signature, expected) {
		return auditDomain.ErrSignatureInvalid
	}
	return nil
}
