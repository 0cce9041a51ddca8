package service

import (
	"fmt"

	cryptoService "github.com/allisson/txgateway/internal/crypto/service"
	sessionDomain "github.com/allisson/txgateway/internal/session/domain"
)

// textFields are written as strings and must come back byte for byte.
var textFields = map[string]bool{
	sessionDomain.FieldIPAddress:    true,
	sessionDomain.FieldAccessToken:  true,
	sessionDomain.FieldUsername:     true,
	sessionDomain.FieldTimestamp:    true,
	sessionDomain.FieldFloatAccount: true,
}

type recordCodec struct {
	cipher cryptoService.FieldCipher
}

// NewRecordCodec creates a RecordCodec that encrypts each field with cipher.
func NewRecordCodec(cipher cryptoService.FieldCipher) RecordCodec {
	return &recordCodec{cipher: cipher}
}

func (c *recordCodec) Encode(record *sessionDomain.Record) (map[string]any, error) {
	requestDetails := record.RequestDetails
	if requestDetails == nil {
		requestDetails = map[string]any{}
	}
	plain := map[string]any{
		sessionDomain.FieldIPAddress:      record.IPAddress,
		sessionDomain.FieldAccessToken:    record.AccessToken,
		sessionDomain.FieldUsername:       record.Username,
		sessionDomain.FieldTimestamp:      record.Timestamp,
		sessionDomain.FieldAccountDetails: record.AccountDetails,
		sessionDomain.FieldFloatAccount:   record.FloatAccount,
		sessionDomain.FieldRequestDetails: requestDetails,
	}

	out := make(map[string]any, len(plain))
	for field, value := range plain {
		encrypted, err := cryptoService.EncodeValue(c.cipher, value)
		if err != nil {
			return nil, fmt.Errorf("failed to encrypt session field %s: %w", field, err)
		}
		out[field] = encrypted
	}
	return out, nil
}

func (c *recordCodec) Decode(fields map[string]any) (*sessionDomain.Record, error) {
	values := make(map[string]any, len(fields))
	for field, raw := range fields {
		ciphertext, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("%w: field %s is not ciphertext", sessionDomain.ErrRecordDecode, field)
		}
		var value any
		var err error
		if textFields[field] {
			value, err = cryptoService.DecodeText(c.cipher, ciphertext)
		} else {
			value, err = cryptoService.DecodeValue(c.cipher, ciphertext)
		}
		if err != nil {
			return nil, fmt.Errorf("%w: field %s: %v", sessionDomain.ErrRecordDecode, field, err)
		}
		values[field] = value
	}

	record := &sessionDomain.Record{
		IPAddress:      text(values[sessionDomain.FieldIPAddress]),
		AccessToken:    text(values[sessionDomain.FieldAccessToken]),
		Username:       text(values[sessionDomain.FieldUsername]),
		Timestamp:      text(values[sessionDomain.FieldTimestamp]),
		FloatAccount:   text(values[sessionDomain.FieldFloatAccount]),
		AccountDetails: object(values[sessionDomain.FieldAccountDetails]),
		RequestDetails: object(values[sessionDomain.FieldRequestDetails]),
	}
	return record, nil
}

func text(v any) string {
	t, _ := v.(string)
	return t
}

func object(v any) map[string]any {
	if m, ok := v.(map[string]any); ok {
		return m
	}
	return map[string]any{}
}
