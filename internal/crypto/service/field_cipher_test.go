package service

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cryptoDomain "github.com/allisson/txgateway/internal/crypto/domain"
)

func TestFieldCipher(t *testing.T) {
	tests := []struct {
		name   string
		secret string
	}{
		{name: "ShortSecretIsHashed", secret: "s3cret"},
		{name: "AES128Secret", secret: "0123456789abcdef"},
		{name: "AES256Secret", secret: "0123456789abcdef0123456789abcdef"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cipher, err := NewFieldCipher(tt.secret)
			require.NoError(t, err)

			for _, plain := range []string{"", "jdoe", "a value longer than a single AES block"} {
				encrypted, err := cipher.Encrypt(plain)
				require.NoError(t, err)

				again, err := cipher.Encrypt(plain)
				require.NoError(t, err)
				assert.Equal(t, encrypted, again, "encryption is deterministic")

				decrypted, err := cipher.Decrypt(encrypted)
				require.NoError(t, err)
				assert.Equal(t, plain, decrypted)
			}
		})
	}
}

func TestFieldCipher_Errors(t *testing.T) {
	_, err := NewFieldCipher("")
	assert.ErrorIs(t, err, cryptoDomain.ErrInvalidKeySize)

	cipher, err := NewFieldCipher("s3cret")
	require.NoError(t, err)

	_, err = cipher.Decrypt("not base64!")
	assert.ErrorIs(t, err, cryptoDomain.ErrFieldDecode)

	_, err = cipher.Decrypt("YWJj")
	assert.ErrorIs(t, err, cryptoDomain.ErrFieldDecode)

	other, err := NewFieldCipher("another-secret")
	require.NoError(t, err)
	encrypted, err := other.Encrypt("jdoe")
	require.NoError(t, err)

	decrypted, err := cipher.Decrypt(encrypted)
	if err == nil {
		assert.NotEqual(t, "jdoe", decrypted)
	}
}

func TestDecodeText(t *testing.T) {
	cipher, err := NewFieldCipher("s3cret")
	require.NoError(t, err)

	for _, value := range []string{"1e3", "12345678901234567890", "true", "null", `{"a":1}`, ""} {
		t.Run(value, func(t *testing.T) {
			encoded, err := EncodeValue(cipher, value)
			require.NoError(t, err)

			decoded, err := DecodeText(cipher, encoded)
			require.NoError(t, err)
			assert.Equal(t, value, decoded)
		})
	}
}

func TestEncodeDecodeValue(t *testing.T) {
	cipher, err := NewFieldCipher("s3cret")
	require.NoError(t, err)

	tests := []struct {
		name  string
		value any
		want  any
	}{
		{name: "String", value: "jdoe", want: "jdoe"},
		{name: "True", value: true, want: true},
		{name: "False", value: false, want: false},
		{name: "Integer", value: 42, want: json.Number("42")},
		{name: "NumericString", value: "12345", want: json.Number("12345")},
		{name: "LargeNumberKeepsDigits", value: json.Number("12345678901234567890"), want: json.Number("12345678901234567890")},
		{name: "ExponentKeepsText", value: "1e3", want: json.Number("1e3")},
		{name: "TrailingData", value: "1 2", want: "1 2"},
		{name: "LeadingZeroStaysString", value: "0712345678", want: "0712345678"},
		{name: "Object", value: map[string]any{"agentInfo": map[string]any{"agentCode": "A1"}}, want: map[string]any{"agentInfo": map[string]any{"agentCode": "A1"}}},
		{name: "Array", value: []any{"a", "b"}, want: []any{"a", "b"}},
		{name: "Nil", value: nil, want: nil},
		{name: "NestedNumbers", value: map[string]any{"balance": json.Number("12345678901234567890")}, want: map[string]any{"balance": json.Number("12345678901234567890")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded, err := EncodeValue(cipher, tt.value)
			require.NoError(t, err)

			decoded, err := DecodeValue(cipher, encoded)
			require.NoError(t, err)
			assert.Equal(t, tt.want, decoded)
		})
	}
}
