package service

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// EncodeValue renders a value as the string stored in the session cache and
// encrypts it. Booleans and numbers are stringified, strings are kept verbatim
// and every other value is serialized as JSON.
func EncodeValue(cipher FieldCipher, value any) (string, error) {
	var plain string
	switch v := value.(type) {
	case string:
		plain = v
	case bool:
		plain = strconv.FormatBool(v)
	case json.Number:
		plain = v.String()
	case int, int32, int64, float32, float64, uint, uint32, uint64:
		plain = fmt.Sprint(v)
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return "", err
		}
		plain = string(raw)
	}
	return cipher.Encrypt(plain)
}

// DecodeValue decrypts a cached value and restores its structure. Valid JSON
// documents are decoded with numbers kept as json.Number, "true" and "false"
// become booleans and anything else is returned as a string.
func DecodeValue(cipher FieldCipher, ciphertext string) (any, error) {
	plain, err := cipher.Decrypt(ciphertext)
	if err != nil {
		return nil, err
	}
	return parseLoose(plain), nil
}

// DecodeText decrypts a cached value that was written as a string.
func DecodeText(cipher FieldCipher, ciphertext string) (string, error) {
	return cipher.Decrypt(ciphertext)
}

func parseLoose(plain string) any {
	switch plain {
	case "true":
		return true
	case "false":
		return false
	}

	dec := json.NewDecoder(strings.NewReader(plain))
	dec.UseNumber()
	var decoded any
	if err := dec.Decode(&decoded); err != nil {
		return plain
	}
	if _, err := dec.Token(); err != io.EOF {
		return plain
	}
	return decoded
}
