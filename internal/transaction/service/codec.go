package service

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/clbanning/mxj/v2"

	settingsDomain "github.com/allisson/txgateway/internal/settings/domain"
	"github.com/allisson/txgateway/internal/template"
	transactionDomain "github.com/allisson/txgateway/internal/transaction/domain"
)

// encodeFormat serializes request data in the configured payload format.
// JSON data is returned unchanged and marshaled when the body is written.
func encodeFormat(format string, data map[string]any) (any, error) {
	switch format {
	case settingsDomain.PayloadFormatXML:
		return template.EncodeXML(data)
	case settingsDomain.PayloadFormatBase64:
		return template.EncodeBase64(data)
	default:
		return data, nil
	}
}

// applyPermissions encrypts and then base64 encodes the JSON text of data.
func applyPermissions(perm settingsDomain.Permissions, cipher PayloadCipher, data any) (any, error) {
	if perm.Encrypt {
		if cipher == nil {
			return nil, fmt.Errorf("%w: encrypt permission without a payload secret", transactionDomain.ErrConfiguration)
		}
		raw, err := json.Marshal(data)
		if err != nil {
			return nil, err
		}
		if data, err = cipher.Encrypt(string(raw)); err != nil {
			return nil, err
		}
	}
	if perm.Base64 {
		encoded, err := template.EncodeBase64(data)
		if err != nil {
			return nil, err
		}
		data = encoded
	}
	return data, nil
}

// decodeBody reverses applyPermissions (base64 first, then the cipher) and the
// payload format, returning a decoded JSON value or the text itself when it is
// not JSON.
func decodeBody(perm settingsDomain.Permissions, cipher PayloadCipher, format string, body []byte) (any, error) {
	text := string(body)

	if perm.Base64 {
		raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(unquote(text)))
		if err != nil {
			return nil, err
		}
		text = string(raw)
	}
	if perm.Encrypt {
		if cipher == nil {
			return nil, fmt.Errorf("%w: encrypt permission without a payload secret", transactionDomain.ErrConfiguration)
		}
		plain, err := cipher.Decrypt(unquote(text))
		if err != nil {
			return nil, err
		}
		text = plain
	}

	switch format {
	case settingsDomain.PayloadFormatXML:
		return decodeXML(unquote(text))
	case settingsDomain.PayloadFormatBase64:
		raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(unquote(text)))
		if err != nil {
			return nil, err
		}
		text = string(raw)
	}
	return fromJSON(text), nil
}

// decodeXML converts an XML document to an object, dropping a single root element.
func decodeXML(text string) (any, error) {
	m, err := mxj.NewMapXml([]byte(text))
	if err != nil {
		return nil, err
	}
	if len(m) == 1 {
		for _, root := range m {
			if obj, ok := root.(map[string]any); ok {
				return obj, nil
			}
		}
	}
	return map[string]any(m), nil
}

// fromJSON parses text as JSON, falling back to the text itself. A JSON string
// holding a JSON document is parsed once more.
func fromJSON(text string) any {
	var v any
	dec := json.NewDecoder(bytes.NewReader([]byte(text)))
	if err := dec.Decode(&v); err != nil || dec.More() {
		return text
	}
	if s, ok := v.(string); ok {
		var inner any
		if json.Unmarshal([]byte(s), &inner) == nil {
			switch inner.(type) {
			case map[string]any, []any:
				return inner
			}
		}
	}
	return v
}

func unquote(text string) string {
	trimmed := strings.TrimSpace(text)
	if len(trimmed) >= 2 && trimmed[0] == '"' {
		if s, err := strconv.Unquote(trimmed); err == nil {
			return s
		}
	}
	return text
}

// textOf renders a value the way it appears inside a URL, header or form field.
func textOf(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case json.Number:
		return t.String()
	default:
		raw, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(raw)
	}
}
