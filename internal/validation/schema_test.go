package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompileSchema(t *testing.T) {
	schema, err := CompileSchema(map[string]any{
		"$$strict":      true,
		"username":      "string|min:3|max:20",
		"email":         "email|optional",
		"amount":        map[string]any{"type": "number", "positive": true, "convert": true},
		"accountNumber": map[string]any{"type": "string", "numeric": true, "length": float64(10)},
		"channel":       map[string]any{"type": "enum", "values": []any{"WEB", "APP"}},
		"currency":      map[string]any{"type": "equal", "value": "KES"},
		"notify":        "boolean|optional",
		"beneficiaries": map[string]any{"type": "array", "min": float64(1), "items": "string"},
		"details":       map[string]any{"type": "object", "props": map[string]any{"ref": "string"}},
		"valueDate":     "date|optional",
		"narration":     map[string]any{"type": "string", "optional": true, "empty": false},
		"reference":     []any{"string", "number"},
		"metadata":      "any",
		"pin":           map[string]any{"type": "string", "pattern": "^[0-9]{4}$"},
		"quantity":      map[string]any{"type": "number", "integer": true, "min": float64(1), "max": float64(5)},
		"nested":        map[string]any{"code": "string"},
	})
	require.NoError(t, err)

	valid := func() map[string]any {
		return map[string]any{
			"username":      "jdoe",
			"amount":        "100.50",
			"accountNumber": "0123456789",
			"channel":       "WEB",
			"currency":      "KES",
			"beneficiaries": []any{"a"},
			"details":       map[string]any{"ref": "R1"},
			"reference":     float64(10),
			"metadata":      nil,
			"pin":           "1234",
			"quantity":      float64(2),
			"nested":        map[string]any{"code": "X"},
			"extra":         "allowed",
		}
	}

	tests := []struct {
		name    string
		mutate  func(map[string]any)
		wantErr string
	}{
		{name: "valid payload", mutate: func(map[string]any) {}},
		{name: "optional null", mutate: func(m map[string]any) { m["email"] = nil }},
		{name: "missing required", mutate: func(m map[string]any) { delete(m, "username") }, wantErr: "username"},
		{name: "string too short", mutate: func(m map[string]any) { m["username"] = "jd" }, wantErr: "username"},
		{name: "empty string below min", mutate: func(m map[string]any) { m["username"] = "" }, wantErr: "username"},
		{name: "string too long", mutate: func(m map[string]any) { m["username"] = strings.Repeat("j", 21) }, wantErr: "username"},
		{name: "empty string with length", mutate: func(m map[string]any) { m["accountNumber"] = "" }, wantErr: "accountNumber"},
		{name: "bad email", mutate: func(m map[string]any) { m["email"] = "nope" }, wantErr: "email"},
		{name: "negative amount", mutate: func(m map[string]any) { m["amount"] = float64(-1) }, wantErr: "amount"},
		{name: "amount not numeric", mutate: func(m map[string]any) { m["amount"] = "ten" }, wantErr: "amount"},
		{name: "account wrong length", mutate: func(m map[string]any) { m["accountNumber"] = "123" }, wantErr: "accountNumber"},
		{name: "enum mismatch", mutate: func(m map[string]any) { m["channel"] = "USSD" }, wantErr: "channel"},
		{name: "equal mismatch", mutate: func(m map[string]any) { m["currency"] = "USD" }, wantErr: "currency"},
		{name: "boolean type", mutate: func(m map[string]any) { m["notify"] = "yes" }, wantErr: "notify"},
		{name: "empty array", mutate: func(m map[string]any) { m["beneficiaries"] = []any{} }, wantErr: "beneficiaries"},
		{name: "array item type", mutate: func(m map[string]any) { m["beneficiaries"] = []any{float64(1)} }, wantErr: "beneficiaries"},
		{name: "object props", mutate: func(m map[string]any) { m["details"] = map[string]any{} }, wantErr: "details"},
		{name: "bad date", mutate: func(m map[string]any) { m["valueDate"] = "yesterday" }, wantErr: "valueDate"},
		{name: "good date", mutate: func(m map[string]any) { m["valueDate"] = "2024-01-31" }},
		{name: "empty narration", mutate: func(m map[string]any) { m["narration"] = "" }, wantErr: "narration"},
		{name: "alternative string", mutate: func(m map[string]any) { m["reference"] = "R" }},
		{name: "alternative mismatch", mutate: func(m map[string]any) { m["reference"] = true }, wantErr: "reference"},
		{name: "pattern mismatch", mutate: func(m map[string]any) { m["pin"] = "12a4" }, wantErr: "pin"},
		{name: "not integer", mutate: func(m map[string]any) { m["quantity"] = 1.5 }, wantErr: "quantity"},
		{name: "above max", mutate: func(m map[string]any) { m["quantity"] = float64(6) }, wantErr: "quantity"},
		{name: "nested schema", mutate: func(m map[string]any) { m["nested"] = map[string]any{"code": 1} }, wantErr: "nested"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := valid()
			tt.mutate(data)

			err := schema.Validate(data)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, FirstError(err), tt.wantErr)
		})
	}
}

func TestCompileSchema_EmptyValuesHonorBounds(t *testing.T) {
	tests := []struct {
		name    string
		def     any
		value   any
		wantErr bool
	}{
		{name: "empty string with min", def: map[string]any{"type": "string", "min": float64(10)}, value: "", wantErr: true},
		{name: "empty string with shorthand min", def: "string|min:1", value: "", wantErr: true},
		{name: "empty string with zero min", def: map[string]any{"type": "string", "min": float64(0)}, value: ""},
		{name: "empty string with max only", def: map[string]any{"type": "string", "max": float64(5)}, value: ""},
		{name: "empty array with min", def: map[string]any{"type": "array", "min": float64(1)}, value: []any{}, wantErr: true},
		{name: "empty array with length", def: map[string]any{"type": "array", "length": float64(2)}, value: []any{}, wantErr: true},
		{name: "array at length", def: map[string]any{"type": "array", "length": float64(2)}, value: []any{"a", "b"}},
		{name: "multibyte string at length", def: map[string]any{"type": "string", "length": float64(3)}, value: "äöü"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			schema, err := CompileSchema(map[string]any{"field": tt.def})
			require.NoError(t, err)

			err = schema.Validate(map[string]any{"field": tt.value})
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, FirstError(err), "field")
				return
			}
			assert.NoError(t, err)
		})
	}

	t.Run("both fields reported", func(t *testing.T) {
		schema, err := CompileSchema(map[string]any{
			"accountNumber": map[string]any{"type": "string", "min": float64(10)},
			"beneficiaries": map[string]any{"type": "array", "min": float64(1)},
		})
		require.NoError(t, err)

		err = schema.Validate(map[string]any{"accountNumber": "", "beneficiaries": []any{}})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "accountNumber")
		assert.Contains(t, err.Error(), "beneficiaries")
	})
}

func TestCompileSchema_Invalid(t *testing.T) {
	tests := []struct {
		name string
		def  map[string]any
	}{
		{name: "unknown type", def: map[string]any{"a": "uuid4"}},
		{name: "enum without values", def: map[string]any{"a": map[string]any{"type": "enum"}}},
		{name: "bad pattern", def: map[string]any{"a": map[string]any{"type": "string", "pattern": "("}}},
		{name: "unsupported definition", def: map[string]any{"a": float64(1)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CompileSchema(tt.def)
			assert.ErrorIs(t, err, ErrInvalidSchema)
		})
	}
}

func TestFirstError(t *testing.T) {
	schema, err := CompileSchema(map[string]any{"b": "string", "a": "string"})
	require.NoError(t, err)

	err = schema.Validate(nil)
	require.Error(t, err)
	assert.Contains(t, FirstError(err), "a: ")

	assert.Equal(t, assert.AnError.Error(), FirstError(assert.AnError))
}
