package flatmap

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFlatten(t *testing.T) {
	value := map[string]any{
		"username": "jdoe",
		"account":  map[string]any{"number": "0123", "limits": map[string]any{"daily": float64(100)}},
		"tags":     []any{"a", map[string]any{"b": "c"}},
		"empty":    map[string]any{},
		"none":     []any{},
	}

	tests := []struct {
		name       string
		keepArrays bool
		want       map[string]any
	}{
		{
			name:       "arrays indexed",
			keepArrays: false,
			want: map[string]any{
				"username":             "jdoe",
				"account.number":       "0123",
				"account.limits.daily": float64(100),
				"tags.0":               "a",
				"tags.1.b":             "c",
				"empty":                map[string]any{},
				"none":                 []any{},
			},
		},
		{
			name:       "arrays kept",
			keepArrays: true,
			want: map[string]any{
				"username":             "jdoe",
				"account.number":       "0123",
				"account.limits.daily": float64(100),
				"tags":                 []any{"a", map[string]any{"b": "c"}},
				"empty":                map[string]any{},
				"none":                 []any{},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Flatten(value, tt.keepArrays))
		})
	}

	assert.Empty(t, Flatten("scalar", false))
}

func TestUnflatten(t *testing.T) {
	flat := map[string]any{
		"field2":          "254700000000",
		"field127.name":   "jdoe",
		"items.0.id":      "x",
		"items.1.id":      "y",
		"map.1":           "not an array",
		"map.3":           "gap",
		"request.headers": map[string]any{},
	}

	want := map[string]any{
		"field2":   "254700000000",
		"field127": map[string]any{"name": "jdoe"},
		"items":    []any{map[string]any{"id": "x"}, map[string]any{"id": "y"}},
		"map":      map[string]any{"1": "not an array", "3": "gap"},
		"request":  map[string]any{"headers": map[string]any{}},
	}

	assert.Equal(t, want, Unflatten(flat))
}

func TestFlattenUnflattenIndexed(t *testing.T) {
	value := map[string]any{
		"a": map[string]any{"b": []any{"x", "y"}},
		"c": "d",
	}
	assert.Equal(t, value, Unflatten(Flatten(value, false)))
}

func TestGet(t *testing.T) {
	value := map[string]any{
		"result": map[string]any{"status": "00", "items": []any{"first"}},
	}

	got, ok := Get(value, "result.status")
	assert.True(t, ok)
	assert.Equal(t, "00", got)

	got, ok = Get(value, "result.items.0")
	assert.True(t, ok)
	assert.Equal(t, "first", got)

	_, ok = Get(value, "result.missing")
	assert.False(t, ok)

	_, ok = Get(value, "result.status.deeper")
	assert.False(t, ok)

	got, ok = Get(value, "")
	assert.True(t, ok)
	assert.Equal(t, value, got)
}
