// Package flatmap converts nested JSON values to dotted-key maps and back.
package flatmap

import (
	"sort"
	"strconv"
	"strings"
)

// Flatten returns the leaves of value keyed by their dotted path ("a.b.0.c").
// With keepArrays set, arrays are kept whole as leaf values instead of being
// indexed. Empty objects and arrays are leaves. A non-container value yields an
// empty map.
func Flatten(value any, keepArrays bool) map[string]any {
	out := map[string]any{}
	flatten(out, "", value, keepArrays)
	return out
}

func flatten(out map[string]any, prefix string, value any, keepArrays bool) {
	switch v := value.(type) {
	case map[string]any:
		if len(v) == 0 && prefix != "" {
			out[prefix] = v
			return
		}
		for key, child := range v {
			flatten(out, join(prefix, key), child, keepArrays)
		}
	case []any:
		if prefix == "" {
			for i, child := range v {
				flatten(out, strconv.Itoa(i), child, keepArrays)
			}
			return
		}
		if keepArrays || len(v) == 0 {
			out[prefix] = v
			return
		}
		for i, child := range v {
			flatten(out, join(prefix, strconv.Itoa(i)), child, keepArrays)
		}
	default:
		if prefix != "" {
			out[prefix] = v
		}
	}
}

func join(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

// Unflatten rebuilds a nested value from dotted keys. Segments that are all
// integers under the same parent become arrays.
func Unflatten(flat map[string]any) map[string]any {
	root := map[string]any{}

	keys := make([]string, 0, len(flat))
	for key := range flat {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		parts := strings.Split(key, ".")
		node := root
		for i, part := range parts {
			if i == len(parts)-1 {
				if _, exists := node[part].(map[string]any); !exists {
					node[part] = flat[key]
				}
				break
			}
			child, ok := node[part].(map[string]any)
			if !ok {
				child = map[string]any{}
				node[part] = child
			}
			node = child
		}
	}

	for key, child := range root {
		root[key] = arrays(child)
	}
	return root
}

// arrays converts maps keyed 0..n-1 into slices, depth first.
func arrays(value any) any {
	m, ok := value.(map[string]any)
	if !ok {
		return value
	}
	for key, child := range m {
		m[key] = arrays(child)
	}
	if len(m) == 0 {
		return m
	}

	items := make([]any, len(m))
	for key, child := range m {
		idx, err := strconv.Atoi(key)
		if err != nil || idx < 0 || idx >= len(m) || strconv.Itoa(idx) != key {
			return m
		}
		items[idx] = child
	}
	return items
}

// Get returns the value at a dotted path inside value.
func Get(value any, path string) (any, bool) {
	if path == "" {
		return value, true
	}
	current := value
	for _, part := range strings.Split(path, ".") {
		switch node := current.(type) {
		case map[string]any:
			next, ok := node[part]
			if !ok {
				return nil, false
			}
			current = next
		case []any:
			idx, err := strconv.Atoi(part)
			if err != nil || idx < 0 || idx >= len(node) {
				return nil, false
			}
			current = node[idx]
		default:
			return nil, false
		}
	}
	return current, true
}
