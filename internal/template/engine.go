// Package template resolves request templates against a transaction payload.
//
// Resolution runs seven ordered passes over the template. Every pass boundary
// serializes the working document to JSON and parses it back, so each pass sees
// plain JSON values:
//
//  1. payload substitution of "__name", "__name__" and "__name:..." tokens
//  2. unresolved tokens become empty strings
//  3. helper invocation ("construct;m", "<arg>:create;m", "create;m=arg", ...)
//  4. self references "%@key"
//  5. inline "%@key" and "@name" references inside composite strings
//  6. metadata lookups "get;key"
//  7. configuration lookups "config;dot.path"
//
// Leaves filled entirely by a payload value are data. Passes 3 to 7 leave them
// untouched, so a client cannot smuggle a directive into the document.
package template

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/allisson/txgateway/internal/flatmap"
)

// Context carries the lookups available to a resolution besides the payload.
type Context struct {
	// Meta backs "get;key" lookups.
	Meta map[string]any
	// Config backs "config;dot.path" lookups. Nested or dotted keys are both accepted.
	Config map[string]any
}

// Engine resolves templates. It is safe for concurrent use.
type Engine struct {
	helpers *Registry
}

// NewEngine creates an Engine bound to a helper registry.
func NewEngine(helpers *Registry) *Engine {
	return &Engine{helpers: helpers}
}

// Resolve returns a new document built from tmpl and payload. The inputs are not
// modified. Any failure, including a panic in a helper, is reported as
// ErrTemplateResolution.
func (e *Engine) Resolve(tmpl, payload map[string]any, rc Context) (out map[string]any, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, fmt.Errorf("%w: %v", ErrTemplateResolution, r)
		}
	}()

	if payload == nil {
		payload = map[string]any{}
	}
	payload, err = normalize(payload)
	if err != nil {
		return nil, err
	}
	doc, err := normalize(tmpl)
	if err != nil {
		return nil, err
	}

	params := flatmap.Flatten(payload, true)

	// Passes 1 and 2 share the token list: resolved tokens get their value,
	// unresolved ones are blanked.
	filled := dataPaths{}
	doc = substituteTokens(doc, params, payload, filled)
	if doc, err = normalize(doc); err != nil {
		return nil, err
	}

	flat := flatmap.Flatten(doc, false)
	if flat, err = e.invokeHelpers(flat, payload, filled); err != nil {
		return nil, err
	}
	if flat, err = renormalize(flat); err != nil {
		return nil, err
	}

	flat = resolveSelfReferences(flat, filled)
	if flat, err = renormalize(flat); err != nil {
		return nil, err
	}

	flat = resolveInlineReferences(flat, params, filled)
	if flat, err = renormalize(flat); err != nil {
		return nil, err
	}

	flat = resolvePrefixed(flat, filled, metaPrefix, func(key string) (any, bool) {
		v, ok := rc.Meta[key]
		return v, ok
	})
	if flat, err = renormalize(flat); err != nil {
		return nil, err
	}

	flatConfig := flatmap.Flatten(rc.Config, false)
	flat = resolvePrefixed(flat, filled, configPrefix, func(path string) (any, bool) {
		if v, ok := flatConfig[path]; ok {
			return v, true
		}
		if v, ok := rc.Config[path]; ok {
			return v, true
		}
		return flatmap.Get(rc.Config, path)
	})

	return normalize(flatmap.Unflatten(flat))
}

func substituteTokens(doc, params, payload map[string]any, filled dataPaths) map[string]any {
	tokens := collectTokens(flatmap.Flatten(doc, false))
	if len(tokens) == 0 {
		return doc
	}

	type substitution struct {
		target string
		value  any
		found  bool
	}
	subs := make([]substitution, 0, len(tokens))
	for _, tok := range tokens {
		value, found := params[tok.name]
		if !found {
			value, found = payload[tok.name]
		}
		target := tok.text
		if found && tok.name != strings.TrimPrefix(tok.text, tokenMarker) {
			// Qualified tokens only substitute their name and keep the qualifier.
			target = tokenMarker + tok.name
		}
		subs = append(subs, substitution{target: target, value: value, found: found})
	}

	var walk func(v any, path string) any
	walk = func(v any, path string) any {
		switch t := v.(type) {
		case map[string]any:
			out := make(map[string]any, len(t))
			for k, child := range t {
				out[k] = walk(child, joinPath(path, k))
			}
			return out
		case []any:
			out := make([]any, len(t))
			for i, child := range t {
				out[i] = walk(child, joinPath(path, strconv.Itoa(i)))
			}
			return out
		case string:
			for _, sub := range subs {
				if !strings.Contains(t, sub.target) {
					continue
				}
				if !sub.found {
					t = replaceToken(t, sub.target, "")
					continue
				}
				if t == sub.target || t == sub.target+tokenMarker {
					filled.add(path)
					// The token fills the whole string: keep the value's own type for
					// objects, arrays and null.
					switch sub.value.(type) {
					case map[string]any, []any, nil:
						return sub.value
					}
					return stringify(sub.value)
				}
				t = replaceToken(t, sub.target, stringify(sub.value))
			}
			return t
		default:
			return v
		}
	}
	return walk(doc, "").(map[string]any)
}

// replaceToken replaces every occurrence of target that ends on an identifier
// boundary, consuming a closing "__" when one follows.
func replaceToken(s, target, value string) string {
	var b strings.Builder
	for {
		idx := strings.Index(s, target)
		if idx < 0 {
			b.WriteString(s)
			return b.String()
		}
		end := idx + len(target)
		rest := s[end:]

		switch {
		case strings.HasPrefix(rest, tokenMarker) && (len(rest) == 2 || !isIdentChar(rest[2])):
			b.WriteString(s[:idx])
			b.WriteString(value)
			s = rest[2:]
		case strings.HasPrefix(rest, tokenMarker):
			// "__a__b": the marker opens the next token.
			b.WriteString(s[:idx])
			b.WriteString(value)
			s = rest
		case rest != "" && (isIdentChar(rest[0]) || rest[0] == '_'):
			b.WriteString(s[:end])
			s = rest
		default:
			b.WriteString(s[:idx])
			b.WriteString(value)
			s = rest
		}
	}
}

func isIdentChar(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '.' || c == '-'
}

func (e *Engine) invokeHelpers(flat, payload map[string]any, filled dataPaths) (map[string]any, error) {
	out := copyMap(flat)
	for _, key := range sortedKeys(flat) {
		s, ok := flat[key].(string)
		if !ok || filled.has(key) {
			continue
		}
		inv, ok := parseHelper(s)
		if !ok {
			continue
		}

		call := HelperCall{Payload: payload}
		switch {
		case inv.hasInline:
			call.Arg, call.HasArg = inv.inline, true
		case inv.hasPrefix && strings.HasPrefix(inv.prefix, selfRefMarker):
			call.Arg, call.HasArg = lookupRef(out, strings.TrimPrefix(inv.prefix, selfRefMarker)), true
		case inv.hasPrefix:
			call.Arg, call.HasArg = inv.prefix, true
		}
		if inv.kind == helperCreate && !call.HasArg {
			call.Payload = nil
		}

		result, err := e.helpers.Call(inv.method, call)
		if err != nil {
			return nil, err
		}

		if obj, ok := result.(map[string]any); ok {
			for k, v := range obj {
				out[k] = v
			}
			out[key] = obj[inv.method]
			continue
		}
		out[key] = result
	}
	return out, nil
}

func resolveSelfReferences(flat map[string]any, filled dataPaths) map[string]any {
	out := copyMap(flat)
	for _, key := range sortedKeys(flat) {
		s, ok := out[key].(string)
		if !ok || filled.has(key) || !strings.HasPrefix(s, selfRefMarker) || strings.ContainsAny(s, " \t\n") {
			continue
		}
		ref := strings.TrimPrefix(s, selfRefMarker)
		if v := lookupRef(out, ref); v != nil {
			out[key] = v
			filled.copy(ref, key)
			continue
		}
		out[key] = ""
	}
	return out
}

func resolveInlineReferences(flat, params map[string]any, filled dataPaths) map[string]any {
	out := copyMap(flat)
	for _, key := range sortedKeys(flat) {
		s, ok := flat[key].(string)
		if !ok || filled.has(key) || !strings.Contains(s, payloadRefMark) {
			continue
		}

		parts := strings.Split(s, " ")
		changed := false
		for i, part := range parts {
			var source map[string]any
			var body string
			fromPayload := false
			switch {
			case strings.HasPrefix(part, selfRefMarker):
				source, body = flat, strings.TrimPrefix(part, selfRefMarker)
			case strings.HasPrefix(part, payloadRefMark):
				source, body, fromPayload = params, strings.TrimPrefix(part, payloadRefMark), true
			default:
				continue
			}

			ident, rest := referenceIdentifier(body)
			if ident == "" {
				continue
			}
			value := ""
			if v, ok := source[ident]; ok && v != nil {
				value = stringify(v)
			}
			parts[i] = value + rest
			changed = true
			if len(parts) == 1 && rest == "" {
				if fromPayload {
					filled.add(key)
				} else {
					filled.copy(ident, key)
				}
			}
		}

		if changed {
			out[key] = strings.ReplaceAll(strings.Join(parts, " "), undefinedText, "")
		}
	}
	return out
}

func resolvePrefixed(flat map[string]any, filled dataPaths, prefix string, lookup func(string) (any, bool)) map[string]any {
	out := copyMap(flat)
	for key, value := range flat {
		s, ok := value.(string)
		if !ok || filled.has(key) || !strings.HasPrefix(s, prefix) {
			continue
		}
		if v, ok := lookup(strings.TrimPrefix(s, prefix)); ok {
			out[key] = v
			continue
		}
		out[key] = ""
	}
	return out
}

// dataPaths records the flat keys whose value came from the payload. A recorded
// key also covers every key below it.
type dataPaths map[string]bool

func (d dataPaths) add(key string) { d[key] = true }

func (d dataPaths) has(key string) bool {
	for {
		if d[key] {
			return true
		}
		idx := strings.LastIndexByte(key, '.')
		if idx < 0 {
			return false
		}
		key = key[:idx]
	}
}

// copy marks dst as data wherever src, or anything below it, is data.
func (d dataPaths) copy(src, dst string) {
	if d.has(src) {
		d.add(dst)
		return
	}
	var below []string
	for key := range d {
		if rest, ok := strings.CutPrefix(key, src+"."); ok {
			below = append(below, dst+"."+rest)
		}
	}
	for _, key := range below {
		d.add(key)
	}
}

func joinPath(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

// lookupRef resolves a dotted key against the flat document, falling back to
// the nested form so "%@field127" can address a whole object.
func lookupRef(flat map[string]any, ref string) any {
	if v, ok := flat[ref]; ok {
		return v
	}
	if v, ok := flatmap.Get(flatmap.Unflatten(flat), ref); ok {
		return v
	}
	return nil
}

// stringify renders a value the way it appears inside a string.
func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		raw, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(raw)
	}
}

// normalize round-trips v through JSON, keeping numbers as json.Number.
func normalize(v any) (map[string]any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTemplateResolution, err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var out map[string]any
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTemplateResolution, err)
	}
	if out == nil {
		out = map[string]any{}
	}
	return out, nil
}

func renormalize(flat map[string]any) (map[string]any, error) {
	doc, err := normalize(flatmap.Unflatten(flat))
	if err != nil {
		return nil, err
	}
	return flatmap.Flatten(doc, false), nil
}

func copyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
