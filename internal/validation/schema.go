package validation

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	validation "github.com/jellydator/validation"
)

// ErrInvalidSchema indicates a schema definition could not be compiled.
var ErrInvalidSchema = errors.New("invalid schema")

// Schema validates decoded JSON objects against a compiled field definition.
//
// Definitions use a compact language: each key maps to either a type shorthand
// ("string", "number|optional", "string|min:3|max:10") or an object with a "type"
// member and options (optional, min, max, length, pattern, values, empty, positive,
// integer, numeric, convert, props, items, value). A list of definitions accepts a
// value matching any of them. Keys starting with "$$" are reserved and ignored.
type Schema struct {
	rules validation.MapRule
	keys  []string
}

// CompileSchema builds a Schema from its definition.
func CompileSchema(def map[string]any) (*Schema, error) {
	keys := make([]string, 0, len(def))
	for key := range def {
		if strings.HasPrefix(key, "$$") {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	keyRules := make([]*validation.KeyRules, 0, len(keys))
	for _, key := range keys {
		field, err := compileField(def[key])
		if err != nil {
			return nil, fmt.Errorf("%w: field %q: %v", ErrInvalidSchema, key, err)
		}
		kr := validation.Key(key, field.rules...)
		if field.optional {
			kr = kr.Optional()
		}
		keyRules = append(keyRules, kr)
	}

	return &Schema{rules: validation.Map(keyRules...).AllowExtraKeys(), keys: keys}, nil
}

// Validate checks data and returns validation.Errors on failure.
func (s *Schema) Validate(data map[string]any) error {
	if data == nil {
		data = map[string]any{}
	}
	return s.rules.Validate(data)
}

// FirstError renders the first (by key order) failure of a validation error.
func FirstError(err error) string {
	var errs validation.Errors
	if !errors.As(err, &errs) {
		return err.Error()
	}

	keys := make([]string, 0, len(errs))
	for key := range errs {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if errs[key] == nil {
			continue
		}
		return fmt.Sprintf("%s: %s", key, FirstError(errs[key]))
	}
	return err.Error()
}

type compiledField struct {
	optional bool
	rules    []validation.Rule
}

func compileField(def any) (*compiledField, error) {
	switch d := def.(type) {
	case string:
		return compileField(parseShorthand(d))
	case []any:
		return compileAlternatives(d)
	case map[string]any:
		return compileObjectDef(d)
	default:
		return nil, fmt.Errorf("unsupported definition %T", def)
	}
}

// parseShorthand turns "string|optional|min:3" into its object form.
func parseShorthand(def string) map[string]any {
	parts := strings.Split(def, "|")
	out := map[string]any{"type": strings.TrimSpace(parts[0])}
	for _, part := range parts[1:] {
		part = strings.TrimSpace(part)
		name, value, hasValue := strings.Cut(part, ":")
		if !hasValue {
			out[name] = true
			continue
		}
		if n, err := strconv.ParseFloat(value, 64); err == nil {
			out[name] = n
			continue
		}
		switch value {
		case "true":
			out[name] = true
		case "false":
			out[name] = false
		default:
			out[name] = value
		}
	}
	return out
}

func compileAlternatives(defs []any) (*compiledField, error) {
	if len(defs) == 0 {
		return nil, fmt.Errorf("empty alternatives")
	}

	alternatives := make([]*compiledField, 0, len(defs))
	optional := false
	for _, def := range defs {
		field, err := compileField(def)
		if err != nil {
			return nil, err
		}
		optional = optional || field.optional
		alternatives = append(alternatives, field)
	}

	rule := validation.By(func(value any) error {
		var last error
		for _, alt := range alternatives {
			if last = validation.Validate(value, alt.rules...); last == nil {
				return nil
			}
		}
		return last
	})
	return &compiledField{optional: optional, rules: []validation.Rule{rule}}, nil
}

func compileObjectDef(def map[string]any) (*compiledField, error) {
	typ, _ := def["type"].(string)
	if typ == "" {
		// A bare object is a nested schema.
		sub, err := CompileSchema(def)
		if err != nil {
			return nil, err
		}
		return &compiledField{rules: []validation.Rule{validation.NotNil, objectRule(sub)}}, nil
	}

	field := &compiledField{optional: boolOpt(def, "optional")}
	field.rules = append(field.rules, validation.NotNil)

	convert := boolOpt(def, "convert")
	minV, hasMin := numOpt(def, "min")
	maxV, hasMax := numOpt(def, "max")
	length, hasLength := numOpt(def, "length")

	switch typ {
	case "string":
		field.rules = append(field.rules, typeRule("string", isString))
		if allowEmpty, ok := def["empty"].(bool); ok && !allowEmpty {
			field.rules = append(field.rules, validation.Required)
		}
		if hasMin || hasMax {
			field.rules = append(field.rules, lengthRule(intOr(minV, hasMin, 0), intOr(maxV, hasMax, 0), runeCount))
		}
		if hasLength {
			field.rules = append(field.rules, lengthRule(int(length), int(length), runeCount))
		}
		if pattern, ok := def["pattern"].(string); ok && pattern != "" {
			re, err := regexp.Compile(pattern)
			if err != nil {
				return nil, fmt.Errorf("invalid pattern: %v", err)
			}
			field.rules = append(field.rules, validation.Match(re))
		}
		if boolOpt(def, "numeric") {
			field.rules = append(field.rules, Numeric)
		}
	case "email":
		field.rules = append(field.rules, typeRule("string", isString), Email)
	case "number":
		field.rules = append(field.rules, numberRule(convert, numberBounds{
			min: minV, hasMin: hasMin, max: maxV, hasMax: hasMax,
			positive: boolOpt(def, "positive"), integer: boolOpt(def, "integer"),
		}))
	case "boolean":
		field.rules = append(field.rules, typeRule("boolean", func(v any) bool {
			if _, ok := v.(bool); ok {
				return true
			}
			s, ok := v.(string)
			return convert && ok && (s == "true" || s == "false")
		}))
	case "object":
		field.rules = append(field.rules, typeRule("object", isObject))
		if props, ok := def["props"].(map[string]any); ok {
			sub, err := CompileSchema(props)
			if err != nil {
				return nil, err
			}
			field.rules = append(field.rules, objectRule(sub))
		}
	case "array":
		field.rules = append(field.rules, typeRule("array", isArray))
		if hasMin || hasMax {
			field.rules = append(field.rules, lengthRule(intOr(minV, hasMin, 0), intOr(maxV, hasMax, 0), itemCount))
		}
		if hasLength {
			field.rules = append(field.rules, lengthRule(int(length), int(length), itemCount))
		}
		if items, ok := def["items"]; ok {
			itemField, err := compileField(items)
			if err != nil {
				return nil, err
			}
			field.rules = append(field.rules, validation.Each(itemField.rules...))
		}
	case "enum":
		values, ok := def["values"].([]any)
		if !ok || len(values) == 0 {
			return nil, fmt.Errorf("enum requires values")
		}
		field.rules = append(field.rules, validation.In(values...).Error("must be one of the allowed values"))
	case "equal":
		expected := def["value"]
		field.rules = append(field.rules, validation.By(func(value any) error {
			if !reflect.DeepEqual(value, expected) {
				return validation.NewError("validation_equal", fmt.Sprintf("must be equal to %v", expected))
			}
			return nil
		}))
	case "date":
		field.rules = append(field.rules, validation.By(func(value any) error {
			if _, ok := parseDate(value, convert); !ok {
				return validation.NewError("validation_date", "must be a valid date")
			}
			return nil
		}))
	case "any":
		field.rules = []validation.Rule{}
	default:
		return nil, fmt.Errorf("unknown type %q", typ)
	}

	if field.optional {
		inner := field.rules
		field.rules = []validation.Rule{validation.By(func(value any) error {
			if value == nil {
				return nil
			}
			return validation.Validate(value, inner...)
		})}
	}
	return field, nil
}

type numberBounds struct {
	min, max          float64
	hasMin, hasMax    bool
	positive, integer bool
}

func numberRule(convert bool, b numberBounds) validation.Rule {
	return validation.By(func(value any) error {
		n, ok := toNumber(value, convert)
		if !ok {
			return validation.NewError("validation_number", "must be a number")
		}
		if b.positive && n <= 0 {
			return validation.NewError("validation_positive", "must be a positive number")
		}
		if b.integer && n != math.Trunc(n) {
			return validation.NewError("validation_integer", "must be an integer")
		}
		if b.hasMin && n < b.min {
			return validation.NewError("validation_min", fmt.Sprintf("must be no less than %v", b.min))
		}
		if b.hasMax && n > b.max {
			return validation.NewError("validation_max", fmt.Sprintf("must be no greater than %v", b.max))
		}
		return nil
	})
}

func objectRule(sub *Schema) validation.Rule {
	return validation.By(func(value any) error {
		obj, ok := value.(map[string]any)
		if !ok {
			return validation.NewError("validation_object", "must be an object")
		}
		return sub.Validate(obj)
	})
}

func typeRule(name string, check func(any) bool) validation.Rule {
	return validation.By(func(value any) error {
		if !check(value) {
			return validation.NewError("validation_type_"+name, "must be a "+name)
		}
		return nil
	})
}

// lengthRule bounds the size of a value, empty ones included. A zero max
// leaves the upper bound open.
func lengthRule(minLen, maxLen int, size func(any) int) validation.Rule {
	return validation.By(func(value any) error {
		n := size(value)
		switch {
		case maxLen > 0 && minLen == maxLen && n != minLen:
			return validation.NewError("validation_length_invalid", fmt.Sprintf("the length must be exactly %d", minLen))
		case n < minLen:
			return validation.NewError("validation_length_too_short", fmt.Sprintf("the length must be no less than %d", minLen))
		case maxLen > 0 && n > maxLen:
			return validation.NewError("validation_length_too_long", fmt.Sprintf("the length must be no more than %d", maxLen))
		}
		return nil
	})
}

func runeCount(v any) int {
	s, _ := v.(string)
	return utf8.RuneCountInString(s)
}

func itemCount(v any) int {
	items, _ := v.([]any)
	return len(items)
}

func toNumber(value any, convert bool) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case interface{ Float64() (float64, error) }:
		f, err := v.Float64()
		return f, err == nil
	case string:
		if !convert {
			return 0, false
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	}
	return 0, false
}

func parseDate(value any, convert bool) (time.Time, bool) {
	switch v := value.(type) {
	case time.Time:
		return v, true
	case string:
		for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
			if t, err := time.Parse(layout, v); err == nil {
				return t, true
			}
		}
	case float64:
		if convert {
			return time.UnixMilli(int64(v)), true
		}
	}
	return time.Time{}, false
}

func isString(v any) bool {
	_, ok := v.(string)
	return ok
}

func isObject(v any) bool {
	_, ok := v.(map[string]any)
	return ok
}

func isArray(v any) bool {
	_, ok := v.([]any)
	return ok
}

func boolOpt(def map[string]any, name string) bool {
	b, _ := def[name].(bool)
	return b
}

func numOpt(def map[string]any, name string) (float64, bool) {
	switch v := def[name].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	}
	return 0, false
}

func intOr(v float64, ok bool, fallback int) int {
	if !ok {
		return fallback
	}
	return int(v)
}
