package service

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	settingsDomain "github.com/allisson/txgateway/internal/settings/domain"
)

const (
	statusFieldCode   = "code"
	matchAnyButOK     = "!200"
	errorResponseData = "responseData"
	alternativeMarker = "|"
)

// evaluateStatus reports whether a decoded response satisfies the rule:
//
//   - "code" with "!200" among the matches is always a success
//   - "code" matches the HTTP status
//   - "a|b" succeeds when any listed top-level field holds a matching value
//   - anything else is a dotted path into the body
func evaluateStatus(rule settingsDomain.StatusRule, statusCode int, data any) bool {
	switch {
	case rule.Field == statusFieldCode:
		code := strconv.Itoa(statusCode)
		for _, m := range rule.Matches {
			if s, ok := m.(string); ok && s == matchAnyButOK {
				return true
			}
		}
		for _, m := range rule.Matches {
			if textOf(m) == code {
				return true
			}
		}
		return false

	case strings.Contains(rule.Field, alternativeMarker):
		obj, ok := data.(map[string]any)
		if !ok {
			return false
		}
		for _, field := range strings.Split(rule.Field, alternativeMarker) {
			if value, ok := obj[field]; ok && matches(rule.Matches, value) {
				return true
			}
		}
		return false

	default:
		value, ok := pickPath(data, rule.Field)
		return ok && matches(rule.Matches, value)
	}
}

// extractError returns the configured error text of a failed response.
func extractError(rule settingsDomain.StatusError, data any) any {
	if rule.Message == errorResponseData {
		return data
	}
	if rule.Message == "" {
		return nil
	}
	value, _ := pickPath(data, rule.Message)
	return value
}

// pickPath reads a dotted path from a decoded JSON value.
func pickPath(data any, path string) (any, bool) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, false
	}
	result := gjson.GetBytes(raw, path)
	if !result.Exists() {
		return nil, false
	}
	return result.Value(), true
}

// matches compares strictly by type: "00" does not match 0.
func matches(candidates []any, value any) bool {
	for _, c := range candidates {
		switch want := c.(type) {
		case string:
			if got, ok := value.(string); ok && got == want {
				return true
			}
		case float64:
			if got, ok := value.(float64); ok && got == want {
				return true
			}
		case bool:
			if got, ok := value.(bool); ok && got == want {
				return true
			}
		case nil:
			if value == nil {
				return true
			}
		}
	}
	return false
}
