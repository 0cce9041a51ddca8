// Package domain defines the configuration tree that drives validation, request
// templating and response parsing.
package domain

import (
	"fmt"
	"strings"

	"github.com/allisson/txgateway/internal/validation"
)

// Payload formats accepted by "payload-format" and "override-payload-format".
const (
	PayloadFormatJSON   = "JSON"
	PayloadFormatXML    = "XML"
	PayloadFormatBase64 = "base64"
)

// Status codes reported to clients.
const (
	StatusSuccess         = 0
	StatusSchemaMissing   = 98
	StatusFailed          = 99
	StatusValidation      = 402
	StatusInternalFailure = 500
)

// DefaultStatusMessages are used when config "status-messages" does not override them.
var DefaultStatusMessages = map[int]string{
	StatusSuccess:         "Request processed successfully",
	StatusSchemaMissing:   "Schema does not exist",
	StatusFailed:          "Request could not be processed. Please try again",
	StatusValidation:      "Validation failed",
	StatusInternalFailure: "Internal server error",
}

// Permissions apply payload transformations to every backend call.
type Permissions struct {
	Encrypt bool `json:"encrypt"`
	Base64  bool `json:"base64"`
}

// StatusError describes how failures are reported.
type StatusError struct {
	// Message is a dotted path to the error text, or "responseData" for the whole body.
	Message       string `json:"message"`
	StatusMessage *int   `json:"statusMessage"`
}

// StatusRule decides whether a backend response is a success.
type StatusRule struct {
	// Field is "code" (HTTP status), a dotted path, or "a|b" alternatives.
	Field         string      `json:"field"`
	Matches       []any       `json:"matches"`
	StatusMessage int         `json:"statusMessage"`
	Error         StatusError `json:"error"`
}

// ResponseRule configures response parsing for an endpoint.
type ResponseRule struct {
	Status StatusRule `json:"status"`
	// Adapter is an alias resolved through the "code" mapping.
	Adapter string `json:"adapter"`
}

// Endpoint is the per-transaction-type request configuration.
type Endpoint struct {
	Request               map[string]any    `json:"request"`
	PathParams            map[string]any    `json:"path-params"`
	OverrideSource        string            `json:"override-source"`
	OverrideHeaders       string            `json:"override-headers"`
	OverridePayloadFormat string            `json:"override-payload-format"`
	IgnorePermissions     bool              `json:"ignorePermissions"`
	RemoveTemplate        bool              `json:"remove-template"`
	IncludeAllFields      bool              `json:"include-all-fields"`
	Response              ResponseRule      `json:"response"`
	Posthook              map[string]string `json:"posthook"`
}

// TokenEndpoint describes how bearer tokens are fetched for "Authorization: fetch".
type TokenEndpoint struct {
	Data     map[string]any    `json:"data"`
	Headers  map[string]string `json:"headers"`
	Response struct {
		Token struct {
			Field string `json:"field"`
		} `json:"token"`
	} `json:"response"`
}

// RequestSettings is the "request-settings" member of the api mapping.
type RequestSettings struct {
	Template  map[string]any
	Headers   map[string]map[string]string
	Endpoints map[string]*Endpoint
	JWTToken  *TokenEndpoint
}

// Tree is an immutable snapshot of the gateway configuration.
type Tree struct {
	RequestSettings RequestSettings
	Meta            map[string]any
	Permissions     Permissions
	DataSources     map[string]string
	Services        map[string]any
	Schemas         map[string]*validation.Schema
	Code            map[string]string
	// Config is the whole config mapping; FlatConfig is its dotted-key form.
	Config         map[string]any
	FlatConfig     map[string]any
	StatusMessages map[int]string
}

// Endpoint returns the configuration for a transaction type.
func (t *Tree) Endpoint(transactionType string) (*Endpoint, bool) {
	e, ok := t.RequestSettings.Endpoints[transactionType]
	return e, ok
}

// Schema returns the compiled validation schema for a transaction type.
func (t *Tree) Schema(transactionType string) (*validation.Schema, bool) {
	s, ok := t.Schemas[transactionType]
	return s, ok
}

// PayloadFormat returns the configured default payload format.
func (t *Tree) PayloadFormat() string {
	if f, ok := t.Meta["payload-format"].(string); ok && f != "" {
		return f
	}
	return PayloadFormatJSON
}

// StatusMessage returns the client text for a status code.
func (t *Tree) StatusMessage(code int) string {
	if msg, ok := t.StatusMessages[code]; ok {
		return msg
	}
	return DefaultStatusMessages[code]
}

// Headers returns a copy of a header profile.
func (t *Tree) Headers(profile string) map[string]string {
	out := map[string]string{}
	for k, v := range t.RequestSettings.Headers[profile] {
		out[k] = v
	}
	return out
}

// ResolveSource splits a "METHOD url" data source and applies baseURL to relative urls.
func (t *Tree) ResolveSource(name string) (method, url string, err error) {
	raw, ok := t.DataSources[name]
	if !ok {
		return "", "", fmt.Errorf("%w: %s", ErrUnknownSource, name)
	}
	return t.SplitSource(raw)
}

// SplitSource parses a raw "METHOD url" entry.
func (t *Tree) SplitSource(raw string) (method, url string, err error) {
	parts := strings.Fields(raw)
	switch len(parts) {
	case 1:
		method, url = "POST", parts[0]
	case 2:
		method, url = strings.ToUpper(parts[0]), parts[1]
	default:
		return "", "", fmt.Errorf("%w: malformed data source %q", ErrConfiguration, raw)
	}

	if base := t.DataSources["baseURL"]; base != "" && !strings.HasPrefix(url, "http") {
		url = base + url
	}
	return method, url, nil
}

// Names of the configuration hashes.
const (
	HashAPI      = "api"
	HashServices = "services"
	HashConfig   = "config"
	HashCode     = "code"
)

// RawConfig holds the four configuration hashes as stored in the cache.
type RawConfig struct {
	API      map[string]any `json:"api"`
	Services map[string]any `json:"services"`
	Config   map[string]any `json:"config"`
	Code     map[string]any `json:"code"`
}

// Hashes returns the hashes keyed by name.
func (r RawConfig) Hashes() map[string]map[string]any {
	return map[string]map[string]any{
		HashAPI:      r.API,
		HashServices: r.Services,
		HashConfig:   r.Config,
		HashCode:     r.Code,
	}
}
