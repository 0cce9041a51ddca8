package usecase

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/allisson/txgateway/internal/flatmap"
	settingsDomain "github.com/allisson/txgateway/internal/settings/domain"
	"github.com/allisson/txgateway/internal/template"
	"github.com/allisson/txgateway/internal/validation"
)

const (
	requestSettingsKey = "request-settings"
	tokenEndpointName  = "jwtToken"
	defaultSourceName  = "default"
	defaultHeaderName  = "default"
	fetchAuthorization = "fetch"
)

// Builder turns raw configuration hashes into a validated Tree.
type Builder struct {
	helpers  Registry
	adapters Registry
}

// NewBuilder creates a Builder validating against the given registries.
func NewBuilder(helpers, adapters Registry) *Builder {
	return &Builder{helpers: helpers, adapters: adapters}
}

// Build decodes and validates raw. Every failure wraps ErrConfiguration.
func (b *Builder) Build(raw settingsDomain.RawConfig) (*settingsDomain.Tree, error) {
	if len(raw.API) == 0 || len(raw.Services) == 0 {
		return nil, configErr("api and services hashes are required")
	}

	tree := &settingsDomain.Tree{
		Services:       raw.Services,
		Schemas:        map[string]*validation.Schema{},
		Code:           map[string]string{},
		Config:         raw.Config,
		StatusMessages: map[int]string{},
	}
	if tree.Config == nil {
		tree.Config = map[string]any{}
	}

	if err := b.decodeRequestSettings(raw.API, tree); err != nil {
		return nil, err
	}
	if err := decodeConfig(tree); err != nil {
		return nil, err
	}
	for alias, value := range raw.Code {
		name, ok := value.(string)
		if !ok {
			return nil, configErr("code %q must map to an adapter name", alias)
		}
		tree.Code[alias] = name
	}

	for _, name := range sortedKeys(raw.Services) {
		def, ok := raw.Services[name].(map[string]any)
		if !ok {
			return nil, configErr("service %q schema must be an object", name)
		}
		schema, err := validation.CompileSchema(def)
		if err != nil {
			return nil, configErr("service %q: %v", name, err)
		}
		tree.Schemas[name] = schema
	}

	tree.FlatConfig = flatmap.Flatten(tree.Config, false)

	if err := b.validate(tree); err != nil {
		return nil, err
	}
	return tree, nil
}

func (b *Builder) decodeRequestSettings(api map[string]any, tree *settingsDomain.Tree) error {
	rs, ok := api[requestSettingsKey].(map[string]any)
	if !ok {
		return configErr("api.%s is required", requestSettingsKey)
	}

	if tmpl, ok := rs["template"].(map[string]any); ok {
		tree.RequestSettings.Template = tmpl
	} else {
		tree.RequestSettings.Template = map[string]any{}
	}

	tree.RequestSettings.Headers = map[string]map[string]string{}
	if raw, ok := rs["headers"]; ok {
		if err := decodeInto(raw, &tree.RequestSettings.Headers); err != nil {
			return configErr("request-settings.headers: %v", err)
		}
	}

	tree.RequestSettings.Endpoints = map[string]*settingsDomain.Endpoint{}
	endpoints, _ := rs["endpoints"].(map[string]any)
	for name, raw := range endpoints {
		if name == tokenEndpointName {
			var te settingsDomain.TokenEndpoint
			if err := decodeInto(raw, &te); err != nil {
				return configErr("endpoint %q: %v", name, err)
			}
			tree.RequestSettings.JWTToken = &te
			continue
		}

		var endpoint settingsDomain.Endpoint
		if err := decodeInto(raw, &endpoint); err != nil {
			return configErr("endpoint %q: %v", name, err)
		}
		tree.RequestSettings.Endpoints[name] = &endpoint
	}
	return nil
}

func decodeConfig(tree *settingsDomain.Tree) error {
	cfg := tree.Config

	tree.Meta = map[string]any{}
	if meta, ok := cfg["meta-data"].(map[string]any); ok {
		tree.Meta = meta
	}

	if raw, ok := cfg["permissions"]; ok {
		if err := decodeInto(raw, &tree.Permissions); err != nil {
			return configErr("config.permissions: %v", err)
		}
	}

	tree.DataSources = map[string]string{}
	if raw, ok := cfg["data-sources"]; ok {
		if err := decodeInto(raw, &tree.DataSources); err != nil {
			return configErr("config.data-sources: %v", err)
		}
	}

	if messages, ok := cfg["status-messages"].(map[string]any); ok {
		for key, value := range messages {
			code, err := strconv.Atoi(key)
			if err != nil {
				return configErr("config.status-messages: invalid status %q", key)
			}
			text, ok := value.(string)
			if !ok {
				return configErr("config.status-messages: status %d must be text", code)
			}
			tree.StatusMessages[code] = text
		}
	}
	return nil
}

func (b *Builder) validate(tree *settingsDomain.Tree) error {
	rs := tree.RequestSettings

	if err := validFormat(tree.PayloadFormat()); err != nil {
		return configErr("meta-data.payload-format: %v", err)
	}
	if err := b.checkHelpers("request-settings.template", rs.Template); err != nil {
		return err
	}
	if rs.JWTToken != nil {
		if err := b.checkHelpers("endpoint \"jwtToken\"", rs.JWTToken.Data); err != nil {
			return err
		}
	}

	for profile, headers := range rs.Headers {
		if headers["Authorization"] != fetchAuthorization {
			continue
		}
		if rs.JWTToken == nil {
			return configErr("headers %q fetch a token but endpoint %q is missing", profile, tokenEndpointName)
		}
		if _, ok := tree.DataSources[tokenEndpointName]; !ok {
			return configErr("headers %q fetch a token but data source %q is missing", profile, tokenEndpointName)
		}
	}

	names := make([]string, 0, len(rs.Endpoints))
	for name := range rs.Endpoints {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		endpoint := rs.Endpoints[name]
		where := fmt.Sprintf("endpoint %q", name)

		if err := b.checkHelpers(where, endpoint.Request); err != nil {
			return err
		}
		if err := b.checkHelpers(where+" path-params", endpoint.PathParams); err != nil {
			return err
		}

		source := endpoint.OverrideSource
		if source == "" {
			source = defaultSourceName
		}
		if _, ok := tree.DataSources[source]; !ok {
			return configErr("%s: unknown data source %q", where, source)
		}
		if _, _, err := tree.ResolveSource(source); err != nil {
			return configErr("%s: %v", where, err)
		}

		if endpoint.OverrideHeaders != "" {
			if _, ok := rs.Headers[endpoint.OverrideHeaders]; !ok {
				return configErr("%s: unknown header profile %q", where, endpoint.OverrideHeaders)
			}
		}
		if endpoint.OverridePayloadFormat != "" {
			if err := validFormat(endpoint.OverridePayloadFormat); err != nil {
				return configErr("%s: %v", where, err)
			}
		}

		if endpoint.Response.Status.Field == "" {
			return configErr("%s: response status field is required", where)
		}
		if alias := endpoint.Response.Adapter; alias != "" {
			adapter, ok := tree.Code[alias]
			if !ok {
				return configErr("%s: adapter alias %q is not defined in code", where, alias)
			}
			if !b.adapters.Has(adapter) {
				return configErr("%s: adapter %q is not registered", where, adapter)
			}
		}
	}
	return nil
}

func (b *Builder) checkHelpers(where string, value any) error {
	for _, name := range template.ReferencedHelpers(value) {
		if !b.helpers.Has(name) {
			return configErr("%s: unknown helper %q", where, name)
		}
	}
	return nil
}

func validFormat(format string) error {
	switch format {
	case settingsDomain.PayloadFormatJSON, settingsDomain.PayloadFormatXML, settingsDomain.PayloadFormatBase64:
		return nil
	}
	return fmt.Errorf("unsupported payload format %q (want %s)", format, strings.Join([]string{
		settingsDomain.PayloadFormatJSON, settingsDomain.PayloadFormatXML, settingsDomain.PayloadFormatBase64,
	}, ", "))
}

// decodeInto converts a decoded JSON value into a typed structure.
func decodeInto(raw any, target any) error {
	data, err := json.Marshal(raw)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, target)
}

func configErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", settingsDomain.ErrConfiguration, fmt.Sprintf(format, args...))
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
