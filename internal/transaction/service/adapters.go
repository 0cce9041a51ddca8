package service

import (
	"fmt"
	"sort"
	"strings"

	"github.com/allisson/txgateway/internal/flatmap"
	transactionDomain "github.com/allisson/txgateway/internal/transaction/domain"
)

// Registered adapter names. The "code" configuration maps aliases to these.
const (
	AdapterPassthrough   = "passthrough"
	AdapterUnwrapData    = "unwrap-data"
	AdapterFirstElement  = "first-element"
	AdapterFlatten       = "flatten"
	AdapterLowercaseKeys = "lowercase-keys"
)

// Adapter reshapes a successful backend response.
type Adapter func(data any) (any, error)

// AdapterRegistry is the closed set of response adapters.
type AdapterRegistry struct {
	adapters map[string]Adapter
}

// NewAdapterRegistry returns a registry holding the built-in adapters.
func NewAdapterRegistry() *AdapterRegistry {
	return &AdapterRegistry{adapters: map[string]Adapter{
		AdapterPassthrough:   passthrough,
		AdapterUnwrapData:    unwrapData,
		AdapterFirstElement:  firstElement,
		AdapterFlatten:       flattenObject,
		AdapterLowercaseKeys: lowercaseKeys,
	}}
}

// Has reports whether name is registered.
func (r *AdapterRegistry) Has(name string) bool {
	_, ok := r.adapters[name]
	return ok
}

// Names lists the registered adapters.
func (r *AdapterRegistry) Names() []string {
	names := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Apply runs the named adapter.
func (r *AdapterRegistry) Apply(name string, data any) (any, error) {
	adapter, ok := r.adapters[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", transactionDomain.ErrUnknownAdapter, name)
	}
	return adapter(data)
}

func passthrough(data any) (any, error) {
	return data, nil
}

// unwrapData returns the "data" member of an object response.
func unwrapData(data any) (any, error) {
	obj, ok := data.(map[string]any)
	if !ok {
		return data, nil
	}
	if inner, ok := obj["data"]; ok {
		return inner, nil
	}
	return data, nil
}

func firstElement(data any) (any, error) {
	list, ok := data.([]any)
	if !ok || len(list) == 0 {
		return data, nil
	}
	return list[0], nil
}

// flattenObject rewrites nested objects as dotted keys.
func flattenObject(data any) (any, error) {
	obj, ok := data.(map[string]any)
	if !ok {
		return data, nil
	}
	return flatmap.Flatten(obj, true), nil
}

func lowercaseKeys(data any) (any, error) {
	obj, ok := data.(map[string]any)
	if !ok {
		return data, nil
	}
	out := make(map[string]any, len(obj))
	for k, v := range obj {
		out[strings.ToLower(k)] = v
	}
	return out, nil
}
