package template

import (
	"regexp"
	"sort"
	"strings"
)

const (
	tokenMarker     = "__"
	selfRefMarker   = "%@"
	payloadRefMark  = "@"
	metaPrefix      = "get;"
	configPrefix    = "config;"
	helperConstruct = "construct"
	helperCreate    = "create"
	undefinedText   = "undefined"
)

// helperPattern matches "construct;m", "<arg>:construct;m", "create;m=arg" and
// "<arg>:create;m". The argument prefix is greedy so it may itself contain ':'.
var helperPattern = regexp.MustCompile(`^(?:(.*):)?(construct|create);([A-Za-z][A-Za-z0-9_]*)(?:=(.*))?$`)

// helperInvocation is a parsed helper marker.
type helperInvocation struct {
	kind   string
	method string
	// prefix is the text before ":" (may be a "%@ref"); hasPrefix reports its presence.
	prefix    string
	hasPrefix bool
	// inline is the text after "=" for create;m=arg.
	inline    string
	hasInline bool
}

func parseHelper(value string) (helperInvocation, bool) {
	m := helperPattern.FindStringSubmatchIndex(value)
	if m == nil {
		return helperInvocation{}, false
	}
	inv := helperInvocation{
		kind:   value[m[4]:m[5]],
		method: value[m[6]:m[7]],
	}
	if m[2] >= 0 {
		inv.prefix, inv.hasPrefix = value[m[2]:m[3]], true
	}
	if m[8] >= 0 {
		inv.inline, inv.hasInline = value[m[8]:m[9]], true
	}
	return inv, true
}

// payloadToken is a "__name" placeholder collected from the template.
type payloadToken struct {
	// text is the token as written, without a trailing "__".
	text string
	// name is the payload key it resolves (text before ':' for qualified tokens).
	name string
}

// collectTokens returns the placeholders of every leaf string starting with "__".
func collectTokens(leaves map[string]any) []payloadToken {
	seen := map[string]bool{}
	var tokens []payloadToken
	for _, leaf := range leaves {
		s, ok := leaf.(string)
		if !ok || !strings.HasPrefix(s, tokenMarker) {
			continue
		}
		for _, part := range strings.Split(s, tokenMarker) {
			// "__amount KES": the token ends at the first blank.
			if i := strings.IndexAny(part, " \t\n"); i >= 0 {
				part = part[:i]
			}
			if part == "" || seen[part] {
				continue
			}
			seen[part] = true

			name := part
			if strings.Contains(part, ";") {
				name, _, _ = strings.Cut(part, ":")
			}
			tokens = append(tokens, payloadToken{text: tokenMarker + part, name: name})
		}
	}

	// Longest first so "__accountNumber" is substituted before "__account".
	sort.Slice(tokens, func(i, j int) bool {
		if len(tokens[i].text) != len(tokens[j].text) {
			return len(tokens[i].text) > len(tokens[j].text)
		}
		return tokens[i].text < tokens[j].text
	})
	return tokens
}

// ReferencedHelpers returns the helper names referenced anywhere in value.
func ReferencedHelpers(value any) []string {
	seen := map[string]bool{}
	var walk func(v any)
	walk = func(v any) {
		switch t := v.(type) {
		case map[string]any:
			for _, child := range t {
				walk(child)
			}
		case []any:
			for _, child := range t {
				walk(child)
			}
		case string:
			if inv, ok := parseHelper(t); ok {
				seen[inv.method] = true
			}
		}
	}
	walk(value)

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// referenceIdentifier splits "name," into ("name", ","). Identifiers may contain
// letters, digits, '_', '-' and inner dots; a trailing dot is punctuation.
func referenceIdentifier(s string) (ident, rest string) {
	end := 0
	for end < len(s) {
		c := s[end]
		if c == '_' || c == '-' || c == '.' ||
			(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') {
			end++
			continue
		}
		break
	}
	ident, rest = s[:end], s[end:]
	for strings.HasSuffix(ident, ".") {
		ident = ident[:len(ident)-1]
		rest = "." + rest
	}
	return ident, rest
}
