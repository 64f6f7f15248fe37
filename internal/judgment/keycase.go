package judgment

import (
	"regexp"
	"strings"
)

var (
	firstCapRe = regexp.MustCompile(`(.)([A-Z][a-z]+)`)
	allCapRe   = regexp.MustCompile(`([a-z0-9])([A-Z])`)
)

// SnakeToCamel converts snake_case to camelCase. Keys that are already
// camelCase pass through unchanged.
func SnakeToCamel(s string) string {
	if !strings.Contains(s, "_") {
		return s
	}
	parts := strings.Split(s, "_")
	var b strings.Builder
	b.WriteString(parts[0])
	for _, p := range parts[1:] {
		if p == "" {
			continue
		}
		b.WriteString(strings.ToUpper(p[:1]))
		b.WriteString(p[1:])
	}
	return b.String()
}

// CamelToSnake converts camelCase to snake_case.
func CamelToSnake(s string) string {
	s = firstCapRe.ReplaceAllString(s, "${1}_${2}")
	s = allCapRe.ReplaceAllString(s, "${1}_${2}")
	return strings.ToLower(s)
}

// CamelizeKeys normalizes every map key in a decoded JSON value to
// camelCase, recursively. Non-container values pass through unchanged.
func CamelizeKeys(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, inner := range val {
			out[SnakeToCamel(k)] = CamelizeKeys(inner)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, inner := range val {
			out[i] = CamelizeKeys(inner)
		}
		return out
	default:
		return v
	}
}
