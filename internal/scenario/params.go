package scenario

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	placeholderPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)
	exactPlaceholder   = regexp.MustCompile(`^\$\{([A-Za-z_][A-Za-z0-9_]*)\}$`)
	hexPattern         = regexp.MustCompile(`^0x[0-9a-fA-F]+$`)
)

// Substitute replaces ${name} placeholders in a value, recursing through
// lists and maps. A string that is exactly one placeholder takes the
// parameter's native type; a placeholder embedded in a larger string is
// substituted as text. Unknown placeholder names are left verbatim.
func Substitute(value any, params Params) any {
	switch v := value.(type) {
	case string:
		if m := exactPlaceholder.FindStringSubmatch(v); m != nil {
			if sub, ok := params[m[1]]; ok {
				return sub
			}
			return v
		}
		return placeholderPattern.ReplaceAllStringFunc(v, func(token string) string {
			key := token[2 : len(token)-1]
			sub, ok := params[key]
			if !ok {
				return token
			}
			return fmt.Sprint(sub)
		})
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = Substitute(item, params)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, item := range v {
			out[k] = Substitute(item, params)
		}
		return out
	default:
		return value
	}
}

// Coerce converts literal-looking strings to typed values, recursing
// through lists and maps. Currently that means hex literals: any string
// matching 0x… becomes its integer value.
func Coerce(value any) any {
	switch v := value.(type) {
	case string:
		trimmed := strings.TrimSpace(v)
		if hexPattern.MatchString(trimmed) {
			n, err := strconv.ParseInt(trimmed[2:], 16, 64)
			if err == nil {
				return int(n)
			}
		}
		return v
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = Coerce(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, item := range v {
			out[k] = Coerce(item)
		}
		return out
	default:
		return value
	}
}

// resolveAction applies both passes to an action's args and kwargs.
func resolveAction(a Action, params Params) ([]any, map[string]any) {
	args, _ := Coerce(Substitute(append([]any{}, a.Args...), params)).([]any)

	kwargsIn := a.Kwargs
	if kwargsIn == nil {
		kwargsIn = map[string]any{}
	}
	kwargs, _ := Coerce(Substitute(kwargsIn, params)).(map[string]any)
	return args, kwargs
}
