package simulate

// Argument readers tolerant of the value shapes JSON decoding and parameter
// substitution produce: ints may arrive as float64, booleans as literals.

func intArg(args []any, i, def int) int {
	if i >= len(args) {
		return def
	}
	switch v := args[i].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return def
	}
}

func floatArg(args []any, i int, def float64) float64 {
	if i >= len(args) {
		return def
	}
	switch v := args[i].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	default:
		return def
	}
}

func strArg(args []any, i int, def string) string {
	if i >= len(args) {
		return def
	}
	if s, ok := args[i].(string); ok {
		return s
	}
	return def
}

func boolArg(args []any, i int, def bool) bool {
	if i >= len(args) {
		return def
	}
	if b, ok := args[i].(bool); ok {
		return b
	}
	return def
}
