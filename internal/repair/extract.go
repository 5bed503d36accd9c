package repair

// Field extraction helpers for untrusted map[string]any payloads. Each helper
// walks an ordered list of candidate keys (canonical snake_case first, then
// the legacy camelCase alias) and reports whether any candidate was present
// with a usable type. Absence and type mismatch are indistinguishable on
// purpose: the caller substitutes a default either way.

// stringField returns the first candidate whose value is a non-empty string.
func stringField(obj map[string]any, keys ...string) (string, bool) {
	for _, k := range keys {
		if s, ok := obj[k].(string); ok && s != "" {
			return s, true
		}
	}
	return "", false
}

// floatField returns the first candidate holding a number. Decoded JSON
// numbers arrive as float64; int values cover hand-built test payloads.
func floatField(obj map[string]any, keys ...string) (float64, bool) {
	for _, k := range keys {
		switch n := obj[k].(type) {
		case float64:
			return n, true
		case int:
			return float64(n), true
		case int64:
			return float64(n), true
		}
	}
	return 0, false
}

// intField returns the first candidate holding a whole number.
func intField(obj map[string]any, keys ...string) (int, bool) {
	if f, ok := floatField(obj, keys...); ok {
		return int(f), true
	}
	return 0, false
}

// mapField returns the first candidate whose value is an object.
func mapField(obj map[string]any, keys ...string) (map[string]any, bool) {
	for _, k := range keys {
		if m, ok := obj[k].(map[string]any); ok {
			return m, true
		}
	}
	return nil, false
}

// sliceField returns the first candidate whose value is an array.
func sliceField(obj map[string]any, keys ...string) ([]any, bool) {
	for _, k := range keys {
		if s, ok := obj[k].([]any); ok {
			return s, true
		}
	}
	return nil, false
}
