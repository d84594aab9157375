package attrs

// ExtractString extracts a string value from a key-value attribute slice.
// The slice should be formatted as [key1, value1, key2, value2, ...].
// Returns empty string if the key is not found or the value is not a string.
func ExtractString(attrs []any, key string) string {
	for i := 0; i < len(attrs)-1; i += 2 {
		k, ok := attrs[i].(string)
		if !ok {
			continue
		}
		if k == key {
			if v, ok := attrs[i+1].(string); ok {
				return v
			}
		}
	}
	return ""
}

// ExtractStrings collects the given keys from a key-value attribute slice
// into a map. Absent or non-string values are skipped; returns nil when no
// key matched.
func ExtractStrings(attrs []any, keys ...string) map[string]string {
	var out map[string]string
	for _, key := range keys {
		v := ExtractString(attrs, key)
		if v == "" {
			continue
		}
		if out == nil {
			out = make(map[string]string, len(keys))
		}
		out[key] = v
	}
	return out
}
