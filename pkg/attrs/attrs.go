// Package attrs provides helpers for slog-style key-value attribute slices.
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

// Redact replaces the value for key with "[redacted]" so attribute slices can
// be logged without leaking secrets (e.g. master keys, client secrets).
func Redact(attrs []any, key string) []any {
	out := make([]any, len(attrs))
	copy(out, attrs)
	for i := 0; i < len(out)-1; i += 2 {
		if k, ok := out[i].(string); ok && k == key {
			out[i+1] = "[redacted]"
		}
	}
	return out
}
