package models

import "time"

// Field accessors for untyped store documents. Remote payloads are never
// trusted directly: missing or mistyped fields decode to zero values, and
// timestamps are accepted both as time.Time and as RFC 3339 strings (the
// shape the JSON-backed store produces).

func stringField(data map[string]any, key string) string {
	s, _ := data[key].(string)
	return s
}

func intField(data map[string]any, key string) (int, bool) {
	switch n := data[key].(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	}
	return 0, false
}

func timeField(data map[string]any, key string) time.Time {
	switch t := data[key].(type) {
	case time.Time:
		return t
	case string:
		if parsed, err := time.Parse(time.RFC3339Nano, t); err == nil {
			return parsed
		}
	}
	return time.Time{}
}

func stringSliceField(data map[string]any, key string) ([]string, bool) {
	switch raw := data[key].(type) {
	case []string:
		out := make([]string, len(raw))
		copy(out, raw)
		return out, true
	case []any:
		out := make([]string, 0, len(raw))
		for _, v := range raw {
			if s, ok := v.(string); ok {
				out = append(out, s)
			}
		}
		return out, true
	}
	return nil, false
}

func mapField(data map[string]any, key string) (map[string]any, bool) {
	m, ok := data[key].(map[string]any)
	return m, ok
}
