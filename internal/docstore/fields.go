package docstore

import (
	"encoding/json"
	"time"
)

// Str reads a string field, returning "" when absent or mistyped.
func Str(data map[string]any, key string) string {
	if v, ok := data[key].(string); ok {
		return v
	}
	return ""
}

// Num reads a numeric field. Adapters surface numbers as float64 (JSON),
// int32/int64 (BSON) or json.Number depending on the backend.
func Num(data map[string]any, key string) float64 {
	switch v := data[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int32:
		return float64(v)
	case int64:
		return float64(v)
	case json.Number:
		f, _ := v.Float64()
		return f
	}
	return 0
}

// NumOK reads a numeric field and reports whether it was present. Callers
// that treat an absent quantity differently from an explicit zero use this.
func NumOK(data map[string]any, key string) (float64, bool) {
	if _, ok := data[key]; !ok {
		return 0, false
	}
	return Num(data, key), true
}

// Bool reads a boolean field, returning false when absent.
func Bool(data map[string]any, key string) bool {
	if v, ok := data[key].(bool); ok {
		return v
	}
	return false
}

// Time reads a timestamp field. Backends storing documents as JSON surface
// timestamps as RFC3339 strings; the mongo adapter surfaces time.Time.
func Time(data map[string]any, key string) time.Time {
	switch v := data[key].(type) {
	case time.Time:
		return v
	case string:
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			return t
		}
	}
	return time.Time{}
}

// Maps reads a field holding a list of sub-documents (e.g. shipment items).
func Maps(data map[string]any, key string) []map[string]any {
	switch v := data[key].(type) {
	case []map[string]any:
		return v
	case []any:
		out := make([]map[string]any, 0, len(v))
		for _, item := range v {
			if m, ok := item.(map[string]any); ok {
				out = append(out, m)
			}
		}
		return out
	}
	return nil
}
