package metadata

import (
	"encoding/json"
	"math"
)

const defaultSchemaVersion = 2

// Statement is an authenticator metadata statement as decoded from JSON.
type Statement map[string]any

// Description returns the statement's human-readable description.
func (s Statement) Description() string {
	v, _ := s["description"].(string)
	return v
}

// AAGUID returns the statement's AAGUID, if any.
func (s Statement) AAGUID() string {
	v, _ := s["aaguid"].(string)
	return v
}

// Schema returns the "schema" field, or 2 when absent or not an integer.
func (s Statement) Schema() int {
	switch v := s["schema"].(type) {
	case float64:
		if v == math.Trunc(v) {
			return int(v)
		}
	case int:
		return v
	case int64:
		return int(v)
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return int(n)
		}
	}
	return defaultSchemaVersion
}

// Clone returns a deep copy; nested maps and slices are not shared.
func (s Statement) Clone() Statement {
	if s == nil {
		return nil
	}
	return Statement(cloneMap(s))
}

func cloneMap(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneMap(t)
	case Statement:
		return Statement(cloneMap(t))
	case []any:
		out := make([]any, len(t))
		for i := range t {
			out[i] = cloneValue(t[i])
		}
		return out
	case []string:
		return append([]string(nil), t...)
	case []byte:
		return append([]byte(nil), t...)
	default:
		return v
	}
}
