package pipeline

import "strings"

// StripEmpty returns a copy of a decoded JSON value with empty leaves
// removed: empty or whitespace-only strings, nulls, and maps or slices
// that end up empty after cleaning. Numbers and booleans are always kept.
// The pass is idempotent: applying it twice equals applying it once.
func StripEmpty(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			cleaned := StripEmpty(item)
			if isEmpty(cleaned) {
				continue
			}
			out[k] = cleaned
		}
		if len(out) == 0 {
			return nil
		}
		return out
	case []any:
		out := make([]any, 0, len(val))
		for _, item := range val {
			cleaned := StripEmpty(item)
			if isEmpty(cleaned) {
				continue
			}
			out = append(out, cleaned)
		}
		if len(out) == 0 {
			return nil
		}
		return out
	default:
		return v
	}
}

func isEmpty(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(val) == ""
	case map[string]any:
		return len(val) == 0
	case []any:
		return len(val) == 0
	}
	return false
}

// StripEmptyObject cleans a JSON object in place of the generic form,
// always returning a non-nil map.
func StripEmptyObject(m map[string]any) map[string]any {
	cleaned := StripEmpty(m)
	out, ok := cleaned.(map[string]any)
	if !ok {
		return map[string]any{}
	}
	return out
}
