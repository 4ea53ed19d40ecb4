package chi

import "math"

// Sanitize recursively replaces NaN and infinite floats with nil so the
// JSON encoder renders them as null. Maps keep their keys, slices keep
// their order, every other scalar passes through unchanged. This must run
// on every payload before encoding: encoding/json fails outright on
// non-finite values.
func Sanitize(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = Sanitize(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = Sanitize(item)
		}
		return out
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return nil
		}
		return val
	case float32:
		f := float64(val)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil
		}
		return f
	default:
		return v
	}
}
