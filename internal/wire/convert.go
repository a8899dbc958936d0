package wire

import (
	"encoding/json"
	"fmt"
	"math"
)

// FromGo converts a JSON-decoded Go value (the raw platform edge) to a Value.
//
// JSON numbers arrive as float64; integral floats within the safe integer
// range are narrowed to Int so that ids and counts survive the round trip.
// Unsupported types (channels, funcs, structs) are errors, not panics - the
// raw edge is untrusted.
func FromGo(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return Null{}, nil
	case Value:
		return val, nil
	case bool:
		return Bool(val), nil
	case string:
		return String(val), nil
	case int:
		return Int(val), nil
	case int64:
		return Int(val), nil
	case float64:
		if val == math.Trunc(val) && math.Abs(val) <= 1<<53 {
			return Int(int64(val)), nil
		}
		return Float(val), nil
	case float32:
		return FromGo(float64(val))
	case json.Number:
		if n, err := val.Int64(); err == nil {
			return Int(n), nil
		}
		f, err := val.Float64()
		if err != nil {
			return nil, fmt.Errorf("invalid JSON number %q: %w", val.String(), err)
		}
		return Float(f), nil
	case []any:
		arr := make(Array, len(val))
		for i, elem := range val {
			wv, err := FromGo(elem)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			arr[i] = wv
		}
		return arr, nil
	case map[string]any:
		obj := make(Object, len(val))
		for k, elem := range val {
			wv, err := FromGo(elem)
			if err != nil {
				return nil, fmt.Errorf("[%q]: %w", k, err)
			}
			obj[k] = wv
		}
		return obj, nil
	default:
		return nil, fmt.Errorf("unsupported type at wire boundary: %T", v)
	}
}

// ToGo converts a Value to plain Go values (nil, bool, int64, float64,
// string, []any, map[string]any) for handing back to JSON encoders.
func ToGo(v Value) any {
	switch val := v.(type) {
	case Null:
		return nil
	case Bool:
		return bool(val)
	case Int:
		return int64(val)
	case Float:
		return float64(val)
	case String:
		return string(val)
	case Array:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = ToGo(elem)
		}
		return out
	case Object:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			out[k] = ToGo(elem)
		}
		return out
	default:
		return nil
	}
}

// ParseJSON decodes a JSON document directly into a Value.
func ParseJSON(data []byte) (Value, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse JSON: %w", err)
	}
	return FromGo(raw)
}
