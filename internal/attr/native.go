package attr

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// FromNative converts plain Go data (as produced by encoding/json, yaml.v3
// or CUE decoding) into a Value.
//
// Integral floats are accepted and become Int; any other float is an error.
func FromNative(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return Null{}, nil
	case Value:
		return val, nil
	case string:
		return String(val), nil
	case bool:
		return Bool(val), nil
	case int:
		return Int(val), nil
	case int8:
		return Int(val), nil
	case int16:
		return Int(val), nil
	case int32:
		return Int(val), nil
	case int64:
		return Int(val), nil
	case uint:
		return fromUint(uint64(val))
	case uint8:
		return Int(val), nil
	case uint16:
		return Int(val), nil
	case uint32:
		return Int(val), nil
	case uint64:
		return fromUint(val)
	case float32:
		return fromFloat(float64(val))
	case float64:
		return fromFloat(val)
	case json.Number:
		s := string(val)
		if strings.ContainsAny(s, ".eE") {
			return nil, fmt.Errorf("floats are not supported: %s", s)
		}
		n, err := val.Int64()
		if err != nil {
			return nil, fmt.Errorf("number out of int64 range: %s", s)
		}
		return Int(n), nil
	case []any:
		list := make(List, len(val))
		for i, elem := range val {
			item, err := FromNative(elem)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			list[i] = item
		}
		return list, nil
	case []string:
		list := make(List, len(val))
		for i, elem := range val {
			list[i] = String(elem)
		}
		return list, nil
	case map[string]any:
		return SetFromMap(val)
	case map[string]string:
		set := make(Set, len(val))
		for k, elem := range val {
			set[k] = String(elem)
		}
		return set, nil
	default:
		return nil, fmt.Errorf("unsupported attribute type %T", v)
	}
}

func fromUint(n uint64) (Value, error) {
	if n > math.MaxInt64 {
		return nil, fmt.Errorf("number out of int64 range: %d", n)
	}
	return Int(n), nil
}

func fromFloat(f float64) (Value, error) {
	if f != math.Trunc(f) || math.IsInf(f, 0) || f > math.MaxInt64 || f < math.MinInt64 {
		return nil, fmt.Errorf("floats are not supported: %v", f)
	}
	return Int(int64(f)), nil
}

// SetFromMap converts a plain map into a Set.
func SetFromMap(m map[string]any) (Set, error) {
	set := make(Set, len(m))
	for k, elem := range m {
		v, err := FromNative(elem)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", k, err)
		}
		set[k] = v
	}
	return set, nil
}

// MustSet is SetFromMap for literals in tests and package-level fixtures.
// It panics on unsupported values.
func MustSet(m map[string]any) Set {
	set, err := SetFromMap(m)
	if err != nil {
		panic(err)
	}
	return set
}

// ToNative converts a Value back into plain Go data: nil, string, int64,
// bool, []any and map[string]any.
func ToNative(v Value) any {
	switch val := v.(type) {
	case nil, Null:
		return nil
	case String:
		return string(val)
	case Int:
		return int64(val)
	case Bool:
		return bool(val)
	case List:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = ToNative(elem)
		}
		return out
	case Set:
		return val.Native()
	default:
		return nil
	}
}

// Native returns s as a plain map.
func (s Set) Native() map[string]any {
	out := make(map[string]any, len(s))
	for k, v := range s {
		out[k] = ToNative(v)
	}
	return out
}
