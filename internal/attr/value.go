package attr

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"unicode/utf16"
)

// Value is a sealed interface over the supported attribute value kinds.
type Value interface {
	attrValue()
}

// Null is an explicit null attribute value.
type Null struct{}

func (Null) attrValue() {}

// MarshalJSON implements json.Marshaler for Null.
func (Null) MarshalJSON() ([]byte, error) {
	return []byte("null"), nil
}

// String is a string attribute value.
type String string

func (String) attrValue() {}

// Int is an integer attribute value.
type Int int64

func (Int) attrValue() {}

// Bool is a boolean attribute value.
type Bool bool

func (Bool) attrValue() {}

// List is an ordered sequence of values.
type List []Value

func (List) attrValue() {}

// Set maps attribute names to values. Nested objects are Sets as well.
type Set map[string]Value

func (Set) attrValue() {}

// Get returns the value stored under name.
func (s Set) Get(name string) (Value, bool) {
	v, ok := s[name]
	return v, ok
}

// Keys returns the attribute names in canonical (UTF-16 code unit) order.
func (s Set) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeys)
	return keys
}

// Clone returns a deep copy of s. Cloning a nil Set yields an empty Set.
func (s Set) Clone() Set {
	out := make(Set, len(s))
	for k, v := range s {
		out[k] = Clone(v)
	}
	return out
}

// Merge returns a copy of s with every attribute of other applied on top.
func (s Set) Merge(other Set) Set {
	out := s.Clone()
	for k, v := range other {
		out[k] = Clone(v)
	}
	return out
}

// Clone returns a deep copy of v. Scalars are returned as is.
func Clone(v Value) Value {
	switch val := v.(type) {
	case List:
		out := make(List, len(val))
		for i, elem := range val {
			out[i] = Clone(elem)
		}
		return out
	case Set:
		return val.Clone()
	default:
		return v
	}
}

// Equal reports whether a and b hold the same data.
func Equal(a, b Value) bool {
	switch av := a.(type) {
	case nil:
		return b == nil
	case Null:
		_, ok := b.(Null)
		return ok
	case String:
		bv, ok := b.(String)
		return ok && av == bv
	case Int:
		bv, ok := b.(Int)
		return ok && av == bv
	case Bool:
		bv, ok := b.(Bool)
		return ok && av == bv
	case List:
		bv, ok := b.(List)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !Equal(av[i], bv[i]) {
				return false
			}
		}
		return true
	case Set:
		bv, ok := b.(Set)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, v := range av {
			other, ok := bv[k]
			if !ok || !Equal(v, other) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// compareKeys orders keys by UTF-16 code units as RFC 8785 requires.
// Go's native string comparison works on UTF-8 bytes and disagrees for
// characters outside the BMP.
func compareKeys(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))

	n := min(len(a16), len(b16))
	for i := 0; i < n; i++ {
		if a16[i] != b16[i] {
			if a16[i] < b16[i] {
				return -1
			}
			return 1
		}
	}

	switch {
	case len(a16) < len(b16):
		return -1
	case len(a16) > len(b16):
		return 1
	}
	return 0
}

// MarshalJSON encodes the set canonically.
func (s Set) MarshalJSON() ([]byte, error) {
	return MarshalCanonical(s)
}

// MarshalJSON encodes the list canonically.
func (l List) MarshalJSON() ([]byte, error) {
	return MarshalCanonical(l)
}

// UnmarshalJSON implements json.Unmarshaler for Set.
func (s *Set) UnmarshalJSON(data []byte) error {
	v, err := Decode(data)
	if err != nil {
		return err
	}
	set, ok := v.(Set)
	if !ok {
		return fmt.Errorf("attribute set must be a JSON object, got %s", Kind(v))
	}
	*s = set
	return nil
}

// UnmarshalJSON implements json.Unmarshaler for List.
func (l *List) UnmarshalJSON(data []byte) error {
	v, err := Decode(data)
	if err != nil {
		return err
	}
	list, ok := v.(List)
	if !ok {
		return fmt.Errorf("attribute list must be a JSON array, got %s", Kind(v))
	}
	*l = list
	return nil
}

// Decode parses a JSON document into a Value. Floats are rejected.
func Decode(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	return FromNative(raw)
}

// Kind names the kind of v for error messages.
func Kind(v Value) string {
	switch v.(type) {
	case nil:
		return "nothing"
	case Null:
		return "null"
	case String:
		return "string"
	case Int:
		return "int"
	case Bool:
		return "bool"
	case List:
		return "list"
	case Set:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}
