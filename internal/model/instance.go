package model

import (
	"fmt"

	"github.com/roach88/genesis/internal/attr"
)

// Instance is an immutable, validated model value. The zero Instance is not
// a model; Valid reports false for it.
type Instance struct {
	typ   *Type
	attrs attr.Set
}

// Type returns the instance's model type.
func (i Instance) Type() *Type { return i.typ }

// Valid reports whether i was built by a model type.
func (i Instance) Valid() bool { return i.typ != nil }

// Get returns a copy of the named attribute.
func (i Instance) Get(name string) (attr.Value, bool) {
	v, ok := i.attrs[name]
	if !ok {
		return nil, false
	}
	return attr.Clone(v), true
}

// Attributes returns a deep copy of the attribute set.
func (i Instance) Attributes() attr.Set { return i.attrs.Clone() }

// Revision returns the OCC token.
func (i Instance) Revision() int64 {
	if n, ok := i.attrs[RevisionField].(attr.Int); ok {
		return int64(n)
	}
	return 0
}

// Key returns the value of the type's index attribute. ok is false when the
// type has no index or the instance does not carry a value for it.
func (i Instance) Key() (attr.Value, bool) {
	if i.typ == nil || i.typ.index == "" {
		return nil, false
	}
	return i.Get(i.typ.index)
}

// Is reports whether i is an instance of t or of a type derived from t.
func (i Instance) Is(t *Type) bool {
	return i.typ.Is(t)
}

// HasMethod reports whether the type's method table contains name.
func (i Instance) HasMethod(name string) bool {
	if i.typ == nil {
		return false
	}
	_, ok := i.typ.methods[name]
	return ok
}

// Call invokes the named method with i as receiver.
func (i Instance) Call(name string, args ...any) (any, error) {
	if i.typ == nil {
		return nil, ErrNotInstance
	}
	fn, ok := i.typ.methods[name]
	if !ok {
		return nil, fmt.Errorf("%s.%s: %w", i.typ.name, name, ErrNoMethod)
	}
	return fn(i, args...)
}

// With returns a new instance of the same type with changes applied on top
// of i's attributes. The result is validated again.
func (i Instance) With(changes attr.Set) (Instance, error) {
	if i.typ == nil {
		return Instance{}, ErrNotInstance
	}
	return i.typ.New(i.attrs.Merge(changes))
}

// Next returns i with its revision incremented.
func (i Instance) Next() (Instance, error) {
	return i.With(attr.Set{RevisionField: attr.Int(i.Revision() + 1)})
}

// Equal reports whether i and other have the same type and attributes.
func (i Instance) Equal(other Instance) bool {
	return i.typ == other.typ && attr.Equal(i.attrs, other.attrs)
}

// Digest returns the content digest of the attributes.
func (i Instance) Digest() (string, error) {
	if i.typ == nil {
		return "", ErrNotInstance
	}
	return attr.Digest(i.attrs)
}

// MarshalJSON encodes the attributes as canonical JSON. Methods and type
// information are not part of the encoding.
func (i Instance) MarshalJSON() ([]byte, error) {
	if i.typ == nil {
		return []byte("null"), nil
	}
	return attr.MarshalCanonical(i.attrs)
}

func (i Instance) String() string {
	if i.typ == nil {
		return "<invalid>"
	}
	return i.typ.name + attr.Format(i.attrs)
}
