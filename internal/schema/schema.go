// Package schema validates attribute sets against composable CUE fragments.
//
// A Schema is an immutable value. Composing two schemas unifies their CUE
// values, so a composed schema accepts exactly the attribute sets that both
// inputs accept. Strictness (rejecting undeclared attributes) is tracked
// outside CUE so that a strict parent can still be extended with new fields.
package schema

import (
	"fmt"
	"slices"
	"sort"

	"cuelang.org/go/cue"

	"github.com/roach88/genesis/internal/attr"
)

// Schema is a composable constraint over an attribute set. The zero value
// accepts any attribute set unchanged.
type Schema struct {
	rt     *Runtime
	value  cue.Value
	fields []string
	strict bool
}

// Any returns the schema that accepts every attribute set.
func Any() Schema {
	return Schema{}
}

// Fields compiles a strict fragment on the default runtime.
//
//	s, err := schema.Fields(`email: string, age?: int & >=0`)
func Fields(src string) (Schema, error) {
	return Default().Fields(src)
}

// Open compiles a permissive fragment on the default runtime.
func Open(src string) (Schema, error) {
	return Default().Open(src)
}

// MustFields is like Fields but panics on error.
func MustFields(src string) Schema {
	s, err := Fields(src)
	if err != nil {
		panic(err)
	}
	return s
}

// MustOpen is like Open but panics on error.
func MustOpen(src string) Schema {
	s, err := Open(src)
	if err != nil {
		panic(err)
	}
	return s
}

// IsZero reports whether s is the unconstrained schema.
func (s Schema) IsZero() bool {
	return s.rt == nil
}

// Strict reports whether undeclared attributes are rejected.
func (s Schema) Strict() bool {
	return s.strict
}

// FieldNames returns the declared attribute names in sorted order.
func (s Schema) FieldNames() []string {
	return slices.Clone(s.fields)
}

// Runtime returns the runtime s was built on, or nil for the zero schema.
func (s Schema) Runtime() *Runtime {
	return s.rt
}

// Compose returns the conjunction of s and other. Composition fails when the
// fragments contradict each other (for example `age: int` and
// `age: string`) or were built on different runtimes.
func (s Schema) Compose(other Schema) (Schema, error) {
	switch {
	case other.IsZero():
		return s, nil
	case s.IsZero():
		return other, nil
	case s.rt != other.rt:
		return Schema{}, &Error{
			Code:    ErrCodeComposition,
			Message: "schemas belong to different runtimes",
		}
	}

	s.rt.mu.Lock()
	defer s.rt.mu.Unlock()

	u := s.value.Unify(other.value)
	if err := u.Validate(cue.Optional(true)); err != nil {
		return Schema{}, fromCUE(ErrCodeComposition, err)
	}
	if err := checkFields(u); err != nil {
		return Schema{}, fromCUE(ErrCodeComposition, err)
	}

	return Schema{
		rt:     s.rt,
		value:  u,
		fields: sortedUnion(s.fields, other.fields),
		strict: s.strict || other.strict,
	}, nil
}

// Validate checks attrs against s and returns the normalized set with
// schema defaults filled in. attrs is never modified.
func (s Schema) Validate(attrs attr.Set) (attr.Set, error) {
	if s.IsZero() {
		return attrs.Clone(), nil
	}

	if s.strict {
		for _, name := range attrs.Keys() {
			if _, ok := slices.BinarySearch(s.fields, name); !ok {
				return nil, &Error{
					Code:    ErrCodeValidation,
					Field:   name,
					Message: "field is not allowed",
				}
			}
		}
	}

	s.rt.mu.Lock()
	defer s.rt.mu.Unlock()

	data := s.rt.ctx.Encode(attrs.Native())
	if err := data.Err(); err != nil {
		return nil, fromCUE(ErrCodeValidation, err)
	}

	u := s.value.Unify(data)
	if err := u.Validate(cue.Concrete(true)); err != nil {
		return nil, fromCUE(ErrCodeValidation, err)
	}

	out, err := export(u, "")
	if err != nil {
		return nil, err
	}
	set, ok := out.(attr.Set)
	if !ok {
		return nil, &Error{Code: ErrCodeValidation, Message: "attributes must be an object"}
	}
	return set, nil
}

// String renders the schema as CUE source.
func (s Schema) String() string {
	if s.IsZero() {
		return "{}"
	}
	s.rt.mu.Lock()
	defer s.rt.mu.Unlock()
	return fmt.Sprintf("%v", s.value)
}

// checkFields reports the first field of v, optional or required, whose
// constraints unify to bottom.
func checkFields(v cue.Value) error {
	iter, err := v.Fields(cue.Optional(true))
	if err != nil {
		return err
	}
	for iter.Next() {
		f := iter.Value()
		if err := f.Validate(cue.Optional(true)); err != nil {
			return err
		}
		if f.IncompleteKind() == cue.StructKind {
			if err := checkFields(f); err != nil {
				return err
			}
		}
	}
	return nil
}

func sortedUnion(a, b []string) []string {
	out := make([]string, 0, len(a)+len(b))
	out = append(out, a...)
	out = append(out, b...)
	sort.Strings(out)
	return slices.Compact(out)
}
