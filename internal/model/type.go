package model

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/roach88/genesis/internal/attr"
	"github.com/roach88/genesis/internal/schema"
)

// RevisionField is the attribute every instance carries as its
// optimistic concurrency token.
const RevisionField = "revision"

// Method is a behavior attached to a model type. The receiving instance is
// passed explicitly.
type Method func(inst Instance, args ...any) (any, error)

// Options configures Create and Extend.
type Options struct {
	// Index names the attribute used as the unique business key. Empty
	// means instances of the type cannot be stored by a mapper.
	Index string

	// Methods are merged over the parent's methods.
	Methods map[string]Method

	// Schema is composed with the parent's effective schema. The zero
	// Schema adds no constraints.
	Schema schema.Schema

	// Parent is the type to derive from. Create defaults it to Base;
	// Extend ignores it.
	Parent *Type

	// IDs generates the new type's identity. Defaults to UUIDv7Generator.
	IDs IDGenerator
}

// Type is a model type. Types are immutable and safe for concurrent use.
type Type struct {
	id      string
	name    string
	index   string
	schema  schema.Schema
	methods map[string]Method
	parent  *Type
	lineage []*Type
	tags    map[string]struct{}
}

// Base is the root of every derivation chain. It constrains revision to a
// non-negative integer and admits any other attribute.
var Base = newBase()

func newBase() *Type {
	t := &Type{
		id:      UUIDv7Generator{}.Generate(),
		name:    "model",
		schema:  schema.MustOpen(RevisionField + `: int & >=0`),
		methods: map[string]Method{},
	}
	t.lineage = []*Type{t}
	t.tags = map[string]struct{}{t.id: {}}
	return t
}

// Create builds a new model type named name, derived from opts.Parent (or
// Base). The index is exactly opts.Index; see Extend for index inheritance.
func Create(name string, opts Options) (*Type, error) {
	parent := opts.Parent
	if parent == nil {
		parent = Base
	}
	return derive(parent, name, opts)
}

// Extend derives a new type from t. opts.Index defaults to t's index.
func (t *Type) Extend(name string, opts Options) (*Type, error) {
	if opts.Index == "" {
		opts.Index = t.index
	}
	return derive(t, name, opts)
}

func derive(parent *Type, name string, opts Options) (*Type, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("create model type: %w", ErrInvalidName)
	}

	effective, err := parent.schema.Compose(opts.Schema)
	if err != nil {
		return nil, fmt.Errorf("create model type %s: %w", name, err)
	}

	methods := maps.Clone(parent.methods)
	for mname, fn := range opts.Methods {
		if fn == nil {
			return nil, fmt.Errorf("create model type %s: method %q is nil", name, mname)
		}
		methods[mname] = fn
	}

	ids := opts.IDs
	if ids == nil {
		ids = UUIDv7Generator{}
	}

	t := &Type{
		id:      ids.Generate(),
		name:    name,
		index:   opts.Index,
		schema:  effective,
		methods: methods,
		parent:  parent,
	}
	t.lineage = append(slices.Clone(parent.lineage), t)
	t.tags = make(map[string]struct{}, len(parent.tags)+1)
	for tag := range parent.tags {
		t.tags[tag] = struct{}{}
	}
	t.tags[t.id] = struct{}{}
	return t, nil
}

// ID returns the type's unique identity.
func (t *Type) ID() string { return t.id }

// Name returns the type name.
func (t *Type) Name() string { return t.name }

// Index returns the unique index attribute, or "" if none is declared.
func (t *Type) Index() string { return t.index }

// HasIndex reports whether instances of t can be stored.
func (t *Type) HasIndex() bool { return t.index != "" }

// Schema returns the effective schema.
func (t *Type) Schema() schema.Schema { return t.schema }

// Parent returns the type t was derived from, or nil for Base.
func (t *Type) Parent() *Type { return t.parent }

// Collection returns the storage partition name: the lower-cased type name.
func (t *Type) Collection() string { return strings.ToLower(t.name) }

// Lineage returns the derivation chain from Base to t.
func (t *Type) Lineage() []*Type { return slices.Clone(t.lineage) }

// Methods returns a copy of the effective method table.
func (t *Type) Methods() map[string]Method { return maps.Clone(t.methods) }

// MethodNames returns the effective method names in sorted order.
func (t *Type) MethodNames() []string {
	return slices.Sorted(maps.Keys(t.methods))
}

// Is reports whether t is other or derives from it.
func (t *Type) Is(other *Type) bool {
	if t == nil || other == nil {
		return false
	}
	_, ok := t.tags[other.id]
	return ok
}

func (t *Type) String() string { return t.name }

// New validates raw against t's effective schema and returns an instance.
func (t *Type) New(raw attr.Set) (Instance, error) {
	attrs, err := Construct(t.schema, raw)
	if err != nil {
		return Instance{}, fmt.Errorf("new %s: %w", t.name, err)
	}
	return Instance{typ: t, attrs: attrs}, nil
}

// NewFromMap is New for plain Go data.
func (t *Type) NewFromMap(raw map[string]any) (Instance, error) {
	set, err := attr.SetFromMap(raw)
	if err != nil {
		return Instance{}, fmt.Errorf("new %s: %w", t.name, err)
	}
	return t.New(set)
}

// Construct defaults revision to 0 and validates raw against s, returning
// the normalized attribute set. raw is not modified.
func Construct(s schema.Schema, raw attr.Set) (attr.Set, error) {
	in := raw.Clone()
	if _, ok := in[RevisionField]; !ok {
		in[RevisionField] = attr.Int(0)
	}
	return s.Validate(in)
}
