package schema

import (
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// Runtime owns the CUE context that schemas are compiled and evaluated in.
//
// A cue.Context is not safe for concurrent use, so every compile, unify and
// validate on a runtime's values goes through its lock. Schemas built on
// different runtimes cannot be composed.
type Runtime struct {
	mu  sync.Mutex
	ctx *cue.Context
}

// NewRuntime returns a runtime with a fresh CUE context.
func NewRuntime() *Runtime {
	return &Runtime{ctx: cuecontext.New()}
}

var defaultRuntime = NewRuntime()

// Default returns the process-wide runtime used by Fields, Open and the
// base model.
func Default() *Runtime {
	return defaultRuntime
}

// Do runs fn with exclusive access to the runtime's CUE context. Values
// produced inside fn may be handed to FromValue after Do returns.
func (r *Runtime) Do(fn func(ctx *cue.Context) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return fn(r.ctx)
}

// Fields compiles src as a strict fragment: attributes not declared by the
// fragment (or by anything it is composed with) are rejected.
func (r *Runtime) Fields(src string) (Schema, error) {
	return r.compile(src, true)
}

// Open compiles src as a permissive fragment that admits undeclared
// attributes.
func (r *Runtime) Open(src string) (Schema, error) {
	return r.compile(src, false)
}

// FromValue wraps an already evaluated CUE struct. v must come from this
// runtime's context.
func (r *Runtime) FromValue(v cue.Value, strict bool) (Schema, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if v.Context() != r.ctx {
		return Schema{}, &Error{
			Code:    ErrCodeComposition,
			Message: "value belongs to a different CUE context",
		}
	}
	return r.wrapLocked(v, strict)
}

func (r *Runtime) compile(src string, strict bool) (Schema, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	v := r.ctx.CompileString(src, cue.Filename("schema"))
	if err := v.Err(); err != nil {
		return Schema{}, fromCUE(ErrCodeComposition, err)
	}
	return r.wrapLocked(v, strict)
}

func (r *Runtime) wrapLocked(v cue.Value, strict bool) (Schema, error) {
	if err := v.Validate(); err != nil {
		return Schema{}, fromCUE(ErrCodeComposition, err)
	}
	if v.IncompleteKind() != cue.StructKind {
		return Schema{}, &Error{
			Code:    ErrCodeComposition,
			Message: "schema fragment must be a struct, got " + v.IncompleteKind().String(),
			Pos:     v.Pos(),
		}
	}

	fields, err := declaredFields(v)
	if err != nil {
		return Schema{}, err
	}
	return Schema{rt: r, value: v, fields: fields, strict: strict}, nil
}

// declaredFields lists the regular, optional and required labels of a
// struct in sorted order.
func declaredFields(v cue.Value) ([]string, error) {
	iter, err := v.Fields(cue.Optional(true))
	if err != nil {
		return nil, fromCUE(ErrCodeComposition, err)
	}

	var fields []string
	for iter.Next() {
		sel := iter.Selector()
		if !sel.IsString() {
			continue
		}
		fields = append(fields, sel.Unquoted())
	}
	return sortedUnion(fields, nil), nil
}
