// Package manifest compiles declarative model type manifests.
//
// A manifest is a CUE package whose "model" struct declares one model type
// per field:
//
//	package models
//
//	model: Person: {
//		index:  "email"
//		strict: true
//		schema: {
//			email: string
//			age?:  int & >=0
//		}
//	}
//
//	model: Employee: {
//		extends: "Person"
//		schema: company: string
//	}
//
// Every declaration may set index, strict, extends and schema. A type
// without extends derives from model.Base; one with extends derives from
// the named declaration and inherits its index unless it sets its own.
// Declarations are compiled parents first. Unknown parents, extends cycles
// and duplicate collection names are errors.
//
// Schemas are built on schema.Default(), the runtime model.Base lives on.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/roach88/genesis/internal/model"
	"github.com/roach88/genesis/internal/schema"
)

// Options configures compilation.
type Options struct {
	// IDs generates type identities. Defaults to model.UUIDv7Generator.
	IDs model.IDGenerator
}

// declShape is the shape every model declaration must have.
const declShape = `close({
	index?:   string & =~"^[A-Za-z_][A-Za-z0-9_]*$"
	strict?:  bool
	extends?: string & !=""
	schema?:  {...}
})`

// decl is one model declaration extracted from CUE.
type decl struct {
	name      string
	index     string
	strict    bool
	extends   string
	schema    cue.Value
	hasSchema bool
	pos       token.Pos
}

// Load compiles the CUE package in dir.
func Load(dir string, opts Options) (*model.Registry, error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, &Error{Code: ErrCodeNotFound, Message: fmt.Sprintf("manifest directory not found: %s", dir)}
	}
	if err != nil {
		return nil, &Error{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing manifest directory: %v", err), Err: err}
	}
	if !info.IsDir() {
		return nil, &Error{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}
	}

	files, err := FindCUEFiles(dir)
	if err != nil {
		return nil, &Error{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("error scanning directory: %v", err), Err: err}
	}
	if len(files) == 0 {
		return nil, &Error{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}
	}

	var decls []decl
	err = schema.Default().Do(func(ctx *cue.Context) error {
		instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
		if len(instances) == 0 {
			return &Error{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}
		}
		inst := instances[0]
		if inst.Err != nil {
			return &Error{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", inst.Err), Err: inst.Err}
		}

		value := ctx.BuildInstance(inst)
		var extractErr error
		decls, extractErr = extract(ctx, value)
		return extractErr
	})
	if err != nil {
		return nil, err
	}
	return build(decls, opts)
}

// Parse compiles a single manifest file held in memory.
func Parse(filename string, src []byte, opts Options) (*model.Registry, error) {
	var decls []decl
	err := schema.Default().Do(func(ctx *cue.Context) error {
		value := ctx.CompileBytes(src, cue.Filename(filename))
		var extractErr error
		decls, extractErr = extract(ctx, value)
		return extractErr
	})
	if err != nil {
		return nil, err
	}
	return build(decls, opts)
}

// FindCUEFiles walks dir and returns all .cue file paths.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// extract reads the model declarations out of a built manifest value. It
// runs with the runtime lock held.
func extract(ctx *cue.Context, value cue.Value) ([]decl, error) {
	if err := value.Validate(); err != nil {
		return nil, cueError(ErrCodeBuildFailed, "", "building CUE value", err)
	}

	models := value.LookupPath(cue.ParsePath("model"))
	if !models.Exists() {
		return nil, &Error{Code: ErrCodeNoModels, Message: "no model declarations found"}
	}

	shape := ctx.CompileString(declShape, cue.Filename("manifest-shape"))
	if err := shape.Err(); err != nil {
		return nil, cueError(ErrCodeBuildFailed, "", "declaration shape", err)
	}

	iter, err := models.Fields()
	if err != nil {
		return nil, cueError(ErrCodeInvalidModel, "", "model must be a struct", err)
	}

	var decls []decl
	for iter.Next() {
		sel := iter.Selector()
		if !sel.IsString() {
			continue
		}
		d, err := extractDecl(sel.Unquoted(), iter.Value(), shape)
		if err != nil {
			return nil, err
		}
		decls = append(decls, d)
	}
	if len(decls) == 0 {
		return nil, &Error{Code: ErrCodeNoModels, Message: "no model declarations found"}
	}
	return decls, nil
}

func extractDecl(name string, v cue.Value, shape cue.Value) (decl, error) {
	d := decl{name: name, pos: v.Pos()}

	if err := v.Unify(shape).Validate(); err != nil {
		return decl{}, cueError(ErrCodeInvalidModel, name, "invalid declaration", err)
	}

	var err error
	if d.index, err = optionalString(v, "index"); err != nil {
		return decl{}, cueError(ErrCodeInvalidModel, name, "index", err)
	}
	if d.extends, err = optionalString(v, "extends"); err != nil {
		return decl{}, cueError(ErrCodeInvalidModel, name, "extends", err)
	}
	if strict := v.LookupPath(cue.ParsePath("strict")); strict.Exists() {
		if d.strict, err = strict.Bool(); err != nil {
			return decl{}, cueError(ErrCodeInvalidModel, name, "strict", err)
		}
	}
	if s := v.LookupPath(cue.ParsePath("schema")); s.Exists() {
		d.schema = s
		d.hasSchema = true
	}
	return d, nil
}

func optionalString(v cue.Value, field string) (string, error) {
	f := v.LookupPath(cue.ParsePath(field))
	if !f.Exists() {
		return "", nil
	}
	return f.String()
}

// build compiles declarations into a registry, parents first.
func build(decls []decl, opts Options) (*model.Registry, error) {
	byName := make(map[string]*decl, len(decls))
	for i := range decls {
		byName[decls[i].name] = &decls[i]
	}

	order, err := resolveOrder(decls, byName)
	if err != nil {
		return nil, err
	}

	rt := schema.Default()
	registry := model.NewRegistry()
	built := make(map[string]*model.Type, len(decls))

	for _, name := range order {
		d := byName[name]

		s, err := declSchema(rt, d)
		if err != nil {
			return nil, &Error{Code: ErrCodeSchema, Model: d.name, Message: err.Error(), Pos: d.pos, Err: err}
		}

		o := model.Options{Index: d.index, Schema: s, IDs: opts.IDs}
		var t *model.Type
		if d.extends == "" {
			t, err = model.Create(d.name, o)
		} else {
			t, err = built[d.extends].Extend(d.name, o)
		}
		if err != nil {
			return nil, &Error{Code: ErrCodeSchema, Model: d.name, Message: err.Error(), Pos: d.pos, Err: err}
		}

		if err := registry.Register(t); err != nil {
			return nil, &Error{Code: ErrCodeDuplicate, Model: d.name, Message: err.Error(), Pos: d.pos, Err: err}
		}
		built[name] = t
	}
	return registry, nil
}

func declSchema(rt *schema.Runtime, d *decl) (schema.Schema, error) {
	switch {
	case d.hasSchema:
		return rt.FromValue(d.schema, d.strict)
	case d.strict:
		return rt.Fields("")
	default:
		return schema.Any(), nil
	}
}
