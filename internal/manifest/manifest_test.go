package manifest

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/genesis/internal/attr"
	"github.com/roach88/genesis/internal/model"
	"github.com/roach88/genesis/internal/schema"
	"github.com/roach88/genesis/internal/testutil"
)

const peopleManifest = `package models

model: Person: {
	index:  "email"
	strict: true
	schema: {
		email: string
		age?:  int & >=0
	}
}

model: Employee: {
	extends: "Person"
	schema: company: string | *"acme"
}

model: Note: {
	schema: body?: string
}
`

func writeManifest(t *testing.T, files map[string]string) string {
	t.Helper()
	return testutil.WriteFiles(t, files)
}

func requireCode(t *testing.T, err error, code ErrorCode) *Error {
	t.Helper()
	require.Error(t, err)
	var me *Error
	require.True(t, errors.As(err, &me), "expected *manifest.Error, got %T: %v", err, err)
	assert.Equal(t, code, me.Code, "error: %v", err)
	return me
}

func TestLoad(t *testing.T) {
	dir := writeManifest(t, map[string]string{"models.cue": peopleManifest})

	registry, err := Load(dir, Options{})
	require.NoError(t, err)
	require.Equal(t, 3, registry.Len())

	var names []string
	for _, typ := range registry.Types() {
		names = append(names, typ.Name())
	}
	assert.Equal(t, []string{"Person", "Employee", "Note"}, names)

	person, ok := registry.Lookup("Person")
	require.True(t, ok)
	employee, ok := registry.Lookup("Employee")
	require.True(t, ok)
	note, ok := registry.Lookup("Note")
	require.True(t, ok)

	assert.Equal(t, "email", person.Index())
	assert.Equal(t, "email", employee.Index(), "index is inherited")
	assert.False(t, note.HasIndex())
	assert.True(t, employee.Is(person))
	assert.True(t, person.Is(model.Base))
	assert.True(t, person.Schema().Strict())
	assert.True(t, employee.Schema().Strict(), "strictness is inherited")
	assert.False(t, note.Schema().Strict())

	e, err := employee.New(attr.Set{"email": attr.String("a@x")})
	require.NoError(t, err)
	assert.Equal(t, attr.Set{
		"email":    attr.String("a@x"),
		"company":  attr.String("acme"),
		"revision": attr.Int(0),
	}, e.Attributes())

	_, err = person.New(attr.Set{"email": attr.String("a@x"), "nickname": attr.String("al")})
	assert.True(t, schema.IsValidation(err), "strict type rejects undeclared attributes: %v", err)

	_, err = person.New(attr.Set{"email": attr.String("a@x"), "age": attr.Int(-1)})
	assert.True(t, schema.IsValidation(err))

	n, err := note.New(attr.Set{"anything": attr.Bool(true)})
	require.NoError(t, err)
	assert.Equal(t, attr.Bool(true), n.Attributes()["anything"])
}

func TestLoadMultipleFiles(t *testing.T) {
	dir := writeManifest(t, map[string]string{
		"person.cue": `package models

model: Person: {
	index: "email"
	schema: email: string
}
`,
		"employee.cue": `package models

model: Employee: {
	extends: "Person"
	index:   "badge"
	schema: badge: int
}
`,
	})

	registry, err := Load(dir, Options{})
	require.NoError(t, err)

	employee, ok := registry.Lookup("Employee")
	require.True(t, ok)
	assert.Equal(t, "badge", employee.Index())
	assert.Equal(t, "Person", employee.Parent().Name())
}

func TestLoadFixedIDs(t *testing.T) {
	dir := writeManifest(t, map[string]string{"models.cue": peopleManifest})

	registry, err := Load(dir, Options{IDs: model.NewFixedGenerator("id-1", "id-2", "id-3")})
	require.NoError(t, err)

	person, _ := registry.Lookup("Person")
	employee, _ := registry.Lookup("Employee")
	note, _ := registry.Lookup("Note")
	assert.Equal(t, "id-1", person.ID())
	assert.Equal(t, "id-2", employee.ID())
	assert.Equal(t, "id-3", note.ID())
}

func TestLoadSequentialIDsInDependencyOrder(t *testing.T) {
	src := `
model: Child: {extends: "Parent"}
model: Parent: {}
`
	registry, err := Parse("models.cue", []byte(src), Options{IDs: testutil.NewSequentialIDs("type")})
	require.NoError(t, err)

	parent, _ := registry.Lookup("Parent")
	child, _ := registry.Lookup("Child")
	assert.Equal(t, "type-1", parent.ID())
	assert.Equal(t, "type-2", child.ID())
}

func TestParseChildBeforeParent(t *testing.T) {
	src := `
model: Manager: {extends: "Employee", schema: reports: int | *0}
model: Employee: {extends: "Person", schema: company: string}
model: Person: {index: "email", schema: email: string}
`
	registry, err := Parse("models.cue", []byte(src), Options{})
	require.NoError(t, err)

	var names []string
	for _, typ := range registry.Types() {
		names = append(names, typ.Name())
	}
	assert.Equal(t, []string{"Person", "Employee", "Manager"}, names)

	manager, _ := registry.Lookup("Manager")
	assert.Equal(t, "email", manager.Index())
	assert.Len(t, manager.Lineage(), 4)
}

func TestParseStrictWithoutSchema(t *testing.T) {
	registry, err := Parse("models.cue", []byte(`model: Marker: {strict: true}`), Options{})
	require.NoError(t, err)

	marker, _ := registry.Lookup("Marker")
	_, err = marker.New(attr.Set{})
	require.NoError(t, err)

	_, err = marker.New(attr.Set{"x": attr.Int(1)})
	assert.True(t, schema.IsValidation(err))
}

func TestLoadErrors(t *testing.T) {
	t.Run("missing directory", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope"), Options{})
		requireCode(t, err, ErrCodeNotFound)
	})

	t.Run("not a directory", func(t *testing.T) {
		dir := writeManifest(t, map[string]string{"models.cue": peopleManifest})
		_, err := Load(filepath.Join(dir, "models.cue"), Options{})
		requireCode(t, err, ErrCodeNotFound)
	})

	t.Run("no files", func(t *testing.T) {
		_, err := Load(t.TempDir(), Options{})
		requireCode(t, err, ErrCodeNoFiles)
	})

	t.Run("syntax error", func(t *testing.T) {
		dir := writeManifest(t, map[string]string{"models.cue": "package models\n\nmodel: {"})
		_, err := Load(dir, Options{})
		require.Error(t, err)
		var me *Error
		require.True(t, errors.As(err, &me))
		assert.Contains(t, []ErrorCode{ErrCodeLoadFailed, ErrCodeBuildFailed}, me.Code)
	})
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name     string
		src      string
		code     ErrorCode
		contains string
	}{
		{
			name: "no model struct",
			src:  `other: 1`,
			code: ErrCodeNoModels,
		},
		{
			name: "empty model struct",
			src:  `model: {}`,
			code: ErrCodeNoModels,
		},
		{
			name:     "conflicting values",
			src:      `model: Person: index: "a"` + "\n" + `model: Person: index: "b"`,
			code:     ErrCodeBuildFailed,
			contains: "conflicting values",
		},
		{
			name:     "unknown declaration field",
			src:      `model: Person: {indexes: "email"}`,
			code:     ErrCodeInvalidModel,
			contains: "model Person",
		},
		{
			name: "index is not an identifier",
			src:  `model: Person: {index: "e-mail"}`,
			code: ErrCodeInvalidModel,
		},
		{
			name: "strict is not a bool",
			src:  `model: Person: {strict: "yes"}`,
			code: ErrCodeInvalidModel,
		},
		{
			name: "schema is not a struct",
			src:  `model: Person: {schema: 3}`,
			code: ErrCodeInvalidModel,
		},
		{
			name: "index is not concrete",
			src:  `model: Person: {index: string}`,
			code: ErrCodeInvalidModel,
		},
		{
			name:     "unknown parent",
			src:      `model: Employee: {extends: "Person"}`,
			code:     ErrCodeUnknownParent,
			contains: `"Person"`,
		},
		{
			name:     "self cycle",
			src:      `model: A: {extends: "A"}`,
			code:     ErrCodeCycle,
			contains: "extends cycle: A → A",
		},
		{
			name: "cycle",
			src: `
model: A: {extends: "C"}
model: B: {extends: "A"}
model: C: {extends: "B"}
model: D: {}
`,
			code:     ErrCodeCycle,
			contains: "extends cycle: A → C → B → A",
		},
		{
			name:     "duplicate collection",
			src:      `model: Person: {}` + "\n" + `model: person: {}`,
			code:     ErrCodeDuplicate,
			contains: "collection",
		},
		{
			name: "child schema conflicts with parent",
			src: `
model: Person: {schema: email: string}
model: Employee: {extends: "Person", schema: email: int}
`,
			code:     ErrCodeSchema,
			contains: "model Employee",
		},
		{
			name: "schema overrides revision",
			src:  `model: Person: {schema: revision: string}`,
			code: ErrCodeSchema,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse("models.cue", []byte(tt.src), Options{})
			me := requireCode(t, err, tt.code)
			if tt.contains != "" {
				assert.Contains(t, me.Error(), tt.contains)
			}
		})
	}
}

func TestErrorPosition(t *testing.T) {
	src := "model: Person: {}\nmodel: Employee: {extends: \"Ghost\"}\n"
	_, err := Parse("models.cue", []byte(src), Options{})
	me := requireCode(t, err, ErrCodeUnknownParent)

	require.True(t, me.Pos.IsValid())
	assert.Equal(t, "models.cue", me.Pos.Filename())
	assert.Equal(t, 2, me.Pos.Line())
	assert.Contains(t, me.Error(), "models.cue:2:")
}

func TestFindCUEFiles(t *testing.T) {
	dir := writeManifest(t, map[string]string{
		"a.cue":    "package models",
		"b.cue":    "package models",
		"notes.md": "# notes",
	})

	files, err := FindCUEFiles(dir)
	require.NoError(t, err)
	assert.Len(t, files, 2)
}
