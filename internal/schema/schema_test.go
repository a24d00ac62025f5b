package schema

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/genesis/internal/attr"
)

func TestValidateAppliesDefaults(t *testing.T) {
	s := MustOpen(`
		revision: int & >=0 | *0
		role:     string | *"member"
	`)

	out, err := s.Validate(attr.Set{"name": attr.String("ada")})
	require.NoError(t, err)

	assert.Equal(t, attr.Set{
		"name":     attr.String("ada"),
		"revision": attr.Int(0),
		"role":     attr.String("member"),
	}, out)
}

func TestValidateDoesNotModifyInput(t *testing.T) {
	s := MustOpen(`role: string | *"member"`)
	in := attr.Set{"name": attr.String("ada")}

	_, err := s.Validate(in)
	require.NoError(t, err)
	assert.Equal(t, attr.Set{"name": attr.String("ada")}, in)
}

func TestValidateTypeMismatchNamesField(t *testing.T) {
	s := MustOpen(`revision: int & >=0`)

	_, err := s.Validate(attr.Set{"revision": attr.String("invalid")})
	require.Error(t, err)
	assert.True(t, IsValidation(err))
	assert.Contains(t, err.Error(), "revision")

	var se *Error
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "revision", se.Field)
}

func TestValidateBoundViolation(t *testing.T) {
	s := MustOpen(`revision: int & >=0`)

	_, err := s.Validate(attr.Set{"revision": attr.Int(-1)})
	require.Error(t, err)
	assert.True(t, IsValidation(err))
}

func TestValidateMissingRequiredField(t *testing.T) {
	s := MustFields(`email: string`)

	_, err := s.Validate(attr.Set{})
	require.Error(t, err)
	assert.True(t, IsValidation(err))
	assert.Contains(t, err.Error(), "email")
}

func TestValidateOptionalFieldMayBeAbsent(t *testing.T) {
	s := MustFields(`email: string, age?: int`)

	out, err := s.Validate(attr.Set{"email": attr.String("a@x")})
	require.NoError(t, err)
	assert.Equal(t, attr.Set{"email": attr.String("a@x")}, out)

	_, err = s.Validate(attr.Set{"email": attr.String("a@x"), "age": attr.String("old")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "age")
}

func TestStrictRejectsUnknownAttribute(t *testing.T) {
	s := MustFields(`name: string`)

	_, err := s.Validate(attr.Set{"name": attr.String("ada"), "value": attr.Int(1)})
	require.Error(t, err)
	assert.True(t, IsValidation(err))
	assert.Contains(t, err.Error(), "value")
	assert.Contains(t, err.Error(), "not allowed")
}

func TestOpenAcceptsUnknownAttribute(t *testing.T) {
	s := MustOpen(`name: string`)

	out, err := s.Validate(attr.Set{"name": attr.String("ada"), "value": attr.Int(1)})
	require.NoError(t, err)
	assert.Equal(t, attr.Int(1), out["value"])
}

func TestNestedValues(t *testing.T) {
	s := MustOpen(`
		tags: [...string]
		address: { city: string, zip?: string }
	`)

	in := attr.Set{
		"tags":    attr.List{attr.String("a"), attr.String("b")},
		"address": attr.Set{"city": attr.String("Oslo")},
		"extra":   attr.Null{},
		"active":  attr.Bool(true),
	}
	out, err := s.Validate(in)
	require.NoError(t, err)
	assert.True(t, attr.Equal(in, out))

	_, err = s.Validate(attr.Set{
		"tags":    attr.List{attr.Int(1)},
		"address": attr.Set{"city": attr.String("Oslo")},
	})
	require.Error(t, err)
}

func TestValidateRejectsFloatDefaults(t *testing.T) {
	s := MustOpen(`ratio: 1.5`)

	_, err := s.Validate(attr.Set{})
	require.Error(t, err)
	assert.True(t, IsValidation(err))
	assert.Contains(t, err.Error(), "ratio")
}

func TestZeroSchemaAcceptsAnything(t *testing.T) {
	s := Any()
	assert.True(t, s.IsZero())
	assert.Equal(t, "{}", s.String())

	in := attr.Set{"x": attr.Int(1)}
	out, err := s.Validate(in)
	require.NoError(t, err)
	assert.Equal(t, in, out)

	out["x"] = attr.Int(2)
	assert.Equal(t, attr.Int(1), in["x"])
}

func TestComposeIsConjunction(t *testing.T) {
	base := MustOpen(`revision: int & >=0 | *0`)
	person := MustFields(`email: string, age?: int`)

	s, err := base.Compose(person)
	require.NoError(t, err)
	assert.True(t, s.Strict())
	assert.Equal(t, []string{"age", "email", "revision"}, s.FieldNames())

	out, err := s.Validate(attr.Set{"email": attr.String("a@x")})
	require.NoError(t, err)
	assert.Equal(t, attr.Int(0), out["revision"])

	_, err = s.Validate(attr.Set{"email": attr.String("a@x"), "revision": attr.String("no")})
	require.Error(t, err)

	_, err = s.Validate(attr.Set{"revision": attr.Int(1)})
	require.Error(t, err)
}

func TestComposeStrictParentWithNewChildFields(t *testing.T) {
	person := MustFields(`email: string`)
	employee := MustOpen(`company: string`)

	s, err := person.Compose(employee)
	require.NoError(t, err)

	_, err = s.Validate(attr.Set{"email": attr.String("a@x"), "company": attr.String("acme")})
	require.NoError(t, err)

	_, err = s.Validate(attr.Set{
		"email":   attr.String("a@x"),
		"company": attr.String("acme"),
		"badge":   attr.Int(7),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "badge")
}

func TestComposeConflict(t *testing.T) {
	a := MustOpen(`age: int`)
	b := MustOpen(`age: string`)

	_, err := a.Compose(b)
	require.Error(t, err)
	assert.True(t, IsComposition(err))
	assert.False(t, IsValidation(err))
	assert.Contains(t, err.Error(), "age")
}

func TestComposeOptionalConflict(t *testing.T) {
	tests := []struct {
		name string
		a, b string
	}{
		{"both optional", `age?: int`, `age?: string`},
		{"optional and required", `age?: int`, `age: string`},
		{"nested optional", `address: { zip?: int }`, `address: { zip?: string }`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := MustOpen(tt.a).Compose(MustOpen(tt.b))
			require.Error(t, err)
			assert.True(t, IsComposition(err))
		})
	}

	ok, err := MustOpen(`age?: int`).Compose(MustOpen(`age?: int & >=0`))
	require.NoError(t, err)
	assert.Equal(t, []string{"age"}, ok.FieldNames())
}

func TestComposeWithZero(t *testing.T) {
	a := MustFields(`age: int`)

	left, err := Any().Compose(a)
	require.NoError(t, err)
	assert.Equal(t, a.FieldNames(), left.FieldNames())

	right, err := a.Compose(Any())
	require.NoError(t, err)
	assert.True(t, right.Strict())
}

func TestComposeAcrossRuntimes(t *testing.T) {
	a := MustOpen(`age: int`)
	b, err := NewRuntime().Open(`name: string`)
	require.NoError(t, err)

	_, err = a.Compose(b)
	require.Error(t, err)
	assert.True(t, IsComposition(err))
}

func TestFragmentMustBeStruct(t *testing.T) {
	_, err := Open(`int`)
	require.Error(t, err)
	assert.True(t, IsComposition(err))

	_, err = Open(`age: `)
	require.Error(t, err)
	assert.True(t, IsComposition(err))
}

func TestConcurrentValidate(t *testing.T) {
	s := MustFields(`email: string, age?: int & >=0`)

	var wg sync.WaitGroup
	errs := make(chan error, 32)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, err := s.Validate(attr.Set{"email": attr.String("a@x"), "age": attr.Int(int64(n))})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
}
