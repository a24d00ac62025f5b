package mappertest

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/genesis/internal/model"
	"github.com/roach88/genesis/internal/schema"
)

// Types are the model types the suite exercises. Each run builds its own
// set so subtests never share type identities.
type Types struct {
	// Person is strict and indexed by email.
	Person *model.Type

	// Employee extends Person and inherits its index.
	Employee *model.Type

	// Company is indexed by name.
	Company *model.Type

	// Document is open, indexed by an optional slug.
	Document *model.Type

	// Plain declares no index.
	Plain *model.Type
}

// NewTypes builds the fixture types.
func NewTypes(t testing.TB) Types {
	t.Helper()

	person, err := model.Create("Person", model.Options{
		Index:  "email",
		Schema: schema.MustFields(`email: string, age?: int & >=0`),
	})
	require.NoError(t, err)

	employee, err := person.Extend("Employee", model.Options{
		Schema: schema.MustOpen(`company: string`),
	})
	require.NoError(t, err)

	company, err := model.Create("Company", model.Options{
		Index:  "name",
		Schema: schema.MustFields(`name: string, employees?: int`),
	})
	require.NoError(t, err)

	document, err := model.Create("Document", model.Options{
		Index:  "slug",
		Schema: schema.MustOpen(`slug?: string`),
	})
	require.NoError(t, err)

	plain, err := model.Create("Plain", model.Options{})
	require.NoError(t, err)

	return Types{
		Person:   person,
		Employee: employee,
		Company:  company,
		Document: document,
		Plain:    plain,
	}
}

// MustNew builds an instance or fails the test.
func MustNew(t testing.TB, typ *model.Type, raw map[string]any) model.Instance {
	t.Helper()
	inst, err := typ.NewFromMap(raw)
	require.NoError(t, err)
	return inst
}
