package mapper

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/genesis/internal/attr"
	"github.com/roach88/genesis/internal/model"
	"github.com/roach88/genesis/internal/schema"
)

func TestErrorsMatchByCode(t *testing.T) {
	cause := errors.New("disk on fire")
	err := fmt.Errorf("save: %w", Backend("insert", cause))

	assert.ErrorIs(t, err, ErrBackend)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.Equal(t, ErrCodeBackend, CodeOf(err))
	assert.Equal(t, ErrorCode(""), CodeOf(cause))
	assert.Equal(t, "BACKEND: insert: disk on fire", Backend("insert", cause).Error())
}

func TestCheckInstance(t *testing.T) {
	person, err := model.Create("Person", model.Options{
		Index:  "email",
		Schema: schema.MustOpen(`email?: string`),
	})
	require.NoError(t, err)
	plain, err := model.Create("Plain", model.Options{})
	require.NoError(t, err)

	assert.ErrorIs(t, CheckInstance(model.Instance{}), ErrTypeMismatch)

	noIndex, err := plain.New(attr.Set{})
	require.NoError(t, err)
	err = CheckInstance(noIndex)
	assert.ErrorIs(t, err, ErrMissingIndex)
	assert.Contains(t, err.Error(), "Plain")

	noValue, err := person.New(attr.Set{})
	require.NoError(t, err)
	assert.ErrorIs(t, CheckInstance(noValue), ErrMissingIndex)

	ok, err := person.NewFromMap(map[string]any{"email": "a@x"})
	require.NoError(t, err)
	assert.NoError(t, CheckInstance(ok))

	v, key, err := KeyOf(ok)
	require.NoError(t, err)
	assert.Equal(t, attr.String("a@x"), v)
	assert.Equal(t, `"a@x"`, key)
}

func TestCheckType(t *testing.T) {
	err := CheckType(nil)
	assert.ErrorIs(t, err, ErrAmbiguousType)
	assert.Regexp(t, `(?i)model type`, err.Error())
	assert.NoError(t, CheckType(model.Base))
}

func TestErrorMessagesNameTheRecord(t *testing.T) {
	person, err := model.Create("Person", model.Options{
		Index:  "email",
		Schema: schema.MustOpen(`email: string`),
	})
	require.NoError(t, err)
	inst, err := person.NewFromMap(map[string]any{"email": "a@x"})
	require.NoError(t, err)

	assert.Equal(t, `ALREADY_EXISTS: Person with email "a@x" already exists`, AlreadyExists(inst, nil).Error())
	assert.Equal(t, `NOT_FOUND: Person with email "a@x" does not exist`, NotFound(inst).Error())
	assert.Contains(t, Conflict(inst).Error(), "revision 0")
	assert.ErrorIs(t, Conflict(inst), ErrConcurrencyConflict)
}
