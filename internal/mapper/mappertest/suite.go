// Package mappertest is the conformance suite every mapper.Mapper backend
// must pass.
//
//	func TestConformance(t *testing.T) {
//		mappertest.Run(t, func(t *testing.T) mapper.Mapper {
//			return memmapper.New(nil)
//		})
//	}
package mappertest

import (
	"context"
	"sync"
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/genesis/internal/attr"
	"github.com/roach88/genesis/internal/mapper"
	"github.com/roach88/genesis/internal/model"
)

// Factory returns a fresh, empty mapper. It is called once per subtest.
type Factory func(t *testing.T) mapper.Mapper

// Run executes the suite against mappers produced by newMapper.
func Run(t *testing.T, newMapper Factory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, m mapper.Mapper, types Types)
	}{
		{"CreateFindOneRoundTrip", testRoundTrip},
		{"CreateDuplicateIndex", testCreateDuplicate},
		{"DecomposedIndexValue", testDecomposedIndex},
		{"Preconditions", testPreconditions},
		{"FindRequiresType", testFindRequiresType},
		{"FindEmpty", testFindEmpty},
		{"FindByAge", testFindByAge},
		{"FindValueKinds", testFindValueKinds},
		{"UpdateScenario", testUpdateScenario},
		{"UpdateNotFound", testUpdateNotFound},
		{"Destroy", testDestroy},
		{"CollectionsArePartitioned", testPartitions},
		{"ConcurrentUpdatesConflict", testConcurrentUpdates},
		{"CanceledContext", testCanceledContext},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.fn(t, newMapper(t), NewTypes(t))
		})
	}
}

func testRoundTrip(t *testing.T, m mapper.Mapper, types Types) {
	ctx := context.Background()
	inst := MustNew(t, types.Person, map[string]any{"email": "a@x", "age": 30})

	created, err := m.Create(ctx, inst)
	require.NoError(t, err)
	assert.True(t, created.Equal(inst))

	found, ok, err := m.FindOne(ctx, types.Person, attr.Set{"email": attr.String("a@x")})
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, found.Equal(inst), spew.Sdump(found.Attributes()))
	assert.Same(t, types.Person, found.Type())
}

func testCreateDuplicate(t *testing.T, m mapper.Mapper, types Types) {
	ctx := context.Background()
	first := MustNew(t, types.Person, map[string]any{"email": "a@x", "age": 30})
	second := MustNew(t, types.Person, map[string]any{"email": "a@x", "age": 99})

	_, err := m.Create(ctx, first)
	require.NoError(t, err)

	_, err = m.Create(ctx, second)
	require.Error(t, err)
	assert.ErrorIs(t, err, mapper.ErrAlreadyExists)
	assert.Contains(t, err.Error(), "already exists")

	found, err := m.Find(ctx, types.Person, nil)
	require.NoError(t, err)
	require.Len(t, found, 1, spew.Sdump(found))
	assert.True(t, found[0].Equal(first))
}

func testDecomposedIndex(t *testing.T, m mapper.Mapper, types Types) {
	ctx := context.Background()
	decomposed := "zoe\u0308@x.com"
	precomposed := "z\u00f6e@x.com"
	inst := MustNew(t, types.Person, map[string]any{"email": decomposed, "age": 30})

	created, err := m.Create(ctx, inst)
	require.NoError(t, err)

	found, ok, err := m.FindOne(ctx, types.Person, attr.Set{"email": attr.String(decomposed)})
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, found.Equal(inst), spew.Sdump(found.Attributes()))

	all, err := m.Find(ctx, types.Person, nil)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.True(t, all[0].Equal(inst), spew.Sdump(all[0].Attributes()))

	// The precomposed spelling is a different index value.
	other := MustNew(t, types.Person, map[string]any{"email": precomposed})
	_, err = m.Create(ctx, other)
	require.NoError(t, err)
	_, ok, err = m.FindOne(ctx, types.Person, attr.Set{"email": attr.String(precomposed)})
	require.NoError(t, err)
	assert.True(t, ok)

	v1, err := m.Update(ctx, created)
	require.NoError(t, err)
	assert.Equal(t, int64(1), v1.Revision())

	destroyed, err := m.Destroy(ctx, v1)
	require.NoError(t, err)
	assert.True(t, destroyed.Equal(v1))

	_, ok, err = m.FindOne(ctx, types.Person, attr.Set{"email": attr.String(decomposed)})
	require.NoError(t, err)
	assert.False(t, ok)
	_, ok, err = m.FindOne(ctx, types.Person, attr.Set{"email": attr.String(precomposed)})
	require.NoError(t, err)
	assert.True(t, ok)
}

func testPreconditions(t *testing.T, m mapper.Mapper, types Types) {
	ctx := context.Background()
	plain := MustNew(t, types.Plain, map[string]any{"name": "x"})
	noSlug := MustNew(t, types.Document, map[string]any{"title": "untitled"})

	_, err := m.Create(ctx, model.Instance{})
	assert.ErrorIs(t, err, mapper.ErrTypeMismatch)
	_, err = m.Update(ctx, model.Instance{})
	assert.ErrorIs(t, err, mapper.ErrTypeMismatch)
	_, err = m.Destroy(ctx, model.Instance{})
	assert.ErrorIs(t, err, mapper.ErrTypeMismatch)

	for _, inst := range []model.Instance{plain, noSlug} {
		_, err = m.Create(ctx, inst)
		assert.ErrorIs(t, err, mapper.ErrMissingIndex)
		_, err = m.Update(ctx, inst)
		assert.ErrorIs(t, err, mapper.ErrMissingIndex)
		_, err = m.Destroy(ctx, inst)
		assert.ErrorIs(t, err, mapper.ErrMissingIndex)
	}
}

func testFindRequiresType(t *testing.T, m mapper.Mapper, _ Types) {
	ctx := context.Background()

	_, err := m.Find(ctx, nil, attr.Set{})
	require.Error(t, err)
	assert.ErrorIs(t, err, mapper.ErrAmbiguousType)
	assert.Regexp(t, `(?i)model type`, err.Error())

	_, _, err = m.FindOne(ctx, nil, attr.Set{})
	assert.ErrorIs(t, err, mapper.ErrAmbiguousType)
}

func testFindEmpty(t *testing.T, m mapper.Mapper, types Types) {
	ctx := context.Background()

	found, err := m.Find(ctx, types.Person, attr.Set{"email": attr.String("nobody@x")})
	require.NoError(t, err)
	assert.NotNil(t, found)
	assert.Empty(t, found)

	_, ok, err := m.FindOne(ctx, types.Person, nil)
	require.NoError(t, err)
	assert.False(t, ok)
}

func testFindByAge(t *testing.T, m mapper.Mapper, types Types) {
	ctx := context.Background()
	a := MustNew(t, types.Person, map[string]any{"email": "a@x", "age": 30})
	b := MustNew(t, types.Person, map[string]any{"email": "b@x", "age": 30})
	c := MustNew(t, types.Person, map[string]any{"email": "c@x", "age": 40})
	for _, inst := range []model.Instance{a, b, c} {
		_, err := m.Create(ctx, inst)
		require.NoError(t, err)
	}

	found, err := m.Find(ctx, types.Person, attr.Set{"age": attr.Int(30)})
	require.NoError(t, err)
	require.Len(t, found, 2, spew.Sdump(found))
	assert.True(t, found[0].Equal(a))
	assert.True(t, found[1].Equal(b))

	all, err := m.Find(ctx, types.Person, attr.Set{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.True(t, all[2].Equal(c))

	none, err := m.Find(ctx, types.Person, attr.Set{"age": attr.String("30")})
	require.NoError(t, err)
	assert.Empty(t, none)

	both, err := m.Find(ctx, types.Person, attr.Set{"age": attr.Int(30), "email": attr.String("b@x")})
	require.NoError(t, err)
	require.Len(t, both, 1)
	assert.True(t, both[0].Equal(b))

	first, ok, err := m.FindOne(ctx, types.Person, attr.Set{"age": attr.Int(30)})
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, first.Equal(a))
}

func testFindValueKinds(t *testing.T, m mapper.Mapper, types Types) {
	ctx := context.Background()
	doc := MustNew(t, types.Document, map[string]any{
		"slug":      "intro",
		"published": true,
		"draft":     false,
		"note":      nil,
		"tags":      []any{"go", "db"},
		"meta":      map[string]any{"lang": "en", "words": 120},
	})
	other := MustNew(t, types.Document, map[string]any{
		"slug":      "other",
		"published": false,
		"tags":      []any{"db", "go"},
	})
	for _, inst := range []model.Instance{doc, other} {
		_, err := m.Create(ctx, inst)
		require.NoError(t, err)
	}

	tests := []struct {
		name  string
		where attr.Set
		want  []string
	}{
		{"bool true", attr.Set{"published": attr.Bool(true)}, []string{"intro"}},
		{"bool false", attr.Set{"published": attr.Bool(false)}, []string{"other"}},
		{"bool is not int", attr.Set{"published": attr.Int(1)}, nil},
		{"null matches stored null", attr.Set{"note": attr.Null{}}, []string{"intro"}},
		{"list in order", attr.Set{"tags": attr.List{attr.String("go"), attr.String("db")}}, []string{"intro"}},
		{"object", attr.Set{"meta": attr.Set{"words": attr.Int(120), "lang": attr.String("en")}}, []string{"intro"}},
		{"revision", attr.Set{"revision": attr.Int(0)}, []string{"intro", "other"}},
		{"quote in value", attr.Set{"slug": attr.String(`in'tro"`)}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			found, err := m.Find(ctx, types.Document, tt.where)
			require.NoError(t, err)

			var slugs []string
			for _, inst := range found {
				slug, _ := inst.Get("slug")
				slugs = append(slugs, string(slug.(attr.String)))
			}
			assert.Equal(t, tt.want, slugs, spew.Sdump(found))
		})
	}
}

// testUpdateScenario walks a record through successive revisions and checks
// that a stale copy is rejected at every step.
func testUpdateScenario(t *testing.T, m mapper.Mapper, types Types) {
	ctx := context.Background()
	original := MustNew(t, types.Person, map[string]any{"email": "a@x", "age": 30})

	created, err := m.Create(ctx, original)
	require.NoError(t, err)
	assert.Equal(t, int64(0), created.Revision())

	v1, err := m.Update(ctx, created)
	require.NoError(t, err)
	assert.Equal(t, int64(1), v1.Revision())
	assert.Equal(t, int64(0), created.Revision())

	_, err = m.Update(ctx, original)
	require.Error(t, err)
	assert.ErrorIs(t, err, mapper.ErrConcurrencyConflict)

	older, err := v1.With(attr.Set{"age": attr.Int(31)})
	require.NoError(t, err)
	v2, err := m.Update(ctx, older)
	require.NoError(t, err)
	assert.Equal(t, int64(2), v2.Revision())

	stored, ok, err := m.FindOne(ctx, types.Person, attr.Set{"email": attr.String("a@x")})
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, stored.Equal(v2), spew.Sdump(stored.Attributes()))
	age, _ := stored.Get("age")
	assert.Equal(t, attr.Int(31), age)

	_, err = m.Update(ctx, v1)
	assert.ErrorIs(t, err, mapper.ErrConcurrencyConflict)

	ahead, err := v2.With(attr.Set{"revision": attr.Int(7)})
	require.NoError(t, err)
	_, err = m.Update(ctx, ahead)
	assert.ErrorIs(t, err, mapper.ErrConcurrencyConflict)
}

func testUpdateNotFound(t *testing.T, m mapper.Mapper, types Types) {
	ctx := context.Background()
	ghost := MustNew(t, types.Person, map[string]any{"email": "ghost@x"})

	_, err := m.Update(ctx, ghost)
	require.Error(t, err)
	assert.ErrorIs(t, err, mapper.ErrNotFound)
	assert.Contains(t, err.Error(), "does not exist")

	_, ok, err := m.FindOne(ctx, types.Person, nil)
	require.NoError(t, err)
	assert.False(t, ok, "update must not create records")
}

func testDestroy(t *testing.T, m mapper.Mapper, types Types) {
	ctx := context.Background()
	inst := MustNew(t, types.Person, map[string]any{"email": "a@x"})
	_, err := m.Create(ctx, inst)
	require.NoError(t, err)
	v1, err := m.Update(ctx, inst)
	require.NoError(t, err)

	_, err = m.Destroy(ctx, inst)
	assert.ErrorIs(t, err, mapper.ErrConcurrencyConflict)

	destroyed, err := m.Destroy(ctx, v1)
	require.NoError(t, err)
	assert.True(t, destroyed.Equal(v1))

	_, ok, err := m.FindOne(ctx, types.Person, attr.Set{"email": attr.String("a@x")})
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = m.Destroy(ctx, v1)
	assert.ErrorIs(t, err, mapper.ErrNotFound)

	again, err := m.Create(ctx, inst)
	require.NoError(t, err)
	assert.Equal(t, int64(0), again.Revision())
}

func testPartitions(t *testing.T, m mapper.Mapper, types Types) {
	ctx := context.Background()
	person := MustNew(t, types.Person, map[string]any{"email": "a@x"})
	employee := MustNew(t, types.Employee, map[string]any{"email": "a@x", "company": "acme"})
	company := MustNew(t, types.Company, map[string]any{"name": "a@x"})

	for _, inst := range []model.Instance{person, employee, company} {
		_, err := m.Create(ctx, inst)
		require.NoError(t, err, "index values are unique per collection only")
	}

	people, err := m.Find(ctx, types.Person, nil)
	require.NoError(t, err)
	require.Len(t, people, 1)
	assert.Same(t, types.Person, people[0].Type())

	staff, err := m.Find(ctx, types.Employee, nil)
	require.NoError(t, err)
	require.Len(t, staff, 1)
	assert.True(t, staff[0].Is(types.Person))
	assert.True(t, staff[0].Equal(employee))
}

func testConcurrentUpdates(t *testing.T, m mapper.Mapper, types Types) {
	ctx := context.Background()
	inst := MustNew(t, types.Person, map[string]any{"email": "a@x"})
	_, err := m.Create(ctx, inst)
	require.NoError(t, err)

	const writers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		conflicts int
	)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := m.Update(ctx, inst)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case mapper.CodeOf(err) == mapper.ErrCodeConcurrencyConflict:
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, writers-1, conflicts)

	stored, ok, err := m.FindOne(ctx, types.Person, nil)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(1), stored.Revision())
}

func testCanceledContext(t *testing.T, m mapper.Mapper, types Types) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := m.Create(ctx, MustNew(t, types.Person, map[string]any{"email": "a@x"}))
	assert.ErrorIs(t, err, context.Canceled)

	_, err = m.Find(ctx, types.Person, nil)
	assert.ErrorIs(t, err, context.Canceled)
}
