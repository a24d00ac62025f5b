package cli

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/genesis/internal/attr"
)

func TestParseRecords(t *testing.T) {
	t.Run("single mapping", func(t *testing.T) {
		records, err := ParseRecords([]byte("email: a@x\nage: 30\ntags: [a, b]\nmeta: {k: v}\nnote: null\n"))
		require.NoError(t, err)
		assert.Equal(t, []attr.Set{{
			"email": attr.String("a@x"),
			"age":   attr.Int(30),
			"tags":  attr.List{attr.String("a"), attr.String("b")},
			"meta":  attr.Set{"k": attr.String("v")},
			"note":  attr.Null{},
		}}, records)
	})

	t.Run("sequence", func(t *testing.T) {
		records, err := ParseRecords([]byte("- email: a@x\n- email: b@x\n  admin: true\n"))
		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, attr.Bool(true), records[1]["admin"])
	})

	t.Run("integral float", func(t *testing.T) {
		records, err := ParseRecords([]byte("age: 30.0\n"))
		require.NoError(t, err)
		assert.Equal(t, attr.Int(30), records[0]["age"])
	})

	for name, input := range map[string]string{
		"empty":               "",
		"comment only":        "# nothing\n",
		"scalar":              "hello\n",
		"empty sequence":      "[]\n",
		"sequence of scalars": "- 1\n- 2\n",
		"fraction":            "age: 1.5\n",
		"malformed":           "a: [\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ParseRecords([]byte(input))
			assert.Error(t, err)
		})
	}
}

func TestReadRecordsStdin(t *testing.T) {
	records, err := ReadRecords("-", strings.NewReader("email: a@x\n"))
	require.NoError(t, err)
	assert.Equal(t, []attr.Set{{"email": attr.String("a@x")}}, records)
}

func TestParseWhere(t *testing.T) {
	where, err := ParseWhere([]string{
		"age=30",
		`code="30"`,
		"email=a@x",
		"admin=true",
		"note=",
		"tags=[a, b]",
		"expr=a=b",
	})
	require.NoError(t, err)
	assert.Equal(t, attr.Set{
		"age":   attr.Int(30),
		"code":  attr.String("30"),
		"email": attr.String("a@x"),
		"admin": attr.Bool(true),
		"note":  attr.Null{},
		"tags":  attr.List{attr.String("a"), attr.String("b")},
		"expr":  attr.String("a=b"),
	}, where)

	empty, err := ParseWhere(nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestParseWhereErrors(t *testing.T) {
	for _, pairs := range [][]string{
		{"age"},
		{"=1"},
		{"age=1", "age=2"},
		{"age=1.5"},
		{"tags=[a"},
	} {
		_, err := ParseWhere(pairs)
		assert.Error(t, err, "%v", pairs)
	}
}

func TestDescribeWhere(t *testing.T) {
	assert.Equal(t, "(all)", describeWhere(nil))
	assert.Equal(t, `age=30 email="a@x"`, describeWhere(attr.Set{"email": attr.String("a@x"), "age": attr.Int(30)}))
}
