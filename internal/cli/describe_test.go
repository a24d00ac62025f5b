package cli

import (
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGoldie(t *testing.T) *goldie.Goldie {
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

func TestDescribe(t *testing.T) {
	stdout, _, err := runCLI(t, "describe", writeModels(t))
	require.NoError(t, err)

	newGoldie(t).Assert(t, "describe", []byte(stdout))
}

func TestDescribeSelectedTypes(t *testing.T) {
	stdout, _, err := runCLI(t, "--format", "json", "describe", writeModels(t), "Employee")
	require.NoError(t, err)

	var resp struct {
		Status string            `json:"status"`
		Data   []TypeDescription `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, TypeDescription{
		Name:       "Employee",
		Collection: "employee",
		Index:      "email",
		Extends:    "Person",
		Lineage:    []string{"model", "Person", "Employee"},
		Strict:     true,
		Fields:     []string{"age", "company", "email", "name", "revision"},
	}, resp.Data[0])
}

func TestDescribeUnknownType(t *testing.T) {
	stdout, _, err := runCLI(t, "describe", writeModels(t), "Robot")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, stdout, "Error [UNKNOWN_MODEL]")
	assert.Contains(t, stdout, `model "Robot" is not declared`)
}
