package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateValidModels(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewValidateCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{writeModels(t)})

	err := cmd.Execute()
	require.NoError(t, err)
	assert.Equal(t, "✓ 3 model type(s) valid: Person, Employee, Note\n", buf.String())
}

func TestValidateValidModelsJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "json"}
	cmd := NewValidateCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{writeModels(t)})

	err := cmd.Execute()
	require.NoError(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Valid)
	assert.Equal(t, []string{"Person", "Employee", "Note"}, resp.Data.Models)
}

func TestValidateNonExistentDirectory(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewValidateCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"/nonexistent/directory/path"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "NOT_FOUND")
	assert.Contains(t, buf.String(), "not found")
}

func TestValidateEmptyDirectory(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewValidateCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{t.TempDir()})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NO_FILES")
}

func TestValidateInvalidModels(t *testing.T) {
	tests := []struct {
		name    string
		content string
		code    string
	}{
		{
			name: "cycle",
			content: `package models

model: A: {extends: "B"}
model: B: {extends: "A"}
`,
			code: "CYCLE",
		},
		{
			name: "unknown parent",
			content: `package models

model: Employee: {extends: "Person"}
`,
			code: "UNKNOWN_PARENT",
		},
		{
			name: "invalid declaration",
			content: `package models

model: Person: {index: 3}
`,
			code: "INVALID_MODEL",
		},
		{
			name: "schema conflict",
			content: `package models

model: Person: {schema: revision: string}
`,
			code: "SCHEMA",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := writeFiles(t, map[string]string{"models.cue": tt.content})

			buf := &bytes.Buffer{}
			rootOpts := &RootOptions{Format: "json"}
			cmd := NewValidateCommand(rootOpts)
			cmd.SetOut(buf)
			cmd.SetArgs([]string{dir})

			err := cmd.Execute()
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))

			var resp CLIResponse
			require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
			assert.Equal(t, "error", resp.Status)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
		})
	}
}

func TestValidateReportsPosition(t *testing.T) {
	dir := writeFiles(t, map[string]string{"models.cue": `package models

model: Person: {}
model: Employee: {extends: "Ghost"}
`})

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "json"}
	cmd := NewValidateCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{dir})
	require.Error(t, cmd.Execute())

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	details, ok := resp.Error.Details.(map[string]interface{})
	require.True(t, ok, "details: %#v", resp.Error.Details)
	assert.Equal(t, float64(4), details["line"])
	assert.Contains(t, details["file"], "models.cue")
}
