package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/genesis/internal/manifest"
	"github.com/roach88/genesis/internal/mapper"
	"github.com/roach88/genesis/internal/query"
	"github.com/roach88/genesis/internal/schema"
)

func TestOutputFormatter_JSONSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	data := map[string]string{"result": "success"}
	err := formatter.Success(data)
	require.NoError(t, err)

	var resp CLIResponse
	err = json.Unmarshal(buf.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Status)
	assert.NotNil(t, resp.Data)
}

func TestOutputFormatter_JSONError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	err := formatter.Error("CYCLE", "extends cycle: A → A", nil)
	require.NoError(t, err)

	var resp CLIResponse
	err = json.Unmarshal(buf.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, "error", resp.Status)
	assert.NotNil(t, resp.Error)
	assert.Equal(t, "CYCLE", resp.Error.Code)
	assert.Equal(t, "extends cycle: A → A", resp.Error.Message)
}

func TestOutputFormatter_JSONErrorWithDetails(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	details := map[string]string{"file": "models.cue", "line": "42"}
	err := formatter.Error("BUILD_FAILED", "expected label", details)
	require.NoError(t, err)

	var resp CLIResponse
	err = json.Unmarshal(buf.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, "error", resp.Status)
	assert.NotNil(t, resp.Error)
	assert.NotNil(t, resp.Error.Details)
}

func TestOutputFormatter_TextSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "text",
		Writer: buf,
	}

	err := formatter.Success("3 model type(s) valid")
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "3 model type(s) valid")
}

func TestOutputFormatter_TextError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format:  "text",
		Writer:  buf,
		Verbose: false,
	}

	err := formatter.Error("CYCLE", "extends cycle: A → A", nil)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Error [CYCLE]")
	assert.Contains(t, buf.String(), "extends cycle: A → A")
}

func TestOutputFormatter_TextErrorVerbose(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format:  "text",
		Writer:  buf,
		Verbose: true,
	}

	details := map[string]string{"file": "models.cue"}
	err := formatter.Error("CYCLE", "extends cycle: A → A", details)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Error [CYCLE]")
	assert.Contains(t, buf.String(), "Details:")
}

func TestOutputFormatter_VerboseLog(t *testing.T) {
	tests := []struct {
		name    string
		verbose bool
		wantLog bool
	}{
		{"verbose_enabled", true, true},
		{"verbose_disabled", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			formatter := &OutputFormatter{
				Format:  "text",
				Writer:  buf,
				Verbose: tt.verbose,
			}

			formatter.VerboseLog("Compiled model: %s", "Person")

			if tt.wantLog {
				assert.Contains(t, buf.String(), "Compiled model: Person")
			} else {
				assert.Empty(t, buf.String())
			}
		})
	}
}

func TestOutputFormatter_VerboseLogUsesErrWriter(t *testing.T) {
	out := &bytes.Buffer{}
	diag := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: out, ErrWriter: diag, Verbose: true}

	formatter.VerboseLog("Created %s", "Person")
	assert.Empty(t, out.String())
	assert.Equal(t, "Created Person\n", diag.String())
}

func TestCLIResponse_JSON(t *testing.T) {
	resp := CLIResponse{
		Status: "ok",
		Data:   map[string]int{"count": 42},
	}

	data, err := json.Marshal(resp)
	require.NoError(t, err)

	var decoded CLIResponse
	err = json.Unmarshal(data, &decoded)
	require.NoError(t, err)
	assert.Equal(t, "ok", decoded.Status)
}

func TestCLIError_JSON(t *testing.T) {
	cliErr := CLIError{
		Code:    "VALIDATION",
		Message: "field is not allowed",
		Details: []string{"nickname"},
	}

	data, err := json.Marshal(cliErr)
	require.NoError(t, err)

	var decoded CLIError
	err = json.Unmarshal(data, &decoded)
	require.NoError(t, err)
	assert.Equal(t, "VALIDATION", decoded.Code)
	assert.Equal(t, "field is not allowed", decoded.Message)
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
		wantExit int
	}{
		{"manifest", &manifest.Error{Code: manifest.ErrCodeCycle, Message: "loop"}, "CYCLE", ExitCommandError},
		{"schema", fmt.Errorf("record 1: %w", &schema.Error{Code: schema.ErrCodeValidation}), "VALIDATION", ExitFailure},
		{"conflict", fmt.Errorf("record 2: %w", &mapper.Error{Code: mapper.ErrCodeConcurrencyConflict}), "CONCURRENCY_CONFLICT", ExitFailure},
		{"backend", &mapper.Error{Code: mapper.ErrCodeBackend, Message: "connect"}, "BACKEND", ExitCommandError},
		{"invalid query", fmt.Errorf("find: %w", query.ErrInvalidQuery), ErrCodeInput, ExitCommandError},
		{"input", inputError(errors.New("bad yaml")), ErrCodeInput, ExitCommandError},
		{"other", errors.New("boom"), ErrCodeGeneric, ExitFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, exit := classifyError(tt.err)
			assert.Equal(t, tt.wantCode, code)
			assert.Equal(t, tt.wantExit, exit)
		})
	}
}

func TestOutputFormatter_Fail(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	err := formatter.Fail(inputError(errors.New("no records found")))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, ErrCodeInput, resp.Error.Code)
	assert.Equal(t, "no records found", resp.Error.Message)
}

func TestOutputFormatter_FailDetails(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	_ = formatter.Fail(&schema.Error{Code: schema.ErrCodeValidation, Field: "age", Message: "invalid value"})

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, map[string]interface{}{"field": "age"}, resp.Error.Details)
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitCommandError, GetExitCode(WrapExitError(ExitCommandError, ErrCodeInput, nil)))
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("x")))
}
