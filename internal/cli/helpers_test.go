package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/genesis/internal/config"
	"github.com/roach88/genesis/internal/testutil"
)

const peopleModels = `package models

model: Person: {
	index:  "email"
	strict: true
	schema: {
		email: string
		name?: string
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

// writeModels writes the people manifest to a temp dir.
func writeModels(t *testing.T) string {
	t.Helper()
	return writeFiles(t, map[string]string{"models.cue": peopleModels})
}

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	return testutil.WriteFiles(t, files)
}

// writeRecords writes a YAML records file and returns its path.
func writeRecords(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "records.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// storeURL returns the URL of an on-disk store private to the test.
func storeURL(t *testing.T) string {
	t.Helper()
	return "sqlite://" + filepath.ToSlash(filepath.Join(t.TempDir(), "test"))
}

// clearEnv keeps GENESIS_* variables of the host out of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{config.EnvURL, config.EnvDataDir, config.EnvBusyTimeout, config.EnvLogLevel} {
		t.Setenv(key, "")
	}
}

// runCLI executes the root command with args and returns stdout and stderr.
func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}

	cmd := NewRootCommand()
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}
