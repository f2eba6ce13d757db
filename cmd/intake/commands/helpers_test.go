// ABOUTME: Shared helpers for command tests
// ABOUTME: Points every command at a throwaway data directory and captures output

package commands

import (
	"bytes"
	"io"
	"path/filepath"
	"strings"
	"testing"
)

// isolate sends all storage to a temp dir and removes the API key
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("INTAKE_DATA_DIR", dir)
	t.Setenv("INTAKE_DB_PATH", filepath.Join(dir, "intake.db"))
	t.Setenv("INTAKE_DOCS_DIR", filepath.Join(dir, "docs"))
	t.Setenv("INTAKE_CHECKPOINT_BACKEND", "sqlite")
	t.Setenv("INTAKE_VECTOR_BACKEND", "sqlite")
	t.Setenv("OPENAI_API_KEY", "")
	return dir
}

// run executes the root command with args and stdin, returning stdout
func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	var in io.Reader = strings.NewReader(stdin)
	cmd.SetIn(in)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}
