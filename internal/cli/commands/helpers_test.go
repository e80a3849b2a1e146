package commands

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
)

const testRules = `# test rules
start /^=== (.*) ===$/ Stage
ok /ERROR: expected/
error /ERROR:/ Errors
warning /WARN:/ Warnings
info /^INFO /
`

// testLog has an implicit leading section and two stages: compile with one
// error, one warning and one info; test with one info and an OK'd error.
const testLog = `checkout done
=== compile ===
INFO compiling 3 files
WARN: unused variable x
ERROR: undefined: foo
=== test ===
ERROR: expected failure in negative test
INFO tests passed
`

// workspace lays out a rule file, a log and any extra files in a temp dir
// and returns the dir.
func workspace(t *testing.T, extra map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"build.rules": testRules,
		"console.log": testLog,
	}
	for k, v := range extra {
		files[k] = v
	}
	for name, content := range files {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("Failed to write %s: %v", name, err)
		}
	}
	return dir
}

func writeJob(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "job.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write job: %v", err)
	}
	return path
}

// execute runs cmd with args and returns its stdout. ExitCode is reset first.
func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	ExitCode = 0
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}
