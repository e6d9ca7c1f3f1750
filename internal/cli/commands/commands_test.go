package commands

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
)

const sampleLog = `2025-09-05 14:32:10,123 INFO service started
2025-09-05 14:40:00 ERROR db timeout
2025-09-05T15:01:00Z [WARNING] disk low
2025-09-05 15:30:00 ERROR db timeout
this is not a log line
2025-09-05 16:00:00 ERROR cache miss
`

// runCommand executes cmd with args and returns what it wrote.
func runCommand(t *testing.T, cmd *cobra.Command, args ...string) (string, string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	if args == nil {
		// cobra falls back to os.Args on nil
		args = []string{}
	}
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func writeTestFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("Failed to create dir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}
	return path
}

func resetExitCode(t *testing.T) {
	t.Helper()
	ExitCode = 0
	t.Cleanup(func() { ExitCode = 0 })
}

func TestNewAnalyzeCommand(t *testing.T) {
	cmd := NewAnalyzeCommand()

	if cmd.Use != "analyze [inputs...]" {
		t.Errorf("Unexpected Use: %s", cmd.Use)
	}

	flags := []string{
		"config", "output", "granularity", "workers",
		"keyword", "from", "to", "level",
		"json-out", "bar-out", "timeline-out",
		"print-matches", "fail-on-errors", "verbose", "quiet", "no-color",
		"webhook-url", "webhook-token", "webhook-trigger",
	}
	for _, flag := range flags {
		if cmd.Flags().Lookup(flag) == nil {
			t.Errorf("Missing flag: %s", flag)
		}
	}
}

func TestNewValidateCommand(t *testing.T) {
	cmd := NewValidateCommand()

	if cmd.Use != "validate <config-file>" {
		t.Errorf("Unexpected Use: %s", cmd.Use)
	}

	if !strings.Contains(cmd.Long, "Validate") {
		t.Error("Missing description in Long")
	}
}

func TestNewVersionCommand(t *testing.T) {
	stdout, _, err := runCommand(t, NewVersionCommand())
	if err != nil {
		t.Fatalf("version failed: %v", err)
	}
	if stdout != "loglens "+Version+"\n" {
		t.Errorf("version output = %q", stdout)
	}
}

func TestRunValidate_Success(t *testing.T) {
	tmpDir := t.TempDir()
	logPath := writeTestFile(t, tmpDir, "test.log", sampleLog)
	configPath := writeTestFile(t, tmpDir, "config.yaml", `
log_sources:
  - `+logPath+`
granularity: minute
filters:
  level: error
patterns:
  - name: custom
    regex: '^(?P<ts>\S+ \S+) (?P<level>\w+): (?P<msg>.*)$'
`)

	stdout, _, err := runCommand(t, NewValidateCommand(), configPath)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}

	for _, want := range []string{
		"Configuration valid!",
		"Granularity: minute",
		"Filters:     level=ERROR",
		"1. [built-in] datetime-level",
		"4. [datetime] custom",
		"Log files matched: 1",
		logPath,
	} {
		if !strings.Contains(stdout, want) {
			t.Errorf("output missing %q:\n%s", want, stdout)
		}
	}
}

func TestRunValidate_InvalidConfig(t *testing.T) {
	configPath := writeTestFile(t, t.TempDir(), "config.yaml", `
filters:
  level: verbose
`)

	_, _, err := runCommand(t, NewValidateCommand(), configPath)
	if err == nil {
		t.Fatal("Expected error for invalid filter level")
	}
	if !strings.Contains(err.Error(), "level") {
		t.Errorf("error = %v, want it to name the level filter", err)
	}
}

func TestRunValidate_MissingFile(t *testing.T) {
	_, _, err := runCommand(t, NewValidateCommand(), "/nonexistent/config.yaml")
	if err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestRunValidate_NoLogSources(t *testing.T) {
	configPath := writeTestFile(t, t.TempDir(), "config.yaml", "granularity: day\n")

	stdout, _, err := runCommand(t, NewValidateCommand(), configPath)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if !strings.Contains(stdout, "No log_sources configured") {
		t.Errorf("output missing log_sources note:\n%s", stdout)
	}
}
