package commands

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ccollicutt/loglens/pkg/config"
	"github.com/ccollicutt/loglens/pkg/detector"
)

const log4jSample = `2024-01-15 10:30:00.123 [main] INFO com.example.App - started
2024-01-15 10:30:01.456 [pool-1] ERROR com.example.Db - connection lost
2024-01-15 10:30:02.789 [pool-1] WARN com.example.Db - retrying
`

func detectLines(t *testing.T, lines ...string) *detector.DetectionResult {
	t.Helper()
	return detector.New().DetectFromLines(lines)
}

func TestGenerateStarterConfig(t *testing.T) {
	result := detectLines(t, strings.Split(strings.TrimSpace(log4jSample), "\n")...)
	if !result.NeedsPattern() {
		t.Fatalf("expected a catalog match, got %+v", result.BestMatch())
	}

	data, err := generateStarterConfig("/var/log/app.log", config.DefaultConfig(), result.BestMatch())
	if err != nil {
		t.Fatalf("generateStarterConfig failed: %v", err)
	}

	for _, check := range []string{
		"# loglens configuration",
		"# Detected pattern: log4j (100% of sampled lines)",
		"log_sources:",
		"/var/log/app.log",
		"patterns:",
		"name: log4j",
	} {
		if !strings.Contains(string(data), check) {
			t.Errorf("Config missing %q:\n%s", check, data)
		}
	}

	// The generated file must load and parse the sampled format.
	configPath := writeTestFile(t, t.TempDir(), "loglens.yaml", string(data))
	cfg, err := config.Load(context.Background(), configPath)
	if err != nil {
		t.Fatalf("generated config does not load: %v\n%s", err, data)
	}
	if len(cfg.LinePatterns()) != 1 || cfg.LinePatterns()[0].Name != "log4j" {
		t.Errorf("LinePatterns = %v, want [log4j]", cfg.LinePatterns())
	}
}

func TestGenerateStarterConfig_BuiltIn(t *testing.T) {
	result := detectLines(t, "2025-09-05 14:32:10 INFO service started")
	if result.NeedsPattern() {
		t.Fatal("built-in match should not need a pattern")
	}

	data, err := generateStarterConfig("/var/log/app.log", config.DefaultConfig(), result.BestMatch())
	if err != nil {
		t.Fatalf("generateStarterConfig failed: %v", err)
	}
	if strings.Contains(string(data), "regex:") {
		t.Errorf("built-in pattern should not be written:\n%s", data)
	}
}

func TestWriteStarterConfig_Success(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "loglens.yaml")
	result := detectLines(t, "2025-09-05 14:32:10 INFO service started")

	var out strings.Builder
	if err := writeStarterConfig(result, config.DefaultConfig(), "app.log", configPath, &out); err != nil {
		t.Fatalf("writeStarterConfig failed: %v", err)
	}

	if _, err := os.Stat(configPath); err != nil {
		t.Fatalf("Config file not created: %v", err)
	}
	if !strings.Contains(out.String(), "Wrote starter config to: "+configPath) {
		t.Errorf("Unexpected output: %s", out.String())
	}
}

func TestWriteStarterConfig_NoOverwrite(t *testing.T) {
	configPath := writeTestFile(t, t.TempDir(), "loglens.yaml", "existing: content\n")
	result := detectLines(t, "2025-09-05 14:32:10 INFO service started")

	var out strings.Builder
	err := writeStarterConfig(result, config.DefaultConfig(), "app.log", configPath, &out)
	if err == nil {
		t.Fatal("Expected error when file exists")
	}
	if !strings.Contains(err.Error(), "already exists") {
		t.Errorf("error = %v, want 'already exists'", err)
	}

	data, _ := os.ReadFile(configPath)
	if string(data) != "existing: content\n" {
		t.Error("Existing file was modified")
	}
}

func TestWriteStarterConfig_NoMatch(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "loglens.yaml")
	result := detectLines(t, "no timestamp here", "still nothing")

	var out strings.Builder
	err := writeStarterConfig(result, config.DefaultConfig(), "app.log", configPath, &out)
	if err == nil {
		t.Fatal("Expected error when no pattern detected")
	}
	if _, statErr := os.Stat(configPath); statErr == nil {
		t.Error("Config file should not be created")
	}
}

func TestRunDetect_Text(t *testing.T) {
	logPath := writeTestFile(t, t.TempDir(), "app.log", log4jSample)

	stdout, _, err := runCommand(t, NewDetectCommand(), logPath)
	if err != nil {
		t.Fatalf("detect failed: %v", err)
	}

	for _, want := range []string{
		"=== Line Pattern Detection ===",
		"Lines sampled: 3",
		"Detected Pattern: log4j (catalog)",
		"Configuration snippet",
		"name: log4j",
	} {
		if !strings.Contains(stdout, want) {
			t.Errorf("output missing %q:\n%s", want, stdout)
		}
	}
}

func TestRunDetect_NoMatch(t *testing.T) {
	logPath := writeTestFile(t, t.TempDir(), "app.log", "hello\nworld\n")

	stdout, _, err := runCommand(t, NewDetectCommand(), logPath)
	if err != nil {
		t.Fatalf("detect failed: %v", err)
	}
	if !strings.Contains(stdout, "No line pattern detected.") {
		t.Errorf("output missing no-match notice:\n%s", stdout)
	}
	if !strings.Contains(stdout, "hello") {
		t.Errorf("output missing unparsed lines:\n%s", stdout)
	}
}

func TestRunDetect_JSON(t *testing.T) {
	logPath := writeTestFile(t, t.TempDir(), "app.log", sampleLog)

	stdout, _, err := runCommand(t, NewDetectCommand(), "-o", "json", "--all", logPath)
	if err != nil {
		t.Fatalf("detect failed: %v", err)
	}

	var doc JSONOutput
	if err := json.Unmarshal([]byte(stdout), &doc); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, stdout)
	}

	if doc.SampledLines != 6 {
		t.Errorf("SampledLines = %d, want 6", doc.SampledLines)
	}
	if doc.ParsedLines != 5 {
		t.Errorf("ParsedLines = %d, want 5", doc.ParsedLines)
	}
	if doc.NeedsPattern {
		t.Error("NeedsPattern = true, want false")
	}
	if len(doc.Matches) < 2 {
		t.Fatalf("Matches = %+v, want at least 2 with --all", doc.Matches)
	}
	if doc.Matches[0].Name != "datetime-level" || doc.Matches[0].Resolved != 4 {
		t.Errorf("best match = %+v, want datetime-level with 4 resolved", doc.Matches[0])
	}
}

func TestRunDetect_WriteConfig(t *testing.T) {
	tmpDir := t.TempDir()
	logPath := writeTestFile(t, tmpDir, "app.log", log4jSample)
	configPath := filepath.Join(tmpDir, "loglens.yaml")

	stdout, _, err := runCommand(t, NewDetectCommand(), "-w", configPath, logPath)
	if err != nil {
		t.Fatalf("detect failed: %v", err)
	}
	if !strings.Contains(stdout, "Wrote starter config to:") {
		t.Errorf("output missing write notice:\n%s", stdout)
	}

	// The written config should make analyze recognize every line.
	resetExitCode(t)
	stdout, _, err = runCommand(t, NewAnalyzeCommand(), "-q", "-c", configPath)
	if err != nil {
		t.Fatalf("analyze with generated config failed: %v", err)
	}
	want := "loglens: 3 entries (INFO=1, WARNING=1, ERROR=1), 0 malformed"
	if !strings.Contains(stdout, want) {
		t.Errorf("output = %q, want it to contain %q", stdout, want)
	}
}

func TestRunDetect_Errors(t *testing.T) {
	logPath := writeTestFile(t, t.TempDir(), "app.log", sampleLog)

	tests := []struct {
		name string
		args []string
	}{
		{"missing file", []string{"/nonexistent/app.log"}},
		{"invalid output", []string{"-o", "xml", logPath}},
		{"no args", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := runCommand(t, NewDetectCommand(), tt.args...); err == nil {
				t.Error("Expected error")
			}
		})
	}
}
