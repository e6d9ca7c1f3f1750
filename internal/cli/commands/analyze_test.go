package commands

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/ccollicutt/loglens/pkg/config"
	"github.com/ccollicutt/loglens/pkg/output"
)

func TestCollectWebhooks(t *testing.T) {
	cfg := &config.Config{
		Webhooks: []config.WebhookConfig{
			{Name: "ops", URL: "https://ops.example.com/hook", Trigger: config.WebhookTriggerAlways},
		},
	}

	t.Run("config only", func(t *testing.T) {
		hooks, err := collectWebhooks(cfg, &AnalyzeOptions{})
		if err != nil {
			t.Fatalf("collectWebhooks failed: %v", err)
		}
		if len(hooks) != 1 {
			t.Fatalf("len = %d, want 1", len(hooks))
		}
		if hooks[0].Name != "ops" {
			t.Errorf("Name = %q, want ops", hooks[0].Name)
		}
	})

	t.Run("config plus flag", func(t *testing.T) {
		hooks, err := collectWebhooks(cfg, &AnalyzeOptions{
			WebhookURL:   "https://cli.example.com/hook",
			WebhookToken: "secret",
		})
		if err != nil {
			t.Fatalf("collectWebhooks failed: %v", err)
		}
		if len(hooks) != 2 {
			t.Fatalf("len = %d, want 2", len(hooks))
		}
		cli := hooks[1]
		if cli.Name != "cli" {
			t.Errorf("Name = %q, want cli", cli.Name)
		}
		if cli.Token != "secret" {
			t.Errorf("Token = %q, want secret", cli.Token)
		}
		if cli.Trigger != config.WebhookTriggerOnErrors {
			t.Errorf("Trigger = %q, want %q", cli.Trigger, config.WebhookTriggerOnErrors)
		}
		if cli.Timeout != config.DefaultWebhookTimeout {
			t.Errorf("Timeout = %v, want %v", cli.Timeout, config.DefaultWebhookTimeout)
		}
	})

	t.Run("explicit trigger", func(t *testing.T) {
		hooks, err := collectWebhooks(cfg, &AnalyzeOptions{
			WebhookURL:     "https://cli.example.com/hook",
			WebhookTrigger: "always",
		})
		if err != nil {
			t.Fatalf("collectWebhooks failed: %v", err)
		}
		if hooks[1].Trigger != config.WebhookTriggerAlways {
			t.Errorf("Trigger = %q, want %q", hooks[1].Trigger, config.WebhookTriggerAlways)
		}
	})

	t.Run("invalid trigger", func(t *testing.T) {
		_, err := collectWebhooks(cfg, &AnalyzeOptions{
			WebhookURL:     "https://cli.example.com/hook",
			WebhookTrigger: "bogus",
		})
		if err == nil || !strings.Contains(err.Error(), "bogus") {
			t.Errorf("error = %v, want invalid trigger", err)
		}
	})

	t.Run("none", func(t *testing.T) {
		hooks, err := collectWebhooks(&config.Config{}, &AnalyzeOptions{})
		if err != nil {
			t.Fatalf("collectWebhooks failed: %v", err)
		}
		if len(hooks) != 0 {
			t.Errorf("len = %d, want 0", len(hooks))
		}
	})
}

func TestRunAnalyze_Text(t *testing.T) {
	resetExitCode(t)
	logPath := writeTestFile(t, t.TempDir(), "app.log", sampleLog)

	stdout, _, err := runCommand(t, NewAnalyzeCommand(), "--no-color", logPath)
	if err != nil {
		t.Fatalf("analyze failed: %v", err)
	}

	for _, want := range []string{
		"SUMMARY",
		"Total entries: 5",
		"Malformed lines: 1",
		"db timeout",
		"cache miss",
	} {
		if !strings.Contains(stdout, want) {
			t.Errorf("output missing %q:\n%s", want, stdout)
		}
	}
	if ExitCode != 0 {
		t.Errorf("ExitCode = %d, want 0", ExitCode)
	}
}

func TestRunAnalyze_Quiet(t *testing.T) {
	resetExitCode(t)
	logPath := writeTestFile(t, t.TempDir(), "app.log", sampleLog)

	stdout, _, err := runCommand(t, NewAnalyzeCommand(), "-q", logPath)
	if err != nil {
		t.Fatalf("analyze failed: %v", err)
	}

	want := "loglens: 5 entries (INFO=1, WARNING=1, ERROR=3), 1 malformed"
	if !strings.Contains(stdout, want) {
		t.Errorf("output = %q, want it to contain %q", stdout, want)
	}
}

func TestRunAnalyze_JSON(t *testing.T) {
	resetExitCode(t)
	logPath := writeTestFile(t, t.TempDir(), "app.log", sampleLog)

	stdout, _, err := runCommand(t, NewAnalyzeCommand(),
		"-o", "json", "-g", "hour", "--level", "error", logPath)
	if err != nil {
		t.Fatalf("analyze failed: %v", err)
	}

	var report output.Report
	if err := json.Unmarshal([]byte(stdout), &report); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, stdout)
	}

	s := report.Summary
	if s.TotalEntries != 5 {
		t.Errorf("TotalEntries = %d, want 5", s.TotalEntries)
	}
	if s.Counts.Info != 1 || s.Counts.Warning != 1 || s.Counts.Error != 3 {
		t.Errorf("Counts = %+v, want 1/1/3", s.Counts)
	}
	if s.MalformedLines != 1 {
		t.Errorf("MalformedLines = %d, want 1", s.MalformedLines)
	}
	if s.FirstLog == nil || *s.FirstLog != "2025-09-05 14:32:10" {
		t.Errorf("FirstLog = %v, want 2025-09-05 14:32:10", s.FirstLog)
	}
	if s.LastLog == nil || *s.LastLog != "2025-09-05 16:00:00" {
		t.Errorf("LastLog = %v, want 2025-09-05 16:00:00", s.LastLog)
	}

	if len(s.CommonErrors) != 2 {
		t.Fatalf("CommonErrors = %+v, want 2 entries", s.CommonErrors)
	}
	if s.CommonErrors[0] != (output.ErrorCount{Message: "db timeout", Count: 2}) {
		t.Errorf("CommonErrors[0] = %+v", s.CommonErrors[0])
	}

	wantTimeline := []output.TimelineEntry{
		{Bucket: "2025-09-05 14:00:00", Count: 2},
		{Bucket: "2025-09-05 15:00:00", Count: 2},
		{Bucket: "2025-09-05 16:00:00", Count: 1},
	}
	if len(s.Timeline) != len(wantTimeline) {
		t.Fatalf("Timeline = %+v, want %+v", s.Timeline, wantTimeline)
	}
	for i, want := range wantTimeline {
		if s.Timeline[i] != want {
			t.Errorf("Timeline[%d] = %+v, want %+v", i, s.Timeline[i], want)
		}
	}

	// Filters are echoed but do not narrow the summary.
	if report.Metadata.Filters.Level != "error" {
		t.Errorf("Metadata.Filters.Level = %q, want error", report.Metadata.Filters.Level)
	}
	if len(report.Metadata.Sources) != 1 || report.Metadata.Sources[0] != logPath {
		t.Errorf("Metadata.Sources = %v", report.Metadata.Sources)
	}
}

func TestRunAnalyze_PrintMatches(t *testing.T) {
	resetExitCode(t)
	logPath := writeTestFile(t, t.TempDir(), "app.log", sampleLog)

	stdout, _, err := runCommand(t, NewAnalyzeCommand(),
		"-q", "--print-matches", "--level", "error", "--keyword", "DB", logPath)
	if err != nil {
		t.Fatalf("analyze failed: %v", err)
	}

	var matches []string
	for _, line := range strings.Split(stdout, "\n") {
		if strings.HasPrefix(line, logPath+":") {
			matches = append(matches, line)
		}
	}

	want := []string{
		logPath + ":2: 2025-09-05 14:40:00 ERROR db timeout",
		logPath + ":4: 2025-09-05 15:30:00 ERROR db timeout",
	}
	if len(matches) != len(want) {
		t.Fatalf("matches = %q, want %q", matches, want)
	}
	for i := range want {
		if matches[i] != want[i] {
			t.Errorf("match %d = %q, want %q", i, matches[i], want[i])
		}
	}
}

func TestRunAnalyze_PrintMatchesWithJSON(t *testing.T) {
	resetExitCode(t)
	logPath := writeTestFile(t, t.TempDir(), "app.log", sampleLog)

	stdout, stderr, err := runCommand(t, NewAnalyzeCommand(),
		"-o", "json", "--print-matches", "--level", "error", logPath)
	if err != nil {
		t.Fatalf("analyze failed: %v", err)
	}

	var report output.Report
	if err := json.Unmarshal([]byte(stdout), &report); err != nil {
		t.Fatalf("stdout is not valid JSON: %v\n%s", err, stdout)
	}
	if report.Summary.TotalEntries != 5 {
		t.Errorf("TotalEntries = %d, want 5", report.Summary.TotalEntries)
	}

	want := logPath + ":6: 2025-09-05 16:00:00 ERROR cache miss"
	if !strings.Contains(stderr, want) {
		t.Errorf("stderr missing %q:\n%s", want, stderr)
	}
}

func TestRunAnalyze_FailOnErrors(t *testing.T) {
	tmpDir := t.TempDir()
	withErrors := writeTestFile(t, tmpDir, "errors.log", sampleLog)
	clean := writeTestFile(t, tmpDir, "clean.log", "2025-09-05 14:32:10 INFO ok\n")

	tests := []struct {
		name     string
		path     string
		wantExit int
	}{
		{"errors found", withErrors, 1},
		{"no errors", clean, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetExitCode(t)
			_, _, err := runCommand(t, NewAnalyzeCommand(), "-q", "--fail-on-errors", tt.path)
			if err != nil {
				t.Fatalf("analyze failed: %v", err)
			}
			if ExitCode != tt.wantExit {
				t.Errorf("ExitCode = %d, want %d", ExitCode, tt.wantExit)
			}
		})
	}
}

func TestRunAnalyze_Errors(t *testing.T) {
	logPath := writeTestFile(t, t.TempDir(), "app.log", sampleLog)

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"invalid level", []string{"--level", "verbose", logPath}, "level"},
		{"invalid from", []string{"--from", "yesterday", logPath}, "from"},
		{"invalid granularity", []string{"-g", "week", logPath}, "granularity"},
		{"invalid format", []string{"-o", "xml", logPath}, "xml"},
		{"no inputs", nil, "no inputs"},
		{"missing file", []string{"/nonexistent/app.log"}, "/nonexistent/app.log"},
		{"missing config", []string{"-c", "/nonexistent/loglens.yaml", logPath}, "loading config"},
		{"invalid webhook trigger", []string{"--webhook-url", "http://127.0.0.1:1/hook", "--webhook-trigger", "bogus", logPath}, "webhook-trigger"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetExitCode(t)
			_, _, err := runCommand(t, NewAnalyzeCommand(), tt.args...)
			if err == nil {
				t.Fatal("Expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestRunAnalyze_ConfigSources(t *testing.T) {
	resetExitCode(t)
	tmpDir := t.TempDir()
	writeTestFile(t, tmpDir, "logs/a.log", sampleLog)
	writeTestFile(t, tmpDir, "logs/nested/b.log", "2025-09-05 18:00:00 WARN slow\n")
	writeTestFile(t, tmpDir, "logs/notes.md", "2025-09-05 18:00:00 ERROR ignored\n")
	configPath := writeTestFile(t, tmpDir, "loglens.yaml", `
log_sources:
  - `+filepath.Join(tmpDir, "logs")+`
granularity: day
`)

	stdout, _, err := runCommand(t, NewAnalyzeCommand(), "-q", "-c", configPath)
	if err != nil {
		t.Fatalf("analyze failed: %v", err)
	}

	want := "loglens: 6 entries (INFO=1, WARNING=2, ERROR=3), 1 malformed"
	if !strings.Contains(stdout, want) {
		t.Errorf("output = %q, want it to contain %q", stdout, want)
	}
}

func TestRunAnalyze_SideOutputs(t *testing.T) {
	resetExitCode(t)
	tmpDir := t.TempDir()
	logPath := writeTestFile(t, tmpDir, "app.log", sampleLog)
	jsonPath := filepath.Join(tmpDir, "summary.json")
	barPath := filepath.Join(tmpDir, "bar.txt")
	timelinePath := filepath.Join(tmpDir, "timeline.txt")

	_, stderr, err := runCommand(t, NewAnalyzeCommand(), "-q",
		"--json-out", jsonPath,
		"--bar-out", barPath,
		"--timeline-out", timelinePath,
		logPath)
	if err != nil {
		t.Fatalf("analyze failed: %v", err)
	}

	data, err := os.ReadFile(jsonPath)
	if err != nil {
		t.Fatalf("Failed to read JSON output: %v", err)
	}
	var summary output.Summary
	if err := json.Unmarshal(data, &summary); err != nil {
		t.Fatalf("invalid summary JSON: %v", err)
	}
	if summary.TotalEntries != 5 {
		t.Errorf("TotalEntries = %d, want 5", summary.TotalEntries)
	}

	for _, path := range []string{barPath, timelinePath} {
		info, err := os.Stat(path)
		if err != nil {
			t.Errorf("Missing chart %s: %v", path, err)
			continue
		}
		if info.Size() == 0 {
			t.Errorf("Chart %s is empty", path)
		}
	}

	for _, want := range []string{
		"Saved JSON -> " + jsonPath,
		"Saved bar chart -> " + barPath,
		"Saved timeline chart -> " + timelinePath,
	} {
		if !strings.Contains(stderr, want) {
			t.Errorf("stderr missing %q:\n%s", want, stderr)
		}
	}
}

func TestRunAnalyze_Webhook(t *testing.T) {
	resetExitCode(t)

	var hits atomic.Int32
	var received output.Report
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if got := r.Header.Get("Authorization"); got != "Bearer token123" {
			t.Errorf("Authorization = %q", got)
		}
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &received); err != nil {
			t.Errorf("invalid webhook body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	logPath := writeTestFile(t, t.TempDir(), "app.log", sampleLog)

	_, stderr, err := runCommand(t, NewAnalyzeCommand(), "-q",
		"--webhook-url", server.URL,
		"--webhook-token", "token123",
		logPath)
	if err != nil {
		t.Fatalf("analyze failed: %v", err)
	}

	if hits.Load() != 1 {
		t.Fatalf("webhook hits = %d, want 1", hits.Load())
	}
	if received.Summary.Counts.Error != 3 {
		t.Errorf("webhook Counts.Error = %d, want 3", received.Summary.Counts.Error)
	}
	if !strings.Contains(stderr, "Webhook cli: sent") {
		t.Errorf("stderr missing webhook status:\n%s", stderr)
	}
}

func TestRunAnalyze_WebhookNotTriggered(t *testing.T) {
	resetExitCode(t)

	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer server.Close()

	logPath := writeTestFile(t, t.TempDir(), "app.log", "2025-09-05 14:32:10 INFO ok\n")

	_, _, err := runCommand(t, NewAnalyzeCommand(), "-q", "--webhook-url", server.URL, logPath)
	if err != nil {
		t.Fatalf("analyze failed: %v", err)
	}
	if hits.Load() != 0 {
		t.Errorf("webhook hits = %d, want 0 for a run without errors", hits.Load())
	}
}
