package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  slog.Level
	}{
		{"debug lowercase", "debug", slog.LevelDebug},
		{"debug uppercase", "DEBUG", slog.LevelDebug},
		{"info lowercase", "info", slog.LevelInfo},
		{"warn lowercase", "warn", slog.LevelWarn},
		{"warning alias", "warning", slog.LevelWarn},
		{"error uppercase", "ERROR", slog.LevelError},
		{"padded", " debug ", slog.LevelDebug},
		{"empty string", "", slog.LevelInfo},
		{"invalid value", "invalid", slog.LevelInfo},
		{"trace returns info", "trace", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseLevel(tt.input); got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestValidLevel(t *testing.T) {
	for _, l := range []string{"debug", "INFO", "warn", "error"} {
		if !ValidLevel(l) {
			t.Errorf("ValidLevel(%q) = false, want true", l)
		}
	}
	for _, l := range []string{"", "trace", "verbose"} {
		if ValidLevel(l) {
			t.Errorf("ValidLevel(%q) = true, want false", l)
		}
	}
}

func TestSetup_WritesJSON(t *testing.T) {
	prev := slog.Default()
	defer slog.SetDefault(prev)

	path := filepath.Join(t.TempDir(), "logs", "cleandl.log")
	cleanup, err := Setup(path, slog.LevelInfo)
	if err != nil {
		t.Fatalf("Setup() error = %v", err)
	}

	slog.Debug("hidden")
	slog.Info("file deleted", "pid", 42, "path", "/dl/a.pdf")
	cleanup()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 1 {
		t.Fatalf("got %d log lines, want 1:\n%s", len(lines), data)
	}

	var rec map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	if rec["msg"] != "file deleted" {
		t.Errorf("msg = %v, want %q", rec["msg"], "file deleted")
	}
	if rec["path"] != "/dl/a.pdf" {
		t.Errorf("path = %v, want %q", rec["path"], "/dl/a.pdf")
	}
}

func TestSetupMulti_TeesOutput(t *testing.T) {
	prev := slog.Default()
	defer slog.SetDefault(prev)

	var extra bytes.Buffer
	path := filepath.Join(t.TempDir(), "cleandl.log")
	cleanup, err := SetupMulti(path, &extra, slog.LevelDebug)
	if err != nil {
		t.Fatalf("SetupMulti() error = %v", err)
	}
	slog.Debug("tracking", "pid", 7)
	cleanup()

	if !strings.Contains(extra.String(), `"msg":"tracking"`) {
		t.Errorf("extra writer missing record: %q", extra.String())
	}
	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), `"msg":"tracking"`) {
		t.Errorf("log file missing record: %q", data)
	}
}

func TestLogPanic_Recovers(t *testing.T) {
	prev := slog.Default()
	defer slog.SetDefault(prev)

	var buf bytes.Buffer
	SetupTest(&buf)

	var recovered any
	func() {
		defer LogPanic("worker", func(r any) { recovered = r })
		panic("boom")
	}()

	if recovered != "boom" {
		t.Errorf("recovered = %v, want %q", recovered, "boom")
	}
	if !strings.Contains(buf.String(), "goroutine=worker") {
		t.Errorf("log missing goroutine name: %q", buf.String())
	}
}
