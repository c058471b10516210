package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tessro/cleandl/internal/daemon"
)

func sampleStatus(now time.Time) *daemon.StatusResponse {
	return &daemon.StatusResponse{
		Daemon: daemon.DaemonStatus{Running: true, PID: 321, StartedAt: now.Add(-time.Hour), Version: "dev"},
		Engine: daemon.EngineStatus{
			Running:              true,
			WatchFolder:          "/home/u/Downloads",
			DeleteMode:           "trash",
			FallbackToPermanent:  true,
			BufferedTerminations: 2,
		},
		Tracked: []daemon.TrackedStatus{
			{PID: 4242, Name: "evince", Path: "/home/u/Downloads/report.pdf", Since: now.Add(-90 * time.Second)},
		},
		Recent: []daemon.OutcomeInfo{
			{PID: 7, Path: "/home/u/Downloads/setup.msi", State: "failed", Error: "trash unavailable", At: now},
		},
	}
}

func TestWriteStatus_Table(t *testing.T) {
	now := time.Now()
	var buf bytes.Buffer
	if err := writeStatus(&buf, sampleStatus(now), formatTable, now); err != nil {
		t.Fatalf("writeStatus: %v", err)
	}

	out := buf.String()
	for _, want := range []string{
		"pid 321", "uptime 1h0m0s",
		"/home/u/Downloads",
		"trash (falls back to permanent)",
		"Buffered terminations: 2",
		"4242", "evince", "1m30s", "report.pdf",
		"failed", "setup.msi", "trash unavailable",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("table output missing %q:\n%s", want, out)
		}
	}
}

func TestWriteStatus_Empty(t *testing.T) {
	now := time.Now()
	status := &daemon.StatusResponse{Daemon: daemon.DaemonStatus{StartedAt: now}}

	var buf bytes.Buffer
	if err := writeStatus(&buf, status, formatTable, now); err != nil {
		t.Fatalf("writeStatus: %v", err)
	}
	if !strings.Contains(buf.String(), "No files tracked.") {
		t.Errorf("expected empty marker, got:\n%s", buf.String())
	}
	if strings.Contains(buf.String(), "Recent") {
		t.Error("recent section should be omitted when empty")
	}
}

func TestWriteStatus_Structured(t *testing.T) {
	now := time.Now()

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		if err := writeStatus(&buf, sampleStatus(now), formatJSON, now); err != nil {
			t.Fatalf("writeStatus: %v", err)
		}
		var got daemon.StatusResponse
		if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
			t.Fatalf("output is not JSON: %v", err)
		}
		if got.Engine.WatchFolder != "/home/u/Downloads" || len(got.Tracked) != 1 {
			t.Errorf("unexpected decoded status: %+v", got)
		}
	})

	t.Run("yaml", func(t *testing.T) {
		var buf bytes.Buffer
		if err := writeStatus(&buf, sampleStatus(now), formatYAML, now); err != nil {
			t.Fatalf("writeStatus: %v", err)
		}
		var got map[string]any
		if err := yaml.Unmarshal(buf.Bytes(), &got); err != nil {
			t.Fatalf("output is not YAML: %v", err)
		}
		engine, ok := got["engine"].(map[string]any)
		if !ok {
			t.Fatalf("missing engine section: %v", got)
		}
		if engine["delete_mode"] != "trash" {
			t.Errorf("delete_mode = %v, want trash", engine["delete_mode"])
		}
	})
}

func TestCheckFormat(t *testing.T) {
	for _, f := range []string{formatTable, formatYAML, formatJSON} {
		if err := checkFormat(f); err != nil {
			t.Errorf("checkFormat(%q) = %v", f, err)
		}
	}
	if err := checkFormat("xml"); err == nil {
		t.Error("checkFormat(xml) should fail")
	}
}
