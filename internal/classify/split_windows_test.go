//go:build windows

package classify

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/tessro/cleandl/internal/procevent"
)

func TestSplitCommandLine(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"empty", "", nil},
		{"simple", `app.exe a.pdf`, []string{"app.exe", "a.pdf"}},
		{"quoted path with spaces", `app.exe "C:\Users\me\Downloads\my report.pdf"`, []string{"app.exe", `C:\Users\me\Downloads\my report.pdf`}},
		{"backslashes are literal", `app.exe C:\dir\a.pdf`, []string{"app.exe", `C:\dir\a.pdf`}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SplitCommandLine(tt.in); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SplitCommandLine(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestFileArgument_DownloadsReport(t *testing.T) {
	downloads := filepath.Join(t.TempDir(), "Downloads")
	report := filepath.Join(downloads, "report.pdf")
	writeFile(t, report)

	c, err := New(downloads)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	d := procevent.Descriptor{PID: 4242, Name: "app.exe", CommandLine: `app.exe "` + report + `"`}
	got, ok := c.Match(d)
	if !ok {
		t.Fatalf("Match(%q) reported no match", d.CommandLine)
	}
	if got != report {
		t.Errorf("Match() = %q, want %q", got, report)
	}
	if filepath.Base(got) != "report.pdf" {
		t.Errorf("Match() base = %q, want report.pdf", filepath.Base(got))
	}
	if _, err := os.Stat(got); err != nil {
		t.Errorf("matched path should exist: %v", err)
	}
}
