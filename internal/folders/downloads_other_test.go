//go:build !windows

package folders

import (
	"os"
	"path/filepath"
	"testing"
)

func setHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", "")
	t.Setenv("XDG_DOWNLOAD_DIR", "")
	return home
}

func TestDownloads_Fallback(t *testing.T) {
	home := setHome(t)

	got, err := Downloads()
	if err != nil {
		t.Fatalf("Downloads() error = %v", err)
	}
	if want := filepath.Join(home, "Downloads"); got != want {
		t.Errorf("Downloads() = %q, want %q", got, want)
	}
}

func TestDownloads_Env(t *testing.T) {
	home := setHome(t)
	t.Setenv("XDG_DOWNLOAD_DIR", "$HOME/dl")

	got, err := Downloads()
	if err != nil {
		t.Fatalf("Downloads() error = %v", err)
	}
	if want := filepath.Join(home, "dl"); got != want {
		t.Errorf("Downloads() = %q, want %q", got, want)
	}
}

func TestDownloads_UserDirsFile(t *testing.T) {
	home := setHome(t)
	config := filepath.Join(home, ".config")
	if err := os.MkdirAll(config, 0o755); err != nil {
		t.Fatal(err)
	}
	contents := `# written by xdg-user-dirs-update
XDG_DESKTOP_DIR="$HOME/Desktop"
XDG_DOWNLOAD_DIR="$HOME/Téléchargements"
`
	if err := os.WriteFile(filepath.Join(config, "user-dirs.dirs"), []byte(contents), 0o600); err != nil {
		t.Fatal(err)
	}

	got, err := Downloads()
	if err != nil {
		t.Fatalf("Downloads() error = %v", err)
	}
	if want := filepath.Join(home, "Téléchargements"); got != want {
		t.Errorf("Downloads() = %q, want %q", got, want)
	}
}

func TestExpandUserDir(t *testing.T) {
	home := "/home/u"
	tests := []struct {
		in, want string
	}{
		{"$HOME", home},
		{"$HOME/Downloads", "/home/u/Downloads"},
		{"Downloads", "/home/u/Downloads"},
		{"/srv/dl", "/srv/dl"},
	}
	for _, tt := range tests {
		if got := expandUserDir(tt.in, home); got != tt.want {
			t.Errorf("expandUserDir(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
