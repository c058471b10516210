// Package paths is the single source of truth for cleandl file locations.
// Every helper honors environment overrides so tests can run isolated.
//
// Resolution order:
//  1. Specific env vars (CLEANDL_SOCKET_PATH, CLEANDL_PID_PATH)
//  2. CLEANDL_DIR as the base directory (socket, pid, log and config derive from it)
//  3. Defaults: ~/.cleandl for runtime files, ~/.config/cleandl for settings
package paths

import (
	"os"
	"path/filepath"
)

// Environment variable names for path overrides.
const (
	// EnvDir overrides the base directory (e.g. /tmp/cleandl-test).
	EnvDir = "CLEANDL_DIR"

	// EnvSocketPath overrides the control socket path directly.
	EnvSocketPath = "CLEANDL_SOCKET_PATH"

	// EnvPIDPath overrides the PID file path directly.
	EnvPIDPath = "CLEANDL_PID_PATH"
)

// BaseDir returns the runtime directory (~/.cleandl by default).
func BaseDir() (string, error) {
	if dir := os.Getenv(EnvDir); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cleandl"), nil
}

// ConfigDir returns the settings directory (~/.config/cleandl by default,
// CLEANDL_DIR/config when overridden).
func ConfigDir() (string, error) {
	if dir := os.Getenv(EnvDir); dir != "" {
		return filepath.Join(dir, "config"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "cleandl"), nil
}

// SettingsPath returns the path of settings.toml.
func SettingsPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "settings.toml"), nil
}

// SocketPath returns the daemon control socket path.
// Precedence: CLEANDL_SOCKET_PATH > CLEANDL_DIR/cleandl.sock > ~/.cleandl/cleandl.sock
func SocketPath() string {
	if path := os.Getenv(EnvSocketPath); path != "" {
		return path
	}
	base, err := BaseDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "cleandl.sock")
	}
	return filepath.Join(base, "cleandl.sock")
}

// PIDPath returns the daemon PID file path.
// Precedence: CLEANDL_PID_PATH > CLEANDL_DIR/cleandl.pid > ~/.cleandl/cleandl.pid
func PIDPath() string {
	if path := os.Getenv(EnvPIDPath); path != "" {
		return path
	}
	base, err := BaseDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "cleandl.pid")
	}
	return filepath.Join(base, "cleandl.pid")
}

// LogPath returns the daemon log file path.
func LogPath() string {
	base, err := BaseDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "cleandl.log")
	}
	return filepath.Join(base, "cleandl.log")
}
