// Package folders resolves the watch folder cleandl monitors.
package folders

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Errors returned by Resolve.
var (
	ErrNotFound     = errors.New("folders: watch folder does not exist")
	ErrNotDirectory = errors.New("folders: watch folder is not a directory")
	ErrNoDownloads  = errors.New("folders: downloads folder could not be determined")
)

// Resolve returns the absolute watch folder. An empty override selects the
// platform Downloads folder. A leading ~ in override is expanded to the home
// directory. The folder must exist.
func Resolve(override string) (string, error) {
	var dir string
	if strings.TrimSpace(override) == "" {
		d, err := Downloads()
		if err != nil {
			return "", err
		}
		dir = d
	} else {
		d, err := ExpandHome(strings.TrimSpace(override))
		if err != nil {
			return "", err
		}
		dir = d
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", dir, err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, abs)
		}
		return "", fmt.Errorf("stat %s: %w", abs, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%w: %s", ErrNotDirectory, abs)
	}
	return abs, nil
}

// ExpandHome replaces a leading "~" or "~/" with the user's home directory.
func ExpandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") && !strings.HasPrefix(path, `~\`) {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("expand %s: %w", path, err)
	}
	if path == "~" {
		return home, nil
	}
	return filepath.Join(home, path[2:]), nil
}
