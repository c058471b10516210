//go:build !windows

package folders

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattn/go-shellwords"
)

const downloadKey = "XDG_DOWNLOAD_DIR"

// Downloads returns the user's Downloads folder. XDG_DOWNLOAD_DIR wins, then
// the entry in user-dirs.dirs, then ~/Downloads.
func Downloads() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrNoDownloads, err)
	}

	if dir := os.Getenv(downloadKey); dir != "" {
		return expandUserDir(dir, home), nil
	}

	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		configHome = filepath.Join(home, ".config")
	}
	dir, err := readUserDirs(filepath.Join(configHome, "user-dirs.dirs"), home)
	if err == nil && dir != "" {
		return dir, nil
	}

	return filepath.Join(home, "Downloads"), nil
}

// readUserDirs extracts XDG_DOWNLOAD_DIR from an xdg-user-dirs file. Lines
// look like XDG_DOWNLOAD_DIR="$HOME/Downloads".
func readUserDirs(path, home string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok || strings.TrimSpace(key) != downloadKey {
			continue
		}
		words, err := shellwords.Parse(strings.TrimSpace(value))
		if err != nil || len(words) != 1 {
			return "", fmt.Errorf("parse %s: malformed %s", path, downloadKey)
		}
		return expandUserDir(words[0], home), nil
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return "", errors.New("no " + downloadKey + " entry")
}

func expandUserDir(dir, home string) string {
	switch {
	case dir == "$HOME":
		return home
	case strings.HasPrefix(dir, "$HOME/"):
		return filepath.Join(home, strings.TrimPrefix(dir, "$HOME/"))
	case !filepath.IsAbs(dir):
		return filepath.Join(home, dir)
	}
	return dir
}
