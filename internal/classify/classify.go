// Package classify decides whether a launched process opened a file that lives
// inside the watch folder.
package classify

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/tessro/cleandl/internal/procevent"
)

// ErrEmptyWatchFolder is returned by New when no watch folder is given.
var ErrEmptyWatchFolder = errors.New("classify: watch folder is empty")

// Classifier extracts file arguments from command lines and tests them
// against a watch folder.
type Classifier struct {
	root     string
	foldCase bool
	split    func(string) []string
	isFile   func(string) bool
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithSplitter overrides the command-line tokenizer.
func WithSplitter(split func(string) []string) Option {
	return func(c *Classifier) { c.split = split }
}

// WithCaseFolding forces case-insensitive (or sensitive) folder comparison.
// The default follows the platform: insensitive on Windows and macOS.
func WithCaseFolding(fold bool) Option {
	return func(c *Classifier) { c.foldCase = fold }
}

// New creates a classifier for the given watch folder.
// The folder is made absolute and cleaned; it does not need to exist.
func New(watchFolder string, opts ...Option) (*Classifier, error) {
	if strings.TrimSpace(watchFolder) == "" {
		return nil, ErrEmptyWatchFolder
	}
	root, err := filepath.Abs(watchFolder)
	if err != nil {
		return nil, fmt.Errorf("resolve watch folder: %w", err)
	}

	c := &Classifier{
		root:     filepath.Clean(root),
		foldCase: runtime.GOOS == "windows" || runtime.GOOS == "darwin",
		split:    SplitCommandLine,
		isFile:   isRegularFile,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// WatchFolder returns the absolute watch folder path.
func (c *Classifier) WatchFolder() string {
	return c.root
}

// FileArgument returns the absolute path of the first argument after the
// executable that has a file extension and exists as a regular file.
// It reports false when no argument qualifies.
func (c *Classifier) FileArgument(d procevent.Descriptor) (string, bool) {
	args := d.Args
	if len(args) == 0 {
		args = c.split(d.CommandLine)
	}
	if len(args) < 2 {
		return "", false
	}

	// args[0] is the opener itself, never the payload.
	for _, arg := range args[1:] {
		if !hasExtension(arg) {
			continue
		}
		path := arg
		if !filepath.IsAbs(path) {
			if d.Cwd == "" {
				continue
			}
			path = filepath.Join(d.Cwd, path)
		}
		path = filepath.Clean(path)
		if c.isFile(path) {
			return path, true
		}
	}
	return "", false
}

// IsUnderWatchFolder reports whether path is strictly inside the watch folder.
func (c *Classifier) IsUnderWatchFolder(path string) bool {
	if path == "" || !filepath.IsAbs(path) {
		return false
	}
	root := c.root
	target := filepath.Clean(path)
	if c.foldCase {
		root = strings.ToLower(root)
		target = strings.ToLower(target)
	}

	rel, err := filepath.Rel(root, target)
	if err != nil {
		return false
	}
	if rel == "." || rel == ".." || filepath.IsAbs(rel) {
		return false
	}
	return !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// Match combines FileArgument and IsUnderWatchFolder.
func (c *Classifier) Match(d procevent.Descriptor) (string, bool) {
	path, ok := c.FileArgument(d)
	if !ok || !c.IsUnderWatchFolder(path) {
		return "", false
	}
	return path, true
}

// hasExtension reports whether the last path element has a non-empty
// extension. A lone trailing dot does not count.
func hasExtension(arg string) bool {
	ext := filepath.Ext(arg)
	return ext != "" && ext != "."
}

func isRegularFile(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular()
}
