//go:build !windows

package classify

import (
	"strings"

	"github.com/mattn/go-shellwords"
)

// SplitCommandLine tokenizes a command line using POSIX shell quoting.
// Malformed input (for example an unterminated quote) is returned as a
// single token.
func SplitCommandLine(cmdline string) []string {
	if strings.TrimSpace(cmdline) == "" {
		return nil
	}
	args, err := shellwords.Parse(cmdline)
	if err != nil || len(args) == 0 {
		return []string{cmdline}
	}
	return args
}
