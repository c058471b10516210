//go:build windows

package classify

import (
	"strings"

	"golang.org/x/sys/windows"
)

// SplitCommandLine tokenizes a command line using the CommandLineToArgvW
// rules. Malformed input is returned as a single token.
func SplitCommandLine(cmdline string) []string {
	if strings.TrimSpace(cmdline) == "" {
		return nil
	}
	args, err := windows.DecomposeCommandLine(cmdline)
	if err != nil {
		return []string{cmdline}
	}
	return args
}
