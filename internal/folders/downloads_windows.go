//go:build windows

package folders

import (
	"fmt"

	"golang.org/x/sys/windows"
)

// Downloads returns the Downloads known folder of the current user.
func Downloads() (string, error) {
	dir, err := windows.KnownFolderPath(windows.FOLDERID_Downloads, windows.KF_FLAG_DEFAULT)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrNoDownloads, err)
	}
	return dir, nil
}
