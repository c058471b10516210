// Package recycle deletes files, either to the desktop trash or permanently.
package recycle

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/Bios-Marcel/wastebasket/v2"
)

// Mode selects how a file is deleted.
type Mode int

const (
	// ToTrash moves the file to the platform trash (recycle bin).
	ToTrash Mode = iota
	// Permanent removes the file outright.
	Permanent
)

// String returns the settings-file spelling of the mode.
func (m Mode) String() string {
	switch m {
	case ToTrash:
		return "trash"
	case Permanent:
		return "permanent"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (m Mode) MarshalText() ([]byte, error) {
	switch m {
	case ToTrash, Permanent:
		return []byte(m.String()), nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrInvalidMode, int(m))
	}
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Mode) UnmarshalText(text []byte) error {
	mode, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = mode
	return nil
}

// ParseMode accepts "trash" and "permanent" plus the legacy spellings
// "recycle-bin", "SendToRecycleBin" and "DeletePermanently".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trash", "recycle-bin", "recyclebin", "sendtorecyclebin":
		return ToTrash, nil
	case "permanent", "delete", "deletepermanently":
		return Permanent, nil
	default:
		return ToTrash, fmt.Errorf("%w: %q", ErrInvalidMode, s)
	}
}

// Sentinel errors.
var (
	// ErrFileAccess means the file is missing, locked, a directory, or not
	// writable by us.
	ErrFileAccess = errors.New("recycle: file not accessible")

	// ErrTrashUnavailable means the platform trash could not be used.
	ErrTrashUnavailable = errors.New("recycle: trash unavailable")

	// ErrInvalidMode is returned when parsing an unknown mode.
	ErrInvalidMode = errors.New("recycle: invalid delete mode")
)

// Error describes a failed Recycle call.
type Error struct {
	Path string
	Mode Mode
	Err  error // ErrFileAccess or ErrTrashUnavailable
	// Cause is the underlying OS or trash error, if any.
	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s %s: %v: %v", e.Mode, e.Path, e.Err, e.Cause)
	}
	return fmt.Sprintf("%s %s: %v", e.Mode, e.Path, e.Err)
}

// Unwrap returns both the sentinel and the cause so errors.Is matches either.
func (e *Error) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Err, e.Cause}
	}
	return []error{e.Err}
}

// Recycler deletes a single file.
type Recycler interface {
	Recycle(path string, mode Mode) error
}

// FileRecycler is the default Recycler.
type FileRecycler struct {
	fallback bool
	trash    func(paths ...string) error
	remove   func(path string) error
	lstat    func(path string) (fs.FileInfo, error)
}

// Option configures a FileRecycler.
type Option func(*FileRecycler)

// WithFallbackToPermanent makes ToTrash fall back to permanent deletion when
// the trash cannot be used.
func WithFallbackToPermanent(enabled bool) Option {
	return func(r *FileRecycler) { r.fallback = enabled }
}

// WithTrashFunc overrides the trash implementation (for tests).
func WithTrashFunc(fn func(paths ...string) error) Option {
	return func(r *FileRecycler) { r.trash = fn }
}

// WithRemoveFunc overrides permanent removal (for tests).
func WithRemoveFunc(fn func(path string) error) Option {
	return func(r *FileRecycler) { r.remove = fn }
}

// New creates a FileRecycler backed by the platform trash.
func New(opts ...Option) *FileRecycler {
	r := &FileRecycler{
		trash:  wastebasket.Trash,
		remove: os.Remove,
		lstat:  os.Lstat,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Recycle deletes path according to mode.
func (r *FileRecycler) Recycle(path string, mode Mode) error {
	info, err := r.lstat(path)
	if err != nil {
		return &Error{Path: path, Mode: mode, Err: ErrFileAccess, Cause: err}
	}
	if info.IsDir() {
		return &Error{Path: path, Mode: mode, Err: ErrFileAccess, Cause: errors.New("is a directory")}
	}

	switch mode {
	case Permanent:
		return r.removePermanently(path)
	case ToTrash:
		if err := r.trash(path); err != nil {
			// A file that vanished or is locked is an access problem, not a
			// trash problem, and falling back would not help.
			if isAccessError(err) {
				return &Error{Path: path, Mode: mode, Err: ErrFileAccess, Cause: err}
			}
			if !r.fallback {
				return &Error{Path: path, Mode: mode, Err: ErrTrashUnavailable, Cause: err}
			}
			slog.Warn("trash unavailable, deleting permanently", "path", path, "error", err)
			return r.removePermanently(path)
		}
		return nil
	default:
		return fmt.Errorf("%w: %d", ErrInvalidMode, int(mode))
	}
}

func (r *FileRecycler) removePermanently(path string) error {
	if err := r.remove(path); err != nil {
		return &Error{Path: path, Mode: Permanent, Err: ErrFileAccess, Cause: err}
	}
	return nil
}

func isAccessError(err error) bool {
	return errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission)
}
