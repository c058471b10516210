// Package config loads, validates and saves cleandl settings.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/tessro/cleandl/internal/paths"
	"github.com/tessro/cleandl/internal/recycle"
	"github.com/tessro/cleandl/internal/tracking"
)

// Settings keys as they appear in settings.toml.
const (
	KeyDeleteMode          = "delete_mode"
	KeyFallbackToPermanent = "fallback_to_permanent"
	KeyWatchFolder         = "watch_folder"
	KeyPollInterval        = "poll_interval"
	KeyDrainTimeout        = "drain_timeout"
	KeyMissingMaxAge       = "missing_max_age"
	KeyMissingMaxEntries   = "missing_max_entries"
	KeyLogLevel            = "log_level"
)

// Defaults.
const (
	DefaultPollInterval = time.Second
	DefaultDrainTimeout = 30 * time.Second
	DefaultLogLevel     = "info"
)

// Keys lists every settable key in file order.
var Keys = []string{
	KeyDeleteMode,
	KeyFallbackToPermanent,
	KeyWatchFolder,
	KeyPollInterval,
	KeyDrainTimeout,
	KeyMissingMaxAge,
	KeyMissingMaxEntries,
	KeyLogLevel,
}

// Duration is a time.Duration written as a string ("1s", "2m") in settings
// files and command output.
type Duration struct {
	time.Duration
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// Settings is the contents of settings.toml.
type Settings struct {
	// DeleteMode is "trash" (default) or "permanent".
	DeleteMode recycle.Mode `toml:"delete_mode" yaml:"delete_mode" json:"delete_mode"`

	// FallbackToPermanent deletes permanently when the trash is unavailable.
	FallbackToPermanent bool `toml:"fallback_to_permanent" yaml:"fallback_to_permanent" json:"fallback_to_permanent"`

	// WatchFolder overrides the platform Downloads folder. "~" is expanded.
	WatchFolder string `toml:"watch_folder" yaml:"watch_folder" json:"watch_folder"`

	PollInterval      Duration `toml:"poll_interval" yaml:"poll_interval" json:"poll_interval"`
	DrainTimeout      Duration `toml:"drain_timeout" yaml:"drain_timeout" json:"drain_timeout"`
	MissingMaxAge     Duration `toml:"missing_max_age" yaml:"missing_max_age" json:"missing_max_age"`
	MissingMaxEntries int      `toml:"missing_max_entries" yaml:"missing_max_entries" json:"missing_max_entries"`

	LogLevel string `toml:"log_level" yaml:"log_level" json:"log_level"`
}

// Defaults returns the settings used when no file exists.
func Defaults() *Settings {
	return &Settings{
		DeleteMode:        recycle.ToTrash,
		PollInterval:      Duration{DefaultPollInterval},
		DrainTimeout:      Duration{DefaultDrainTimeout},
		MissingMaxAge:     Duration{tracking.DefaultMissingMaxAge},
		MissingMaxEntries: tracking.DefaultMissingMaxEntries,
		LogLevel:          DefaultLogLevel,
	}
}

// Load reads settings from paths.SettingsPath().
func Load() (*Settings, error) {
	path, err := paths.SettingsPath()
	if err != nil {
		return nil, err
	}
	return LoadFromPath(path)
}

// LoadFromPath reads settings from path, starting from Defaults. A missing
// file yields the defaults; a malformed or invalid one is an error.
func LoadFromPath(path string) (*Settings, error) {
	s := Defaults()
	md, err := toml.DecodeFile(path, s)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return s, nil
		}
		return nil, fmt.Errorf("read settings %s: %w", path, err)
	}
	for _, key := range md.Undecoded() {
		slog.Warn("ignoring unknown settings key", "key", key.String(), "path", path)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("settings %s: %w", path, err)
	}
	return s, nil
}

// Save writes settings to path atomically, creating the directory if needed.
func (s *Settings) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create settings dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".settings-*.toml")
	if err != nil {
		return fmt.Errorf("create temp settings: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op after a successful rename

	if err := toml.NewEncoder(tmp).Encode(s); err != nil {
		tmp.Close()
		return fmt.Errorf("encode settings: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("replace settings: %w", err)
	}
	return nil
}

// Get returns the string form of a single key.
func (s *Settings) Get(key string) (string, error) {
	switch key {
	case KeyDeleteMode:
		return s.DeleteMode.String(), nil
	case KeyFallbackToPermanent:
		return strconv.FormatBool(s.FallbackToPermanent), nil
	case KeyWatchFolder:
		return s.WatchFolder, nil
	case KeyPollInterval:
		return s.PollInterval.String(), nil
	case KeyDrainTimeout:
		return s.DrainTimeout.String(), nil
	case KeyMissingMaxAge:
		return s.MissingMaxAge.String(), nil
	case KeyMissingMaxEntries:
		return strconv.Itoa(s.MissingMaxEntries), nil
	case KeyLogLevel:
		return s.LogLevel, nil
	}
	return "", &ValidationError{Field: key, Message: "unknown key", Err: ErrUnknownKey}
}

// Set parses value into key and validates the result. On error s is
// unchanged.
func (s *Settings) Set(key, value string) error {
	next := *s
	value = strings.TrimSpace(value)

	switch key {
	case KeyDeleteMode:
		mode, err := recycle.ParseMode(value)
		if err != nil {
			return &ValidationError{Field: key, Value: value, Message: "must be 'trash' or 'permanent'", Err: ErrInvalidDeleteMode}
		}
		next.DeleteMode = mode
	case KeyFallbackToPermanent:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return &ValidationError{Field: key, Value: value, Message: "must be 'true' or 'false'", Err: ErrInvalidBool}
		}
		next.FallbackToPermanent = b
	case KeyWatchFolder:
		next.WatchFolder = value
	case KeyPollInterval, KeyDrainTimeout, KeyMissingMaxAge:
		var d Duration
		if err := d.UnmarshalText([]byte(value)); err != nil {
			return &ValidationError{Field: key, Value: value, Message: "must be a duration such as 1s or 2m", Err: ErrInvalidDuration}
		}
		switch key {
		case KeyPollInterval:
			next.PollInterval = d
		case KeyDrainTimeout:
			next.DrainTimeout = d
		default:
			next.MissingMaxAge = d
		}
	case KeyMissingMaxEntries:
		n, err := strconv.Atoi(value)
		if err != nil {
			return &ValidationError{Field: key, Value: value, Message: "must be a positive integer", Err: ErrInvalidCount}
		}
		next.MissingMaxEntries = n
	case KeyLogLevel:
		next.LogLevel = strings.ToLower(value)
	default:
		return &ValidationError{Field: key, Message: "unknown key", Err: ErrUnknownKey}
	}

	if err := next.Validate(); err != nil {
		return err
	}
	*s = next
	return nil
}
