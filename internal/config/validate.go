package config

import (
	"errors"
	"fmt"

	"github.com/tessro/cleandl/internal/logging"
)

// Validation errors.
var (
	ErrUnknownKey        = errors.New("unknown settings key")
	ErrInvalidDeleteMode = errors.New("delete_mode must be 'trash' or 'permanent'")
	ErrInvalidDuration   = errors.New("duration must be positive")
	ErrMissingAgeTooLow  = errors.New("missing_max_age must be at least twice poll_interval")
	ErrInvalidBool       = errors.New("value must be 'true' or 'false'")
	ErrInvalidCount      = errors.New("value must be a positive integer")
	ErrInvalidLogLevel   = errors.New("log_level must be 'debug', 'info', 'warn', or 'error'")
)

// ValidationError wraps a validation error with context.
type ValidationError struct {
	Field   string
	Value   string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	if e.Value != "" {
		return fmt.Sprintf("%s: %s (got %q)", e.Field, e.Message, e.Value)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Validate checks every field and returns the first problem found.
func (s *Settings) Validate() error {
	if _, err := s.DeleteMode.MarshalText(); err != nil {
		return &ValidationError{
			Field:   KeyDeleteMode,
			Value:   s.DeleteMode.String(),
			Message: "must be 'trash' or 'permanent'",
			Err:     ErrInvalidDeleteMode,
		}
	}

	durations := []struct {
		key string
		d   Duration
	}{
		{KeyPollInterval, s.PollInterval},
		{KeyDrainTimeout, s.DrainTimeout},
		{KeyMissingMaxAge, s.MissingMaxAge},
	}
	for _, f := range durations {
		if err := validateDuration(f.key, f.d); err != nil {
			return err
		}
	}

	// A termination parked for less than a poll could expire before its
	// launch is handled.
	if s.MissingMaxAge.Duration < 2*s.PollInterval.Duration {
		return &ValidationError{
			Field:   KeyMissingMaxAge,
			Value:   s.MissingMaxAge.String(),
			Message: fmt.Sprintf("must be at least twice poll_interval (%s)", s.PollInterval),
			Err:     ErrMissingAgeTooLow,
		}
	}

	if s.MissingMaxEntries < 1 {
		return &ValidationError{
			Field:   KeyMissingMaxEntries,
			Value:   fmt.Sprintf("%d", s.MissingMaxEntries),
			Message: "must be at least 1",
			Err:     ErrInvalidCount,
		}
	}

	if !logging.ValidLevel(s.LogLevel) {
		return &ValidationError{
			Field:   KeyLogLevel,
			Value:   s.LogLevel,
			Message: "must be 'debug', 'info', 'warn', or 'error'",
			Err:     ErrInvalidLogLevel,
		}
	}

	return nil
}

func validateDuration(key string, d Duration) error {
	if d.Duration <= 0 {
		return &ValidationError{
			Field:   key,
			Value:   d.String(),
			Message: "must be greater than zero",
			Err:     ErrInvalidDuration,
		}
	}
	return nil
}
