package engine

import "errors"

// Sentinel errors for engine operations.
var (
	// ErrTrackingConflict is reported when a launch matches while a file is
	// already tracked for the same process id. The first file wins.
	ErrTrackingConflict = errors.New("engine: process already tracked")

	// ErrStartup wraps failures that prevent the engine from being built,
	// such as an unresolvable watch folder or unreadable settings.
	ErrStartup = errors.New("engine: startup failed")

	// ErrDrainTimeout is returned by StopAndDrain when tracked files were
	// abandoned because their openers outlived the drain deadline.
	ErrDrainTimeout = errors.New("engine: drain timed out")

	// ErrAlreadyStarted is returned by a second Start.
	ErrAlreadyStarted = errors.New("engine: already started")

	// ErrStopped is returned by Start after StopAndDrain.
	ErrStopped = errors.New("engine: stopped")
)
