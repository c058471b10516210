package engine

import (
	"time"

	"github.com/tessro/cleandl/internal/recycle"
)

// State is where a tracked file ended up.
type State string

const (
	// StateWatching means the file is registered and its opener is running.
	StateWatching State = "watching"
	// StateDeleted means the opener exited and the file was recycled.
	StateDeleted State = "deleted"
	// StateFailed means the opener exited but the file could not be recycled.
	StateFailed State = "failed"
	// StateAbandoned means shutdown gave up waiting for the opener.
	StateAbandoned State = "abandoned"
	// StateSkipped means the launch matched but could not be tracked.
	StateSkipped State = "skipped"
)

// Final reports whether s ends a file's lifecycle.
func (s State) Final() bool {
	return s != StateWatching
}

// Outcome is emitted on every state change of a tracked file.
type Outcome struct {
	PID   uint32
	Name  string
	Path  string
	State State
	Mode  recycle.Mode
	Err   error
	At    time.Time
}

// ErrorString returns the error text, or "" when there is none.
func (o Outcome) ErrorString() string {
	if o.Err == nil {
		return ""
	}
	return o.Err.Error()
}
