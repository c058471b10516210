package monitor

import (
	"time"

	"github.com/tessro/cleandl/internal/daemon"
)

// statusMsg contains a polled daemon status.
type statusMsg struct {
	Status *daemon.StatusResponse
	Err    error
}

// streamEventMsg wraps a daemon stream event for Bubble Tea.
type streamEventMsg struct {
	Event *daemon.StreamEvent
	Err   error
}

// streamStartMsg is sent when the event stream is attached.
type streamStartMsg struct {
	EventChan <-chan daemon.EventResult
}

// tickMsg drives status polling.
type tickMsg time.Time

// clearErrorMsg is sent to clear the error display after a timeout.
type clearErrorMsg struct{}
