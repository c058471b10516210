// Package daemon provides the cleandl control server, client and IPC protocol.
package daemon

import "time"

// MessageType identifies the type of IPC message.
type MessageType string

const (
	// Server management
	MsgPing     MessageType = "ping"
	MsgShutdown MessageType = "shutdown" // Drain tracked files and exit

	MsgStatus MessageType = "status" // Watch folder, tracked files, recent outcomes

	// Outcome streaming
	MsgAttach MessageType = "attach" // Subscribe to outcome events
	MsgDetach MessageType = "detach" // Unsubscribe
)

// Request is the envelope for all IPC requests.
type Request struct {
	Type    MessageType `json:"type"`
	ID      string      `json:"id,omitempty"`      // Optional request ID for correlation
	Payload any         `json:"payload,omitempty"` // Type-specific payload
}

// Response is the envelope for all IPC responses.
type Response struct {
	Type    MessageType `json:"type"`
	ID      string      `json:"id,omitempty"` // Correlates with request ID
	Success bool        `json:"success"`
	Error   string      `json:"error,omitempty"`
	Payload any         `json:"payload,omitempty"` // Type-specific payload
}

// PingResponse is the payload for ping responses.
type PingResponse struct {
	Version   string    `json:"version"`
	Uptime    string    `json:"uptime"`
	StartedAt time.Time `json:"started_at"`
}

// StatusResponse is the payload for status responses.
type StatusResponse struct {
	Daemon  DaemonStatus    `json:"daemon" yaml:"daemon"`
	Engine  EngineStatus    `json:"engine" yaml:"engine"`
	Tracked []TrackedStatus `json:"tracked" yaml:"tracked"`
	Recent  []OutcomeInfo   `json:"recent" yaml:"recent"`
}

// DaemonStatus contains daemon health info.
type DaemonStatus struct {
	Running   bool      `json:"running" yaml:"running"`
	PID       int       `json:"pid" yaml:"pid"`
	StartedAt time.Time `json:"started_at" yaml:"started_at"`
	Version   string    `json:"version" yaml:"version"`
}

// EngineStatus describes the correlation engine.
type EngineStatus struct {
	Running              bool   `json:"running" yaml:"running"`
	WatchFolder          string `json:"watch_folder" yaml:"watch_folder"`
	DeleteMode           string `json:"delete_mode" yaml:"delete_mode"`
	FallbackToPermanent  bool   `json:"fallback_to_permanent" yaml:"fallback_to_permanent"`
	BufferedTerminations int    `json:"buffered_terminations" yaml:"buffered_terminations"`
}

// TrackedStatus is a file waiting for its opener to exit.
type TrackedStatus struct {
	PID   uint32    `json:"pid" yaml:"pid"`
	Name  string    `json:"name,omitempty" yaml:"name,omitempty"`
	Path  string    `json:"path" yaml:"path"`
	Since time.Time `json:"since" yaml:"since"`
}

// OutcomeInfo reports what happened to a tracked file.
type OutcomeInfo struct {
	PID   uint32    `json:"pid" yaml:"pid"`
	Name  string    `json:"name,omitempty" yaml:"name,omitempty"`
	Path  string    `json:"path" yaml:"path"`
	State string    `json:"state" yaml:"state"` // watching, deleted, failed, abandoned, skipped
	Mode  string    `json:"mode,omitempty" yaml:"mode,omitempty"`
	Error string    `json:"error,omitempty" yaml:"error,omitempty"`
	At    time.Time `json:"at" yaml:"at"`
}

// AttachRequest is the payload for attach requests.
type AttachRequest struct {
	States []string `json:"states,omitempty"` // Filter by outcome state, empty = all
}

// StreamEvent is sent to attached clients for every outcome.
type StreamEvent struct {
	Type    string      `json:"type"` // "outcome"
	Outcome OutcomeInfo `json:"outcome"`
}

// StreamEventOutcome is the StreamEvent.Type for outcome events.
const StreamEventOutcome = "outcome"
