// Package procevent delivers operating-system process launch and termination
// notifications as two independent, cancelable streams.
//
// A Source is consumed one event at a time through NextLaunch and
// NextTermination. Each stream is infinite and cannot be restarted; once the
// source is closed both calls return ErrClosed. Events carry a snapshot of the
// process taken when the notification fired.
package procevent

import (
	"context"
	"errors"
	"time"
)

// ErrClosed is returned by a Source after Close has been called.
var ErrClosed = errors.New("procevent: source closed")

// Descriptor identifies one OS process at the moment an event fired.
// Descriptors are immutable once created.
type Descriptor struct {
	PID         uint32
	Name        string
	CommandLine string

	// Args is the exact argument vector when the platform exposes it.
	// When nil, consumers tokenize CommandLine themselves.
	Args []string

	// Cwd is the working directory of the process, if known.
	Cwd string

	// ObservedAt is when the source saw the event. Zero when unknown. A
	// termination is never observed at or before the launch of the same
	// process.
	ObservedAt time.Time
}

// Source produces process launch and termination events.
type Source interface {
	// NextLaunch blocks until the next process launch is observed or ctx is done.
	NextLaunch(ctx context.Context) (Descriptor, error)

	// NextTermination blocks until the next process exit is observed or ctx is done.
	NextTermination(ctx context.Context) (Descriptor, error)

	// Close releases the source. Blocked and future Next calls return ErrClosed.
	Close() error
}
