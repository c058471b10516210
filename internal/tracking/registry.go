// Package tracking holds the in-flight state that correlates opener processes
// with the files they opened.
//
// The registry keeps two tables keyed by process id:
//
//   - pending: files awaiting deletion, one per opener process
//   - missing: termination events observed for processes that no waiting
//     correlation task claimed at the time
//
// A termination can be observed before its launch has been classified, or by a
// task waiting on a different process. Such events are parked in the missing
// table so whichever task owns that id can claim them later. Parked events are
// evicted by age and by count so untracked processes cannot grow the table
// without bound.
package tracking

import (
	"sort"
	"sync"
	"time"

	"github.com/tessro/cleandl/internal/procevent"
)

// Defaults for missing-table eviction.
const (
	DefaultMissingMaxAge     = 10 * time.Second
	DefaultMissingMaxEntries = 4096
)

// TrackedFile is a file whose deletion waits on its opener process exiting.
type TrackedFile struct {
	PID  uint32
	Path string
}

// Pending describes a file whose correlation task is still running.
type Pending struct {
	File         TrackedFile
	Name         string
	RegisteredAt time.Time
}

type missingEntry struct {
	desc     procevent.Descriptor
	storedAt time.Time
}

// Registry is safe for concurrent use. No method blocks.
type Registry struct {
	mu sync.Mutex
	// +checklocks:mu
	pending map[uint32]Pending
	// +checklocks:mu
	missing map[uint32]missingEntry
	// +checklocks:mu
	wake chan struct{}

	maxAge     time.Duration
	maxEntries int
	now        func() time.Time
}

// Option configures a Registry.
type Option func(*Registry)

// WithMissingMaxAge sets how long an unclaimed termination is kept.
func WithMissingMaxAge(d time.Duration) Option {
	return func(r *Registry) {
		if d > 0 {
			r.maxAge = d
		}
	}
}

// WithMissingMaxEntries caps the number of unclaimed terminations kept.
func WithMissingMaxEntries(n int) Option {
	return func(r *Registry) {
		if n > 0 {
			r.maxEntries = n
		}
	}
}

// WithClock overrides the time source (for tests).
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

// New creates an empty registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		pending:    make(map[uint32]Pending),
		missing:    make(map[uint32]missingEntry),
		wake:       make(chan struct{}),
		maxAge:     DefaultMissingMaxAge,
		maxEntries: DefaultMissingMaxEntries,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// TryRegister records file as pending for its opener. It returns false when a
// task for that process id is already active.
func (r *Registry) TryRegister(file TrackedFile, name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.pending[file.PID]; exists {
		return false
	}
	r.pending[file.PID] = Pending{
		File:         file,
		Name:         name,
		RegisteredAt: r.now(),
	}
	return true
}

// TakeMissing removes and returns a parked termination for pid.
func (r *Registry) TakeMissing(pid uint32) (procevent.Descriptor, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.missing[pid]
	if !ok {
		return procevent.Descriptor{}, false
	}
	delete(r.missing, pid)
	return entry.desc, true
}

// RememberMissing parks a termination event. An existing entry for the same
// id is overwritten. Every goroutine waiting on Wake is released.
func (r *Registry) RememberMissing(d procevent.Descriptor) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.missing[d.PID] = missingEntry{desc: d, storedAt: r.now()}
	if len(r.missing) > r.maxEntries {
		r.evictLocked(r.now())
	}

	close(r.wake)
	r.wake = make(chan struct{})
}

// Wake returns a channel closed by the next RememberMissing call. Fetch it
// before checking TakeMissing so a concurrent park is never missed.
func (r *Registry) Wake() <-chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.wake
}

// Finish removes pid from both tables. Calling it again has no effect.
func (r *Registry) Finish(pid uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.pending, pid)
	delete(r.missing, pid)
}

// Sweep evicts parked terminations older than the max age and returns how
// many were removed.
func (r *Registry) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.evictLocked(r.now())
}

// evictLocked drops aged entries, then the oldest entries beyond the cap.
//
// +checklocks:r.mu
func (r *Registry) evictLocked(now time.Time) int {
	cutoff := now.Add(-r.maxAge)
	removed := 0

	for pid, entry := range r.missing {
		if entry.storedAt.Before(cutoff) {
			delete(r.missing, pid)
			removed++
		}
	}

	if excess := len(r.missing) - r.maxEntries; excess > 0 {
		type aged struct {
			pid uint32
			at  time.Time
		}
		oldest := make([]aged, 0, len(r.missing))
		for pid, entry := range r.missing {
			oldest = append(oldest, aged{pid, entry.storedAt})
		}
		sort.Slice(oldest, func(i, j int) bool { return oldest[i].at.Before(oldest[j].at) })
		for _, a := range oldest[:excess] {
			delete(r.missing, a.pid)
			removed++
		}
	}

	return removed
}

// Reset drops all parked terminations. Pending entries are left to their tasks.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.missing = make(map[uint32]missingEntry)
}

// IsPending reports whether a task is active for pid.
func (r *Registry) IsPending(pid uint32) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.pending[pid]
	return ok
}

// Snapshot is a point-in-time copy of the registry for reporting.
type Snapshot struct {
	Pending []Pending
	Missing int
}

// Snapshot returns pending entries ordered by registration time.
func (r *Registry) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := Snapshot{
		Pending: make([]Pending, 0, len(r.pending)),
		Missing: len(r.missing),
	}
	for _, p := range r.pending {
		s.Pending = append(s.Pending, p)
	}
	sort.Slice(s.Pending, func(i, j int) bool {
		if s.Pending[i].RegisteredAt.Equal(s.Pending[j].RegisteredAt) {
			return s.Pending[i].File.PID < s.Pending[j].File.PID
		}
		return s.Pending[i].RegisteredAt.Before(s.Pending[j].RegisteredAt)
	})
	return s
}

// Len returns the sizes of the pending and missing tables.
func (r *Registry) Len() (pending, missing int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending), len(r.missing)
}
