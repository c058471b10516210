// Package engine correlates process launches with process exits and deletes
// the files those processes opened.
//
// One goroutine reads the launch stream and classifies each launch. A match
// is registered in the tracking registry and handed to its own correlation
// task. A second goroutine reads the termination stream and hands each event
// to whichever task is receiving; when none is, the event is parked in the
// registry's missing table. Tasks claim parked events for their own process
// id, and park foreign ones they receive, so every termination reaches its
// owner regardless of arrival order.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/tessro/cleandl/internal/event"
	"github.com/tessro/cleandl/internal/history"
	"github.com/tessro/cleandl/internal/logging"
	"github.com/tessro/cleandl/internal/procevent"
	"github.com/tessro/cleandl/internal/recycle"
	"github.com/tessro/cleandl/internal/tracking"
)

// Defaults.
const (
	DefaultDrainTimeout  = 30 * time.Second
	DefaultSweepInterval = 5 * time.Second
	DefaultRetryDelay    = 250 * time.Millisecond
	DefaultHistorySize   = 100
)

// Matcher selects the launches worth tracking. *classify.Classifier
// implements it.
type Matcher interface {
	Match(d procevent.Descriptor) (string, bool)
	WatchFolder() string
}

// Config holds engine dependencies and tuning.
type Config struct {
	Source   procevent.Source
	Matcher  Matcher
	Recycler recycle.Recycler
	Mode     recycle.Mode

	// Registry is created with default limits when nil.
	Registry *tracking.Registry

	// DrainTimeout bounds StopAndDrain. Zero means DefaultDrainTimeout;
	// negative means wait only for the caller's context.
	DrainTimeout time.Duration

	SweepInterval time.Duration
	RetryDelay    time.Duration
	HistorySize   int
}

// Engine is the correlation engine. Create one with New.
type Engine struct {
	source   procevent.Source
	matcher  Matcher
	recycler recycle.Recycler
	mode     recycle.Mode
	registry *tracking.Registry

	drainTimeout  time.Duration
	sweepInterval time.Duration
	retryDelay    time.Duration

	outcomes event.Emitter[Outcome]
	recent   *history.Ring[Outcome]

	// live carries terminations to tasks blocked in receive. Unbuffered.
	live chan procevent.Descriptor

	tasks sync.WaitGroup

	mu sync.Mutex
	// +checklocks:mu
	state runState
	// +checklocks:mu
	startedAt time.Time
	// +checklocks:mu
	launch loop
	// +checklocks:mu
	termination loop
	// +checklocks:mu
	sweeper loop
	// +checklocks:mu
	taskCtx context.Context
	// +checklocks:mu
	abortTasks context.CancelFunc
}

type runState int

const (
	stateIdle runState = iota
	stateRunning
	stateStopped
)

// loop is a cancelable goroutine.
type loop struct {
	cancel context.CancelFunc
	done   chan struct{}
}

func (l loop) stop() {
	if l.cancel == nil {
		return
	}
	l.cancel()
	<-l.done
}

// New validates cfg and builds an engine. Missing dependencies are reported
// as ErrStartup.
func New(cfg Config) (*Engine, error) {
	switch {
	case cfg.Source == nil:
		return nil, fmt.Errorf("%w: no event source", ErrStartup)
	case cfg.Matcher == nil:
		return nil, fmt.Errorf("%w: no classifier", ErrStartup)
	case cfg.Recycler == nil:
		return nil, fmt.Errorf("%w: no recycler", ErrStartup)
	}
	if _, err := cfg.Mode.MarshalText(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStartup, err)
	}
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = DefaultHistorySize
	}

	e := &Engine{
		source:        cfg.Source,
		matcher:       cfg.Matcher,
		recycler:      cfg.Recycler,
		mode:          cfg.Mode,
		registry:      cfg.Registry,
		drainTimeout:  cfg.DrainTimeout,
		sweepInterval: cfg.SweepInterval,
		retryDelay:    cfg.RetryDelay,
		recent:        history.NewRing[Outcome](cfg.HistorySize),
		live:          make(chan procevent.Descriptor),
	}
	if e.registry == nil {
		e.registry = tracking.New()
	}
	if e.drainTimeout == 0 {
		e.drainTimeout = DefaultDrainTimeout
	}
	if e.sweepInterval <= 0 {
		e.sweepInterval = DefaultSweepInterval
	}
	if e.retryDelay <= 0 {
		e.retryDelay = DefaultRetryDelay
	}
	return e, nil
}

// Start launches the launch loop, the termination loop and the janitor. The
// launch loop stops when ctx is canceled; everything else keeps running until
// StopAndDrain so tracked files can still be resolved.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch e.state {
	case stateRunning:
		return ErrAlreadyStarted
	case stateStopped:
		return ErrStopped
	}

	base := context.WithoutCancel(ctx)
	e.taskCtx, e.abortTasks = context.WithCancel(base)
	e.launch = e.spawn(ctx, "launch-loop", e.launchLoop)
	e.termination = e.spawn(base, "termination-loop", e.terminationLoop)
	e.sweeper = e.spawn(base, "missing-sweeper", e.sweepLoop)

	e.state = stateRunning
	e.startedAt = time.Now()

	slog.Info("engine started",
		"watch_folder", e.matcher.WatchFolder(),
		"mode", e.mode.String(),
		"drain_timeout", e.drainTimeout,
	)
	return nil
}

func (e *Engine) spawn(parent context.Context, name string, run func(context.Context)) loop {
	ctx, cancel := context.WithCancel(parent)
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer logging.LogPanic(name, nil)
		run(ctx)
	}()
	return loop{cancel: cancel, done: done}
}

// StopAndDrain stops accepting launches, then waits for every tracked file to
// be resolved. The wait is bounded by ctx and the drain timeout; when either
// expires the remaining tasks are abandoned and ErrDrainTimeout is returned.
// The event source is closed before returning. Calling StopAndDrain on an
// engine that is not running is a no-op.
func (e *Engine) StopAndDrain(ctx context.Context) error {
	e.mu.Lock()
	if e.state != stateRunning {
		e.mu.Unlock()
		return nil
	}
	e.state = stateStopped
	launch, termination, sweeper := e.launch, e.termination, e.sweeper
	abort := e.abortTasks
	e.mu.Unlock()

	// No task can be spawned once the launch loop has exited.
	launch.stop()

	pending, _ := e.registry.Len()
	slog.Info("engine draining", "tracked", pending)

	if e.drainTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.drainTimeout)
		defer cancel()
	}

	drained := make(chan struct{})
	go func() {
		e.tasks.Wait()
		close(drained)
	}()

	var err error
	select {
	case <-drained:
	case <-ctx.Done():
		remaining, _ := e.registry.Len()
		slog.Warn("drain deadline reached, abandoning tracked files", "remaining", remaining)
		abort()
		<-drained
		err = ErrDrainTimeout
	}
	abort()

	termination.stop()
	sweeper.stop()

	if cerr := e.source.Close(); cerr != nil && !errors.Is(cerr, procevent.ErrClosed) {
		slog.Warn("close event source failed", "error", cerr)
	}
	e.registry.Reset()

	slog.Info("engine stopped", "error", err)
	return err
}

func (e *Engine) launchLoop(ctx context.Context) {
	for {
		d, err := e.source.NextLaunch(ctx)
		if err != nil {
			if !e.retryable(ctx, "launch", err) {
				return
			}
			continue
		}
		e.handleLaunch(d)
	}
}

func (e *Engine) terminationLoop(ctx context.Context) {
	for {
		d, err := e.source.NextTermination(ctx)
		if err != nil {
			if !e.retryable(ctx, "termination", err) {
				return
			}
			continue
		}

		select {
		case e.live <- d:
		default:
			e.registry.RememberMissing(d)
		}
	}
}

// retryable reports whether a stream read should be retried, pausing first.
func (e *Engine) retryable(ctx context.Context, stream string, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	if errors.Is(err, procevent.ErrClosed) {
		slog.Info("event stream closed", "stream", stream)
		return false
	}
	slog.Debug("event stream error, retrying", "stream", stream, "error", err)

	t := time.NewTimer(e.retryDelay)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

func (e *Engine) sweepLoop(ctx context.Context) {
	ticker := time.NewTicker(e.sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if n := e.registry.Sweep(); n > 0 {
				slog.Debug("evicted unclaimed terminations", "count", n)
			}
		case <-ctx.Done():
			return
		}
	}
}

func (e *Engine) handleLaunch(d procevent.Descriptor) {
	path, ok := e.matcher.Match(d)
	if !ok {
		slog.Debug("launch ignored", "pid", d.PID, "name", d.Name)
		return
	}

	file := tracking.TrackedFile{PID: d.PID, Path: path}
	if !e.registry.TryRegister(file, d.Name) {
		err := fmt.Errorf("%w: pid %d", ErrTrackingConflict, d.PID)
		slog.Warn("launch not tracked", "pid", d.PID, "path", path, "error", err)
		e.emit(Outcome{PID: d.PID, Name: d.Name, Path: path, State: StateSkipped, Err: err})
		return
	}

	e.mu.Lock()
	ctx := e.taskCtx
	e.mu.Unlock()

	slog.Info("tracking file", "pid", d.PID, "name", d.Name, "path", path)
	e.emit(Outcome{PID: d.PID, Name: d.Name, Path: path, State: StateWatching})

	e.tasks.Add(1)
	go e.correlate(ctx, file, d.Name, d.ObservedAt)
}

// correlate waits for file's opener to exit, then recycles the file.
// launchedAt is when the opener's launch was observed.
func (e *Engine) correlate(ctx context.Context, file tracking.TrackedFile, name string, launchedAt time.Time) {
	defer e.tasks.Done()
	defer e.registry.Finish(file.PID)
	defer logging.LogPanic("correlate", func(r any) {
		e.emit(Outcome{PID: file.PID, Name: name, Path: file.Path, State: StateFailed, Err: fmt.Errorf("panic: %v", r)})
	})

	if !e.awaitExit(ctx, file.PID, launchedAt) {
		slog.Warn("file abandoned", "pid", file.PID, "path", file.Path)
		e.emit(Outcome{PID: file.PID, Name: name, Path: file.Path, State: StateAbandoned, Err: ctx.Err()})
		return
	}

	if err := e.recycler.Recycle(file.Path, e.mode); err != nil {
		slog.Warn("delete failed", "pid", file.PID, "path", file.Path, "mode", e.mode.String(), "error", err)
		e.emit(Outcome{PID: file.PID, Name: name, Path: file.Path, State: StateFailed, Mode: e.mode, Err: err})
		return
	}

	slog.Info("file deleted", "pid", file.PID, "path", file.Path, "mode", e.mode.String())
	e.emit(Outcome{PID: file.PID, Name: name, Path: file.Path, State: StateDeleted, Mode: e.mode})
}

// awaitExit blocks until a termination for the process launched as pid at
// launchedAt is seen. It returns false when ctx is canceled first.
func (e *Engine) awaitExit(ctx context.Context, pid uint32, launchedAt time.Time) bool {
	for {
		// Fetch wake before checking so a park between the two is not missed.
		wake := e.registry.Wake()
		if d, ok := e.registry.TakeMissing(pid); ok {
			if endsLaunch(d, launchedAt) {
				return true
			}
			slog.Debug("dropped termination of an earlier process", "pid", pid, "observed_at", d.ObservedAt)
			continue
		}

		select {
		case d := <-e.live:
			if d.PID != pid {
				e.registry.RememberMissing(d)
				continue
			}
			if endsLaunch(d, launchedAt) {
				return true
			}
			slog.Debug("dropped termination of an earlier process", "pid", pid, "observed_at", d.ObservedAt)
		case <-wake:
		case <-ctx.Done():
			return false
		}
	}
}

// endsLaunch reports whether term can be the exit of the process launched at
// launchedAt. Ids are reused, so a termination observed no later than the
// launch belongs to an earlier process. Events without timestamps always match.
func endsLaunch(term procevent.Descriptor, launchedAt time.Time) bool {
	if term.ObservedAt.IsZero() || launchedAt.IsZero() {
		return true
	}
	return term.ObservedAt.After(launchedAt)
}

func (e *Engine) emit(o Outcome) {
	if o.At.IsZero() {
		o.At = time.Now()
	}
	if o.State.Final() {
		e.recent.Push(o)
	}
	e.outcomes.Emit(o)
}

// OnOutcome registers fn for every outcome and returns a function that
// removes it. fn runs on engine goroutines and must not block.
func (e *Engine) OnOutcome(fn func(Outcome)) (unsubscribe func()) {
	return e.outcomes.OnEvent(fn)
}

// Recent returns up to n of the latest final outcomes, oldest first.
func (e *Engine) Recent(n int) []Outcome {
	return e.recent.Last(n)
}

// Status is a point-in-time view of the engine.
type Status struct {
	Running              bool
	StartedAt            time.Time
	WatchFolder          string
	Mode                 recycle.Mode
	Tracked              []tracking.Pending
	BufferedTerminations int
}

// Status returns the current engine state.
func (e *Engine) Status() Status {
	e.mu.Lock()
	running := e.state == stateRunning
	startedAt := e.startedAt
	e.mu.Unlock()

	snap := e.registry.Snapshot()
	return Status{
		Running:              running,
		StartedAt:            startedAt,
		WatchFolder:          e.matcher.WatchFolder(),
		Mode:                 e.mode,
		Tracked:              snap.Pending,
		BufferedTerminations: snap.Missing,
	}
}
