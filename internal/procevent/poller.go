package procevent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v4/process"

	"github.com/tessro/cleandl/internal/logging"
)

// DefaultPollInterval matches the one-second granularity of the Windows
// instance creation/deletion event queries.
const DefaultPollInterval = time.Second

// Lister enumerates running processes.
type Lister interface {
	// PIDs returns the ids of all running processes.
	PIDs(ctx context.Context) ([]uint32, error)

	// Describe returns a snapshot of a single process.
	Describe(ctx context.Context, pid uint32) (Descriptor, error)
}

// Poller is a Source that diffs successive process-list snapshots.
// Processes that start and exit between two polls are not observed.
type Poller struct {
	feed     *Feed
	lister   Lister
	interval time.Duration

	// known is only touched by the poll loop (and by Start before the loop runs).
	known map[uint32]Descriptor

	mu sync.Mutex
	// +checklocks:mu
	started bool
	// +checklocks:mu
	cancel context.CancelFunc
	done   chan struct{}
}

// PollerOption configures a Poller.
type PollerOption func(*Poller)

// WithLister overrides the process enumerator (defaults to gopsutil).
func WithLister(l Lister) PollerOption {
	return func(p *Poller) { p.lister = l }
}

// WithFeedBuffer sets the per-stream event buffer size.
func WithFeedBuffer(n int) PollerOption {
	return func(p *Poller) { p.feed = NewFeed(n) }
}

// NewPoller creates a poller sampling the process list every interval.
func NewPoller(interval time.Duration, opts ...PollerOption) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	p := &Poller{
		lister:   systemLister{},
		interval: interval,
		known:    make(map[uint32]Descriptor),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.feed == nil {
		p.feed = NewFeed(0)
	}
	return p
}

// Start takes the baseline snapshot and begins polling in the background.
// Processes already running at Start produce no launch events.
func (p *Poller) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return errors.New("poller already started")
	}
	p.started = true
	p.mu.Unlock()

	pids, err := p.lister.PIDs(ctx)
	if err != nil {
		return fmt.Errorf("list processes: %w", err)
	}
	now := time.Now()
	for _, pid := range pids {
		d, err := p.lister.Describe(ctx, pid)
		if err != nil {
			// Exited between listing and describing; keep the id so its exit
			// is still reported if it was reused.
			d = Descriptor{PID: pid}
		}
		d.ObservedAt = now
		p.known[pid] = d
	}

	loopCtx, cancel := context.WithCancel(ctx)
	p.mu.Lock()
	p.cancel = cancel
	p.mu.Unlock()

	slog.Debug("process poller started", "processes", len(p.known), "interval", p.interval)

	go p.loop(loopCtx)
	return nil
}

func (p *Poller) loop(ctx context.Context) {
	defer close(p.done)
	defer logging.LogPanic("procevent-poller", nil)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := p.poll(ctx); err != nil {
				if ctx.Err() != nil || errors.Is(err, ErrClosed) {
					return
				}
				slog.Debug("process poll failed", "error", err)
			}
		}
	}
}

// poll compares the current process list with the previous one and publishes
// the differences. Terminations are published before launches so an id that
// was reused between two polls yields its exit first.
func (p *Poller) poll(ctx context.Context) error {
	pids, err := p.lister.PIDs(ctx)
	if err != nil {
		return fmt.Errorf("list processes: %w", err)
	}
	now := time.Now()

	current := make(map[uint32]struct{}, len(pids))
	for _, pid := range pids {
		current[pid] = struct{}{}
	}

	for pid, d := range p.known {
		if _, alive := current[pid]; alive {
			continue
		}
		delete(p.known, pid)
		d.ObservedAt = now
		if err := p.feed.PublishTermination(ctx, d); err != nil {
			return err
		}
	}

	for _, pid := range pids {
		if _, seen := p.known[pid]; seen {
			continue
		}
		d, err := p.lister.Describe(ctx, pid)
		if err != nil {
			// Already gone; nothing to correlate.
			continue
		}
		d.ObservedAt = now
		p.known[pid] = d
		if err := p.feed.PublishLaunch(ctx, d); err != nil {
			return err
		}
	}

	return nil
}

// NextLaunch implements Source.
func (p *Poller) NextLaunch(ctx context.Context) (Descriptor, error) {
	return p.feed.NextLaunch(ctx)
}

// NextTermination implements Source.
func (p *Poller) NextTermination(ctx context.Context) (Descriptor, error) {
	return p.feed.NextTermination(ctx)
}

// Close stops polling and closes both streams.
func (p *Poller) Close() error {
	p.mu.Lock()
	cancel := p.cancel
	started := p.started
	p.mu.Unlock()

	p.feed.Close()
	if cancel != nil {
		cancel()
	}
	if started && cancel != nil {
		<-p.done
	}
	return nil
}

// systemLister reads the process table through gopsutil.
type systemLister struct{}

func (systemLister) PIDs(ctx context.Context) ([]uint32, error) {
	raw, err := process.PidsWithContext(ctx)
	if err != nil {
		return nil, err
	}
	pids := make([]uint32, 0, len(raw))
	for _, pid := range raw {
		if pid < 0 {
			continue
		}
		pids = append(pids, uint32(pid))
	}
	return pids, nil
}

func (systemLister) Describe(ctx context.Context, pid uint32) (Descriptor, error) {
	proc, err := process.NewProcessWithContext(ctx, int32(pid))
	if err != nil {
		return Descriptor{}, err
	}

	d := Descriptor{PID: pid}
	// Name and command line are best effort: system processes often deny access.
	d.Name, _ = proc.NameWithContext(ctx)
	d.CommandLine, _ = proc.CmdlineWithContext(ctx)
	if runtime.GOOS != "windows" {
		// POSIX kernels keep argv intact; Windows only has the raw string.
		d.Args, _ = proc.CmdlineSliceWithContext(ctx)
	}
	d.Cwd, _ = proc.CwdWithContext(ctx)
	return d, nil
}
