package procevent

import (
	"context"
	"sync"
)

// DefaultFeedBuffer is the per-stream buffer used when NewFeed is given n <= 0.
const DefaultFeedBuffer = 256

// Feed is a channel-backed Source. Producers push events with PublishLaunch
// and PublishTermination; consumers read them with the Source methods.
// A receive that loses to ctx cancellation never consumes an event.
type Feed struct {
	launches     chan Descriptor
	terminations chan Descriptor

	done      chan struct{}
	closeOnce sync.Once
}

// NewFeed creates a feed buffering up to n events per stream.
func NewFeed(n int) *Feed {
	if n <= 0 {
		n = DefaultFeedBuffer
	}
	return &Feed{
		launches:     make(chan Descriptor, n),
		terminations: make(chan Descriptor, n),
		done:         make(chan struct{}),
	}
}

// PublishLaunch queues a launch event, blocking while the buffer is full.
func (f *Feed) PublishLaunch(ctx context.Context, d Descriptor) error {
	return f.publish(ctx, f.launches, d)
}

// PublishTermination queues a termination event, blocking while the buffer is full.
func (f *Feed) PublishTermination(ctx context.Context, d Descriptor) error {
	return f.publish(ctx, f.terminations, d)
}

func (f *Feed) publish(ctx context.Context, ch chan<- Descriptor, d Descriptor) error {
	select {
	case <-f.done:
		return ErrClosed
	default:
	}

	select {
	case ch <- d:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-f.done:
		return ErrClosed
	}
}

// NextLaunch implements Source.
func (f *Feed) NextLaunch(ctx context.Context) (Descriptor, error) {
	return f.next(ctx, f.launches)
}

// NextTermination implements Source.
func (f *Feed) NextTermination(ctx context.Context) (Descriptor, error) {
	return f.next(ctx, f.terminations)
}

func (f *Feed) next(ctx context.Context, ch <-chan Descriptor) (Descriptor, error) {
	select {
	case d := <-ch:
		return d, nil
	case <-ctx.Done():
		return Descriptor{}, ctx.Err()
	case <-f.done:
		return Descriptor{}, ErrClosed
	}
}

// Close implements Source. It is safe to call more than once.
func (f *Feed) Close() error {
	f.closeOnce.Do(func() { close(f.done) })
	return nil
}
