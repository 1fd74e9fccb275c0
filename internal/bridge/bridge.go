package bridge

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/graphgate/internal/gwerr"
)

// DefaultTimeout is how long a caller waits for its unit to finish.
const DefaultTimeout = 120 * time.Second

type ownerKey struct{}

type ownerMark struct {
	bridge *Bridge
	seq    int64
}

// Bridge serializes work onto the owning execution context.
type Bridge struct {
	queue       *workQueue
	clock       *Clock
	timeout     time.Duration
	unavailable string
	logger      *slog.Logger
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(b *Bridge) { b.timeout = d }
}

// WithClock sets the logical clock used to stamp units.
func WithClock(c *Clock) Option {
	return func(b *Bridge) { b.clock = c }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(b *Bridge) { b.logger = l }
}

// New creates a Bridge. Work is not executed until Run is called.
func New(opts ...Option) *Bridge {
	b := &Bridge{
		queue:   newWorkQueue(),
		clock:   NewClock(),
		timeout: DefaultTimeout,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Unavailable returns a Bridge whose every dispatch fails fast with an
// UNAVAILABLE error naming reason. Run returns immediately.
func Unavailable(reason string, opts ...Option) *Bridge {
	b := New(opts...)
	b.unavailable = reason
	b.queue.Close()
	return b
}

// Available reports whether the bridge can accept work.
func (b *Bridge) Available() bool {
	return b.unavailable == ""
}

// Timeout returns the per-call completion timeout.
func (b *Bridge) Timeout() time.Duration {
	return b.timeout
}

// Clock returns the bridge's logical clock.
func (b *Bridge) Clock() *Clock {
	return b.clock
}

// Pending returns the number of queued units not yet started.
func (b *Bridge) Pending() int {
	return b.queue.Len()
}

// OnOwner reports whether ctx belongs to work running on b's owner.
func (b *Bridge) OnOwner(ctx context.Context) bool {
	mark, ok := ctx.Value(ownerKey{}).(ownerMark)
	return ok && mark.bridge == b
}

// Seq returns the seq of the unit running under ctx, or 0 off the owner.
func Seq(ctx context.Context) int64 {
	mark, _ := ctx.Value(ownerKey{}).(ownerMark)
	return mark.seq
}

// RunOnOwner runs fn on the owning context and returns its result.
//
// Called from the owner, fn runs inline. Otherwise fn is enqueued exactly
// once and the caller waits for completion, the bridge timeout or ctx,
// whichever comes first. A timed-out unit is not withdrawn.
func (b *Bridge) RunOnOwner(ctx context.Context, name string, fn Work) (any, error) {
	if !b.Available() {
		return nil, gwerr.Unavailable(b.unavailable)
	}
	if b.OnOwner(ctx) {
		return invoke(ctx, fn)
	}

	u := &unit{name: name, fn: fn, done: make(chan outcome, 1)}
	if !b.queue.Enqueue(u, b.clock) {
		return nil, gwerr.Unavailable("owner loop stopped")
	}
	b.logger.Debug("work enqueued", "name", name, "seq", u.seq)

	timer := time.NewTimer(b.timeout)
	defer timer.Stop()

	select {
	case out := <-u.done:
		return out.value, out.err
	case <-timer.C:
		b.logger.Warn("work timed out", "name", name, "seq", u.seq, "timeout", b.timeout)
		return nil, gwerr.Timeout(fmt.Sprintf("'%s'", name), b.timeout)
	case <-ctx.Done():
		return nil, fmt.Errorf("waiting for '%s': %w", name, ctx.Err())
	}
}

// Run is the owner loop. It drains units one at a time until ctx is
// cancelled or Stop is called. Call it from exactly one goroutine.
func (b *Bridge) Run(ctx context.Context) error {
	if !b.Available() {
		b.logger.Error("owner loop not started", "reason", b.unavailable)
		return nil
	}
	b.logger.Info("owner loop starting")

	for {
		if u, ok := b.queue.TryDequeue(); ok {
			b.execute(ctx, u)
			continue
		}

		select {
		case <-ctx.Done():
			b.logger.Info("owner loop stopping: context cancelled")
			b.queue.Close()
			return ctx.Err()

		case <-b.queue.Wait():
			// The signal channel is closed by Stop; a stale signal with an
			// empty open queue just loops back to wait again.
			if b.queue.Drained() {
				b.logger.Info("owner loop stopping: queue closed")
				return nil
			}
		}
	}
}

// Stop closes the queue. Units already queued still run; Run returns once
// they are drained.
func (b *Bridge) Stop() {
	b.queue.Close()
}

func (b *Bridge) execute(ctx context.Context, u *unit) {
	ownerCtx := context.WithValue(ctx, ownerKey{}, ownerMark{bridge: b, seq: u.seq})

	start := time.Now()
	v, err := invoke(ownerCtx, u.fn)
	if err != nil {
		b.logger.Debug("work failed", "name", u.name, "seq", u.seq, "error", err)
	} else {
		b.logger.Debug("work done", "name", u.name, "seq", u.seq, "elapsed", time.Since(start))
	}
	u.done <- outcome{value: v, err: err}
}

// invoke calls fn, turning a panic into a HOST error so one bad unit
// cannot take down the owner loop.
func invoke(ctx context.Context, fn Work) (v any, err error) {
	defer func() {
		if r := recover(); r != nil {
			v = nil
			err = gwerr.Host("panic in owner work", fmt.Errorf("%v", r))
		}
	}()
	return fn(ctx)
}
