package callback

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"braces.dev/errtrace"
	"github.com/benbjohnson/clock"

	"github.com/ghettovoice/clickback/internal/errorutil"
	"github.com/ghettovoice/clickback/internal/hooks"
	"github.com/ghettovoice/clickback/internal/log"
	"github.com/ghettovoice/clickback/internal/syncutil"
)

// Options are the options for a [Registry].
type Options struct {
	// HandleFactory produces handles for new registrations.
	// If nil, a [UUIDHandleFactory] is used.
	HandleFactory HandleFactory
	// Clock is the time source used for lifetimes and the sweep ticker.
	// If nil, the wall clock is used.
	Clock clock.Clock
	// SweepInterval is the interval of the background sweep that drops dead entries.
	// Dead entries are never runnable, the sweep only bounds memory.
	// If 0, 1 minute is used. If negative, the background sweep is disabled.
	SweepInterval time.Duration
	// Logger is the logger.
	// If nil, the [log.Default] is used.
	Logger *slog.Logger
}

func (o *Options) handleFactory() HandleFactory {
	if o == nil || o.HandleFactory == nil {
		return UUIDHandleFactory{}
	}
	return o.HandleFactory
}

func (o *Options) clk() clock.Clock {
	if o == nil || o.Clock == nil {
		return clock.New()
	}
	return o.Clock
}

func (o *Options) sweepInterval() time.Duration {
	if o == nil || o.SweepInterval == 0 {
		return time.Minute
	}
	return o.SweepInterval
}

func (o *Options) log() *slog.Logger {
	if o == nil || o.Logger == nil {
		return log.Default()
	}
	return o.Logger
}

// Registry holds registered callbacks and runs them within their lifetime and use budget.
// All methods are safe for concurrent use.
type Registry[A any] struct {
	entries *syncutil.ShardMap[Handle, *entry[A]]
	handles HandleFactory
	clock   clock.Clock
	log     *slog.Logger
	stats   statsRecorder

	onEvict hooks.List[EvictHandler]

	closing  atomic.Bool
	stopOnce sync.Once
	stop     chan struct{}
	sweeping sync.WaitGroup
	// inSweep is set while the background goroutine runs a sweep.
	inSweep atomic.Bool
}

// NewRegistry creates a new [Registry].
// Options are optional, if nil, default values are used (see [Options]).
// Unless the sweep is disabled, the registry runs a background goroutine
// that is stopped by [Registry.Close].
func NewRegistry[A any](opts *Options) *Registry[A] {
	r := &Registry[A]{
		entries: syncutil.NewShardMap[Handle, *entry[A]](),
		handles: opts.handleFactory(),
		clock:   opts.clk(),
		log:     opts.log(),
		stop:    make(chan struct{}),
	}

	if iv := opts.sweepInterval(); iv > 0 {
		// the ticker is created before returning so that a mocked clock
		// advanced right after construction already drives it
		tkr := r.clock.Ticker(iv)
		r.sweeping.Add(1)
		go r.sweepLoop(tkr)
	}
	return r
}

// Register stores action under a fresh handle.
// The callback may run while lifetime has not elapsed and at most uses times;
// pass [UnlimitedUses] to only bound it by lifetime.
// A zero lifetime or zero uses is legal and yields a callback that never runs.
func (r *Registry[A]) Register(
	ctx context.Context,
	action Action[A],
	lifetime time.Duration,
	uses int,
) (Handle, error) {
	if action == nil {
		return Handle{}, errtrace.Wrap(NewInvalidArgumentError("nil action"))
	}
	if lifetime < 0 {
		return Handle{}, errtrace.Wrap(NewInvalidArgumentError("negative lifetime %v", lifetime))
	}
	if uses < UnlimitedUses {
		return Handle{}, errtrace.Wrap(NewInvalidArgumentError("invalid uses %d", uses))
	}
	if r.closing.Load() {
		return Handle{}, errtrace.Wrap(ErrRegistryClosed)
	}

	h := r.handles.NewHandle()
	e := newEntry(h, r.clock.Now(), lifetime, uses, action)
	if _, stored := r.entries.SetIfAbsent(h, e); !stored {
		return Handle{}, errtrace.Wrap(errorutil.NewWrapperError(ErrHandleCollision, "handle %s", h))
	}
	if r.closing.Load() {
		// raced with Close after its drain
		r.evict(ctx, e, EvictReasonClosed)
		return Handle{}, errtrace.Wrap(ErrRegistryClosed)
	}

	r.stats.registered.Add(1)
	r.log.LogAttrs(ctx, slog.LevelDebug, "callback registered",
		slog.Any("handle", h),
		slog.Any("window", e.window),
		slog.Int("uses", uses),
	)
	return h, nil
}

// Run runs the callback registered under h with aud.
//
// It returns false if the handle is unknown, its lifetime elapsed or its uses are spent.
// Otherwise one use is taken, the action is invoked and true is returned.
// An error returned by the action is passed through together with true:
// the use is consumed whether the action succeeds or not.
func (r *Registry[A]) Run(ctx context.Context, aud A, h Handle) (bool, error) {
	e, ok := r.entries.Get(h)
	if !ok {
		r.stats.missNotFound.Add(1)
		return false, nil
	}

	if e.expired(r.clock.Now()) {
		r.reject(ctx, e, EvictReasonExpired)
		return false, nil
	}

	ok, last := e.tryUse()
	if !ok {
		r.reject(ctx, e, EvictReasonExhausted)
		return false, nil
	}
	if last {
		r.evict(ctx, e, EvictReasonExhausted)
	}

	r.stats.runs.Add(1)
	if err := e.action(ctx, aud); err != nil {
		r.stats.actionFailures.Add(1)
		return true, errtrace.Wrap(fmt.Errorf("run callback %s: %w", h, err))
	}
	return true, nil
}

func (r *Registry[A]) reject(ctx context.Context, e *entry[A], reason EvictReason) {
	r.stats.missed(reason)
	r.evict(ctx, e, reason)
}

// evict removes e from the registry unless someone else already did.
func (r *Registry[A]) evict(ctx context.Context, e *entry[A], reason EvictReason) bool {
	if !r.entries.DelFunc(e.handle, func(cur *entry[A]) bool { return cur == e }) {
		return false
	}
	r.evicted(ctx, e, reason)
	return true
}

func (r *Registry[A]) evicted(ctx context.Context, e *entry[A], reason EvictReason) {
	r.stats.evicted(reason)
	if r.log.Enabled(ctx, slog.LevelDebug) {
		now := r.clock.Now()
		r.log.LogAttrs(ctx, slog.LevelDebug, "callback evicted",
			slog.Any("handle", e.handle),
			slog.String("reason", string(reason)),
			slog.Duration("age", e.window.Elapsed(now)),
			slog.Duration("expires_in", e.window.Left(now)),
		)
	}
	for fn := range r.onEvict.All() {
		fn(ctx, e.handle, reason)
	}
}

// Sweep drops every entry that can no longer run and returns how many were dropped.
func (r *Registry[A]) Sweep(ctx context.Context) int {
	now := r.clock.Now()
	var n int
	for _, e := range r.entries.Items() {
		var reason EvictReason
		switch {
		case e.expired(now):
			reason = EvictReasonExpired
		case e.exhausted():
			reason = EvictReasonExhausted
		default:
			continue
		}
		if r.evict(ctx, e, reason) {
			n++
		}
	}

	if n > 0 {
		r.log.LogAttrs(ctx, slog.LevelDebug, "callbacks swept", slog.Int("count", n))
	}
	return n
}

func (r *Registry[A]) sweepLoop(tkr *clock.Ticker) {
	defer r.sweeping.Done()
	defer tkr.Stop()

	ctx := context.Background()
	for {
		select {
		case <-r.stop:
			return
		case <-tkr.C:
			r.inSweep.Store(true)
			r.Sweep(ctx)
			r.inSweep.Store(false)
		}
	}
}

// OnEvict binds a callback to be called when an entry is removed from the registry.
// The callback runs synchronously on the goroutine that removed the entry,
// which may be the background sweep. It may call any registry method, including Close.
// The callback can be unbound by calling the returned unbind function.
func (r *Registry[A]) OnEvict(fn EvictHandler) (unbind func()) {
	return r.onEvict.Add(fn)
}

// Len returns the number of entries held by the registry.
// Dead entries not yet dropped are counted too.
func (r *Registry[A]) Len() int { return r.entries.Size() }

// Stats returns a snapshot of the registry counters.
func (r *Registry[A]) Stats() StatsReport {
	return r.stats.report(r.clock.Now(), r.entries.Size())
}

// Close stops the background sweep and drops all entries.
// Registrations made after Close fail with [ErrRegistryClosed].
// Close is idempotent: only the first call drops the entries.
// Called from an eviction callback during a background sweep, Close does not wait for
// the sweep to finish; the sweep goroutine exits right after it.
func (r *Registry[A]) Close(ctx context.Context) error {
	var first bool
	r.stopOnce.Do(func() {
		r.closing.Store(true)
		close(r.stop)
		first = true
	})
	if !r.inSweep.Load() {
		r.sweeping.Wait()
	}
	if !first {
		return nil
	}

	var n int
	for _, e := range r.entries.Drain() {
		r.evicted(ctx, e, EvictReasonClosed)
		n++
	}
	r.log.LogAttrs(ctx, slog.LevelDebug, "callback registry closed", slog.Int("dropped", n))
	return nil
}
