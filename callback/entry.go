package callback

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/ghettovoice/clickback/internal/timeutil"
)

// UnlimitedUses is the use budget of a callback that may run any number of times
// until its lifetime elapses.
const UnlimitedUses = -1

// Action is a registered callback.
// The audience is whatever the caller of [Registry.Run] passes through,
// for example the user who clicked a button.
type Action[A any] func(ctx context.Context, aud A) error

// entry is a registered callback together with its expiry state.
// Only left is mutated after creation.
type entry[A any] struct {
	handle  Handle
	window  timeutil.Window
	limited bool
	left    atomic.Int64
	action  Action[A]
}

func newEntry[A any](h Handle, now time.Time, lifetime time.Duration, uses int, action Action[A]) *entry[A] {
	e := &entry[A]{
		handle:  h,
		window:  timeutil.NewWindow(now, lifetime),
		limited: uses != UnlimitedUses,
		action:  action,
	}
	if e.limited {
		e.left.Store(int64(uses))
	}
	return e
}

// tryUse takes one use from the budget.
// The decrement and the check are a single atomic step, so racing callers
// can never take more uses than the budget holds.
func (e *entry[A]) tryUse() (ok, last bool) {
	if !e.limited {
		return true, false
	}
	n := e.left.Add(-1)
	return n >= 0, n == 0
}

// exhausted reports whether no uses are left.
// It never consumes a use.
func (e *entry[A]) exhausted() bool {
	return e.limited && e.left.Load() <= 0
}

func (e *entry[A]) expired(now time.Time) bool {
	return e.window.Expired(now)
}

// EvictReason describes why an entry left the registry.
type EvictReason string

const (
	// EvictReasonExpired means the entry lifetime elapsed.
	EvictReasonExpired EvictReason = "expired"
	// EvictReasonExhausted means the entry use budget was spent.
	EvictReasonExhausted EvictReason = "exhausted"
	// EvictReasonClosed means the registry was closed.
	EvictReasonClosed EvictReason = "closed"
)

// EvictHandler is called after an entry was removed from the registry.
type EvictHandler func(ctx context.Context, h Handle, reason EvictReason)
