// Package callback implements a registry of short-lived, single- or multi-use callbacks.
//
// A callback is registered with an absolute lifetime and a use budget and is referred to by an
// opaque [Handle]. The handle is typically embedded into something a user can trigger later,
// such as a chat command or a link (see [Provider] and [CommandCodec]). When the handle comes
// back, [Registry.Run] atomically decides whether the callback may still run and, if so, invokes
// it with the caller-supplied audience.
//
// An entry is eligible to run while its lifetime has not elapsed and it has uses left.
// Checking eligibility consumes a use: concurrent runners racing on the last use never both win.
// Dead entries are dropped lazily by Run and proactively by a background sweep.
//
// Basic usage:
//
//	reg := callback.NewRegistry[*Player](nil)
//	defer reg.Close(ctx)
//
//	h, err := reg.Register(ctx, func(ctx context.Context, p *Player) error {
//	    return p.Send(ctx, "thanks for clicking")
//	}, 10*time.Minute, 1)
//
//	// later, possibly on another goroutine
//	ran, err := reg.Run(ctx, player, h)
package callback
