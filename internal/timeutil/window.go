package timeutil

import (
	"log/slog"
	"time"
)

// Window represents a lifetime that starts at a fixed instant.
// The window is open on start + [0, duration) and expired from the deadline on.
type Window struct {
	// start is the instant the window opened.
	start time.Time
	// duration is the total lifetime of the window.
	duration time.Duration
}

// NewWindow creates a new Window opened at start that lasts for duration.
// A zero or negative duration yields a window that is already expired at start.
func NewWindow(start time.Time, duration time.Duration) Window {
	return Window{start: start, duration: duration}
}

// Deadline returns the first instant at which the window is expired.
func (w Window) Deadline() time.Time { return w.start.Add(w.duration) }

// Expired reports whether the window is expired at now.
func (w Window) Expired(now time.Time) bool {
	return !now.Before(w.Deadline())
}

// Elapsed returns the time passed since the window opened, capped by the window duration.
func (w Window) Elapsed(now time.Time) time.Duration {
	elapsed := now.Sub(w.start)
	switch {
	case elapsed < 0:
		return 0
	case elapsed > w.duration:
		return max(w.duration, 0)
	}
	return elapsed
}

// Left returns the time remaining until the window expires.
// Returns 0 if the window is expired.
func (w Window) Left(now time.Time) time.Duration {
	left := w.Deadline().Sub(now)
	if left < 0 {
		return 0
	}
	return left
}

func (w Window) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Time("start", w.start),
		slog.Duration("duration", w.duration),
	)
}
