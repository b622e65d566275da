package callback

import (
	"sync/atomic"
	"time"
)

// StatsReport is a snapshot of the registry counters, see [Registry.Stats].
type StatsReport struct {
	// Time is the time the report was taken.
	Time time.Time `json:"time"`
	// Active is a number of entries currently held by the registry,
	// including dead ones not yet swept.
	Active int `json:"active"`
	// Registered is a total number of registered callbacks.
	Registered uint64 `json:"registered"`
	// Runs is a total number of successful runs.
	Runs uint64 `json:"runs"`
	// ActionFailures is a number of runs whose action returned an error.
	ActionFailures uint64 `json:"action_failures"`
	// Misses are runs rejected by the registry.
	Misses MissStats `json:"misses"`
	// Evictions are entries removed from the registry.
	Evictions EvictionStats `json:"evictions"`
}

// MissStats counts runs that did not invoke an action, by cause.
type MissStats struct {
	// NotFound is a number of runs with an unknown handle.
	NotFound uint64 `json:"not_found"`
	// Expired is a number of runs after the entry lifetime elapsed.
	Expired uint64 `json:"expired"`
	// Exhausted is a number of runs after the entry use budget was spent.
	Exhausted uint64 `json:"exhausted"`
}

// EvictionStats counts entries removed from the registry, by [EvictReason].
type EvictionStats struct {
	// Expired is a number of entries removed after their lifetime elapsed.
	Expired uint64 `json:"expired"`
	// Exhausted is a number of entries removed after their use budget was spent.
	Exhausted uint64 `json:"exhausted"`
	// Closed is a number of entries dropped by [Registry.Close].
	Closed uint64 `json:"closed"`
}

// statsRecorder accumulates registry counters.
type statsRecorder struct {
	registered     atomic.Uint64
	runs           atomic.Uint64
	actionFailures atomic.Uint64

	missNotFound  atomic.Uint64
	missExpired   atomic.Uint64
	missExhausted atomic.Uint64

	evictExpired   atomic.Uint64
	evictExhausted atomic.Uint64
	evictClosed    atomic.Uint64
}

func (s *statsRecorder) evicted(reason EvictReason) {
	switch reason {
	case EvictReasonExpired:
		s.evictExpired.Add(1)
	case EvictReasonExhausted:
		s.evictExhausted.Add(1)
	case EvictReasonClosed:
		s.evictClosed.Add(1)
	}
}

func (s *statsRecorder) missed(reason EvictReason) {
	switch reason {
	case EvictReasonExpired:
		s.missExpired.Add(1)
	case EvictReasonExhausted:
		s.missExhausted.Add(1)
	}
}

func (s *statsRecorder) report(now time.Time, active int) StatsReport {
	return StatsReport{
		Time:           now,
		Active:         active,
		Registered:     s.registered.Load(),
		Runs:           s.runs.Load(),
		ActionFailures: s.actionFailures.Load(),
		Misses: MissStats{
			NotFound:  s.missNotFound.Load(),
			Expired:   s.missExpired.Load(),
			Exhausted: s.missExhausted.Load(),
		},
		Evictions: EvictionStats{
			Expired:   s.evictExpired.Load(),
			Exhausted: s.evictExhausted.Load(),
			Closed:    s.evictClosed.Load(),
		},
	}
}
