// Package timeutil provides Window, a fixed lifetime anchored at a start instant.
//
// A Window never changes once created. Every question about it (is it expired, how much time is
// left) is answered against an explicit "now" supplied by the caller, which keeps the answers
// deterministic under a mocked clock:
//
//	w := timeutil.NewWindow(clk.Now(), 5*time.Minute)
//	if w.Expired(clk.Now()) {
//	    // too late
//	}
//
// Windows are plain values and are safe to share between goroutines.
package timeutil
