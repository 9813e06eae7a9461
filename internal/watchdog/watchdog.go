// Package watchdog bounds the time a caller waits for a unit of work.
//
// The event-tap callback runs on a thread the window server is waiting on;
// failing to return from it promptly freezes pointer and keyboard input
// system-wide. Every slow query issued from that path goes through
// RunBounded so the tap always returns within its budget.
package watchdog

import "time"

// RunBounded executes work on its own goroutine and waits at most timeout
// for the result. If work finishes first its result is returned with
// ok=true. If the timeout elapses first, RunBounded returns the zero value
// with ok=false and the caller must treat the event as pass-through.
//
// The work function is never cancelled, only abandoned: it keeps running
// and its synchronous result is discarded. Work must therefore be written
// so its side effects are still safe to apply after abandonment (posting
// an async UI update late is fine; the tap has already replayed the event).
func RunBounded[T any](timeout time.Duration, work func() T) (T, bool) {
	done := make(chan T, 1)
	go func() {
		done <- work()
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case v := <-done:
		return v, true
	case <-timer.C:
		var zero T
		return zero, false
	}
}
