// Package metrics defines the observability surface for the dirty cache and
// writeback engine, decoupled from any specific backend — the same pattern
// as the teacher's cache.CacheMetrics interface: cache and engine code call
// through a small Recorder interface, and a nil Recorder (or Noop{}) costs
// nothing.
package metrics

import "time"

// Recorder observes the handful of signals this system actually produces:
// how many blocks are dirty, how flushes go, and how often writers block on
// a full cache. Implementations must be safe for concurrent use.
type Recorder interface {
	// SetDirty records the current number of dirty blocks (|C3|).
	SetDirty(count int)

	// ObserveFlush records one successful writeback commit: the number of
	// bytes written and how long the commit took.
	ObserveFlush(bytes int, duration time.Duration)

	// ObserveFlushError records a writeback commit that failed.
	ObserveFlushError()

	// IncCapacityBlocked records a Put call blocking because the cache was
	// at capacity.
	IncCapacityBlocked()
}

// Noop implements Recorder with no-op methods. It is the zero-overhead
// default when metrics collection is not configured.
type Noop struct{}

func (Noop) SetDirty(int)                   {}
func (Noop) ObserveFlush(int, time.Duration) {}
func (Noop) ObserveFlushError()              {}
func (Noop) IncCapacityBlocked()             {}

var _ Recorder = Noop{}

// OrNoop returns r unchanged if non-nil, otherwise a Noop — the same
// "if m == nil" guard the teacher's metrics call sites use, pushed into one
// place so every caller can record unconditionally.
func OrNoop(r Recorder) Recorder {
	if r == nil {
		return Noop{}
	}
	return r
}
