// Package dirtycache implements the delay queue (C2) and dirty block cache
// (C3) described in spec.md §4.2, under a single mutex (L_cache). The two
// structures are kept biconditional by construction: a block index is in
// the cache's map if and only if it has exactly one entry in the heap, so
// every mutation touches both together.
package dirtycache

import (
	"container/heap"
	"sync"
	"time"

	"github.com/vi/outoforderfs/pkg/metrics"
)

// Cache holds dirty block payloads awaiting writeback, ordered by the time
// each is due to be committed. Capacity is bounded at M entries (§5); once
// full, Put blocks the caller instead of rejecting the write — the
// bounded-buffer backpressure model from the concurrency section.
type Cache struct {
	mu sync.Mutex

	// attention wakes a writeback engine parked in WaitAttentionLocked
	// whenever a new entry is inserted (or the cache is closed).
	attention *sync.Cond
	// capacity wakes a Put blocked on a full cache whenever an entry is
	// removed (or the cache is closed).
	capacity *sync.Cond

	data     map[uint64][]byte
	byBlock  map[uint64]*deadlineEntry
	queue    deadlineHeap
	capM     int
	closed   bool
	recorder metrics.Recorder
}

// New creates a Cache bounded at capacity entries. capacity must be > 0.
func New(capacity int, recorder metrics.Recorder) *Cache {
	if capacity <= 0 {
		panic("dirtycache: capacity must be positive")
	}
	c := &Cache{
		data:     make(map[uint64][]byte),
		byBlock:  make(map[uint64]*deadlineEntry),
		capM:     capacity,
		recorder: metrics.OrNoop(recorder),
	}
	c.attention = sync.NewCond(&c.mu)
	c.capacity = sync.NewCond(&c.mu)
	return c
}

// Has reports whether block i currently has a dirty payload pending.
func (c *Cache) Has(i uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.data[i]
	return ok
}

// Read returns a copy of the dirty payload for block i, if any.
func (c *Cache) Read(i uint64) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.data[i]
	if !ok {
		return nil, false
	}
	out := make([]byte, len(p))
	copy(out, p)
	return out, true
}

// Put inserts or overwrites the dirty payload for block i.
//
// If i is already dirty, the payload is replaced in place and the existing
// deadline is preserved untouched (spec.md §3: a block already scheduled
// does not get its delay extended by a second write before it is flushed).
// Otherwise Put blocks until the cache has room for one more entry, then
// inserts with the given deadline and wakes the writeback engine.
//
// Put returns ErrClosed if the cache is closed while the caller is blocked
// waiting for capacity.
func (c *Cache) Put(i uint64, payload []byte, deadline time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	stored := make([]byte, len(payload))
	copy(stored, payload)

	if _, ok := c.byBlock[i]; ok {
		// deadline untouched — already scheduled, only the payload changes.
		c.data[i] = stored
		return nil
	}

	if len(c.data) >= c.capM {
		c.recorder.IncCapacityBlocked()
	}
	for len(c.data) >= c.capM && !c.closed {
		c.capacity.Wait()
	}
	if c.closed {
		return ErrClosed
	}

	e := &deadlineEntry{deadline: deadline, block: i}
	heap.Push(&c.queue, e)
	c.byBlock[i] = e
	c.data[i] = stored

	c.recorder.SetDirty(len(c.data))
	c.attention.Signal()
	return nil
}

// Size returns the number of blocks currently dirty.
func (c *Cache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.data)
}

// Lock and Unlock expose the cache's mutex directly for the writeback
// engine's explicit lock/peek/pop protocol (spec.md §4.3 step 2 onward).
// Only the writeback engine should call these; the facade uses the
// self-locking methods above.
func (c *Cache) Lock()   { c.mu.Lock() }
func (c *Cache) Unlock() { c.mu.Unlock() }

// PeekDeadlineLocked returns the earliest pending deadline, if any. The
// caller must already hold the cache lock.
func (c *Cache) PeekDeadlineLocked() (time.Time, bool) {
	if len(c.queue) == 0 {
		return time.Time{}, false
	}
	return c.queue[0].deadline, true
}

// ClosedLocked reports whether the cache has been closed. The caller must
// already hold the cache lock.
func (c *Cache) ClosedLocked() bool {
	return c.closed
}

// PopDueLocked removes and returns the earliest-due entry if its deadline
// is <= now. The caller must already hold the cache lock. Returns ok=false
// if the queue is empty or the earliest entry is not yet due.
func (c *Cache) PopDueLocked(now time.Time) (block uint64, payload []byte, ok bool) {
	if len(c.queue) == 0 {
		return 0, nil, false
	}
	if c.queue[0].deadline.After(now) {
		return 0, nil, false
	}
	e := heap.Pop(&c.queue).(*deadlineEntry)
	payload, present := c.data[e.block]
	if !present {
		panic("dirtycache: invariant violated — block popped from delay queue has no cache entry")
	}
	delete(c.data, e.block)
	delete(c.byBlock, e.block)

	c.recorder.SetDirty(len(c.data))
	c.capacity.Signal()
	return e.block, payload, true
}

// WaitAttentionLocked blocks until either a new entry is inserted, the
// cache is closed, or timeout elapses (0 means wait indefinitely). The
// caller must already hold the cache lock; the lock is released while
// waiting and reacquired before returning, per sync.Cond semantics.
func (c *Cache) WaitAttentionLocked(timeout time.Duration) {
	if timeout <= 0 {
		c.attention.Wait()
		return
	}
	timer := time.AfterFunc(timeout, func() {
		c.mu.Lock()
		c.attention.Broadcast()
		c.mu.Unlock()
	})
	defer timer.Stop()
	c.attention.Wait()
}

// Nudge wakes a writeback engine parked in WaitAttentionLocked without
// closing the cache. The writeback engine's Stop uses this to make the
// engine re-check its own shutdown state promptly instead of waiting out
// whatever timeout it last computed.
func (c *Cache) Nudge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.attention.Broadcast()
}

// Close marks the cache closed and wakes every waiter (blocked writers and
// a parked writeback engine alike) so shutdown cannot deadlock on either
// condition variable. It does not discard pending entries: they stay in
// the cache and still count toward Size.
func (c *Cache) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.attention.Broadcast()
	c.capacity.Broadcast()
}
