// Package writeback implements the writeback engine (C4): a single
// long-running worker that drains due blocks from the dirty cache (C2+C3)
// and commits them to the backing store (C1), one block at a time, at the
// randomized time each write was scheduled for.
//
// The engine never holds the cache lock (L_cache) and the store lock
// (L_store) at the same time — it pops a due block under L_cache, releases
// it, then writes under L_store — matching the lock-ordering rule in the
// concurrency model: if both are ever needed together elsewhere, cache is
// acquired before store, never the reverse.
package writeback

import (
	"sync/atomic"
	"time"

	"github.com/vi/outoforderfs/internal/logger"
	"github.com/vi/outoforderfs/pkg/blockstore"
	"github.com/vi/outoforderfs/pkg/dirtycache"
	"github.com/vi/outoforderfs/pkg/metrics"
)

const (
	stateRunning int32 = iota
	stateDraining
	stateTerminated
)

// Clock abstracts the steady/monotonic time source the engine measures
// deadlines against. time.Now satisfies it; tests can substitute a fake
// clock to make delay ordering deterministic without real sleeps.
type Clock func() time.Time

// Engine is the single writer of the backing store. Exactly one goroutine
// runs the engine's loop at a time; Start launches it, Stop ends it.
type Engine struct {
	cache     *dirtycache.Cache
	store     blockstore.Store
	blockSize int
	clock     Clock
	recorder  metrics.Recorder

	state   atomic.Int32
	started atomic.Bool
	done    chan struct{}
}

// New creates a writeback engine over cache, committing due blocks to
// store. blockSize is the fixed size of every block (and therefore of
// every payload popped from the cache). If clock is nil, time.Now is used.
func New(cache *dirtycache.Cache, store blockstore.Store, blockSize int, clock Clock, recorder metrics.Recorder) *Engine {
	if clock == nil {
		clock = time.Now
	}
	return &Engine{
		cache:     cache,
		store:     store,
		blockSize: blockSize,
		clock:     clock,
		recorder:  metrics.OrNoop(recorder),
		done:      make(chan struct{}),
	}
}

// Start launches the engine's worker goroutine. Calling Start more than
// once is a no-op.
func (e *Engine) Start() {
	if !e.started.CompareAndSwap(false, true) {
		return
	}
	go e.run()
}

// Stop signals the engine to stop committing further blocks and waits for
// the worker to exit. It does not flush the blocks still sitting in the
// cache — those are reported back as the residual dirty count, mirroring
// the original CLI's "throwing away N dirty blocks" shutdown message.
// Calling Stop more than once is safe; later calls just wait for the same
// exit.
func (e *Engine) Stop() int {
	if e.state.CompareAndSwap(stateRunning, stateDraining) {
		e.cache.Nudge()
	}
	<-e.done
	return e.cache.Size()
}

func (e *Engine) run() {
	defer close(e.done)
	defer e.state.Store(stateTerminated)

	for {
		e.cache.Lock()
		if e.state.Load() == stateDraining {
			e.cache.Unlock()
			return
		}

		deadline, ok := e.cache.PeekDeadlineLocked()
		if !ok {
			e.cache.WaitAttentionLocked(0)
			e.cache.Unlock()
			continue
		}

		now := e.clock()
		if deadline.After(now) {
			e.cache.WaitAttentionLocked(deadline.Sub(now))
			e.cache.Unlock()
			continue
		}

		block, payload, ok := e.cache.PopDueLocked(now)
		e.cache.Unlock()
		if !ok {
			continue
		}
		e.commit(block, payload)
	}
}

func (e *Engine) commit(block uint64, payload []byte) {
	start := time.Now()
	off := int64(block) * int64(e.blockSize)

	if err := e.store.WriteAt(payload, off); err != nil {
		e.recorder.ObserveFlushError()
		logger.Error("writeback commit failed", logger.Block(block), logger.Err(err))
		return
	}

	e.recorder.ObserveFlush(len(payload), time.Since(start))
	logger.Debug("writeback commit", logger.Block(block), logger.Length(len(payload)))
}
