package dirtycache

import (
	"container/heap"
	"time"
)

// deadlineEntry is a single (deadline, block index) pair tracked by the
// delay queue (C2). The min-heap orders entries by deadline ascending,
// tie-broken by block index ascending — the tie-break gives deterministic
// drain order under an identical wall clock, which the shutdown scenarios
// in spec.md §8 rely on.
type deadlineEntry struct {
	deadline time.Time
	block    uint64
	index    int // position in the heap slice, maintained by container/heap
}

// deadlineHeap implements container/heap.Interface.
type deadlineHeap []*deadlineEntry

func (h deadlineHeap) Len() int { return len(h) }

func (h deadlineHeap) Less(i, j int) bool {
	if h[i].deadline.Equal(h[j].deadline) {
		return h[i].block < h[j].block
	}
	return h[i].deadline.Before(h[j].deadline)
}

func (h deadlineHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *deadlineHeap) Push(x any) {
	e := x.(*deadlineEntry)
	e.index = len(*h)
	*h = append(*h, e)
}

func (h *deadlineHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*h = old[:n-1]
	return e
}

var _ heap.Interface = (*deadlineHeap)(nil)
