package dispatch

import (
	"container/heap"

	"main/internal/event"
	"main/internal/model"
)

// mepq is the main event priority queue: a min-heap on effective
// timestamp with FIFO ordering among equal timestamps. Only the
// dispatch goroutine touches it.
type mepq struct {
	h eventHeap
}

type pqEntry struct {
	ev  event.Event
	seq uint64
}

type eventHeap struct {
	entries []pqEntry
	nextSeq uint64
}

func (h *eventHeap) Len() int { return len(h.entries) }

func (h *eventHeap) Less(i, j int) bool {
	a, b := h.entries[i], h.entries[j]
	ta, tb := a.ev.EffectiveTS(), b.ev.EffectiveTS()
	if ta != tb {
		return ta < tb
	}
	return a.seq < b.seq
}

func (h *eventHeap) Swap(i, j int) {
	h.entries[i], h.entries[j] = h.entries[j], h.entries[i]
}

func (h *eventHeap) Push(x any) {
	h.entries = append(h.entries, x.(pqEntry))
}

func (h *eventHeap) Pop() any {
	old := h.entries
	n := len(old)
	entry := old[n-1]
	old[n-1] = pqEntry{}
	h.entries = old[:n-1]
	return entry
}

func newMEPQ() *mepq {
	return &mepq{}
}

// PushEvent inserts an event keyed by its effective timestamp.
func (q *mepq) PushEvent(ev event.Event) {
	q.h.nextSeq++
	heap.Push(&q.h, pqEntry{ev: ev, seq: q.h.nextSeq})
}

// PopMin removes and returns the earliest event.
func (q *mepq) PopMin() event.Event {
	if q.h.Len() == 0 {
		return nil
	}
	return heap.Pop(&q.h).(pqEntry).ev
}

// PeekTS returns the earliest effective timestamp.
func (q *mepq) PeekTS() (model.Timestamp, bool) {
	if q.h.Len() == 0 {
		return 0, false
	}
	return q.h.entries[0].ev.EffectiveTS(), true
}

// Len returns the number of queued events.
func (q *mepq) Len() int { return q.h.Len() }
